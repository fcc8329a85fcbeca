// Command herdcore runs the herd lifecycle service and its operator commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
	tenant     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "herdcore",
	Short: "Livestock lifecycle records, reproduction tracking and forecasts",
	Long: `herdcore keeps one lifecycle record per animal, tracks insemination and
calving, moves animals between stages, and answers forecast queries.

Run "herdcore serve" for the HTTP API or use the subcommands for one-off
operator tasks against the configured store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: ./.env when present)")
	rootCmd.PersistentFlags().StringVarP(&tenant, "tenant", "t", "", "tenant (farm account) to operate on")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(matureCmd)
	rootCmd.AddCommand(timelineCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
