package main

import (
	"github.com/spf13/cobra"

	"herdcore/pkg/domain"
)

var horizonDays int

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast calvings, pregnancy checks and maturity",
}

var forecastCalvingsCmd = &cobra.Command{
	Use:   "calvings",
	Short: "List pregnant females expected to calve within the horizon",
	RunE: withService(func(cmd *cobra.Command, a *app, _ []string) error {
		entries, err := a.svc.UpcomingCalvings(cmd.Context(), tenant, horizonDays)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), entries)
	}),
}

var forecastChecksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List females inside their pregnancy-check window",
	RunE: withService(func(cmd *cobra.Command, a *app, _ []string) error {
		entries, err := a.svc.PendingPregnancyChecks(cmd.Context(), tenant)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), entries)
	}),
}

var forecastMaturityCmd = &cobra.Command{
	Use:   "maturity",
	Short: "List young animals old enough to mature",
	RunE: withService(func(cmd *cobra.Command, a *app, _ []string) error {
		entries, err := a.svc.DueForMaturity(cmd.Context(), tenant)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), entries)
	}),
}

var matureCmd = &cobra.Command{
	Use:   "mature",
	Short: "Apply maturity transitions",
}

var matureSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mature every young animal that has reached the maturity age",
	RunE: withService(func(cmd *cobra.Command, a *app, _ []string) error {
		outcomes, err := a.svc.MatureDue(cmd.Context(), tenant)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), outcomes)
	}),
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <animal-id>",
	Short: "Print an animal's timeline, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: withService(func(cmd *cobra.Command, a *app, args []string) error {
		events, err := a.svc.ListTimeline(cmd.Context(), tenant, args[0])
		if err != nil {
			return err
		}
		if events == nil {
			events = []domain.TimelineEvent{}
		}
		return printJSON(cmd.OutOrStdout(), events)
	}),
}

func init() {
	forecastCalvingsCmd.Flags().IntVar(&horizonDays, "horizon", 30, "days ahead to include")
	forecastCmd.AddCommand(forecastCalvingsCmd, forecastChecksCmd, forecastMaturityCmd)
	matureCmd.AddCommand(matureSweepCmd)
}

// withService wires the app for a tenant-scoped command and closes it afterwards.
func withService(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := requireTenantFlag(); err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}
