package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"herdcore/internal/adapters/httpapi"
	"herdcore/internal/infra/logging"
)

var (
	serveAddr      string
	defaultHorizon int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.HTTP.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		requestLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel(a.cfg.Log.Level)}))
		router := httpapi.NewRouter(a.svc, httpapi.Options{
			Logger:             requestLogger,
			Metrics:            a.metrics.Handler(),
			DefaultHorizonDays: defaultHorizon,
		})
		server := httpapi.NewServer(addr, router, logging.ForService(a.logger))

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http.addr)")
	serveCmd.Flags().IntVar(&defaultHorizon, "default-horizon", 30, "calving forecast horizon in days when ?horizon is omitted")
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
