package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"herdcore/internal/archive"
	"herdcore/internal/config"
	"herdcore/internal/core"
	"herdcore/internal/infra/logging"
	"herdcore/internal/infra/metrics"
)

// app holds the wired service and everything that must be closed with it.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Recorder
	svc     *core.Service
	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, metrics: metrics.NewRecorder()}
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	store, closeStore, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, closeStore)

	archiveStore, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}

	svcLogger := logging.ForService(logger)
	a.svc = core.NewService(store,
		core.WithLogger(svcLogger),
		core.WithMetricsRecorder(a.metrics),
		core.WithArchive(archiveStore),
		core.WithRetirementPublisher(core.LogRetirementPublisher{Logger: svcLogger}),
		core.WithMaturityConcurrency(cfg.Maturity.Concurrency),
	)
	logger.Debug("service wired",
		zap.String("storage", string(cfg.Storage.Driver)),
		zap.String("archive", cfg.Archive.Driver),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func requireTenantFlag() error {
	if tenant == "" {
		return errors.New("--tenant is required")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
