package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"herdcore/internal/core"
	"herdcore/pkg/domain"
)

func TestNewLevelsAndFormats(t *testing.T) {
	logger, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New(Config{Level: "DEBUG", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = New(Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestServiceLoggerWritesStructuredFields(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := ForService(zap.New(obsCore))

	logger.Debug("debug", "k", 1)
	logger.Info("info")
	logger.Warn("timeline append failed", "animal_id", "a-1")
	logger.Error("error", "err", "boom")

	require.Equal(t, 4, logs.Len())
	warn := logs.FilterMessage("timeline append failed").All()
	require.Len(t, warn, 1)
	assert.Equal(t, zapcore.WarnLevel, warn[0].Level)
	assert.Equal(t, "core", warn[0].LoggerName)
	assert.Equal(t, "a-1", warn[0].ContextMap()["animal_id"])
}

func TestServiceLoggerWiredIntoService(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	svc := core.NewInMemoryService(nil,
		core.WithLogger(ForService(zap.New(obsCore))),
		core.WithClock(core.ClockFunc(func() time.Time { return now })),
	)
	_, err := svc.GetAnimal(context.Background(), "farm-a", "missing")
	require.True(t, domain.IsNotFound(err))

	_, _, err = svc.Mature(context.Background(), "farm-a", "missing")
	require.Error(t, err)
	_, _, err = svc.ClearInsemination(context.Background(), "farm-a", "missing")
	require.True(t, domain.IsNotFound(err))
	assert.Equal(t, 1, logs.FilterMessage("operation rejected").Len())
}
