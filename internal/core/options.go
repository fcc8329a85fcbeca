package core

import (
	"context"
	"time"

	"herdcore/internal/archive"
	"herdcore/pkg/domain"
)

// Clock supplies the current time to the service.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Logger is the structured logging surface used by the service. Args are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AuditStatus records whether an audited operation succeeded.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one service operation for compliance trails.
type AuditEntry struct {
	Operation string
	Tenant    string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives an entry for every mutating service operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation outcomes and latencies.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation error, nil on success.
type TraceSpan interface {
	End(err error)
}

// RetirementPublisher delivers AnimalRetired events to external collaborators
// such as the financial ledger or feed planning.
type RetirementPublisher interface {
	PublishRetired(ctx context.Context, event domain.AnimalRetired) error
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// LogRetirementPublisher writes retirement events to a Logger. It is the
// default publisher when no message transport is configured.
type LogRetirementPublisher struct {
	Logger Logger
}

// PublishRetired implements RetirementPublisher.
func (p LogRetirementPublisher) PublishRetired(_ context.Context, event domain.AnimalRetired) error {
	if p.Logger == nil {
		return nil
	}
	p.Logger.Info("animal retired",
		"tenant", event.TenantID,
		"animal_id", event.AnimalID,
		"tag", event.TagNumber,
		"stage", event.Stage,
		"reason", event.Reason,
	)
	return nil
}

// DefaultMaturityConcurrency bounds parallel transitions in MatureDue.
const DefaultMaturityConcurrency = 4

// ServiceOption customises a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock               Clock
	logger              Logger
	audit               AuditRecorder
	metrics             MetricsRecorder
	tracer              Tracer
	publisher           RetirementPublisher
	archive             archive.Store
	maturityConcurrency int
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:               ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:              noopLogger{},
		audit:               noopAuditRecorder{},
		metrics:             noopMetricsRecorder{},
		tracer:              noopTracer{},
		maturityConcurrency: DefaultMaturityConcurrency,
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithRetirementPublisher sets the AnimalRetired sink. Defaults to a LogRetirementPublisher.
func WithRetirementPublisher(publisher RetirementPublisher) ServiceOption {
	return func(o *serviceOptions) {
		if publisher != nil {
			o.publisher = publisher
		}
	}
}

// WithArchive enables archiving of retired animals.
func WithArchive(store archive.Store) ServiceOption {
	return func(o *serviceOptions) {
		o.archive = store
	}
}

// WithMaturityConcurrency bounds the MatureDue worker pool.
func WithMaturityConcurrency(n int) ServiceOption {
	return func(o *serviceOptions) {
		if n > 0 {
			o.maturityConcurrency = n
		}
	}
}
