// Package core implements the herd lifecycle service: the animal record store
// operations, the reproduction tracker, the lifecycle transition engine, the
// timeline ledger and the forecast views. Every mutating operation runs inside
// a PersistentStore transaction so rules are evaluated before commit.
package core

import (
	"context"
	"time"

	"herdcore/internal/archive"
	"herdcore/internal/infra/persistence/memory"
	"herdcore/pkg/domain"
)

// Service operation names used for logging, metrics, tracing and audit.
const (
	OpCreateAnimal       = "create_animal"
	OpUpdateAnimal       = "update_animal"
	OpRetireAnimal       = "retire_animal"
	OpRecordInsemination = "record_insemination"
	OpSetPregnancyStatus = "set_pregnancy_status"
	OpClearInsemination  = "clear_insemination"
	OpStartDryPeriod     = "start_dry_period"
	OpMature             = "mature"
	OpRecordCalving      = "record_calving"
	OpAppendEvent        = "append_event"
	OpRemoveEvent        = "remove_event"
	OpTimelineAppend     = "timeline_append"
)

type operationMeta struct {
	entity domain.EntityType
	action domain.Action
}

var operationMetadata = map[string]operationMeta{
	OpCreateAnimal:       {domain.EntityAnimal, domain.ActionCreate},
	OpUpdateAnimal:       {domain.EntityAnimal, domain.ActionUpdate},
	OpRetireAnimal:       {domain.EntityAnimal, domain.ActionDelete},
	OpRecordInsemination: {domain.EntityAnimal, domain.ActionUpdate},
	OpSetPregnancyStatus: {domain.EntityAnimal, domain.ActionUpdate},
	OpClearInsemination:  {domain.EntityAnimal, domain.ActionUpdate},
	OpStartDryPeriod:     {domain.EntityAnimal, domain.ActionUpdate},
	OpMature:             {domain.EntityAnimal, domain.ActionUpdate},
	OpRecordCalving:      {domain.EntityAnimal, domain.ActionUpdate},
	OpAppendEvent:        {domain.EntityTimelineEvent, domain.ActionCreate},
	OpRemoveEvent:        {domain.EntityTimelineEvent, domain.ActionDelete},
}

// Service exposes the transactional herd operations.
type Service struct {
	store     domain.PersistentStore
	engine    *domain.RulesEngine
	clock     Clock
	now       func() time.Time
	logger    Logger
	audit     AuditRecorder
	metrics   MetricsRecorder
	tracer    Tracer
	publisher RetirementPublisher
	archive   archive.Store
	locks     *keyedMutex

	maturityConcurrency int
}

type nowSetter interface {
	SetNowFunc(func() time.Time)
}

type engineProvider interface {
	RulesEngine() *domain.RulesEngine
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	svc := &Service{
		store:               store,
		clock:               o.clock,
		logger:              o.logger,
		audit:               o.audit,
		metrics:             o.metrics,
		tracer:              o.tracer,
		publisher:           o.publisher,
		archive:             o.archive,
		locks:               newKeyedMutex(),
		maturityConcurrency: o.maturityConcurrency,
	}
	svc.now = func() time.Time { return svc.clock.Now().UTC() }
	if svc.publisher == nil {
		svc.publisher = LogRetirementPublisher{Logger: svc.logger}
	}
	if ep, ok := store.(engineProvider); ok {
		svc.engine = ep.RulesEngine()
	}
	if ns, ok := store.(nowSetter); ok {
		ns.SetNowFunc(svc.now)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects NewDefaultRulesEngine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying persistent store.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// RulesEngine returns the engine evaluated by the store, when it exposes one.
func (s *Service) RulesEngine() *domain.RulesEngine {
	return s.engine
}

// Now returns the service clock reading in UTC.
func (s *Service) Now() time.Time {
	return s.now()
}

// run executes fn in a store transaction with tracing, metrics, audit and logging.
func (s *Service) run(ctx context.Context, op, tenant, entityID string, fn func(domain.Transaction) error) (domain.Result, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	s.recordAudit(ctx, op, tenant, entityID, duration, err)

	for _, v := range res.Violations {
		if v.Severity != domain.SeverityBlock {
			s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "severity", v.Severity, "message", v.Message)
		}
	}
	switch {
	case err == nil:
		s.logger.Debug("operation completed", "operation", op, "tenant", tenant, "id", entityID, "duration", duration)
	case isDomainError(err):
		s.logger.Info("operation rejected", "operation", op, "tenant", tenant, "id", entityID, "error", err)
	default:
		s.logger.Error("operation failed", "operation", op, "tenant", tenant, "id", entityID, "error", err)
	}
	return res, err
}

func (s *Service) recordAudit(ctx context.Context, op, tenant, entityID string, duration time.Duration, err error) {
	meta, ok := operationMetadata[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Tenant:    tenant,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

func (s *Service) view(ctx context.Context, fn func(domain.TransactionView) error) error {
	return s.store.View(ctx, fn)
}

func isDomainError(err error) bool {
	return domain.IsNotFound(err) || domain.IsValidation(err) || domain.IsState(err) ||
		domain.IsConflict(err) || domain.IsRuleViolation(err)
}

// findAnimal returns the tenant's animal or NotFound. Records owned by another
// tenant are indistinguishable from missing ones.
func findAnimal(view interface {
	FindAnimal(id string) (domain.Animal, bool)
}, tenant, id string) (domain.Animal, error) {
	a, ok := view.FindAnimal(id)
	if !ok || a.TenantID != tenant {
		return domain.Animal{}, domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	return a, nil
}

func requireTenant(tenant string) error {
	if tenant == "" {
		return domain.ValidationError{Field: "tenant", Reason: "is required"}
	}
	return nil
}

// observe reads the animal outside any lock; the returned record carries the
// Version that the following transaction re-validates.
func (s *Service) observe(ctx context.Context, tenant, id string) (domain.Animal, error) {
	if err := requireTenant(tenant); err != nil {
		return domain.Animal{}, err
	}
	var observed domain.Animal
	err := s.view(ctx, func(v domain.TransactionView) error {
		var err error
		observed, err = findAnimal(v, tenant, id)
		return err
	})
	return observed, err
}

// appendLifecycleEvents writes timeline entries after a committed operation.
// Failures are logged and counted, never returned.
func (s *Service) appendLifecycleEvents(ctx context.Context, events ...domain.TimelineEvent) {
	if len(events) == 0 {
		return
	}
	started := time.Now()
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, e := range events {
			if _, err := tx.AppendEvent(e); err != nil {
				return err
			}
		}
		return nil
	})
	s.metrics.Observe(ctx, OpTimelineAppend, err == nil, time.Since(started))
	if err != nil {
		s.logger.Warn("timeline append failed", "animal_id", events[0].AnimalID, "events", len(events), "error", err)
	}
}

func lifecycleEvent(a domain.Animal, typ domain.EventType, date time.Time, description string, related *string) domain.TimelineEvent {
	return domain.TimelineEvent{
		TenantID:     a.TenantID,
		AnimalID:     a.ID,
		StageAtEvent: a.Stage,
		Type:         typ,
		Date:         domain.Date(date),
		Description:  description,
		RelatedID:    related,
	}
}
