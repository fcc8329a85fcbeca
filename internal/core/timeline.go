package core

import (
	"context"
	"fmt"
	"sort"

	"herdcore/pkg/domain"
)

// AppendEvent records a caller-supplied timeline entry. The animal may
// already be retired as long as the tenant holds history for it.
func (s *Service) AppendEvent(ctx context.Context, tenant string, event domain.TimelineEvent) (domain.TimelineEvent, domain.Result, error) {
	if err := requireTenant(tenant); err != nil {
		return domain.TimelineEvent{}, domain.Result{}, err
	}
	if event.AnimalID == "" {
		return domain.TimelineEvent{}, domain.Result{}, domain.ValidationError{Field: "animal_id", Reason: "is required"}
	}
	if !event.Type.Valid() {
		return domain.TimelineEvent{}, domain.Result{}, domain.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown event type %q", event.Type)}
	}
	if event.Date.IsZero() {
		return domain.TimelineEvent{}, domain.Result{}, domain.ValidationError{Field: "date", Reason: "is required"}
	}
	event.ID = ""
	event.TenantID = tenant
	event.Date = domain.Date(event.Date)

	var created domain.TimelineEvent
	res, err := s.run(ctx, OpAppendEvent, tenant, event.AnimalID, func(tx domain.Transaction) error {
		if a, err := findAnimal(tx, tenant, event.AnimalID); err == nil {
			event.StageAtEvent = a.Stage
		} else if stage, ok := lastKnownStage(tx.Snapshot(), tenant, event.AnimalID); ok {
			event.StageAtEvent = stage
		} else {
			return err
		}
		var err error
		created, err = tx.AppendEvent(event)
		return err
	})
	return created, res, err
}

// lastKnownStage reports the stage of a retired animal from its newest
// retained event. ok is false when the tenant holds no history for it.
func lastKnownStage(view domain.TransactionView, tenant, animalID string) (stage domain.Stage, ok bool) {
	for _, e := range tenantEvents(view, tenant, animalID) {
		ok = true
		if e.StageAtEvent != "" {
			return e.StageAtEvent, true
		}
	}
	return "", ok
}

// ListTimeline returns an animal's history, newest first. Events on the same
// date are ordered by creation time descending, then ID.
func (s *Service) ListTimeline(ctx context.Context, tenant, animalID string) ([]domain.TimelineEvent, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	var out []domain.TimelineEvent
	err := s.view(ctx, func(v domain.TransactionView) error {
		out = tenantEvents(v, tenant, animalID)
		return nil
	})
	return out, err
}

func tenantEvents(v domain.TransactionView, tenant, animalID string) []domain.TimelineEvent {
	var out []domain.TimelineEvent
	for _, e := range v.ListEvents(animalID) {
		if e.TenantID == tenant {
			out = append(out, e)
		}
	}
	sortTimeline(out)
	return out
}

func sortTimeline(events []domain.TimelineEvent) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// RemoveEvent hard-deletes a timeline entry.
func (s *Service) RemoveEvent(ctx context.Context, tenant, eventID string) (domain.Result, error) {
	if err := requireTenant(tenant); err != nil {
		return domain.Result{}, err
	}
	return s.run(ctx, OpRemoveEvent, tenant, eventID, func(tx domain.Transaction) error {
		e, ok := tx.Snapshot().FindEvent(eventID)
		if !ok || e.TenantID != tenant {
			return domain.NotFoundError{Entity: domain.EntityTimelineEvent, ID: eventID}
		}
		return tx.DeleteEvent(eventID)
	})
}
