package core

import (
	"context"
	"errors"
	"fmt"

	"herdcore/internal/archive"
	"herdcore/pkg/domain"
)

// RetireAnimal removes an animal from the active herd. The record is hard
// deleted while its timeline is kept; the final record and history are
// archived and an AnimalRetired event is published. Archive and publish
// failures are logged once the deletion has committed.
func (s *Service) RetireAnimal(ctx context.Context, tenant, id string, reason domain.RetirementReason) (domain.Result, error) {
	if err := requireTenant(tenant); err != nil {
		return domain.Result{}, err
	}
	if !reason.Valid() {
		return domain.Result{}, domain.ValidationError{Field: "reason", Reason: fmt.Sprintf("unknown retirement reason %q", reason)}
	}
	unlock := s.locks.Lock(lockKey(tenant, id))
	defer unlock()

	var retired domain.Animal
	res, err := s.run(ctx, OpRetireAnimal, tenant, id, func(tx domain.Transaction) error {
		current, err := findAnimal(tx, tenant, id)
		if err != nil {
			return err
		}
		retired = current
		return tx.DeleteAnimal(id)
	})
	if err != nil {
		return res, err
	}
	at := s.now()
	s.appendLifecycleEvents(ctx, lifecycleEvent(retired, domain.EventOther, at, fmt.Sprintf("retired: %s", reason), nil))

	if s.archive != nil {
		timeline, err := s.ListTimeline(ctx, tenant, id)
		if err == nil {
			_, err = archive.WriteRetired(ctx, s.archive, archive.RetiredAnimal{
				Animal:    retired,
				Reason:    reason,
				RetiredAt: at,
				Timeline:  timeline,
			})
		}
		if err != nil {
			s.logger.Warn("archive retired animal failed", "tenant", tenant, "animal_id", id, "error", err)
		}
	}

	event := domain.AnimalRetired{
		AnimalID:  retired.ID,
		TenantID:  tenant,
		TagNumber: retired.TagNumber,
		Stage:     retired.Stage,
		Reason:    reason,
		At:        at,
	}
	if err := s.publisher.PublishRetired(ctx, event); err != nil {
		s.logger.Warn("publish retirement failed", "tenant", tenant, "animal_id", id, "error", err)
	}
	return res, nil
}

// ArchivedRecord returns the retirement document of a retired animal.
// NotFound is returned when no archive is configured or nothing was archived.
func (s *Service) ArchivedRecord(ctx context.Context, tenant, id string) (archive.RetiredAnimal, error) {
	if err := requireTenant(tenant); err != nil {
		return archive.RetiredAnimal{}, err
	}
	if s.archive == nil {
		return archive.RetiredAnimal{}, domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	doc, err := archive.ReadRetired(ctx, s.archive, tenant, id)
	if errors.Is(err, archive.ErrNotFound) {
		return archive.RetiredAnimal{}, domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	return doc, err
}
