package core

import (
	"context"
	"fmt"
	"time"

	"herdcore/pkg/domain"
)

// mutateAnimal runs check and mutate against the current record under the
// per-animal lock inside one transaction.
func (s *Service) mutateAnimal(ctx context.Context, op, tenant, id string, check func(domain.Animal) error, mutate func(*domain.Animal)) (domain.Animal, domain.Result, error) {
	if err := requireTenant(tenant); err != nil {
		return domain.Animal{}, domain.Result{}, err
	}
	unlock := s.locks.Lock(lockKey(tenant, id))
	defer unlock()

	var updated domain.Animal
	res, err := s.run(ctx, op, tenant, id, func(tx domain.Transaction) error {
		current, err := findAnimal(tx, tenant, id)
		if err != nil {
			return err
		}
		if err := check(current); err != nil {
			return err
		}
		updated, err = tx.UpdateAnimal(id, func(a *domain.Animal) error {
			mutate(a)
			return nil
		})
		return err
	})
	return updated, res, err
}

func requireFemaleStage(op string) func(domain.Animal) error {
	return func(a domain.Animal) error {
		if !a.Stage.Female() {
			return domain.StateError{ID: a.ID, Stage: a.Stage, Operation: op, Reason: "only breeding or milking females"}
		}
		return nil
	}
}

// RecordInsemination sets the insemination date and resets the pregnancy status to unknown.
func (s *Service) RecordInsemination(ctx context.Context, tenant, id string, date time.Time) (domain.Animal, domain.Result, error) {
	day := domain.Date(date)
	check := requireFemaleStage(OpRecordInsemination)
	updated, res, err := s.mutateAnimal(ctx, OpRecordInsemination, tenant, id, func(a domain.Animal) error {
		if err := check(a); err != nil {
			return err
		}
		return validateEventDate("insemination_date", date, a, s.now())
	}, func(a *domain.Animal) {
		a.InseminationDate = &day
		a.PregnancyStatus = domain.PregnancyUnknown
	})
	if err != nil {
		return updated, res, err
	}
	s.appendLifecycleEvents(ctx, lifecycleEvent(updated, domain.EventInsemination, day,
		fmt.Sprintf("inseminated, expected calving %s", domain.ExpectedCalvingDate(day).Format(time.DateOnly)), nil))
	return updated, res, nil
}

// pregnancyTransitionAllowed encodes the pregnancy status machine:
// unknown moves to pregnant or not_pregnant; a checked status returns to
// unknown only when the insemination is cancelled; pregnant and not_pregnant
// may replace each other after a re-check.
func pregnancyTransitionAllowed(from, to domain.PregnancyStatus, cancelInsemination bool) bool {
	switch {
	case to == domain.PregnancyUnknown:
		return cancelInsemination
	case from == to:
		return true
	default:
		return to == domain.PregnancyPregnant || to == domain.PregnancyNotPregnant
	}
}

// SetPregnancyStatus records a pregnancy check outcome.
func (s *Service) SetPregnancyStatus(ctx context.Context, tenant, id string, status domain.PregnancyStatus, cancelInsemination bool) (domain.Animal, domain.Result, error) {
	if !status.Valid() {
		return domain.Animal{}, domain.Result{}, domain.ValidationError{Field: "pregnancy_status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	check := requireFemaleStage(OpSetPregnancyStatus)
	updated, res, err := s.mutateAnimal(ctx, OpSetPregnancyStatus, tenant, id, func(a domain.Animal) error {
		if err := check(a); err != nil {
			return err
		}
		if !pregnancyTransitionAllowed(a.PregnancyStatus, status, cancelInsemination) {
			return domain.StateError{ID: a.ID, Stage: a.Stage, Operation: OpSetPregnancyStatus,
				Reason: fmt.Sprintf("cannot move pregnancy status from %s to %s", a.PregnancyStatus, status)}
		}
		if status == domain.PregnancyPregnant && a.InseminationDate == nil {
			return domain.StateError{ID: a.ID, Stage: a.Stage, Operation: OpSetPregnancyStatus, Reason: "no active insemination"}
		}
		return nil
	}, func(a *domain.Animal) {
		a.PregnancyStatus = status
		if cancelInsemination && status != domain.PregnancyPregnant {
			a.InseminationDate = nil
		}
	})
	if err != nil {
		return updated, res, err
	}
	description := fmt.Sprintf("pregnancy check: %s", status)
	if cancelInsemination && updated.InseminationDate == nil {
		description += " (insemination cancelled)"
	}
	s.appendLifecycleEvents(ctx, lifecycleEvent(updated, domain.EventHealth, s.now(), description, nil))
	return updated, res, nil
}

// ClearInsemination removes the active insemination and marks the female not pregnant.
func (s *Service) ClearInsemination(ctx context.Context, tenant, id string) (domain.Animal, domain.Result, error) {
	updated, res, err := s.mutateAnimal(ctx, OpClearInsemination, tenant, id, requireFemaleStage(OpClearInsemination), clearInsemination)
	if err != nil {
		return updated, res, err
	}
	s.appendLifecycleEvents(ctx, lifecycleEvent(updated, domain.EventOther, s.now(), "insemination cleared", nil))
	return updated, res, nil
}

func clearInsemination(a *domain.Animal) {
	a.InseminationDate = nil
	a.PregnancyStatus = domain.PregnancyNotPregnant
}

// ForecastCalving returns the expected calving of a pregnant female, or nil.
func (s *Service) ForecastCalving(ctx context.Context, tenant, id string) (*domain.CalvingForecast, error) {
	a, err := s.observe(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	return domain.ForecastCalving(a, s.now()), nil
}

// StartDryPeriod marks the start of a milking female's dry period. The next calving clears it.
func (s *Service) StartDryPeriod(ctx context.Context, tenant, id string, date time.Time) (domain.Animal, domain.Result, error) {
	day := domain.Date(date)
	updated, res, err := s.mutateAnimal(ctx, OpStartDryPeriod, tenant, id, func(a domain.Animal) error {
		if a.Stage != domain.StageMilkingFemale {
			return domain.StateError{ID: a.ID, Stage: a.Stage, Operation: OpStartDryPeriod, Reason: "only milking females"}
		}
		if err := validateEventDate("dry_period_start", date, a, s.now()); err != nil {
			return err
		}
		if a.LastCalvingDate != nil && day.Before(*a.LastCalvingDate) {
			return domain.ValidationError{Field: "dry_period_start", Reason: "must not be before the last calving"}
		}
		return nil
	}, func(a *domain.Animal) {
		a.DryPeriodStart = &day
	})
	if err != nil {
		return updated, res, err
	}
	s.appendLifecycleEvents(ctx, lifecycleEvent(updated, domain.EventOther, day, "dry period started", nil))
	return updated, res, nil
}
