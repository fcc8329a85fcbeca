package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"herdcore/pkg/domain"
)

// CalvingInput describes a calving event and the offspring it produced.
type CalvingInput struct {
	Date time.Time `json:"date"`
	// ExpectedStage, when set, must match the mother's stage at commit time.
	ExpectedStage domain.Stage   `json:"expected_stage,omitempty"`
	Offspring     OffspringInput `json:"offspring"`
}

// OffspringInput holds the fields of the newborn young record.
type OffspringInput struct {
	TagNumber string     `json:"tag_number"`
	Name      string     `json:"name,omitempty"`
	Sex       domain.Sex `json:"sex"`
	Weight    float64    `json:"weight"`
	Notes     string     `json:"notes,omitempty"`
}

// CalvingOutcome is the result of a committed calving.
type CalvingOutcome struct {
	Mother       domain.Animal `json:"mother"`
	Offspring    domain.Animal `json:"offspring"`
	Transitioned bool          `json:"transitioned"`
}

// MaturityOutcome reports one animal handled by MatureDue.
type MaturityOutcome struct {
	AnimalID  string       `json:"animal_id"`
	TagNumber string       `json:"tag_number"`
	From      domain.Stage `json:"from"`
	To        domain.Stage `json:"to,omitempty"`
	Error     string       `json:"error,omitempty"`
	Err       error        `json:"-"`
}

func stateErr(a domain.Animal, op, reason string) error {
	return domain.StateError{ID: a.ID, Stage: a.Stage, Operation: op, Reason: reason}
}

func checkVersion(observed, current domain.Animal) error {
	if observed.Version != current.Version {
		return domain.ConflictError{ID: current.ID, Reason: fmt.Sprintf("record changed concurrently (version %d, now %d)", observed.Version, current.Version)}
	}
	return nil
}

// Mature moves a young animal that reached maturity to its breeding stage.
func (s *Service) Mature(ctx context.Context, tenant, id string) (domain.Animal, domain.Result, error) {
	observed, err := s.observe(ctx, tenant, id)
	if err != nil {
		return domain.Animal{}, domain.Result{}, err
	}
	if err := s.checkMaturity(observed); err != nil {
		return domain.Animal{}, domain.Result{}, err
	}

	unlock := s.locks.Lock(lockKey(tenant, id))
	defer unlock()

	var updated domain.Animal
	res, err := s.run(ctx, OpMature, tenant, id, func(tx domain.Transaction) error {
		current, err := findAnimal(tx, tenant, id)
		if err != nil {
			return err
		}
		if err := s.checkMaturity(current); err != nil {
			return err
		}
		if err := checkVersion(observed, current); err != nil {
			return err
		}
		next, _ := domain.NextStage(current.Stage, domain.TriggerMaturity, current.Sex)
		updated, err = tx.UpdateAnimal(id, func(a *domain.Animal) error {
			a.Stage = next
			if next.Female() {
				a.PregnancyStatus = domain.PregnancyUnknown
			}
			return nil
		})
		return err
	})
	if err != nil {
		return domain.Animal{}, res, err
	}
	s.appendLifecycleEvents(ctx, lifecycleEvent(updated, domain.EventStageTransition, s.now(),
		fmt.Sprintf("matured from %s to %s", observed.Stage, updated.Stage), nil))
	return updated, res, nil
}

func (s *Service) checkMaturity(a domain.Animal) error {
	if _, ok := domain.NextStage(a.Stage, domain.TriggerMaturity, a.Sex); !ok {
		return stateErr(a, OpMature, "only young animals mature")
	}
	if !domain.IsMature(a.BirthDate, s.now()) {
		return stateErr(a, OpMature, fmt.Sprintf("age %d months is below %d", domain.AgeInMonths(a.BirthDate, s.now()), domain.MaturityAgeMonths))
	}
	return nil
}

// MatureDue transitions every young animal of the tenant that reached
// maturity. Transitions run in parallel, bounded by the configured
// concurrency; a failure on one animal does not stop the others.
func (s *Service) MatureDue(ctx context.Context, tenant string) ([]MaturityOutcome, error) {
	due, err := s.DueForMaturity(ctx, tenant)
	if err != nil {
		return nil, err
	}
	outcomes := make([]MaturityOutcome, len(due))
	var g errgroup.Group
	g.SetLimit(s.maturityConcurrency)
	for i, entry := range due {
		g.Go(func() error {
			out := MaturityOutcome{AnimalID: entry.AnimalID, TagNumber: entry.TagNumber, From: domain.StageYoung}
			updated, _, err := s.Mature(ctx, tenant, entry.AnimalID)
			if err != nil {
				out.Err = err
				out.Error = err.Error()
			} else {
				out.To = updated.Stage
			}
			outcomes[i] = out
			return nil
		})
	}
	// Per-animal failures are carried in the outcomes; no goroutine returns an error.
	g.Wait()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].AnimalID < outcomes[j].AnimalID })
	return outcomes, nil
}

func validateOffspring(o OffspringInput) error {
	if o.TagNumber == "" {
		return domain.ValidationError{Field: "offspring.tag_number", Reason: "is required"}
	}
	if !o.Sex.Valid() {
		return domain.ValidationError{Field: "offspring.sex", Reason: "must be female or male"}
	}
	if o.Weight <= 0 {
		return domain.ValidationError{Field: "offspring.weight", Reason: "must be positive"}
	}
	return nil
}

func (s *Service) checkCalving(a domain.Animal, in CalvingInput) error {
	if _, ok := domain.NextStage(a.Stage, domain.TriggerCalving, a.Sex); !ok {
		return stateErr(a, OpRecordCalving, "only breeding or milking females calve")
	}
	if in.ExpectedStage != "" && in.ExpectedStage != a.Stage {
		return domain.ConflictError{ID: a.ID, Reason: fmt.Sprintf("expected stage %s, found %s", in.ExpectedStage, a.Stage)}
	}
	// A second calving inside one gestation of the last is a replay or a lost race.
	if a.LastCalvingDate != nil && domain.DaysBetween(*a.LastCalvingDate, in.Date) < domain.GestationDays {
		return domain.ConflictError{ID: a.ID, Reason: fmt.Sprintf("calving on %s already recorded", a.LastCalvingDate.Format(time.DateOnly))}
	}
	return validateEventDate("date", in.Date, a, s.now())
}

// RecordCalving registers a calving: the offspring is created as a young
// record referencing its mother, and the mother becomes (or stays) a milking
// female with her lactation count advanced and insemination cleared. Both
// writes commit in one transaction.
func (s *Service) RecordCalving(ctx context.Context, tenant, id string, in CalvingInput) (CalvingOutcome, domain.Result, error) {
	if err := validateOffspring(in.Offspring); err != nil {
		return CalvingOutcome{}, domain.Result{}, err
	}
	if in.ExpectedStage != "" && !in.ExpectedStage.Valid() {
		return CalvingOutcome{}, domain.Result{}, domain.ValidationError{Field: "expected_stage", Reason: fmt.Sprintf("unknown stage %q", in.ExpectedStage)}
	}
	observed, err := s.observe(ctx, tenant, id)
	if err != nil {
		return CalvingOutcome{}, domain.Result{}, err
	}
	if err := s.checkCalving(observed, in); err != nil {
		return CalvingOutcome{}, domain.Result{}, err
	}

	unlock := s.locks.Lock(lockKey(tenant, id))
	defer unlock()

	day := domain.Date(in.Date)
	motherID := id
	var out CalvingOutcome
	res, err := s.run(ctx, OpRecordCalving, tenant, id, func(tx domain.Transaction) error {
		current, err := findAnimal(tx, tenant, id)
		if err != nil {
			return err
		}
		if err := s.checkCalving(current, in); err != nil {
			return err
		}
		if err := checkVersion(observed, current); err != nil {
			return err
		}
		next, _ := domain.NextStage(current.Stage, domain.TriggerCalving, current.Sex)

		out.Offspring, err = tx.CreateAnimal(domain.Animal{
			Base:      domain.Base{TenantID: tenant},
			TagNumber: in.Offspring.TagNumber,
			Name:      in.Offspring.Name,
			Stage:     domain.StageYoung,
			Sex:       in.Offspring.Sex,
			BirthDate: day,
			Weight:    in.Offspring.Weight,
			Notes:     in.Offspring.Notes,
			MotherID:  &motherID,
		})
		if err != nil {
			return err
		}
		out.Mother, err = tx.UpdateAnimal(id, func(a *domain.Animal) error {
			if a.Stage == domain.StageMilkingFemale {
				a.LactationCount++
			} else {
				a.LactationCount = 1
			}
			a.Stage = next
			a.LastCalvingDate = &day
			a.DryPeriodStart = nil
			clearInsemination(a)
			return nil
		})
		out.Transitioned = current.Stage != next
		return err
	})
	if err != nil {
		return CalvingOutcome{}, res, err
	}

	offspringID := out.Offspring.ID
	events := []domain.TimelineEvent{
		lifecycleEvent(out.Mother, domain.EventCalving, day,
			fmt.Sprintf("calved %s (lactation %d)", out.Offspring.TagNumber, out.Mother.LactationCount), &offspringID),
	}
	if out.Transitioned {
		events = append(events, lifecycleEvent(out.Mother, domain.EventStageTransition, day,
			fmt.Sprintf("moved from %s to %s after first calving", observed.Stage, out.Mother.Stage), nil))
	}
	events = append(events, lifecycleEvent(out.Offspring, domain.EventBirth, day,
		fmt.Sprintf("born to %s", out.Mother.TagNumber), &motherID))
	s.appendLifecycleEvents(ctx, events...)
	return out, res, nil
}
