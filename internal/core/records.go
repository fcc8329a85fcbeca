package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"herdcore/pkg/domain"
)

func lockKey(tenant, id string) string { return tenant + "/" + id }

// CreateAnimal validates and stores a new animal in any stage. The identity is
// always generated by the store.
func (s *Service) CreateAnimal(ctx context.Context, tenant string, animal domain.Animal) (domain.Animal, domain.Result, error) {
	if err := requireTenant(tenant); err != nil {
		return domain.Animal{}, domain.Result{}, err
	}
	animal.ID = ""
	animal.TenantID = tenant
	animal.Version = 0
	normaliseAnimalDates(&animal)
	if animal.Stage.Female() && animal.PregnancyStatus == "" {
		animal.PregnancyStatus = domain.PregnancyUnknown
	}
	if err := validateNewAnimal(animal, s.now()); err != nil {
		return domain.Animal{}, domain.Result{}, err
	}

	var created domain.Animal
	res, err := s.run(ctx, OpCreateAnimal, tenant, animal.TagNumber, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateAnimal(animal)
		return err
	})
	if err != nil {
		return domain.Animal{}, res, err
	}
	if created.Stage == domain.StageYoung {
		s.appendLifecycleEvents(ctx, lifecycleEvent(created, domain.EventBirth, created.BirthDate, "born", created.MotherID))
	} else {
		s.appendLifecycleEvents(ctx, lifecycleEvent(created, domain.EventOther, s.now(), fmt.Sprintf("registered as %s", created.Stage), nil))
	}
	return created, res, nil
}

// RegisterYoung creates a young animal, the entry point for purchased or newborn stock.
func (s *Service) RegisterYoung(ctx context.Context, tenant string, animal domain.Animal) (domain.Animal, domain.Result, error) {
	animal.Stage = domain.StageYoung
	return s.CreateAnimal(ctx, tenant, animal)
}

// GetAnimal returns the tenant's animal or NotFound.
func (s *Service) GetAnimal(ctx context.Context, tenant, id string) (domain.Animal, error) {
	return s.observe(ctx, tenant, id)
}

// UpdateAnimal applies a patch of directly editable fields. Stage and
// reproductive fields only change through the reproduction and transition operations.
func (s *Service) UpdateAnimal(ctx context.Context, tenant, id string, patch domain.AnimalPatch) (domain.Animal, domain.Result, error) {
	if err := requireTenant(tenant); err != nil {
		return domain.Animal{}, domain.Result{}, err
	}
	if err := validatePatch(patch, s.now()); err != nil {
		return domain.Animal{}, domain.Result{}, err
	}
	unlock := s.locks.Lock(lockKey(tenant, id))
	defer unlock()

	var updated domain.Animal
	res, err := s.run(ctx, OpUpdateAnimal, tenant, id, func(tx domain.Transaction) error {
		current, err := findAnimal(tx, tenant, id)
		if err != nil {
			return err
		}
		if patch.BirthDate != nil && current.InseminationDate != nil && current.InseminationDate.Before(domain.Date(*patch.BirthDate)) {
			return domain.ValidationError{Field: "birth_date", Reason: "must not be after the insemination date"}
		}
		updated, err = tx.UpdateAnimal(id, func(a *domain.Animal) error {
			patch.Apply(a)
			return nil
		})
		return err
	})
	return updated, res, err
}

// ListByStage returns the tenant's animals in stage, sorted by tag number then ID.
// An empty stage lists every stage.
func (s *Service) ListByStage(ctx context.Context, tenant string, stage domain.Stage, filter domain.AnimalFilter) ([]domain.Animal, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if stage != "" && !stage.Valid() {
		return nil, domain.ValidationError{Field: "stage", Reason: fmt.Sprintf("unknown stage %q", stage)}
	}
	var out []domain.Animal
	err := s.view(ctx, func(v domain.TransactionView) error {
		for _, a := range v.ListAnimals() {
			if a.TenantID != tenant || (stage != "" && a.Stage != stage) || !matchesFilter(a, filter) {
				continue
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TagNumber != out[j].TagNumber {
			return out[i].TagNumber < out[j].TagNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matchesFilter(a domain.Animal, f domain.AnimalFilter) bool {
	if f.Sex != "" && a.Sex != f.Sex {
		return false
	}
	if f.PregnancyStatus != "" && a.PregnancyStatus != f.PregnancyStatus {
		return false
	}
	return f.TagPrefix == "" || strings.HasPrefix(a.TagNumber, f.TagPrefix)
}

func normaliseAnimalDates(a *domain.Animal) {
	if !a.BirthDate.IsZero() {
		a.BirthDate = domain.Date(a.BirthDate)
	}
	a.InseminationDate = datePtr(a.InseminationDate)
	a.LastCalvingDate = datePtr(a.LastCalvingDate)
	a.DryPeriodStart = datePtr(a.DryPeriodStart)
}
