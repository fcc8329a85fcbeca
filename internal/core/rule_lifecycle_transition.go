package core

import (
	"context"
	"fmt"

	"herdcore/pkg/domain"
)

// LifecycleTransitionRule blocks stage changes that are not in the transition
// table and stage/sex combinations that cannot exist.
func LifecycleTransitionRule() domain.Rule {
	return lifecycleTransitionRule{}
}

type lifecycleTransitionRule struct{}

func (lifecycleTransitionRule) Name() string { return "lifecycle_transition" }

func (r lifecycleTransitionRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		before, after := animalChange(change)
		if after == nil {
			continue
		}
		if !after.Stage.Valid() {
			res.Violations = append(res.Violations, blockAnimal(r.Name(), after.ID,
				fmt.Sprintf("animal %s is set to invalid stage %s", after.ID, after.Stage)))
			continue
		}
		if msg := stageSexMismatch(*after); msg != "" {
			res.Violations = append(res.Violations, blockAnimal(r.Name(), after.ID, msg))
			continue
		}
		if before == nil || domain.StageChangeAllowed(before.Stage, after.Stage) {
			continue
		}
		res.Violations = append(res.Violations, blockAnimal(r.Name(), after.ID,
			fmt.Sprintf("cannot move animal %s from %s to %s", after.ID, before.Stage, after.Stage)))
	}
	return res, nil
}

func stageSexMismatch(a domain.Animal) string {
	switch {
	case a.Stage.Female() && a.Sex != domain.SexFemale:
		return fmt.Sprintf("animal %s in stage %s must be female", a.ID, a.Stage)
	case a.Stage == domain.StageBreedingMale && a.Sex != domain.SexMale:
		return fmt.Sprintf("animal %s in stage %s must be male", a.ID, a.Stage)
	}
	return ""
}
