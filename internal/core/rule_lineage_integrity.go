package core

import (
	"context"
	"fmt"

	"herdcore/pkg/domain"
)

// LineageIntegrityRule enforces mother/offspring references. A mother that
// has since been retired is allowed; a present mother must be a female of
// the same tenant.
func LineageIntegrityRule() domain.Rule {
	return lineageIntegrityRule{}
}

type lineageIntegrityRule struct{}

func (lineageIntegrityRule) Name() string { return "lineage_integrity" }

func (r lineageIntegrityRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		_, child := animalChange(change)
		if child == nil || child.MotherID == nil {
			continue
		}
		motherID := *child.MotherID
		if motherID == child.ID {
			res.Violations = append(res.Violations, blockAnimal(r.Name(), child.ID,
				fmt.Sprintf("animal %s references itself as mother", child.ID)))
			continue
		}
		mother, ok := view.FindAnimal(motherID)
		if !ok {
			continue
		}
		if mother.TenantID != child.TenantID {
			res.Violations = append(res.Violations, blockAnimal(r.Name(), child.ID,
				fmt.Sprintf("animal %s references mother %s of another tenant", child.ID, motherID)))
			continue
		}
		if mother.Sex != domain.SexFemale {
			res.Violations = append(res.Violations, blockAnimal(r.Name(), child.ID,
				fmt.Sprintf("animal %s references mother %s that is not female", child.ID, motherID)))
		}
	}
	return res, nil
}
