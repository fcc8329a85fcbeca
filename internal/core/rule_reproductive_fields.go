package core

import (
	"context"
	"fmt"

	"herdcore/pkg/domain"
)

// ReproductiveFieldsRule keeps the stage-specific reproductive and lactation
// fields consistent with the record's stage.
func ReproductiveFieldsRule() domain.Rule {
	return reproductiveFieldsRule{}
}

type reproductiveFieldsRule struct{}

func (reproductiveFieldsRule) Name() string { return "reproductive_fields" }

func (r reproductiveFieldsRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		_, after := animalChange(change)
		if after == nil {
			continue
		}
		if msg := reproductiveFieldProblem(*after); msg != "" {
			res.Violations = append(res.Violations, blockAnimal(r.Name(), after.ID, msg))
		}
	}
	return res, nil
}

func reproductiveFieldProblem(a domain.Animal) string {
	if !a.Stage.Female() {
		if a.InseminationDate != nil || a.PregnancyStatus != "" {
			return fmt.Sprintf("animal %s in stage %s carries reproductive fields", a.ID, a.Stage)
		}
	} else {
		if !a.PregnancyStatus.Valid() {
			return fmt.Sprintf("animal %s has invalid pregnancy status %q", a.ID, a.PregnancyStatus)
		}
		if a.PregnancyStatus == domain.PregnancyPregnant && a.InseminationDate == nil {
			return fmt.Sprintf("animal %s is pregnant without an insemination date", a.ID)
		}
	}
	if a.Stage != domain.StageMilkingFemale {
		if a.LactationCount != 0 || a.LastCalvingDate != nil || a.DryPeriodStart != nil {
			return fmt.Sprintf("animal %s in stage %s carries lactation fields", a.ID, a.Stage)
		}
		return ""
	}
	if a.LactationCount < 1 {
		return fmt.Sprintf("milking female %s has lactation count %d", a.ID, a.LactationCount)
	}
	return ""
}
