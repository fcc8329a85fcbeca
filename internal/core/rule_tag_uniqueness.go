package core

import (
	"context"
	"fmt"

	"herdcore/pkg/domain"
)

// TagUniquenessRule blocks two active animals of a tenant sharing a tag number.
// Retired animals no longer hold their tag.
func TagUniquenessRule() domain.Rule {
	return tagUniquenessRule{}
}

type tagUniquenessRule struct{}

func (tagUniquenessRule) Name() string { return "tag_uniqueness" }

func (r tagUniquenessRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	var animals []domain.Animal
	for _, change := range changes {
		_, after := animalChange(change)
		if after == nil || after.TagNumber == "" {
			continue
		}
		if animals == nil {
			animals = view.ListAnimals()
		}
		for _, other := range animals {
			if other.ID == after.ID || other.TenantID != after.TenantID || other.TagNumber != after.TagNumber {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("tag %s is also used by animal %s", after.TagNumber, other.ID),
				Entity:   domain.EntityAnimal,
				EntityID: after.ID,
			})
			break
		}
	}
	return res, nil
}
