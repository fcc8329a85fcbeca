package core

import (
	"herdcore/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in herd policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(LifecycleTransitionRule())
	engine.Register(ReproductiveFieldsRule())
	engine.Register(LineageIntegrityRule())
	engine.Register(TagUniquenessRule())
	return engine
}

// animalChange extracts the before and after animal records of a change.
func animalChange(change domain.Change) (before, after *domain.Animal) {
	if change.Entity != domain.EntityAnimal {
		return nil, nil
	}
	if a, ok := change.Before.(domain.Animal); ok {
		before = &a
	}
	if a, ok := change.After.(domain.Animal); ok {
		after = &a
	}
	return before, after
}

func blockAnimal(rule, id, message string) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityAnimal,
		EntityID: id,
	}
}
