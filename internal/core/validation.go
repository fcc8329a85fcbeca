package core

import (
	"fmt"
	"time"

	"herdcore/pkg/domain"
)

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.Date(*t)
	return &d
}

func validateNewAnimal(a domain.Animal, now time.Time) error {
	if a.TagNumber == "" {
		return domain.ValidationError{Field: "tag_number", Reason: "is required"}
	}
	if !a.Stage.Valid() {
		return domain.ValidationError{Field: "stage", Reason: fmt.Sprintf("unknown stage %q", a.Stage)}
	}
	if !a.Sex.Valid() {
		return domain.ValidationError{Field: "sex", Reason: "must be female or male"}
	}
	if a.Stage == domain.StageYoung && a.BirthDate.IsZero() {
		return domain.ValidationError{Field: "birth_date", Reason: "is required for young stock"}
	}
	if !a.BirthDate.IsZero() && a.BirthDate.After(domain.Date(now)) {
		return domain.ValidationError{Field: "birth_date", Reason: "must not be in the future"}
	}
	if a.Weight < 0 {
		return domain.ValidationError{Field: "weight", Reason: "must not be negative"}
	}
	switch a.Stage {
	case domain.StageBreedingFemale, domain.StageMilkingFemale:
		if a.Sex != domain.SexFemale {
			return domain.ValidationError{Field: "sex", Reason: fmt.Sprintf("%s must be female", a.Stage)}
		}
	case domain.StageBreedingMale:
		if a.Sex != domain.SexMale {
			return domain.ValidationError{Field: "sex", Reason: "breeding_male must be male"}
		}
	}
	if err := validateReproductiveFields(a); err != nil {
		return err
	}
	return validateLactationFields(a)
}

func validateReproductiveFields(a domain.Animal) error {
	if !a.Stage.Female() {
		if a.InseminationDate != nil || a.PregnancyStatus != "" {
			return domain.ValidationError{Field: "insemination_date", Reason: fmt.Sprintf("not applicable to stage %s", a.Stage)}
		}
		return nil
	}
	if !a.PregnancyStatus.Valid() {
		return domain.ValidationError{Field: "pregnancy_status", Reason: fmt.Sprintf("unknown status %q", a.PregnancyStatus)}
	}
	if a.PregnancyStatus == domain.PregnancyPregnant && a.InseminationDate == nil {
		return domain.ValidationError{Field: "insemination_date", Reason: "is required when pregnant"}
	}
	if a.InseminationDate != nil && !a.BirthDate.IsZero() && a.InseminationDate.Before(a.BirthDate) {
		return domain.ValidationError{Field: "insemination_date", Reason: "must not be before the birth date"}
	}
	return nil
}

func validateLactationFields(a domain.Animal) error {
	if a.Stage != domain.StageMilkingFemale {
		if a.LactationCount != 0 || a.LastCalvingDate != nil || a.DryPeriodStart != nil {
			return domain.ValidationError{Field: "lactation_count", Reason: fmt.Sprintf("not applicable to stage %s", a.Stage)}
		}
		return nil
	}
	if a.LactationCount < 1 {
		return domain.ValidationError{Field: "lactation_count", Reason: "must be at least 1 for milking females"}
	}
	return nil
}

func validatePatch(p domain.AnimalPatch, now time.Time) error {
	if p.TagNumber != nil && *p.TagNumber == "" {
		return domain.ValidationError{Field: "tag_number", Reason: "must not be empty"}
	}
	if p.Weight != nil && *p.Weight < 0 {
		return domain.ValidationError{Field: "weight", Reason: "must not be negative"}
	}
	if p.BirthDate != nil && p.BirthDate.IsZero() {
		return domain.ValidationError{Field: "birth_date", Reason: "must not be cleared"}
	}
	if p.BirthDate != nil && domain.Date(*p.BirthDate).After(domain.Date(now)) {
		return domain.ValidationError{Field: "birth_date", Reason: "must not be in the future"}
	}
	return nil
}

// validateEventDate rejects dates before birth or after today.
func validateEventDate(field string, date time.Time, a domain.Animal, now time.Time) error {
	if date.IsZero() {
		return domain.ValidationError{Field: field, Reason: "is required"}
	}
	d := domain.Date(date)
	if !a.BirthDate.IsZero() && d.Before(a.BirthDate) {
		return domain.ValidationError{Field: field, Reason: "must not be before the birth date"}
	}
	if d.After(domain.Date(now)) {
		return domain.ValidationError{Field: field, Reason: "must not be in the future"}
	}
	return nil
}
