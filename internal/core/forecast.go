package core

import (
	"context"
	"sort"
	"time"

	"herdcore/pkg/domain"
)

// CalvingForecastEntry is one row of the upcoming-calvings calendar.
type CalvingForecastEntry struct {
	AnimalID      string       `json:"animal_id"`
	TagNumber     string       `json:"tag_number"`
	Stage         domain.Stage `json:"stage"`
	ExpectedDate  time.Time    `json:"expected_date"`
	DaysRemaining int          `json:"days_remaining"`
}

// PregnancyCheckEntry is a female whose pregnancy check window is open.
type PregnancyCheckEntry struct {
	AnimalID              string       `json:"animal_id"`
	TagNumber             string       `json:"tag_number"`
	Stage                 domain.Stage `json:"stage"`
	InseminationDate      time.Time    `json:"insemination_date"`
	DaysSinceInsemination int          `json:"days_since_insemination"`
}

// MaturityEntry is a young animal old enough to move to breeding stock.
type MaturityEntry struct {
	AnimalID  string     `json:"animal_id"`
	TagNumber string     `json:"tag_number"`
	Sex       domain.Sex `json:"sex"`
	AgeMonths int        `json:"age_months"`
}

func (s *Service) tenantAnimals(ctx context.Context, tenant string) ([]domain.Animal, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	var out []domain.Animal
	err := s.view(ctx, func(v domain.TransactionView) error {
		for _, a := range v.ListAnimals() {
			if a.TenantID == tenant {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

// UpcomingCalvings lists pregnant females expected to calve within horizonDays,
// soonest first.
func (s *Service) UpcomingCalvings(ctx context.Context, tenant string, horizonDays int) ([]CalvingForecastEntry, error) {
	if horizonDays < 0 {
		return nil, domain.ValidationError{Field: "horizon", Reason: "must not be negative"}
	}
	animals, err := s.tenantAnimals(ctx, tenant)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := []CalvingForecastEntry{}
	for _, a := range animals {
		f := domain.ForecastCalving(a, now)
		if f == nil || f.DaysRemaining < 0 || f.DaysRemaining > horizonDays {
			continue
		}
		out = append(out, CalvingForecastEntry{
			AnimalID:      a.ID,
			TagNumber:     a.TagNumber,
			Stage:         a.Stage,
			ExpectedDate:  f.ExpectedDate,
			DaysRemaining: f.DaysRemaining,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysRemaining != out[j].DaysRemaining {
			return out[i].DaysRemaining < out[j].DaysRemaining
		}
		return out[i].AnimalID < out[j].AnimalID
	})
	return out, nil
}

// PendingPregnancyChecks lists inseminated females of unknown status that are
// 21 to 28 days past insemination, longest waiting first.
func (s *Service) PendingPregnancyChecks(ctx context.Context, tenant string) ([]PregnancyCheckEntry, error) {
	animals, err := s.tenantAnimals(ctx, tenant)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := []PregnancyCheckEntry{}
	for _, a := range animals {
		if !domain.PregnancyCheckDue(a, now) {
			continue
		}
		days, _ := domain.DaysSinceInsemination(a, now)
		out = append(out, PregnancyCheckEntry{
			AnimalID:              a.ID,
			TagNumber:             a.TagNumber,
			Stage:                 a.Stage,
			InseminationDate:      *a.InseminationDate,
			DaysSinceInsemination: days,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysSinceInsemination != out[j].DaysSinceInsemination {
			return out[i].DaysSinceInsemination > out[j].DaysSinceInsemination
		}
		return out[i].AnimalID < out[j].AnimalID
	})
	return out, nil
}

// DueForMaturity lists young animals that reached the maturity age, oldest first.
func (s *Service) DueForMaturity(ctx context.Context, tenant string) ([]MaturityEntry, error) {
	animals, err := s.tenantAnimals(ctx, tenant)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := []MaturityEntry{}
	for _, a := range animals {
		if a.Stage != domain.StageYoung || !domain.IsMature(a.BirthDate, now) {
			continue
		}
		out = append(out, MaturityEntry{
			AnimalID:  a.ID,
			TagNumber: a.TagNumber,
			Sex:       a.Sex,
			AgeMonths: domain.AgeInMonths(a.BirthDate, now),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgeMonths != out[j].AgeMonths {
			return out[i].AgeMonths > out[j].AgeMonths
		}
		return out[i].AnimalID < out[j].AnimalID
	})
	return out, nil
}
