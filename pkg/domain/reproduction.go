package domain

import "time"

// Reproductive and maturity thresholds.
const (
	// GestationDays is the pregnancy duration used to forecast calving.
	GestationDays = 283
	// PregnancyCheckFromDay is the first day after insemination a pregnancy check is due.
	PregnancyCheckFromDay = 21
	// PregnancyCheckToDay is the last day of the pregnancy-check window.
	PregnancyCheckToDay = 28
	// MaturityAgeMonths is the age at which a young animal becomes breeding stock.
	MaturityAgeMonths = 12
)

// Date truncates t to midnight UTC of its own calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from "from" to "to".
// The result is negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)) / (24 * time.Hour))
}

// AddDays returns the calendar date n days after t.
func AddDays(t time.Time, n int) time.Time {
	return Date(t).AddDate(0, 0, n)
}

// AgeInMonths returns the number of completed months between birth and now.
func AgeInMonths(birth, now time.Time) int {
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()
	months := (ny-by)*12 + int(nm-bm)
	if nd < bd {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// IsMature reports whether an animal born at birth has reached the maturity threshold.
func IsMature(birth, now time.Time) bool {
	return AgeInMonths(birth, now) >= MaturityAgeMonths
}

// CalvingForecast is the derived expected calving date of a pregnant female.
type CalvingForecast struct {
	ExpectedDate  time.Time `json:"expected_date"`
	DaysRemaining int       `json:"days_remaining"`
}

// ExpectedCalvingDate returns inseminationDate + GestationDays.
func ExpectedCalvingDate(inseminationDate time.Time) time.Time {
	return AddDays(inseminationDate, GestationDays)
}

// ForecastCalving derives the calving forecast for a record. It returns nil when
// the record has no active insemination or is not confirmed pregnant.
func ForecastCalving(a Animal, now time.Time) *CalvingForecast {
	if !a.Stage.Female() || a.InseminationDate == nil || a.PregnancyStatus != PregnancyPregnant {
		return nil
	}
	expected := ExpectedCalvingDate(*a.InseminationDate)
	return &CalvingForecast{
		ExpectedDate:  expected,
		DaysRemaining: DaysBetween(now, expected),
	}
}

// DaysSinceInsemination returns the elapsed days and whether an insemination is recorded.
func DaysSinceInsemination(a Animal, now time.Time) (int, bool) {
	if !a.Stage.Female() || a.InseminationDate == nil {
		return 0, false
	}
	return DaysBetween(*a.InseminationDate, now), true
}

// PregnancyCheckDue reports whether the record sits inside its pregnancy-check window.
func PregnancyCheckDue(a Animal, now time.Time) bool {
	if a.PregnancyStatus != PregnancyUnknown {
		return false
	}
	days, ok := DaysSinceInsemination(a, now)
	return ok && days >= PregnancyCheckFromDay && days <= PregnancyCheckToDay
}
