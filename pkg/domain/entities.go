// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by herdcore.
package domain

import (
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityAnimal identifies an individual animal record.
	EntityAnimal EntityType = "animal"
	// EntityTimelineEvent identifies a timeline event record.
	EntityTimelineEvent EntityType = "timeline_event"
)

// Stage represents the life-cycle category of an animal.
type Stage string

// Canonical animal stages. A record carries exactly one stage at a time.
const (
	// StageYoung indicates an immature animal of either sex.
	StageYoung Stage = "young"
	// StageBreedingFemale indicates a mature female that has not yet calved.
	StageBreedingFemale Stage = "breeding_female"
	// StageBreedingMale indicates a mature male. It is terminal.
	StageBreedingMale Stage = "breeding_male"
	// StageMilkingFemale indicates a female that has calved at least once.
	StageMilkingFemale Stage = "milking_female"
)

// Stages lists every known stage in lifecycle order.
var Stages = []Stage{StageYoung, StageBreedingFemale, StageBreedingMale, StageMilkingFemale}

// Valid reports whether the stage is one of the canonical values.
func (s Stage) Valid() bool {
	switch s {
	case StageYoung, StageBreedingFemale, StageBreedingMale, StageMilkingFemale:
		return true
	}
	return false
}

// Female reports whether the stage carries reproductive fields.
func (s Stage) Female() bool {
	return s == StageBreedingFemale || s == StageMilkingFemale
}

// Sex of an animal.
type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
)

// Valid reports whether the sex is known.
func (s Sex) Valid() bool { return s == SexFemale || s == SexMale }

// PregnancyStatus is the confirmed reproductive status of a female.
type PregnancyStatus string

const (
	PregnancyUnknown     PregnancyStatus = "unknown"
	PregnancyPregnant    PregnancyStatus = "pregnant"
	PregnancyNotPregnant PregnancyStatus = "not_pregnant"
)

// Valid reports whether the status is known.
func (p PregnancyStatus) Valid() bool {
	switch p {
	case PregnancyUnknown, PregnancyPregnant, PregnancyNotPregnant:
		return true
	}
	return false
}

// RetirementReason describes why an animal left the herd.
type RetirementReason string

const (
	RetiredSold   RetirementReason = "sold"
	RetiredDied   RetirementReason = "died"
	RetiredCulled RetirementReason = "culled"
	RetiredOther  RetirementReason = "other"
)

// Valid reports whether the reason is one of the canonical values.
func (r RetirementReason) Valid() bool {
	switch r {
	case RetiredSold, RetiredDied, RetiredCulled, RetiredOther:
		return true
	}
	return false
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Animal is the single aggregate for an individual animal. Stage selects which
// of the optional reproductive and lactation fields are meaningful.
type Animal struct {
	Base
	TagNumber string    `json:"tag_number"`
	Name      string    `json:"name,omitempty"`
	Stage     Stage     `json:"stage"`
	Sex       Sex       `json:"sex"`
	BirthDate time.Time `json:"birth_date"`
	Weight    float64   `json:"weight"`
	Notes     string    `json:"notes,omitempty"`
	MotherID  *string   `json:"mother_id,omitempty"`
	Version   int64     `json:"version"`

	InseminationDate *time.Time      `json:"insemination_date,omitempty"`
	PregnancyStatus  PregnancyStatus `json:"pregnancy_status,omitempty"`

	LactationCount  int        `json:"lactation_count,omitempty"`
	LastCalvingDate *time.Time `json:"last_calving_date,omitempty"`
	DryPeriodStart  *time.Time `json:"dry_period_start,omitempty"`
}

// AnimalPatch lists the fields callers may change directly. Nil fields are left untouched.
type AnimalPatch struct {
	TagNumber *string    `json:"tag_number,omitempty"`
	Name      *string    `json:"name,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Weight    *float64   `json:"weight,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// Apply copies the non-nil patch fields onto the animal.
func (p AnimalPatch) Apply(a *Animal) {
	if p.TagNumber != nil {
		a.TagNumber = *p.TagNumber
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.BirthDate != nil {
		a.BirthDate = Date(*p.BirthDate)
	}
	if p.Weight != nil {
		a.Weight = *p.Weight
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
}

// AnimalFilter narrows a stage listing.
type AnimalFilter struct {
	Sex             Sex
	PregnancyStatus PregnancyStatus
	TagPrefix       string
}

// EventType classifies timeline events.
type EventType string

const (
	EventBirth           EventType = "birth"
	EventInsemination    EventType = "insemination"
	EventCalving         EventType = "calving"
	EventHealth          EventType = "health_event"
	EventStageTransition EventType = "stage_transition"
	EventOther           EventType = "other"
)

// Valid reports whether the event type is known.
func (e EventType) Valid() bool {
	switch e {
	case EventBirth, EventInsemination, EventCalving, EventHealth, EventStageTransition, EventOther:
		return true
	}
	return false
}

// TimelineEvent is an immutable entry in an animal's history. AnimalID is the
// stable identity, so history survives stage transitions and retirement.
type TimelineEvent struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	AnimalID     string    `json:"animal_id"`
	StageAtEvent Stage     `json:"stage_at_event,omitempty"`
	Type         EventType `json:"type"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description,omitempty"`
	RelatedID    *string   `json:"related_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AnimalRetired is emitted when an active record leaves the herd outside a lifecycle transition.
type AnimalRetired struct {
	AnimalID  string           `json:"animal_id"`
	TenantID  string           `json:"tenant_id"`
	TagNumber string           `json:"tag_number"`
	Stage     Stage            `json:"stage"`
	Reason    RetirementReason `json:"reason"`
	At        time.Time        `json:"at"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}
