package domain

// Trigger is the lifecycle event that may move an animal to a new stage.
type Trigger string

const (
	TriggerMaturity Trigger = "maturity"
	TriggerCalving  Trigger = "calving"
)

// Transition defines a valid stage change: Trigger moves an animal of Sex from From to To.
// An empty Sex matches either sex.
type Transition struct {
	Trigger Trigger
	From    Stage
	Sex     Sex
	To      Stage
}

// Transitions is the complete lifecycle table. Anything not listed is rejected.
var Transitions = []Transition{
	{Trigger: TriggerMaturity, From: StageYoung, Sex: SexFemale, To: StageBreedingFemale},
	{Trigger: TriggerMaturity, From: StageYoung, Sex: SexMale, To: StageBreedingMale},
	{Trigger: TriggerCalving, From: StageBreedingFemale, To: StageMilkingFemale},
	{Trigger: TriggerCalving, From: StageMilkingFemale, To: StageMilkingFemale},
}

// NextStage looks up the destination stage for a trigger.
func NextStage(from Stage, trigger Trigger, sex Sex) (Stage, bool) {
	for _, t := range Transitions {
		if t.Trigger != trigger || t.From != from {
			continue
		}
		if t.Sex != "" && t.Sex != sex {
			continue
		}
		return t.To, true
	}
	return "", false
}

// StageChangeAllowed reports whether any trigger moves from one stage to the other.
func StageChangeAllowed(from, to Stage) bool {
	if from == to {
		return true
	}
	for _, t := range Transitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}
