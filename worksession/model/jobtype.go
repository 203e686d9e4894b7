package model

import "strings"

type JobType string

const (
	JobTypeElevationDrop   JobType = "elevation_drop"
	JobTypeInSuiteUnit     JobType = "in_suite_unit"
	JobTypeParkadeStall    JobType = "parkade_stall"
	JobTypePercentageBased JobType = "percentage_based"
)

// labels that are counted in drops even when the job does not require elevation
var dropLabels = map[string]bool{
	"window_cleaning":          true,
	"dryer_vent_cleaning":      true,
	"building_wash":            true,
	"general_pressure_washing": true,
}

func (jt JobType) Valid() bool {
	switch jt {
	case JobTypeElevationDrop, JobTypeInSuiteUnit, JobTypeParkadeStall, JobTypePercentageBased:
		return true
	}
	return false
}

// UsesDrops reports whether sessions of this job type report directional drops.
func (jt JobType) UsesDrops() bool {
	return jt == JobTypeElevationDrop
}

// UsesUnits reports whether sessions of this job type report a single unit count (suites or stalls).
func (jt JobType) UsesUnits() bool {
	return jt == JobTypeInSuiteUnit || jt == JobTypeParkadeStall
}

// DeriveJobType maps a raw job type label and the elevation flag to the job type
// that decides how progress is counted.
func DeriveJobType(label string, requiresElevation bool) JobType {
	l := strings.ToLower(strings.TrimSpace(label))

	if jt := JobType(l); jt.Valid() {
		return jt
	}
	if strings.HasPrefix(l, "in_suite") {
		return JobTypeInSuiteUnit
	}
	if strings.HasPrefix(l, "parkade") {
		return JobTypeParkadeStall
	}
	if requiresElevation || dropLabels[l] {
		return JobTypeElevationDrop
	}
	return JobTypePercentageBased
}
