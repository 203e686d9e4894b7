package core

import (
	"strings"

	"ropeaccess.com/crewtrack/worksession/model"
)

const reasonCodeField = "validShortfallReasonCode"

type ShortfallStatus string

const (
	ShortfallTargetMet     ShortfallStatus = "targetMet"
	ShortfallValidReason   ShortfallStatus = "validReason"
	ShortfallBelowTarget   ShortfallStatus = "belowTarget"
	ShortfallNotApplicable ShortfallStatus = "notApplicable"
)

// ReasonCatalog is the ordered list of shortfall reason codes, always ending
// with "other". Membership is configured outside the engine.
type ReasonCatalog struct {
	reasons []model.ShortfallReason
	codes   map[string]bool
}

func NewReasonCatalog(reasons []model.ShortfallReason) *ReasonCatalog {
	c := &ReasonCatalog{codes: make(map[string]bool)}
	for _, r := range reasons {
		code := strings.TrimSpace(r.Code)
		if code == "" || c.codes[code] || code == model.ShortfallReasonOther {
			continue
		}
		c.codes[code] = true
		c.reasons = append(c.reasons, model.ShortfallReason{Code: code, Label: r.Label})
	}
	c.codes[model.ShortfallReasonOther] = true
	c.reasons = append(c.reasons, model.ShortfallReason{Code: model.ShortfallReasonOther, Label: "Other"})
	return c
}

func DefaultReasonCatalog() *ReasonCatalog {
	return NewReasonCatalog([]model.ShortfallReason{
		{Code: "weather", Label: "Weather"},
		{Code: "safety_stand_down", Label: "Safety stand-down"},
		{Code: "equipment_failure", Label: "Equipment failure"},
		{Code: "access_denied", Label: "Access denied"},
		{Code: "building_request", Label: "Building management request"},
	})
}

func (c *ReasonCatalog) Reasons() []model.ShortfallReason {
	if c == nil {
		return nil
	}
	out := make([]model.ShortfallReason, len(c.reasons))
	copy(out, c.reasons)
	return out
}

// Contains reports whether code is in the catalog. A nil catalog accepts any code.
func (c *ReasonCatalog) Contains(code string) bool {
	if c == nil {
		return true
	}
	return c.codes[code]
}

// ShortfallPolicy decides whether a session that missed its daily target is
// justified.
type ShortfallPolicy struct {
	Catalog *ReasonCatalog
}

// Target is the per-worker daily unit target for the project's job type.
func (p ShortfallPolicy) Target(project *model.Project) int {
	var target *int
	switch project.JobType() {
	case model.JobTypeInSuiteUnit:
		target = project.SuitesPerDay
	case model.JobTypeParkadeStall:
		target = project.StallsPerDay
	}
	if target == nil {
		target = project.DailyDropTarget
	}
	if target == nil {
		return 0
	}
	return *target
}

// Validate returns a *ValidationError on the reason code field when units fall
// short of the target without an acceptable justification.
func (p ShortfallPolicy) Validate(project *model.Project, units int, code, reason string) error {
	if project.JobType() == model.JobTypePercentageBased {
		return nil
	}
	target := p.Target(project)
	if units >= target {
		return nil
	}

	code = strings.TrimSpace(code)
	reason = strings.TrimSpace(reason)
	switch {
	case code == model.ShortfallReasonOther:
		if reason == "" {
			return newValidationError(reasonCodeField, "a shortfall reason is required when the code is %q", model.ShortfallReasonOther)
		}
	case code != "":
		if !p.Catalog.Contains(code) {
			return newValidationError(reasonCodeField, "unknown shortfall reason code %q", code)
		}
	default:
		if reason == "" {
			return newValidationError(reasonCodeField, "%d completed is below the daily target of %d; a reason code or reason is required", units, target)
		}
	}
	return nil
}

// Classify labels a reported day. Meeting the target wins over any reason given.
func (p ShortfallPolicy) Classify(project *model.Project, units int, code, reason string) ShortfallStatus {
	if project.JobType() == model.JobTypePercentageBased {
		return ShortfallNotApplicable
	}
	if units >= p.Target(project) {
		return ShortfallTargetMet
	}
	if justified(code, reason) {
		return ShortfallValidReason
	}
	return ShortfallBelowTarget
}

func justified(code, reason string) bool {
	code = strings.TrimSpace(code)
	reason = strings.TrimSpace(reason)
	if code != "" && code != model.ShortfallReasonOther {
		return true
	}
	return reason != ""
}

// SessionUnits is the unit count a session reported for the project's job type.
func SessionUnits(project *model.Project, s *model.WorkSession) int {
	switch jt := project.JobType(); {
	case jt.UsesDrops():
		return s.Drops().Total()
	case jt.UsesUnits():
		return s.PrimaryUnits()
	}
	return 0
}
