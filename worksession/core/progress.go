package core

import (
	"math"

	"ropeaccess.com/crewtrack/utils"
	"ropeaccess.com/crewtrack/worksession/model"
)

type Progress struct {
	JobType    model.JobType       `json:"jobType"`
	Completed  int                 `json:"completed"`
	Total      int                 `json:"total"`
	Percent    int                 `json:"percent"`
	Directions []DirectionProgress `json:"directions,omitempty"`
}

type DirectionProgress struct {
	Direction  model.Direction `json:"direction"`
	Completed  int             `json:"completed"`
	Total      int             `json:"total"`
	Adjustment int             `json:"adjustment"`
}

// ProgressRule computes progress for one job type. Implementations must not
// modify the project or the sessions.
type ProgressRule interface {
	Compute(project *model.Project, sessions []model.WorkSession) Progress
}

// Calculator dispatches on the project's job type to the registered rule.
type Calculator struct {
	rules map[model.JobType]ProgressRule
}

// NewCalculator returns a calculator with the rules for the four built-in job types.
func NewCalculator() *Calculator {
	c := &Calculator{rules: make(map[model.JobType]ProgressRule)}
	c.Register(model.JobTypeElevationDrop, DropRule{Totals: DefaultDropTotals})
	c.Register(model.JobTypeInSuiteUnit, UnitRule{Totals: DefaultSuiteTotals})
	c.Register(model.JobTypeParkadeStall, UnitRule{Totals: DefaultStallTotals})
	c.Register(model.JobTypePercentageBased, PercentageRule{Sources: DefaultPercentageSources})
	return c
}

func (c *Calculator) Register(jt model.JobType, rule ProgressRule) {
	c.rules[jt] = rule
}

func (c *Calculator) Compute(project *model.Project, sessions []model.WorkSession) Progress {
	jt := project.JobType()
	rule, ok := c.rules[jt]
	if !ok {
		return Progress{JobType: jt}
	}
	p := rule.Compute(project, sessions)
	p.JobType = jt
	return p
}

var defaultCalculator = NewCalculator()

// ComputeProgress maps a project and all of its sessions to completed/total/percent.
// Active sessions never count.
func ComputeProgress(project *model.Project, sessions []model.WorkSession) Progress {
	return defaultCalculator.Compute(project, sessions)
}

type DropRule struct {
	Totals []TotalsStrategy
}

func (r DropRule) Compute(project *model.Project, sessions []model.WorkSession) Progress {
	totals := firstDirectionTotals(project, r.Totals)
	adjustments := project.Adjustments()

	var reported model.DirectionCounts
	for _, s := range endedSessions(sessions) {
		reported = reported.Add(s.Drops())
	}
	completed := reported.Add(adjustments)

	directions := make([]DirectionProgress, 0, len(model.Directions))
	for _, d := range model.Directions {
		directions = append(directions, DirectionProgress{
			Direction:  d,
			Completed:  completed.Get(d),
			Total:      totals.Get(d),
			Adjustment: adjustments.Get(d),
		})
	}

	return Progress{
		Completed:  completed.Total(),
		Total:      totals.Total(),
		Percent:    percentOf(completed.Total(), totals.Total()),
		Directions: directions,
	}
}

type UnitRule struct {
	Totals []CountStrategy
}

func (r UnitRule) Compute(project *model.Project, sessions []model.WorkSession) Progress {
	total := firstCount(project, r.Totals)
	completed := 0
	for _, s := range endedSessions(sessions) {
		completed += s.PrimaryUnits()
	}
	return Progress{
		Completed: completed,
		Total:     total,
		Percent:   percentOf(completed, total),
	}
}

type PercentageRule struct {
	Sources []PercentStrategy
}

func (r PercentageRule) Compute(project *model.Project, sessions []model.WorkSession) Progress {
	pct := 0
	for _, source := range r.Sources {
		if v, ok := source(project, sessions); ok {
			pct = clamp(v, 0, 100)
			break
		}
	}
	return Progress{Completed: pct, Total: 100, Percent: pct}
}

func endedSessions(sessions []model.WorkSession) []model.WorkSession {
	return utils.Filter(sessions, func(s model.WorkSession) bool { return !s.Active() })
}

func percentOf(completed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(completed) / float64(total) * 100))
	return clamp(pct, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
