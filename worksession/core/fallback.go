package core

import (
	"ropeaccess.com/crewtrack/worksession/model"
)

// Fallback strategies are tried in order; the first one that reports ok wins.
// Job types registered on a Calculator bring their own chains.

type TotalsStrategy func(p *model.Project) (model.DirectionCounts, bool)

type CountStrategy func(p *model.Project) (int, bool)

type PercentStrategy func(p *model.Project, sessions []model.WorkSession) (int, bool)

var DefaultDropTotals = []TotalsStrategy{
	ExplicitDirectionTotals,
	SplitTotalDrops,
	SplitTotalFloors,
}

var DefaultSuiteTotals = []CountStrategy{
	TotalFloorsCount,
}

var DefaultStallTotals = []CountStrategy{
	TotalStallsCount,
	TotalFloorsCount,
}

var DefaultPercentageSources = []PercentStrategy{
	ProjectPercentage,
	LatestSessionPercentage,
}

func ExplicitDirectionTotals(p *model.Project) (model.DirectionCounts, bool) {
	return p.DirectionTotals()
}

func SplitTotalDrops(p *model.Project) (model.DirectionCounts, bool) {
	if p.TotalDrops == nil {
		return model.DirectionCounts{}, false
	}
	return model.SplitEvenly(*p.TotalDrops), true
}

func SplitTotalFloors(p *model.Project) (model.DirectionCounts, bool) {
	if p.TotalFloors == nil {
		return model.DirectionCounts{}, false
	}
	return model.SplitEvenly(*p.TotalFloors), true
}

func TotalFloorsCount(p *model.Project) (int, bool) {
	if p.TotalFloors == nil {
		return 0, false
	}
	return *p.TotalFloors, true
}

func TotalStallsCount(p *model.Project) (int, bool) {
	if p.TotalStalls == nil {
		return 0, false
	}
	return *p.TotalStalls, true
}

func ProjectPercentage(p *model.Project, _ []model.WorkSession) (int, bool) {
	if p.OverallCompletionPercentage == nil {
		return 0, false
	}
	return *p.OverallCompletionPercentage, true
}

// LatestSessionPercentage reads the manual percentage of the most recently ended
// session that reported one. Equal end times resolve to the larger session id.
func LatestSessionPercentage(_ *model.Project, sessions []model.WorkSession) (int, bool) {
	var latest *model.WorkSession
	for i := range sessions {
		s := &sessions[i]
		if s.Active() || s.ManualCompletionPercentage == nil {
			continue
		}
		if latest == nil ||
			s.EndTime.After(*latest.EndTime) ||
			(s.EndTime.Equal(*latest.EndTime) && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return 0, false
	}
	return *latest.ManualCompletionPercentage, true
}

func firstDirectionTotals(p *model.Project, chain []TotalsStrategy) model.DirectionCounts {
	for _, strategy := range chain {
		if c, ok := strategy(p); ok {
			return c
		}
	}
	return model.DirectionCounts{}
}

func firstCount(p *model.Project, chain []CountStrategy) int {
	for _, strategy := range chain {
		if n, ok := strategy(p); ok {
			return n
		}
	}
	return 0
}
