package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"ropeaccess.com/crewtrack/utils"
	"ropeaccess.com/crewtrack/worksession/model"
)

var day = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func ended(id string, at time.Time, mutate func(s *model.WorkSession)) model.WorkSession {
	s := model.WorkSession{
		ID:        id,
		ProjectID: "p-1",
		WorkerID:  "w-" + id,
		WorkDate:  at.Format("2006-01-02"),
		StartTime: at.Add(-4 * time.Hour),
		EndTime:   utils.Ptr(at),
	}
	if mutate != nil {
		mutate(&s)
	}
	return s
}

func active(id string) model.WorkSession {
	return model.WorkSession{ID: id, ProjectID: "p-1", WorkerID: "w-" + id, StartTime: day, ActiveSlot: utils.Ptr(model.ActiveSlotOpen)}
}

func drops(n, e, s, w int) func(*model.WorkSession) {
	return func(ws *model.WorkSession) {
		ws.SetDrops(model.DirectionCounts{North: n, East: e, South: s, West: w})
	}
}

func TestDropProgress(t *testing.T) {
	project := &model.Project{
		ID:                   "p-1",
		JobTypeLabel:         "window_cleaning",
		TotalDropsNorth:      utils.Ptr(10),
		TotalDropsEast:       utils.Ptr(10),
		TotalDropsSouth:      utils.Ptr(10),
		TotalDropsWest:       utils.Ptr(10),
		DropsAdjustmentSouth: -1,
	}
	sessions := []model.WorkSession{
		ended("a", day, drops(5, 5, 5, 5)),
		ended("b", day.Add(time.Hour), drops(1, 0, 2, 0)),
		func() model.WorkSession { s := active("c"); s.SetDrops(model.DirectionCounts{North: 9}); return s }(),
	}

	p := ComputeProgress(project, sessions)

	assert.Equal(t, model.JobTypeElevationDrop, p.JobType)
	assert.Equal(t, 22, p.Completed)
	assert.Equal(t, 40, p.Total)
	assert.Equal(t, 55, p.Percent)
	assert.Equal(t, []DirectionProgress{
		{Direction: model.North, Completed: 6, Total: 10},
		{Direction: model.East, Completed: 5, Total: 10},
		{Direction: model.South, Completed: 6, Total: 10, Adjustment: -1},
		{Direction: model.West, Completed: 5, Total: 10},
	}, p.Directions)
}

func TestDropTotalsFallback(t *testing.T) {
	tests := []struct {
		name    string
		project model.Project
		want    model.DirectionCounts
	}{
		{
			name:    "legacy total split with remainder to north then east",
			project: model.Project{JobTypeLabel: "elevation_drop", TotalDrops: utils.Ptr(10)},
			want:    model.DirectionCounts{North: 3, East: 3, South: 2, West: 2},
		},
		{
			name:    "explicit totals win over the legacy total",
			project: model.Project{JobTypeLabel: "elevation_drop", TotalDrops: utils.Ptr(10), TotalDropsNorth: utils.Ptr(7)},
			want:    model.DirectionCounts{North: 7},
		},
		{
			name:    "floor count when no drop totals",
			project: model.Project{JobTypeLabel: "elevation_drop", TotalFloors: utils.Ptr(7)},
			want:    model.DirectionCounts{North: 2, East: 2, South: 2, West: 1},
		},
		{
			name:    "nothing configured",
			project: model.Project{JobTypeLabel: "elevation_drop"},
			want:    model.DirectionCounts{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeProgress(&tt.project, nil)
			got := model.DirectionCounts{}
			for _, d := range p.Directions {
				got.Set(d.Direction, d.Total)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Total(), p.Total)
			assert.Equal(t, 0, p.Percent)
		})
	}
}

func TestUnitProgress(t *testing.T) {
	tests := []struct {
		name     string
		project  model.Project
		sessions []model.WorkSession
		want     Progress
	}{
		{
			name:    "in-suite counts primary units against floors",
			project: model.Project{JobTypeLabel: "in_suite_dryer_vent", TotalFloors: utils.Ptr(40)},
			sessions: []model.WorkSession{
				ended("a", day, func(s *model.WorkSession) { s.PrimaryUnitsCompleted = utils.Ptr(6) }),
				ended("b", day, func(s *model.WorkSession) { s.PrimaryUnitsCompleted = utils.Ptr(4) }),
			},
			want: Progress{JobType: model.JobTypeInSuiteUnit, Completed: 10, Total: 40, Percent: 25},
		},
		{
			name:    "legacy rows read the north column",
			project: model.Project{JobTypeLabel: "parkade_pressure_washing", TotalStalls: utils.Ptr(120)},
			sessions: []model.WorkSession{
				ended("a", day, drops(30, 0, 0, 0)),
				ended("b", day, func(s *model.WorkSession) { s.PrimaryUnitsCompleted = utils.Ptr(0); s.DropsCompletedNorth = 50 }),
			},
			want: Progress{JobType: model.JobTypeParkadeStall, Completed: 30, Total: 120, Percent: 25},
		},
		{
			name:    "parkade falls back to floors",
			project: model.Project{JobTypeLabel: "parkade_sweep", TotalFloors: utils.Ptr(8)},
			sessions: []model.WorkSession{
				ended("a", day, func(s *model.WorkSession) { s.PrimaryUnitsCompleted = utils.Ptr(10) }),
			},
			want: Progress{JobType: model.JobTypeParkadeStall, Completed: 10, Total: 8, Percent: 100},
		},
		{
			name:     "zero total",
			project:  model.Project{JobTypeLabel: "in_suite_unit"},
			sessions: []model.WorkSession{ended("a", day, func(s *model.WorkSession) { s.PrimaryUnitsCompleted = utils.Ptr(3) })},
			want:     Progress{JobType: model.JobTypeInSuiteUnit, Completed: 3, Total: 0, Percent: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeProgress(&tt.project, tt.sessions))
		})
	}
}

func TestPercentageProgress(t *testing.T) {
	tests := []struct {
		name     string
		project  model.Project
		sessions []model.WorkSession
		want     int
	}{
		{
			name:    "project value wins",
			project: model.Project{JobTypeLabel: "painting", OverallCompletionPercentage: utils.Ptr(55)},
			sessions: []model.WorkSession{
				ended("a", day, func(s *model.WorkSession) { s.ManualCompletionPercentage = utils.Ptr(80) }),
			},
			want: 55,
		},
		{
			name:    "latest ended session with a value",
			project: model.Project{JobTypeLabel: "painting"},
			sessions: []model.WorkSession{
				ended("a", day, func(s *model.WorkSession) { s.ManualCompletionPercentage = utils.Ptr(30) }),
				ended("b", day.Add(2*time.Hour), func(s *model.WorkSession) { s.ManualCompletionPercentage = utils.Ptr(45) }),
				ended("c", day.Add(3*time.Hour), nil),
			},
			want: 45,
		},
		{
			name:    "equal end times go to the larger id",
			project: model.Project{JobTypeLabel: "painting"},
			sessions: []model.WorkSession{
				ended("b", day, func(s *model.WorkSession) { s.ManualCompletionPercentage = utils.Ptr(20) }),
				ended("a", day, func(s *model.WorkSession) { s.ManualCompletionPercentage = utils.Ptr(10) }),
			},
			want: 20,
		},
		{
			name:    "active sessions ignored",
			project: model.Project{JobTypeLabel: "painting"},
			sessions: []model.WorkSession{
				func() model.WorkSession { s := active("a"); s.ManualCompletionPercentage = utils.Ptr(90); return s }(),
			},
			want: 0,
		},
		{
			name:    "stored value clamped",
			project: model.Project{JobTypeLabel: "painting", OverallCompletionPercentage: utils.Ptr(140)},
			want:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeProgress(&tt.project, tt.sessions)
			assert.Equal(t, model.JobTypePercentageBased, p.JobType)
			assert.Equal(t, 100, p.Total)
			assert.Equal(t, tt.want, p.Percent)
			assert.Equal(t, tt.want, p.Completed)
		})
	}
}

func TestNegativeCompletedClampsPercent(t *testing.T) {
	project := &model.Project{JobTypeLabel: "elevation_drop", TotalDrops: utils.Ptr(8), DropsAdjustmentNorth: -5}
	p := ComputeProgress(project, []model.WorkSession{ended("a", day, drops(1, 0, 0, 0))})

	assert.Equal(t, -4, p.Completed)
	assert.Equal(t, 0, p.Percent)
}

func TestComputeProgressDoesNotMutateInputs(t *testing.T) {
	project := &model.Project{JobTypeLabel: "elevation_drop", TotalDrops: utils.Ptr(12), DropsAdjustmentEast: 2}
	sessions := []model.WorkSession{ended("a", day, drops(1, 2, 3, 4)), active("b")}

	projectBefore := *project
	sessionsBefore := append([]model.WorkSession(nil), sessions...)

	first := ComputeProgress(project, sessions)
	second := ComputeProgress(project, sessions)

	assert.Equal(t, first, second)
	assert.Equal(t, projectBefore, *project)
	assert.Equal(t, sessionsBefore, sessions)
}

type fixedRule struct{ percent int }

func (r fixedRule) Compute(*model.Project, []model.WorkSession) Progress {
	return Progress{Completed: r.percent, Total: 100, Percent: r.percent}
}

func TestCalculatorRegister(t *testing.T) {
	c := NewCalculator()
	c.Register(model.JobTypePercentageBased, fixedRule{percent: 12})

	p := c.Compute(&model.Project{JobTypeLabel: "painting"}, nil)
	assert.Equal(t, Progress{JobType: model.JobTypePercentageBased, Completed: 12, Total: 100, Percent: 12}, p)

	empty := &Calculator{rules: map[model.JobType]ProgressRule{}}
	assert.Equal(t, Progress{JobType: model.JobTypePercentageBased}, empty.Compute(&model.Project{JobTypeLabel: "painting"}, nil))
}
