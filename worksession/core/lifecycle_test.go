package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ropeaccess.com/crewtrack/utils"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/model"
	"ropeaccess.com/crewtrack/worksession/store"
)

// tickingClock advances one second per reading.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

var site = &core.Location{Latitude: 49.2827, Longitude: -123.1207}

func newManager(projects ...model.Project) (*core.Manager, *store.MemoryStore) {
	mem := store.NewMemoryStore()
	for _, p := range projects {
		mem.AddProject(p)
	}
	m := core.NewManager(mem, core.DefaultReasonCatalog())
	clock := &tickingClock{now: time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)}
	m.Now = clock.Now
	return m, mem
}

func dropProject() model.Project {
	return model.Project{
		ID:              "tower",
		Name:            "Tower wash",
		JobTypeLabel:    "window_cleaning",
		TotalDropsNorth: utils.Ptr(10),
		TotalDropsEast:  utils.Ptr(10),
		TotalDropsSouth: utils.Ptr(10),
		TotalDropsWest:  utils.Ptr(10),
		DailyDropTarget: utils.Ptr(20),
	}
}

func percentProject(current *int) model.Project {
	return model.Project{ID: "lobby", Name: "Lobby refresh", JobTypeLabel: "painting", OverallCompletionPercentage: current}
}

func suiteProject() model.Project {
	return model.Project{ID: "suites", Name: "Suite vents", JobTypeLabel: "in_suite_unit", TotalFloors: utils.Ptr(30), SuitesPerDay: utils.Ptr(5)}
}

func start(t *testing.T, m *core.Manager, projectID, workerID string) *model.WorkSession {
	t.Helper()
	res, err := m.Start(context.Background(), core.StartInput{ProjectID: projectID, WorkerID: workerID, WorkDate: "2025-03-01", Location: site})
	require.NoError(t, err)
	return res.Session
}

func TestStartSingleActiveSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(dropProject(), percentProject(nil))

	first := start(t, m, "tower", "w-1")
	assert.True(t, first.Active())

	_, err := m.Start(ctx, core.StartInput{ProjectID: "tower", WorkerID: "w-1", WorkDate: "2025-03-01"})
	assert.True(t, core.IsConflict(err))

	start(t, m, "tower", "w-2")
	start(t, m, "lobby", "w-1")

	active, err := m.Sessions(ctx, "tower", core.SessionFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(dropProject())

	tests := []struct {
		name  string
		in    core.StartInput
		check func(error) bool
	}{
		{"missing worker", core.StartInput{ProjectID: "tower", WorkDate: "2025-03-01"}, core.IsValidation},
		{"bad work date", core.StartInput{ProjectID: "tower", WorkerID: "w-1", WorkDate: "03/01/2025"}, core.IsValidation},
		{"unknown project", core.StartInput{ProjectID: "nope", WorkerID: "w-1", WorkDate: "2025-03-01"}, core.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Start(ctx, tt.in)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestStartAfterEndIsAllowed(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(percentProject(nil))

	s := start(t, m, "lobby", "w-1")
	_, err := m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1", Location: site})
	require.NoError(t, err)

	again := start(t, m, "lobby", "w-1")
	assert.NotEqual(t, s.ID, again.ID)
}

func TestEndDropSessionShortfallGate(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(dropProject())

	s := start(t, m, "tower", "w-1")

	_, err := m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1", Location: site, Drops: &model.DirectionCounts{North: 2, East: 2, South: 2, West: 2}})
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "validShortfallReasonCode", ve.Field)

	still, err := m.ActiveSession(ctx, "tower", "w-1")
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.Equal(t, 0, still.Drops().Total())

	progress, err := m.Progress(ctx, "tower")
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Progress.Completed)

	res, err := m.End(ctx, s.ID, core.EndInput{
		WorkerID:        "w-1",
		Location:        site,
		Drops:           &model.DirectionCounts{North: 2, East: 2, South: 2, West: 2},
		ShortfallReason: "rain all day",
	})
	require.NoError(t, err)
	assert.False(t, res.Session.Active())
	assert.False(t, res.RequiresProgressPrompt)
	assert.Equal(t, "rain all day", res.Session.ShortfallReason)
	assert.Nil(t, res.Session.ValidShortfallReasonCode)

	report, err := m.Shortfalls(ctx, "tower", core.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, report.Sessions, 1)
	assert.Equal(t, core.ShortfallValidReason, report.Sessions[0].Status)
}

func TestEndDropSessionValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		in    core.EndInput
		field string
	}{
		{"negative drops", core.EndInput{Drops: &model.DirectionCounts{North: 25, West: -1}}, "dropsCompleted"},
		{"unknown code", core.EndInput{Drops: &model.DirectionCounts{North: 1}, ShortfallReasonCode: "tired"}, "validShortfallReasonCode"},
		{"other without reason", core.EndInput{Drops: &model.DirectionCounts{North: 1}, ShortfallReasonCode: "other"}, "validShortfallReasonCode"},
		{"no drops at all", core.EndInput{}, "validShortfallReasonCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newManager(dropProject())
			s := start(t, m, "tower", "w-1")

			in := tt.in
			in.WorkerID = "w-1"
			_, err := m.End(ctx, s.ID, in)

			var ve *core.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)

			open, err := m.ActiveSession(ctx, "tower", "w-1")
			require.NoError(t, err)
			assert.NotNil(t, open)
		})
	}
}

func TestEndTargetMet(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(dropProject())
	s := start(t, m, "tower", "w-1")

	res, err := m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1", Location: site, Drops: &model.DirectionCounts{North: 5, East: 5, South: 5, West: 5}})
	require.NoError(t, err)
	assert.Equal(t, model.DirectionCounts{North: 5, East: 5, South: 5, West: 5}, res.Session.Drops())

	progress, err := m.Progress(ctx, "tower")
	require.NoError(t, err)
	assert.Equal(t, 20, progress.Progress.Completed)
	assert.Equal(t, 50, progress.Progress.Percent)

	report, err := m.Shortfalls(ctx, "tower", core.SessionFilter{FromDate: "2025-03-01", ToDate: "2025-03-01"})
	require.NoError(t, err)
	assert.Equal(t, core.ShortfallSummary{TargetMet: 1}, report.Summary)
}

func TestEndUnitSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(suiteProject())

	s := start(t, m, "suites", "w-1")
	_, err := m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1", Location: site, PrimaryUnits: utils.Ptr(3), ShortfallReasonCode: "access_denied"})
	require.NoError(t, err)

	s = start(t, m, "suites", "w-1")
	res, err := m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1", Location: site, PrimaryUnits: utils.Ptr(6), Drops: &model.DirectionCounts{North: 99}})
	require.NoError(t, err)
	assert.Equal(t, 6, *res.Session.PrimaryUnitsCompleted)
	assert.Equal(t, 0, res.Session.DropsCompletedNorth)

	progress, err := m.Progress(ctx, "suites")
	require.NoError(t, err)
	assert.Equal(t, core.Progress{JobType: model.JobTypeInSuiteUnit, Completed: 9, Total: 30, Percent: 30}, progress.Progress)

	s = start(t, m, "suites", "w-1")
	_, err = m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1", PrimaryUnits: utils.Ptr(-1)})
	assert.True(t, core.IsValidation(err))
}

func TestEndNotFound(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(percentProject(nil))
	s := start(t, m, "lobby", "w-1")

	_, err := m.End(ctx, "missing", core.EndInput{WorkerID: "w-1"})
	assert.True(t, core.IsNotFound(err))

	_, err = m.End(ctx, s.ID, core.EndInput{WorkerID: "w-2"})
	assert.True(t, core.IsNotFound(err))

	_, err = m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1"})
	require.NoError(t, err)

	_, err = m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1"})
	assert.True(t, core.IsNotFound(err))
}

func TestLocationWarnings(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(percentProject(nil))

	res, err := m.Start(ctx, core.StartInput{ProjectID: "lobby", WorkerID: "w-1", WorkDate: "2025-03-01"})
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
	assert.Nil(t, res.Session.StartLatitude)

	ended, err := m.End(ctx, res.Session.ID, core.EndInput{WorkerID: "w-1", Location: &core.Location{Latitude: 91, Longitude: 0}})
	require.NoError(t, err)
	assert.Len(t, ended.Warnings, 1)
	assert.Nil(t, ended.Session.EndLatitude)

	res, err = m.Start(ctx, core.StartInput{ProjectID: "lobby", WorkerID: "w-1", WorkDate: "2025-03-01", Location: site})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, site.Latitude, *res.Session.StartLatitude)
	assert.Equal(t, site.Longitude, *res.Session.StartLongitude)
}

func TestLastOneOut(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(percentProject(utils.Ptr(40)))

	s1 := start(t, m, "lobby", "w-1")
	s2 := start(t, m, "lobby", "w-2")

	first, err := m.End(ctx, s1.ID, core.EndInput{WorkerID: "w-1", Location: site})
	require.NoError(t, err)
	assert.False(t, first.RequiresProgressPrompt)
	assert.Nil(t, first.CurrentOverallProgress)

	last, err := m.End(ctx, s2.ID, core.EndInput{WorkerID: "w-2", Location: site, ManualCompletionPercentage: utils.Ptr(50)})
	require.NoError(t, err)
	assert.True(t, last.RequiresProgressPrompt)
	require.NotNil(t, last.CurrentOverallProgress)
	assert.Equal(t, 40, *last.CurrentOverallProgress)

	project, err := m.UpdateOverallProgress(ctx, "lobby", "w-2", core.ProgressUpdate{CompletionPercentage: utils.Ptr(55), SessionID: s2.ID})
	require.NoError(t, err)
	assert.Equal(t, 55, *project.OverallCompletionPercentage)

	progress, err := m.Progress(ctx, "lobby")
	require.NoError(t, err)
	assert.Equal(t, 55, progress.Progress.Percent)

	events, err := m.Events(ctx, "lobby")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.ProgressEventOverallPercentage, events[0].Kind)
	assert.Equal(t, 40, *events[0].PreviousValue)
	assert.Equal(t, s2.ID, *events[0].SessionID)
}

func TestLastOneOutWithoutStoredValue(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(percentProject(nil), dropProject())

	s := start(t, m, "lobby", "w-1")
	res, err := m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1"})
	require.NoError(t, err)
	assert.True(t, res.RequiresProgressPrompt)
	assert.Equal(t, 0, *res.CurrentOverallProgress)

	d := start(t, m, "tower", "w-1")
	res, err = m.End(ctx, d.ID, core.EndInput{WorkerID: "w-1", Drops: &model.DirectionCounts{North: 20}})
	require.NoError(t, err)
	assert.False(t, res.RequiresProgressPrompt)
}

func TestConcurrentEndsPromptExactlyOnce(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(percentProject(utils.Ptr(10)))

	const workers = 12
	sessions := make([]*model.WorkSession, workers)
	for i := range sessions {
		sessions[i] = start(t, m, "lobby", "w-"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	results := make([]*core.EndResult, workers)
	errs := make([]error, workers)
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *model.WorkSession) {
			defer wg.Done()
			results[i], errs[i] = m.End(ctx, s.ID, core.EndInput{WorkerID: s.WorkerID, Location: site})
		}(i, s)
	}
	wg.Wait()

	prompts := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].RequiresProgressPrompt {
			prompts++
		}
	}
	assert.Equal(t, 1, prompts)
}

func TestUpdateOverallProgress(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(percentProject(utils.Ptr(30)), dropProject())

	skipped, err := m.UpdateOverallProgress(ctx, "lobby", "w-1", core.ProgressUpdate{Skip: true, CompletionPercentage: utils.Ptr(90)})
	require.NoError(t, err)
	assert.Equal(t, 30, *skipped.OverallCompletionPercentage)

	events, err := m.Events(ctx, "lobby")
	require.NoError(t, err)
	assert.Empty(t, events)

	tests := []struct {
		name      string
		projectID string
		upd       core.ProgressUpdate
		check     func(error) bool
	}{
		{"missing value", "lobby", core.ProgressUpdate{}, core.IsValidation},
		{"below range", "lobby", core.ProgressUpdate{CompletionPercentage: utils.Ptr(-1)}, core.IsValidation},
		{"above range", "lobby", core.ProgressUpdate{CompletionPercentage: utils.Ptr(101)}, core.IsValidation},
		{"drop project", "tower", core.ProgressUpdate{CompletionPercentage: utils.Ptr(10)}, core.IsValidation},
		{"unknown project", "nope", core.ProgressUpdate{CompletionPercentage: utils.Ptr(10)}, core.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.UpdateOverallProgress(ctx, tt.projectID, "w-1", tt.upd)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}

	for _, pct := range []int{60, 45} {
		_, err := m.UpdateOverallProgress(ctx, "lobby", "w-1", core.ProgressUpdate{CompletionPercentage: utils.Ptr(pct)})
		require.NoError(t, err)
	}
	progress, err := m.Progress(ctx, "lobby")
	require.NoError(t, err)
	assert.Equal(t, 45, progress.Progress.Percent)
}

func TestSetAdjustments(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(dropProject())

	s := start(t, m, "tower", "w-1")
	_, err := m.End(ctx, s.ID, core.EndInput{WorkerID: "w-1", Drops: &model.DirectionCounts{North: 6, East: 5, South: 5, West: 4}})
	require.NoError(t, err)

	targets := []core.DirectionTarget{{Direction: model.North, DesiredAbsolute: 8}, {Direction: model.West, DesiredAbsolute: 1}}

	first, err := m.SetAdjustments(ctx, "tower", "admin", targets)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Project.DropsAdjustmentNorth)
	assert.Equal(t, -3, first.Project.DropsAdjustmentWest)
	assert.Equal(t, 0, first.Project.DropsAdjustmentEast)

	second, err := m.SetAdjustments(ctx, "tower", "admin", targets)
	require.NoError(t, err)
	assert.Equal(t, first.Project.Adjustments(), second.Project.Adjustments())
	assert.Equal(t, first.Progress, second.Progress)

	byDirection := map[model.Direction]int{}
	for _, d := range second.Progress.Directions {
		byDirection[d.Direction] = d.Completed
	}
	assert.Equal(t, map[model.Direction]int{model.North: 8, model.East: 5, model.South: 5, model.West: 1}, byDirection)
	assert.Equal(t, 19, second.Progress.Completed)

	sessions, err := m.Sessions(ctx, "tower", core.SessionFilter{})
	require.NoError(t, err)
	assert.Equal(t, model.DirectionCounts{North: 6, East: 5, South: 5, West: 4}, sessions[0].Drops())

	events, err := m.Events(ctx, "tower")
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, []int64{1, 2, 3, 4}, utils.Map(events, func(e model.ProgressEvent) int64 { return e.Sequence }))
	assert.Equal(t, []model.Direction{model.North, model.West, model.North, model.West},
		utils.Map(events, func(e model.ProgressEvent) model.Direction { return *e.Direction }))
	north := utils.Find(events, func(e model.ProgressEvent) bool { return e.Direction != nil && *e.Direction == model.North })
	require.NotNil(t, north)
	assert.Equal(t, "admin", north.ActorID)
	assert.JSONEq(t, `{"desiredAbsolute":8,"sessionSum":6}`, string(north.Details))
}

func TestSetAdjustmentsRejects(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(dropProject(), suiteProject())

	tests := []struct {
		name      string
		projectID string
		targets   []core.DirectionTarget
		check     func(error) bool
	}{
		{"empty", "tower", nil, core.IsValidation},
		{"unknown direction", "tower", []core.DirectionTarget{{Direction: "up", DesiredAbsolute: 1}}, core.IsValidation},
		{"duplicate direction", "tower", []core.DirectionTarget{{Direction: model.East, DesiredAbsolute: 1}, {Direction: model.East, DesiredAbsolute: 2}}, core.IsValidation},
		{"negative", "tower", []core.DirectionTarget{{Direction: model.East, DesiredAbsolute: -1}}, core.IsValidation},
		{"unit project", "suites", []core.DirectionTarget{{Direction: model.North, DesiredAbsolute: 3}}, core.IsValidation},
		{"unknown project", "nope", []core.DirectionTarget{{Direction: model.North, DesiredAbsolute: 3}}, core.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SetAdjustments(ctx, tt.projectID, "admin", tt.targets)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}

	events, err := m.Events(ctx, "tower")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRebuildProjection(t *testing.T) {
	ctx := context.Background()
	m, mem := newManager(dropProject(), percentProject(nil))

	_, err := m.SetAdjustments(ctx, "tower", "admin", []core.DirectionTarget{{Direction: model.South, DesiredAbsolute: 4}})
	require.NoError(t, err)
	_, err = m.SetAdjustments(ctx, "tower", "admin", []core.DirectionTarget{{Direction: model.South, DesiredAbsolute: 6}})
	require.NoError(t, err)
	_, err = m.UpdateOverallProgress(ctx, "lobby", "w-1", core.ProgressUpdate{CompletionPercentage: utils.Ptr(70)})
	require.NoError(t, err)

	drifted := dropProject()
	drifted.DropsAdjustmentSouth = 99
	drifted.DropsAdjustmentNorth = 5
	mem.AddProject(drifted)

	rebuilt, err := m.RebuildProjection(ctx, "tower")
	require.NoError(t, err)
	assert.Equal(t, model.DirectionCounts{South: 6}, rebuilt.Adjustments())

	reset := percentProject(nil)
	mem.AddProject(reset)
	lobby, err := m.RebuildProjection(ctx, "lobby")
	require.NoError(t, err)
	assert.Equal(t, 70, *lobby.OverallCompletionPercentage)
}

func TestActiveSessionLookup(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(percentProject(nil))

	none, err := m.ActiveSession(ctx, "lobby", "w-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	s := start(t, m, "lobby", "w-1")
	found, err := m.ActiveSession(ctx, "lobby", "w-1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)

	_, err = m.ActiveSession(ctx, "nope", "w-1")
	assert.True(t, core.IsNotFound(err))
}
