package core

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"ropeaccess.com/crewtrack/utils"
	"ropeaccess.com/crewtrack/worksession/model"
)

const workDateLayout = "2006-01-02"

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l *Location) valid() bool {
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

type StartInput struct {
	ProjectID string
	WorkerID  string
	WorkDate  string
	Location  *Location
}

type StartResult struct {
	Session  *model.WorkSession `json:"session"`
	Warnings []string           `json:"warnings,omitempty"`
}

// EndInput carries whichever progress fields the project's job type uses; the
// others are ignored.
type EndInput struct {
	WorkerID                   string
	Location                   *Location
	Drops                      *model.DirectionCounts
	PrimaryUnits               *int
	ManualCompletionPercentage *int
	ShortfallReasonCode        string
	ShortfallReason            string
}

type EndResult struct {
	Session                *model.WorkSession `json:"session"`
	RequiresProgressPrompt bool               `json:"requiresProgressPrompt"`
	CurrentOverallProgress *int               `json:"currentOverallProgress,omitempty"`
	Warnings               []string           `json:"warnings,omitempty"`
}

type ProgressUpdate struct {
	CompletionPercentage *int
	Skip                 bool
	// SessionID optionally names the session whose end raised the prompt.
	SessionID string
}

type ProjectProgress struct {
	Project  *model.Project `json:"project"`
	Progress Progress       `json:"progress"`
}

// Manager drives the work session lifecycle and the project aggregates that
// hang off it.
type Manager struct {
	Store      Store
	Policy     ShortfallPolicy
	Calculator *Calculator
	Now        func() time.Time
}

func NewManager(store Store, catalog *ReasonCatalog) *Manager {
	return &Manager{
		Store:      store,
		Policy:     ShortfallPolicy{Catalog: catalog},
		Calculator: NewCalculator(),
		Now:        time.Now,
	}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// Start opens a session for the worker on the project. A worker holds at most
// one active session per project.
func (m *Manager) Start(ctx context.Context, in StartInput) (*StartResult, error) {
	if strings.TrimSpace(in.WorkerID) == "" {
		return nil, newValidationError("workerId", "worker is required")
	}
	if _, err := time.Parse(workDateLayout, in.WorkDate); err != nil {
		return nil, newValidationError("workDate", "expected yyyy-MM-dd, got %q", in.WorkDate)
	}

	var warnings []string
	loc := acceptLocation(in.Location, "start", &warnings)

	var created model.WorkSession
	err := m.Store.WithProject(ctx, in.ProjectID, func(tx ProjectTx) error {
		if _, err := tx.FindActiveSession(in.WorkerID); err == nil {
			return &ConflictError{Message: fmt.Sprintf("worker %s already has an active session on project %s", in.WorkerID, in.ProjectID)}
		} else if !IsNotFound(err) {
			return err
		}

		created = model.WorkSession{
			ID:         uuid.NewString(),
			ProjectID:  in.ProjectID,
			WorkerID:   in.WorkerID,
			WorkDate:   in.WorkDate,
			StartTime:  m.now(),
			ActiveSlot: utils.Ptr(model.ActiveSlotOpen),
		}
		if loc != nil {
			created.StartLatitude = utils.Ptr(loc.Latitude)
			created.StartLongitude = utils.Ptr(loc.Longitude)
		}
		return tx.CreateSession(&created)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] session %s started: project=%s worker=%s date=%s\n", created.ID, created.ProjectID, created.WorkerID, created.WorkDate)
	return &StartResult{Session: &created, Warnings: warnings}, nil
}

// End closes an active session. Nothing is written unless the payload passes
// validation and the shortfall policy.
func (m *Manager) End(ctx context.Context, sessionID string, in EndInput) (*EndResult, error) {
	found, err := m.Store.FindSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if in.WorkerID != "" && found.WorkerID != in.WorkerID {
		return nil, &NotFoundError{Resource: "session", ID: sessionID}
	}

	var warnings []string
	loc := acceptLocation(in.Location, "end", &warnings)

	var ended model.WorkSession
	var resolution LastOutResolution
	err = m.Store.WithProject(ctx, found.ProjectID, func(tx ProjectTx) error {
		current, err := tx.FindSession(sessionID)
		if err != nil {
			return err
		}
		if !current.Active() {
			return &NotFoundError{Resource: "active session", ID: sessionID}
		}

		project := tx.Project()
		ended = *current
		if err := m.applyProgress(project, &ended, in); err != nil {
			return err
		}

		ended.EndTime = utils.Ptr(m.now())
		ended.ActiveSlot = nil
		if loc != nil {
			ended.EndLatitude = utils.Ptr(loc.Latitude)
			ended.EndLongitude = utils.Ptr(loc.Longitude)
		}
		if err := tx.UpdateSession(&ended); err != nil {
			return err
		}

		resolution, err = resolveLastOut(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] session %s ended: project=%s worker=%s prompt=%t\n", ended.ID, ended.ProjectID, ended.WorkerID, resolution.RequiresProgressPrompt)
	return &EndResult{
		Session:                &ended,
		RequiresProgressPrompt: resolution.RequiresProgressPrompt,
		CurrentOverallProgress: resolution.CurrentOverallProgress,
		Warnings:               warnings,
	}, nil
}

// applyProgress validates the end payload against the job type and copies the
// relevant fields onto s.
func (m *Manager) applyProgress(project *model.Project, s *model.WorkSession, in EndInput) error {
	jt := project.JobType()
	switch {
	case jt.UsesDrops():
		drops := utils.Deref(in.Drops)
		for _, d := range model.Directions {
			if drops.Get(d) < 0 {
				return newValidationError("dropsCompleted", "%s drops must not be negative", d)
			}
		}
		s.SetDrops(drops)
	case jt.UsesUnits():
		units := utils.Deref(in.PrimaryUnits)
		if units < 0 {
			return newValidationError("primaryUnitsCompleted", "must not be negative")
		}
		s.PrimaryUnitsCompleted = utils.Ptr(units)
	default:
		if pct := in.ManualCompletionPercentage; pct != nil {
			if *pct < 0 || *pct > 100 {
				return newValidationError("manualCompletionPercentage", "must be between 0 and 100")
			}
			s.ManualCompletionPercentage = utils.Ptr(*pct)
		}
		return nil
	}

	code := strings.TrimSpace(in.ShortfallReasonCode)
	reason := strings.TrimSpace(in.ShortfallReason)
	if err := m.Policy.Validate(project, SessionUnits(project, s), code, reason); err != nil {
		return err
	}
	if code != "" {
		s.ValidShortfallReasonCode = utils.Ptr(code)
	}
	s.ShortfallReason = reason
	return nil
}

// UpdateOverallProgress records the percentage confirmed by the last worker
// out, or leaves the project untouched when the prompt is skipped.
func (m *Manager) UpdateOverallProgress(ctx context.Context, projectID, actorID string, upd ProgressUpdate) (*model.Project, error) {
	if upd.Skip {
		log.Printf("[INFO] progress prompt skipped: project=%s actor=%s\n", projectID, actorID)
		return m.Store.FindProject(ctx, projectID)
	}
	if upd.CompletionPercentage == nil {
		return nil, newValidationError("completionPercentage", "completion percentage or skip is required")
	}
	pct := *upd.CompletionPercentage
	if pct < 0 || pct > 100 {
		return nil, newValidationError("completionPercentage", "must be between 0 and 100")
	}

	var updated model.Project
	err := m.Store.WithProject(ctx, projectID, func(tx ProjectTx) error {
		project := tx.Project()
		if project.JobType() != model.JobTypePercentageBased {
			return newValidationError("completionPercentage", "project %s is tracked in %s, not percentage", projectID, project.JobType())
		}

		previous := project.OverallCompletionPercentage
		project.OverallCompletionPercentage = utils.Ptr(pct)
		if err := tx.UpdateProject(project); err != nil {
			return err
		}
		event := newProgressEvent(projectID, actorID, model.ProgressEventOverallPercentage, pct, previous, m.now(), nil)
		if upd.SessionID != "" {
			event.SessionID = utils.Ptr(upd.SessionID)
		}
		if err := tx.AppendEvent(event); err != nil {
			return err
		}
		updated = *project
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] overall progress set: project=%s actor=%s percent=%d\n", projectID, actorID, pct)
	return &updated, nil
}

// SetAdjustments corrects the completed drop count of each named direction to
// an absolute value by rewriting only the project's signed adjustment.
func (m *Manager) SetAdjustments(ctx context.Context, projectID, actorID string, targets []DirectionTarget) (*ProjectProgress, error) {
	if err := validateTargets(targets); err != nil {
		return nil, err
	}

	var result ProjectProgress
	err := m.Store.WithProject(ctx, projectID, func(tx ProjectTx) error {
		project := tx.Project()
		if !project.JobType().UsesDrops() {
			return newValidationError("adjustments", "project %s is tracked in %s, not drops", projectID, project.JobType())
		}

		sessions, err := tx.ListSessions(SessionFilter{EndedOnly: true})
		if err != nil {
			return err
		}
		before := m.Calculator.Compute(project, sessions)

		now := m.now()
		for _, t := range targets {
			current := project.Adjustments().Get(t.Direction)
			completed := directionCompleted(before, t.Direction)
			next := ReconcileAdjustment(completed, current, t.DesiredAbsolute)
			project.SetAdjustment(t.Direction, next)

			event := newProgressEvent(projectID, actorID, model.ProgressEventAdjustment, next, utils.Ptr(current), now, map[string]any{
				"desiredAbsolute": t.DesiredAbsolute,
				"sessionSum":      completed - current,
			})
			event.Direction = utils.Ptr(t.Direction)
			if err := tx.AppendEvent(event); err != nil {
				return err
			}
		}
		if err := tx.UpdateProject(project); err != nil {
			return err
		}

		p := *project
		result = ProjectProgress{Project: &p, Progress: m.Calculator.Compute(&p, sessions)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] adjustments set: project=%s actor=%s directions=%d\n", projectID, actorID, len(targets))
	return &result, nil
}

func directionCompleted(p Progress, d model.Direction) int {
	for _, dp := range p.Directions {
		if dp.Direction == d {
			return dp.Completed
		}
	}
	return 0
}

// Progress is the read-only view used for display and reporting.
func (m *Manager) Progress(ctx context.Context, projectID string) (*ProjectProgress, error) {
	project, err := m.Store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	sessions, err := m.Store.ListSessions(ctx, projectID, SessionFilter{EndedOnly: true})
	if err != nil {
		return nil, err
	}
	return &ProjectProgress{Project: project, Progress: m.Calculator.Compute(project, sessions)}, nil
}

// RebuildProjection recomputes the project's adjustment and percentage columns
// from the progress ledger.
func (m *Manager) RebuildProjection(ctx context.Context, projectID string) (*model.Project, error) {
	var rebuilt model.Project
	err := m.Store.WithProject(ctx, projectID, func(tx ProjectTx) error {
		events, err := tx.ListEvents()
		if err != nil {
			return err
		}
		project := tx.Project()
		FoldProgressEvents(events).ApplyTo(project)
		if err := tx.UpdateProject(project); err != nil {
			return err
		}
		rebuilt = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rebuilt, nil
}

func (m *Manager) Events(ctx context.Context, projectID string) ([]model.ProgressEvent, error) {
	if _, err := m.Store.FindProject(ctx, projectID); err != nil {
		return nil, err
	}
	return m.Store.ListEvents(ctx, projectID)
}

func (m *Manager) Sessions(ctx context.Context, projectID string, filter SessionFilter) ([]model.WorkSession, error) {
	if _, err := m.Store.FindProject(ctx, projectID); err != nil {
		return nil, err
	}
	return m.Store.ListSessions(ctx, projectID, filter)
}

// ActiveSession returns the worker's open session on the project, or nil.
func (m *Manager) ActiveSession(ctx context.Context, projectID, workerID string) (*model.WorkSession, error) {
	if _, err := m.Store.FindProject(ctx, projectID); err != nil {
		return nil, err
	}
	s, err := m.Store.FindActiveSession(ctx, projectID, workerID)
	if IsNotFound(err) {
		return nil, nil
	}
	return s, err
}

func (m *Manager) Shortfalls(ctx context.Context, projectID string, filter SessionFilter) (*ShortfallReport, error) {
	project, err := m.Store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	filter.EndedOnly = true
	filter.ActiveOnly = false
	sessions, err := m.Store.ListSessions(ctx, projectID, filter)
	if err != nil {
		return nil, err
	}
	report := m.Policy.SummarizeShortfalls(project, sessions)
	return &report, nil
}

// acceptLocation never fails a transition: a missing or malformed location is
// dropped with a warning.
func acceptLocation(loc *Location, phase string, warnings *[]string) *Location {
	if loc == nil {
		*warnings = append(*warnings, fmt.Sprintf("%s location unavailable; recorded without it", phase))
		return nil
	}
	if !loc.valid() {
		log.Printf("[WARN] ignoring out of range %s location %.6f,%.6f\n", phase, loc.Latitude, loc.Longitude)
		*warnings = append(*warnings, fmt.Sprintf("%s location out of range; recorded without it", phase))
		return nil
	}
	return loc
}
