package core

import (
	"context"

	"ropeaccess.com/crewtrack/worksession/model"
)

// SessionFilter narrows ListSessions. Zero values match everything.
type SessionFilter struct {
	ActiveOnly bool
	EndedOnly  bool
	WorkerID   string
	WorkDate   string
	// inclusive yyyy-MM-dd bounds on WorkDate
	FromDate string
	ToDate   string
}

// Store persists projects, sessions and the progress ledger. Lookups that find
// nothing return a *NotFoundError.
type Store interface {
	FindProject(ctx context.Context, id string) (*model.Project, error)
	FindSession(ctx context.Context, id string) (*model.WorkSession, error)
	FindActiveSession(ctx context.Context, projectID, workerID string) (*model.WorkSession, error)
	ListSessions(ctx context.Context, projectID string, filter SessionFilter) ([]model.WorkSession, error)
	ListEvents(ctx context.Context, projectID string) ([]model.ProgressEvent, error)

	// WithProject runs fn with the project locked against other WithProject calls
	// for the same project. Writes made through tx commit together or not at all.
	WithProject(ctx context.Context, projectID string, fn func(tx ProjectTx) error) error
}

// ProjectTx is the write side of Store, scoped to one locked project.
type ProjectTx interface {
	Project() *model.Project
	FindSession(id string) (*model.WorkSession, error)
	FindActiveSession(workerID string) (*model.WorkSession, error)
	CountActiveSessions() (int64, error)
	ListSessions(filter SessionFilter) ([]model.WorkSession, error)
	ListEvents() ([]model.ProgressEvent, error)
	CreateSession(s *model.WorkSession) error
	UpdateSession(s *model.WorkSession) error
	UpdateProject(p *model.Project) error
	// AppendEvent sets e.Sequence to one past the project's last event.
	AppendEvent(e *model.ProgressEvent) error
}
