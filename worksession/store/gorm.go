package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/model"
)

// GormStore persists to MySQL. WithProject runs in a transaction holding
// SELECT ... FOR UPDATE on the project row.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Models lists the tables owned by the engine, in creation order.
func Models() []interface{} {
	return []interface{}{
		&model.Project{},
		&model.WorkSession{},
		&model.ProgressEvent{},
	}
}

func (g *GormStore) FindProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	if err := g.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "project", id)
	}
	return &p, nil
}

func (g *GormStore) FindSession(ctx context.Context, id string) (*model.WorkSession, error) {
	var s model.WorkSession
	if err := g.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "session", id)
	}
	return &s, nil
}

func (g *GormStore) FindActiveSession(ctx context.Context, projectID, workerID string) (*model.WorkSession, error) {
	return findActiveSession(g.db.WithContext(ctx), projectID, workerID)
}

func (g *GormStore) ListSessions(ctx context.Context, projectID string, filter core.SessionFilter) ([]model.WorkSession, error) {
	return listSessions(g.db.WithContext(ctx), projectID, filter)
}

func (g *GormStore) ListEvents(ctx context.Context, projectID string) ([]model.ProgressEvent, error) {
	return listEvents(g.db.WithContext(ctx), projectID)
}

func (g *GormStore) WithProject(ctx context.Context, projectID string, fn func(tx core.ProjectTx) error) error {
	return g.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var p model.Project
		if err := lockProject(db, projectID).First(&p).Error; err != nil {
			return notFound(err, "project", projectID)
		}
		return fn(&gormTx{db: db, project: &p})
	})
}

func lockProject(db *gorm.DB, projectID string) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", projectID)
}

type gormTx struct {
	db      *gorm.DB
	project *model.Project
}

func (tx *gormTx) Project() *model.Project {
	return tx.project
}

func (tx *gormTx) FindSession(id string) (*model.WorkSession, error) {
	var s model.WorkSession
	if err := tx.db.Where("project_id = ?", tx.project.ID).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "session", id)
	}
	return &s, nil
}

func (tx *gormTx) FindActiveSession(workerID string) (*model.WorkSession, error) {
	return findActiveSession(tx.db, tx.project.ID, workerID)
}

func (tx *gormTx) CountActiveSessions() (int64, error) {
	var n int64
	err := activeSessions(tx.db, tx.project.ID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return n, nil
}

func (tx *gormTx) ListSessions(filter core.SessionFilter) ([]model.WorkSession, error) {
	return listSessions(tx.db, tx.project.ID, filter)
}

func (tx *gormTx) ListEvents() ([]model.ProgressEvent, error) {
	return listEvents(tx.db, tx.project.ID)
}

func (tx *gormTx) CreateSession(s *model.WorkSession) error {
	if err := tx.db.Create(s).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &core.ConflictError{Message: fmt.Sprintf("worker %s already has an active session on project %s", s.WorkerID, s.ProjectID)}
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (tx *gormTx) UpdateSession(s *model.WorkSession) error {
	if err := tx.db.Save(s).Error; err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

func (tx *gormTx) UpdateProject(p *model.Project) error {
	if err := tx.db.Save(p).Error; err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.ID, err)
	}
	tx.project = p
	return nil
}

func (tx *gormTx) AppendEvent(e *model.ProgressEvent) error {
	last, err := lastSequence(tx.db, tx.project.ID)
	if err != nil {
		return err
	}
	e.Sequence = last + 1
	if err := tx.db.Create(e).Error; err != nil {
		return fmt.Errorf("failed to append progress event: %w", err)
	}
	return nil
}

func activeSessions(db *gorm.DB, projectID string) *gorm.DB {
	return db.Model(&model.WorkSession{}).Where("project_id = ? AND end_time IS NULL", projectID)
}

func findActiveSession(db *gorm.DB, projectID, workerID string) (*model.WorkSession, error) {
	var s model.WorkSession
	err := activeSessions(db, projectID).Where("worker_id = ?", workerID).First(&s).Error
	if err != nil {
		return nil, notFound(err, "active session", projectID+"/"+workerID)
	}
	return &s, nil
}

func sessionQuery(db *gorm.DB, projectID string, f core.SessionFilter) *gorm.DB {
	query := db.Model(&model.WorkSession{}).Where("project_id = ?", projectID)
	if f.ActiveOnly {
		query = query.Where("end_time IS NULL")
	}
	if f.EndedOnly {
		query = query.Where("end_time IS NOT NULL")
	}
	if f.WorkerID != "" {
		query = query.Where("worker_id = ?", f.WorkerID)
	}
	if f.WorkDate != "" {
		query = query.Where("work_date = ?", f.WorkDate)
	}
	if f.FromDate != "" {
		query = query.Where("work_date >= ?", f.FromDate)
	}
	if f.ToDate != "" {
		query = query.Where("work_date <= ?", f.ToDate)
	}
	return query.Order("start_time ASC, id ASC")
}

func listSessions(db *gorm.DB, projectID string, f core.SessionFilter) ([]model.WorkSession, error) {
	var sessions []model.WorkSession
	if err := sessionQuery(db, projectID, f).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	return sessions, nil
}

func eventQuery(db *gorm.DB, projectID string) *gorm.DB {
	return db.Model(&model.ProgressEvent{}).Where("project_id = ?", projectID)
}

func ledgerQuery(db *gorm.DB, projectID string) *gorm.DB {
	return eventQuery(db, projectID).Order("sequence ASC, created_at ASC, id ASC")
}

func listEvents(db *gorm.DB, projectID string) ([]model.ProgressEvent, error) {
	var events []model.ProgressEvent
	if err := ledgerQuery(db, projectID).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch progress events: %w", err)
	}
	return events, nil
}

func lastSequenceQuery(db *gorm.DB, projectID string) *gorm.DB {
	return eventQuery(db, projectID).Select("COALESCE(MAX(sequence), 0)")
}

func lastSequence(db *gorm.DB, projectID string) (int64, error) {
	var last int64
	if err := lastSequenceQuery(db, projectID).Scan(&last).Error; err != nil {
		return 0, fmt.Errorf("failed to read last event sequence: %w", err)
	}
	return last, nil
}

func notFound(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &core.NotFoundError{Resource: resource, ID: id}
	}
	return fmt.Errorf("failed to fetch %s %s: %w", resource, id, err)
}
