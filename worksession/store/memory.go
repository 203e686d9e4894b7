package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ropeaccess.com/crewtrack/utils"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/model"
)

// MemoryStore keeps everything in process. It backs tests and dry runs; a
// per-project mutex gives WithProject the same exclusion the row lock gives GormStore.
type MemoryStore struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	projects map[string]model.Project
	sessions map[string]model.WorkSession
	events   []model.ProgressEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:    make(map[string]*sync.Mutex),
		projects: make(map[string]model.Project),
		sessions: make(map[string]model.WorkSession),
	}
}

func (m *MemoryStore) AddProject(p model.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

func (m *MemoryStore) AddSession(s model.WorkSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *MemoryStore) FindProject(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, &core.NotFoundError{Resource: "project", ID: id}
	}
	return &p, nil
}

func (m *MemoryStore) FindSession(_ context.Context, id string) (*model.WorkSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, &core.NotFoundError{Resource: "session", ID: id}
	}
	return &s, nil
}

func (m *MemoryStore) FindActiveSession(_ context.Context, projectID, workerID string) (*model.WorkSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return findActive(m.sessionsOf(projectID, nil), projectID, workerID)
}

func (m *MemoryStore) ListSessions(_ context.Context, projectID string, filter core.SessionFilter) ([]model.WorkSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filterSessions(m.sessionsOf(projectID, nil), filter), nil
}

func (m *MemoryStore) ListEvents(_ context.Context, projectID string) ([]model.ProgressEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsOf(projectID, nil), nil
}

func (m *MemoryStore) WithProject(ctx context.Context, projectID string, fn func(tx core.ProjectTx) error) error {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	project, err := m.FindProject(ctx, projectID)
	if err != nil {
		return err
	}

	tx := &memoryTx{
		store:    m,
		project:  project,
		sessions: make(map[string]model.WorkSession),
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.commit(tx)
	return nil
}

func (m *MemoryStore) projectLock(projectID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[projectID] = l
	}
	return l
}

func (m *MemoryStore) commit(tx *memoryTx) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.projectDirty {
		m.projects[tx.project.ID] = *tx.project
	}
	for id, s := range tx.sessions {
		m.sessions[id] = s
	}
	m.events = append(m.events, tx.events...)
}

// sessionsOf returns the project's sessions with staged writes laid over them.
// Callers hold m.mu.
func (m *MemoryStore) sessionsOf(projectID string, staged map[string]model.WorkSession) []model.WorkSession {
	merged := make(map[string]model.WorkSession)
	for id, s := range m.sessions {
		if s.ProjectID == projectID {
			merged[id] = s
		}
	}
	for id, s := range staged {
		if s.ProjectID == projectID {
			merged[id] = s
		}
	}
	out := make([]model.WorkSession, 0, len(merged))
	for _, s := range merged {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryStore) eventsOf(projectID string, staged []model.ProgressEvent) []model.ProgressEvent {
	all := append(utils.Filter(m.events, func(e model.ProgressEvent) bool { return e.ProjectID == projectID }), staged...)
	core.SortLedger(all)
	return all
}

type memoryTx struct {
	store        *MemoryStore
	project      *model.Project
	projectDirty bool
	sessions     map[string]model.WorkSession
	events       []model.ProgressEvent
}

func (tx *memoryTx) view() []model.WorkSession {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return tx.store.sessionsOf(tx.project.ID, tx.sessions)
}

func (tx *memoryTx) Project() *model.Project {
	return tx.project
}

func (tx *memoryTx) FindSession(id string) (*model.WorkSession, error) {
	found := utils.Find(tx.view(), func(s model.WorkSession) bool { return s.ID == id })
	if found == nil {
		return nil, &core.NotFoundError{Resource: "session", ID: id}
	}
	return found, nil
}

func (tx *memoryTx) FindActiveSession(workerID string) (*model.WorkSession, error) {
	return findActive(tx.view(), tx.project.ID, workerID)
}

func (tx *memoryTx) CountActiveSessions() (int64, error) {
	return int64(len(filterSessions(tx.view(), core.SessionFilter{ActiveOnly: true}))), nil
}

func (tx *memoryTx) ListSessions(filter core.SessionFilter) ([]model.WorkSession, error) {
	return filterSessions(tx.view(), filter), nil
}

func (tx *memoryTx) ListEvents() ([]model.ProgressEvent, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return tx.store.eventsOf(tx.project.ID, tx.events), nil
}

func (tx *memoryTx) CreateSession(s *model.WorkSession) error {
	if s.ProjectID != tx.project.ID {
		return fmt.Errorf("session %s belongs to project %s, not %s", s.ID, s.ProjectID, tx.project.ID)
	}
	if s.Active() {
		if _, err := tx.FindActiveSession(s.WorkerID); err == nil {
			return &core.ConflictError{Message: fmt.Sprintf("worker %s already has an active session on project %s", s.WorkerID, s.ProjectID)}
		}
	}
	if _, err := tx.FindSession(s.ID); err == nil {
		return &core.ConflictError{Message: fmt.Sprintf("session %s already exists", s.ID)}
	}
	tx.sessions[s.ID] = *s
	return nil
}

func (tx *memoryTx) UpdateSession(s *model.WorkSession) error {
	if _, err := tx.FindSession(s.ID); err != nil {
		return err
	}
	tx.sessions[s.ID] = *s
	return nil
}

func (tx *memoryTx) UpdateProject(p *model.Project) error {
	if p.ID != tx.project.ID {
		return fmt.Errorf("project %s is not locked in this transaction", p.ID)
	}
	*tx.project = *p
	tx.projectDirty = true
	return nil
}

func (tx *memoryTx) AppendEvent(e *model.ProgressEvent) error {
	ledger, err := tx.ListEvents()
	if err != nil {
		return err
	}
	var last int64
	for _, existing := range ledger {
		last = max(last, existing.Sequence)
	}
	e.Sequence = last + 1
	tx.events = append(tx.events, *e)
	return nil
}

func findActive(sessions []model.WorkSession, projectID, workerID string) (*model.WorkSession, error) {
	found := utils.Find(sessions, func(s model.WorkSession) bool { return s.WorkerID == workerID && s.Active() })
	if found == nil {
		return nil, &core.NotFoundError{Resource: "active session", ID: projectID + "/" + workerID}
	}
	return found, nil
}

func filterSessions(sessions []model.WorkSession, f core.SessionFilter) []model.WorkSession {
	return utils.Filter(sessions, func(s model.WorkSession) bool {
		switch {
		case f.ActiveOnly && !s.Active():
			return false
		case f.EndedOnly && s.Active():
			return false
		case f.WorkerID != "" && s.WorkerID != f.WorkerID:
			return false
		case f.WorkDate != "" && s.WorkDate != f.WorkDate:
			return false
		case f.FromDate != "" && s.WorkDate < f.FromDate:
			return false
		case f.ToDate != "" && s.WorkDate > f.ToDate:
			return false
		}
		return true
	})
}
