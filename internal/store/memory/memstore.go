// Package memory is an in-process document store with optional JSON snapshots.
package memory

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"pwcal/internal/models"
	"pwcal/internal/store"
)

// MemStore is a thread-safe in-memory implementation of store.Store.
type MemStore struct {
	mu          sync.RWMutex
	projects    map[string]models.Project
	events      map[string]models.Event
	invitations map[string]models.Invitation
	seq         uint64

	txMu      sync.Mutex // Held for the duration of Atomically
	persister *Persistence
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewMemStore returns an empty store. A nil persister keeps data in memory only.
func NewMemStore(p *Persistence, logger *slog.Logger) *MemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemStore{
		projects:    make(map[string]models.Project),
		events:      make(map[string]models.Event),
		invitations: make(map[string]models.Invitation),
		persister:   p,
		logger:      logger,
	}
}

// Open loads the snapshot at path into a new store that keeps saving to it.
func Open(path string, logger *slog.Logger) (*MemStore, error) {
	p, err := NewPersistence(path)
	if err != nil {
		return nil, err
	}
	snap, err := p.Load()
	if err != nil {
		return nil, err
	}
	m := NewMemStore(p, logger)
	m.restore(snap)
	return m, nil
}

// Wait blocks until background snapshot writes finish.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// Close flushes pending snapshot writes.
func (m *MemStore) Close() error {
	m.Wait()
	return nil
}

// Atomically serialises fn against other transactions and rolls back every
// write fn made when it returns an error.
func (m *MemStore) Atomically(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	before := m.copyState()
	m.mu.RUnlock()

	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.restore(before)
		m.mu.Unlock()
		m.persist()
		return err
	}
	return nil
}

// --- Projects ---

func (m *MemStore) CreateProject(ctx context.Context, p models.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.projects[p.ID]; ok {
		m.mu.Unlock()
		return store.ErrConflict
	}
	m.projects[p.ID] = cloneProject(p)
	m.mu.Unlock()
	m.persist()
	return nil
}

func (m *MemStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	if err := ctx.Err(); err != nil {
		return models.Project{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return models.Project{}, store.ErrNotFound
	}
	return cloneProject(p), nil
}

func (m *MemStore) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch, now time.Time) error {
	return m.mutateProject(ctx, id, func(p *models.Project) {
		*p = patch.Apply(*p)
		p.UpdatedAt = now.UTC()
	})
}

func (m *MemStore) DeleteProject(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.projects[id]; !ok {
		m.mu.Unlock()
		return store.ErrNotFound
	}
	delete(m.projects, id)
	for invID, inv := range m.invitations {
		if inv.ProjectID == id {
			delete(m.invitations, invID)
		}
	}
	m.mu.Unlock()
	m.persist()
	return nil
}

func (m *MemStore) ListProjectsByMember(ctx context.Context, email string) ([]models.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []models.Project
	for _, p := range m.projects {
		if p.IsMember(email) {
			list = append(list, cloneProject(p))
		}
	}
	slices.SortFunc(list, func(a, b models.Project) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return list, nil
}

func (m *MemStore) AddProjectEditor(ctx context.Context, projectID, email string, now time.Time) error {
	return m.mutateProject(ctx, projectID, func(p *models.Project) {
		if !p.IsEditor(email) {
			p.Editors = append(p.Editors, email)
			p.UpdatedAt = now.UTC()
		}
	})
}

func (m *MemStore) RemoveProjectEditor(ctx context.Context, projectID, email string, now time.Time) error {
	return m.mutateProject(ctx, projectID, func(p *models.Project) {
		if p.IsEditor(email) {
			p.Editors = slices.DeleteFunc(p.Editors, func(e string) bool { return e == email })
			p.UpdatedAt = now.UTC()
		}
	})
}

func (m *MemStore) mutateProject(ctx context.Context, id string, fn func(p *models.Project)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	p, ok := m.projects[id]
	if !ok {
		m.mu.Unlock()
		return store.ErrNotFound
	}
	p = cloneProject(p)
	fn(&p)
	m.projects[id] = p
	m.mu.Unlock()
	m.persist()
	return nil
}

// --- Events ---

func (m *MemStore) CreateEvent(ctx context.Context, ev models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.events[ev.ID]; ok {
		m.mu.Unlock()
		return store.ErrConflict
	}
	m.events[ev.ID] = cloneEvent(ev)
	m.mu.Unlock()
	m.persist()
	return nil
}

func (m *MemStore) GetEvent(ctx context.Context, id string) (models.Event, error) {
	if err := ctx.Err(); err != nil {
		return models.Event{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return models.Event{}, store.ErrNotFound
	}
	return cloneEvent(ev), nil
}

func (m *MemStore) UpdateEvent(ctx context.Context, id string, patch models.EventPatch, entry models.EventLog) error {
	return m.mutateLiveEvent(ctx, id, func(ev *models.Event) {
		*ev = patch.Apply(*ev)
		ev.Logs = append(ev.Logs, entry)
		ev.UpdatedAt = entry.Timestamp
	})
}

func (m *MemStore) SoftDeleteEvent(ctx context.Context, id string, entry models.EventLog) error {
	return m.mutateLiveEvent(ctx, id, func(ev *models.Event) {
		ev.Deleted = true
		ev.Logs = append(ev.Logs, entry)
		ev.UpdatedAt = entry.Timestamp
	})
}

func (m *MemStore) mutateLiveEvent(ctx context.Context, id string, fn func(ev *models.Event)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	ev, ok := m.events[id]
	if !ok || ev.Deleted {
		m.mu.Unlock()
		return store.ErrNotFound
	}
	ev = cloneEvent(ev)
	fn(&ev)
	m.events[id] = ev
	m.mu.Unlock()
	m.persist()
	return nil
}

func (m *MemStore) ListProjectEvents(ctx context.Context, projectID string) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	list := make([]models.Event, 0)
	for _, ev := range m.events {
		if ev.ProjectID == projectID && !ev.Deleted {
			list = append(list, cloneEvent(ev))
		}
	}
	m.mu.RUnlock()
	store.SortEvents(list)
	return list, nil
}

// --- Invitations ---

func (m *MemStore) CreateInvitation(ctx context.Context, inv models.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.invitations[inv.ID]; ok {
		m.mu.Unlock()
		return store.ErrConflict
	}
	m.invitations[inv.ID] = inv
	m.mu.Unlock()
	m.persist()
	return nil
}

func (m *MemStore) GetInvitation(ctx context.Context, id string) (models.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return models.Invitation{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invitations[id]
	if !ok {
		return models.Invitation{}, store.ErrNotFound
	}
	return inv, nil
}

func (m *MemStore) ListInvitations(ctx context.Context, filter store.InvitationFilter) ([]models.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	list := make([]models.Invitation, 0)
	for _, inv := range m.invitations {
		if filter.Match(inv) {
			list = append(list, inv)
		}
	}
	m.mu.RUnlock()
	store.SortInvitations(list)
	return list, nil
}

func (m *MemStore) UpdateInvitationStatus(ctx context.Context, id string, from, to models.InvitationStatus, liveAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	inv, ok := m.invitations[id]
	if !ok {
		m.mu.Unlock()
		return store.ErrNotFound
	}
	if inv.Status != from || (!liveAt.IsZero() && !inv.ExpiresAt.After(liveAt)) {
		m.mu.Unlock()
		return store.ErrConflict
	}
	inv.Status = to
	m.invitations[id] = inv
	m.mu.Unlock()
	m.persist()
	return nil
}

// --- Snapshots ---

// copyState deep-copies the store. It MUST be called while holding m.mu.
func (m *MemStore) copyState() snapshot {
	snap := snapshot{
		Projects:    make(map[string]models.Project, len(m.projects)),
		Events:      make(map[string]models.Event, len(m.events)),
		Invitations: make(map[string]models.Invitation, len(m.invitations)),
	}
	for k, v := range m.projects {
		snap.Projects[k] = cloneProject(v)
	}
	for k, v := range m.events {
		snap.Events[k] = cloneEvent(v)
	}
	for k, v := range m.invitations {
		snap.Invitations[k] = v
	}
	return snap
}

// restore replaces the store contents. Callers hold m.mu or own m exclusively.
func (m *MemStore) restore(snap snapshot) {
	m.projects = make(map[string]models.Project, len(snap.Projects))
	m.events = make(map[string]models.Event, len(snap.Events))
	m.invitations = make(map[string]models.Invitation, len(snap.Invitations))
	for k, v := range snap.Projects {
		m.projects[k] = v
	}
	for k, v := range snap.Events {
		m.events[k] = v
	}
	for k, v := range snap.Invitations {
		m.invitations[k] = v
	}
}

// persist saves a copy of the current state in the background.
func (m *MemStore) persist() {
	if m.persister == nil {
		return
	}
	m.mu.Lock()
	m.seq++
	seq := m.seq
	snap := m.copyState()
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.persister.Save(seq, snap); err != nil {
			m.logger.Error("Failed to save snapshot", "path", m.persister.Path, "error", err)
		}
	}()
}

func cloneProject(p models.Project) models.Project {
	p.Editors = slices.Clone(p.Editors)
	if p.Editors == nil {
		p.Editors = []string{}
	}
	if p.LaunchDate != nil {
		d := *p.LaunchDate
		p.LaunchDate = &d
	}
	return p
}

func cloneEvent(ev models.Event) models.Event {
	ev.Participants = slices.Clone(ev.Participants)
	if ev.Participants == nil {
		ev.Participants = []string{}
	}
	ev.Logs = slices.Clone(ev.Logs)
	return ev
}

var _ store.Store = (*MemStore)(nil)
