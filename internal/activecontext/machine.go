// Package activecontext tracks the project → area → site selection a
// researcher works in. Partial selections live in memory; only a complete
// triple is written to the persistent Store.
package activecontext

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"arqueo-backend/internal/apperr"
	"go.uber.org/zap"
)

type State int

const (
	Unselected State = iota
	ProjectSelected
	AreaSelected
	FullContext
)

func (s State) String() string {
	switch s {
	case ProjectSelected:
		return "project_selected"
	case AreaSelected:
		return "area_selected"
	case FullContext:
		return "full_context"
	default:
		return "unselected"
	}
}

// Triple is the persisted document, one per user.
type Triple struct {
	Project string `json:"project"`
	Area    string `json:"area"`
	Site    string `json:"site"`
}

func (t Triple) Complete() bool {
	return t.Project != "" && t.Area != "" && t.Site != ""
}

// Store persists one opaque JSON document per user. Load returns (nil, nil)
// when nothing is stored.
type Store interface {
	Load(ctx context.Context, user string) ([]byte, error)
	Save(ctx context.Context, user string, doc []byte) error
	Remove(ctx context.Context, user string) error
}

// Machine is the selection state of one user.
type Machine struct {
	mu    sync.Mutex
	user  string
	store Store
	log   *zap.Logger
	cur   Triple
	// track is told the selection after every transition.
	track func(user string, t Triple)
}

func NewMachine(user string, store Store, log *zap.Logger) *Machine {
	return &Machine{user: user, store: store, log: log}
}

func (m *Machine) stateLocked() State {
	switch {
	case m.cur.Project == "":
		return Unselected
	case m.cur.Area == "":
		return ProjectSelected
	case m.cur.Site == "":
		return AreaSelected
	default:
		return FullContext
	}
}

func (m *Machine) settleLocked() {
	if m.track != nil {
		m.track(m.user, m.cur)
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Machine) Current() Triple {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// SelectProject starts a new selection. Downstream choices and the persisted
// triple are discarded.
func (m *Machine) SelectProject(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validation("project id is required", map[string]string{"id": "required"})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.settleLocked()
	if err := m.remove(ctx); err != nil {
		return err
	}
	m.cur = Triple{Project: id}
	return nil
}

func (m *Machine) SelectArea(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validation("area id is required", map[string]string{"id": "required"})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.settleLocked()
	if m.cur.Project == "" {
		return apperr.Validation("select a project before choosing an area", nil)
	}
	if err := m.remove(ctx); err != nil {
		return err
	}
	m.cur.Area = id
	m.cur.Site = ""
	return nil
}

// SelectSite completes the triple and persists it.
func (m *Machine) SelectSite(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validation("site id is required", map[string]string{"id": "required"})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.settleLocked()
	if m.cur.Area == "" {
		return apperr.Validation("select an area before choosing a site", nil)
	}
	next := m.cur
	next.Site = id
	doc, err := json.Marshal(next)
	if err != nil {
		return apperr.Persistence("failed to encode context", err)
	}
	if err := m.store.Save(ctx, m.user, doc); err != nil {
		return apperr.Persistence("failed to save context", err)
	}
	m.cur = next
	return nil
}

func (m *Machine) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.settleLocked()
	if err := m.remove(ctx); err != nil {
		return err
	}
	m.cur = Triple{}
	return nil
}

// Rehydrate re-reads the persisted triple, last write wins. A stored triple
// replaces the in-memory selection. When nothing is stored a complete
// in-memory triple is dropped (it was cleared elsewhere) while a partial
// selection in progress is kept. Malformed or partial documents are logged,
// removed and treated as no context.
func (m *Machine) Rehydrate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.settleLocked()

	doc, err := m.store.Load(ctx, m.user)
	if err != nil {
		return apperr.Persistence("failed to load context", err)
	}
	if doc == nil {
		if m.cur.Complete() {
			m.cur = Triple{}
		}
		return nil
	}

	var t Triple
	if err := json.Unmarshal(doc, &t); err != nil || !t.Complete() {
		if err == nil {
			err = fmt.Errorf("incomplete triple %+v", t)
		}
		m.log.Warn("discarding unreadable persisted context",
			zap.String("user_id", m.user),
			zap.Error(err),
		)
		m.cur = Triple{}
		return m.remove(ctx)
	}
	m.cur = t
	return nil
}

func (m *Machine) remove(ctx context.Context) error {
	if err := m.store.Remove(ctx, m.user); err != nil {
		return apperr.Persistence("failed to clear context", err)
	}
	return nil
}

// Registry hands out per-user machines. Complete triples live in the
// store; only selections still in progress (a project, or a project and an
// area) are kept in memory, so the map is bounded by users mid-selection.
type Registry struct {
	mu      sync.Mutex
	store   Store
	log     *zap.Logger
	partial map[string]Triple
}

func NewRegistry(store Store, log *zap.Logger) *Registry {
	return &Registry{store: store, log: log, partial: map[string]Triple{}}
}

// For returns a machine for user seeded with any selection in progress and
// rehydrated from the store.
func (r *Registry) For(ctx context.Context, user string) (*Machine, error) {
	r.mu.Lock()
	m := NewMachine(user, r.store, r.log)
	m.cur = r.partial[user]
	m.track = r.track
	r.mu.Unlock()

	if err := m.Rehydrate(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Registry) track(user string, t Triple) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.Project != "" && !t.Complete() {
		r.partial[user] = t
		return
	}
	delete(r.partial, user)
}

// Pending reports how many users have a selection in progress.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.partial)
}
