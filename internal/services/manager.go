package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"route-planner-service/internal/domain"
)

var ErrSessionNotFound = errors.New("planning session not found")

// Handlers are the callbacks of a Manager subscription. Nil handlers are
// skipped. OnState receives every transition, including Idle after a reset.
type Handlers struct {
	OnState    func(State)
	OnProgress func(current, total int)
	OnComplete func(it *domain.Itinerary, nothingToPlan bool)
	OnError    func(reason string, err error)
}

// Manager hands out planning sessions by id.
//
// Sessions that are finished or idle are forgotten once they have not changed
// for the retention period. Eviction runs whenever a session is created.
type Manager struct {
	planner   *Planner
	retention time.Duration
	now       func() time.Time
	ctx       context.Context
	cancel    context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a Manager that evicts settled sessions after retention.
// A retention of zero or less keeps sessions until they are removed.
func NewManager(planner *Planner, retention time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		planner:   planner,
		retention: retention,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]*Session),
	}
}

// StartPlanning validates params, creates a session and starts its first run.
func (m *Manager) StartPlanning(params domain.PlanningParameters) (string, error) {
	if err := params.Validate(); err != nil {
		return "", fmt.Errorf("start planning: %w", err)
	}

	m.evictSettled()

	id := uuid.NewString()
	s := NewSession(m.ctx, id, m.planner)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	if err := s.Start(params); err != nil {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return "", fmt.Errorf("start planning: %w", err)
	}
	return id, nil
}

// Replan starts a new run on an existing session, superseding the current one.
func (m *Manager) Replan(id string, params domain.PlanningParameters) error {
	s, err := m.Session(id)
	if err != nil {
		return err
	}
	return s.Start(params)
}

// Len reports how many sessions the manager holds.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) evictSettled() {
	if m.retention <= 0 {
		return
	}
	cutoff := m.now().Add(-m.retention)

	var evicted []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		snap := s.Snapshot()
		if !snap.State.Terminal() && snap.State != StateIdle {
			continue
		}
		if snap.UpdatedAt.After(cutoff) {
			continue
		}
		delete(m.sessions, id)
		evicted = append(evicted, s)
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.Close()
	}
	if len(evicted) > 0 {
		log.Printf("op=manager.evict sessions=%d remaining=%d", len(evicted), m.Len())
	}
}

func (m *Manager) Session(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

func (m *Manager) Snapshot(id string) (Snapshot, error) {
	s, err := m.Session(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// Events subscribes to the raw event channel of a session.
func (m *Manager) Events(id string) (<-chan Event, func(), error) {
	s, err := m.Session(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.Subscribe()
	return ch, cancel, nil
}

// Subscribe dispatches session events to h on a dedicated goroutine until
// the returned cancel func is called or the session is removed.
func (m *Manager) Subscribe(id string, h Handlers) (func(), error) {
	ch, cancel, err := m.Events(id)
	if err != nil {
		return nil, err
	}

	go func() {
		for ev := range ch {
			dispatch(h, ev)
		}
	}()
	return cancel, nil
}

func dispatch(h Handlers, ev Event) {
	switch ev.Kind {
	case EventState:
		if h.OnState != nil {
			h.OnState(ev.State)
		}
	case EventProgress:
		if h.OnProgress != nil {
			h.OnProgress(ev.Current, ev.Total)
		}
	case EventComplete:
		if h.OnComplete != nil {
			h.OnComplete(ev.Itinerary, ev.NothingToPlan)
		}
	case EventError:
		if h.OnError != nil {
			h.OnError(ev.Reason, ev.Err)
		}
	}
}

func (m *Manager) Reset(id string) error {
	s, err := m.Session(id)
	if err != nil {
		return err
	}
	s.Reset()
	return nil
}

// Remove resets the session, closes its subscriptions and forgets it.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}

	s.Reset()
	s.Close()
	return nil
}

// Shutdown cancels in-flight runs and waits for them until ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		for _, s := range sessions {
			s.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("manager shutdown: %w", ctx.Err())
	}
}
