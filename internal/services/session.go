package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/metrics"
	"route-planner-service/internal/platform/obs"
)

// errSuperseded stops a run whose generation is no longer current.
var errSuperseded = errors.New("planning run superseded")

const subscriberBuffer = 64

type EventKind string

const (
	EventState    EventKind = "state"
	EventProgress EventKind = "progress"
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// Event is published to subscribers as a session moves through a run.
type Event struct {
	Kind          EventKind
	State         State
	Current       int
	Total         int
	Itinerary     *domain.Itinerary
	NothingToPlan bool
	Reason        string
	Err           error
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID            string
	State         State
	Current       int
	Total         int
	Itinerary     *domain.Itinerary
	NothingToPlan bool
	Reason        string
	Err           error
	UpdatedAt     time.Time
}

// Session owns the state of successive planning runs for one caller.
//
// Only the latest run is current. Start and Reset bump the generation, and an
// older run keeps executing until its next stage or progress boundary, where
// it notices it was superseded and stops without publishing anything.
type Session struct {
	id      string
	planner *Planner
	ctx     context.Context

	mu   sync.Mutex
	gen  uint64
	snap Snapshot
	subs map[chan Event]struct{}

	runs sync.WaitGroup
}

func NewSession(ctx context.Context, id string, planner *Planner) *Session {
	return &Session{
		id:      id,
		planner: planner,
		ctx:     ctx,
		snap:    Snapshot{ID: id, State: StateIdle, UpdatedAt: time.Now()},
		subs:    make(map[chan Event]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Start validates params and begins a run in the background, superseding
// any run in progress.
func (s *Session) Start(params domain.PlanningParameters) error {
	if err := params.Validate(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.snap = Snapshot{ID: s.id, State: StateIdle, UpdatedAt: time.Now()}
	s.mu.Unlock()

	s.runs.Add(1)
	go s.run(gen, params)
	return nil
}

// Reset returns the session to Idle and discards the in-flight run, if any.
// A network call already under way is allowed to finish.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.snap = Snapshot{ID: s.id, State: StateIdle, UpdatedAt: time.Now()}
	s.publishLocked(Event{Kind: EventState, State: StateIdle})
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe returns a channel of session events and a func that ends the
// subscription and closes the channel. The current state is delivered
// first, followed by the terminal event when the run has already finished.
// Events are dropped for subscribers whose buffer is full.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- Event{Kind: EventState, State: s.snap.State, Current: s.snap.Current, Total: s.snap.Total}
	if ev, ok := terminalEvent(s.snap); ok {
		ch <- ev
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Wait blocks until every started run has returned.
func (s *Session) Wait() { s.runs.Wait() }

// Close ends every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}

func (s *Session) run(gen uint64, params domain.PlanningParameters) {
	defer s.runs.Done()

	ctx := obs.WithRunID(s.ctx, fmt.Sprintf("%s/%d", s.id, gen))
	it, err := s.planner.Plan(ctx, params, runObserver{s: s, gen: gen})

	switch {
	case errors.Is(err, errSuperseded):
		log.Printf("run_id=%s op=session.run superseded=true", obs.RunID(ctx))
		metrics.PlanningRuns.WithLabelValues("superseded").Inc()
		return
	case errors.Is(err, domain.ErrEmptyBookingSet):
		s.finish(gen, nil, true, nil)
	case err != nil && ctx.Err() != nil:
		// Lookups cut short by cancellation surface as unresolved addresses.
		s.finish(gen, nil, false, fmt.Errorf("session run: %w", ctx.Err()))
	case err != nil:
		s.finish(gen, nil, false, err)
	default:
		s.finish(gen, it, false, nil)
	}
}

// finish records the outcome of run gen unless it was superseded meanwhile.
func (s *Session) finish(gen uint64, it *domain.Itinerary, nothing bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		metrics.PlanningRuns.WithLabelValues("superseded").Inc()
		return
	}

	s.snap.UpdatedAt = time.Now()
	if err != nil {
		s.snap.State = StateFailed
		s.snap.Err = err
		s.snap.Reason = FailureReason(err)
		outcome := "failed"
		if s.snap.Reason == ReasonCancelled {
			outcome = ReasonCancelled
		}
		metrics.PlanningRuns.WithLabelValues(outcome).Inc()
	} else {
		s.snap.State = StateComplete
		s.snap.Itinerary = it
		s.snap.NothingToPlan = nothing
		outcome := "complete"
		if nothing {
			outcome = "nothing_to_plan"
		}
		metrics.PlanningRuns.WithLabelValues(outcome).Inc()
	}

	s.publishLocked(Event{Kind: EventState, State: s.snap.State})
	ev, _ := terminalEvent(s.snap)
	s.publishLocked(ev)
}

// update applies fn to the snapshot and publishes ev when gen is current.
func (s *Session) update(gen uint64, fn func(*Snapshot), ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return errSuperseded
	}
	fn(&s.snap)
	s.snap.UpdatedAt = time.Now()
	s.publishLocked(ev)
	return nil
}

func (s *Session) publishLocked(ev Event) {
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("session_id=%s op=session.publish dropped=%s", s.id, ev.Kind)
		}
	}
}

func terminalEvent(snap Snapshot) (Event, bool) {
	switch snap.State {
	case StateComplete:
		return Event{
			Kind:          EventComplete,
			State:         StateComplete,
			Itinerary:     snap.Itinerary,
			NothingToPlan: snap.NothingToPlan,
		}, true
	case StateFailed:
		return Event{Kind: EventError, State: StateFailed, Reason: snap.Reason, Err: snap.Err}, true
	default:
		return Event{}, false
	}
}

// runObserver ties a planner run to the session generation it started in.
type runObserver struct {
	s   *Session
	gen uint64
}

func (o runObserver) Transition(st State) error {
	return o.s.update(o.gen, func(snap *Snapshot) {
		snap.State = st
	}, Event{Kind: EventState, State: st})
}

func (o runObserver) Progress(current, total int) error {
	return o.s.update(o.gen, func(snap *Snapshot) {
		snap.Current = current
		snap.Total = total
	}, Event{Kind: EventProgress, State: StateGeocoding, Current: current, Total: total})
}
