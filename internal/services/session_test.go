package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/ports"
)

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func statesOf(events []Event) []State {
	var out []State
	for _, ev := range events {
		if ev.Kind == EventState {
			out = append(out, ev.State)
		}
	}
	return out
}

func kindsOf(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func twoStopPlanner(geocoder ports.Geocoder) *Planner {
	return NewPlanner(
		fakeBookings{bookings: []domain.Booking{booking("1", "near road"), booking("2", "far road")}},
		geocoder,
		&fakeRouter{err: domain.ErrRoutingUnavailable},
		30,
	)
}

func TestSessionCompletesRun(t *testing.T) {
	s := NewSession(context.Background(), "s1", twoStopPlanner(parisGeocoder()))
	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Start(parisParams()))
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, StateComplete, snap.State)
	require.NotNil(t, snap.Itinerary)
	assert.Len(t, snap.Itinerary.Stops, 2)
	assert.Equal(t, 3, snap.Current)
	assert.Equal(t, 3, snap.Total)
	assert.NoError(t, snap.Err)

	events := drain(ch)
	assert.Equal(t, []State{
		StateIdle,
		StateFetchingBookings,
		StateGeocoding,
		StateOptimizing,
		StateRoadRouting,
		StateScheduling,
		StateComplete,
	}, statesOf(events))

	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Kind)
	assert.Same(t, snap.Itinerary, last.Itinerary)

	var progress int
	for _, ev := range events {
		if ev.Kind == EventProgress {
			progress++
		}
	}
	assert.Equal(t, 3, progress)
}

func TestSessionFailsWithReason(t *testing.T) {
	s := NewSession(context.Background(), "s1", twoStopPlanner(parisGeocoder()))

	params := parisParams()
	params.StartAddress = "atlantis"
	require.NoError(t, s.Start(params))
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "start_unresolved", snap.Reason)
	assert.ErrorIs(t, snap.Err, domain.ErrStartUnresolved)
	assert.Nil(t, snap.Itinerary)

	// A late subscriber still learns the outcome.
	ch, cancel := s.Subscribe()
	defer cancel()
	events := drain(ch)
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[1].Kind)
	assert.Equal(t, "start_unresolved", events[1].Reason)
}

func TestSessionNothingToPlan(t *testing.T) {
	p := NewPlanner(fakeBookings{}, parisGeocoder(), &fakeRouter{}, 30)
	s := NewSession(context.Background(), "s1", p)

	require.NoError(t, s.Start(parisParams()))
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, StateComplete, snap.State)
	assert.True(t, snap.NothingToPlan)
	assert.Nil(t, snap.Itinerary)
	assert.NoError(t, snap.Err)
}

func TestSessionStartRejectsInvalidParameters(t *testing.T) {
	s := NewSession(context.Background(), "s1", twoStopPlanner(parisGeocoder()))

	params := parisParams()
	params.StartAddress = ""
	assert.ErrorIs(t, s.Start(params), domain.ErrInvalidParameters)
	assert.Equal(t, StateIdle, s.Snapshot().State)
}

func TestSessionResetDiscardsInFlightRun(t *testing.T) {
	gate := newGateGeocoder(parisGeocoder())
	s := NewSession(context.Background(), "s1", twoStopPlanner(gate))
	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Start(parisParams()))
	<-gate.entered

	s.Reset()
	assert.Equal(t, StateIdle, s.Snapshot().State)

	close(gate.release)
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Itinerary)
	assert.Zero(t, snap.Total)

	events := drain(ch)
	assert.NotContains(t, kindsOf(events), EventComplete)
	assert.NotContains(t, kindsOf(events), EventProgress)
	assert.Equal(t, StateIdle, events[len(events)-1].State)
}

func TestSessionRestartSupersedesRun(t *testing.T) {
	gate := newGateGeocoder(parisGeocoder())
	s := NewSession(context.Background(), "s1", twoStopPlanner(gate))

	require.NoError(t, s.Start(parisParams()))
	<-gate.entered

	// The second run's first lookup queues behind the same gate.
	second := parisParams()
	second.StartTime = "10:00"
	require.NoError(t, s.Start(second))

	close(gate.release)
	s.Wait()

	snap := s.Snapshot()
	require.Equal(t, StateComplete, snap.State)
	assert.Equal(t, at(10, 0), snap.Itinerary.StartTime)
}

func TestSessionSubscribeCancelIsIdempotent(t *testing.T) {
	s := NewSession(context.Background(), "s1", twoStopPlanner(parisGeocoder()))
	ch, cancel := s.Subscribe()

	cancel()
	cancel()
	s.Close()

	_, ok := <-ch
	assert.True(t, ok, "initial state event is still buffered")
	_, ok = <-ch
	assert.False(t, ok)
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(twoStopPlanner(parisGeocoder()), 0)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})

	_, err := m.StartPlanning(domain.PlanningParameters{Date: planDate(), StartTime: "08:00"})
	require.ErrorIs(t, err, domain.ErrInvalidParameters)

	id, err := m.StartPlanning(parisParams())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var (
		mu       sync.Mutex
		progress [][2]int
	)
	done := make(chan *domain.Itinerary, 1)
	cancel, err := m.Subscribe(id, Handlers{
		OnProgress: func(current, total int) {
			mu.Lock()
			progress = append(progress, [2]int{current, total})
			mu.Unlock()
		},
		OnComplete: func(it *domain.Itinerary, _ bool) { done <- it },
		OnError:    func(reason string, err error) { t.Errorf("unexpected failure %s: %v", reason, err) },
	})
	require.NoError(t, err)
	defer cancel()

	select {
	case it := <-done:
		require.NotNil(t, it)
		assert.Len(t, it.Stops, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("planning did not complete")
	}

	snap, err := m.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, snap.State)
	assert.Equal(t, id, snap.ID)

	require.NoError(t, m.Reset(id))
	snap, err = m.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)

	require.NoError(t, m.Remove(id))
	_, err = m.Snapshot(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Reset(id), ErrSessionNotFound)

	_, err = m.Subscribe("missing", Handlers{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionCancelledRunReportsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := newBlockingGeocoder()
	s := NewSession(ctx, "s1", twoStopPlanner(g))
	require.NoError(t, s.Start(parisParams()))

	<-g.entered
	cancel()
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, ReasonCancelled, snap.Reason)
	assert.ErrorIs(t, snap.Err, context.Canceled)
}

func TestFailureReasonCancelled(t *testing.T) {
	assert.Equal(t, ReasonCancelled, FailureReason(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, ReasonCancelled, FailureReason(context.DeadlineExceeded))
}

func TestManagerReplan(t *testing.T) {
	m := NewManager(twoStopPlanner(parisGeocoder()), 0)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})

	id, err := m.StartPlanning(parisParams())
	require.NoError(t, err)
	s, err := m.Session(id)
	require.NoError(t, err)
	s.Wait()

	later := parisParams()
	later.StartTime = "09:00"
	require.NoError(t, m.Replan(id, later))
	s.Wait()

	snap, err := m.Snapshot(id)
	require.NoError(t, err)
	require.Equal(t, StateComplete, snap.State)
	require.NotNil(t, snap.Itinerary)
	assert.Equal(t, at(9, 0), snap.Itinerary.StartTime)
	assert.Equal(t, at(9, 15), snap.Itinerary.Stops[0].EstimatedArrival)

	bad := parisParams()
	bad.StartAddress = ""
	assert.ErrorIs(t, m.Replan(id, bad), domain.ErrInvalidParameters)
	assert.ErrorIs(t, m.Replan("missing", later), ErrSessionNotFound)
}

func TestManagerEvictsSettledSessions(t *testing.T) {
	gate := newGateGeocoder(parisGeocoder())
	m := NewManager(twoStopPlanner(gate), time.Minute)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})

	running, err := m.StartPlanning(parisParams())
	require.NoError(t, err)
	<-gate.entered

	finished, err := m.StartPlanning(parisParams())
	require.NoError(t, err)
	s, err := m.Session(finished)
	require.NoError(t, err)
	s.Wait()
	require.Equal(t, 2, m.Len())

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	fresh, err := m.StartPlanning(parisParams())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	_, err = m.Session(finished)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Session(running)
	assert.NoError(t, err)
	_, err = m.Session(fresh)
	assert.NoError(t, err)

	close(gate.release)
}

func TestManagerRemoveShrinksSessions(t *testing.T) {
	m := NewManager(twoStopPlanner(parisGeocoder()), 0)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})

	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		id, err := m.StartPlanning(parisParams())
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.Equal(t, 10, m.Len())

	for _, id := range ids {
		require.NoError(t, m.Remove(id))
	}
	assert.Zero(t, m.Len())
}
