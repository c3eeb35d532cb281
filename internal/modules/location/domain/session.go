package domain

import (
	"errors"
	"fmt"
	"time"

	apperrors "geowatch/internal/platform/errors"
)

type State string

const (
	StateIdle                State = "idle"
	StateAcquiringPermission State = "acquiring_permission"
	StateFetchingOnce        State = "fetching_once"
	StateWatching            State = "watching"
	StateStoppingWatch       State = "stopping_watch"
)

// Transient reports whether the state rejects new operations.
func (s State) Transient() bool {
	return s == StateAcquiringPermission || s == StateFetchingOnce || s == StateStoppingWatch
}

// WatchHandle identifies the one live continuous subscription.
type WatchHandle struct {
	ID           string
	StartedAt    time.Time
	ServiceBound bool
}

// Transition is one state change, as written to the journal.
type Transition struct {
	At       time.Time
	From     State
	To       State
	HandleID string
	Reason   string
}

var ErrInvalidTransition = errors.New("invalid session transition")

var transitions = map[State][]State{
	StateIdle:                {StateAcquiringPermission},
	StateAcquiringPermission: {StateFetchingOnce, StateWatching, StateIdle},
	StateFetchingOnce:        {StateIdle},
	StateWatching:            {StateStoppingWatch},
	StateStoppingWatch:       {StateIdle},
}

// Session is the process-wide session state. It is not safe for concurrent
// use; the owner serializes access.
type Session struct {
	state     State
	handle    *WatchHandle
	lastKnown *Position
}

func NewSession() *Session {
	return &Session{state: StateIdle}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Handle() (WatchHandle, bool) {
	if s.handle == nil {
		return WatchHandle{}, false
	}
	return *s.handle, true
}

func (s *Session) LastKnown() (Position, bool) {
	if s.lastKnown == nil {
		return Position{}, false
	}
	return *s.lastKnown, true
}

// Acquire moves idle -> acquiring_permission. Any other state means an
// operation is already running.
func (s *Session) Acquire() (Transition, error) {
	if s.state != StateIdle {
		return Transition{}, fmt.Errorf("%w: session is %s", apperrors.ErrOperationInProgress, s.state)
	}
	return s.move(StateAcquiringPermission)
}

func (s *Session) BeginFetch() (Transition, error) {
	return s.move(StateFetchingOnce)
}

// BeginWatch enters watching and installs the handle in the same step.
func (s *Session) BeginWatch(handle WatchHandle) (Transition, error) {
	if handle.ID == "" {
		return Transition{}, fmt.Errorf("%w: watch handle id is required", apperrors.ErrInvalidInput)
	}
	t, err := s.move(StateWatching)
	if err != nil {
		return Transition{}, err
	}
	s.handle = &handle
	t.HandleID = handle.ID
	return t, nil
}

// Abort returns a permission or fetch step to idle.
func (s *Session) Abort() (Transition, error) {
	if s.state != StateAcquiringPermission && s.state != StateFetchingOnce {
		return Transition{}, fmt.Errorf("%w: cannot abort from %s", ErrInvalidTransition, s.state)
	}
	return s.move(StateIdle)
}

// FinishFetch stores the fix and returns to idle.
func (s *Session) FinishFetch(p Position) (Transition, error) {
	if s.state != StateFetchingOnce {
		return Transition{}, fmt.Errorf("%w: not fetching", ErrInvalidTransition)
	}
	t, err := s.move(StateIdle)
	if err != nil {
		return Transition{}, err
	}
	s.lastKnown = &p
	return t, nil
}

// Deliver records a watch fix. Deliveries for any handle other than the live
// one are stale and dropped.
func (s *Session) Deliver(handleID string, p Position) bool {
	if s.state != StateWatching || s.handle == nil || s.handle.ID != handleID {
		return false
	}
	s.lastKnown = &p
	return true
}

// IsCurrent reports whether handleID is the live watch.
func (s *Session) IsCurrent(handleID string) bool {
	return s.state == StateWatching && s.handle != nil && s.handle.ID == handleID
}

// BeginStop moves watching -> stopping_watch and hands the detached handle to
// the caller for teardown.
func (s *Session) BeginStop() (WatchHandle, Transition, error) {
	if s.state != StateWatching {
		return WatchHandle{}, Transition{}, apperrors.ErrNotWatching
	}
	handle := *s.handle
	t, err := s.move(StateStoppingWatch)
	if err != nil {
		return WatchHandle{}, Transition{}, err
	}
	s.handle = nil
	t.HandleID = handle.ID
	return handle, t, nil
}

func (s *Session) FinishStop() (Transition, error) {
	if s.state != StateStoppingWatch {
		return Transition{}, fmt.Errorf("%w: not stopping", ErrInvalidTransition)
	}
	return s.move(StateIdle)
}

// Check verifies handle presence matches the watching state.
func (s *Session) Check() error {
	if (s.handle != nil) != (s.state == StateWatching) {
		return fmt.Errorf("%w: state=%s handle=%t", ErrInvalidTransition, s.state, s.handle != nil)
	}
	return nil
}

func (s *Session) move(to State) (Transition, error) {
	for _, next := range transitions[s.state] {
		if next == to {
			t := Transition{From: s.state, To: to}
			s.state = to
			return t, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}
