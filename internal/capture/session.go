package capture

import (
	"fmt"
	"sync"
	"time"
)

// State of a recording session
type State int

const (
	StateIdle      State = iota // created, device not yet open
	StateArmed                  // device open, waiting for speech
	StateCapturing              // speech detected or hold in progress
	StateStopped                // terminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateArmed:
		return "ARMED"
	case StateCapturing:
		return "CAPTURING"
	case StateStopped:
		return "STOPPED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// TransitionError reports a state change the session does not allow
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid recording session transition %s -> %s", e.From, e.To)
}

// Session tracks one bounded recording. States only move forward;
// Stop is allowed from any live state so a timed-out ARMED session can end.
type Session struct {
	StartTime time.Time

	mu    sync.Mutex
	state State
}

// NewSession creates an IDLE session
func NewSession(now time.Time) *Session {
	return &Session{StartTime: now}
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Arm marks the device as open: IDLE -> ARMED
func (s *Session) Arm() error {
	return s.move(StateIdle, StateArmed)
}

// Begin marks capture as started: ARMED -> CAPTURING
func (s *Session) Begin() error {
	return s.move(StateArmed, StateCapturing)
}

// Stop ends the session from any non-terminal state
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return &TransitionError{From: s.state, To: StateStopped}
	}
	s.state = StateStopped
	return nil
}

func (s *Session) move(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return &TransitionError{From: s.state, To: to}
	}
	s.state = to
	return nil
}
