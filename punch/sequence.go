/*
sequence.go - Punch admission state machine

PURPOSE:
  Decides whether an action is legal given what the user has already
  punched. The state is never cached in memory: it is derived from the most
  recent work event and the most recent break event after it, both read from
  the store inside the same transaction that appends the new punch.

STATES:
  no-session            nothing open (initial and terminal state)
  session-open          clock_in without clock_out
  session-open+break    ... and a break_start without break_end

TRANSITIONS:
  no-session   --clock_in-->     session-open
  session-open --clock_out-->    no-session
  session-open --break_start-->  break-open
  break-open   --break_end-->    session-open
  break-open   --clock_out-->    no-session   (clock_out closes the break)

  Anything else is a sequence rejection.

SEE ALSO:
  - engine.go: Reads the session from the store and applies the gate
*/
package punch

import "sort"

// =============================================================================
// SESSION STATE
// =============================================================================

type SessionState int

const (
	NoSession SessionState = iota
	SessionOpen
	BreakOpen
)

func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "session_open"
	case BreakOpen:
		return "break_open"
	default:
		return "no_session"
	}
}

// Session is the derived position of a user in the state machine.
type Session struct {
	State SessionState

	// HasHistory is false until the user has punched clock_in or clock_out.
	HasHistory bool

	ClockIn    *PunchEvent // set while a session is open
	BreakStart *PunchEvent // set while a break is open
}

// DeriveSession builds the session from the latest work event and the latest
// break event. Break events that predate the open clock_in are ignored.
func DeriveSession(lastWork, lastBreak *PunchEvent) Session {
	if lastWork == nil {
		return Session{State: NoSession}
	}
	s := Session{HasHistory: true}
	if lastWork.Action != ActionClockIn {
		s.State = NoSession
		return s
	}
	clockIn := *lastWork
	s.State = SessionOpen
	s.ClockIn = &clockIn
	if lastBreak != nil && lastBreak.Action == ActionBreakStart && !lastBreak.At.Before(lastWork.At) {
		start := *lastBreak
		s.State = BreakOpen
		s.BreakStart = &start
	}
	return s
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Admit checks action against the session and returns the state it leads to.
func (s Session) Admit(action Action) (SessionState, error) {
	switch action {
	case ActionClockIn:
		if s.State != NoSession {
			return s.State, reject(KindSequence, ErrAlreadyClockedIn)
		}
		return SessionOpen, nil

	case ActionClockOut:
		if s.State == NoSession {
			if !s.HasHistory {
				return s.State, reject(KindSequence, ErrFirstPunchMustBeClockIn)
			}
			return s.State, reject(KindSequence, ErrNotClockedIn)
		}
		return NoSession, nil

	case ActionBreakStart:
		switch s.State {
		case NoSession:
			return s.State, reject(KindSequence, ErrBreakWithoutSession)
		case BreakOpen:
			return s.State, reject(KindSequence, ErrBreakInProgress)
		}
		return BreakOpen, nil

	case ActionBreakEnd:
		if s.State != BreakOpen {
			return s.State, reject(KindSequence, ErrNoBreakInProgress)
		}
		return SessionOpen, nil
	}
	return s.State, reject(KindInput, ErrInvalidAction)
}

// apply advances the session after an admitted event.
func (s Session) apply(e PunchEvent) Session {
	switch e.Action {
	case ActionClockIn:
		ev := e
		return Session{State: SessionOpen, HasHistory: true, ClockIn: &ev}
	case ActionClockOut:
		return Session{State: NoSession, HasHistory: true}
	case ActionBreakStart:
		ev := e
		s.State = BreakOpen
		s.BreakStart = &ev
	case ActionBreakEnd:
		s.State = SessionOpen
		s.BreakStart = nil
	}
	return s
}

// Replay folds a full history through the gate in timestamp order and
// returns the resulting session, or the first rejection encountered.
func Replay(events []PunchEvent) (Session, error) {
	sorted := make([]PunchEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].before(sorted[j]) })

	s := Session{}
	for _, e := range sorted {
		if _, err := s.Admit(e.Action); err != nil {
			return s, err
		}
		s = s.apply(e)
	}
	return s, nil
}
