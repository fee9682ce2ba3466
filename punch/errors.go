/*
errors.go - Rejections and infrastructure errors

PURPOSE:
  A punch that breaks a business rule is an expected outcome, not a fault.
  Such outcomes are returned as *Rejection values carrying a human-readable
  reason and a Kind. Everything else (store unavailable, lock failure) is an
  ordinary wrapped error for the caller to retry or surface.

REJECTION KINDS:
  1. sequence        - illegal action given history (double clock-in, ...)
  2. geofence        - coordinate outside every authorised radius
  3. schedule_window - punch outside the enforced schedule window
  4. input           - missing/invalid coordinates, malformed edits

USAGE:
  if err := engine.ValidatePunch(ctx, req, now); err != nil {
      var rej *punch.Rejection
      if errors.As(err, &rej) {
          // show rej.Reason to the user
      }
  }

SEE ALSO:
  - sequence.go, geo.go, enforcement.go: produce rejections
*/
package punch

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrInvalidAction           = errors.New("invalid action")
	ErrFirstPunchMustBeClockIn = errors.New("first punch must be clock-in")
	ErrAlreadyClockedIn        = errors.New("already clocked in")
	ErrNotClockedIn            = errors.New("must clock in before clocking out")
	ErrBreakWithoutSession     = errors.New("no open session for a break")
	ErrBreakInProgress         = errors.New("break already in progress")
	ErrNoBreakInProgress       = errors.New("no break in progress")
	ErrFixedBreakSchedule      = errors.New("schedule has a fixed break; manual breaks are not allowed")

	ErrOutsideGeofence = errors.New("not inside any authorised location")

	ErrOutsideSchedule    = errors.New("outside the authorised schedule window")
	ErrNoScheduleAssigned = errors.New("no schedule assigned")

	ErrNoLocationAssigned    = errors.New("no location assigned")
	ErrMissingCoordinate     = errors.New("device location was not provided")
	ErrInvalidCoordinate     = errors.New("invalid coordinates")
	ErrEntryAfterExit        = errors.New("entry time cannot be after exit time")
	ErrInvalidManualTime     = errors.New("invalid date/time")
	ErrInvalidBreakDuration  = errors.New("invalid break duration (use HH:MM)")
	ErrEmptyEdit             = errors.New("an entry or an exit is required")
	ErrEventMismatch         = errors.New("event does not belong to this user")
	ErrEventActionMismatch   = errors.New("event is not the expected entry or exit")
	ErrEventAlreadyEdited    = errors.New("event has already been edited")
	ErrBreakNeedsInterval    = errors.New("a break needs both an entry and an exit")
	ErrJustificationRequired = errors.New("expected time exceeded; a reason is required to clock out")

	// ErrConcurrentPunch is returned when another punch for the same user was
	// appended between the read and the write.
	ErrConcurrentPunch = errors.New("concurrent punch detected")

	ErrEventNotFound = errors.New("event not found")
	ErrUserNotFound  = errors.New("user not found")
)

// =============================================================================
// REJECTION - Expected, user-facing refusal
// =============================================================================

type RejectionKind string

const (
	KindSequence       RejectionKind = "sequence"
	KindGeofence       RejectionKind = "geofence"
	KindScheduleWindow RejectionKind = "schedule_window"
	KindInput          RejectionKind = "input"
)

type Rejection struct {
	Kind   RejectionKind
	Reason string
	Err    error

	// Margin is set for schedule-window rejections.
	Margin time.Duration
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Err }

func reject(kind RejectionKind, err error) *Rejection {
	return &Rejection{Kind: kind, Reason: err.Error(), Err: err}
}

func rejectWindow(margin time.Duration) *Rejection {
	reason := fmt.Sprintf("%s (a margin of %d minutes is applied)", ErrOutsideSchedule, int(margin/time.Minute))
	return &Rejection{Kind: KindScheduleWindow, Reason: reason, Err: ErrOutsideSchedule, Margin: margin}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRejection returns true if err is an expected business-rule refusal.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// RejectionKindOf returns the kind of a rejection, or "" for other errors.
func RejectionKindOf(err error) RejectionKind {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind
	}
	return ""
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentPunch)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) || errors.Is(err, ErrUserNotFound)
}
