package punch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MANUAL INTERVAL EDITS
// =============================================================================

// ManualPunch is an administrator-supplied side of an interval.
type ManualPunch struct {
	At    time.Time
	Coord *Coordinate
}

// IntervalEdit amends or creates one interval. Existing sides are referenced
// by ID; a side with an ID but no ManualPunch is left untouched, a side with
// a ManualPunch and no ID is created.
type IntervalEdit struct {
	UserID     UserID
	ClockInID  EventID
	ClockOutID EventID
	ClockIn    *ManualPunch
	ClockOut   *ManualPunch

	// Break, when set, replaces every break inside the interval with one
	// break of this length centred on the interval midpoint. Both sides
	// must be given, by ID or as a ManualPunch.
	Break *time.Duration

	EditorID string
	EditorIP string
}

// EditResult is the interval as it stands after the edit.
type EditResult struct {
	ClockIn  *PunchEvent
	ClockOut *PunchEvent
	Breaks   []PunchEvent
}

// ParseBreakHHMM parses a manual break length such as "00:45".
func ParseBreakHHMM(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, reject(KindInput, ErrInvalidBreakDuration)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &h, &m); err != nil || h < 0 || m < 0 || m > 59 {
		return 0, reject(KindInput, ErrInvalidBreakDuration)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// EditInterval applies an administrator correction. Every write happens in
// one transaction: if the resulting entry is after the exit nothing is
// persisted. Edited events are kept and marked with an EditRecord.
func (e *Engine) EditInterval(ctx context.Context, edit IntervalEdit) (EditResult, error) {
	log := e.logger(ctx, "edit_interval", "user_id", edit.UserID, "editor_id", edit.EditorID)
	if edit.ClockIn == nil && edit.ClockOut == nil && edit.ClockInID == "" && edit.ClockOutID == "" {
		return EditResult{}, reject(KindInput, ErrEmptyEdit)
	}
	if edit.Break != nil {
		if *edit.Break < 0 {
			return EditResult{}, reject(KindInput, ErrInvalidBreakDuration)
		}
		if (edit.ClockInID == "" && edit.ClockIn == nil) || (edit.ClockOutID == "" && edit.ClockOut == nil) {
			return EditResult{}, reject(KindInput, ErrBreakNeedsInterval)
		}
	}
	for _, side := range []*ManualPunch{edit.ClockIn, edit.ClockOut} {
		if side == nil {
			continue
		}
		if side.At.IsZero() {
			return EditResult{}, reject(KindInput, ErrInvalidManualTime)
		}
		if side.Coord != nil && !side.Coord.Valid() {
			return EditResult{}, reject(KindInput, ErrInvalidCoordinate)
		}
	}

	unlock := e.locks.Lock(edit.UserID)
	defer unlock()
	now := e.now().UTC()

	var result EditResult
	err := e.Store.WithUserTx(ctx, edit.UserID, func(tx EventStore) error {
		in, err := e.applySide(ctx, tx, edit, ActionClockIn, edit.ClockInID, edit.ClockIn, now)
		if err != nil {
			return err
		}
		out, err := e.applySide(ctx, tx, edit, ActionClockOut, edit.ClockOutID, edit.ClockOut, now)
		if err != nil {
			return err
		}
		if in != nil && out != nil && in.At.After(out.At) {
			return reject(KindInput, ErrEntryAfterExit)
		}
		result.ClockIn, result.ClockOut = in, out

		if edit.Break != nil {
			breaks, err := e.replaceBreaks(ctx, tx, edit, *in, *out, *edit.Break, now)
			if err != nil {
				return err
			}
			result.Breaks = breaks
		}
		return nil
	})
	if err != nil {
		if IsRejection(err) {
			log.Info("edit rejected", "reason", err.Error())
		} else {
			log.Error("edit failed", "error", err)
		}
		return EditResult{}, err
	}
	log.Info("interval edited")
	return result, nil
}

// applySide amends, creates or just loads one side of the interval.
func (e *Engine) applySide(ctx context.Context, tx EventStore, edit IntervalEdit, action Action, id EventID, manual *ManualPunch, now time.Time) (*PunchEvent, error) {
	var current *PunchEvent
	if id != "" {
		ev, err := tx.Event(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load %s event: %w", action, err)
		}
		if ev.UserID != edit.UserID {
			return nil, reject(KindInput, ErrEventMismatch)
		}
		if ev.Action != action {
			return nil, reject(KindInput, ErrEventActionMismatch)
		}
		current = &ev
	}
	if manual == nil {
		return current, nil
	}

	replacement := PunchEvent{
		ID:        EventID(e.newID()),
		UserID:    edit.UserID,
		Action:    action,
		At:        manual.At.UTC(),
		Coord:     manual.Coord,
		CreatedAt: now,
	}
	newID, err := tx.Append(ctx, replacement)
	if err != nil {
		return nil, fmt.Errorf("append %s event: %w", action, err)
	}
	replacement.ID = newID

	if current != nil {
		rec := EditRecord{
			ID:            e.newID(),
			EventID:       current.ID,
			Kind:          EditAmend,
			ReplacementID: newID,
			EditorID:      edit.EditorID,
			EditorIP:      edit.EditorIP,
			EditedAt:      now,
			Previous:      *current,
		}
		if err := recordEdit(ctx, tx, rec); err != nil {
			return nil, err
		}
	}
	return &replacement, nil
}

// replaceBreaks retracts the breaks inside [in, out] and, for a positive
// length, appends one break centred on the midpoint, clamped to the interval.
func (e *Engine) replaceBreaks(ctx context.Context, tx EventStore, edit IntervalEdit, in, out PunchEvent, length time.Duration, now time.Time) ([]PunchEvent, error) {
	existing, err := tx.EventsInRange(ctx, edit.UserID, in.At, out.At.Add(time.Nanosecond))
	if err != nil {
		return nil, fmt.Errorf("load breaks: %w", err)
	}
	for _, ev := range existing {
		if !ev.Action.IsBreak() {
			continue
		}
		if err := e.retract(ctx, tx, ev, edit.EditorID, edit.EditorIP, now); err != nil {
			return nil, err
		}
	}
	if length <= 0 {
		return nil, nil
	}

	span := out.At.Sub(in.At)
	length = min(length, span)
	start := in.At.Add(span / 2).Add(-length / 2)

	var added []PunchEvent
	for _, b := range []struct {
		action Action
		at     time.Time
		coord  *Coordinate
	}{
		{ActionBreakStart, start, in.Coord},
		{ActionBreakEnd, start.Add(length), out.Coord},
	} {
		ev := PunchEvent{
			ID:        EventID(e.newID()),
			UserID:    edit.UserID,
			Action:    b.action,
			At:        b.at,
			Coord:     b.coord,
			CreatedAt: now,
		}
		id, err := tx.Append(ctx, ev)
		if err != nil {
			return nil, fmt.Errorf("append %s event: %w", b.action, err)
		}
		ev.ID = id
		added = append(added, ev)
	}
	return added, nil
}

func (e *Engine) retract(ctx context.Context, tx EventStore, ev PunchEvent, editorID, editorIP string, now time.Time) error {
	rec := EditRecord{
		ID:       e.newID(),
		EventID:  ev.ID,
		Kind:     EditRetract,
		EditorID: editorID,
		EditorIP: editorIP,
		EditedAt: now,
		Previous: ev,
	}
	return recordEdit(ctx, tx, rec)
}

// recordEdit stores rec. An event is edited at most once, so a second edit
// of the same event is refused as bad input.
func recordEdit(ctx context.Context, tx EventStore, rec EditRecord) error {
	err := tx.RecordEdit(ctx, rec)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEventAlreadyEdited):
		return reject(KindInput, ErrEventAlreadyEdited)
	default:
		return fmt.Errorf("record %s edit: %w", rec.Kind, err)
	}
}

// RetractInterval removes both sides of an interval and the breaks between
// them from every future read. The events stay in the store with an
// EditRecord of kind retract.
func (e *Engine) RetractInterval(ctx context.Context, user UserID, clockIn, clockOut EventID, editorID, editorIP string) error {
	if clockIn == "" && clockOut == "" {
		return reject(KindInput, ErrEmptyEdit)
	}
	unlock := e.locks.Lock(user)
	defer unlock()
	now := e.now().UTC()

	return e.Store.WithUserTx(ctx, user, func(tx EventStore) error {
		var sides []PunchEvent
		for _, side := range []struct {
			id     EventID
			action Action
		}{
			{clockIn, ActionClockIn},
			{clockOut, ActionClockOut},
		} {
			if side.id == "" {
				continue
			}
			ev, err := tx.Event(ctx, side.id)
			if err != nil {
				return fmt.Errorf("load event: %w", err)
			}
			if ev.UserID != user {
				return reject(KindInput, ErrEventMismatch)
			}
			if ev.Action != side.action {
				return reject(KindInput, ErrEventActionMismatch)
			}
			sides = append(sides, ev)
		}
		if len(sides) == 2 {
			in, out := sides[0], sides[1]
			if in.At.After(out.At) {
				return reject(KindInput, ErrEntryAfterExit)
			}
			edit := IntervalEdit{UserID: user, EditorID: editorID, EditorIP: editorIP}
			if _, err := e.replaceBreaks(ctx, tx, edit, in, out, 0, now); err != nil {
				return err
			}
		}
		for _, ev := range sides {
			if err := e.retract(ctx, tx, ev, editorID, editorIP, now); err != nil {
				return err
			}
		}
		e.logger(ctx, "retract_interval", "user_id", user).Info("interval retracted", "events", len(sides))
		return nil
	})
}
