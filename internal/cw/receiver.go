package cw

import (
	"strings"
	"time"
)

// ReceiveState names the timestamp-driven receiver's state machine (spec
// §4.9).
type ReceiveState int

const (
	ReceiveIdle ReceiveState = iota
	ReceiveInTone
	ReceiveAfterTone
	ReceiveEndChar
	ReceiveEndWord
	ReceiveErrChar
	ReceiveErrWord
)

// Receiver classifies a sequence of key-down/key-up timestamps into dots,
// dashes, character boundaries and word boundaries (spec §4.9). Unlike the
// tone-queue/generator side, the receiver does no timing of its own: every
// decision is driven by the timestamps the caller supplies, typically read
// straight off a hardware key or a recorded timing log.
type Receiver struct {
	timing *timingParams

	state     ReceiveState
	prevState ReceiveState

	toneStart time.Time
	lastEdge  time.Time
	haveEdge  bool

	rep strings.Builder
}

func newReceiver(timing *timingParams) *Receiver {
	return &Receiver{timing: timing}
}

// KeyDown reports a key-down edge at ts. If a prior element's trailing gap
// is pending (state ReceiveAfterTone), the gap since the last edge is
// classified first: finishedRep is non-empty exactly when that gap ended a
// character, and isWordEnd is additionally true when it ended a word.
func (r *Receiver) KeyDown(ts time.Time) (finishedRep string, isCharEnd, isWordEnd bool, err error) {
	if r.state == ReceiveInTone {
		return "", false, false, ErrOutOfOrder
	}

	if r.state == ReceiveAfterTone {
		snap := r.timing.Snapshot()
		gap := ts.Sub(r.lastEdge).Microseconds()
		if gap > snap.EOCRangeMax {
			isCharEnd = true
			if gap > 2*snap.EOCRangeMax {
				isWordEnd = true
			}
			finishedRep = r.rep.String()
			r.rep.Reset()
			r.state = boolPickReceive(isWordEnd, ReceiveEndWord, ReceiveEndChar)
		}
	}

	r.prevState = r.state
	r.state = ReceiveInTone
	r.toneStart = ts
	return finishedRep, isCharEnd, isWordEnd, nil
}

// KeyUp reports a key-up edge at ts, ending the tone that began at the last
// KeyDown. A tone shorter than the configured noise-spike threshold is
// discarded and the receiver reverts to its pre-tone state (spec §4.9:
// "noise-spike rejection").
func (r *Receiver) KeyUp(ts time.Time) error {
	if r.state != ReceiveInTone {
		return ErrOutOfOrder
	}

	duration := ts.Sub(r.toneStart).Microseconds()
	if duration < r.timing.NoiseSpikeThreshold() {
		r.state = r.prevState
		return ErrTryAgain
	}

	snap := r.timing.Snapshot()
	adaptive := r.timing.IsAdaptive()
	switch {
	case duration >= snap.DotRangeMin && duration <= snap.DotRangeMax:
		r.rep.WriteByte('.')
		if adaptive {
			r.timing.updateAdaptiveDot(duration)
		}
	case duration >= snap.DashRangeMin && duration <= snap.DashRangeMax:
		r.rep.WriteByte('-')
		if adaptive {
			r.timing.updateAdaptiveDash(duration)
		}
	default:
		if duration > snap.EOCRangeMax {
			r.state = ReceiveErrWord
		} else {
			r.state = ReceiveErrChar
		}
		r.lastEdge = ts
		r.haveEdge = true
		return ErrNotFound
	}

	r.state = ReceiveAfterTone
	r.lastEdge = ts
	r.haveEdge = true
	return nil
}

// Flush forces classification of whatever gap has elapsed since the last
// edge, for callers that know no further key events are coming (end of
// input). It is a no-op if no element is pending.
func (r *Receiver) Flush(now time.Time) (rep string, isWordEnd bool) {
	if r.state != ReceiveAfterTone {
		return "", false
	}
	snap := r.timing.Snapshot()
	gap := now.Sub(r.lastEdge).Microseconds()
	isWordEnd = gap > 2*snap.EOCRangeMax
	rep = r.rep.String()
	r.rep.Reset()
	r.state = ReceiveIdle
	return rep, isWordEnd
}

// ReceiveCharacter is a convenience wrapper resolving a finished
// representation to its character via the lookup table.
func (r *Receiver) ReceiveCharacter(rep string) (rune, error) {
	return RepresentationToCharacter(rep)
}

// Reset clears all receiver state back to idle.
func (r *Receiver) Reset() {
	r.state = ReceiveIdle
	r.prevState = ReceiveIdle
	r.haveEdge = false
	r.rep.Reset()
}

// State reports the receiver's current ReceiveState, mainly for tests and
// diagnostics.
func (r *Receiver) State() ReceiveState { return r.state }

func boolPickReceive(cond bool, ifTrue, ifFalse ReceiveState) ReceiveState {
	if cond {
		return ifTrue
	}
	return ifFalse
}
