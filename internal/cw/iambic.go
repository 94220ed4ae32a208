package cw

import (
	"sync"
	"time"

	"github.com/ColonelBlimp/gocw/internal/recovery"
)

// KeyerState names each state of the iambic keyer's element cycle (spec
// §4.8). The _A suffix marks an element sent because its own paddle was
// pressed; the _B suffix marks one sent only because Curtis mode B's
// opposite-paddle memory fired after the _A element finished.
type KeyerState int

const (
	KeyerIdle KeyerState = iota
	KeyerInDotA
	KeyerInDashA
	KeyerAfterDotA
	KeyerAfterDashA
	KeyerInDotB
	KeyerInDashB
	KeyerAfterDotB
	KeyerAfterDashB
)

// IambicKeyer implements a dual-paddle iambic keyer (spec §4.8): while one
// paddle is held, it repeats that paddle's element; squeezing both paddles
// produces an alternating stream of dots and dashes. In Curtis mode B, releasing the
// paddle that is not currently sounding during an element still produces
// one more element of the opposite kind before the keyer goes idle.
//
// Its own goroutine paces element boundaries with a time.Timer scaled to
// the current dot/dash duration, independent of how far behind the audio
// generator's real playback is -- the keyer's job is to decide what to
// enqueue next, not to sound it.
type IambicKeyer struct {
	sender *Sender
	timing *timingParams
	key    *KeyState

	mu      sync.Mutex
	cond    *sync.Cond
	curtisB bool

	state KeyerState

	// Raw paddle contacts, set by Update.
	dotPaddle  bool
	dashPaddle bool

	// Latches: memory that a paddle was pressed during the current
	// element, consumed at the next decision point (spec §4.8).
	dotLatch     bool
	dashLatch    bool
	curtisBLatch bool
	lastElementDot bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func newIambicKeyer(sender *Sender, timing *timingParams, key *KeyState) *IambicKeyer {
	k := &IambicKeyer{
		sender:  sender,
		timing:  timing,
		key:     key,
		curtisB: true,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	k.cond = sync.NewCond(&k.mu)
	return k
}

func (k *IambicKeyer) start() { go k.run() }

func (k *IambicKeyer) stop() {
	k.mu.Lock()
	select {
	case <-k.stopCh:
	default:
		close(k.stopCh)
	}
	k.cond.Broadcast()
	k.mu.Unlock()
	<-k.doneCh
}

// SetCurtisMode selects Curtis mode B (true, the common default) or mode A
// (false, no opposite-paddle memory).
func (k *IambicKeyer) SetCurtisMode(modeB bool) {
	k.mu.Lock()
	k.curtisB = modeB
	k.mu.Unlock()
}

// Update reports the current paddle contacts. Calling it is the only way
// the keyer learns about paddle state; it both updates latches for a
// currently-sounding element and wakes the keyer if it was idle.
func (k *IambicKeyer) Update(dotDown, dashDown bool) error {
	k.mu.Lock()
	k.dotPaddle = dotDown
	k.dashPaddle = dashDown
	if dotDown {
		k.dotLatch = true
	}
	if dashDown {
		k.dashLatch = true
	}
	wasIdle := k.state == KeyerIdle
	k.mu.Unlock()
	if wasIdle && (dotDown || dashDown) {
		k.mu.Lock()
		k.cond.Broadcast()
		k.mu.Unlock()
	}
	return nil
}

// IsBusy reports whether the keyer is mid-cycle.
func (k *IambicKeyer) IsBusy() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state != KeyerIdle
}

// WaitForElement blocks until the keyer returns to KeyerIdle, or returns
// ErrDeadlock if the keyer goroutine has already stopped.
func (k *IambicKeyer) WaitForElement() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for k.state != KeyerIdle {
		select {
		case <-k.stopCh:
			return ErrDeadlock
		default:
		}
		k.cond.Wait()
	}
	return nil
}

// Reset clears all latches and returns the keyer to idle.
func (k *IambicKeyer) Reset() {
	k.mu.Lock()
	k.dotPaddle, k.dashPaddle = false, false
	k.dotLatch, k.dashLatch, k.curtisBLatch = false, false, false
	k.state = KeyerIdle
	k.cond.Broadcast()
	k.mu.Unlock()
}

// run is the keyer's sole goroutine body; guarded the same way generator.run
// is, so a panic can't wedge stop()'s wait on doneCh forever.
func (k *IambicKeyer) run() {
	defer recovery.HandlePanicFunc(nil)
	defer close(k.doneCh)
	for {
		k.mu.Lock()
		for k.state == KeyerIdle && !k.dotPaddle && !k.dashPaddle {
			select {
			case <-k.stopCh:
				k.mu.Unlock()
				return
			default:
			}
			k.cond.Wait()
			select {
			case <-k.stopCh:
				k.mu.Unlock()
				return
			default:
			}
		}
		k.mu.Unlock()

		select {
		case <-k.stopCh:
			return
		default:
		}

		if k.stepElement() {
			return
		}
	}
}

// stepElement runs exactly one element (including its trailing gap) to
// completion and advances the state machine, returning true if the keyer
// was asked to stop mid-element.
func (k *IambicKeyer) stepElement() bool {
	k.mu.Lock()
	dot, dash := k.dotPaddle, k.dashPaddle
	curtisB := k.curtisB
	startFromIdle := k.state == KeyerIdle
	k.mu.Unlock()

	var sendDot bool
	var viaLatch bool // element fired from Curtis-B memory rather than direct press

	if startFromIdle {
		switch {
		case dot && dash:
			sendDot = true
		case dot:
			sendDot = true
		case dash:
			sendDot = false
		default:
			return false
		}
	} else {
		k.mu.Lock()
		switch {
		case k.curtisBLatch:
			sendDot = !k.lastWasDot()
			viaLatch = true
			k.curtisBLatch = false
		case k.dotLatch && k.dashLatch:
			sendDot = !k.lastWasDot()
		case k.dotLatch:
			sendDot = true
		case k.dashLatch:
			sendDot = false
		default:
			k.state = KeyerIdle
			k.cond.Broadcast()
			k.mu.Unlock()
			return false
		}
		k.mu.Unlock()
	}

	k.mu.Lock()
	k.dotLatch = false
	k.dashLatch = false
	if sendDot {
		if viaLatch {
			k.state = KeyerInDotB
		} else {
			k.state = KeyerInDotA
		}
	} else {
		if viaLatch {
			k.state = KeyerInDashB
		} else {
			k.state = KeyerInDashA
		}
	}
	k.mu.Unlock()

	snap := k.timing.Snapshot()
	elementUsec := snap.Dash
	if sendDot {
		elementUsec = snap.Dot
	}
	k.key.Set(true)
	if sendDot {
		_ = k.sender.SendDot()
	} else {
		_ = k.sender.SendDash()
	}

	if !k.wait(elementUsec) {
		return true
	}
	k.key.Set(false)

	k.mu.Lock()
	if sendDot {
		k.state = boolPick(viaLatch, KeyerAfterDotB, KeyerAfterDotA)
	} else {
		k.state = boolPick(viaLatch, KeyerAfterDashB, KeyerAfterDashA)
	}
	// Curtis mode B: if the element just sent was a direct press and the
	// *other* paddle was pressed at any point during it, latch one
	// opposite element to fire next before considering idle.
	if curtisB && !viaLatch {
		if sendDot && (dash || k.dashLatch || k.dashPaddle) {
			k.curtisBLatch = true
		}
		if !sendDot && (dot || k.dotLatch || k.dotPaddle) {
			k.curtisBLatch = true
		}
	}
	k.mu.Unlock()

	if !k.wait(snap.EndOfElement) {
		return true
	}

	k.mu.Lock()
	k.lastElementDot = sendDot
	k.mu.Unlock()
	return false
}

// lastElementDot and lastWasDot track which element kind most recently
// sounded, for deciding alternation when both latches are set.
func (k *IambicKeyer) lastWasDot() bool { return k.lastElementDot }

// wait pauses for usec microseconds, returning false if the keyer was
// stopped during the wait.
func (k *IambicKeyer) wait(usec int64) bool {
	if usec <= 0 {
		return true
	}
	t := time.NewTimer(time.Duration(usec) * time.Microsecond)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-k.stopCh:
		return false
	}
}

func boolPick(cond bool, ifTrue, ifFalse KeyerState) KeyerState {
	if cond {
		return ifTrue
	}
	return ifFalse
}
