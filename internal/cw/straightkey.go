package cw

// StraightKey drives the tone queue directly from external key-down/key-up
// events (spec §4.7), bypassing the iambic keyer's element timing
// entirely: a straight key is keyed for exactly as long as the operator
// holds it.
type StraightKey struct {
	queue  *ToneQueue
	timing *timingParams
	key    *KeyState
}

func newStraightKey(queue *ToneQueue, timing *timingParams, key *KeyState) *StraightKey {
	return &StraightKey{queue: queue, timing: timing, key: key}
}

// NotifyEvent reports a key transition. keyDown=true enqueues a tone held
// at the configured frequency until the next event (RISING_SLOPE then
// FOREVER); keyDown=false enqueues a falling edge into silence held
// indefinitely (spec §4.7).
func (s *StraightKey) NotifyEvent(keyDown bool) error {
	if s.key.IsClosed() == keyDown {
		return nil
	}

	snap := s.timing.Snapshot()
	if keyDown {
		if err := s.queue.Enqueue(DurationRisingSlope, snap.Frequency); err != nil {
			return err
		}
		if err := s.queue.Enqueue(DurationForever, snap.Frequency); err != nil {
			return err
		}
	} else {
		if err := s.queue.Enqueue(DurationFallingSlope, snap.Frequency); err != nil {
			return err
		}
		if err := s.queue.Enqueue(DurationForever, 0); err != nil {
			return err
		}
	}
	s.key.Set(keyDown)
	return nil
}

// Reset forces the key open, silencing it if it was left physically closed
// (spec §4.10: a full reset clears "straight-key state"). It is always
// safe to call, including when the key was already open.
func (s *StraightKey) Reset() {
	if !s.key.IsClosed() {
		return
	}
	snap := s.timing.Snapshot()
	_ = s.queue.Enqueue(DurationFallingSlope, snap.Frequency)
	_ = s.queue.Enqueue(DurationForever, 0)
	s.key.Set(false)
}
