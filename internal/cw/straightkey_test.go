package cw

import "testing"

func newTestStraightKey(t *testing.T) (*StraightKey, *ToneQueue) {
	t.Helper()
	q, err := NewToneQueue(100)
	if err != nil {
		t.Fatalf("NewToneQueue error: %v", err)
	}
	return newStraightKey(q, newTimingParams(), NewKeyState()), q
}

func TestStraightKey_KeyDownEnqueuesRisingThenForever(t *testing.T) {
	sk, q := newTestStraightKey(t)

	if err := sk.NotifyEvent(true); err != nil {
		t.Fatalf("NotifyEvent(true) error: %v", err)
	}
	if got := q.Length(); got != 2 {
		t.Fatalf("Length() = %d, want 2", got)
	}

	t1, _ := q.Dequeue()
	if t1.DurationUsec != DurationRisingSlope {
		t.Errorf("first tone = %+v, want DurationRisingSlope", t1)
	}
	t2, _ := q.Dequeue()
	if t2.DurationUsec != DurationForever {
		t.Errorf("second tone = %+v, want DurationForever", t2)
	}
	if !sk.key.IsClosed() {
		t.Error("key should be closed after NotifyEvent(true)")
	}
}

func TestStraightKey_KeyUpEnqueuesFallingThenSilence(t *testing.T) {
	sk, q := newTestStraightKey(t)
	sk.NotifyEvent(true)
	q.Flush()

	if err := sk.NotifyEvent(false); err != nil {
		t.Fatalf("NotifyEvent(false) error: %v", err)
	}
	if got := q.Length(); got != 2 {
		t.Fatalf("Length() = %d, want 2", got)
	}

	t1, _ := q.Dequeue()
	if t1.DurationUsec != DurationFallingSlope {
		t.Errorf("first tone = %+v, want DurationFallingSlope", t1)
	}
	t2, _ := q.Dequeue()
	if t2.DurationUsec != DurationForever || t2.FrequencyHz != 0 {
		t.Errorf("second tone = %+v, want {DurationForever 0}", t2)
	}
}

func TestStraightKey_Reset_SilencesClosedKey(t *testing.T) {
	sk, q := newTestStraightKey(t)
	sk.NotifyEvent(true)
	q.Flush()

	sk.Reset()

	if got := q.Length(); got != 2 {
		t.Fatalf("Length() after Reset = %d, want 2", got)
	}
	t1, _ := q.Dequeue()
	if t1.DurationUsec != DurationFallingSlope {
		t.Errorf("first tone = %+v, want DurationFallingSlope", t1)
	}
	t2, _ := q.Dequeue()
	if t2.DurationUsec != DurationForever || t2.FrequencyHz != 0 {
		t.Errorf("second tone = %+v, want {DurationForever 0}", t2)
	}
	if sk.key.IsClosed() {
		t.Error("key should be open after Reset")
	}
}

func TestStraightKey_Reset_NoOpWhenAlreadyOpen(t *testing.T) {
	sk, q := newTestStraightKey(t)
	sk.Reset()
	if got := q.Length(); got != 0 {
		t.Errorf("Length() after Reset on open key = %d, want 0 (no-op)", got)
	}
}

func TestStraightKey_RedundantEventIgnored(t *testing.T) {
	sk, q := newTestStraightKey(t)
	sk.NotifyEvent(true)
	q.Flush()

	if err := sk.NotifyEvent(true); err != nil {
		t.Fatalf("redundant NotifyEvent(true) error: %v", err)
	}
	if got := q.Length(); got != 0 {
		t.Errorf("Length() after redundant event = %d, want 0 (no-op)", got)
	}
}
