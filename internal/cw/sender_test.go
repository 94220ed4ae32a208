package cw

import "testing"

func newTestSender(t *testing.T, capacity int) (*Sender, *ToneQueue) {
	t.Helper()
	q, err := NewToneQueue(capacity)
	if err != nil {
		t.Fatalf("NewToneQueue error: %v", err)
	}
	timing := newTimingParams()
	return newSender(q, timing), q
}

func TestSender_SendDot_EnqueuesToneAndGap(t *testing.T) {
	s, q := newTestSender(t, 100)
	snap := s.timing.Snapshot()

	if err := s.SendDot(); err != nil {
		t.Fatalf("SendDot error: %v", err)
	}

	// Exactly one dot tone plus one end-of-element gap (spec §4.5): slope
	// shaping is the generator's concern, not extra queue entries.
	if got := q.Length(); got != 2 {
		t.Fatalf("Length() = %d, want 2", got)
	}

	tone, _ := q.Dequeue()
	if tone.DurationUsec != snap.Dot || tone.FrequencyHz != snap.Frequency {
		t.Errorf("first tone = %+v, want (%d, %d)", tone, snap.Dot, snap.Frequency)
	}
	gap, _ := q.Dequeue()
	if gap.DurationUsec != snap.EndOfElement || gap.FrequencyHz != 0 {
		t.Errorf("second tone = %+v, want (%d, 0)", gap, snap.EndOfElement)
	}
}

func TestSender_SendDash_EnqueuesToneAndGap(t *testing.T) {
	s, q := newTestSender(t, 100)
	snap := s.timing.Snapshot()

	if err := s.SendDash(); err != nil {
		t.Fatalf("SendDash error: %v", err)
	}
	if got := q.Length(); got != 2 {
		t.Fatalf("Length() = %d, want 2", got)
	}

	tone, _ := q.Dequeue()
	if tone.DurationUsec != snap.Dash || tone.FrequencyHz != snap.Frequency {
		t.Errorf("first tone = %+v, want (%d, %d)", tone, snap.Dash, snap.Frequency)
	}
}

func TestSender_CheckBusy_BlocksNearHighWater(t *testing.T) {
	s, q := newTestSender(t, sendHighWaterSlack+10)

	for q.Length() < s.highWaterMark() {
		if err := q.Enqueue(1, 0); err != nil {
			t.Fatalf("priming Enqueue error: %v", err)
		}
	}

	if err := s.SendDot(); err != ErrWouldBlock {
		t.Errorf("SendDot() at high water = %v, want ErrWouldBlock", err)
	}
}

func TestSender_SendRepresentation_InvalidRejected(t *testing.T) {
	s, _ := newTestSender(t, 100)

	if err := s.SendRepresentation("", false); err == nil {
		t.Error("SendRepresentation(\"\") should fail")
	}
	if err := s.SendRepresentation(".x-", false); err == nil {
		t.Error("SendRepresentation with invalid char should fail")
	}
}

func TestSender_SendRepresentation_PartialSkipsCharacterSpace(t *testing.T) {
	s, q := newTestSender(t, 200)

	if err := s.SendRepresentation(".", true); err != nil {
		t.Fatalf("SendRepresentation(partial) error: %v", err)
	}
	// Just the dot's own 2 tones (dot + EOE gap), no extra character space.
	if got := q.Length(); got != 2 {
		t.Errorf("Length() after partial dot = %d, want 2", got)
	}
}

func TestSender_SendCharacter_UnknownFails(t *testing.T) {
	s, _ := newTestSender(t, 100)
	if err := s.SendCharacter('~', false); Classify(err) != KindNotFound {
		t.Errorf("SendCharacter('~') kind = %v, want KindNotFound", Classify(err))
	}
}

func TestSender_SendCharacter_LowercaseNormalized(t *testing.T) {
	s, q := newTestSender(t, 200)
	if err := s.SendCharacter('e', false); err != nil {
		t.Fatalf("SendCharacter('e') error: %v", err)
	}
	if q.Length() == 0 {
		t.Error("SendCharacter('e') enqueued nothing")
	}
}

func TestSender_SendString_WordSpaceOnWhitespace(t *testing.T) {
	s, q := newTestSender(t, 500)
	if err := s.SendString("E E"); err != nil {
		t.Fatalf("SendString error: %v", err)
	}
	if q.Length() == 0 {
		t.Error("SendString enqueued nothing")
	}
}
