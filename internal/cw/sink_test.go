package cw

import "testing"

func TestNewSink_None(t *testing.T) {
	s, err := NewSink(AudioNone)
	if err != nil {
		t.Fatalf("NewSink(AudioNone) error: %v", err)
	}
	if _, ok := s.(*nullSink); !ok {
		t.Errorf("NewSink(AudioNone) = %T, want *nullSink", s)
	}
}

func TestNewSink_UnknownSystem(t *testing.T) {
	if _, err := NewSink(AudioSystem(999)); Classify(err) != KindBadArgument {
		t.Errorf("NewSink(999) kind = %v, want KindBadArgument", Classify(err))
	}
}

func TestAudioSystem_String(t *testing.T) {
	tests := []struct {
		sys  AudioSystem
		want string
	}{
		{AudioNone, "none"},
		{AudioConsole, "console"},
		{AudioOSS, "oss"},
		{AudioALSA, "alsa"},
		{AudioPulseAudio, "pulseaudio"},
		{AudioSoundcard, "soundcard"},
		{AudioSystem(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.sys.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.sys, got, tt.want)
		}
	}
}

func TestNullSink_RoundTrip(t *testing.T) {
	s := &nullSink{}
	if err := s.Probe(""); err != nil {
		t.Errorf("Probe() error: %v", err)
	}
	h, rate, period, err := s.Open("")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if rate == 0 || period == 0 {
		t.Errorf("Open() rate=%d period=%d, want nonzero", rate, period)
	}
	if err := s.Write(h, []int16{1, 2, 3}); err != nil {
		t.Errorf("Write() error: %v", err)
	}
	if err := s.Close(h); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if s.IsConsole() {
		t.Error("nullSink.IsConsole() = true, want false")
	}
}

// stubSink is a minimal Sink double used to test soundcardSink's fallback.
type stubSink struct {
	probeErr error
	openErr  error
	opened   bool
}

func (s *stubSink) Probe(string) error { return s.probeErr }
func (s *stubSink) Open(string) (Handle, uint32, uint32, error) {
	if s.openErr != nil {
		return nil, 0, 0, s.openErr
	}
	s.opened = true
	return s, 48000, 512, nil
}
func (s *stubSink) Write(Handle, []int16) error { return nil }
func (s *stubSink) Close(Handle) error           { return nil }
func (s *stubSink) IsConsole() bool              { return false }

func TestSoundcardSink_PrefersOSS(t *testing.T) {
	oss := &stubSink{}
	alsa := &stubSink{}
	s := &soundcardSink{oss: oss, alsa: alsa}

	if _, _, _, err := s.Open(""); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !oss.opened {
		t.Error("soundcardSink should open OSS first")
	}
	if alsa.opened {
		t.Error("soundcardSink should not open ALSA when OSS succeeds")
	}
}

func TestSoundcardSink_FallsBackToALSA(t *testing.T) {
	oss := &stubSink{openErr: ErrNoBackend}
	alsa := &stubSink{}
	s := &soundcardSink{oss: oss, alsa: alsa}

	if _, _, _, err := s.Open(""); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !alsa.opened {
		t.Error("soundcardSink should fall back to ALSA when OSS fails")
	}
}

func TestSoundcardSink_BothFail(t *testing.T) {
	oss := &stubSink{openErr: ErrNoBackend}
	alsa := &stubSink{openErr: ErrNoBackend}
	s := &soundcardSink{oss: oss, alsa: alsa}

	if _, _, _, err := s.Open(""); Classify(err) != KindNoBackend {
		t.Errorf("Open() kind = %v, want KindNoBackend", Classify(err))
	}
}

func TestSoundcardSink_WriteWithoutOpenFails(t *testing.T) {
	s := &soundcardSink{oss: &stubSink{}, alsa: &stubSink{}}
	if err := s.Write(nil, nil); err != ErrNoBackend {
		t.Errorf("Write() before Open() error = %v, want ErrNoBackend", err)
	}
}
