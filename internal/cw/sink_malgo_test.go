package cw

import (
	"sync"
	"testing"

	"github.com/ColonelBlimp/gocw/internal/audio"
)

func TestMalgoSink_IsConsole(t *testing.T) {
	s := newMalgoSink(malgoBackendSoundcard)
	if s.IsConsole() {
		t.Error("malgoSink.IsConsole() = true, want false")
	}
}

func TestMalgoSink_WriteWithoutOpenFails(t *testing.T) {
	s := newMalgoSink(malgoBackendPulse)
	if err := s.Write(nil, []int16{1, 2, 3}); err != ErrNoBackend {
		t.Errorf("Write() without Open() error = %v, want ErrNoBackend", err)
	}
}

func TestMalgoSink_CloseNilHandle(t *testing.T) {
	s := newMalgoSink(malgoBackendSoundcard)
	if err := s.Close(nil); err != nil {
		t.Errorf("Close(nil) = %v, want nil", err)
	}
}

func TestMalgoSink_WriteAfterCloseFails(t *testing.T) {
	h := &malgoHandle{pb: audio.New(audio.DefaultConfig())}
	h.cond = sync.NewCond(&h.mu)
	h.closed = true

	s := &malgoSink{backend: malgoBackendSoundcard}
	if err := s.Write(h, []int16{1, 2, 3}); err != ErrNoBackend {
		t.Errorf("Write() on closed handle error = %v, want ErrNoBackend", err)
	}
}
