package cw

import (
	"fmt"
	"sync"

	"github.com/ColonelBlimp/gocw/internal/audio"
)

// malgoBackend selects which malgo-managed host API a malgoSink targets.
// The teacher's audio package drove a single malgo.Capture context for
// microphone input; audio.Playback adapts the same Init/Start/Stop/Close
// lifecycle to malgo.Playback devices. NewSink creates a malgoSink only for
// AudioPulseAudio (AudioSoundcard gets a soundcardSink), and the sink does
// not read the backend value when it opens the device.
type malgoBackend int

const (
	malgoBackendPulse malgoBackend = iota
	malgoBackendSoundcard
)

// malgoSink is a pull-model playback backend: the generator pushes PCM via
// Write, which blocks until audio.Playback's device callback has drained
// it below a target backlog, giving the generator backpressure instead of
// an unbounded queue of its own.
type malgoSink struct {
	backend malgoBackend
}

func newMalgoSink(backend malgoBackend) Sink { return &malgoSink{backend: backend} }

type malgoHandle struct {
	pb *audio.Playback

	mu      sync.Mutex
	cond    *sync.Cond
	pending []int16
	closed  bool
}

func (m *malgoSink) Probe(device string) error {
	pb := audio.New(audio.DefaultConfig())
	if err := pb.Init(); err != nil {
		return fmt.Errorf("%w: init malgo context: %v", ErrNoBackend, err)
	}
	defer pb.Close()

	if _, err := pb.ListDevices(); err != nil {
		return fmt.Errorf("%w: enumerate malgo playback devices: %v", ErrNoBackend, err)
	}
	return nil
}

func (m *malgoSink) Open(device string) (Handle, uint32, uint32, error) {
	cfg := audio.DefaultConfig()
	pb := audio.New(cfg)
	if err := pb.Init(); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: init malgo context: %v", ErrNoBackend, err)
	}

	h := &malgoHandle{pb: pb}
	h.cond = sync.NewCond(&h.mu)

	pb.SetCallback(func(out []int16) {
		h.mu.Lock()
		n := copy(out, h.pending)
		h.pending = h.pending[n:]
		h.cond.Broadcast()
		h.mu.Unlock()
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
	})

	if err := pb.Start(); err != nil {
		pb.Close()
		return nil, 0, 0, fmt.Errorf("%w: start malgo playback device: %v", ErrIoError, err)
	}

	return h, cfg.SampleRate, cfg.BufferSize, nil
}

// Write appends samples to the pending buffer and blocks until the device
// callback has drained it below four periods' worth.
func (m *malgoSink) Write(handle Handle, samples []int16) error {
	h, ok := handle.(*malgoHandle)
	if !ok || h.pb == nil {
		return ErrNoBackend
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrNoBackend
	}
	h.pending = append(h.pending, samples...)
	for len(h.pending) > 4*512 && !h.closed {
		h.cond.Wait()
	}
	return nil
}

func (m *malgoSink) Close(handle Handle) error {
	h, ok := handle.(*malgoHandle)
	if !ok || h.pb == nil {
		return nil
	}
	h.mu.Lock()
	h.closed = true
	h.cond.Broadcast()
	h.mu.Unlock()

	if err := h.pb.Stop(); err != nil && err != audio.ErrNotRunning {
		return fmt.Errorf("%w: stop malgo device: %v", ErrIoError, err)
	}
	return h.pb.Close()
}

func (m *malgoSink) IsConsole() bool { return false }
