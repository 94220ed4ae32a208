// internal/audio/playback.go
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
)

const (
	// BytesPerInt16 is the number of bytes in one signed 16-bit sample.
	BytesPerInt16 = 2
)

var (
	ErrNotInitialized = errors.New("audio playback not initialized")
	ErrAlreadyRunning = errors.New("audio playback already running")
	ErrNotRunning     = errors.New("audio playback not running")
)

// Config holds audio playback configuration.
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	Channels    uint32 // 1 for mono, 2 for stereo
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns sensible defaults for CW sidetone playback.
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		Channels:    1,
		BufferSize:  512,
	}
}

// FeedCallback is called directly from the audio thread to fill out with
// the next frames to play. Must be non-blocking and fast; implementations
// that need backpressure (e.g. a bounded producer queue) should drop or
// zero-fill rather than block here.
//
// WARNING: out is only valid for the duration of the callback.
type FeedCallback func(out []int16)

// Playback handles real-time sample playback to a sound device. It mirrors
// the lifecycle of a capture device (Init/Start/Stop/Close, atomic
// running/closed flags, a mutex-guarded context+device pair) with the
// data direction reversed: the callback fills samples for the device to
// play, instead of draining samples the device has recorded.
type Playback struct {
	config  Config
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running atomic.Bool
	closed  atomic.Bool
	mu      sync.Mutex

	callbackPtr atomic.Pointer[FeedCallback]
}

// New creates a new playback instance.
func New(cfg Config) *Playback {
	return &Playback{config: cfg}
}

// SetCallback sets the feed callback invoked directly from the audio
// thread. Set before calling Start().
func (p *Playback) SetCallback(cb FeedCallback) {
	if cb == nil {
		p.callbackPtr.Store(nil)
	} else {
		p.callbackPtr.Store(&cb)
	}
}

// Init initializes the audio backend.
func (p *Playback) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		return errors.New("already initialized")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	p.ctx = ctx
	return nil
}

// ListDevices returns available playback devices.
func (p *Playback) ListDevices() ([]malgo.DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		return nil, ErrNotInitialized
	}

	infos, err := p.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start begins audio playback, driven entirely by the registered
// FeedCallback.
func (p *Playback) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	p.mu.Lock()
	if p.ctx == nil {
		p.mu.Unlock()
		p.running.Store(false)
		return ErrNotInitialized
	}

	audioCtx := p.ctx.Context

	var deviceID unsafe.Pointer
	if p.config.DeviceIndex >= 0 {
		devices, err := p.ctx.Devices(malgo.Playback)
		if err != nil {
			p.mu.Unlock()
			p.running.Store(false)
			return fmt.Errorf("enumerate devices: %w", err)
		}
		if p.config.DeviceIndex >= len(devices) {
			p.mu.Unlock()
			p.running.Store(false)
			return fmt.Errorf("device index %d out of range (have %d devices)",
				p.config.DeviceIndex, len(devices))
		}
		deviceID = devices[p.config.DeviceIndex].ID.Pointer()
	}
	p.mu.Unlock()

	deviceConfig := malgo.DeviceConfig{
		DeviceType:         malgo.Playback,
		SampleRate:         p.config.SampleRate,
		PeriodSizeInFrames: p.config.BufferSize,
		Playback: malgo.SubConfig{
			Format:   malgo.FormatS16,
			Channels: p.config.Channels,
		},
	}
	if deviceID != nil {
		deviceConfig.Playback.DeviceID = deviceID
	}

	onSendFrames := func(outputSamples, inputSamples []byte, frameCount uint32) {
		if len(outputSamples) == 0 {
			return
		}
		out := int16SliceMut(outputSamples)
		if cbPtr := p.callbackPtr.Load(); cbPtr != nil {
			(*cbPtr)(out)
		}
	}

	device, err := malgo.InitDevice(audioCtx, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		p.running.Store(false)
		return fmt.Errorf("init device: %w", err)
	}

	p.mu.Lock()
	p.device = device
	p.mu.Unlock()

	if err := device.Start(); err != nil {
		p.mu.Lock()
		p.device.Uninit()
		p.device = nil
		p.mu.Unlock()
		p.running.Store(false)
		return fmt.Errorf("start device: %w", err)
	}

	return nil
}

// Stop stops audio playback.
func (p *Playback) Stop() error {
	if !p.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device != nil {
		if err := p.device.Stop(); err != nil {
			return fmt.Errorf("device stop: %w", err)
		}
		p.device.Uninit()
		p.device = nil
	}
	return nil
}

// Close releases all audio resources.
func (p *Playback) Close() error {
	p.closed.Store(true)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() && p.device != nil {
		_ = p.device.Stop()
		p.device.Uninit()
		p.device = nil
		p.running.Store(false)
	}

	if p.ctx != nil {
		if err := p.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		p.ctx.Free()
		p.ctx = nil
	}
	return nil
}

// IsRunning returns true if playback is active.
func (p *Playback) IsRunning() bool {
	return p.running.Load()
}

// int16SliceMut performs zero-copy conversion of a device-owned byte
// buffer into a writable int16 slice.
// WARNING: the returned slice shares memory with buf; it is only valid for
// the duration of the callback that produced buf.
func int16SliceMut(buf []byte) []int16 {
	if len(buf) < BytesPerInt16 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&buf[0])), len(buf)/BytesPerInt16)
}
