package cw

import "fmt"

// AudioSystem selects a Sink backend (spec §6 Configuration, §9 DESIGN
// NOTES: "a tagged variant, one variant per backend").
type AudioSystem int

const (
	AudioNone AudioSystem = iota
	AudioConsole
	AudioOSS
	AudioALSA
	AudioPulseAudio
	// AudioSoundcard means "prefer OSS then ALSA at open time" (spec §6).
	AudioSoundcard
)

func (a AudioSystem) String() string {
	switch a {
	case AudioNone:
		return "none"
	case AudioConsole:
		return "console"
	case AudioOSS:
		return "oss"
	case AudioALSA:
		return "alsa"
	case AudioPulseAudio:
		return "pulseaudio"
	case AudioSoundcard:
		return "soundcard"
	default:
		return "unknown"
	}
}

// SampleRates are probed in this order; the first the backend accepts is
// used (spec §4.4).
var SampleRates = []uint32{44100, 48000, 32000, 22050, 16000, 11025, 8000}

// DeviceInfo describes one enumerated playback device.
type DeviceInfo struct {
	ID   string
	Name string
}

// Handle is an opaque, backend-specific open device.
type Handle interface{}

// ConsoleTone is implemented by the console backend in place of Write: it
// drives an on/off tone directly rather than synthesising samples (spec
// §4.4).
type ConsoleTone interface {
	Tone(h Handle, frequencyHz int) error
}

// Sink is the abstract producer of PCM samples or on/off console pulses
// that the generator worker owns exclusively for its lifetime (spec §4.4,
// §6: "the engine consumes from each backend only probe, open, write,
// close"). Sample format is signed 16-bit mono, native endian; volume
// range is +-32767 (spec §6).
type Sink interface {
	// Probe reports whether this backend is usable for device, without
	// opening it for exclusive access.
	Probe(device string) error
	// Open acquires the device, negotiating a sample rate from SampleRates
	// and a period size the backend prefers. samplesRate and period are
	// the negotiated values to drive the generator's buffer sizing.
	Open(device string) (handle Handle, sampleRate uint32, period uint32, err error)
	// Write blocks until samples have been accepted by the device (or an
	// error occurs). samples are signed 16-bit mono PCM.
	Write(handle Handle, samples []int16) error
	// Close releases the device.
	Close(handle Handle) error
	// IsConsole is true only for the console backend, which does not
	// synthesise samples and ignores volume beyond {0, non-zero} (spec
	// §4.4).
	IsConsole() bool
}

// NewSink constructs the Sink for the requested backend. AudioSoundcard
// resolves to OSS first, then ALSA, at Open time (handled by
// soundcardSink.Open).
func NewSink(system AudioSystem) (Sink, error) {
	switch system {
	case AudioNone:
		return &nullSink{}, nil
	case AudioConsole:
		return newConsoleSink(), nil
	case AudioOSS:
		return newOSSSink(), nil
	case AudioALSA:
		return newALSASink(), nil
	case AudioPulseAudio:
		return newMalgoSink(malgoBackendPulse), nil
	case AudioSoundcard:
		return &soundcardSink{oss: newOSSSink(), alsa: newALSASink()}, nil
	default:
		return nil, fmt.Errorf("%w: unknown audio system %d", ErrBadArgument, system)
	}
}

// nullSink discards everything; used for AudioNone (tests, headless runs).
type nullSink struct{}

func (n *nullSink) Probe(string) error { return nil }
func (n *nullSink) Open(string) (Handle, uint32, uint32, error) {
	return struct{}{}, 48000, 512, nil
}
func (n *nullSink) Write(Handle, []int16) error { return nil }
func (n *nullSink) Close(Handle) error           { return nil }
func (n *nullSink) IsConsole() bool              { return false }

// soundcardSink implements spec §6's AudioSoundcard: "prefer OSS then ALSA
// at open time".
type soundcardSink struct {
	oss   Sink
	alsa  Sink
	active Sink
}

func (s *soundcardSink) Probe(device string) error {
	if err := s.oss.Probe(device); err == nil {
		return nil
	}
	return s.alsa.Probe(device)
}

func (s *soundcardSink) Open(device string) (Handle, uint32, uint32, error) {
	if h, rate, period, err := s.oss.Open(device); err == nil {
		s.active = s.oss
		return h, rate, period, nil
	}
	h, rate, period, err := s.alsa.Open(device)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: no OSS or ALSA device available: %v", ErrNoBackend, err)
	}
	s.active = s.alsa
	return h, rate, period, nil
}

func (s *soundcardSink) Write(h Handle, samples []int16) error {
	if s.active == nil {
		return ErrNoBackend
	}
	return s.active.Write(h, samples)
}

func (s *soundcardSink) Close(h Handle) error {
	if s.active == nil {
		return nil
	}
	return s.active.Close(h)
}

func (s *soundcardSink) IsConsole() bool { return false }
