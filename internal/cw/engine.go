package cw

import "fmt"

// EngineConfig configures a new Engine (spec §6 Configuration, narrowed to
// the fields the engine itself needs -- cmd/config.Settings maps onto this).
type EngineConfig struct {
	AudioSystem AudioSystem
	AudioDevice string

	SendSpeed    int
	Frequency    int
	Volume       int
	Gap          int
	Weighting    int
	ReceiveSpeed int
	Tolerance    int
	Adaptive     bool

	SlopeMode SlopeMode
	CurtisB   bool

	QueueCapacity int
}

// DefaultEngineConfig returns the spec §4.1 initial values.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AudioSystem:   AudioSoundcard,
		SendSpeed:     InitialSpeed,
		Frequency:     InitialFreq,
		Volume:        InitialVolume,
		Gap:           InitialGap,
		Weighting:     InitialWeight,
		ReceiveSpeed:  InitialSpeed,
		Tolerance:     InitialTol,
		Adaptive:      false,
		SlopeMode:     SlopeStandard,
		CurtisB:       true,
		QueueCapacity: DefaultQueueCapacity,
	}
}

// Engine is the top-level handle on one CW session: it owns the tone
// queue, the generator worker and sink, the sender, the iambic keyer and
// straight key, and the receiver, wiring the key-state transitions between
// them (spec §4.10).
type Engine struct {
	cfg EngineConfig

	timing *timingParams
	queue  *ToneQueue
	sink   Sink
	handle Handle
	gen    *generator

	key      *KeyState
	sender   *Sender
	keyer    *IambicKeyer
	straight *StraightKey
	receiver *Receiver
	stats    *Stats

	started bool
}

// NewEngine constructs an Engine but does not yet open the audio backend or
// start the generator worker; call Start for that.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.QueueCapacity <= 1 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}

	timing := newTimingParams()
	if err := timing.SetSendSpeed(cfg.SendSpeed); err != nil {
		return nil, err
	}
	timing.SetAdaptive(cfg.Adaptive)
	if !cfg.Adaptive {
		if err := timing.SetReceiveSpeed(cfg.ReceiveSpeed); err != nil {
			return nil, err
		}
	}
	if err := timing.SetFrequency(cfg.Frequency); err != nil {
		return nil, err
	}
	if err := timing.SetVolume(cfg.Volume); err != nil {
		return nil, err
	}
	if err := timing.SetGap(cfg.Gap); err != nil {
		return nil, err
	}
	if err := timing.SetWeighting(cfg.Weighting); err != nil {
		return nil, err
	}
	if err := timing.SetTolerance(cfg.Tolerance); err != nil {
		return nil, err
	}

	queue, err := NewToneQueue(cfg.QueueCapacity)
	if err != nil {
		return nil, err
	}

	sink, err := NewSink(cfg.AudioSystem)
	if err != nil {
		return nil, err
	}

	key := NewKeyState()
	queue.SetKeyCallback(func(_ any, closed bool) { key.Set(closed) }, nil)

	sender := newSender(queue, timing)
	keyer := newIambicKeyer(sender, timing, key)
	keyer.SetCurtisMode(cfg.CurtisB)
	straight := newStraightKey(queue, timing, key)
	receiver := newReceiver(timing)

	return &Engine{
		cfg:      cfg,
		timing:   timing,
		queue:    queue,
		sink:     sink,
		key:      key,
		sender:   sender,
		keyer:    keyer,
		straight: straight,
		receiver: receiver,
		stats:    newStats(),
	}, nil
}

// Start opens the audio backend and starts the generator and iambic keyer
// goroutines.
func (e *Engine) Start() error {
	if e.started {
		return ErrOutOfOrder
	}
	handle, rate, period, err := e.sink.Open(e.cfg.AudioDevice)
	if err != nil {
		return fmt.Errorf("open audio sink: %w", err)
	}
	e.handle = handle
	e.gen = newGenerator(e.sink, handle, rate, period, e.queue, e.timing, e.cfg.SlopeMode)
	e.gen.start()
	e.keyer.start()
	e.started = true
	return nil
}

// Stop drains the tone queue, then stops the generator and keyer and
// closes the audio backend.
func (e *Engine) Stop() error {
	if !e.started {
		return nil
	}
	_ = e.queue.WaitForQueue()
	e.keyer.stop()
	e.gen.stop()
	err := e.sink.Close(e.handle)
	e.started = false
	if err != nil {
		return fmt.Errorf("close audio sink: %w", err)
	}
	return nil
}

// Reset restores every subsystem to its power-on state (spec §4.10): every
// timing parameter reverts to its initial value, the tone queue is flushed,
// the key forced open (silencing a straight key left physically closed),
// both keyer and receiver reset and their latches cleared, and the
// statistics ring emptied.
func (e *Engine) Reset() {
	e.timing.resetToDefaults()
	e.queue.Reset()
	e.straight.Reset()
	e.key.Reset()
	e.keyer.Reset()
	e.receiver.Reset()
	e.stats.Reset()
}

func (e *Engine) Sender() *Sender          { return e.sender }
func (e *Engine) Keyer() *IambicKeyer      { return e.keyer }
func (e *Engine) StraightKey() *StraightKey { return e.straight }
func (e *Engine) Receiver() *Receiver      { return e.receiver }
func (e *Engine) Stats() *Stats            { return e.stats }
func (e *Engine) Timing() *timingParams    { return e.timing }
func (e *Engine) Queue() *ToneQueue        { return e.queue }

// Snapshot exposes the current derived timing, for status reporting.
func (e *Engine) Snapshot() Snapshot { return e.timing.Snapshot() }
