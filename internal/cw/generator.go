package cw

import (
	"math"
	"sync"
	"time"

	"github.com/ColonelBlimp/gocw/internal/recovery"
)

// SlopeMode controls how a generator shapes the amplitude envelope at the
// edges of a keyed element, to avoid the audible click a hard on/off edge
// produces (spec §4.4 "slope shaping").
type SlopeMode int

const (
	// SlopeStandard ramps both the rising and falling edge.
	SlopeStandard SlopeMode = iota
	SlopeRisingOnly
	SlopeFallingOnly
	SlopeNone
)

// defaultSlopeUsec is the fixed envelope length used for DurationRisingSlope
// and DurationFallingSlope tones (spec §4.4: "a short fixed-length ramp").
const defaultSlopeUsec int64 = 5_000

// generator is the sole consumer of a ToneQueue and the sole writer to a
// Sink (spec §4.4, §5: "a single generator worker is the only goroutine
// that touches the sink between Open and Close"). It runs on its own
// goroutine, filling PCM buffers sized to the backend's negotiated period,
// or -- for the console backend -- driving on/off tones directly.
type generator struct {
	sink   Sink
	handle Handle
	rate   uint32
	period uint32
	queue  *ToneQueue
	timing *timingParams

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	// phase is the running phase accumulator, in radians, carried across
	// buffers so consecutive tones at the same frequency don't click.
	phase float64

	current   Tone
	total     int64 // samples in current when it started, for edge-ramp math
	remaining int64 // samples left in current, meaningless while holding FOREVER
	holding   bool  // true while replaying a DurationForever tone

	slope SlopeMode // envelope shaping for ordinary (STANDARD-mode) tones
}

func newGenerator(sink Sink, handle Handle, rate, period uint32, queue *ToneQueue, timing *timingParams, slope SlopeMode) *generator {
	return &generator{
		sink:   sink,
		handle: handle,
		rate:   rate,
		period: period,
		queue:  queue,
		timing: timing,
		slope:  slope,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (g *generator) start() {
	go g.run()
}

func (g *generator) stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
	<-g.doneCh
}

func (g *generator) stopped() bool {
	select {
	case <-g.stopCh:
		return true
	default:
		return false
	}
}

// run is the generator's sole goroutine body; a panic here would otherwise
// take down audio playback silently, so it is guarded the same way main()
// guards the process (spec §9: a crashed worker must not wedge Stop's
// WaitForQueue/doneCh handshake forever).
func (g *generator) run() {
	defer recovery.HandlePanicFunc(nil)
	defer close(g.doneCh)
	if g.sink.IsConsole() {
		g.runConsole()
		return
	}
	g.runPCM()
}

// runConsole drives the console backend's on/off Tone calls one tone at a
// time: the PC speaker hardware free-runs the oscillation, so there is no
// PCM buffer to fill, only a frequency and a sleep.
func (g *generator) runConsole() {
	ct, _ := g.sink.(ConsoleTone)
	for !g.stopped() {
		tone, result := g.queue.Dequeue()
		switch result {
		case DequeueStillEmpty, DequeueJustEmptied:
			if ct != nil {
				ct.Tone(g.handle, 0)
			}
			_ = g.queue.WaitForTone()
			continue
		}

		freq := tone.FrequencyHz
		if ct != nil {
			ct.Tone(g.handle, freq)
		}

		switch tone.DurationUsec {
		case DurationForever:
			// Left sounding (or silent) until the next Dequeue, driven by
			// the queue's own held-last-entry replay; nothing to sleep on
			// here beyond yielding to let a new tone arrive.
			_ = g.queue.WaitForTone()
		case DurationRisingSlope, DurationFallingSlope:
			sleepUsec(defaultSlopeUsec, g.stopCh)
		default:
			sleepUsec(tone.DurationUsec, g.stopCh)
		}
	}
	if ct != nil {
		ct.Tone(g.handle, 0)
	}
}

// runPCM fills fixed-size PCM buffers from the tone queue, synthesising a
// sine wave at the current tone's frequency and the timing snapshot's
// volume, applying a linear envelope across RISING_SLOPE/FALLING_SLOPE
// tones and sustaining the last sample indefinitely for FOREVER.
func (g *generator) runPCM() {
	buf := make([]int16, g.period)
	for !g.stopped() {
		// A FOREVER tone is held only until another tone is queued (or the
		// queue is flushed), so look at the queue again at every buffer.
		if g.holding && !g.advance() {
			g.holding = false
			g.remaining = 0
		}
		i := 0
		for i < len(buf) {
			if g.remaining <= 0 && !g.holding {
				if !g.advance() {
					for ; i < len(buf); i++ {
						buf[i] = 0
					}
					break
				}
			}
			buf[i] = g.nextSample()
			i++
			if !g.holding {
				g.remaining--
			}
		}
		if err := g.sink.Write(g.handle, buf); err != nil {
			return
		}
		g.queue.Signal()
	}
}

// advance pulls the next tone from the queue, returning false if none is
// available yet (caller should emit silence for the remainder of the
// current buffer and retry on the next pass).
func (g *generator) advance() bool {
	tone, result := g.queue.Dequeue()
	switch result {
	case DequeueStillEmpty, DequeueJustEmptied:
		return false
	}

	g.current = tone
	switch tone.DurationUsec {
	case DurationForever:
		g.holding = true
	case DurationRisingSlope, DurationFallingSlope:
		g.holding = false
		g.remaining = usecToSamples(defaultSlopeUsec, g.rate)
		g.total = g.remaining
	default:
		g.holding = false
		g.remaining = usecToSamples(tone.DurationUsec, g.rate)
		g.total = g.remaining
	}
	return true
}

// standardSlopeLen returns how many samples of ramp STANDARD mode applies at
// each edge of the current tone: the fixed envelope length, clamped to half
// the tone so a very short element still ramps up and back down instead of
// overlapping itself (spec §4.4).
func (g *generator) standardSlopeLen() int64 {
	slopeLen := usecToSamples(defaultSlopeUsec, g.rate)
	if half := g.total / 2; slopeLen > half {
		slopeLen = half
	}
	return slopeLen
}

// envelopeFactor returns the [0,1] amplitude multiplier for the sample about
// to be synthesised: 1.0 away from any edge, ramping linearly across a
// DurationRisingSlope/DurationFallingSlope tone (straight-key edges), or
// across the first/last standardSlopeLen samples of an ordinary tone when
// g.slope calls for it (spec §4.4).
func (g *generator) envelopeFactor() float64 {
	switch g.current.DurationUsec {
	case DurationRisingSlope:
		total := usecToSamples(defaultSlopeUsec, g.rate)
		if total <= 0 {
			return 1
		}
		done := total - g.remaining
		return float64(done) / float64(total)
	case DurationFallingSlope:
		total := usecToSamples(defaultSlopeUsec, g.rate)
		if total <= 0 {
			return 1
		}
		return float64(g.remaining) / float64(total)
	case DurationForever:
		return 1
	default:
		// An ordinary dot/dash/gap tone: STANDARD mode ramps both edges,
		// RisingOnly/FallingOnly ramp one, None plays it flat (spec §4.4).
		slopeLen := g.standardSlopeLen()
		if slopeLen <= 0 {
			return 1
		}
		done := g.total - g.remaining
		if (g.slope == SlopeStandard || g.slope == SlopeRisingOnly) && done < slopeLen {
			return float64(done) / float64(slopeLen)
		}
		if (g.slope == SlopeStandard || g.slope == SlopeFallingOnly) && g.remaining <= slopeLen {
			return float64(g.remaining) / float64(slopeLen)
		}
		return 1
	}
}

func (g *generator) nextSample() int16 {
	if g.current.FrequencyHz == 0 {
		return 0
	}

	snap := g.timing.Snapshot()
	amp := float64(snap.Volume) / 100 * math.MaxInt16 * g.envelopeFactor()

	step := 2 * math.Pi * float64(g.current.FrequencyHz) / float64(g.rate)
	g.phase += step
	if g.phase > 2*math.Pi {
		g.phase -= 2 * math.Pi
	}
	return int16(amp * math.Sin(g.phase))
}

// sleepUsec sleeps for the given microsecond duration, waking early if
// stopCh is closed.
func sleepUsec(usec int64, stopCh <-chan struct{}) {
	if usec <= 0 {
		return
	}
	t := time.NewTimer(time.Duration(usec) * time.Microsecond)
	defer t.Stop()
	select {
	case <-t.C:
	case <-stopCh:
	}
}

func usecToSamples(usec int64, rate uint32) int64 {
	if usec <= 0 {
		return 0
	}
	return usec * int64(rate) / 1_000_000
}
