package cw

import "sync"

// Speed/parameter bounds from spec §4.1.
const (
	MinSpeed      = 4
	MaxSpeed      = 60
	InitialSpeed  = 12
	MinFrequency  = 0
	MaxFrequency  = 4000
	InitialFreq   = 800
	MinVolume     = 0
	MaxVolume     = 100
	InitialVolume = 70
	MinGap        = 0
	MaxGap        = 60
	InitialGap    = 0
	MinTolerance  = 0
	MaxTolerance  = 90
	InitialTol    = 50
	MinWeighting  = 20
	MaxWeighting  = 80
	InitialWeight = 50

	// InitialNoiseSpikeUsec is the default noise-spike threshold (spec §4.10).
	InitialNoiseSpikeUsec = 10_000
)

// timingParams holds the primary controls and the derived durations
// computed from them (spec §3, §4.1). A single dirty flag guards lazy
// recomputation: setters mark the block dirty; sync recomputes and clears
// it. Guarded by mu so setters may be called from any caller goroutine.
type timingParams struct {
	mu sync.Mutex

	sendSpeed    int
	receiveSpeed int
	frequency    int
	volume       int
	gap          int
	tolerance    int
	weighting    int
	noiseSpike   int64 // microseconds
	adaptive     bool

	dirty bool

	// Derived send-side durations, microseconds.
	unit           int64
	weightingAdj   int64
	dot            int64
	dash           int64
	endOfElement   int64
	endOfCharacter int64
	endOfWord      int64
	additional     int64
	adjustment     int64

	// Derived receive-side ranges, microseconds.
	dotRangeMin    int64
	dotRangeMax    int64
	dashRangeMin   int64
	dashRangeMax   int64
	eocRangeMin    int64
	eocRangeMax    int64
	eowRangeMin    int64

	// Adaptive tracking state (spec §4.9 Adaptive tracking).
	dotAvg  [4]int64
	dashAvg [4]int64
	dotIdx  int
	dashIdx int
}

func newTimingParams() *timingParams {
	t := &timingParams{
		sendSpeed:    InitialSpeed,
		receiveSpeed: InitialSpeed,
		frequency:    InitialFreq,
		volume:       InitialVolume,
		gap:          InitialGap,
		tolerance:    InitialTol,
		weighting:    InitialWeight,
		noiseSpike:   InitialNoiseSpikeUsec,
		dirty:        true,
	}
	for i := range t.dotAvg {
		t.dotAvg[i] = int64(1_200_000 / InitialSpeed)
		t.dashAvg[i] = 3 * t.dotAvg[i]
	}
	return t
}

func clampRange(v, lo, hi int) bool { return v >= lo && v <= hi }

// SetSendSpeed validates and stores send_speed (4..60 WPM).
func (t *timingParams) SetSendSpeed(wpm int) error {
	if !clampRange(wpm, MinSpeed, MaxSpeed) {
		return ErrBadArgument
	}
	t.mu.Lock()
	t.sendSpeed = wpm
	t.dirty = true
	t.mu.Unlock()
	return nil
}

// SetReceiveSpeed validates and stores receive_speed. Fails with
// ErrNotPermitted if adaptive receive tracking is enabled (spec §4.1).
func (t *timingParams) SetReceiveSpeed(wpm int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.adaptive {
		return ErrNotPermitted
	}
	if !clampRange(wpm, MinSpeed, MaxSpeed) {
		return ErrBadArgument
	}
	t.receiveSpeed = wpm
	t.dirty = true
	return nil
}

func (t *timingParams) SetFrequency(hz int) error {
	if !clampRange(hz, MinFrequency, MaxFrequency) {
		return ErrBadArgument
	}
	t.mu.Lock()
	t.frequency = hz
	t.dirty = true
	t.mu.Unlock()
	return nil
}

func (t *timingParams) SetVolume(pct int) error {
	if !clampRange(pct, MinVolume, MaxVolume) {
		return ErrBadArgument
	}
	t.mu.Lock()
	t.volume = pct
	t.dirty = true
	t.mu.Unlock()
	return nil
}

func (t *timingParams) SetGap(dots int) error {
	if !clampRange(dots, MinGap, MaxGap) {
		return ErrBadArgument
	}
	t.mu.Lock()
	t.gap = dots
	t.dirty = true
	t.mu.Unlock()
	return nil
}

func (t *timingParams) SetTolerance(pct int) error {
	if !clampRange(pct, MinTolerance, MaxTolerance) {
		return ErrBadArgument
	}
	t.mu.Lock()
	t.tolerance = pct
	t.dirty = true
	t.mu.Unlock()
	return nil
}

func (t *timingParams) SetWeighting(pct int) error {
	if !clampRange(pct, MinWeighting, MaxWeighting) {
		return ErrBadArgument
	}
	t.mu.Lock()
	t.weighting = pct
	t.dirty = true
	t.mu.Unlock()
	return nil
}

func (t *timingParams) SetNoiseSpikeThreshold(usec int64) error {
	if usec < 0 {
		return ErrBadArgument
	}
	t.mu.Lock()
	t.noiseSpike = usec
	t.dirty = true
	t.mu.Unlock()
	return nil
}

// SetAdaptive enables or disables adaptive receive-speed tracking.
func (t *timingParams) SetAdaptive(on bool) {
	t.mu.Lock()
	t.adaptive = on
	t.dirty = true
	t.mu.Unlock()
}

func (t *timingParams) IsAdaptive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.adaptive
}

// resetToDefaults restores every primary parameter to its power-on value
// (spec §4.10: "12 WPM, 800 Hz, 70% volume, 0 gap, 50% tolerance, 50%
// weighting, adaptive off, noise threshold 10000 us"), including the
// adaptive moving averages so a fresh Reset behaves like a freshly
// constructed timingParams.
func (t *timingParams) resetToDefaults() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sendSpeed = InitialSpeed
	t.receiveSpeed = InitialSpeed
	t.frequency = InitialFreq
	t.volume = InitialVolume
	t.gap = InitialGap
	t.tolerance = InitialTol
	t.weighting = InitialWeight
	t.noiseSpike = InitialNoiseSpikeUsec
	t.adaptive = false

	for i := range t.dotAvg {
		t.dotAvg[i] = int64(1_200_000 / InitialSpeed)
		t.dashAvg[i] = 3 * t.dotAvg[i]
	}
	t.dotIdx = 0
	t.dashIdx = 0

	t.dirty = true
}

// sync recomputes every derived duration from the current primary values.
// Must hold t.mu. Called lazily by ensureSynced before any consumer reads
// derived fields.
func (t *timingParams) sync() {
	if !t.dirty {
		return
	}

	unit := int64(1_200_000 / t.sendSpeed)
	weightingAdj := int64(2*(t.weighting-50)) * unit / 100
	dot := unit + weightingAdj
	dash := 3 * dot
	eoe := unit - 28*weightingAdj/22
	eoc := 3*unit - eoe
	eow := 7*unit - eoc
	additional := int64(t.gap) * unit
	adjustment := 7 * additional / 3

	t.unit = unit
	t.weightingAdj = weightingAdj
	t.dot = dot
	t.dash = dash
	t.endOfElement = eoe
	t.endOfCharacter = eoc
	t.endOfWord = eow
	t.additional = additional
	t.adjustment = adjustment

	if t.adaptive {
		t.syncAdaptiveRangesLocked()
	} else {
		runit := int64(1_200_000 / t.receiveSpeed)
		rdot := runit
		rdash := 3 * runit
		tol := int64(t.tolerance)
		t.dotRangeMin = maxI64(0, rdot-rdot*tol/100)
		t.dotRangeMax = rdot + rdot*tol/100
		t.dashRangeMin = rdash - rdash*tol/100
		t.dashRangeMax = rdash + rdash*tol/100
		eocr := 3 * runit
		t.eocRangeMin = 0
		t.eocRangeMax = eocr + eocr*tol/100
		t.eowRangeMin = t.eocRangeMax
	}

	t.dirty = false
}

// syncAdaptiveRangesLocked recomputes the fixed-point receive ranges from
// the current moving-average estimate (spec §3: "dot = [0, 2*dot_avg], dash
// = [2*dot_avg, inf), end-of-char = up to 5*dot_avg"). Must hold t.mu.
func (t *timingParams) syncAdaptiveRangesLocked() {
	dotAvg := t.avgDot()
	t.dotRangeMin = 0
	t.dotRangeMax = 2 * dotAvg
	t.dashRangeMin = 2 * dotAvg
	t.dashRangeMax = 1 << 62
	t.eocRangeMax = 5 * dotAvg
	t.eowRangeMin = t.eocRangeMax
}

func (t *timingParams) avgDot() int64 {
	var sum int64
	for _, v := range t.dotAvg {
		sum += v
	}
	return sum / int64(len(t.dotAvg))
}

func (t *timingParams) avgDash() int64 {
	var sum int64
	for _, v := range t.dashAvg {
		sum += v
	}
	return sum / int64(len(t.dashAvg))
}

// updateAdaptiveDot feeds one classified dot duration into the moving
// average and recomputes receive_speed (spec §4.9 Adaptive tracking).
func (t *timingParams) updateAdaptiveDot(durationUsec int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dotAvg[t.dotIdx] = durationUsec
	t.dotIdx = (t.dotIdx + 1) % len(t.dotAvg)
	t.recomputeAdaptiveSpeedLocked()
	t.dirty = true
}

// updateAdaptiveDash feeds one classified dash duration into the moving
// average and recomputes receive_speed.
func (t *timingParams) updateAdaptiveDash(durationUsec int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dashAvg[t.dashIdx] = durationUsec
	t.dashIdx = (t.dashIdx + 1) % len(t.dashAvg)
	t.recomputeAdaptiveSpeedLocked()
	t.dirty = true
}

// recomputeAdaptiveSpeedLocked implements spec §4.9: the threshold between
// dot and dash becomes (dash_avg-dot_avg)/2+dot_avg, and receive_speed is
// 1_200_000/(threshold/2), clamped to [MinSpeed, MaxSpeed]. Must hold t.mu.
func (t *timingParams) recomputeAdaptiveSpeedLocked() {
	dotAvg := t.avgDot()
	dashAvg := t.avgDash()
	threshold := (dashAvg-dotAvg)/2 + dotAvg
	if threshold <= 0 {
		return
	}
	speed := int(1_200_000 / (threshold / 2))
	if speed < MinSpeed {
		speed = MinSpeed
	}
	if speed > MaxSpeed {
		speed = MaxSpeed
	}
	t.receiveSpeed = speed
}

func (t *timingParams) ensureSynced() {
	t.mu.Lock()
	t.sync()
	t.mu.Unlock()
}

// Snapshot is a read-only copy of the derived durations, safe to pass
// around without holding timingParams' lock.
type Snapshot struct {
	Unit           int64
	Dot            int64
	Dash           int64
	EndOfElement   int64
	EndOfCharacter int64
	EndOfWord      int64
	Additional     int64
	Adjustment     int64
	Frequency      int
	Volume         int

	DotRangeMin  int64
	DotRangeMax  int64
	DashRangeMin int64
	DashRangeMax int64
	EOCRangeMax  int64
}

func (t *timingParams) Snapshot() Snapshot {
	t.mu.Lock()
	t.sync()
	defer t.mu.Unlock()
	return Snapshot{
		Unit: t.unit, Dot: t.dot, Dash: t.dash,
		EndOfElement: t.endOfElement, EndOfCharacter: t.endOfCharacter,
		EndOfWord: t.endOfWord, Additional: t.additional, Adjustment: t.adjustment,
		Frequency: t.frequency, Volume: t.volume,
		DotRangeMin: t.dotRangeMin, DotRangeMax: t.dotRangeMax,
		DashRangeMin: t.dashRangeMin, DashRangeMax: t.dashRangeMax,
		EOCRangeMax: t.eocRangeMax,
	}
}

func (t *timingParams) ReceiveSpeed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.receiveSpeed
}

// SendSpeed reports the current send_speed in WPM.
func (t *timingParams) SendSpeed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendSpeed
}

// Gap reports the current inter-element gap, in dots.
func (t *timingParams) Gap() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gap
}

// Weighting reports the current weighting percentage.
func (t *timingParams) Weighting() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.weighting
}

func (t *timingParams) NoiseSpikeThreshold() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.noiseSpike
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
