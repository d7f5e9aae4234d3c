// Package audioproc turns a stream of raw audio-feature samples into the
// rich reactive.AudioState vector consumed by every tile, via a cascade of
// one-pole smoothing filters, edge detectors, and a multi-stage speed
// shaper (spec §4.2).
//
// Mutation is serialized on a single actor goroutine, the same shape as
// nitro-core-dx's internal/debug.Logger: callers push requests onto a
// channel and a lone goroutine drains it, so update/updateWithTimeoutDecay/
// reset can never interleave. The actor also republishes its latest
// AudioState into a lock-free atomic.Value slot after every step so the
// render loop can sample it without ever blocking on the actor.
package audioproc

import (
	"math"
	"sync/atomic"
	"time"

	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/reactive"
)

// RawAudioLevels is one sample of already-extracted audio features, as
// delivered by the external playback/analysis pipeline (spec §6).
type RawAudioLevels struct {
	Bass, LowMid, Mid, Highs, Level float64
	HitsBass                        float64 // raw kick-transient strength
	OnBeat                          float64 // raw on-beat strength
	BeatTime                        float64 // monotonically increasing beat counter
	Intensity                       float64 // composite driver for energyFast/energySlow
	BPMTwitcher                     float64
	BPMSin4                         float64
	BPMConfidence                   float64
}

// Smoothing retentions (α in x ← x·α + new·(1−α)), spec §4.2.
const (
	alphaBand  = 0.80
	alphaFast  = 0.60
	alphaSlow  = 0.92
	alphaKick  = 0.55
	alphaBPM   = 0.85
	alphaDecay = 0.90 // per-frame decay applied during silence timeout
)

// Edge-detector and speed-pipeline constants, spec §4.2.
const (
	kickThreshold    = 0.65
	beatEdgeThresh   = 0.75
	beatPhaseDecay   = 0.87
	silenceTimeout   = 1500 * time.Millisecond
	rampUp           = 0.008
	rampDown         = 0.025
	bassBoostWeight  = 0.35
	beatBoostAmount  = 0.15
	beatBoostDecay   = 0.92
)

// internalState holds everything the actor mutates; it never escapes the
// actor goroutine except by copy into the public reactive.AudioState.
type internalState struct {
	bass, lowMid, mid, highs, level float64
	energyFast, energySlow          float64
	kickEnv                         float64
	lastRawOnBeat                   float64
	beatPhase                       float64
	beat4                           int
	bpmTwitcher, bpmSin4, bpmConf   float64

	rampedSpeed float64
	boost       float64

	lastKickPulse time.Time
	haveKicked    bool

	lastSampleTime time.Time
	haveSampled    bool
}

func freshInternalState() internalState {
	return internalState{rampedSpeed: reactive.SpeedFloor}
}

type requestKind int

const (
	reqUpdate requestKind = iota
	reqDecay
	reqReset
)

type request struct {
	kind requestKind
	raw  RawAudioLevels
	resp chan reactive.AudioState
}

// Processor is the serialized audio-feature actor.
type Processor struct {
	logger *debug.Logger
	nowFn  func() time.Time

	reqCh chan request
	quit  chan struct{}

	slot atomic.Value // holds reactive.AudioState
}

// NewProcessor starts the actor goroutine and returns a ready Processor.
// logger may be nil. nowFn defaults to time.Now when nil (tests should
// inject a deterministic clock).
func NewProcessor(logger *debug.Logger, nowFn func() time.Time) *Processor {
	if nowFn == nil {
		nowFn = time.Now
	}
	p := &Processor{
		logger: logger,
		nowFn:  nowFn,
		reqCh:  make(chan request, 64),
		quit:   make(chan struct{}),
	}
	p.slot.Store(reactive.AudioState{Speed: reactive.SpeedFloor, Timestamp: nowFn()})
	go p.run(freshInternalState())
	return p
}

// run is the actor loop: the only goroutine allowed to touch `st`.
func (p *Processor) run(st internalState) {
	for {
		select {
		case req := <-p.reqCh:
			var out reactive.AudioState
			switch req.kind {
			case reqUpdate:
				out = p.stepUpdate(&st, req.raw)
			case reqDecay:
				out = p.stepDecay(&st)
			case reqReset:
				st = freshInternalState()
				out = reactive.AudioState{Speed: reactive.SpeedFloor, Timestamp: p.nowFn()}
			}
			p.slot.Store(out)
			if req.resp != nil {
				req.resp <- out
			}
		case <-p.quit:
			return
		}
	}
}

// Close stops the actor goroutine. Safe to call once.
func (p *Processor) Close() {
	close(p.quit)
}

// Update feeds one raw sample through the cascade and returns the resulting
// AudioState. Blocks only until the actor (which never blocks on I/O)
// processes the request.
func (p *Processor) Update(raw RawAudioLevels) reactive.AudioState {
	resp := make(chan reactive.AudioState, 1)
	p.reqCh <- request{kind: reqUpdate, raw: raw, resp: resp}
	return <-resp
}

// UpdateWithTimeoutDecay advances every smoothed field toward silence by one
// decay step; called by the render loop once per frame while no raw sample
// has arrived within the silence timeout (§4.2, §8.5).
func (p *Processor) UpdateWithTimeoutDecay() reactive.AudioState {
	resp := make(chan reactive.AudioState, 1)
	p.reqCh <- request{kind: reqDecay, resp: resp}
	return <-resp
}

// Reset returns the processor to its initial (silent) state.
func (p *Processor) Reset() reactive.AudioState {
	resp := make(chan reactive.AudioState, 1)
	p.reqCh <- request{kind: reqReset, resp: resp}
	return <-resp
}

// Snapshot performs a lock-free read of the latest published AudioState,
// without mutating the processor. This is what the render loop calls when
// IsActive() is true (§4.9 step 2, §9).
func (p *Processor) Snapshot() reactive.AudioState {
	return p.slot.Load().(reactive.AudioState)
}

// IsActive reports whether a raw sample has arrived within the silence
// timeout window.
func (p *Processor) IsActive() bool {
	last := p.Snapshot().Timestamp
	return p.nowFn().Sub(last) <= silenceTimeout
}

func onePole(prev, next, alpha float64) float64 {
	return prev*alpha + next*(1-alpha)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sanitize01 clamps a raw input field to [0,1], coercing NaN/Inf to 0 so bad
// producer data never propagates (spec §7 "transient input").
func sanitize01(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return clamp01(v)
}

// normalizeBeat4 reduces a possibly-negative or wrapping beat-time to
// {0,1,2,3} (spec §9 open question 2).
func normalizeBeat4(beatTime float64) int {
	if math.IsNaN(beatTime) || math.IsInf(beatTime, 0) {
		return 0
	}
	n := int(math.Floor(beatTime))
	m := n % 4
	if m < 0 {
		m += 4
	}
	return m
}

// stepUpdate applies one raw-sample step of the cascade.
func (p *Processor) stepUpdate(st *internalState, raw RawAudioLevels) reactive.AudioState {
	now := p.nowFn()

	bass := sanitize01(raw.Bass)
	lowMid := sanitize01(raw.LowMid)
	mid := sanitize01(raw.Mid)
	highs := sanitize01(raw.Highs)
	level := sanitize01(raw.Level)
	intensity := sanitize01(raw.Intensity)
	hitsBass := sanitize01(raw.HitsBass)
	onBeat := sanitize01(raw.OnBeat)

	st.bass = onePole(st.bass, bass, alphaBand)
	st.lowMid = onePole(st.lowMid, lowMid, alphaBand)
	st.mid = onePole(st.mid, mid, alphaBand)
	st.highs = onePole(st.highs, highs, alphaBand)
	st.level = onePole(st.level, level, alphaBand)

	st.energyFast = onePole(st.energyFast, intensity, alphaFast)
	st.energySlow = onePole(st.energySlow, st.energyFast, alphaSlow)

	st.kickEnv = onePole(st.kickEnv, hitsBass, alphaKick)

	st.bpmTwitcher = onePole(st.bpmTwitcher, clamp(raw.BPMTwitcher, -1, 1), alphaBPM)
	st.bpmSin4 = onePole(st.bpmSin4, clamp(raw.BPMSin4, -1, 1), alphaBPM)
	st.bpmConf = onePole(st.bpmConf, clamp01(raw.BPMConfidence), alphaBPM)

	// Kick edge detector: debounced rising threshold crossing on the raw
	// (unsmoothed) signal.
	kickPulse := false
	if hitsBass > kickThreshold {
		if !st.haveKicked || now.Sub(st.lastKickPulse) >= reactive.KickCooldown {
			kickPulse = true
			st.lastKickPulse = now
			st.haveKicked = true
		}
	}

	// Beat-phase edge detector: rising-edge latch then exponential decay.
	risingEdge := onBeat > beatEdgeThresh && st.lastRawOnBeat <= beatEdgeThresh
	st.lastRawOnBeat = onBeat
	if risingEdge {
		st.beatPhase = 1.0
	} else {
		st.beatPhase *= beatPhaseDecay
	}

	st.beat4 = normalizeBeat4(raw.BeatTime)

	p.runSpeedPipeline(st, bass, level)

	st.lastSampleTime = now
	st.haveSampled = true

	out := reactive.AudioState{
		Bass:          st.bass,
		LowMid:        st.lowMid,
		Mid:           st.mid,
		Highs:         st.highs,
		Level:         st.level,
		EnergyFast:    st.energyFast,
		EnergySlow:    st.energySlow,
		KickEnv:       st.kickEnv,
		KickPulse:     kickPulse,
		BeatPhase:     st.beatPhase,
		Beat4:         st.beat4,
		BPMTwitcher:   st.bpmTwitcher,
		BPMSin4:       st.bpmSin4,
		BPMConfidence: st.bpmConf,
		Speed:         clamp(st.rampedSpeed+st.boost, reactive.SpeedFloor, reactive.SpeedCeiling),
		Timestamp:     now,
	}
	if p.logger != nil && kickPulse {
		p.logger.LogAudiof(debug.LogLevelDebug, "kick pulse at %s (kickEnv=%.3f)", now.Format(time.RFC3339Nano), st.kickEnv)
	}
	return out
}

// stepDecay applies one silence-timeout decay step. It never updates
// lastSampleTime/haveSampled, so IsActive() stays false until a real sample
// arrives again.
func (p *Processor) stepDecay(st *internalState) reactive.AudioState {
	st.bass *= alphaDecay
	st.lowMid *= alphaDecay
	st.mid *= alphaDecay
	st.highs *= alphaDecay
	st.level *= alphaDecay
	st.energyFast *= alphaDecay
	st.energySlow *= alphaDecay
	st.kickEnv *= alphaDecay
	st.beatPhase *= beatPhaseDecay

	p.runSpeedPipeline(st, st.bass, st.level)

	// Timestamp is carried over from the previous snapshot (the last real
	// sample, or construction/reset time) rather than refreshed: IsActive()
	// reads it, so a decay step must not make the processor look live again.
	out := reactive.AudioState{
		Bass:          st.bass,
		LowMid:        st.lowMid,
		Mid:           st.mid,
		Highs:         st.highs,
		Level:         st.level,
		EnergyFast:    st.energyFast,
		EnergySlow:    st.energySlow,
		KickEnv:       st.kickEnv,
		KickPulse:     false,
		BeatPhase:     st.beatPhase,
		Beat4:         st.beat4,
		BPMTwitcher:   st.bpmTwitcher,
		BPMSin4:       st.bpmSin4,
		BPMConfidence: st.bpmConf,
		Speed:         clamp(st.rampedSpeed+st.boost, reactive.SpeedFloor, reactive.SpeedCeiling),
		Timestamp:     p.Snapshot().Timestamp,
	}
	return out
}

// runSpeedPipeline executes Smooth→Scale→Ramp→Beat-boost (§4.2). Smoothing
// of the inputs has already happened by the time this is called; this
// function owns steps 2-4.
func (p *Processor) runSpeedPipeline(st *internalState, bass, level float64) {
	driver := clamp01(level*(1-bassBoostWeight) + bass*bassBoostWeight)
	target := reactive.SpeedFloor + driver*(reactive.SpeedCeiling-reactive.SpeedFloor)

	alpha := 1 - rampUp
	if target < st.rampedSpeed {
		alpha = 1 - rampDown
	}
	st.rampedSpeed = onePole(st.rampedSpeed, target, alpha)

	instantaneous := math.Max(st.kickEnv, st.beatPhase) * beatBoostAmount
	st.boost = math.Max(st.boost*beatBoostDecay, instantaneous)
}

// Initial returns a fresh, silent AudioState useful for tile construction
// before the first Update call.
func Initial() reactive.AudioState {
	return reactive.AudioState{Speed: reactive.SpeedFloor}
}
