package audioproc

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nitro-core-dx/internal/reactive"
)

// fakeClock is a thread-safe manually-advanced clock for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestProcessor() (*Processor, *fakeClock) {
	clk := newFakeClock()
	p := NewProcessor(nil, clk.Now)
	return p, clk
}

func TestUpdateClampsAllFields(t *testing.T) {
	p, clk := newTestProcessor()
	defer p.Close()

	raw := RawAudioLevels{
		Bass: 50, LowMid: -5, Mid: math.NaN(), Highs: math.Inf(1), Level: 1.5,
		HitsBass: 2, OnBeat: 2, BeatTime: 1, Intensity: 9,
		BPMTwitcher: 5, BPMSin4: -5, BPMConfidence: 5,
	}
	var state reactive.AudioState
	for i := 0; i < 10; i++ {
		clk.Advance(16 * time.Millisecond)
		state = p.Update(raw)
	}

	require.GreaterOrEqual(t, state.Bass, 0.0)
	require.GreaterOrEqual(t, state.LowMid, 0.0)
	require.GreaterOrEqual(t, state.Mid, 0.0)
	require.GreaterOrEqual(t, state.Highs, 0.0)
	require.GreaterOrEqual(t, state.Level, 0.0)
	require.False(t, math.IsNaN(state.Bass))
	require.False(t, math.IsInf(state.Highs, 0))
	require.GreaterOrEqual(t, state.Speed, reactive.SpeedFloor)
	require.LessOrEqual(t, state.Speed, reactive.SpeedCeiling)
	require.Contains(t, []int{0, 1, 2, 3}, state.Beat4)
}

func TestKickCooldownAtMostOnePulsePerWindow(t *testing.T) {
	p, clk := newTestProcessor()
	defer p.Close()

	pulses := 0
	for i := 0; i < 10; i++ {
		clk.Advance(10 * time.Millisecond) // 10 samples over 100ms
		state := p.Update(RawAudioLevels{HitsBass: 1.0})
		if state.KickPulse {
			pulses++
		}
	}
	require.Equal(t, 1, pulses)
}

func TestKickCooldownAllowsSecondPulseAfterWindow(t *testing.T) {
	p, clk := newTestProcessor()
	defer p.Close()

	clk.Advance(time.Millisecond)
	first := p.Update(RawAudioLevels{HitsBass: 1.0})
	require.True(t, first.KickPulse)

	clk.Advance(reactive.KickCooldown + time.Millisecond)
	second := p.Update(RawAudioLevels{HitsBass: 1.0})
	require.True(t, second.KickPulse)
}

func TestBeatPhaseDecayFollowsExponentialCurve(t *testing.T) {
	p, clk := newTestProcessor()
	defer p.Close()

	clk.Advance(time.Millisecond)
	edge := p.Update(RawAudioLevels{OnBeat: 1.0})
	require.InDelta(t, 1.0, edge.BeatPhase, 1e-9)

	expected := 1.0
	for n := 1; n <= 10; n++ {
		clk.Advance(16 * time.Millisecond)
		state := p.Update(RawAudioLevels{OnBeat: 0.0})
		expected *= beatPhaseDecay
		require.InDelta(t, expected, state.BeatPhase, 1e-9)
	}
}

func TestBeatPhaseRisingEdgeOnly(t *testing.T) {
	p, clk := newTestProcessor()
	defer p.Close()

	clk.Advance(time.Millisecond)
	p.Update(RawAudioLevels{OnBeat: 1.0})
	clk.Advance(time.Millisecond)
	// Staying above threshold without a fresh rising edge must not re-latch.
	state := p.Update(RawAudioLevels{OnBeat: 1.0})
	require.InDelta(t, beatPhaseDecay, state.BeatPhase, 1e-9)
}

func TestSpeedRampAsymmetry(t *testing.T) {
	pUp, clkUp := newTestProcessor()
	defer pUp.Close()
	framesToRise := 0
	for {
		clkUp.Advance(16 * time.Millisecond)
		state := pUp.Update(RawAudioLevels{Level: 1.0, Bass: 1.0})
		framesToRise++
		if state.Speed >= 0.99*reactive.SpeedCeiling {
			break
		}
		if framesToRise > 100000 {
			t.Fatal("speed never reached 99% of ceiling")
		}
	}

	pDown, clkDown := newTestProcessor()
	defer pDown.Close()
	// Warm up to the ceiling first.
	for i := 0; i < framesToRise; i++ {
		clkDown.Advance(16 * time.Millisecond)
		pDown.Update(RawAudioLevels{Level: 1.0, Bass: 1.0})
	}
	framesToFall := 0
	target := reactive.SpeedFloor * 1.01
	for {
		clkDown.Advance(16 * time.Millisecond)
		state := pDown.Update(RawAudioLevels{Level: 0, Bass: 0})
		framesToFall++
		if state.Speed <= target {
			break
		}
		if framesToFall > 100000 {
			t.Fatal("speed never fell to 1% above floor")
		}
	}

	require.Greater(t, framesToRise, framesToFall)
}

func TestSilenceDecayMonotonicUntilNearZero(t *testing.T) {
	p, clk := newTestProcessor()
	defer p.Close()

	clk.Advance(time.Millisecond)
	p.Update(RawAudioLevels{Bass: 1.0, Level: 1.0, LowMid: 1.0, Mid: 1.0, Highs: 1.0, Intensity: 1.0})
	require.True(t, p.IsActive())

	clk.Advance(silenceTimeout + time.Millisecond)
	require.False(t, p.IsActive())

	prev := p.Snapshot().Level
	for i := 0; i < 500; i++ {
		state := p.UpdateWithTimeoutDecay()
		require.LessOrEqual(t, state.Level, prev+1e-12)
		prev = state.Level
		if prev < 1e-3 {
			return
		}
	}
	t.Fatal("level never decayed below 1e-3")
}

func TestResetReturnsToFloor(t *testing.T) {
	p, clk := newTestProcessor()
	defer p.Close()

	clk.Advance(time.Millisecond)
	p.Update(RawAudioLevels{Bass: 1.0, Level: 1.0})
	state := p.Reset()
	require.Equal(t, reactive.SpeedFloor, state.Speed)
	require.Equal(t, 0.0, state.Bass)
}

func TestNormalizeBeat4HandlesNegativeAndWrapping(t *testing.T) {
	cases := map[float64]int{
		0: 0, 1: 1, 2: 2, 3: 3, 4: 0, 5: 1,
		-1: 3, -2: 2, -4: 0, -5: 3,
	}
	for in, want := range cases {
		require.Equal(t, want, normalizeBeat4(in), "beatTime=%v", in)
	}
}
