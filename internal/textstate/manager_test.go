package textstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nitro-core-dx/internal/reactive"
)

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}
func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSetActiveLineIdempotent(t *testing.T) {
	clk := newFakeClock()
	m := NewManager(nil, clk.Now)

	m.SetActiveLine(2)
	first := m.Lyrics().LastChangeTime

	clk.Advance(time.Second)
	m.SetActiveLine(2) // same index: must not re-arm
	require.Equal(t, first, m.Lyrics().LastChangeTime)

	clk.Advance(time.Second)
	m.SetActiveLine(3)
	require.NotEqual(t, first, m.Lyrics().LastChangeTime)
}

func TestSetRefrainIdempotent(t *testing.T) {
	clk := newFakeClock()
	m := NewManager(nil, clk.Now)

	m.SetRefrain("hello")
	first := m.Refrain().LastChangeTime
	clk.Advance(time.Second)
	m.SetRefrain("hello")
	require.Equal(t, first, m.Refrain().LastChangeTime)
}

func TestLyricsEnvelopeShape(t *testing.T) {
	clk := newFakeClock()
	m := NewManager(nil, clk.Now)
	m.SetActiveLine(0)

	lyrics, _, _ := m.Tick()
	require.Equal(t, 255.0, lyrics.TextOpacity)

	clk.Advance(4900 * time.Millisecond)
	lyrics, _, _ = m.Tick()
	require.Equal(t, 255.0, lyrics.TextOpacity)

	clk.Advance(600 * time.Millisecond) // t=5.5s: half-way through the 1s fall
	lyrics, _, _ = m.Tick()
	require.InDelta(t, 127.5, lyrics.TextOpacity, 1.0)

	clk.Advance(600 * time.Millisecond) // t=6.1s: fully faded
	lyrics, _, _ = m.Tick()
	require.Equal(t, 0.0, lyrics.TextOpacity)
}

func TestRefrainEnvelopeShape(t *testing.T) {
	clk := newFakeClock()
	m := NewManager(nil, clk.Now)
	m.SetRefrain("chorus")

	_, refrain, _ := m.Tick()
	require.Equal(t, 255.0, refrain.Opacity)

	clk.Advance(2500 * time.Millisecond) // mid-fall of [2.0, 3.0]
	_, refrain, _ = m.Tick()
	require.InDelta(t, 127.5, refrain.Opacity, 1.0)

	clk.Advance(600 * time.Millisecond)
	_, refrain, _ = m.Tick()
	require.Equal(t, 0.0, refrain.Opacity)
}

func TestSongInfoEnvelopeTotalDuration(t *testing.T) {
	clk := newFakeClock()
	m := NewManager(nil, clk.Now)
	m.SetSongInfo("Artist", "Title", "")

	checkpoints := []float64{0.05, 0.25, 0.5, 3, 5.5, 6.0, 6.4}
	var elapsed float64
	for _, cp := range checkpoints {
		delta := cp - elapsed
		clk.Advance(time.Duration(delta * float64(time.Second)))
		elapsed = cp
		_, _, song := m.Tick()
		require.True(t, song.Active, "should be active at t=%.2f", cp)
		op := reactive.SongInfoOpacity(song.DisplayTime)
		require.Greater(t, op, 0.0, "opacity should be positive at t=%.2f", cp)
	}

	clk.Advance(200 * time.Millisecond) // t=6.6s, past the 6.5s total
	_, _, song := m.Tick()
	require.False(t, song.Active)
	require.Equal(t, 0.0, reactive.SongInfoOpacity(song.DisplayTime))
}

func TestClearLyricsDeactivates(t *testing.T) {
	clk := newFakeClock()
	m := NewManager(nil, clk.Now)
	m.SetLyrics([]reactive.LyricLine{{ID: 0, TimeSec: 0, Text: "a"}})
	m.SetActiveLine(0)
	m.ClearLyrics()
	require.Equal(t, -1, m.Lyrics().ActiveIndex)
	require.Empty(t, m.Lyrics().Lines)
}

func TestLyricsPrevCurrentNext(t *testing.T) {
	clk := newFakeClock()
	m := NewManager(nil, clk.Now)
	m.SetLyrics([]reactive.LyricLine{
		{ID: 0, TimeSec: 0, Text: "line 1"},
		{ID: 1, TimeSec: 2, Text: "line 2"},
		{ID: 2, TimeSec: 4, Text: "line 3"},
	})
	m.SetActiveLine(0)
	snap := m.Lyrics()
	require.Equal(t, "", snap.PrevText())
	require.Equal(t, "line 1", snap.CurrentText())
	require.Equal(t, "line 2", snap.NextText())

	m.SetActiveLine(1)
	snap = m.Lyrics()
	require.Equal(t, "line 1", snap.PrevText())
	require.Equal(t, "line 2", snap.CurrentText())
	require.Equal(t, "line 3", snap.NextText())
}
