package engine

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nitro-core-dx/internal/audioproc"
	"nitro-core-dx/internal/gfx"
	"nitro-core-dx/internal/imagetile"
	"nitro-core-dx/internal/reactive"
	"nitro-core-dx/internal/shaderlib"
	"nitro-core-dx/internal/textstate"
)

// fakeTextTile stands in for the three SDL_ttf-backed text tiles so engine
// logic can be exercised without a real font context.
type fakeTextTile struct {
	mu          sync.Mutex
	updateCount int
	failNext    bool
}

func (f *fakeTextTile) frame() (*gfx.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCount++
	if f.failNext {
		f.failNext = false
		return nil, assertErr
	}
	return gfx.NewFrame(4, 4), nil
}

var assertErr = fakeErr("render failed")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

type fakeLyrics struct{ fakeTextTile }

func (f *fakeLyrics) Update(reactive.LyricsDisplayState) error { return nil }
func (f *fakeLyrics) Render() (*gfx.Frame, error)              { return f.frame() }

type fakeRefrain struct{ fakeTextTile }

func (f *fakeRefrain) Update(reactive.RefrainDisplayState) error { return nil }
func (f *fakeRefrain) Render() (*gfx.Frame, error)               { return f.frame() }

type fakeSongInfo struct{ fakeTextTile }

func (f *fakeSongInfo) Update(reactive.SongInfoDisplayState) error { return nil }
func (f *fakeSongInfo) Render() (*gfx.Frame, error)                { return f.frame() }

// fakeGLTile stands in for *shadertile.Tile / *masktile.Tile so engine
// logic can be exercised without a real OpenGL context.
type fakeGLTile struct {
	mu          sync.Mutex
	current     string
	updateCount int
}

func (f *fakeGLTile) UpdateState(state reactive.ShaderDisplayState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = state.Current
}

func (f *fakeGLTile) Update(reactive.AudioState, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCount++
}

func (f *fakeGLTile) Render() *gfx.Frame {
	return gfx.NewFrame(4, 4)
}

// fakePublisher records every Publish call instead of touching SDL.
type fakePublisher struct {
	mu        sync.Mutex
	created   bool
	enabled   bool
	stopped   bool
	published map[string]int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{enabled: true, published: make(map[string]int)}
}

func (p *fakePublisher) CreateStandardServers() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = true
	return nil
}

func (p *fakePublisher) Publish(name string, frame *gfx.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return nil
	}
	p.published[name]++
	return nil
}

func (p *fakePublisher) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

func (p *fakePublisher) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

func newTestShaderLibrary(t *testing.T) *shaderlib.Library {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.glsl"),
		[]byte("fragColor := float3(bass, 0.0, 0.0);"), 0o644))
	lib := shaderlib.NewLibrary(nil)
	require.NoError(t, lib.Index(dir))
	return lib
}

func newTestEngine(t *testing.T) (*Engine, *fakePublisher) {
	t.Helper()
	now := time.Now()
	nowFn := func() time.Time { return now }

	shaderLib := newTestShaderLibrary(t)
	maskLib := newTestShaderLibrary(t)
	pub := newFakePublisher()

	eng := New(Deps{
		NowFn:          nowFn,
		Audio:          audioproc.NewProcessor(nil, nowFn),
		Text:           textstate.NewManager(nil, nowFn),
		ShaderSelector: shaderlib.NewManager(shaderLib),
		MaskSelector:   shaderlib.NewManager(maskLib),
		ShaderTile:     &fakeGLTile{},
		MaskTile:       &fakeGLTile{},
		LyricsTile:     &fakeLyrics{},
		RefrainTile:    &fakeRefrain{},
		SongInfoTile:   &fakeSongInfo{},
		ImageTile:      imagetile.NewTile(nil, nowFn, 4, 4),
		Publisher:      pub,
	})
	return eng, pub
}

func TestStartCreatesServersAndTransitionsRunning(t *testing.T) {
	eng, pub := newTestEngine(t)
	require.Equal(t, StateIdle, eng.State())
	require.NoError(t, eng.Start())
	require.Equal(t, StateRunning, eng.State())
	require.True(t, pub.created)
}

func TestStopTearsDownAndTransitionsIdle(t *testing.T) {
	eng, pub := newTestEngine(t)
	require.NoError(t, eng.Start())
	eng.Stop()
	require.Equal(t, StateIdle, eng.State())
	require.True(t, pub.stopped)
}

func TestRunFrameNoopWhenIdle(t *testing.T) {
	eng, pub := newTestEngine(t)
	require.NoError(t, eng.RunFrame())
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Empty(t, pub.published)
}

func TestRunFramePublishesAllSixTiles(t *testing.T) {
	eng, pub := newTestEngine(t)
	require.NoError(t, eng.Start())
	require.NoError(t, eng.RunFrame())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	for _, name := range []string{"SwiftVJ/Shader", "SwiftVJ/Mask", "SwiftVJ/Lyrics", "SwiftVJ/Refrain", "SwiftVJ/SongInfo", "SwiftVJ/Image"} {
		require.Equal(t, 1, pub.published[name], "expected one publish for %s", name)
	}
}

func TestEventFanOutReachesStateManagers(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.OnTrackChange("Artist", "Title", "Album")
	song := eng.text.SongInfo()
	require.True(t, song.Active)
	require.Equal(t, "Artist", song.Artist)

	eng.OnLyricsLoaded([]reactive.LyricLine{{ID: 0, TimeSec: 0, Text: "line 1"}})
	require.Len(t, eng.text.Lyrics().Lines, 1)

	eng.OnActiveLine(0)
	require.Equal(t, 0, eng.text.Lyrics().ActiveIndex)

	eng.OnRefrain("chorus")
	require.True(t, eng.text.Refrain().Active)

	eng.OnShaderChange("good")
	require.Equal(t, "good", eng.shaderSelector.Current())

	eng.OnAudioUpdate(audioproc.RawAudioLevels{Bass: 1.0})
	require.Greater(t, eng.audio.Snapshot().Bass, 0.0)
}

func TestFPSAccumulatesOverThirtyFrames(t *testing.T) {
	now := time.Now()
	nowFn := func() time.Time { return now }
	shaderLib := newTestShaderLibrary(t)
	maskLib := newTestShaderLibrary(t)
	pub := newFakePublisher()
	eng := New(Deps{
		NowFn:          nowFn,
		Audio:          audioproc.NewProcessor(nil, nowFn),
		Text:           textstate.NewManager(nil, nowFn),
		ShaderSelector: shaderlib.NewManager(shaderLib),
		MaskSelector:   shaderlib.NewManager(maskLib),
		ShaderTile:     &fakeGLTile{},
		MaskTile:       &fakeGLTile{},
		LyricsTile:     &fakeLyrics{},
		RefrainTile:    &fakeRefrain{},
		SongInfoTile:   &fakeSongInfo{},
		ImageTile:      imagetile.NewTile(nil, nowFn, 4, 4),
		Publisher:      pub,
	})
	require.NoError(t, eng.Start())
	require.Equal(t, 0.0, eng.FPS())
	for i := 0; i < fpsSampleFrames; i++ {
		now = now.Add(time.Second / 60)
		require.NoError(t, eng.RunFrame())
	}
	require.InDelta(t, 60.0, eng.FPS(), 1.0)
}
