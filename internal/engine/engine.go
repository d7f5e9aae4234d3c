// Package engine is the tile manager and fixed-timestep render loop (spec
// §4.9): it samples the current AudioState once per frame, fans external
// events out to the right state manager or shader selector, drives each
// tile's update/render, and publishes the results through a Publisher.
//
// The idle/running state machine and the "instantiate on start, tear down
// in reverse on stop" lifecycle are grounded on the teacher's own
// Emulator.Start/Stop/Running shape (internal/emulator/emulator.go);
// MasterClock's "advance, then let each component step" loop
// (internal/clock/scheduler.go) is the direct ancestor of RunFrame's
// sample-then-update-then-render-then-publish sequence, generalized from
// cycle-budgeted CPU/PPU/APU stepping to a 60 Hz six-tile compositor tick.
package engine

import (
	"fmt"
	"sync"
	"time"

	"nitro-core-dx/internal/audioproc"
	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/gfx"
	"nitro-core-dx/internal/imagetile"
	"nitro-core-dx/internal/reactive"
	"nitro-core-dx/internal/shaderlib"
	"nitro-core-dx/internal/textstate"
)

// State is the engine's coarse lifecycle state (spec §4.9 "idle → running
// → idle").
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// fpsSampleFrames is the rolling window RunFrame averages FPS over (§4.9
// step 7 "accumulate over 30 frames, divide").
const fpsSampleFrames = 30

// lyricsRenderer, refrainRenderer, and songInfoRenderer are the narrow
// seams the three text tiles are consumed through. *texttile.LyricsTile /
// RefrainTile / SongInfoTile satisfy these structurally; tests substitute
// fakes so engine logic never needs a real SDL_ttf context.
type lyricsRenderer interface {
	Update(reactive.LyricsDisplayState) error
	Render() (*gfx.Frame, error)
}

type refrainRenderer interface {
	Update(reactive.RefrainDisplayState) error
	Render() (*gfx.Frame, error)
}

type songInfoRenderer interface {
	Update(reactive.SongInfoDisplayState) error
	Render() (*gfx.Frame, error)
}

// generatorRenderer and maskRenderer are the narrow seams
// *shadertile.Tile and *masktile.Tile are consumed through. Both need a
// live OpenGL context to actually render (§4.4's real GPU pipeline), so
// engine tests substitute fakes here rather than constructing the real
// GL-backed tiles, the same way the three text renderers above are
// faked out to avoid a real SDL_ttf context.
type generatorRenderer interface {
	UpdateState(reactive.ShaderDisplayState)
	Update(reactive.AudioState, float64)
	Render() *gfx.Frame
}

type maskRenderer interface {
	UpdateState(reactive.ShaderDisplayState)
	Update(reactive.AudioState, float64)
	Render() *gfx.Frame
}

// publisher is the seam internal/surface.Publisher is consumed through,
// narrowed to what the render loop needs (spec §4.8).
type publisher interface {
	CreateStandardServers() error
	Publish(name string, frame *gfx.Frame) error
	SetEnabled(bool)
	StopAll()
}

// Deps bundles every already-constructed collaborator the engine drives.
// cmd/vjengine builds these (wiring SDL-backed measurers/publishers);
// Engine itself touches no SDL API directly.
type Deps struct {
	Logger *debug.Logger
	NowFn  func() time.Time

	Audio *audioproc.Processor
	Text  *textstate.Manager

	ShaderSelector *shaderlib.Manager
	MaskSelector   *shaderlib.Manager

	ShaderTile generatorRenderer
	MaskTile   maskRenderer

	LyricsTile   lyricsRenderer
	RefrainTile  refrainRenderer
	SongInfoTile songInfoRenderer
	ImageTile    *imagetile.Tile

	Publisher publisher
}

// Engine is the tile manager + render loop described in §4.9.
type Engine struct {
	logger *debug.Logger
	nowFn  func() time.Time

	audio *audioproc.Processor
	text  *textstate.Manager

	shaderSelector *shaderlib.Manager
	maskSelector   *shaderlib.Manager

	shaderTile generatorRenderer
	maskTile   maskRenderer

	lyricsTile   lyricsRenderer
	refrainTile  refrainRenderer
	songInfoTile songInfoRenderer
	imageTile    *imagetile.Tile

	publisher publisher

	surfaceNames map[string]string // tile config name -> published surface name

	mu            sync.Mutex
	state         State
	lastFrame     time.Time
	fpsFrameCount int
	fpsWindowFrom time.Time
	fps           float64
}

// New creates an Engine bound to deps, starting in StateIdle.
func New(deps Deps) *Engine {
	nowFn := deps.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	names := make(map[string]string)
	for _, cfg := range reactive.StandardTileConfigs() {
		names[cfg.Name] = cfg.PublishedSurfaceName
	}
	return &Engine{
		logger:         deps.Logger,
		nowFn:          nowFn,
		audio:          deps.Audio,
		text:           deps.Text,
		shaderSelector: deps.ShaderSelector,
		maskSelector:   deps.MaskSelector,
		shaderTile:     deps.ShaderTile,
		maskTile:       deps.MaskTile,
		lyricsTile:     deps.LyricsTile,
		refrainTile:    deps.RefrainTile,
		songInfoTile:   deps.SongInfoTile,
		imageTile:      deps.ImageTile,
		publisher:      deps.Publisher,
		surfaceNames:   names,
		state:          StateIdle,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start transitions idle → running: creates the six standard published
// surfaces and arms the frame/FPS clocks (§4.9). A no-op if already
// running. Failure here is the one engine-fatal case (§7 "no GPU device,
// cannot create command queue") and is propagated to the caller.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		return nil
	}
	if err := e.publisher.CreateStandardServers(); err != nil {
		return fmt.Errorf("engine: start: %w", err)
	}
	now := e.nowFn()
	e.lastFrame = now
	e.fpsWindowFrom = now
	e.fpsFrameCount = 0
	e.state = StateRunning
	if e.logger != nil {
		e.logger.LogEnginef(debug.LogLevelInfo, "engine started")
	}
	return nil
}

// Stop transitions running → idle, tearing down published surfaces. A
// no-op if already idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return
	}
	e.publisher.StopAll()
	e.state = StateIdle
	if e.logger != nil {
		e.logger.LogEnginef(debug.LogLevelInfo, "engine stopped")
	}
}

// FPS returns the most recently computed rolling frame rate (supplemented
// accessor, SPEC_FULL.md §C.2).
func (e *Engine) FPS() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fps
}

// Event inputs (spec §4.9 "Event inputs", §6). All are safe to call from
// any goroutine. The text and selector inputs only take a short mutex;
// OnAudioUpdate waits until the audio actor has processed the sample.

// OnTrackChange re-arms the song-info envelope.
func (e *Engine) OnTrackChange(artist, title, album string) {
	e.text.SetSongInfo(artist, title, album)
}

// OnLyricsLoaded replaces the lyric list.
func (e *Engine) OnLyricsLoaded(lines []reactive.LyricLine) {
	e.text.SetLyrics(lines)
}

// OnActiveLine re-arms the lyrics envelope if index changed.
func (e *Engine) OnActiveLine(index int) {
	e.text.SetActiveLine(index)
}

// OnRefrain re-arms the refrain envelope if text changed.
func (e *Engine) OnRefrain(text string) {
	e.text.SetRefrain(text)
}

// OnShaderChange requests a (re)load of the named generator shader.
func (e *Engine) OnShaderChange(name string) {
	e.shaderSelector.SelectByName(name)
}

// OnMaskChange requests a (re)load of the named mask shader. The spec's
// event table (§4.9) only lists ShaderChange explicitly, but §4.5
// describes mask selection as the same lifecycle as the generator shader;
// this mirrors OnShaderChange for the mask's own independent library so a
// session can ever select a non-default mask.
func (e *Engine) OnMaskChange(name string) {
	e.maskSelector.SelectByName(name)
}

// OnAudioUpdate feeds one raw sample through the audio processor.
func (e *Engine) OnAudioUpdate(raw audioproc.RawAudioLevels) {
	e.audio.Update(raw)
}

// RunFrame executes one iteration of the loop described in §4.9 steps
// 1-7. It is a no-op when the engine is idle. The caller (cmd/vjengine)
// is expected to call this once per host frame tick, since SDL
// presentation must happen on the thread that owns the window.
func (e *Engine) RunFrame() error {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return nil
	}
	now := e.nowFn()
	dt := now.Sub(e.lastFrame).Seconds()
	e.lastFrame = now
	e.mu.Unlock()

	audio := e.sampleAudio()

	lyrics, refrain, song := e.text.Tick()

	e.shaderTile.UpdateState(reactive.ShaderDisplayState{Current: e.shaderSelector.Current()})
	e.maskTile.UpdateState(reactive.ShaderDisplayState{Current: e.maskSelector.Current()})
	e.logTileErr("lyrics", e.lyricsTile.Update(lyrics))
	e.logTileErr("refrain", e.refrainTile.Update(refrain))
	e.logTileErr("songinfo", e.songInfoTile.Update(song))

	e.shaderTile.Update(audio, dt)
	e.maskTile.Update(audio, dt)
	e.imageTile.Update(audio, dt)

	e.publishFrame("Shader", e.shaderTile.Render(), nil)
	e.publishFrame("Mask", e.maskTile.Render(), nil)
	lyricsFrame, lyricsErr := e.lyricsTile.Render()
	e.publishFrame("Lyrics", lyricsFrame, lyricsErr)
	refrainFrame, refrainErr := e.refrainTile.Render()
	e.publishFrame("Refrain", refrainFrame, refrainErr)
	songInfoFrame, songInfoErr := e.songInfoTile.Render()
	e.publishFrame("SongInfo", songInfoFrame, songInfoErr)
	e.publishFrame("Image", e.imageTile.Render(), nil)

	e.tickFPS(now)
	return nil
}

// sampleAudio returns the live AudioState, or the silence-decayed state
// when no sample has arrived within the processor's timeout window
// (§4.9 step 2, §4.2 "Timeout behavior").
func (e *Engine) sampleAudio() reactive.AudioState {
	if e.audio.IsActive() {
		return e.audio.Snapshot()
	}
	return e.audio.UpdateWithTimeoutDecay()
}

func (e *Engine) logTileErr(tile string, err error) {
	if err != nil && e.logger != nil {
		e.logger.LogEnginef(debug.LogLevelWarning, "%s tile update failed: %v", tile, err)
	}
}

// publishFrame handles the (frame, error) shape every tile's Render call
// produces (shader/mask/image never error; text tiles can on a measurer
// failure): a render failure drops that frame and logs, matching §7's
// "GPU runtime ... drop the frame; continue" policy.
func (e *Engine) publishFrame(name string, frame *gfx.Frame, err error) {
	if err != nil {
		if e.logger != nil {
			e.logger.LogEnginef(debug.LogLevelWarning, "%s tile render failed: %v", name, err)
		}
		return
	}
	if frame == nil {
		return
	}
	surfaceName, ok := e.surfaceNames[name]
	if !ok {
		return
	}
	if pubErr := e.publisher.Publish(surfaceName, frame); pubErr != nil && e.logger != nil {
		e.logger.LogEnginef(debug.LogLevelWarning, "publish %q failed: %v", surfaceName, pubErr)
	}
}

func (e *Engine) tickFPS(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fpsFrameCount++
	if e.fpsFrameCount < fpsSampleFrames {
		return
	}
	elapsed := now.Sub(e.fpsWindowFrom).Seconds()
	if elapsed > 0 {
		e.fps = float64(e.fpsFrameCount) / elapsed
	}
	e.fpsFrameCount = 0
	e.fpsWindowFrom = now
}
