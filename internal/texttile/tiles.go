package texttile

import (
	"nitro-core-dx/internal/gfx"
	"nitro-core-dx/internal/reactive"
)

// Width fractions the auto-fit pass measures against for the two tiles
// besides Refrain: SongInfo reuses Refrain's 85%, Lyrics uses 90%.
const (
	LyricsWidthFrac   = 0.90
	SongInfoWidthFrac = 0.85
)

// LyricsTile owns the three-line karaoke auto-fit/layout/render pipeline
// (spec §4.6), sharing the Update(state)/Render() shape every other tile
// in this engine exposes. m is the real SDL_ttf-backed measurer/rasterizer;
// it also satisfies Measurer so the auto-fit pass can run against it
// directly.
type LyricsTile struct {
	m             *SDLMeasurer
	width, height int
	state         reactive.LyricsDisplayState
	fitSize       int
}

// NewLyricsTile creates a lyrics tile at the given resolution.
func NewLyricsTile(m *SDLMeasurer, width, height int) *LyricsTile {
	return &LyricsTile{m: m, width: width, height: height, fitSize: LyricsMaxSize}
}

// Update recomputes the auto-fit size for the current {prev, current,
// next} triple and stores the snapshot for the next Render call.
func (t *LyricsTile) Update(state reactive.LyricsDisplayState) error {
	maxWidth := float64(t.width) * LyricsWidthFrac
	size, err := CalcLyricsAutoFitSize(t.m, state.PrevText(), state.CurrentText(), state.NextText(), maxWidth, LyricsMinSize, LyricsMaxSize)
	if err != nil {
		return err
	}
	t.state = state
	t.fitSize = size
	return nil
}

// Render rasterizes the current three-line layout into a fresh frame.
func (t *LyricsTile) Render() (*gfx.Frame, error) {
	layout := BuildLyricsLayout(t.state, t.fitSize)
	return RenderLyrics(t.m, t.width, t.height, layout)
}

// RefrainTile owns the single-line refrain auto-fit/layout/render
// pipeline (spec §4.6).
type RefrainTile struct {
	m             *SDLMeasurer
	width, height int
	state         reactive.RefrainDisplayState
	fitSize       int
}

// NewRefrainTile creates a refrain tile at the given resolution.
func NewRefrainTile(m *SDLMeasurer, width, height int) *RefrainTile {
	return &RefrainTile{m: m, width: width, height: height, fitSize: RefrainMaxSize}
}

// Update recomputes the refrain's auto-fit size.
func (t *RefrainTile) Update(state reactive.RefrainDisplayState) error {
	maxWidth := float64(t.width) * RefrainWidthFrac
	size, err := CalcAutoFitFontSize(t.m, state.Text, maxWidth, RefrainMinSize, RefrainMaxSize)
	if err != nil {
		return err
	}
	t.state = state
	t.fitSize = size
	return nil
}

// Render rasterizes the current refrain layout into a fresh frame.
func (t *RefrainTile) Render() (*gfx.Frame, error) {
	layout := BuildRefrainLayout(t.state, t.fitSize)
	return RenderRefrain(t.m, t.width, t.height, layout)
}

// SongInfoTile owns the artist/title auto-fit/layout/render pipeline
// (spec §4.6).
type SongInfoTile struct {
	m             *SDLMeasurer
	width, height int
	layout        SongInfoLayout
}

// NewSongInfoTile creates a song-info tile at the given resolution.
func NewSongInfoTile(m *SDLMeasurer, width, height int) *SongInfoTile {
	return &SongInfoTile{m: m, width: width, height: height}
}

// Update recomputes the artist/title layout from state.
func (t *SongInfoTile) Update(state reactive.SongInfoDisplayState) error {
	maxWidth := float64(t.width) * SongInfoWidthFrac
	layout, err := BuildSongInfoLayout(t.m, maxWidth, state)
	if err != nil {
		return err
	}
	t.layout = layout
	return nil
}

// Render rasterizes the current artist/title layout into a fresh frame.
func (t *SongInfoTile) Render() (*gfx.Frame, error) {
	return RenderSongInfo(t.m, t.width, t.height, t.layout)
}
