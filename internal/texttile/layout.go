// Package texttile lays out and rasterizes the three text tiles (Lyrics,
// Refrain, SongInfo), which share one pipeline: clear an off-screen bitmap,
// compute layout, rasterize with the OS text stack, upload (spec §4.6).
//
// Layout math is kept pure and independent of SDL_ttf so it can be unit
// tested without a display; only render.go touches SDL, matching the
// teacher's own untested internal/ui package.
package texttile

import "nitro-core-dx/internal/reactive"

// fontStep is the auto-fit search decrement (spec §4.6).
const fontStep = 2

// Measurer reports the rendered pixel width of text at a given point size,
// the one thing auto-fit needs from a real font backend.
type Measurer interface {
	MeasureWidth(text string, size int) (float64, error)
}

// CalcAutoFitFontSize steps size down from maxSize in fontStep decrements
// until the measured width fits within maxWidth, or minSize is reached
// (spec §4.6 "Auto-fit").
func CalcAutoFitFontSize(m Measurer, text string, maxWidth float64, minSize, maxSize int) (int, error) {
	if text == "" {
		return maxSize, nil
	}
	for size := maxSize; size > minSize; size -= fontStep {
		w, err := m.MeasureWidth(text, size)
		if err != nil {
			return 0, err
		}
		if w <= maxWidth {
			return size, nil
		}
	}
	return minSize, nil
}

// CalcLyricsAutoFitSize auto-fits over {prev, current, next} and returns the
// minimum resulting size across all three non-empty lines (spec §4.6).
func CalcLyricsAutoFitSize(m Measurer, prev, current, next string, maxWidth float64, minSize, maxSize int) (int, error) {
	best := maxSize
	for _, text := range []string{prev, current, next} {
		if text == "" {
			continue
		}
		size, err := CalcAutoFitFontSize(m, text, maxWidth, minSize, maxSize)
		if err != nil {
			return 0, err
		}
		if size < best {
			best = size
		}
	}
	return best, nil
}

// LyricsLineLayout is one of the three karaoke lines' computed placement.
type LyricsLineLayout struct {
	Text    string
	Size    int
	Opacity float64 // 0..255
	YFrac   float64
}

// LyricsLayout is the three-line karaoke layout (spec §4.6).
type LyricsLayout struct {
	Prev, Current, Next LyricsLineLayout
}

// Lyrics auto-fit bounds and per-line shaping (spec §4.6).
const (
	LyricsMinSize = 24
	LyricsMaxSize = 96

	lyricsPrevScale = 0.7
	lyricsNextScale = 0.7
	lyricsPrevAlpha = 0.35
	lyricsNextAlpha = 0.25

	lyricsPrevY = 0.28
	lyricsCurrY = 0.50
	lyricsNextY = 0.72
)

// BuildLyricsLayout computes the three-line layout from the auto-fit size S
// and the envelope's current stateOpacity (spec §4.6).
func BuildLyricsLayout(state reactive.LyricsDisplayState, fitSize int) LyricsLayout {
	s := float64(fitSize)
	return LyricsLayout{
		Prev: LyricsLineLayout{
			Text:    state.PrevText(),
			Size:    int(s * lyricsPrevScale),
			Opacity: state.TextOpacity * lyricsPrevAlpha,
			YFrac:   lyricsPrevY,
		},
		Current: LyricsLineLayout{
			Text:    state.CurrentText(),
			Size:    fitSize,
			Opacity: state.TextOpacity,
			YFrac:   lyricsCurrY,
		},
		Next: LyricsLineLayout{
			Text:    state.NextText(),
			Size:    int(s * lyricsNextScale),
			Opacity: state.TextOpacity * lyricsNextAlpha,
			YFrac:   lyricsNextY,
		},
	}
}

// Refrain auto-fit bounds (spec §4.6).
const (
	RefrainMinSize    = 36
	RefrainMaxSize    = 120
	RefrainWidthFrac  = 0.85
	refrainY          = 0.50
)

// RefrainLayout is the single-line refrain layout.
type RefrainLayout struct {
	Text    string
	Size    int
	Opacity float64
	YFrac   float64
}

// BuildRefrainLayout computes the refrain layout from its auto-fit size.
func BuildRefrainLayout(state reactive.RefrainDisplayState, fitSize int) RefrainLayout {
	return RefrainLayout{
		Text:    state.Text,
		Size:    fitSize,
		Opacity: state.Opacity,
		YFrac:   refrainY,
	}
}

// Song-info auto-fit bounds (spec §4.6).
const (
	SongInfoArtistMinSize = 24
	SongInfoArtistMaxSize = 46 // 0.65 * 72 = 46.8, truncated
	SongInfoTitleMinSize  = 28
	SongInfoTitleMaxSize  = 72

	songInfoArtistY = 0.42
	songInfoTitleY  = 0.55
)

// SongInfoLineLayout is one of the two song-info lines' computed placement.
// Size == 0 means the line is absent and must be skipped (no layout shift).
type SongInfoLineLayout struct {
	Text    string
	Size    int
	Opacity float64
	YFrac   float64
}

// SongInfoLayout is the two-line (artist, title) layout.
type SongInfoLayout struct {
	Artist, Title SongInfoLineLayout
}

// BuildSongInfoLayout computes the artist/title layout, skipping lines that
// are empty in the input (spec §4.6).
func BuildSongInfoLayout(m Measurer, maxWidth float64, state reactive.SongInfoDisplayState) (SongInfoLayout, error) {
	opacity := reactive.SongInfoOpacity(state.DisplayTime)
	var layout SongInfoLayout

	if state.Artist != "" {
		size, err := CalcAutoFitFontSize(m, state.Artist, maxWidth, SongInfoArtistMinSize, SongInfoArtistMaxSize)
		if err != nil {
			return SongInfoLayout{}, err
		}
		layout.Artist = SongInfoLineLayout{Text: state.Artist, Size: size, Opacity: opacity, YFrac: songInfoArtistY}
	}
	if state.Title != "" {
		size, err := CalcAutoFitFontSize(m, state.Title, maxWidth, SongInfoTitleMinSize, SongInfoTitleMaxSize)
		if err != nil {
			return SongInfoLayout{}, err
		}
		layout.Title = SongInfoLineLayout{Text: state.Title, Size: size, Opacity: opacity, YFrac: songInfoTitleY}
	}
	return layout, nil
}
