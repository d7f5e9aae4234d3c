// Package reactive holds the immutable value snapshots shared between the
// audio processor, the text/image/shader state managers, and the tiles that
// render from them. Every type here is copy-on-mutation: nothing in this
// package holds a pointer back into a producer, so a snapshot handed to a
// tile can never be torn by a concurrent writer.
package reactive

import "time"

// ShaderRating classifies a shader's subjective quality, as curated by a
// human reviewing the shader library.
type ShaderRating string

const (
	RatingBest   ShaderRating = "best"
	RatingGood   ShaderRating = "good"
	RatingOK     ShaderRating = "ok"
	RatingSkip   ShaderRating = "skip"
	RatingBroken ShaderRating = "broken"
)

// Speed pipeline constants (§4.2).
const (
	SpeedFloor   = 0.02
	SpeedCeiling = 1.20
)

// KickCooldown is the minimum interval between two kickPulse edges (§3, §8.2).
const KickCooldown = 140 * time.Millisecond

// AudioState is the central reactive vector sampled once per frame by every
// tile. All fields are immutable once constructed.
type AudioState struct {
	Bass   float64
	LowMid float64
	Mid    float64
	Highs  float64
	Level  float64

	EnergyFast float64
	EnergySlow float64

	KickEnv   float64
	KickPulse bool

	BeatPhase float64
	Beat4     int

	BPMTwitcher   float64
	BPMSin4       float64
	BPMConfidence float64

	Speed float64

	Timestamp time.Time
}

// LyricLine is a single timed karaoke line.
type LyricLine struct {
	ID      int
	TimeSec float64
	Text    string
}

// LyricsDisplayState is the lyrics tile's read-only input snapshot.
// ActiveIndex == -1 means "no active line".
type LyricsDisplayState struct {
	Lines          []LyricLine
	ActiveIndex    int
	TextOpacity    float64 // 0..255
	FadeDelayMs    float64
	FadeDurationMs float64
	LastChangeTime time.Time
}

// PrevText returns the line before ActiveIndex, or "" if none.
func (s LyricsDisplayState) PrevText() string {
	if s.ActiveIndex <= 0 || s.ActiveIndex-1 >= len(s.Lines) {
		return ""
	}
	return s.Lines[s.ActiveIndex-1].Text
}

// CurrentText returns the line at ActiveIndex, or "" if none active.
func (s LyricsDisplayState) CurrentText() string {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Lines) {
		return ""
	}
	return s.Lines[s.ActiveIndex].Text
}

// NextText returns the line after ActiveIndex, or "" if none.
func (s LyricsDisplayState) NextText() string {
	if s.ActiveIndex < 0 || s.ActiveIndex+1 >= len(s.Lines) {
		return ""
	}
	return s.Lines[s.ActiveIndex+1].Text
}

// RefrainDisplayState is the refrain tile's read-only input snapshot.
type RefrainDisplayState struct {
	Text           string
	Opacity        float64 // 0..255
	Active         bool
	LastChangeTime time.Time
}

// SongInfoDisplayState is the song-info tile's read-only input snapshot.
// Opacity is derived from DisplayTime by the caller (§4.3); it is not
// stored here because it is a pure function of time, not state.
type SongInfoDisplayState struct {
	Artist         string
	Title          string
	Album          string
	DisplayTime    float64 // seconds since LastChangeTime
	Active         bool
	LastChangeTime time.Time
}

// Song-info envelope shape (§3, §4.3): 0.5s rise, 5.0s hold, 1.0s fall.
const (
	SongInfoFadeInSec  = 0.5
	SongInfoHoldSec    = 5.0
	SongInfoFadeOutSec = 1.0
	SongInfoTotalSec   = SongInfoFadeInSec + SongInfoHoldSec + SongInfoFadeOutSec
)

// SongInfoOpacity computes opacity (0..255) purely from elapsed DisplayTime.
func SongInfoOpacity(displayTime float64) float64 {
	switch {
	case displayTime < 0:
		return 0
	case displayTime <= SongInfoFadeInSec:
		if SongInfoFadeInSec == 0 {
			return 255
		}
		return 255 * (displayTime / SongInfoFadeInSec)
	case displayTime <= SongInfoFadeInSec+SongInfoHoldSec:
		return 255
	case displayTime <= SongInfoTotalSec:
		remaining := SongInfoTotalSec - displayTime
		return 255 * (remaining / SongInfoFadeOutSec)
	default:
		return 0
	}
}

// ImageDisplayState is the image tile's read-only input snapshot.
type ImageDisplayState struct {
	CurrentImageURL   string
	NextImageURL      string
	CrossfadeProgress float64 // 0..1
	IsFading          bool
	CoverMode         bool
	FolderImages      []string
	FolderIndex       int
	BeatsPerChange    int // 0 disables beat cycling
}

// ShaderInfo describes one entry in a shader (or mask) library.
type ShaderInfo struct {
	Name   string
	Path   string
	Rating ShaderRating
}

// ShaderDisplayState is the shader tile's read-only input snapshot.
type ShaderDisplayState struct {
	Current        string
	IsLoaded       bool
	Error          string
	AudioTime      float64
	SyntheticMouse [2]float64
}

// ShaderUniforms is the fixed-layout block handed to every shader/mask
// program invocation, mirroring the binary contract in spec §6.
type ShaderUniforms struct {
	Time           float64
	ResolutionX    float64
	ResolutionY    float64
	MouseX         float64
	MouseY         float64
	Speed          float64
	Bass           float64
	LowMid         float64
	Mid            float64
	Highs          float64
	Level          float64
	KickEnv        float64
	KickPulse      float64 // 0.0 or 1.0
	Beat           float64 // beatPhase
	EnergyFast     float64
	EnergySlow     float64
}

// UniformsFromAudio builds the per-frame uniform block from an AudioState,
// a resolution, and a synthetic mouse position.
func UniformsFromAudio(audioTime float64, width, height int, mouse [2]float64, a AudioState) ShaderUniforms {
	kickPulse := 0.0
	if a.KickPulse {
		kickPulse = 1.0
	}
	return ShaderUniforms{
		Time:        audioTime,
		ResolutionX: float64(width),
		ResolutionY: float64(height),
		MouseX:      mouse[0],
		MouseY:      mouse[1],
		Speed:       a.Speed,
		Bass:        a.Bass,
		LowMid:      a.LowMid,
		Mid:         a.Mid,
		Highs:       a.Highs,
		Level:       a.Level,
		KickEnv:     a.KickEnv,
		KickPulse:   kickPulse,
		Beat:        a.BeatPhase,
		EnergyFast:  a.EnergyFast,
		EnergySlow:  a.EnergySlow,
	}
}

// TileConfig describes one of the six canonical published tiles.
type TileConfig struct {
	Name                 string
	PublishedSurfaceName string
	Width                int
	Height                int
}

// DefaultResolution is the default tile resolution (§6).
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// StandardTileConfigs returns the six canonical tile configurations (§3, §6).
func StandardTileConfigs() []TileConfig {
	return []TileConfig{
		{Name: "Shader", PublishedSurfaceName: "SwiftVJ/Shader", Width: DefaultWidth, Height: DefaultHeight},
		{Name: "Mask", PublishedSurfaceName: "SwiftVJ/Mask", Width: DefaultWidth, Height: DefaultHeight},
		{Name: "Lyrics", PublishedSurfaceName: "SwiftVJ/Lyrics", Width: DefaultWidth, Height: DefaultHeight},
		{Name: "Refrain", PublishedSurfaceName: "SwiftVJ/Refrain", Width: DefaultWidth, Height: DefaultHeight},
		{Name: "SongInfo", PublishedSurfaceName: "SwiftVJ/SongInfo", Width: DefaultWidth, Height: DefaultHeight},
		{Name: "Image", PublishedSurfaceName: "SwiftVJ/Image", Width: DefaultWidth, Height: DefaultHeight},
	}
}
