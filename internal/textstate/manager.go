// Package textstate owns the three text display states (lyrics, refrain,
// song info) and advances their fade envelopes on a ~30 Hz tick (spec §4.3).
//
// Mutators are copy-on-write: each call replaces the owned snapshot with a
// new value, so a tile reading a snapshot mid-tick never observes a torn
// state (spec §3 "Ownership & lifecycle", §5 "Ordering guarantees").
package textstate

import (
	"sync"
	"time"

	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/reactive"
)

// Envelope timings (§4.3).
const (
	lyricsHoldSec    = 5.0
	lyricsFallSec    = 1.0
	refrainHoldSec   = 2.0
	refrainFallSec   = 1.0
)

// Manager owns the authoritative lyrics/refrain/song-info state.
type Manager struct {
	logger *debug.Logger
	nowFn  func() time.Time

	mu      sync.RWMutex
	lyrics  reactive.LyricsDisplayState
	refrain reactive.RefrainDisplayState
	song    reactive.SongInfoDisplayState
}

// NewManager creates a manager. nowFn defaults to time.Now when nil.
func NewManager(logger *debug.Logger, nowFn func() time.Time) *Manager {
	if nowFn == nil {
		nowFn = time.Now
	}
	m := &Manager{logger: logger, nowFn: nowFn}
	m.lyrics = reactive.LyricsDisplayState{
		ActiveIndex:    -1,
		FadeDelayMs:    lyricsHoldSec * 1000,
		FadeDurationMs: lyricsFallSec * 1000,
	}
	m.refrain = reactive.RefrainDisplayState{}
	m.song = reactive.SongInfoDisplayState{}
	return m
}

// SetLyrics replaces the lyric list, preserving ActiveIndex (§6).
func (m *Manager) SetLyrics(lines []reactive.LyricLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]reactive.LyricLine, len(lines))
	copy(cp, lines)
	m.lyrics.Lines = cp
	m.lyrics.LastChangeTime = m.nowFn()
	if m.logger != nil {
		m.logger.LogTextf(debug.LogLevelInfo, "lyrics loaded: %d lines", len(cp))
	}
}

// SetActiveLine re-arms the lyrics envelope only if index actually changed
// (§4.3 "Mutation is conditional", §8.6 idempotence).
func (m *Manager) SetActiveLine(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lyrics.ActiveIndex == index {
		return
	}
	m.lyrics.ActiveIndex = index
	m.lyrics.LastChangeTime = m.nowFn()
}

// ClearLyrics empties the lyric list and deactivates the line index.
func (m *Manager) ClearLyrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lyrics.Lines = nil
	m.lyrics.ActiveIndex = -1
	m.lyrics.LastChangeTime = m.nowFn()
}

// SetRefrain re-arms the refrain envelope only if the text actually changed.
func (m *Manager) SetRefrain(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refrain.Text == text {
		return
	}
	m.refrain.Text = text
	m.refrain.Active = text != ""
	m.refrain.LastChangeTime = m.nowFn()
}

// ClearRefrain deactivates the refrain line.
func (m *Manager) ClearRefrain() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refrain.Text = ""
	m.refrain.Active = false
	m.refrain.LastChangeTime = m.nowFn()
}

// SetSongInfo re-arms the song-info envelope.
func (m *Manager) SetSongInfo(artist, title, album string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.song.Artist = artist
	m.song.Title = title
	m.song.Album = album
	m.song.Active = artist != "" || title != ""
	m.song.LastChangeTime = m.nowFn()
	if m.logger != nil {
		m.logger.LogTextf(debug.LogLevelInfo, "track changed: %s - %s", artist, title)
	}
}

// ClearSongInfo deactivates the song-info tile.
func (m *Manager) ClearSongInfo() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.song.Artist = ""
	m.song.Title = ""
	m.song.Album = ""
	m.song.Active = false
	m.song.LastChangeTime = m.nowFn()
}

// Tick advances all three envelopes and returns fresh read-only snapshots.
// The caller (the render/tile-update loop) is expected to call this at
// ~30 Hz (§2, §4.3); it is pure with respect to the text list/text content,
// only opacity/displayTime are recomputed.
func (m *Manager) Tick() (reactive.LyricsDisplayState, reactive.RefrainDisplayState, reactive.SongInfoDisplayState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()

	lyricsElapsed := now.Sub(m.lyrics.LastChangeTime).Seconds()
	m.lyrics.TextOpacity = envelopeOpacity(lyricsElapsed, lyricsHoldSec, lyricsFallSec)

	refrainElapsed := now.Sub(m.refrain.LastChangeTime).Seconds()
	if m.refrain.Active {
		m.refrain.Opacity = envelopeOpacity(refrainElapsed, refrainHoldSec, refrainFallSec)
	} else {
		m.refrain.Opacity = 0
	}

	if m.song.Active {
		m.song.DisplayTime = now.Sub(m.song.LastChangeTime).Seconds()
		if m.song.DisplayTime > reactive.SongInfoTotalSec {
			m.song.Active = false
		}
	}

	return m.lyrics, m.refrain, m.song
}

// envelopeOpacity is the shared hold-then-fall shape used by lyrics and
// refrain (§4.3): full opacity for [0, hold], then linear fall to 0 over
// the next `fall` seconds.
func envelopeOpacity(elapsed, hold, fall float64) float64 {
	switch {
	case elapsed < 0:
		return 255
	case elapsed <= hold:
		return 255
	case elapsed <= hold+fall:
		remaining := (hold + fall) - elapsed
		if fall == 0 {
			return 0
		}
		return 255 * (remaining / fall)
	default:
		return 0
	}
}

// Lyrics returns the current lyrics snapshot without advancing envelopes.
func (m *Manager) Lyrics() reactive.LyricsDisplayState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lyrics
}

// Refrain returns the current refrain snapshot without advancing envelopes.
func (m *Manager) Refrain() reactive.RefrainDisplayState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refrain
}

// SongInfo returns the current song-info snapshot without advancing envelopes.
func (m *Manager) SongInfo() reactive.SongInfoDisplayState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.song
}
