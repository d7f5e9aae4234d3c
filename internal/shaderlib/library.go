package shaderlib

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/reactive"
)

// shaderExts are the file extensions recognized as shader source (§4.4).
var shaderExts = map[string]bool{".glsl": true, ".frag": true, ".txt": true}

// Library indexes a directory of shader source files and tracks a rating
// per shader (RatingOK unless overridden in memory by SetRating; ratings
// are not read from or written to disk).
// It does not compile or cache anything itself — the compiled-program
// cache is owned by each tile (§3, §5 "not shared across tiles, the mask
// tile has its own cache"); the library's job ends at handing back raw
// source bytes.
type Library struct {
	logger *debug.Logger
	dir    string

	mu      sync.RWMutex
	entries []reactive.ShaderInfo
	ratings map[string]reactive.ShaderRating
}

// NewLibrary creates an empty library; call Index to populate it.
func NewLibrary(logger *debug.Logger) *Library {
	return &Library{
		logger:  logger,
		ratings: make(map[string]reactive.ShaderRating),
	}
}

// Index scans dir (non-recursive) for shader source files, sorted by name
// (§4.4 "Library indexing"). A missing or unreadable directory is not
// fatal: the library simply stays empty and the default shader covers it.
func (lib *Library) Index(dir string) error {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	lib.dir = dir
	entriesOnDisk, err := os.ReadDir(dir)
	if err != nil {
		if lib.logger != nil {
			lib.logger.LogShaderf(debug.LogLevelWarning, "shader library dir unreadable: %v", err)
		}
		lib.entries = nil
		return err
	}

	var found []reactive.ShaderInfo
	for _, de := range entriesOnDisk {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if !shaderExts[ext] {
			continue
		}
		name := strings.TrimSuffix(de.Name(), filepath.Ext(de.Name()))
		rating := lib.ratings[name]
		if rating == "" {
			rating = reactive.RatingOK
		}
		found = append(found, reactive.ShaderInfo{
			Name:   name,
			Path:   filepath.Join(dir, de.Name()),
			Rating: rating,
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	lib.entries = found
	if lib.logger != nil {
		lib.logger.LogShaderf(debug.LogLevelInfo, "indexed %d shaders from %s", len(found), dir)
	}
	return nil
}

// All returns every indexed entry, in name order.
func (lib *Library) All() []reactive.ShaderInfo {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	out := make([]reactive.ShaderInfo, len(lib.entries))
	copy(out, lib.entries)
	return out
}

// Playable returns entries whose rating is not Skip or Broken (§4.4
// "nextShader/prevShader only cycle through playable entries").
func (lib *Library) Playable() []reactive.ShaderInfo {
	all := lib.All()
	out := all[:0:0]
	for _, e := range all {
		if e.Rating == reactive.RatingSkip || e.Rating == reactive.RatingBroken {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SetRating overrides a shader's rating for the remainder of the process
// (the supplemented in-memory re-rating feature; not persisted to disk).
func (lib *Library) SetRating(name string, rating reactive.ShaderRating) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	lib.ratings[name] = rating
	for i := range lib.entries {
		if lib.entries[i].Name == name {
			lib.entries[i].Rating = rating
		}
	}
}

// Find returns the entry with the given name, if indexed.
func (lib *Library) Find(name string) (reactive.ShaderInfo, bool) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	for _, e := range lib.entries {
		if e.Name == name {
			return e, true
		}
	}
	return reactive.ShaderInfo{}, false
}

// ReadSource reads and returns name's raw shader source from disk. A
// read failure is not cached here — the caller (shadertile/masktile)
// owns the decision of whether and how long to remember it.
func (lib *Library) ReadSource(name string) (string, error) {
	info, ok := lib.Find(name)
	if !ok {
		err := fmt.Errorf("shaderlib: %q not found: %w", name, os.ErrNotExist)
		if lib.logger != nil {
			lib.logger.LogShaderf(debug.LogLevelWarning, "%v", err)
		}
		return "", err
	}

	src, err := os.ReadFile(info.Path)
	if err != nil {
		if lib.logger != nil {
			lib.logger.LogShaderf(debug.LogLevelError, "shader %q unreadable: %v", name, err)
		}
		return "", err
	}
	return string(src), nil
}

// Manager tracks which shader is currently selected and drives
// next/prev/select navigation over the library's playable entries (§4.4).
type Manager struct {
	lib *Library

	mu      sync.Mutex
	current string
}

// NewManager creates a selection manager bound to lib.
func NewManager(lib *Library) *Manager {
	return &Manager{lib: lib}
}

// Current returns the currently selected shader name ("" if none selected).
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SelectByName selects name directly, regardless of rating.
func (m *Manager) SelectByName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = name
}

// SelectByIndex selects the Nth playable entry (clamped).
func (m *Manager) SelectByIndex(index int) {
	playable := m.lib.Playable()
	if len(playable) == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= len(playable) {
		index = len(playable) - 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = playable[index].Name
}

// Next advances to the next playable entry after Current, wrapping around.
func (m *Manager) Next() {
	m.step(1)
}

// Prev moves to the previous playable entry before Current, wrapping around.
func (m *Manager) Prev() {
	m.step(-1)
}

func (m *Manager) step(delta int) {
	playable := m.lib.Playable()
	if len(playable) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, e := range playable {
		if e.Name == m.current {
			idx = i
			break
		}
	}
	if idx == -1 {
		if delta > 0 {
			m.current = playable[0].Name
		} else {
			m.current = playable[len(playable)-1].Name
		}
		return
	}
	idx = (idx + delta + len(playable)) % len(playable)
	m.current = playable[idx].Name
}
