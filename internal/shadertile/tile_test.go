package shadertile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nitro-core-dx/internal/reactive"
	"nitro-core-dx/internal/shaderlib"
)

// Render() needs a live GL context (an actual GPU/driver), so it is left
// untested here the same way the teacher leaves its SDL-bound rendering
// code untested — these cases exercise everything UpdateState/load/Update
// do without ever calling Render.

func newTestLibrary(t *testing.T) *shaderlib.Library {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.glsl"),
		[]byte("fragColor = vec4(bass, 0.0, 0.0, 1.0);"), 0o644))
	lib := shaderlib.NewLibrary(nil)
	require.NoError(t, lib.Index(dir))
	return lib
}

func TestUpdateStateLoadsNamedShaderSource(t *testing.T) {
	lib := newTestLibrary(t)
	tile := NewTile(nil, lib, nil, 4, 4)

	tile.UpdateState(reactive.ShaderDisplayState{Current: "good"})
	state := tile.DisplayState()
	require.True(t, state.IsLoaded)
	require.Empty(t, state.Error)
	require.Contains(t, tile.fragSource, "bass")
}

func TestUpdateStateRecordsErrorWhenShaderMissing(t *testing.T) {
	lib := newTestLibrary(t)
	tile := NewTile(nil, lib, nil, 4, 4)

	tile.UpdateState(reactive.ShaderDisplayState{Current: "nonexistent"})
	state := tile.DisplayState()
	require.True(t, state.IsLoaded)
	require.NotEmpty(t, state.Error)
}

func TestUpdateStateNoopWhenUnchanged(t *testing.T) {
	lib := newTestLibrary(t)
	tile := NewTile(nil, lib, nil, 4, 4)
	tile.UpdateState(reactive.ShaderDisplayState{Current: "good"})
	tile.UpdateState(reactive.ShaderDisplayState{Current: "good"})
	require.Equal(t, "good", tile.DisplayState().Current)
}

func TestUpdateStateEmptyNameUsesDefault(t *testing.T) {
	tile := NewTile(nil, nil, nil, 4, 4)
	tile.UpdateState(reactive.ShaderDisplayState{Current: ""})
	state := tile.DisplayState()
	require.True(t, state.IsLoaded)
	require.Empty(t, state.Error)
	require.Empty(t, tile.fragSource)
}

func TestUpdateAdvancesAudioTimeByDtTimesSpeed(t *testing.T) {
	tile := NewTile(nil, nil, nil, 4, 4)
	tile.Update(reactive.AudioState{Speed: 2.0}, 0.5)
	require.InDelta(t, 1.0, tile.DisplayState().AudioTime, 1e-9)
}

func TestResolveProgramCachesCompileAttemptByName(t *testing.T) {
	tile := NewTile(nil, nil, nil, 4, 4)
	tile.current = "whatever"
	tile.fragSource = "" // no source loaded: resolveProgram must fall back without touching GL
	require.Equal(t, uint32(0), tile.resolveProgram())

	// A cached entry for the name is reused as-is, so no compile (and no GL
	// call) happens on a repeat selection.
	tile.fragSource = "wrapped source"
	tile.cache["whatever"] = &compiledProgram{id: 42}
	require.Equal(t, uint32(42), tile.resolveProgram())
}
