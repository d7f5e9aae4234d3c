package masktile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nitro-core-dx/internal/reactive"
)

// Render() needs a live GL context, so it is left untested here the same
// way shadertile leaves it untested; luminance and the Update/UpdateState
// bookkeeping below don't touch GL and are covered directly.

func TestLuminanceWeightsChannelsLikeRec601(t *testing.T) {
	require.Equal(t, byte(255), luminance(255, 255, 255))
	require.Equal(t, byte(0), luminance(0, 0, 0))
	require.Greater(t, luminance(0, 255, 0), luminance(0, 0, 255), "green weighs more than blue")
}

func TestUpdateStateEmptyNameUsesDefault(t *testing.T) {
	tile := NewTile(nil, nil, nil, 4, 4)
	tile.UpdateState(reactive.ShaderDisplayState{Current: ""})
	require.Empty(t, tile.DisplayState().Error)
	require.Empty(t, tile.fragSource)
}

func TestUpdateAdvancesAudioTime(t *testing.T) {
	tile := NewTile(nil, nil, nil, 4, 4)
	tile.Update(reactive.AudioState{Speed: 1.0, Bass: 0.5, Level: 0.5}, 1.0/60.0)
	require.InDelta(t, 1.0/60.0, tile.DisplayState().AudioTime, 1e-9)
}
