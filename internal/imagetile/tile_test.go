package imagetile

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nitro-core-dx/internal/reactive"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// fakeNow returns a now-function backed by a mutable pointer so tests can
// advance time deterministically between calls.
func fakeNow(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestLoadImageCrossfadeMonotonicAndPromotes(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.png")
	writePNG(t, pathA, 4, 4, color.RGBA{255, 0, 0, 255})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tile := NewTile(nil, fakeNow(&now), 16, 16)

	tile.LoadImage(pathA)
	require.Eventually(t, func() bool {
		return tile.DisplayState().NextImageURL == pathA
	}, time.Second, time.Millisecond)

	tile.Update(reactive.AudioState{}, 0)
	s0 := tile.DisplayState()
	require.True(t, s0.IsFading)
	require.Equal(t, 0.0, s0.CrossfadeProgress)

	now = now.Add(250 * time.Millisecond)
	tile.Update(reactive.AudioState{}, 0)
	s1 := tile.DisplayState()
	require.GreaterOrEqual(t, s1.CrossfadeProgress, s0.CrossfadeProgress)
	require.Less(t, s1.CrossfadeProgress, 1.0)

	now = now.Add(500 * time.Millisecond)
	tile.Update(reactive.AudioState{}, 0)
	s2 := tile.DisplayState()
	require.False(t, s2.IsFading)
	require.Equal(t, 1.0, s2.CrossfadeProgress)
	require.Equal(t, pathA, s2.CurrentImageURL)
}

func TestFolderBeatCycling(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"1.png", "2.png", "3.png", "4.png"} {
		writePNG(t, filepath.Join(dir, name), 2, 2, color.RGBA{byte(i * 40), 0, 0, 255})
	}

	now := time.Now()
	tile := NewTile(nil, fakeNow(&now), 8, 8)
	require.NoError(t, tile.LoadFolder(dir))

	require.Eventually(t, func() bool {
		return tile.DisplayState().CurrentImageURL != "" || tile.DisplayState().NextImageURL != ""
	}, time.Second, time.Millisecond)

	tile.SetBeatsPerChange(2)

	var advances int
	for beat := 0; beat < 8; beat++ {
		before := tile.DisplayState().FolderIndex
		tile.Update(reactive.AudioState{Beat4: beat % 4}, 0)
		after := tile.DisplayState().FolderIndex
		if after != before {
			advances++
		}
	}
	// beat4 sequence 0,1,2,3,0,1,2,3: advances happen only when beat4%2==0
	// and it's a fresh value (0,2,0,2) -> 4 candidate edges, i.e. every
	// other beat (spec §4.7, scenario D).
	require.Equal(t, 4, advances)
}

func TestCoverAndLetterboxModeToggle(t *testing.T) {
	now := time.Now()
	tile := NewTile(nil, fakeNow(&now), 16, 16)
	tile.SetCoverMode(true)
	require.True(t, tile.DisplayState().CoverMode)
	tile.SetCoverMode(false)
	require.False(t, tile.DisplayState().CoverMode)
}

func TestLoadImageDecodeFailureRecordsError(t *testing.T) {
	now := time.Now()
	tile := NewTile(nil, fakeNow(&now), 8, 8)
	tile.LoadImage("/no/such/file.png")
	require.Eventually(t, func() bool {
		return tile.LastError() != ""
	}, time.Second, time.Millisecond)
	// A failed decode must not disturb rendering; Render still returns a
	// valid (blank) frame rather than erroring or panicking.
	frame := tile.Render()
	require.Equal(t, 8, frame.Width)
}
