// Package imagetile displays images with aspect-correct placement, an
// ease-in-out (quadratic) crossfade between the current and next image,
// and beat-synchronous cycling through a folder of images (spec §4.7).
//
// Decoding runs on a background goroutine that commits its result back
// under the tile's mutex, with an explicit generation counter so a superseded in-flight decode is dropped
// silently on arrival instead of corrupting the current/next slots
// (spec §9 "Async shader/image loading with mid-flight cancellation").
package imagetile

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/gfx"
	"nitro-core-dx/internal/reactive"
)

// fadeDurationSec is the crossfade duration (spec §4.7).
const fadeDurationSec = 0.5

// imageExts are the accepted folder-mode file extensions (spec §4.7).
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".tif": true, ".tiff": true, ".bmp": true,
}

// Tile owns the image tile's current/next textures, crossfade timing, and
// folder-cycling state.
type Tile struct {
	logger *debug.Logger
	nowFn  func() time.Time

	width, height int

	mu             sync.Mutex
	coverMode      bool
	beatsPerChange int
	folderImages   []string
	folderIndex    int
	lastBeat4      int
	haveLastBeat4  bool

	currentURL, nextURL string
	currentImg, nextImg image.Image
	isFading             bool
	fadeStart            time.Time
	progress             float64
	lastErr              string

	activeGen uint64
}

// NewTile creates an image tile at the given resolution. nowFn defaults to
// time.Now when nil.
func NewTile(logger *debug.Logger, nowFn func() time.Time, width, height int) *Tile {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Tile{logger: logger, nowFn: nowFn, width: width, height: height}
}

// LoadImage schedules an asynchronous decode of url, cancelling any
// in-flight decode for this tile (spec §4.7 "Load algorithm").
func (t *Tile) LoadImage(url string) {
	t.mu.Lock()
	t.activeGen++
	gen := t.activeGen
	t.mu.Unlock()
	go t.decodeAndCommit(url, gen)
}

func (t *Tile) decodeAndCommit(url string, gen uint64) {
	img, err := decodeFile(url)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.activeGen {
		return // superseded by a newer LoadImage; drop silently (§9)
	}
	if err != nil {
		t.lastErr = err.Error()
		if t.logger != nil {
			t.logger.LogImagef(debug.LogLevelWarning, "image %q failed to decode: %v", url, err)
		}
		return
	}
	t.lastErr = ""

	// The old "next" (if any pending fade target) is promoted to "current";
	// the freshly decoded image becomes the new "next" (spec §4.7).
	if t.nextImg != nil {
		t.currentImg = t.nextImg
		t.currentURL = t.nextURL
	}
	t.nextImg = img
	t.nextURL = url
	t.isFading = true
	t.progress = 0
	t.fadeStart = t.nowFn()
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imagetile: open %q: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imagetile: decode %q: %w", path, err)
	}
	return img, nil
}

// LoadFolder indexes dir for accepted raster extensions (sorted by name)
// and begins loading the first image found (spec §4.7 "folder mode").
func (t *Tile) LoadFolder(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if t.logger != nil {
			t.logger.LogImagef(debug.LogLevelWarning, "image folder %q unreadable: %v", dir, err)
		}
		return fmt.Errorf("imagetile: read folder %q: %w", dir, err)
	}

	var found []string
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(de.Name()))] {
			found = append(found, filepath.Join(dir, de.Name()))
		}
	}
	sort.Strings(found)

	t.mu.Lock()
	t.folderImages = found
	t.folderIndex = 0
	t.haveLastBeat4 = false
	t.mu.Unlock()

	if len(found) > 0 {
		t.LoadImage(found[0])
	}
	return nil
}

// NextFolderImage advances to the next folder entry, bypassing the beat
// gate (spec §4.7 "Manual next/prev bypass the beat gate").
func (t *Tile) NextFolderImage() {
	t.mu.Lock()
	if len(t.folderImages) == 0 {
		t.mu.Unlock()
		return
	}
	t.folderIndex = (t.folderIndex + 1) % len(t.folderImages)
	url := t.folderImages[t.folderIndex]
	t.mu.Unlock()
	t.LoadImage(url)
}

// PrevFolderImage moves to the previous folder entry, bypassing the beat
// gate.
func (t *Tile) PrevFolderImage() {
	t.mu.Lock()
	if len(t.folderImages) == 0 {
		t.mu.Unlock()
		return
	}
	t.folderIndex = (t.folderIndex - 1 + len(t.folderImages)) % len(t.folderImages)
	url := t.folderImages[t.folderIndex]
	t.mu.Unlock()
	t.LoadImage(url)
}

// SetBeatsPerChange sets the folder-cycling period; 0 disables beat
// cycling (spec §4.7, §3).
func (t *Tile) SetBeatsPerChange(n int) {
	if n < 0 {
		n = 0
	}
	t.mu.Lock()
	t.beatsPerChange = n
	t.mu.Unlock()
}

// SetCoverMode toggles fill-and-crop (true) vs letterbox (false) placement.
func (t *Tile) SetCoverMode(cover bool) {
	t.mu.Lock()
	t.coverMode = cover
	t.mu.Unlock()
}

// Update advances the crossfade envelope and checks the beat-cycling gate
// (spec §4.7 "Beat cycling", §4.9 "update"). dt is unused here — the
// crossfade is driven off wall-clock fadeStart, not frame delta — but the
// parameter is kept so every tile shares one Update(audio, dt) shape.
func (t *Tile) Update(audio reactive.AudioState, dt float64) {
	_ = dt
	t.mu.Lock()
	now := t.nowFn()
	if t.isFading {
		elapsed := now.Sub(t.fadeStart).Seconds()
		t.progress = reactive.EaseInOutQuad(elapsed / fadeDurationSec)
		if t.progress >= 1 {
			t.progress = 1
			t.currentImg = t.nextImg
			t.currentURL = t.nextURL
			t.isFading = false
		}
	}

	var triggerURL string
	trigger := false
	if len(t.folderImages) > 0 && t.beatsPerChange > 0 {
		if !t.haveLastBeat4 || audio.Beat4 != t.lastBeat4 {
			t.haveLastBeat4 = true
			t.lastBeat4 = audio.Beat4
			if audio.Beat4%t.beatsPerChange == 0 {
				t.folderIndex = (t.folderIndex + 1) % len(t.folderImages)
				triggerURL = t.folderImages[t.folderIndex]
				trigger = true
			}
		}
	}
	t.mu.Unlock()

	if trigger {
		t.LoadImage(triggerURL)
	}
}

// DisplayState returns a read-only snapshot of the image tile's state.
func (t *Tile) DisplayState() reactive.ImageDisplayState {
	t.mu.Lock()
	defer t.mu.Unlock()
	folder := make([]string, len(t.folderImages))
	copy(folder, t.folderImages)
	return reactive.ImageDisplayState{
		CurrentImageURL:   t.currentURL,
		NextImageURL:      t.nextURL,
		CrossfadeProgress: t.progress,
		IsFading:          t.isFading,
		CoverMode:         t.coverMode,
		FolderImages:      folder,
		FolderIndex:       t.folderIndex,
		BeatsPerChange:    t.beatsPerChange,
	}
}

// LastError returns the most recent decode failure message, or "".
func (t *Tile) LastError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Render composites the current (and, mid-fade, next) image into a fresh
// frame using aspect-fit placement and crossfade weights (spec §4.7
// "Crossfade", "Render order").
func (t *Tile) Render() *gfx.Frame {
	t.mu.Lock()
	cur := t.currentImg
	next := t.nextImg
	isFading := t.isFading
	progress := t.progress
	cover := t.coverMode
	t.mu.Unlock()

	frame := gfx.NewFrame(t.width, t.height)
	if cur != nil {
		weight := 1.0
		if isFading {
			weight = 1 - progress
		}
		drawImage(frame, cur, cover, weight)
	}
	if isFading && next != nil {
		drawImage(frame, next, cover, progress)
	}
	return frame
}

// drawImage resamples img to its aspect-fit rectangle within frame and
// alpha-composites it at the given crossfade weight.
func drawImage(frame *gfx.Frame, img image.Image, cover bool, weight float64) {
	if weight <= 0 {
		return
	}
	b := img.Bounds()
	iw, ih := b.Dx(), b.Dy()
	if iw <= 0 || ih <= 0 {
		return
	}
	rect := reactive.CalcAspectRatioDimensions(iw, ih, frame.Width, frame.Height, cover)
	dstW := int(math.Round(rect.W))
	dstH := int(math.Round(rect.H))
	if dstW <= 0 || dstH <= 0 {
		return
	}
	resized := resize.Resize(uint(dstW), uint(dstH), img, resize.Bilinear)
	originX := int(math.Round(rect.X))
	originY := int(math.Round(rect.Y))

	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			r16, g16, b16, a16 := resized.At(x, y).RGBA()
			if a16 == 0 {
				continue
			}
			r, g, bl, a := byte(r16>>8), byte(g16>>8), byte(b16>>8), byte(a16>>8)
			blendPixel(frame, originX+x, originY+y, r, g, bl, float64(a)*weight)
		}
	}
}

// blendPixel alpha-composites one (r,g,b) sample at `alpha` (0..255) over
// frame's existing content (standard source-over), mirroring
// internal/texttile's own compositing helper.
func blendPixel(frame *gfx.Frame, x, y int, r, g, b byte, alpha float64) {
	if x < 0 || y < 0 || x >= frame.Width || y >= frame.Height {
		return
	}
	i := y*frame.Stride() + x*4
	srcA := alpha / 255.0
	dstB, dstG, dstR, dstA := frame.Pix[i+0], frame.Pix[i+1], frame.Pix[i+2], frame.Pix[i+3]

	outA := srcA + float64(dstA)/255.0*(1-srcA)
	blend := func(src, dst byte) byte {
		v := float64(src)*srcA + float64(dst)*(float64(dstA)/255.0)*(1-srcA)
		if outA > 0 {
			v /= outA
		}
		return clampByte(v)
	}
	frame.Pix[i+0] = blend(b, dstB)
	frame.Pix[i+1] = blend(g, dstG)
	frame.Pix[i+2] = blend(r, dstR)
	frame.Pix[i+3] = clampByte(outA * 255)
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
