package texttile

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
	"github.com/veandco/go-sdl2/ttf"

	"nitro-core-dx/internal/gfx"
)

// fontSearchPaths mirrors internal/ui's SDLTTFRenderer font discovery list
// (common system font locations across Linux/macOS/Windows).
var fontSearchPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"C:/Windows/Fonts/arial.ttf",
}

// SDLMeasurer loads one font file at many point sizes, caching each opened
// size (TTF fonts are not resizable in-place; a new *ttf.Font per size is
// the teacher's own approach in internal/ui/text_renderer_ttf.go).
type SDLMeasurer struct {
	path  string
	fonts map[int]*ttf.Font
}

// NewSDLMeasurer initializes SDL_ttf and locates the first usable system
// font from fontSearchPaths.
func NewSDLMeasurer() (*SDLMeasurer, error) {
	if err := ttf.Init(); err != nil {
		return nil, fmt.Errorf("texttile: ttf init: %w", err)
	}
	for _, path := range fontSearchPaths {
		if f, err := ttf.OpenFont(path, 16); err == nil {
			f.Close()
			return &SDLMeasurer{path: path, fonts: make(map[int]*ttf.Font)}, nil
		}
	}
	return nil, fmt.Errorf("texttile: no system font found, tried %v", fontSearchPaths)
}

func (m *SDLMeasurer) fontAt(size int) (*ttf.Font, error) {
	if size < 1 {
		size = 1
	}
	if f, ok := m.fonts[size]; ok {
		return f, nil
	}
	f, err := ttf.OpenFont(m.path, size)
	if err != nil {
		return nil, fmt.Errorf("texttile: open font at size %d: %w", size, err)
	}
	m.fonts[size] = f
	return f, nil
}

// MeasureWidth implements Measurer using the font's own metrics.
func (m *SDLMeasurer) MeasureWidth(text string, size int) (float64, error) {
	f, err := m.fontAt(size)
	if err != nil {
		return 0, err
	}
	w, _, err := f.SizeUTF8(text)
	if err != nil {
		return 0, fmt.Errorf("texttile: measure %q: %w", text, err)
	}
	return float64(w), nil
}

// Close releases every cached font and shuts down SDL_ttf.
func (m *SDLMeasurer) Close() {
	for _, f := range m.fonts {
		f.Close()
	}
	ttf.Quit()
}

// drawCenteredLine rasterizes text at size/opacity and composites it into
// frame, horizontally centered, with its bounding-box vertical center at
// yFrac*frame.Height (spec §4.6 "vertically placed by line bounding-box
// center").
func drawCenteredLine(m *SDLMeasurer, frame *gfx.Frame, text string, size int, opacity, yFrac float64) error {
	if text == "" || opacity <= 0 {
		return nil
	}
	f, err := m.fontAt(size)
	if err != nil {
		return err
	}
	surface, err := f.RenderUTF8Blended(text, sdl.Color{R: 255, G: 255, B: 255, A: 255})
	if err != nil {
		return fmt.Errorf("texttile: rasterize %q: %w", text, err)
	}
	defer surface.Free()

	pixels := surface.Pixels()
	w, h := int(surface.W), int(surface.H)
	stride := int(surface.Pitch)

	originX := frame.Width/2 - w/2
	originY := int(yFrac*float64(frame.Height)) - h/2
	alphaScale := opacity / 255.0

	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			i := sy*stride + sx*4
			if i+3 >= len(pixels) {
				continue
			}
			r, g, b, a := pixels[i+0], pixels[i+1], pixels[i+2], pixels[i+3]
			if a == 0 {
				continue
			}
			blendPixel(frame, originX+sx, originY+sy, r, g, b, float64(a)*alphaScale)
		}
	}
	return nil
}

// blendPixel alpha-composites one (r,g,b) sample at `alpha` (0..255) over
// frame's existing content using standard source-over compositing.
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

// RenderLyrics rasterizes the three-line karaoke layout into a new frame.
func RenderLyrics(m *SDLMeasurer, width, height int, layout LyricsLayout) (*gfx.Frame, error) {
	frame := gfx.NewFrame(width, height)
	for _, line := range []LyricsLineLayout{layout.Prev, layout.Current, layout.Next} {
		if err := drawCenteredLine(m, frame, line.Text, line.Size, line.Opacity, line.YFrac); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// RenderRefrain rasterizes the single-line refrain layout into a new frame.
func RenderRefrain(m *SDLMeasurer, width, height int, layout RefrainLayout) (*gfx.Frame, error) {
	frame := gfx.NewFrame(width, height)
	if err := drawCenteredLine(m, frame, layout.Text, layout.Size, layout.Opacity, layout.YFrac); err != nil {
		return nil, err
	}
	return frame, nil
}

// RenderSongInfo rasterizes the artist/title layout into a new frame.
func RenderSongInfo(m *SDLMeasurer, width, height int, layout SongInfoLayout) (*gfx.Frame, error) {
	frame := gfx.NewFrame(width, height)
	if err := drawCenteredLine(m, frame, layout.Artist.Text, layout.Artist.Size, layout.Artist.Opacity, layout.Artist.YFrac); err != nil {
		return nil, err
	}
	if err := drawCenteredLine(m, frame, layout.Title.Text, layout.Title.Size, layout.Title.Opacity, layout.Title.YFrac); err != nil {
		return nil, err
	}
	return frame, nil
}
