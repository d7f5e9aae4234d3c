// Package masktile renders the grayscale alpha-matte counterpart to
// internal/shadertile: identical GL lifecycle and uniform contract, but
// every read-back pixel collapses to luminance before being written
// (spec §4.5). The cache, FBO, and quad are intentionally duplicated from
// shadertile rather than shared — the mask tile owns its own compiled-
// program cache (§3, §5 "not shared across tiles").
package masktile

import (
	gl "github.com/go-gl/gl/v3.2-core/gl"

	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/gfx"
	"nitro-core-dx/internal/reactive"
	"nitro-core-dx/internal/shaderlib"
)

var quadVertices = []float32{
	-1, -1,
	1, -1,
	-1, 1,
	1, 1,
}

type compiledProgram struct {
	id  uint32
	err error
}

// Tile is the mask-shader counterpart of shadertile.Tile, sourced from a
// separate library directory (spec §4.5).
type Tile struct {
	logger *debug.Logger
	lib    *shaderlib.Library
	glctx  *shaderlib.GLContext

	width, height int

	initialized bool
	vao, vbo    uint32
	fbo, tex    uint32
	defaultProg uint32

	cache map[string]*compiledProgram

	current    string
	fragSource string
	loadErr    string
	isLoaded   bool

	audioTime float64
	mouse     [2]float64
	uniforms  reactive.ShaderUniforms
}

// NewTile creates a mask tile bound to lib at the given resolution,
// rendering through glctx.
func NewTile(logger *debug.Logger, lib *shaderlib.Library, glctx *shaderlib.GLContext, width, height int) *Tile {
	return &Tile{
		logger: logger,
		lib:    lib,
		glctx:  glctx,
		width:  width,
		height: height,
		cache:  make(map[string]*compiledProgram),
	}
}

// UpdateState triggers a (re)load when the selected mask name changes.
func (t *Tile) UpdateState(state reactive.ShaderDisplayState) {
	if state.Current == t.current && t.isLoaded {
		return
	}
	t.current = state.Current
	t.load()
}

func (t *Tile) load() {
	if t.current == "" {
		t.fragSource = ""
		t.isLoaded = true
		t.loadErr = ""
		return
	}
	src, err := t.lib.ReadSource(t.current)
	if err != nil {
		t.fragSource = ""
		t.loadErr = err.Error()
		t.isLoaded = true
		if t.logger != nil {
			t.logger.LogMaskf(debug.LogLevelWarning, "mask %q failed to load, using default vignette: %v", t.current, err)
		}
		return
	}
	t.fragSource = shaderlib.WrapFragment(src)
	t.loadErr = ""
	t.isLoaded = true
}

// Update advances audioTime and recomputes the synthetic mouse and uniform
// block, identical to shadertile.Tile.Update.
func (t *Tile) Update(audio reactive.AudioState, dt float64) {
	t.audioTime += dt * audio.Speed
	mx, my := reactive.CalcSyntheticMouse(t.audioTime, audio.EnergySlow, audio.Bass, audio.Mid, audio.BeatPhase)
	t.mouse = [2]float64{mx, my}
	t.uniforms = reactive.UniformsFromAudio(t.audioTime, t.width, t.height, t.mouse, audio)
}

// DisplayState returns a read-only snapshot of the mask tile's state.
func (t *Tile) DisplayState() reactive.ShaderDisplayState {
	return reactive.ShaderDisplayState{
		Current:        t.current,
		IsLoaded:       t.isLoaded,
		Error:          t.loadErr,
		AudioTime:      t.audioTime,
		SyntheticMouse: t.mouse,
	}
}

func (t *Tile) ensureInit() {
	if t.initialized {
		return
	}
	gl.GenVertexArrays(1, &t.vao)
	gl.BindVertexArray(t.vao)
	gl.GenBuffers(1, &t.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, t.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 0, nil)
	gl.EnableVertexAttribArray(0)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.GenTextures(1, &t.tex)
	gl.BindTexture(gl.TEXTURE_2D, t.tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(t.width), int32(t.height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.tex, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	prog, err := shaderlib.CompileProgram(shaderlib.VertexShaderSource, shaderlib.DefaultMaskSource())
	if err != nil && t.logger != nil {
		t.logger.LogMaskf(debug.LogLevelError, "default mask failed to compile: %v", err)
	}
	t.defaultProg = prog
	t.initialized = true
}

func (t *Tile) resolveProgram() uint32 {
	if t.current == "" || t.fragSource == "" {
		return t.defaultProg
	}
	if cp, ok := t.cache[t.current]; ok {
		if cp.err != nil {
			return t.defaultProg
		}
		return cp.id
	}
	id, err := shaderlib.CompileProgram(shaderlib.VertexShaderSource, t.fragSource)
	t.cache[t.current] = &compiledProgram{id: id, err: err}
	if err != nil {
		t.loadErr = err.Error()
		if t.logger != nil {
			t.logger.LogMaskf(debug.LogLevelWarning, "mask %q failed to compile, using default vignette: %v", t.current, err)
		}
		return t.defaultProg
	}
	return id
}

// luminance reduces an RGB triple to a single gray value using the same
// weighting a conforming mask shader's own `vec4(vec3(g), 1.0)`
// convention implies when a shader author mixes channels unevenly.
func luminance(r, g, b byte) byte {
	v := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}

// Render draws the active mask program into this tile's offscreen
// framebuffer, reads it back, and collapses every pixel to grayscale
// regardless of what the shader itself produced (r == g == b, alpha
// opaque).
func (t *Tile) Render() *gfx.Frame {
	frame := gfx.NewFrame(t.width, t.height)
	if err := t.glctx.MakeCurrent(); err != nil {
		if t.logger != nil {
			t.logger.LogMaskf(debug.LogLevelError, "make current failed: %v", err)
		}
		return frame
	}
	t.ensureInit()
	prog := t.resolveProgram()

	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, int32(t.width), int32(t.height))
	gl.UseProgram(prog)
	shaderlib.SetUniforms(prog, t.uniforms)

	gl.BindVertexArray(t.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)

	readPixelsGrayscale(t.width, t.height, frame)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return frame
}

func readPixelsGrayscale(width, height int, frame *gfx.Frame) {
	raw := make([]byte, width*height*4)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&raw[0]))

	stride := frame.Stride()
	for y := 0; y < height; y++ {
		srcRow := (height - 1 - y) * stride
		dstRow := y * stride
		for x := 0; x < width; x++ {
			si := srcRow + x*4
			di := dstRow + x*4
			g := luminance(raw[si], raw[si+1], raw[si+2])
			frame.Pix[di+0] = g
			frame.Pix[di+1] = g
			frame.Pix[di+2] = g
			frame.Pix[di+3] = 255
		}
	}
}

// Close releases this tile's GL objects.
func (t *Tile) Close() {
	if !t.initialized {
		return
	}
	gl.DeleteProgram(t.defaultProg)
	for _, cp := range t.cache {
		if cp.err == nil {
			gl.DeleteProgram(cp.id)
		}
	}
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteTextures(1, &t.tex)
	gl.DeleteBuffers(1, &t.vbo)
	gl.DeleteVertexArrays(1, &t.vao)
	t.initialized = false
}
