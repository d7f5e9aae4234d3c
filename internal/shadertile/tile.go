// Package shadertile renders one fullscreen reactive fragment-shader effect
// per frame (spec §4.4) on a real OpenGL pipeline: a fullscreen-quad draw
// into an offscreen framebuffer, read back into a CPU pixel buffer for the
// surface publisher. Grounded on the pack's two go-gl renderers —
// 01a329cf_richinsley-goshadertoy's SoundShaderRenderer (FBO setup,
// uniform upload, ReadPixels loop) and 93f935db_mrigankad-gorenderengine's
// ParticleRenderer (VAO/VBO setup). Uniform locations are not cached:
// shaderlib.SetUniforms looks each one up by name on every Render.
package shadertile

import (
	gl "github.com/go-gl/gl/v3.2-core/gl"

	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/gfx"
	"nitro-core-dx/internal/reactive"
	"nitro-core-dx/internal/shaderlib"
)

// quadVertices is a clip-space fullscreen triangle strip (§4.4 "Rendering
// contract": "draws four vertices as a triangle strip spanning the
// target").
var quadVertices = []float32{
	-1, -1,
	1, -1,
	-1, 1,
	1, 1,
}

// compiledProgram is one cache entry: either a linked GL program name or
// the compile/link error that was recorded instead.
type compiledProgram struct {
	id  uint32
	err error
}

// Tile owns one shader slot's GL program cache, its own FBO/texture/quad,
// and its uniform/mouse/audioTime accumulation. The cache is per-tile by
// design (§3, §5): the mask tile never shares a compiled program with the
// generator tile even when both libraries happen to contain a shader of
// the same name.
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
	fragSource string // wrapped GLSL body ready to compile; "" means use default
	loadErr    string
	isLoaded   bool

	audioTime float64
	mouse     [2]float64
	uniforms  reactive.ShaderUniforms
}

// NewTile creates a shader tile bound to lib at the given resolution,
// rendering through glctx. Construction makes no GL call; glctx is first
// used by Render.
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

// UpdateState triggers a (re)load when state.Current differs from the
// tile's current shader name (§4.4 "updateState"). Loading here only
// reads and wraps the source text; the real GL compile is deferred to
// the first Render call that needs it (and then cached, property #10),
// since compiling requires a live GL context this method does not touch.
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
			t.logger.LogShaderf(debug.LogLevelWarning, "shader %q failed to load, using default: %v", t.current, err)
		}
		return
	}
	t.fragSource = shaderlib.WrapFragment(src)
	t.loadErr = ""
	t.isLoaded = true
}

// Update advances audioTime by dt*speed, recomputes the synthetic mouse
// position, and writes the frame's uniform block (§4.4 "update").
func (t *Tile) Update(audio reactive.AudioState, dt float64) {
	t.audioTime += dt * audio.Speed
	mx, my := reactive.CalcSyntheticMouse(t.audioTime, audio.EnergySlow, audio.Bass, audio.Mid, audio.BeatPhase)
	t.mouse = [2]float64{mx, my}
	t.uniforms = reactive.UniformsFromAudio(t.audioTime, t.width, t.height, t.mouse, audio)
}

// DisplayState returns the read-only snapshot a caller (e.g. the tile
// manager) can hand back into UpdateState or surface to a UI.
func (t *Tile) DisplayState() reactive.ShaderDisplayState {
	return reactive.ShaderDisplayState{
		Current:        t.current,
		IsLoaded:       t.isLoaded,
		Error:          t.loadErr,
		AudioTime:      t.audioTime,
		SyntheticMouse: t.mouse,
	}
}

// ensureInit lazily creates this tile's quad VAO/VBO, offscreen FBO and
// color texture, and the always-available default program. Deferred past
// NewTile so construction never needs to run on the GL thread, only
// Render does.
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

	prog, err := shaderlib.CompileProgram(shaderlib.VertexShaderSource, shaderlib.DefaultShaderSource())
	if err != nil && t.logger != nil {
		t.logger.LogShaderf(debug.LogLevelError, "default shader failed to compile: %v", err)
	}
	t.defaultProg = prog
	t.initialized = true
}

// resolveProgram returns the GL program to draw with: the cached compile
// of the current shader, compiling it on first use and caching both
// success and failure (property #10 — a second selection of the same
// name never recompiles), or the default program when nothing is
// selected or the compile failed.
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
			t.logger.LogShaderf(debug.LogLevelWarning, "shader %q failed to compile, using default: %v", t.current, err)
		}
		return t.defaultProg
	}
	return id
}

// Render draws the active program into this tile's offscreen framebuffer
// and reads it back into a BGRA8 frame (§4.4 "Rendering contract").
func (t *Tile) Render() *gfx.Frame {
	frame := gfx.NewFrame(t.width, t.height)
	if err := t.glctx.MakeCurrent(); err != nil {
		if t.logger != nil {
			t.logger.LogShaderf(debug.LogLevelError, "make current failed: %v", err)
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

	readPixelsBGRA(t.width, t.height, frame)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return frame
}

// readPixelsBGRA reads the currently bound framebuffer's color attachment
// into frame, converting GL's bottom-left-origin RGBA rows into frame's
// top-left-origin BGRA layout (gfx.Frame doc comment).
func readPixelsBGRA(width, height int, frame *gfx.Frame) {
	raw := make([]byte, width*height*4)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&raw[0]))

	stride := frame.Stride()
	for y := 0; y < height; y++ {
		srcRow := (height - 1 - y) * stride
		dstRow := y * stride
		for x := 0; x < width; x++ {
			si := srcRow + x*4
			di := dstRow + x*4
			r, g, b, a := raw[si], raw[si+1], raw[si+2], raw[si+3]
			frame.Pix[di+0] = b
			frame.Pix[di+1] = g
			frame.Pix[di+2] = r
			frame.Pix[di+3] = a
		}
	}
}

// Close releases this tile's GL objects (grounded on the Shutdown method
// both pack go-gl renderers use to tear down programs/framebuffers before
// context teardown).
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
