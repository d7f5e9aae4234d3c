package shaderlib

import (
	"fmt"
	"sync"

	gl "github.com/go-gl/gl/v3.2-core/gl"
	"github.com/veandco/go-sdl2/sdl"
)

var glInitOnce sync.Once

// GLContext owns the single hidden-window OpenGL context every shader and
// mask tile renders through (§5 "GPU device and command queue: shared
// across tiles; each tile creates its own command encoders and
// textures"). cmd/vjengine creates exactly one of these and hands it to
// every shadertile.NewTile/masktile.NewTile call; nothing else touches it
// beyond MakeCurrent.
type GLContext struct {
	window *sdl.Window
	ctx    sdl.GLContext
}

// NewGLContext creates a hidden 1x1 window purely to own a core-profile
// OpenGL 3.3 context — the version the "#version 330 core" sources from
// VertexShaderSource and WrapFragment require. SDL's video subsystem must
// already be initialized.
func NewGLContext() (*GLContext, error) {
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 3)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 3)

	window, err := sdl.CreateWindow("", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		1, 1, sdl.WINDOW_OPENGL|sdl.WINDOW_HIDDEN)
	if err != nil {
		return nil, fmt.Errorf("shaderlib: create gl window: %w", err)
	}

	ctx, err := window.GLCreateContext()
	if err != nil {
		window.Destroy()
		return nil, fmt.Errorf("shaderlib: create gl context: %w", err)
	}
	if err := window.GLMakeCurrent(ctx); err != nil {
		sdl.GLDeleteContext(ctx)
		window.Destroy()
		return nil, fmt.Errorf("shaderlib: make gl context current: %w", err)
	}

	var initErr error
	glInitOnce.Do(func() { initErr = gl.Init() })
	if initErr != nil {
		sdl.GLDeleteContext(ctx)
		window.Destroy()
		return nil, fmt.Errorf("shaderlib: gl.Init: %w", initErr)
	}
	return &GLContext{window: window, ctx: ctx}, nil
}

// MakeCurrent re-binds this context to the calling thread. Every tile
// calls this at the start of Render so a foreign GL user on the same
// thread between frames — the preview window's accelerated sdl.Renderer,
// which may run its own GL context internally — can never leave the
// binding in an unexpected state.
func (c *GLContext) MakeCurrent() error {
	return c.window.GLMakeCurrent(c.ctx)
}

// Close destroys the context and its owning window.
func (c *GLContext) Close() {
	sdl.GLDeleteContext(c.ctx)
	c.window.Destroy()
}
