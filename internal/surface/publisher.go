// Package surface publishes each tile's rendered gfx.Frame as a named,
// streaming sdl.Texture (spec §4.8): the "zero-copy GPU-shared surface"
// realized as the teacher's own texture-streaming idiom (see
// internal/ui/render_fixed.go's CreateTexture(..., TEXTUREACCESS_STREAMING)
// + Texture.Update pattern), generalized from one hardwired emulator
// screen texture to N independently-named, enable/disable-gated servers.
package surface

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/gfx"
	"nitro-core-dx/internal/reactive"
)

// server is one published surface: a streaming texture bound to a stable
// name, owned by the publisher and written to from the tile that produces
// it (spec §3 "Ownership & lifecycle", §5 "Published surfaces are
// write-only from the engine's perspective").
type server struct {
	name          string
	texture       *sdl.Texture
	width, height int
}

// Publisher owns every named surface server and gates all publishing
// behind a single enable switch (spec §4.8 "setEnabled").
type Publisher struct {
	logger   *debug.Logger
	renderer *sdl.Renderer

	mu      sync.Mutex
	servers map[string]*server
	enabled bool
}

// NewPublisher creates a publisher bound to the shared renderer every tile
// ultimately presents through (spec §5 "GPU device and command queue:
// shared across tiles"). Publishing starts enabled.
func NewPublisher(logger *debug.Logger, renderer *sdl.Renderer) *Publisher {
	return &Publisher{
		logger:   logger,
		renderer: renderer,
		servers:  make(map[string]*server),
		enabled:  true,
	}
}

// CreateServer allocates one named streaming texture at the given
// resolution (spec §4.8 "createServer").
func (p *Publisher) CreateServer(name string, width, height int) error {
	tex, err := p.renderer.CreateTexture(sdl.PIXELFORMAT_BGRA8888, sdl.TEXTUREACCESS_STREAMING, int32(width), int32(height))
	if err != nil {
		return fmt.Errorf("surface: create server %q: %w", name, err)
	}
	if err := tex.SetBlendMode(sdl.BLENDMODE_BLEND); err != nil {
		tex.Destroy()
		return fmt.Errorf("surface: set blend mode for %q: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.servers[name]; ok {
		old.texture.Destroy()
	}
	p.servers[name] = &server{name: name, texture: tex, width: width, height: height}
	if p.logger != nil {
		p.logger.LogSurfacef(debug.LogLevelInfo, "created surface server %q (%dx%d)", name, width, height)
	}
	return nil
}

// CreateStandardServers creates one server per the six canonical tile
// configurations (spec §3, §6, reactive.StandardTileConfigs).
func (p *Publisher) CreateStandardServers() error {
	for _, cfg := range reactive.StandardTileConfigs() {
		if err := p.CreateServer(cfg.PublishedSurfaceName, cfg.Width, cfg.Height); err != nil {
			return err
		}
	}
	return nil
}

// SetEnabled gates every future Publish call. Disabling does not tear down
// existing servers; it simply turns Publish into a no-op (spec §7
// "Surface publish failure ... no-op; no error surfaced").
func (p *Publisher) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Enabled reports the current publish gate.
func (p *Publisher) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Publish uploads frame's full pixel region into the named surface using
// this publisher's own renderer's command stream. A no-op when disabled or
// when name has no server (spec §4.8 "Contract").
func (p *Publisher) Publish(name string, frame *gfx.Frame) error {
	p.mu.Lock()
	enabled := p.enabled
	srv := p.servers[name]
	p.mu.Unlock()

	if !enabled || srv == nil {
		return nil
	}
	return p.upload(srv, frame)
}

// PublishOnRenderer is the explicit-command-buffer overload (spec §4.8
// "publish(name, texture, commandBuffer)"): a tile that owns its own
// renderer/encoder (none do in this single-device tree, but the seam
// mirrors the spec's two-arity contract) can pass it directly instead of
// relying on the publisher's shared renderer.
func (p *Publisher) PublishOnRenderer(name string, frame *gfx.Frame, renderer *sdl.Renderer) error {
	p.mu.Lock()
	enabled := p.enabled
	srv := p.servers[name]
	p.mu.Unlock()

	if !enabled || srv == nil {
		return nil
	}
	_ = renderer // same command queue in this single-device tree; see §5.
	return p.upload(srv, frame)
}

func (p *Publisher) upload(srv *server, frame *gfx.Frame) error {
	if frame == nil || frame.Width != srv.width || frame.Height != srv.height {
		return fmt.Errorf("surface: publish %q: frame size mismatch", srv.name)
	}
	if len(frame.Pix) == 0 {
		return nil
	}
	rect := &sdl.Rect{X: 0, Y: 0, W: int32(srv.width), H: int32(srv.height)}
	if err := srv.texture.Update(rect, unsafe.Pointer(&frame.Pix[0]), srv.width*4); err != nil {
		return fmt.Errorf("surface: publish %q: %w", srv.name, err)
	}
	return nil
}

// Texture returns the live sdl.Texture for name, or nil if none exists.
// Used by the host window (cmd/vjengine) to composite a local preview; an
// external mixer instead binds by name through the platform's own
// zero-copy surface mechanism (spec §4.8, out of scope to implement here).
func (p *Publisher) Texture(name string) *sdl.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	srv := p.servers[name]
	if srv == nil {
		return nil
	}
	return srv.texture
}

// StopServer destroys and forgets one named server.
func (p *Publisher) StopServer(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if srv, ok := p.servers[name]; ok {
		srv.texture.Destroy()
		delete(p.servers, name)
	}
}

// StopAll tears down every server (spec §4.9 "stop() tears them down in
// reverse order" — reverse order doesn't matter here since servers don't
// depend on each other, only on the shared renderer which outlives them).
func (p *Publisher) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, srv := range p.servers {
		srv.texture.Destroy()
		delete(p.servers, name)
	}
}
