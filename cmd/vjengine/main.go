// Command vjengine is the process entry point for the VJ rendering engine
// (spec §1): it wires the six tiles, the audio processor, the text-state
// manager, and the surface publisher behind a single SDL2 window/renderer,
// then drives the fixed-timestep render loop in internal/engine.
//
// OSC transport, lyric/mood/track-matching pipelines, and preference
// persistence are out of scope (spec §1) — there is no external event
// source wired here, so a freshly started engine behaves exactly like
// Scenario A (silent startup, default shader, decayed audio) until a
// future collaborator calls the Engine's On* methods directly.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"nitro-core-dx/internal/audioproc"
	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/engine"
	"nitro-core-dx/internal/imagetile"
	"nitro-core-dx/internal/masktile"
	"nitro-core-dx/internal/reactive"
	"nitro-core-dx/internal/shadertile"
	"nitro-core-dx/internal/shaderlib"
	"nitro-core-dx/internal/surface"
	"nitro-core-dx/internal/textstate"
	"nitro-core-dx/internal/texttile"
)

func main() {
	// OpenGL contexts are bound to the OS thread that made them current;
	// every GL call this process makes (shader/mask tile setup and every
	// frame's render+readback) must happen on this one thread.
	runtime.LockOSThread()

	shaderDir := flag.String("shaders", "", "Path to generator shader directory (.glsl/.frag/.txt)")
	maskDir := flag.String("masks", "", "Path to mask shader directory (.glsl/.frag/.txt)")
	width := flag.Int("width", reactive.DefaultWidth, "Per-tile render width")
	height := flag.Int("height", reactive.DefaultHeight, "Per-tile render height")
	scale := flag.Int("scale", 1, "Preview window scale (thumbnails are tile width / 3 by tile height / 2, times scale)")
	fps := flag.Int("fps", 60, "Target frame rate")
	logEnabled := flag.Bool("log", false, "Enable logging (disabled by default)")
	flag.Parse()

	if *scale < 1 {
		fmt.Fprintln(os.Stderr, "Error: scale must be >= 1")
		os.Exit(1)
	}
	if *fps < 1 {
		fmt.Fprintln(os.Stderr, "Error: fps must be >= 1")
		os.Exit(1)
	}

	var logger *debug.Logger
	if *logEnabled {
		logger = debug.NewLogger()
		defer logger.Shutdown()
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing SDL: %v\n", err)
		os.Exit(1)
	}
	defer sdl.Quit()

	glctx, err := shaderlib.NewGLContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating GL context: %v\n", err)
		os.Exit(1)
	}
	defer glctx.Close()

	previewW := int32(*width / 3 * (*scale))
	previewH := int32(*height / 2 * (*scale))
	window, err := sdl.CreateWindow(
		"VJ Rendering Engine — Preview",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		previewW*3, previewH*2,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating window: %v\n", err)
		os.Exit(1)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating renderer: %v\n", err)
		os.Exit(1)
	}
	defer renderer.Destroy()

	measurer, err := texttile.NewSDLMeasurer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing text rendering: %v\n", err)
		os.Exit(1)
	}

	shaderLib := shaderlib.NewLibrary(logger)
	if *shaderDir != "" {
		if err := shaderLib.Index(*shaderDir); err != nil && logger != nil {
			logger.LogShaderf(debug.LogLevelWarning, "shader dir index failed: %v", err)
		}
	}
	maskLib := shaderlib.NewLibrary(logger)
	if *maskDir != "" {
		if err := maskLib.Index(*maskDir); err != nil && logger != nil {
			logger.LogMaskf(debug.LogLevelWarning, "mask dir index failed: %v", err)
		}
	}

	nowFn := time.Now
	shaderTile := shadertile.NewTile(logger, shaderLib, glctx, *width, *height)
	maskTile := masktile.NewTile(logger, maskLib, glctx, *width, *height)
	defer shaderTile.Close()
	defer maskTile.Close()

	deps := engine.Deps{
		Logger: logger,
		NowFn:  nowFn,

		Audio: audioproc.NewProcessor(logger, nowFn),
		Text:  textstate.NewManager(logger, nowFn),

		ShaderSelector: shaderlib.NewManager(shaderLib),
		MaskSelector:   shaderlib.NewManager(maskLib),

		ShaderTile: shaderTile,
		MaskTile:   maskTile,

		LyricsTile:   texttile.NewLyricsTile(measurer, *width, *height),
		RefrainTile:  texttile.NewRefrainTile(measurer, *width, *height),
		SongInfoTile: texttile.NewSongInfoTile(measurer, *width, *height),
		ImageTile:    imagetile.NewTile(logger, nowFn, *width, *height),

		Publisher: surface.NewPublisher(logger, renderer),
	}
	eng := engine.New(deps)

	if err := eng.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting engine: %v\n", err)
		os.Exit(1)
	}
	defer eng.Stop()

	fmt.Println("VJ Rendering Engine")
	fmt.Println("===================")
	fmt.Printf("Tile resolution: %dx%d\n", *width, *height)
	fmt.Printf("Target FPS: %d\n", *fps)
	fmt.Println("ESC or window close to quit.")

	frameDelay := time.Second / time.Duration(*fps)
	pub := deps.Publisher.(*surface.Publisher)

	running := true
	for running {
		frameStart := time.Now()

		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				running = false
			case *sdl.KeyboardEvent:
				if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
					running = false
				}
			}
		}

		if err := eng.RunFrame(); err != nil {
			fmt.Fprintf(os.Stderr, "Render error: %v\n", err)
			running = false
			continue
		}

		renderer.SetDrawColor(0, 0, 0, 255)
		renderer.Clear()
		drawPreviewGrid(renderer, pub, previewW, previewH)
		renderer.Present()

		if elapsed := time.Since(frameStart); elapsed < frameDelay {
			sdl.Delay(uint32((frameDelay - elapsed).Milliseconds()))
		}
	}
}

// drawPreviewGrid composites the six published surfaces into a 3x2 grid
// in the preview window (§1 "host application shell, preview UI ... out
// of scope" — this is a minimal stand-in, not the real preview app).
func drawPreviewGrid(renderer *sdl.Renderer, pub *surface.Publisher, cellW, cellH int32) {
	cfgs := reactive.StandardTileConfigs()
	for i, cfg := range cfgs {
		tex := pub.Texture(cfg.PublishedSurfaceName)
		if tex == nil {
			continue
		}
		col := int32(i % 3)
		row := int32(i / 3)
		dst := &sdl.Rect{X: col * cellW, Y: row * cellH, W: cellW, H: cellH}
		renderer.Copy(tex, nil, dst)
	}
}
