// tileview previews the tiles of a manifest and edits them live.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/terratile/internal/assets"
	"github.com/Faultbox/terratile/internal/config"
	"github.com/Faultbox/terratile/internal/engine/debug"
	"github.com/Faultbox/terratile/internal/engine/input"
	"github.com/Faultbox/terratile/internal/engine/lighting"
	"github.com/Faultbox/terratile/internal/engine/renderer"
	"github.com/Faultbox/terratile/internal/engine/terrain"
	"github.com/Faultbox/terratile/internal/engine/window"
	"github.com/Faultbox/terratile/internal/logger"
	"github.com/Faultbox/terratile/internal/pipeline"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Setup(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== terratile viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(cfg *config.Config) error {
	win, err := window.New(window.FromPreview("tileview", cfg.Preview), logger.Named("window"))
	if err != nil {
		return err
	}
	defer win.Close()

	width, height := win.DrawableSize()
	rcfg := renderer.DefaultConfig(width, height)
	rcfg.LightDir = lighting.SunDirection(cfg.Preview.SunAzimuth, cfg.Preview.SunElevation)
	r, err := renderer.New(rcfg, logger.Named("renderer"))
	if err != nil {
		return err
	}
	defer r.Close()

	am, err := assets.NewManager(cfg.Assets, logger.Named("assets"))
	if err != nil {
		return err
	}
	defer am.Close()

	m, err := config.LoadManifest(cfg.Manifest.Path)
	if err != nil {
		return err
	}

	s := newScene(cfg, r, logger.Named("scene"))
	p := pipeline.New(am,
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithShaderFactory(func(config.TileSpec) (terrain.ShaderBinding, error) {
			return r.NewMaterial(), nil
		}),
		pipeline.WithTileOptions(s.tileOptions),
	)
	if err := p.Load(m); err != nil {
		// Broken tiles stay loaded so a manifest reload can fix them.
		logger.Warn("some tiles failed to build", zap.Error(err))
	}
	s.attach(p)

	in := input.New(input.DefaultKeymap())
	shots := debug.NewScreenshotCapture(cfg.Preview.ScreenshotDir, "tileview")
	ctx := context.Background()
	title := ""
	capture := false

	for {
		if in.Update() {
			return nil
		}

		for _, ev := range in.Events() {
			switch ev.Type {
			case input.EventWindowResize:
				r.Resize(win.DrawableSize())
			case input.EventMouseMove:
				if ev.Held {
					s.camera.HandleDrag(float32(ev.RelX), float32(ev.RelY))
				}
			case input.EventMouseWheel:
				s.camera.HandleZoom(float32(ev.WheelY))
			}
		}

		for _, a := range in.Actions() {
			switch a {
			case input.ActionQuit:
				return nil
			case input.ActionScreenshot:
				capture = true
				continue
			}
			if err := s.handle(ctx, a); err != nil {
				logger.Warn("action failed", zap.Stringer("action", a), zap.Error(err))
			}
		}

		if t := s.title(); t != title {
			title = t
			win.SetTitle(title)
		}

		r.Begin()
		r.Render(s.camera.ViewProjection(r.Size()))
		if capture {
			capture = false
			pixels, w, h := r.ReadPixels()
			if path, err := shots.CaptureFromPixels(pixels, w, h); err != nil {
				logger.Warn("screenshot failed", zap.Error(err))
			} else {
				logger.Info("screenshot saved", zap.String("path", path))
			}
		}
		win.SwapBuffers()
	}
}
