package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/1broseidon/deskpet/internal/config"
	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/presentation"
	"github.com/1broseidon/deskpet/internal/surface"
)

func runPresent(args []string) int {
	fs := flag.NewFlagSet("present", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskpet present [--path PATH] [--frame FILE] [--pixel-ratio N]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Connect to the host as the presentation and hit-test pointer moves")
		fmt.Fprintln(os.Stderr, "against a rendered frame (PNG or WebP). Without a frame every point")
		fmt.Fprintln(os.Stderr, "captures input. The opacity threshold and frame reload on config changes.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/deskpet/config.yaml)")
	frame := fs.String("frame", "", "Rendered frame image (default: presentation.frame from config)")
	pixelRatio := fs.Float64("pixel-ratio", 0, "Backing store pixels per logical pixel (default: presentation.pixel_ratio)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "present takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	if *frame != "" {
		cfg.Presentation.Frame = *frame
	}
	if *pixelRatio > 0 {
		cfg.Presentation.PixelRatio = *pixelRatio
	}
	logger := newLogger(cfg, os.Stderr)

	var current atomic.Pointer[surface.Surface]
	if sf, err := frameSurface(cfg); err != nil {
		log.Fatalf("Failed to load frame: %v", err)
	} else if sf == nil {
		logger.Warn("no frame configured; every point will capture input")
	} else {
		current.Store(sf)
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := dialHost(ctx, ipc.RolePresentation)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer client.Close()

	player := presentation.NewCatalogPlayer(cfg.Presentation.Animations, cfg.Presentation.Skins, cfg.Presentation.DefaultSkin)
	p := presentation.New(client, surface.SourceFunc(current.Load), player, presentation.Options{
		Threshold: cfg.Threshold(),
		Discovery: cfg.DiscoveryPolicy(),
		Settings:  presentation.SettingsFromConfig(cfg.Presentation),
		Logger:    logger,
	})
	if err := p.Start(ctx); err != nil {
		log.Fatalf("Failed to start presentation: %v", err)
	}

	if res.File != "" {
		go func() {
			err := config.Watch(ctx, res.File, logger, func(next *config.Config) {
				p.SetThreshold(next.Threshold())
				if next.Presentation.Frame == cfg.Presentation.Frame && next.Presentation.PixelRatio == cfg.Presentation.PixelRatio {
					return
				}
				next.Window = cfg.Window
				sf, err := frameSurface(next)
				if err != nil {
					logger.Warn("frame reload failed; keeping previous frame", "error", err)
					return
				}
				cfg.Presentation.Frame = next.Presentation.Frame
				cfg.Presentation.PixelRatio = next.Presentation.PixelRatio
				current.Store(sf)
				p.Controller().Refresh()
				logger.Info("frame reloaded", "frame", next.Presentation.Frame)
			})
			if err != nil {
				logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down deskpet presentation")
	case <-client.Done():
		if err := client.Err(); err != nil {
			logger.Warn("host connection lost", "error", err)
		} else {
			logger.Info("host closed the connection")
		}
	}
	p.StopLoop()
	return 0
}

// frameSurface builds the displayed surface for cfg, or nil without a frame.
func frameSurface(cfg *config.Config) (*surface.Surface, error) {
	if cfg.Presentation.Frame == "" {
		return nil, nil
	}
	img, err := surface.LoadFrame(cfg.Presentation.Frame)
	if err != nil {
		return nil, err
	}
	display := surface.Rect{Width: float64(cfg.Window.Width), Height: float64(cfg.Window.Height)}
	return surface.NewFrameSurface(img, display, cfg.Presentation.PixelRatio)
}

func runSample(args []string) int {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskpet sample --frame FILE [flags] X,Y [X,Y...]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Hit-test window-local points against a frame without a running host.")
		fmt.Fprintln(os.Stderr, "Prints capture or pass-through for each point.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/deskpet/config.yaml)")
	frame := fs.String("frame", "", "Rendered frame image (default: presentation.frame from config)")
	threshold := fs.Int("threshold", -1, "Opacity threshold 0-254 (default: hit_test.opacity_threshold)")
	scale := fs.Float64("scale", 1, "Display scale applied about the window centre")
	pixelRatio := fs.Float64("pixel-ratio", 0, "Backing store pixels per logical pixel (default: presentation.pixel_ratio)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "sample requires at least one X,Y point")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := res.Config
	if *frame != "" {
		cfg.Presentation.Frame = *frame
	}
	if *pixelRatio > 0 {
		cfg.Presentation.PixelRatio = *pixelRatio
	}
	if *threshold >= 0 {
		cfg.HitTest.OpacityThreshold = *threshold
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}
	if cfg.Presentation.Frame == "" {
		fmt.Fprintln(os.Stderr, "sample requires --frame or presentation.frame")
		return 2
	}

	sf, err := frameSurface(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	sf.Display = sf.Display.ScaleAboutCenter(*scale)

	sampler := surface.NewSampler(cfg.Threshold(), nil)
	code := 0
	for _, arg := range fs.Args() {
		pt, err := parsePoint(arg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			code = 2
			continue
		}
		d := sampler.Sample(sf, pt)
		verdict := "pass-through"
		if d.Opaque {
			verdict = "capture"
		}
		fmt.Printf("%g,%g\t%s\treason=%s\talpha=%d\n", pt.X, pt.Y, verdict, d.Reason, d.Alpha)
	}
	return code
}

func parsePoint(s string) (surface.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return surface.Point{}, fmt.Errorf("invalid point %q (want X,Y)", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return surface.Point{}, fmt.Errorf("invalid x in %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return surface.Point{}, fmt.Errorf("invalid y in %q: %w", s, err)
	}
	return surface.Point{X: x, Y: y}, nil
}
