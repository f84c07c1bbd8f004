package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/1broseidon/deskpet/internal/host"
	"github.com/1broseidon/deskpet/internal/hotkeys"
	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/platform"
	"github.com/1broseidon/deskpet/internal/runtimepath"
)

func runHost(args []string) int {
	fs := flag.NewFlagSet("host", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskpet host [--path PATH] [--class CLASS] [--display DISPLAY]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Find the overlay window, take over its input routing and serve IPC")
		fmt.Fprintln(os.Stderr, "until interrupted or asked to quit.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/deskpet/config.yaml)")
	class := fs.String("class", "", "Overlay window WM_CLASS (default: window.class from config)")
	display := fs.String("display", "", "X display (default: display from config, then $DISPLAY)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "host takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	if *class != "" {
		cfg.Window.Class = *class
	}
	if *display != "" {
		cfg.Display = *display
	}
	logger := newLogger(cfg, os.Stderr)

	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display)
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Disconnect()

	ctx, cancel := signalContext()
	defer cancel()

	win, err := host.FindOverlay(ctx, backend, cfg.Window.Class, cfg.DiscoveryPolicy(), logger)
	if err != nil {
		log.Fatalf("Failed to find overlay window: %v", err)
	}
	logger.Info("overlay window found", "class", cfg.Window.Class, "window", win)

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		log.Fatalf("Failed to resolve IPC socket path: %v", err)
	}
	server := ipc.NewServer(socketPath, logger)

	h := host.New(backend, server, win, host.Options{
		Margin:       cfg.Window.CornerMargin,
		PollInterval: cfg.PollInterval(),
		Logger:       logger,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer server.Stop()

	if err := h.Start(ctx); err != nil {
		log.Fatalf("Failed to start host: %v", err)
	}
	defer h.Close()

	keys, err := hotkeys.NewHandler(backend, logger)
	if err != nil {
		log.Fatalf("Failed to set up hotkeys: %v", err)
	}
	if err := keys.Register(hotkeys.Bindings{
		MovementMode: cfg.Hotkeys.MovementMode,
		Visibility:   cfg.Hotkeys.Visibility,
	}, h); err != nil {
		logger.Warn("hotkeys unavailable", "error", err)
	}
	defer keys.Close()

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("shutting down deskpet host")
		case <-h.Done():
		}
		backend.StopEventLoop()
	}()

	logger.Info("deskpet host started", "socket", socketPath)
	backend.EventLoop()
	return 0
}
