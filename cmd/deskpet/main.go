package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/deskpet/internal/config"
	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "host":
		os.Exit(runHost(os.Args[2:]))
	case "present":
		os.Exit(runPresent(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "toggle":
		os.Exit(runToggle(os.Args[2:]))
	case "scale":
		os.Exit(runScale(os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "animation":
		os.Exit(runAnimation(os.Args[2:]))
	case "quit":
		os.Exit(runQuit(os.Args[2:]))
	case "sample":
		os.Exit(runSample(os.Args[2:]))
	case "panel":
		os.Exit(runPanel(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: deskpet <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  host                Run the host: input routing, hotkeys, IPC (foreground)")
	fmt.Fprintln(w, "  present             Run the presentation: hit-testing over a rendered frame")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  status              Show movement mode, visibility and scale")
	fmt.Fprintln(w, "  toggle movement     Toggle movement mode")
	fmt.Fprintln(w, "  toggle visibility   Show or hide the mascot")
	fmt.Fprintln(w, "  scale <value>       Set the display scale (0.3-1.0)")
	fmt.Fprintln(w, "  move <where>        Move the mascot: random, center or a corner")
	fmt.Fprintln(w, "  quit                Shut the host down")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  animation info      Show animations, skins and playback settings")
	fmt.Fprintln(w, "  animation play      Play an animation")
	fmt.Fprintln(w, "  animation skin      Change skin")
	fmt.Fprintln(w, "  animation stop      Stop the autoplay loop")
	fmt.Fprintln(w, "  animation settings  Update playback settings")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  sample              Hit-test points against a frame offline")
	fmt.Fprintln(w, "  panel               Open the interactive control panel")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Show where a configuration value came from")
	fmt.Fprintln(w, "  config init         Write the default configuration file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'deskpet <command> --help' for command-specific options.")
}

func isHelp(args []string) bool {
	return len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help")
}

// parseFlags parses args and maps the outcome to an exit code; ok is false
// when the caller should return code.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

// loadConfig loads path, or the default location when path is empty.
func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return config.LoadFromPath(path)
}

func newLogger(cfg *config.Config, output io.Writer) *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: output,
	})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	return logger
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func dialHost(ctx context.Context, role ipc.Role) (*ipc.Client, error) {
	client, err := ipc.DialDefault(ctx, role, nil)
	if err != nil {
		return nil, fmt.Errorf("deskpet host is not running: %w", err)
	}
	return client, nil
}
