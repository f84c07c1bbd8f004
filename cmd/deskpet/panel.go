package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/mcp"
	"github.com/1broseidon/deskpet/internal/tui"
)

func runPanel(args []string) int {
	if isHelp(args) {
		fmt.Fprintln(os.Stdout, "Usage: deskpet panel")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Interactive control panel for a running host.")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Keybindings:")
		fmt.Fprintln(os.Stdout, "  m         Toggle movement mode")
		fmt.Fprintln(os.Stdout, "  v         Show/hide the mascot")
		fmt.Fprintln(os.Stdout, "  +/-       Grow/shrink")
		fmt.Fprintln(os.Stdout, "  c, r, 1-4 Move to center, a random spot or a corner")
		fmt.Fprintln(os.Stdout, "  ←/→       Select animation; Enter plays it")
		fmt.Fprintln(os.Stdout, "  s, a, x   Next skin, toggle autoplay, stop loop")
		fmt.Fprintln(os.Stdout, "  q, Ctrl+C Quit")
		return 0
	}
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "panel takes no arguments")
		return 2
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := dialHost(ctx, ipc.RoleControl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Close()

	if err := tui.Run(ctx, client); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printMCPUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: deskpet mcp <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve    Start the MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'deskpet mcp <command> --help' for command-specific options.")
}

func runMCP(args []string) int {
	if len(args) == 0 {
		printMCPUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "serve":
		return runMCPServe(args[1:])
	case "help", "-h", "--help":
		printMCPUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown mcp command: %s\n\n", args[0])
		printMCPUsage(os.Stderr)
		return 2
	}
}

func runMCPServe(args []string) int {
	if isHelp(args) {
		fmt.Fprintln(os.Stdout, "Usage: deskpet mcp serve")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Start the MCP server on stdio. Tool calls are forwarded to the running")
		fmt.Fprintln(os.Stdout, "host; logs go to stderr so stdout stays a clean transport.")
		return 0
	}

	res, err := loadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := newLogger(res.Config, os.Stderr)

	ctx, cancel := signalContext()
	defer cancel()

	client, err := dialHost(ctx, ipc.RoleControl)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer client.Close()

	server := mcp.NewServer(client, mcp.Options{Logger: logger})
	if err := server.Run(ctx); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
	return 0
}
