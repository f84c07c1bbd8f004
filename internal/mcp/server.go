// Package mcp exposes a running host as Model Context Protocol tools.
package mcp

import (
	"context"
	"log/slog"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/logging"
)

const (
	ServerName     = "deskpet"
	ServerVersion  = "0.1.0"
	DefaultTimeout = 5 * time.Second
)

// Link is the server's connection to the host. *ipc.Client satisfies it.
type Link interface {
	Send(kind ipc.Kind, payload any) error
	Call(ctx context.Context, kind ipc.Kind, payload any, replyKind ipc.Kind) (ipc.Envelope, error)
}

// Options tune a Server. Zero values pick defaults.
type Options struct {
	// Timeout bounds every round trip to the host.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Server is the MCP server for mascot control.
type Server struct {
	mcpServer *mcpsdk.Server
	link      Link
	timeout   time.Duration
	logger    *slog.Logger
}

// NewServer creates a server that forwards tool calls over link.
func NewServer(link Link, opts Options) *Server {
	s := &Server{
		link:    link,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_state",
		Description: "Report the mascot's movement mode, visibility and scale as held by the host. With include_animations, also return the presentation's animation catalog, current animation and skin, and autoplay settings.",
	}, s.handleGetState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_movement_mode",
		Description: "Toggle movement mode. While it is on the whole mascot window captures the mouse so it can be dragged; while off, clicks on transparent pixels pass through to the desktop. Returns the new state.",
	}, s.handleToggleMovementMode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_visibility",
		Description: "Show or hide the mascot. A hidden mascot never captures input. Returns the new state.",
	}, s.handleToggleVisibility)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_scale",
		Description: "Set the mascot's display scale. Values are clamped to 0.3-1.0. Returns the new state.",
	}, s.handleSetScale)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reposition",
		Description: "Move the mascot window within the current monitor's work area: to a random spot, the center, or a corner (top-left, top-right, bottom-left, bottom-right).",
	}, s.handleReposition)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "play_animation",
		Description: "Play a named animation once (or looped when the loop setting is on). Requires a connected presentation. Returns the resulting animation info.",
	}, s.handlePlayAnimation)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "change_skin",
		Description: "Switch the mascot to a named skin. Requires a connected presentation. Returns the resulting animation info.",
	}, s.handleChangeSkin)
}

// call does one bounded round trip to the host.
func (s *Server) call(ctx context.Context, kind ipc.Kind, payload any, replyKind ipc.Kind) (ipc.Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.link.Call(ctx, kind, payload, replyKind)
}
