// Package host runs the process that owns the overlay window: the
// authoritative mode state, input routing, placement and the IPC hub.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/1broseidon/deskpet/internal/hittest"
	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/logging"
	"github.com/1broseidon/deskpet/internal/modestate"
	"github.com/1broseidon/deskpet/internal/platform"
	"github.com/1broseidon/deskpet/internal/retry"
)

const (
	DefaultMargin       = 20
	DefaultPollInterval = 16 * time.Millisecond
)

type Options struct {
	// Margin is the corner placement inset in pixels; negative selects
	// DefaultMargin.
	Margin       int
	PollInterval time.Duration
	Logger       *slog.Logger
	// Seed fixes random placement; zero seeds from the clock.
	Seed uint64
}

// Host wires the mode store, input router, positioner and pointer tracker
// to the IPC server.
type Host struct {
	store      *modestate.Store
	backend    platform.Backend
	server     *ipc.Server
	router     *platform.InputRouter
	positioner *Positioner
	tracker    *Tracker
	win        platform.WindowID
	logger     *slog.Logger

	// mu orders mutate, route and broadcast so peers see changes in store order.
	mu   sync.Mutex
	hook hittest.Hook

	quitOnce sync.Once
	quit     chan struct{}
}

// New builds a host for the overlay window win and registers its IPC
// handlers on server. The server may be started before or after New.
func New(backend platform.Backend, server *ipc.Server, win platform.WindowID, opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Margin < 0 {
		opts.Margin = DefaultMargin
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	h := &Host{
		store:      modestate.NewStore(),
		backend:    backend,
		server:     server,
		router:     platform.NewInputRouter(backend, win, logger),
		positioner: NewPositioner(backend, win, opts.Margin, opts.Seed, logger),
		win:        win,
		logger:     logger,
		quit:       make(chan struct{}),
	}
	h.tracker = NewTracker(backend, win, opts.PollInterval, h.forwardPointer, logger)
	h.register()
	return h
}

// FindOverlay looks for the overlay window by class under policy.
func FindOverlay(ctx context.Context, backend platform.Backend, class string, policy retry.Policy, logger *slog.Logger) (platform.WindowID, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	var win platform.WindowID
	err := retry.Do(ctx, policy, func(attempt int) bool {
		id, err := backend.FindWindow(class)
		if err != nil {
			logger.Debug("overlay window not found yet", "class", class, "attempt", attempt+1, "error", err)
			return false
		}
		win = id
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("find overlay window %q: %w", class, err)
	}
	return win, nil
}

// Start pins the window, installs the native hit-test hook and starts the
// pointer tracker. It returns once setup is done; the tracker stops with ctx.
func (h *Host) Start(ctx context.Context) error {
	if err := h.backend.KeepAbove(h.win); err != nil {
		h.logger.Warn("could not keep overlay above other windows", "error", err)
	}

	hook := h.backend.HitTestHook(h.win)
	if _, err := hittest.InstallHook(hook, h.store, h.router, h.logger); err != nil {
		return fmt.Errorf("install hit-test hook: %w", err)
	}
	h.mu.Lock()
	h.hook = hook
	h.mu.Unlock()

	go h.tracker.Run(ctx)
	return nil
}

// Close removes the hit-test hook.
func (h *Host) Close() error {
	h.mu.Lock()
	hook := h.hook
	h.hook = nil
	h.mu.Unlock()
	if hook != nil {
		return hook.Close()
	}
	return nil
}

// Quit asks the host process to exit.
func (h *Host) Quit() {
	h.quitOnce.Do(func() {
		h.logger.Info("quit requested")
		close(h.quit)
	})
}

// Done is closed once Quit has been called.
func (h *Host) Done() <-chan struct{} {
	return h.quit
}

func (h *Host) Snapshot() modestate.State {
	return h.store.Snapshot()
}

// Routing returns the live window routing state.
func (h *Host) Routing() (platform.RoutingState, bool) {
	return h.router.State()
}

// ToggleMovementMode flips movement mode. Entering it captures the whole
// window so it can be dragged.
func (h *Host) ToggleMovementMode() {
	h.mu.Lock()
	defer h.mu.Unlock()

	change := h.store.ToggleMovementMode()
	h.logger.Info("movement mode changed", "enabled", change.State.MovementMode)
	if change.State.MovementMode {
		h.route(hittest.Capture)
	}
	h.broadcast(change)
}

// ToggleVisibility flips visibility. Hiding passes every click through;
// showing captures until the presentation re-samples.
func (h *Host) ToggleVisibility() {
	h.mu.Lock()
	defer h.mu.Unlock()

	change := h.store.ToggleVisibility()
	h.logger.Info("visibility changed", "visible", change.State.Visible)
	if change.State.Visible {
		h.route(hittest.Capture)
	} else {
		h.route(hittest.PassThrough)
	}
	h.broadcast(change)
}

// SetScale clamps and stores v. NaN is ignored.
func (h *Host) SetScale(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	change, ok := h.store.SetScale(v)
	if !ok {
		h.logger.Warn("ignoring invalid scale", "value", v)
		return
	}
	h.logger.Info("scale changed", "scale", change.State.Scale)
	h.broadcast(change)
}

func (h *Host) route(d hittest.Directive) {
	if err := h.router.Route(d); err != nil {
		h.logger.Warn("input routing failed", "directive", d.String(), "error", err)
	}
}

func (h *Host) broadcast(change modestate.Change) {
	env, err := ipc.ChangeEnvelope(change)
	if err != nil {
		h.logger.Error("cannot encode mode change", "error", err)
		return
	}
	h.server.Broadcast(env)
}

func (h *Host) forwardPointer(x, y float64) {
	env, err := ipc.NewEnvelope(ipc.KindPointerMove, ipc.PointerPayload{X: x, Y: y})
	if err != nil {
		return
	}
	h.server.SendToRole(ipc.RolePresentation, env)
}

func (h *Host) register() {
	s := h.server

	s.Handle(ipc.KindRequestRouting, func(_ *ipc.Peer, env ipc.Envelope) {
		var p ipc.RoutingPayload
		if err := env.Decode(&p); err != nil {
			h.logger.Debug("malformed routing request", "error", err)
			return
		}
		h.route(hittest.Directive{Ignore: p.Ignore, Forward: p.Forward})
	})

	s.Handle(ipc.KindToggleMovementMode, func(*ipc.Peer, ipc.Envelope) { h.ToggleMovementMode() })
	s.Handle(ipc.KindToggleVisibility, func(*ipc.Peer, ipc.Envelope) { h.ToggleVisibility() })
	s.Handle(ipc.KindSetScale, func(_ *ipc.Peer, env ipc.Envelope) {
		var p ipc.ScalePayload
		if err := env.Decode(&p); err != nil {
			h.logger.Debug("malformed scale request", "error", err)
			return
		}
		h.SetScale(p.Value)
	})

	s.Handle(ipc.KindGetMovementMode, func(p *ipc.Peer, _ ipc.Envelope) {
		h.reply(p, ipc.KindMovementModeStatus, ipc.MovementModePayload{Enabled: h.store.Snapshot().MovementMode})
	})
	s.Handle(ipc.KindGetVisibility, func(p *ipc.Peer, _ ipc.Envelope) {
		h.reply(p, ipc.KindVisibilityStatus, ipc.VisibilityPayload{Visible: h.store.Snapshot().Visible})
	})
	s.Handle(ipc.KindGetScale, func(p *ipc.Peer, _ ipc.Envelope) {
		h.reply(p, ipc.KindCurrentScale, ipc.ScalePayload{Value: h.store.Snapshot().Scale})
	})
	s.Handle(ipc.KindGetState, func(p *ipc.Peer, _ ipc.Envelope) {
		h.reply(p, ipc.KindState, h.store.Snapshot())
	})

	s.Handle(ipc.KindReposition, func(_ *ipc.Peer, env ipc.Envelope) {
		var p ipc.RepositionPayload
		if err := env.Decode(&p); err != nil {
			h.logger.Debug("malformed reposition request", "error", err)
			return
		}
		if err := h.positioner.Apply(p); err != nil {
			h.logger.Warn("reposition failed", "mode", p.Mode, "corner", p.Corner, "error", err)
		}
	})

	// Animation traffic is relayed; the presentation owns playback.
	toPresentation := func(_ *ipc.Peer, env ipc.Envelope) {
		if h.server.SendToRole(ipc.RolePresentation, env) == 0 {
			h.logger.Debug("no presentation connected", "kind", env.Kind)
		}
	}
	s.Handle(ipc.KindRequestAnimationInfo, toPresentation)
	s.Handle(ipc.KindPlayAnimation, toPresentation)
	s.Handle(ipc.KindChangeSkin, toPresentation)
	s.Handle(ipc.KindStopAnimation, toPresentation)
	s.Handle(ipc.KindUpdateSettings, func(p *ipc.Peer, env ipc.Envelope) {
		env.Kind = ipc.KindSettingsChanged
		toPresentation(p, env)
	})
	s.Handle(ipc.KindAnimationInfo, func(_ *ipc.Peer, env ipc.Envelope) {
		h.server.SendToRole(ipc.RoleControl, env)
	})

	s.Handle(ipc.KindLog, func(p *ipc.Peer, env ipc.Envelope) {
		var l ipc.LogPayload
		if err := env.Decode(&l); err != nil {
			return
		}
		level, err := logging.ParseLevel(l.Level)
		if err != nil {
			level = slog.LevelInfo
		}
		h.logger.Log(context.Background(), level, strings.TrimSpace(l.Message), "peer", p.Role())
	})

	s.Handle(ipc.KindQuit, func(*ipc.Peer, ipc.Envelope) { h.Quit() })
}

func (h *Host) reply(p *ipc.Peer, kind ipc.Kind, payload any) {
	if err := p.Send(kind, payload); err != nil {
		h.logger.Debug("reply dropped", "kind", kind, "error", err)
	}
}
