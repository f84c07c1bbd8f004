package platform

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/deskpet/internal/hittest"
	"github.com/1broseidon/deskpet/internal/logging"
)

// RoutingState is the live window's current mouse routing.
type RoutingState struct {
	Ignore  bool
	Forward bool
}

// InputRouter applies hit-test directives to one window. Its state always
// equals the last directive the backend accepted.
type InputRouter struct {
	backend Backend
	win     WindowID
	logger  *slog.Logger

	mu      sync.Mutex
	state   RoutingState
	applied bool
}

var _ hittest.Router = (*InputRouter)(nil)

func NewInputRouter(backend Backend, win WindowID, logger *slog.Logger) *InputRouter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &InputRouter{backend: backend, win: win, logger: logger}
}

// Route applies d. Applying the state the window is already in is a no-op.
func (r *InputRouter) Route(d hittest.Directive) error {
	d = d.Normalize()
	next := RoutingState{Ignore: d.Ignore, Forward: d.Forward}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.applied && r.state == next {
		return nil
	}
	if err := r.backend.SetInputPassthrough(r.win, next.Ignore); err != nil {
		return fmt.Errorf("route %s: %w", d, err)
	}
	r.state = next
	r.applied = true
	r.logger.Debug("input routing applied", "directive", d.String(), "forward", next.Forward)
	return nil
}

// State returns the current routing and whether any directive was applied yet.
func (r *InputRouter) State() (RoutingState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.applied
}

// Window returns the routed window.
func (r *InputRouter) Window() WindowID {
	return r.win
}
