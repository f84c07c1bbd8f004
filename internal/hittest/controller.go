package hittest

import (
	"log/slog"
	"sync"

	"github.com/1broseidon/deskpet/internal/logging"
	"github.com/1broseidon/deskpet/internal/modestate"
	"github.com/1broseidon/deskpet/internal/surface"
)

// ModeSource exposes the current mode flags.
type ModeSource interface {
	Snapshot() modestate.State
}

// Controller turns pointer moves into routing directives. It remembers the
// last directive it issued and only calls the router when that changes.
type Controller struct {
	sampler  *surface.Sampler
	modes    ModeSource
	surfaces surface.Source
	router   Router
	logger   *slog.Logger

	mu        sync.Mutex
	last      Directive
	issued    bool
	lastPoint surface.Point
	havePoint bool
}

// NewController wires a controller. A nil logger discards output.
func NewController(sampler *surface.Sampler, modes ModeSource, surfaces surface.Source, router Router, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{
		sampler:  sampler,
		modes:    modes,
		surfaces: surfaces,
		router:   router,
		logger:   logger,
	}
}

// Evaluate computes the directive for p without routing it.
//
// Precedence: hidden mascot passes everything through, movement mode
// captures everything, otherwise the sampled pixel decides.
func (c *Controller) Evaluate(p surface.Point) Directive {
	state := c.modes.Snapshot()
	if !state.Visible {
		return PassThrough
	}
	if state.MovementMode {
		return Capture
	}

	decision := c.sampler.Sample(c.surfaces.Surface(), p)
	if decision.Opaque {
		return Capture
	}
	return PassThrough
}

// OnPointerMove evaluates p and routes the result if it differs from the
// previously issued directive. Evaluation and routing happen under one lock
// so a concurrent Refresh cannot route a result older than ours.
func (c *Controller) OnPointerMove(p surface.Point) Directive {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.Evaluate(p)
	c.lastPoint = p
	c.havePoint = true
	c.issueLocked(d)
	return d
}

// Refresh re-evaluates after a mode change. Without a known pointer position
// only the mode overrides can be decided; ok is false when nothing was
// evaluated.
func (c *Controller) Refresh() (d Directive, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.havePoint {
		d = c.Evaluate(c.lastPoint)
	} else {
		state := c.modes.Snapshot()
		switch {
		case !state.Visible:
			d = PassThrough
		case state.MovementMode:
			d = Capture
		default:
			return Directive{}, false
		}
	}

	c.issueLocked(d)
	return d, true
}

// Reset forgets the last issued directive so the next evaluation is routed
// unconditionally. Used when the host may have changed routing on its own.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued = false
}

// Last returns the most recently issued directive.
func (c *Controller) Last() (Directive, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.issued
}

func (c *Controller) issueLocked(d Directive) {
	d = d.Normalize()
	if c.issued && c.last == d {
		return
	}
	if err := c.router.Route(d); err != nil {
		c.logger.Warn("routing request failed", "directive", d.String(), "error", err)
		c.issued = false
		return
	}
	c.logger.Debug("routing changed", "directive", d.String())
	c.last = d
	c.issued = true
}
