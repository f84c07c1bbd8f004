package host

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/deskpet/internal/platform"
)

// Tracker polls the global pointer and reports window-local positions while
// the pointer is over the overlay, plus one final report when it leaves.
// Polling works regardless of the window's input region, so pointer moves
// keep flowing while clicks pass through.
type Tracker struct {
	backend  platform.Backend
	win      platform.WindowID
	interval time.Duration
	send     func(x, y float64)
	logger   *slog.Logger

	inside bool
	lastX  int
	lastY  int
	sent   bool
}

func NewTracker(backend platform.Backend, win platform.WindowID, interval time.Duration, send func(x, y float64), logger *slog.Logger) *Tracker {
	return &Tracker{
		backend:  backend,
		win:      win,
		interval: interval,
		send:     send,
		logger:   logger,
	}
}

// Run polls until ctx is done.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.poll()
		}
	}
}

func (t *Tracker) poll() {
	px, py, err := t.backend.PointerPosition()
	if err != nil {
		t.logger.Debug("pointer query failed", "error", err)
		return
	}
	bounds, err := t.backend.WindowBounds(t.win)
	if err != nil {
		t.logger.Debug("window bounds query failed", "error", err)
		return
	}

	lx, ly := px-bounds.X, py-bounds.Y
	inside := bounds.Contains(px, py)
	wasInside := t.inside
	t.inside = inside

	if !inside && !wasInside {
		return
	}
	if t.sent && lx == t.lastX && ly == t.lastY {
		return
	}
	t.lastX, t.lastY, t.sent = lx, ly, true
	t.send(float64(lx), float64(ly))
}
