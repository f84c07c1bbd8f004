package surface

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/1broseidon/deskpet/internal/logging"
	"github.com/1broseidon/deskpet/internal/retry"
)

// Source produces the current surface, or nil while nothing is rendered.
type Source interface {
	Surface() *Surface
}

// SourceFunc adapts a function to Source.
type SourceFunc func() *Surface

func (f SourceFunc) Surface() *Surface { return f() }

// Locator waits for a renderer to produce its first surface. Until it does,
// Current returns nil and the sampler answers opaque.
type Locator struct {
	source Source
	policy retry.Policy
	logger *slog.Logger

	mu    sync.Mutex
	found bool
}

// NewLocator creates a locator over source.
func NewLocator(source Source, policy retry.Policy, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Locator{source: source, policy: policy, logger: logger}
}

// Discover polls the source on a fixed backoff. It gives up silently once the
// attempts are spent; Current keeps asking the source directly afterwards.
func (l *Locator) Discover(ctx context.Context) bool {
	err := retry.Do(ctx, l.policy, func(attempt int) bool {
		if l.source.Surface() != nil {
			return true
		}
		l.logger.Debug("surface not ready", "attempt", attempt+1, "of", l.policy.Attempts)
		return false
	})

	l.mu.Lock()
	l.found = err == nil
	l.mu.Unlock()

	switch {
	case err == nil:
		l.logger.Info("surface found")
	case errors.Is(err, retry.ErrExhausted):
		l.logger.Debug("surface discovery gave up")
	}
	return err == nil
}

// Found reports whether Discover located a surface.
func (l *Locator) Found() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.found
}

// Current returns the source's surface as of now.
func (l *Locator) Current() *Surface {
	return l.source.Surface()
}
