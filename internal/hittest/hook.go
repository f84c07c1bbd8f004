package hittest

import "log/slog"

// Hook is a platform's native hit-test interception point, such as a window
// message filter. Platforms without one return NoopHook.
type Hook interface {
	Supported() bool
	// Install registers callback to run on every native hit-test.
	Install(callback func()) error
	// Close removes the callback. It must be safe to call more than once.
	Close() error
}

// NoopHook is the Hook for platforms without native hit-test interception.
type NoopHook struct{}

func (NoopHook) Supported() bool      { return false }
func (NoopHook) Install(func()) error { return nil }
func (NoopHook) Close() error         { return nil }

// InstallHook installs the movement-mode safety net on h: while movement mode
// is on, every native hit-test forces capture regardless of sampling.
//
// When h is unsupported the window is left conservatively capturing and
// installed is false.
func InstallHook(h Hook, modes ModeSource, router Router, logger *slog.Logger) (installed bool, err error) {
	if h == nil || !h.Supported() {
		if err := router.Route(Capture); err != nil {
			return false, err
		}
		if logger != nil {
			logger.Info("native hit-test hook unavailable; window is draggable until sampling takes over")
		}
		return false, nil
	}

	err = h.Install(func() {
		if modes.Snapshot().MovementMode {
			if err := router.Route(Capture); err != nil && logger != nil {
				logger.Warn("hit-test hook failed to force capture", "error", err)
			}
		}
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
