package hotkeys

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/deskpet/internal/logging"
	"github.com/1broseidon/deskpet/internal/platform"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Toggler is the host-side mode state the global shortcuts drive.
type Toggler interface {
	ToggleMovementMode()
	ToggleVisibility()
}

// Bindings are the key sequences, in keybind syntax such as "Mod1-m".
type Bindings struct {
	MovementMode string
	Visibility   string
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger

	mu         sync.Mutex
	registered []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler. Backends without X11 access
// yield an error.
func NewHandler(backend platform.Backend, logger *slog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, fmt.Errorf("global hotkeys require an X11 backend")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	xu := accessor.XUtil()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:     xu,
		root:   accessor.RootWindow(),
		logger: logger,
	}, nil
}

// Register binds the movement-mode and visibility shortcuts to t.
func (h *Handler) Register(b Bindings, t Toggler) error {
	if err := h.RegisterFunc(b.MovementMode, func() {
		h.logger.Info("movement mode hotkey triggered")
		t.ToggleMovementMode()
	}); err != nil {
		return fmt.Errorf("failed to register movement mode hotkey %q: %w", b.MovementMode, err)
	}
	if err := h.RegisterFunc(b.Visibility, func() {
		h.logger.Info("visibility hotkey triggered")
		t.ToggleVisibility()
	}); err != nil {
		h.Close()
		return fmt.Errorf("failed to register visibility hotkey %q: %w", b.Visibility, err)
	}
	return nil
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.registered = append(h.registered, keySequence)
	h.mu.Unlock()
	return nil
}

// Close releases every grab this handler made on the root window.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.registered) == 0 {
		return
	}
	keybind.Detach(h.xu, h.root)
	h.logger.Debug("hotkeys released", "keys", h.registered)
	h.registered = nil
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	xevent.IgnoreMods = ignoreMasks(base)
}

// ignoreMasks returns every combination of the lock modifiers in base,
// including the empty one.
func ignoreMasks(base []uint16) []uint16 {
	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
