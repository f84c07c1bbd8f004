package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ErrWindowNotFound is returned when no client matches the requested class.
var ErrWindowNotFound = fmt.Errorf("window not found")

// FindWindowByClass returns the first EWMH client whose WM_CLASS instance or
// class equals class (case-insensitive).
func (c *Connection) FindWindowByClass(class string) (xproto.Window, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get client list: %w", err)
	}
	for _, win := range clients {
		wmClass, err := icccm.WmClassGet(c.XUtil, win)
		if err != nil {
			continue
		}
		if strings.EqualFold(wmClass.Class, class) || strings.EqualFold(wmClass.Instance, class) {
			return win, nil
		}
	}
	return 0, fmt.Errorf("%w: class %q", ErrWindowNotFound, class)
}

// WindowRect returns the window's root-relative position and size.
func (c *Connection) WindowRect(windowID xproto.Window) (x, y, width, height int, err error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get geometry: %w", err)
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to translate coordinates: %w", err)
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), nil
}

// MoveWindow moves a window, keeping its size.
func (c *Connection) MoveWindow(windowID xproto.Window, x, y int) error {
	// Use EWMH for better WM compatibility
	if err := ewmh.MoveWindow(c.XUtil, windowID, x, y); err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).Move(x, y)
	}
	return nil
}

// KeepAbove asks the window manager to keep the overlay above other windows
// and out of the taskbar.
func (c *Connection) KeepAbove(windowID xproto.Window) error {
	const add = 1
	if err := ewmh.WmStateReq(c.XUtil, windowID, add, "_NET_WM_STATE_ABOVE"); err != nil {
		return fmt.Errorf("failed to request above state: %w", err)
	}
	if err := ewmh.WmStateReq(c.XUtil, windowID, add, "_NET_WM_STATE_SKIP_TASKBAR"); err != nil {
		return fmt.Errorf("failed to request skip-taskbar state: %w", err)
	}
	return nil
}

// Pointer returns the global pointer position in root coordinates.
func (c *Connection) Pointer() (x, y int, err error) {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query pointer: %w", err)
	}
	return int(pointer.RootX), int(pointer.RootY), nil
}
