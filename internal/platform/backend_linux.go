//go:build linux

package platform

import (
	"errors"
	"fmt"

	"github.com/1broseidon/deskpet/internal/hittest"
	"github.com/1broseidon/deskpet/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh
// X11 connection to display ("" means $DISPLAY).
func NewLinuxBackendFromDisplay(display string) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// StopEventLoop makes EventLoop return.
func (b *LinuxBackend) StopEventLoop() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

func (b *LinuxBackend) WorkArea(win WindowID) (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}
	m, err := conn.WorkArea(xproto.Window(win))
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}, nil
}

func (b *LinuxBackend) FindWindow(class string) (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	win, err := conn.FindWindowByClass(class)
	if errors.Is(err, x11.ErrWindowNotFound) {
		return 0, fmt.Errorf("%w: class %q", ErrWindowNotFound, class)
	}
	if err != nil {
		return 0, err
	}
	return WindowID(win), nil
}

func (b *LinuxBackend) WindowBounds(win WindowID) (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}
	x, y, w, h, err := conn.WindowRect(xproto.Window(win))
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: x, Y: y, Width: w, Height: h}, nil
}

func (b *LinuxBackend) MoveWindow(win WindowID, x, y int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MoveWindow(xproto.Window(win), x, y)
}

func (b *LinuxBackend) KeepAbove(win WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.KeepAbove(xproto.Window(win))
}

func (b *LinuxBackend) SetInputPassthrough(win WindowID, ignore bool) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SetInputPassthrough(xproto.Window(win), ignore)
}

func (b *LinuxBackend) PointerPosition() (int, int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, 0, err
	}
	return conn.Pointer()
}

// HitTestHook returns NoopHook: X11 has no per-hit-test window message.
func (b *LinuxBackend) HitTestHook(WindowID) hittest.Hook {
	return hittest.NoopHook{}
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}
