// Package platform abstracts the window-system operations the host needs
// to place the overlay and route its input.
package platform

import (
	"errors"

	"github.com/1broseidon/deskpet/internal/hittest"
)

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// ErrWindowNotFound is returned by FindWindow when no window matches.
var ErrWindowNotFound = errors.New("window not found")

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether (x, y) lies inside r, right and bottom edges
// excluded.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Backend abstracts window-system operations across platforms.
type Backend interface {
	// WorkArea returns the usable area of the display holding win.
	WorkArea(win WindowID) (Rect, error)
	FindWindow(class string) (WindowID, error)
	WindowBounds(win WindowID) (Rect, error)
	MoveWindow(win WindowID, x, y int) error
	// KeepAbove pins the window above others and out of the taskbar.
	KeepAbove(win WindowID) error
	// SetInputPassthrough makes win transparent to clicks when ignore is set.
	SetInputPassthrough(win WindowID, ignore bool) error
	PointerPosition() (x, y int, err error)
	// HitTestHook returns the native hit-test hook for win, or
	// hittest.NoopHook when the platform has none.
	HitTestHook(win WindowID) hittest.Hook
}
