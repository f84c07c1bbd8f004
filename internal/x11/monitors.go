package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

func (m Monitor) contains(x, y int) bool {
	return x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   outputName,
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		})
	}
	return monitors, nil
}

// WorkArea returns the usable area (panels and docks excluded) of the
// monitor holding windowID. A zero windowID, or a window that cannot be
// located, falls back to the monitor under the pointer.
func (c *Connection) WorkArea(windowID xproto.Window) (Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return Monitor{}, err
	}
	if len(monitors) == 0 {
		return Monitor{}, fmt.Errorf("no monitors found")
	}

	var target *Monitor
	if windowID != 0 {
		if x, y, w, h, err := c.WindowRect(windowID); err == nil {
			target = monitorAt(monitors, x+w/2, y+h/2)
		}
	}
	if target == nil {
		if x, y, err := c.Pointer(); err == nil {
			target = monitorAt(monitors, x, y)
		}
	}
	if target == nil {
		target = &monitors[0]
	}

	area := *target
	if wa, ok := c.currentWorkarea(); ok {
		area = clip(area, wa)
	}
	return area, nil
}

// currentWorkarea returns _NET_WORKAREA for the current desktop.
func (c *Connection) currentWorkarea() (ewmh.Workarea, bool) {
	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return ewmh.Workarea{}, false
	}
	desktopIndex := 0
	if currentDesktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil {
		if int(currentDesktop) < len(workArea) {
			desktopIndex = int(currentDesktop)
		}
	}
	return workArea[desktopIndex], true
}

func monitorAt(monitors []Monitor, x, y int) *Monitor {
	for i := range monitors {
		if monitors[i].contains(x, y) {
			return &monitors[i]
		}
	}
	return nil
}

// clip intersects a monitor with a work area. A disjoint work area leaves
// the monitor untouched.
func clip(m Monitor, wa ewmh.Workarea) Monitor {
	x1 := max(m.X, wa.X)
	y1 := max(m.Y, wa.Y)
	x2 := min(m.X+m.Width, wa.X+int(wa.Width))
	y2 := min(m.Y+m.Height, wa.Y+int(wa.Height))
	if x2 <= x1 || y2 <= y1 {
		return m
	}
	m.X, m.Y = x1, y1
	m.Width, m.Height = x2-x1, y2-y1
	return m
}
