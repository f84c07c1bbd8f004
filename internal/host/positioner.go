package host

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/platform"
)

// ErrUnknownCorner is returned for a corner name Positioner does not know.
var ErrUnknownCorner = errors.New("unknown corner")

type Corner string

const (
	TopLeft     Corner = "top-left"
	TopRight    Corner = "top-right"
	BottomLeft  Corner = "bottom-left"
	BottomRight Corner = "bottom-right"
)

// Positioner moves the overlay within the work area of its display.
type Positioner struct {
	backend platform.Backend
	win     platform.WindowID
	margin  int
	rng     *rand.Rand
	logger  *slog.Logger
}

func NewPositioner(backend platform.Backend, win platform.WindowID, margin int, seed uint64, logger *slog.Logger) *Positioner {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Positioner{
		backend: backend,
		win:     win,
		margin:  margin,
		rng:     rand.New(rand.NewPCG(seed, seed>>1)),
		logger:  logger,
	}
}

// Apply dispatches a reposition request.
func (p *Positioner) Apply(req ipc.RepositionPayload) error {
	switch req.Mode {
	case ipc.RepositionRandom:
		return p.Random()
	case ipc.RepositionCenter:
		return p.Center()
	case ipc.RepositionCorner:
		return p.Corner(Corner(req.Corner))
	default:
		return fmt.Errorf("unknown reposition mode %q", req.Mode)
	}
}

// Random moves the window to a uniformly random spot fully inside the work
// area.
func (p *Positioner) Random() error {
	area, bounds, err := p.geometry()
	if err != nil {
		return err
	}
	x := area.X + p.intn(area.Width-bounds.Width)
	y := area.Y + p.intn(area.Height-bounds.Height)
	return p.move(x, y, "random")
}

func (p *Positioner) Center() error {
	area, bounds, err := p.geometry()
	if err != nil {
		return err
	}
	x := area.X + (area.Width-bounds.Width)/2
	y := area.Y + (area.Height-bounds.Height)/2
	return p.move(x, y, "center")
}

// Corner moves the window to corner, inset by the margin.
func (p *Positioner) Corner(corner Corner) error {
	switch corner {
	case TopLeft, TopRight, BottomLeft, BottomRight:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCorner, corner)
	}

	area, bounds, err := p.geometry()
	if err != nil {
		return err
	}
	left := area.X + p.margin
	top := area.Y + p.margin
	right := area.X + area.Width - bounds.Width - p.margin
	bottom := area.Y + area.Height - bounds.Height - p.margin

	switch corner {
	case TopLeft:
		return p.move(left, top, string(corner))
	case TopRight:
		return p.move(right, top, string(corner))
	case BottomLeft:
		return p.move(left, bottom, string(corner))
	default:
		return p.move(right, bottom, string(corner))
	}
}

func (p *Positioner) geometry() (area, bounds platform.Rect, err error) {
	area, err = p.backend.WorkArea(p.win)
	if err != nil {
		return area, bounds, fmt.Errorf("work area: %w", err)
	}
	bounds, err = p.backend.WindowBounds(p.win)
	if err != nil {
		return area, bounds, fmt.Errorf("window bounds: %w", err)
	}
	return area, bounds, nil
}

// intn returns a value in [0, n), or 0 when the window does not fit.
func (p *Positioner) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return p.rng.IntN(n)
}

func (p *Positioner) move(x, y int, how string) error {
	if err := p.backend.MoveWindow(p.win, x, y); err != nil {
		return fmt.Errorf("move window: %w", err)
	}
	p.logger.Info("overlay moved", "placement", how, "x", x, "y", y)
	return nil
}
