package host

import (
	"errors"
	"sync"

	"github.com/1broseidon/deskpet/internal/hittest"
	"github.com/1broseidon/deskpet/internal/platform"
)

type move struct{ x, y int }

type fakeBackend struct {
	mu       sync.Mutex
	area     platform.Rect
	bounds   platform.Rect
	pointerX int
	pointerY int
	moves    []move
	ignores  []bool
	above    int
	hook     hittest.Hook
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		area:   platform.Rect{Width: 1920, Height: 1080},
		bounds: platform.Rect{X: 100, Y: 100, Width: 500, Height: 500},
	}
}

func (f *fakeBackend) WorkArea(platform.WindowID) (platform.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.area, nil
}

func (f *fakeBackend) FindWindow(class string) (platform.WindowID, error) {
	if class != "deskpet" {
		return 0, platform.ErrWindowNotFound
	}
	return 42, nil
}

func (f *fakeBackend) WindowBounds(platform.WindowID) (platform.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bounds, nil
}

func (f *fakeBackend) MoveWindow(_ platform.WindowID, x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, move{x, y})
	f.bounds.X, f.bounds.Y = x, y
	return nil
}

func (f *fakeBackend) KeepAbove(platform.WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.above++
	return nil
}

func (f *fakeBackend) SetInputPassthrough(_ platform.WindowID, ignore bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignores = append(f.ignores, ignore)
	return nil
}

func (f *fakeBackend) PointerPosition() (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pointerX < 0 {
		return 0, 0, errors.New("no pointer")
	}
	return f.pointerX, f.pointerY, nil
}

func (f *fakeBackend) HitTestHook(platform.WindowID) hittest.Hook {
	if f.hook != nil {
		return f.hook
	}
	return hittest.NoopHook{}
}

func (f *fakeBackend) setPointer(x, y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointerX, f.pointerY = x, y
}

func (f *fakeBackend) lastMove() (move, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.moves) == 0 {
		return move{}, false
	}
	return f.moves[len(f.moves)-1], true
}

func (f *fakeBackend) ignoreCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.ignores...)
}
