package hotkeys

import (
	"sort"
	"testing"

	"github.com/1broseidon/deskpet/internal/hittest"
	"github.com/1broseidon/deskpet/internal/platform"
)

type headlessBackend struct{}

func (headlessBackend) WorkArea(platform.WindowID) (platform.Rect, error) {
	return platform.Rect{}, nil
}
func (headlessBackend) FindWindow(string) (platform.WindowID, error) { return 0, nil }
func (headlessBackend) WindowBounds(platform.WindowID) (platform.Rect, error) {
	return platform.Rect{}, nil
}
func (headlessBackend) MoveWindow(platform.WindowID, int, int) error      { return nil }
func (headlessBackend) KeepAbove(platform.WindowID) error                 { return nil }
func (headlessBackend) SetInputPassthrough(platform.WindowID, bool) error { return nil }
func (headlessBackend) PointerPosition() (int, int, error)                { return 0, 0, nil }
func (headlessBackend) HitTestHook(platform.WindowID) hittest.Hook        { return hittest.NoopHook{} }

func TestNewHandler_RequiresX11Backend(t *testing.T) {
	if _, err := NewHandler(headlessBackend{}, nil); err == nil {
		t.Fatal("expected error for backend without X11 access")
	}
}

func TestIgnoreMasks(t *testing.T) {
	got := ignoreMasks([]uint16{2, 16})
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []uint16{0, 2, 16, 18}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
