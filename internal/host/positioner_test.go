package host

import (
	"errors"
	"testing"

	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/logging"
	"github.com/1broseidon/deskpet/internal/platform"
)

func TestPositioner_Corners(t *testing.T) {
	tests := []struct {
		corner Corner
		want   move
	}{
		{TopLeft, move{20, 20}},
		{TopRight, move{1400, 20}},
		{BottomLeft, move{20, 560}},
		{BottomRight, move{1400, 560}},
	}
	for _, tt := range tests {
		t.Run(string(tt.corner), func(t *testing.T) {
			backend := newFakeBackend()
			p := NewPositioner(backend, 1, DefaultMargin, 1, logging.Discard())
			if err := p.Corner(tt.corner); err != nil {
				t.Fatalf("Corner(%s): %v", tt.corner, err)
			}
			if got, _ := backend.lastMove(); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestPositioner_RespectsWorkAreaOffset(t *testing.T) {
	backend := newFakeBackend()
	backend.area = platform.Rect{X: 1920, Y: 32, Width: 1280, Height: 992}
	p := NewPositioner(backend, 1, 10, 1, logging.Discard())

	if err := p.Corner(TopLeft); err != nil {
		t.Fatal(err)
	}
	if got, _ := backend.lastMove(); got != (move{1930, 42}) {
		t.Fatalf("unexpected top-left %+v", got)
	}
	if err := p.Center(); err != nil {
		t.Fatal(err)
	}
	if got, _ := backend.lastMove(); got != (move{1920 + 390, 32 + 246}) {
		t.Fatalf("unexpected center %+v", got)
	}
}

func TestPositioner_UnknownCornerIgnored(t *testing.T) {
	backend := newFakeBackend()
	p := NewPositioner(backend, 1, DefaultMargin, 1, logging.Discard())

	err := p.Apply(ipc.RepositionPayload{Mode: ipc.RepositionCorner, Corner: "middle-ish"})
	if !errors.Is(err, ErrUnknownCorner) {
		t.Fatalf("expected ErrUnknownCorner, got %v", err)
	}
	if _, moved := backend.lastMove(); moved {
		t.Fatal("window moved for unknown corner")
	}
}

func TestPositioner_RandomStaysInsideWorkArea(t *testing.T) {
	backend := newFakeBackend()
	p := NewPositioner(backend, 1, DefaultMargin, 7, logging.Discard())
	for i := 0; i < 200; i++ {
		if err := p.Random(); err != nil {
			t.Fatal(err)
		}
		got, _ := backend.lastMove()
		if got.x < 0 || got.x >= 1420 || got.y < 0 || got.y >= 580 {
			t.Fatalf("random placement %+v out of range", got)
		}
	}
}

func TestPositioner_RandomWindowLargerThanArea(t *testing.T) {
	backend := newFakeBackend()
	backend.area = platform.Rect{X: 5, Y: 6, Width: 300, Height: 300}
	p := NewPositioner(backend, 1, DefaultMargin, 7, logging.Discard())
	if err := p.Random(); err != nil {
		t.Fatal(err)
	}
	if got, _ := backend.lastMove(); got != (move{5, 6}) {
		t.Fatalf("expected area origin, got %+v", got)
	}
}
