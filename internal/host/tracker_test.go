package host

import (
	"context"
	"testing"
	"time"

	"github.com/1broseidon/deskpet/internal/logging"
)

type point struct{ x, y float64 }

func TestTracker_ForwardsWhileInsideAndOnceOnLeave(t *testing.T) {
	backend := newFakeBackend() // window at (100,100) 500x500
	var got []point
	tr := NewTracker(backend, 1, time.Millisecond, func(x, y float64) {
		got = append(got, point{x, y})
	}, logging.Discard())

	steps := []struct{ x, y int }{
		{50, 50},   // outside, never inside: nothing
		{150, 160}, // inside
		{150, 160}, // unchanged: nothing
		{151, 160}, // inside, moved
		{700, 700}, // left: one report
		{800, 800}, // still outside: nothing
	}
	for _, s := range steps {
		backend.setPointer(s.x, s.y)
		tr.poll()
	}

	want := []point{{50, 60}, {51, 60}, {600, 600}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("report %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestTracker_PointerErrorSkipsTick(t *testing.T) {
	backend := newFakeBackend()
	backend.setPointer(-1, 0)
	calls := 0
	tr := NewTracker(backend, 1, time.Millisecond, func(float64, float64) { calls++ }, logging.Discard())
	tr.poll()
	if calls != 0 {
		t.Fatalf("expected no report, got %d", calls)
	}
}

func TestTracker_RunStopsOnCancel(t *testing.T) {
	backend := newFakeBackend()
	backend.setPointer(200, 200)
	reports := make(chan point, 16)
	tr := NewTracker(backend, 1, time.Millisecond, func(x, y float64) {
		select {
		case reports <- point{x, y}:
		default:
		}
	}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	select {
	case p := <-reports:
		if p != (point{100, 100}) {
			t.Fatalf("unexpected report %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("tracker never reported")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop")
	}
}
