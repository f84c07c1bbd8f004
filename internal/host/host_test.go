package host

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/modestate"
	"github.com/1broseidon/deskpet/internal/platform"
	"github.com/1broseidon/deskpet/internal/retry"
)

type harness struct {
	host    *Host
	backend *fakeBackend
	server  *ipc.Server
	path    string
	hellos  chan ipc.Role
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir, err := os.MkdirTemp("", "dph")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "s.sock")
	srv := ipc.NewServer(path, nil)
	backend := newFakeBackend()
	h := New(backend, srv, 42, Options{Margin: DefaultMargin, PollInterval: time.Millisecond, Seed: 1})

	hellos := make(chan ipc.Role, 8)
	srv.OnHello(func(p *ipc.Peer) { hellos <- p.Role() })
	if err := srv.Start(); err != nil {
		t.Fatalf("server start: %v", err)
	}
	t.Cleanup(srv.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := h.Start(ctx); err != nil {
		t.Fatalf("host start: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	return &harness{host: h, backend: backend, server: srv, path: path, hellos: hellos}
}

func (hs *harness) dial(t *testing.T, role ipc.Role) *ipc.Client {
	t.Helper()
	c, err := ipc.Dial(context.Background(), hs.path, role, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	select {
	case <-hs.hellos:
	case <-time.After(2 * time.Second):
		t.Fatal("hello not received")
	}
	return c
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func recv(t *testing.T, ch <-chan ipc.Envelope) ipc.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
	return ipc.Envelope{}
}

func TestHost_StartPinsWindowAndCaptures(t *testing.T) {
	hs := newHarness(t)
	if hs.backend.above != 1 {
		t.Fatalf("expected KeepAbove once, got %d", hs.backend.above)
	}
	if calls := hs.backend.ignoreCalls(); len(calls) != 1 || calls[0] {
		t.Fatalf("expected a single capture on start, got %v", calls)
	}
}

func TestHost_VisibilityToggleRoutesAndBroadcasts(t *testing.T) {
	hs := newHarness(t)
	c := hs.dial(t, ipc.RoleControl)
	changes := make(chan ipc.Envelope, 4)
	c.On(ipc.KindVisibilityChanged, func(env ipc.Envelope) { changes <- env })

	if err := c.Send(ipc.KindToggleVisibility, nil); err != nil {
		t.Fatal(err)
	}
	change, ok := ipc.ChangeFromEnvelope(recv(t, changes))
	if !ok || change.State.Visible {
		t.Fatalf("expected visible=false, got %+v", change)
	}
	state, _ := hs.host.Routing()
	if state != (platform.RoutingState{Ignore: true, Forward: true}) {
		t.Fatalf("hidden overlay should pass through, got %+v", state)
	}

	if err := c.Send(ipc.KindToggleVisibility, nil); err != nil {
		t.Fatal(err)
	}
	change, _ = ipc.ChangeFromEnvelope(recv(t, changes))
	if !change.State.Visible {
		t.Fatal("expected visible=true")
	}
	if state, _ := hs.host.Routing(); state.Ignore {
		t.Fatalf("shown overlay should capture, got %+v", state)
	}
}

func TestHost_MovementModeCaptures(t *testing.T) {
	hs := newHarness(t)
	pres := hs.dial(t, ipc.RolePresentation)
	changes := make(chan ipc.Envelope, 4)
	pres.On(ipc.KindMovementModeChanged, func(env ipc.Envelope) { changes <- env })

	if err := pres.Send(ipc.KindRequestRouting, ipc.RoutingPayload{Ignore: true, Forward: true}); err != nil {
		t.Fatal(err)
	}
	eventually(t, "pass-through routing", func() bool {
		s, _ := hs.host.Routing()
		return s.Ignore
	})

	hs.host.ToggleMovementMode()
	change, ok := ipc.ChangeFromEnvelope(recv(t, changes))
	if !ok || !change.State.MovementMode {
		t.Fatalf("expected movement mode on, got %+v", change)
	}
	if s, _ := hs.host.Routing(); s.Ignore {
		t.Fatal("movement mode should capture")
	}

	// Leaving movement mode leaves routing to the presentation.
	before := len(hs.backend.ignoreCalls())
	hs.host.ToggleMovementMode()
	recv(t, changes)
	if after := len(hs.backend.ignoreCalls()); after != before {
		t.Fatalf("leaving movement mode routed directly (%d -> %d calls)", before, after)
	}
}

func TestHost_QueriesAndScale(t *testing.T) {
	hs := newHarness(t)
	c := hs.dial(t, ipc.RoleControl)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	env, err := c.Await(ctx, ipc.KindGetScale, ipc.KindCurrentScale)
	if err != nil {
		t.Fatal(err)
	}
	change, _ := ipc.ChangeFromEnvelope(env)
	if change.State.Scale != 1.0 {
		t.Fatalf("expected default scale 1.0, got %v", change.State.Scale)
	}

	scales := make(chan ipc.Envelope, 4)
	c.On(ipc.KindScaleChanged, func(env ipc.Envelope) { scales <- env })
	if err := c.Send(ipc.KindSetScale, ipc.ScalePayload{Value: -1}); err != nil {
		t.Fatal(err)
	}
	change, _ = ipc.ChangeFromEnvelope(recv(t, scales))
	if change.State.Scale != modestate.MinScale {
		t.Fatalf("expected clamp to %v, got %v", modestate.MinScale, change.State.Scale)
	}

	hs.host.SetScale(math.NaN())
	if got := hs.host.Snapshot().Scale; got != modestate.MinScale {
		t.Fatalf("NaN changed scale to %v", got)
	}

	env, err = c.Await(ctx, ipc.KindGetState, ipc.KindState)
	if err != nil {
		t.Fatal(err)
	}
	var state modestate.State
	if err := env.Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state.MovementMode || !state.Visible || state.Scale != modestate.MinScale {
		t.Fatalf("unexpected state %+v", state)
	}

	env, err = c.Await(ctx, ipc.KindGetVisibility, ipc.KindVisibilityStatus)
	if err != nil {
		t.Fatal(err)
	}
	if change, _ := ipc.ChangeFromEnvelope(env); !change.State.Visible {
		t.Fatal("expected visible status")
	}
	env, err = c.Await(ctx, ipc.KindGetMovementMode, ipc.KindMovementModeStatus)
	if err != nil {
		t.Fatal(err)
	}
	if change, _ := ipc.ChangeFromEnvelope(env); change.State.MovementMode {
		t.Fatal("expected movement mode off")
	}
}

func TestHost_RelaysAnimationTraffic(t *testing.T) {
	hs := newHarness(t)
	pres := hs.dial(t, ipc.RolePresentation)
	ctrl := hs.dial(t, ipc.RoleControl)

	toPres := make(chan ipc.Envelope, 8)
	for _, k := range []ipc.Kind{ipc.KindPlayAnimation, ipc.KindSettingsChanged, ipc.KindRequestAnimationInfo} {
		pres.On(k, func(env ipc.Envelope) { toPres <- env })
	}
	toCtrl := make(chan ipc.Envelope, 8)
	ctrl.On(ipc.KindAnimationInfo, func(env ipc.Envelope) { toCtrl <- env })

	if err := ctrl.Send(ipc.KindPlayAnimation, ipc.NamePayload{Name: "Wave"}); err != nil {
		t.Fatal(err)
	}
	env := recv(t, toPres)
	var name ipc.NamePayload
	if env.Kind != ipc.KindPlayAnimation || env.Decode(&name) != nil || name.Name != "Wave" {
		t.Fatalf("unexpected relay %s %s", env.Kind, env.Payload)
	}

	loop := false
	if err := ctrl.Send(ipc.KindUpdateSettings, ipc.SettingsUpdate{Loop: &loop}); err != nil {
		t.Fatal(err)
	}
	if env := recv(t, toPres); env.Kind != ipc.KindSettingsChanged {
		t.Fatalf("expected settings-changed, got %s", env.Kind)
	}

	if err := pres.Send(ipc.KindAnimationInfo, ipc.AnimationInfo{Animations: []string{"Idle"}}); err != nil {
		t.Fatal(err)
	}
	var info ipc.AnimationInfo
	if env := recv(t, toCtrl); env.Decode(&info) != nil || len(info.Animations) != 1 {
		t.Fatalf("unexpected animation info %s", env.Payload)
	}
}

func TestHost_PointerForwardedToPresentation(t *testing.T) {
	hs := newHarness(t)
	pres := hs.dial(t, ipc.RolePresentation)
	moves := make(chan ipc.Envelope, 64)
	pres.On(ipc.KindPointerMove, func(env ipc.Envelope) {
		select {
		case moves <- env:
		default:
		}
	})

	hs.backend.setPointer(130, 140)
	var p ipc.PointerPayload
	if err := recv(t, moves).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.X != 30 || p.Y != 40 {
		t.Fatalf("expected window-local (30,40), got %+v", p)
	}
}

func TestHost_RepositionAndQuit(t *testing.T) {
	hs := newHarness(t)
	c := hs.dial(t, ipc.RoleControl)

	if err := c.Send(ipc.KindReposition, ipc.RepositionPayload{Mode: ipc.RepositionCorner, Corner: "bottom-right"}); err != nil {
		t.Fatal(err)
	}
	eventually(t, "corner move", func() bool {
		m, ok := hs.backend.lastMove()
		return ok && m == (move{1400, 560})
	})

	if err := c.Send(ipc.KindQuit, nil); err != nil {
		t.Fatal(err)
	}
	select {
	case <-hs.host.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("quit did not close Done")
	}
}

func TestFindOverlay(t *testing.T) {
	backend := newFakeBackend()
	policy := retry.Policy{Attempts: 2, Backoff: time.Millisecond}

	win, err := FindOverlay(context.Background(), backend, "deskpet", policy, nil)
	if err != nil || win != 42 {
		t.Fatalf("expected window 42, got %v (%v)", win, err)
	}
	if _, err := FindOverlay(context.Background(), backend, "other", policy, nil); !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}
