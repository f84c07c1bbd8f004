package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/deskpet/internal/logging"
	"github.com/1broseidon/deskpet/internal/modestate"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	// Unix socket paths are length-limited; keep the directory short.
	dir, err := os.MkdirTemp("", "dp")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "s.sock")
	srv := NewServer(path, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, path
}

func dial(t *testing.T, path string, role Role) *Client {
	t.Helper()
	c, err := Dial(context.Background(), path, role, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	var zero T
	return zero
}

func TestSocketPermissions(t *testing.T) {
	_, path := startServer(t)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("socket perm = %o, want 600", perm)
	}
}

func TestHandlerReceivesPayloadAndReplies(t *testing.T) {
	srv, path := startServer(t)

	got := make(chan ScalePayload, 1)
	srv.Handle(KindSetScale, func(p *Peer, env Envelope) {
		var sp ScalePayload
		if err := env.Decode(&sp); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		got <- sp
	})
	srv.Handle(KindGetScale, func(p *Peer, env Envelope) {
		p.Send(KindCurrentScale, ScalePayload{Value: 0.7})
	})

	c := dial(t, path, RoleControl)
	if err := c.Send(KindSetScale, ScalePayload{Value: 0.5}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if sp := waitFor(t, got); sp.Value != 0.5 {
		t.Fatalf("handler got %v, want 0.5", sp.Value)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, err := c.Await(ctx, KindGetScale, KindCurrentScale)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	change, ok := ChangeFromEnvelope(env)
	if !ok || change.Flag != modestate.FlagScale || change.State.Scale != 0.7 {
		t.Fatalf("reply = %+v/%v, want scale 0.7", change, ok)
	}
}

func TestCallWaitsForBroadcastReply(t *testing.T) {
	srv, path := startServer(t)
	srv.Handle(KindSetScale, func(_ *Peer, env Envelope) {
		var sp ScalePayload
		if env.Decode(&sp) != nil {
			return
		}
		out, _ := NewEnvelope(KindScaleChanged, sp)
		srv.Broadcast(out)
	})

	c := dial(t, path, RoleControl)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, err := c.Call(ctx, KindSetScale, ScalePayload{Value: 0.4}, KindScaleChanged)
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	change, ok := ChangeFromEnvelope(env)
	if !ok || change.State.Scale != 0.4 {
		t.Fatalf("reply = %+v/%v, want scale 0.4", change, ok)
	}

	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	if _, err := c.Call(short, KindToggleVisibility, nil, KindVisibilityChanged); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Call() without reply error = %v, want deadline exceeded", err)
	}
}

func TestAbandonedCallDoesNotSwallowLaterReply(t *testing.T) {
	srv, path := startServer(t)
	var answer atomic.Bool
	srv.Handle(KindGetScale, func(p *Peer, _ Envelope) {
		if answer.Load() {
			p.Send(KindCurrentScale, ScalePayload{Value: 0.6})
		}
	})

	c := dial(t, path, RoleControl)
	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	if _, err := c.Await(short, KindGetScale, KindCurrentScale); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Await() error = %v, want deadline exceeded", err)
	}

	answer.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, err := c.Await(ctx, KindGetScale, KindCurrentScale)
	if err != nil {
		t.Fatalf("second Await() error: %v", err)
	}
	if change, ok := ChangeFromEnvelope(env); !ok || change.State.Scale != 0.6 {
		t.Fatalf("reply = %+v/%v, want scale 0.6", change, ok)
	}
}

func TestSendThenCloseIsDelivered(t *testing.T) {
	srv, path := startServer(t)
	const runs = 50
	got := make(chan RepositionPayload, runs)
	srv.Handle(KindReposition, func(_ *Peer, env Envelope) {
		var rp RepositionPayload
		if env.Decode(&rp) == nil {
			got <- rp
		}
	})

	for i := 0; i < runs; i++ {
		c, err := Dial(context.Background(), path, RoleControl, nil)
		if err != nil {
			t.Fatalf("Dial() error: %v", err)
		}
		if err := c.Send(KindReposition, RepositionPayload{Mode: RepositionCenter}); err != nil {
			t.Fatalf("Send() error: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close() error: %v", err)
		}
	}

	for i := 0; i < runs; i++ {
		if rp := waitFor(t, got); rp.Mode != RepositionCenter {
			t.Fatalf("message %d mode = %q, want center", i, rp.Mode)
		}
	}
}

func TestBroadcastReachesEveryPeerAndSendToRoleFilters(t *testing.T) {
	srv, path := startServer(t)

	hellos := make(chan Role, 2)
	srv.OnHello(func(p *Peer) { hellos <- p.Role() })

	pres := dial(t, path, RolePresentation)
	ctrl := dial(t, path, RoleControl)
	waitFor(t, hellos)
	waitFor(t, hellos)

	presGot := make(chan Envelope, 4)
	ctrlGot := make(chan Envelope, 4)
	pres.On(KindVisibilityChanged, func(env Envelope) { presGot <- env })
	pres.On(KindPointerMove, func(env Envelope) { presGot <- env })
	ctrl.On(KindVisibilityChanged, func(env Envelope) { ctrlGot <- env })
	ctrl.On(KindPointerMove, func(env Envelope) { ctrlGot <- env })

	env, err := ChangeEnvelope(modestate.Change{Flag: modestate.FlagVisible, State: modestate.State{Visible: false}})
	if err != nil {
		t.Fatal(err)
	}
	srv.Broadcast(env)

	for _, ch := range []chan Envelope{presGot, ctrlGot} {
		got := waitFor(t, ch)
		change, ok := ChangeFromEnvelope(got)
		if !ok || change.Flag != modestate.FlagVisible || change.State.Visible {
			t.Fatalf("broadcast = %+v, want visible=false", got)
		}
	}

	move, _ := NewEnvelope(KindPointerMove, PointerPayload{X: 1, Y: 2})
	if n := srv.SendToRole(RolePresentation, move); n != 1 {
		t.Fatalf("SendToRole delivered to %d peers, want 1", n)
	}
	if got := waitFor(t, presGot); got.Kind != KindPointerMove {
		t.Fatalf("presentation got %s, want pointer-move", got.Kind)
	}
	select {
	case env := <-ctrlGot:
		t.Fatalf("control received %s meant for presentation", env.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQueryRepliesAreOneShotAndFIFO(t *testing.T) {
	srv, path := startServer(t)
	next := 0.3
	srv.Handle(KindGetScale, func(p *Peer, env Envelope) {
		p.Send(KindCurrentScale, ScalePayload{Value: next})
		next += 0.1
	})

	c := dial(t, path, RoleControl)
	first := make(chan float64, 2)
	second := make(chan float64, 2)
	c.Query(KindGetScale, KindCurrentScale, func(env Envelope) {
		var sp ScalePayload
		env.Decode(&sp)
		first <- sp.Value
	})
	c.Query(KindGetScale, KindCurrentScale, func(env Envelope) {
		var sp ScalePayload
		env.Decode(&sp)
		second <- sp.Value
	})

	if v := waitFor(t, first); v != 0.3 {
		t.Fatalf("first reply = %v, want 0.3", v)
	}
	if v := waitFor(t, second); v < 0.39 || v > 0.41 {
		t.Fatalf("second reply = %v, want 0.4", v)
	}
	select {
	case v := <-first:
		t.Fatalf("one-shot handler ran twice (%v)", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnknownAndMalformedMessagesAreIgnored(t *testing.T) {
	srv, path := startServer(t)
	got := make(chan struct{}, 1)
	srv.Handle(KindToggleVisibility, func(*Peer, Envelope) { got <- struct{}{} })

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	lines := "not json\n{\"payload\":1}\n{\"kind\":\"made-up\"}\n{\"kind\":\"toggle-visibility\"}\n"
	if _, err := conn.Write([]byte(lines)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, got)
}

func TestFullOutboxDropsMessages(t *testing.T) {
	// Nobody reads the far end, so the writer blocks on its first envelope.
	near, far := net.Pipe()
	defer far.Close()
	p := newPeer(near, logging.Discard())
	defer p.Close()

	var dropped int
	for i := 0; i < outboxSize+2; i++ {
		if err := p.Send(KindPointerMove, PointerPayload{X: float64(i)}); errors.Is(err, ErrDropped) {
			dropped++
		} else if err != nil {
			t.Fatalf("Send(%d) error: %v", i, err)
		}
	}
	if dropped == 0 {
		t.Fatal("expected at least one dropped message")
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	_, path := startServer(t)
	c := dial(t, path, RoleControl)
	c.Close()
	<-c.Done()

	if err := c.Send(KindToggleVisibility, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send() after Close = %v, want ErrClosed", err)
	}
}

func TestClientSeesServerStop(t *testing.T) {
	srv, path := startServer(t)
	hellos := make(chan struct{}, 1)
	srv.OnHello(func(*Peer) { hellos <- struct{}{} })

	c := dial(t, path, RolePresentation)
	waitFor(t, hellos)
	srv.Stop()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client not notified of server shutdown")
	}
	if srv.PeerCount() != 0 {
		t.Fatalf("PeerCount() = %d after Stop", srv.PeerCount())
	}
}

func TestDialFailsWithoutHost(t *testing.T) {
	_, err := Dial(context.Background(), filepath.Join(t.TempDir(), "none.sock"), RoleControl, nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
}

func TestChangeEnvelopeRoundTripPerFlag(t *testing.T) {
	changes := []modestate.Change{
		{Flag: modestate.FlagMovementMode, State: modestate.State{MovementMode: true}},
		{Flag: modestate.FlagVisible, State: modestate.State{Visible: true}},
		{Flag: modestate.FlagScale, State: modestate.State{Scale: 0.55}},
	}
	for _, c := range changes {
		env, err := ChangeEnvelope(c)
		if err != nil {
			t.Fatalf("ChangeEnvelope(%v) error: %v", c.Flag, err)
		}
		got, ok := ChangeFromEnvelope(env)
		if !ok || got.Flag != c.Flag {
			t.Fatalf("ChangeFromEnvelope(%s) = %+v/%v", env.Kind, got, ok)
		}
	}
	if _, err := ChangeEnvelope(modestate.Change{Flag: "nope"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if _, ok := ChangeFromEnvelope(Envelope{Kind: KindScaleChanged}); ok {
		t.Fatal("empty payload accepted")
	}
}
