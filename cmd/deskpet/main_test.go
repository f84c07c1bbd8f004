package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/deskpet/internal/config"
	"github.com/1broseidon/deskpet/internal/ipc"
)

func TestRunConfigInitThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deskpet", "config.yaml")

	if rc := runConfig([]string{"init", "--path", path}); rc != 0 {
		t.Fatalf("config init rc=%d, want 0", rc)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if rc := runConfig([]string{"init", "--path", path}); rc != 1 {
		t.Fatalf("second init rc=%d, want 1 without --force", rc)
	}
	if rc := runConfig([]string{"init", "--path", path, "--force"}); rc != 0 {
		t.Fatalf("init --force rc=%d, want 0", rc)
	}
	if rc := runConfig([]string{"validate", "--path", path}); rc != 0 {
		t.Fatalf("config validate rc=%d, want 0", rc)
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if res.File != path {
		t.Fatalf("File=%q, want %q", res.File, path)
	}
	if got := formatSource(res.Sources["hit_test.opacity_threshold"]); got == "default" {
		t.Fatalf("opacity_threshold source=%q, want the written file", got)
	}
}

func TestRunConfigValidateRejectsBadThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("hit_test:\n  opacity_threshold: 300\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if rc := runConfig([]string{"validate", "--path", path}); rc != 1 {
		t.Fatalf("validate rc=%d, want 1", rc)
	}
}

func TestRunConfigUnknownSubcommand(t *testing.T) {
	if rc := runConfig([]string{"frobnicate"}); rc != 2 {
		t.Fatalf("rc=%d, want 2", rc)
	}
}

func TestParsePoint(t *testing.T) {
	pt, err := parsePoint(" 12.5, 40 ")
	if err != nil {
		t.Fatalf("parsePoint: %v", err)
	}
	if pt.X != 12.5 || pt.Y != 40 {
		t.Fatalf("point=%+v, want {12.5 40}", pt)
	}

	for _, bad := range []string{"12", "a,1", "1,b", ""} {
		if _, err := parsePoint(bad); err == nil {
			t.Errorf("parsePoint(%q) succeeded, want error", bad)
		}
	}
}

func TestParseReposition(t *testing.T) {
	tests := []struct {
		in   string
		want ipc.RepositionPayload
	}{
		{"random", ipc.RepositionPayload{Mode: ipc.RepositionRandom}},
		{"Center", ipc.RepositionPayload{Mode: ipc.RepositionCenter}},
		{"bottom-right", ipc.RepositionPayload{Mode: ipc.RepositionCorner, Corner: "bottom-right"}},
	}
	for _, tt := range tests {
		got, err := parseReposition(tt.in)
		if err != nil {
			t.Fatalf("parseReposition(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("parseReposition(%q)=%+v, want %+v", tt.in, got, tt.want)
		}
	}
	if _, err := parseReposition("middle-left"); err == nil {
		t.Fatal("expected error for unknown destination")
	}
}

func TestRunScaleRejectsNonNumber(t *testing.T) {
	for _, arg := range []string{"big", "NaN", "+Inf"} {
		if rc := runScale([]string{arg}); rc != 2 {
			t.Fatalf("runScale(%q) rc=%d, want 2", arg, rc)
		}
	}
}

// startFakeHost serves the control socket at DESKPET_SOCKET and records every
// envelope the CLI sends. A quit request closes the sender's connection.
func startFakeHost(t *testing.T) <-chan ipc.Envelope {
	t.Helper()
	dir, err := os.MkdirTemp("", "dpc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")
	t.Setenv("DESKPET_SOCKET", path)

	srv := ipc.NewServer(path, nil)
	got := make(chan ipc.Envelope, 16)
	for _, kind := range []ipc.Kind{ipc.KindReposition, ipc.KindStopAnimation, ipc.KindUpdateSettings} {
		srv.Handle(kind, func(_ *ipc.Peer, env ipc.Envelope) { got <- env })
	}
	srv.Handle(ipc.KindQuit, func(p *ipc.Peer, env ipc.Envelope) {
		got <- env
		p.Close()
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(srv.Stop)
	return got
}

func nextEnvelope(t *testing.T, ch <-chan ipc.Envelope) ipc.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("host received nothing")
	}
	return ipc.Envelope{}
}

func TestRunMoveReachesHost(t *testing.T) {
	got := startFakeHost(t)

	if rc := runMove([]string{"top-left"}); rc != 0 {
		t.Fatalf("runMove rc=%d, want 0", rc)
	}
	env := nextEnvelope(t, got)
	var rp ipc.RepositionPayload
	if env.Kind != ipc.KindReposition || env.Decode(&rp) != nil {
		t.Fatalf("host got %+v, want reposition", env)
	}
	if rp.Mode != ipc.RepositionCorner || rp.Corner != "top-left" {
		t.Fatalf("payload = %+v, want corner top-left", rp)
	}
}

func TestRunAnimationStopAndSettingsReachHost(t *testing.T) {
	got := startFakeHost(t)

	if rc := runAnimation([]string{"stop"}); rc != 0 {
		t.Fatalf("animation stop rc=%d, want 0", rc)
	}
	if env := nextEnvelope(t, got); env.Kind != ipc.KindStopAnimation {
		t.Fatalf("host got %q, want stop-animation", env.Kind)
	}

	if rc := runAnimation([]string{"settings", "--loop=false", "--min", "2000"}); rc != 0 {
		t.Fatalf("animation settings rc=%d, want 0", rc)
	}
	env := nextEnvelope(t, got)
	var upd ipc.SettingsUpdate
	if env.Kind != ipc.KindUpdateSettings || env.Decode(&upd) != nil {
		t.Fatalf("host got %+v, want update-settings", env)
	}
	if upd.Loop == nil || *upd.Loop || upd.MinIntervalMS == nil || *upd.MinIntervalMS != 2000 {
		t.Fatalf("update = %+v, want loop=false min=2000", upd)
	}
	if upd.MaxIntervalMS != nil || upd.AutoPlay != nil || upd.DefaultSkin != nil {
		t.Fatalf("update carries unset fields: %+v", upd)
	}
}

func TestRunQuitWaitsForHostToDisconnect(t *testing.T) {
	got := startFakeHost(t)

	if rc := runQuit(nil); rc != 0 {
		t.Fatalf("runQuit rc=%d, want 0", rc)
	}
	if env := nextEnvelope(t, got); env.Kind != ipc.KindQuit {
		t.Fatalf("host got %q, want quit", env.Kind)
	}
}

func TestControlCommandsFailWithoutHost(t *testing.T) {
	t.Setenv("DESKPET_SOCKET", filepath.Join(t.TempDir(), "missing.sock"))
	if rc := runMove([]string{"center"}); rc != 1 {
		t.Fatalf("runMove rc=%d, want 1", rc)
	}
}
