package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/modestate"
)

const replyTimeout = 3 * time.Second

// withHost dials the host as a control peer and runs fn with a bounded
// context. Errors are printed and mapped to exit code 1.
func withHost(fn func(ctx context.Context, c *ipc.Client) error) int {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	client, err := dialHost(ctx, ipc.RoleControl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Close()

	if err := fn(ctx, client); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printState(w io.Writer, st modestate.State) {
	fmt.Fprintf(w, "movement_mode: %v\n", st.MovementMode)
	fmt.Fprintf(w, "visible:       %v\n", st.Visible)
	fmt.Fprintf(w, "scale:         %.2f\n", st.Scale)
}

func fetchState(ctx context.Context, c *ipc.Client) (modestate.State, error) {
	env, err := c.Await(ctx, ipc.KindGetState, ipc.KindState)
	if err != nil {
		return modestate.State{}, fmt.Errorf("query state: %w", err)
	}
	var st modestate.State
	if err := env.Decode(&st); err != nil {
		return modestate.State{}, err
	}
	return st, nil
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskpet status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the host's movement mode, visibility and scale.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	return withHost(func(ctx context.Context, c *ipc.Client) error {
		st, err := fetchState(ctx, c)
		if err != nil {
			return err
		}
		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		printState(os.Stdout, st)
		return nil
	})
}

func printToggleUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: deskpet toggle <movement|visibility>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flip a mode flag on the host and print the resulting state.")
}

func runToggle(args []string) int {
	if len(args) == 0 {
		printToggleUsage(os.Stderr)
		return 2
	}
	if isHelp(args) {
		printToggleUsage(os.Stdout)
		return 0
	}
	if len(args) != 1 {
		printToggleUsage(os.Stderr)
		return 2
	}

	var kind, changed ipc.Kind
	switch args[0] {
	case "movement", "movement-mode", "move-mode":
		kind, changed = ipc.KindToggleMovementMode, ipc.KindMovementModeChanged
	case "visibility", "visible":
		kind, changed = ipc.KindToggleVisibility, ipc.KindVisibilityChanged
	default:
		fmt.Fprintf(os.Stderr, "Unknown toggle: %s\n\n", args[0])
		printToggleUsage(os.Stderr)
		return 2
	}

	return withHost(func(ctx context.Context, c *ipc.Client) error {
		if _, err := c.Call(ctx, kind, nil, changed); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		st, err := fetchState(ctx, c)
		if err != nil {
			return err
		}
		printState(os.Stdout, st)
		return nil
	})
}

func runScale(args []string) int {
	fs := flag.NewFlagSet("scale", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskpet scale <value>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintf(os.Stderr, "Set the display scale. Values are clamped to %.1f-%.1f.\n", modestate.MinScale, modestate.MaxScale)
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "scale requires <value>")
		fs.Usage()
		return 2
	}
	v, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = fmt.Errorf("not a finite number")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid scale %q: %v\n", fs.Arg(0), err)
		return 2
	}

	return withHost(func(ctx context.Context, c *ipc.Client) error {
		env, err := c.Call(ctx, ipc.KindSetScale, ipc.ScalePayload{Value: v}, ipc.KindScaleChanged)
		if err != nil {
			return fmt.Errorf("set scale: %w", err)
		}
		var sp ipc.ScalePayload
		if err := env.Decode(&sp); err != nil {
			return err
		}
		fmt.Printf("scale: %.2f\n", sp.Value)
		return nil
	})
}

func runMove(args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskpet move <random|center|top-left|top-right|bottom-left|bottom-right>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Move the mascot within the current monitor's work area.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "move requires a destination")
		fs.Usage()
		return 2
	}

	req, err := parseReposition(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 2
	}
	return withHost(func(_ context.Context, c *ipc.Client) error {
		return c.Send(ipc.KindReposition, req)
	})
}

func runQuit(args []string) int {
	if isHelp(args) {
		fmt.Fprintln(os.Stdout, "Usage: deskpet quit")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Ask the running host to shut down and wait until it disconnects.")
		return 0
	}
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "quit takes no arguments")
		return 2
	}

	return withHost(func(ctx context.Context, c *ipc.Client) error {
		if err := c.Send(ipc.KindQuit, nil); err != nil {
			return err
		}
		select {
		case <-c.Done():
			return nil
		case <-ctx.Done():
			return fmt.Errorf("host did not exit: %w", ctx.Err())
		}
	})
}

func parseReposition(where string) (ipc.RepositionPayload, error) {
	where = strings.ToLower(strings.TrimSpace(where))
	switch where {
	case "random":
		return ipc.RepositionPayload{Mode: ipc.RepositionRandom}, nil
	case "center", "centre":
		return ipc.RepositionPayload{Mode: ipc.RepositionCenter}, nil
	case "top-left", "top-right", "bottom-left", "bottom-right":
		return ipc.RepositionPayload{Mode: ipc.RepositionCorner, Corner: where}, nil
	default:
		return ipc.RepositionPayload{}, fmt.Errorf("unknown destination %q", where)
	}
}

func printAnimationUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  deskpet animation info [--json]")
	fmt.Fprintln(w, "  deskpet animation play <name>")
	fmt.Fprintln(w, "  deskpet animation skin <name>")
	fmt.Fprintln(w, "  deskpet animation stop")
	fmt.Fprintln(w, "  deskpet animation settings [--min MS] [--max MS] [--loop=BOOL] [--autoplay=BOOL] [--skin NAME]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Animation commands are relayed by the host to the presentation.")
}

func runAnimation(args []string) int {
	if len(args) == 0 {
		printAnimationUsage(os.Stderr)
		return 2
	}
	if isHelp(args) {
		printAnimationUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "info":
		fs := flag.NewFlagSet("info", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		jsonOut := fs.Bool("json", false, "Output as JSON")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		return withHost(func(ctx context.Context, c *ipc.Client) error {
			info, err := fetchAnimationInfo(ctx, c)
			if err != nil {
				return err
			}
			if *jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printAnimationInfo(os.Stdout, info)
			return nil
		})

	case "play", "skin":
		if len(args) != 2 {
			fmt.Fprintf(os.Stderr, "animation %s requires <name>\n\n", args[0])
			printAnimationUsage(os.Stderr)
			return 2
		}
		kind := ipc.KindPlayAnimation
		if args[0] == "skin" {
			kind = ipc.KindChangeSkin
		}
		name := args[1]
		return withHost(func(ctx context.Context, c *ipc.Client) error {
			if err := c.Send(kind, ipc.NamePayload{Name: name}); err != nil {
				return err
			}
			info, err := fetchAnimationInfo(ctx, c)
			if err != nil {
				return err
			}
			got := info.CurrentAnimation
			if kind == ipc.KindChangeSkin {
				got = info.CurrentSkin
			}
			if got != name {
				return fmt.Errorf("presentation did not accept %q (see 'deskpet animation info')", name)
			}
			return nil
		})

	case "stop":
		return withHost(func(_ context.Context, c *ipc.Client) error {
			return c.Send(ipc.KindStopAnimation, nil)
		})

	case "settings":
		return runAnimationSettings(args[1:])

	default:
		fmt.Fprintf(os.Stderr, "Unknown animation command: %s\n\n", args[0])
		printAnimationUsage(os.Stderr)
		return 2
	}
}

func runAnimationSettings(args []string) int {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	minMS := fs.Int("min", 0, "Minimum autoplay interval in milliseconds")
	maxMS := fs.Int("max", 0, "Maximum autoplay interval in milliseconds")
	loop := fs.Bool("loop", false, "Loop played animations")
	autoPlay := fs.Bool("autoplay", false, "Play random animations on a timer")
	skin := fs.String("skin", "", "Default skin")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	var upd ipc.SettingsUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min":
			upd.MinIntervalMS = minMS
		case "max":
			upd.MaxIntervalMS = maxMS
		case "loop":
			upd.Loop = loop
		case "autoplay":
			upd.AutoPlay = autoPlay
		case "skin":
			upd.DefaultSkin = skin
		}
	})
	if upd == (ipc.SettingsUpdate{}) {
		fmt.Fprintln(os.Stderr, "animation settings requires at least one flag")
		return 2
	}

	return withHost(func(_ context.Context, c *ipc.Client) error {
		return c.Send(ipc.KindUpdateSettings, upd)
	})
}

func fetchAnimationInfo(ctx context.Context, c *ipc.Client) (ipc.AnimationInfo, error) {
	env, err := c.Await(ctx, ipc.KindRequestAnimationInfo, ipc.KindAnimationInfo)
	if err != nil {
		return ipc.AnimationInfo{}, fmt.Errorf("no animation info (is the presentation running?): %w", err)
	}
	var info ipc.AnimationInfo
	if err := env.Decode(&info); err != nil {
		return ipc.AnimationInfo{}, err
	}
	return info, nil
}

func printAnimationInfo(w io.Writer, info ipc.AnimationInfo) {
	fmt.Fprintf(w, "current_animation: %s\n", info.CurrentAnimation)
	fmt.Fprintf(w, "current_skin:      %s\n", info.CurrentSkin)
	fmt.Fprintf(w, "playing:           %v\n", info.Playing)
	fmt.Fprintf(w, "interval_ms:       %d-%d\n", info.Settings.MinIntervalMS, info.Settings.MaxIntervalMS)
	fmt.Fprintf(w, "loop:              %v\n", info.Settings.Loop)
	fmt.Fprintf(w, "auto_play:         %v\n", info.Settings.AutoPlay)
	fmt.Fprintln(w, "animations:")
	for _, a := range info.Animations {
		fmt.Fprintf(w, "- %s\n", a)
	}
	fmt.Fprintln(w, "skins:")
	for _, s := range info.Skins {
		fmt.Fprintf(w, "- %s\n", s)
	}
}
