// Package presentation runs the renderer-side process: it mirrors the
// host's mode state, samples the rendered surface under the pointer and
// asks the host to re-route input when the answer changes.
package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/1broseidon/deskpet/internal/hittest"
	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/logging"
	"github.com/1broseidon/deskpet/internal/modestate"
	"github.com/1broseidon/deskpet/internal/retry"
	"github.com/1broseidon/deskpet/internal/surface"
)

// firstPlayDelay is how long the autoplay loop waits before its first pick.
const firstPlayDelay = 500 * time.Millisecond

// Link is the presenter's connection to the host.
type Link interface {
	Send(kind ipc.Kind, payload any) error
	On(kind ipc.Kind, fn func(ipc.Envelope))
	Query(kind, replyKind ipc.Kind, fn func(ipc.Envelope)) error
}

type Options struct {
	Threshold uint8
	Discovery retry.Policy
	Settings  ipc.AnimationSettings
	// Seed fixes animation selection; zero seeds from the clock.
	Seed   uint64
	Logger *slog.Logger
}

type Presenter struct {
	link       Link
	mirror     *modestate.Mirror
	sampler    *surface.Sampler
	locator    *surface.Locator
	controller *hittest.Controller
	player     Player
	logger     *slog.Logger

	ready chan struct{}

	mu         sync.Mutex
	ctx        context.Context
	settings   ipc.AnimationSettings
	rng        *rand.Rand
	loopCancel context.CancelFunc
}

// New wires a presenter around base, the unscaled rendered surface.
func New(link Link, base surface.Source, player Player, opts Options) *Presenter {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	settings, _ := Validate(opts.Settings)

	p := &Presenter{
		link:     link,
		mirror:   modestate.NewMirror(),
		sampler:  surface.NewSampler(opts.Threshold, logger),
		locator:  surface.NewLocator(base, opts.Discovery, logger),
		player:   player,
		logger:   logger,
		ready:    make(chan struct{}),
		ctx:      context.Background(),
		settings: settings,
		rng:      rand.New(rand.NewPCG(seed, seed>>1)),
	}
	router := hittest.RouterFunc(func(d hittest.Directive) error {
		return link.Send(ipc.KindRequestRouting, ipc.RoutingPayload{Ignore: d.Ignore, Forward: d.Forward})
	})
	p.controller = hittest.NewController(p.sampler, p.mirror, surface.SourceFunc(p.displayed), router, logger)
	return p
}

// displayed returns the current surface with its rectangle scaled about its
// centre by the mirrored scale.
func (p *Presenter) displayed() *surface.Surface {
	s := p.locator.Current()
	if s == nil {
		return nil
	}
	scaled := *s
	scaled.Display = s.Display.ScaleAboutCenter(p.mirror.Snapshot().Scale)
	return &scaled
}

// Start subscribes to host messages, asks for the current mode flags and
// begins surface discovery. Background work stops with ctx.
func (p *Presenter) Start(ctx context.Context) error {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()

	p.mirror.Observe(func(modestate.Change) {
		// The host may have routed on its own; re-send unconditionally.
		p.controller.Reset()
		p.controller.Refresh()
	})

	applyChange := func(env ipc.Envelope) {
		if c, ok := ipc.ChangeFromEnvelope(env); ok {
			p.mirror.Apply(c)
		}
	}
	p.link.On(ipc.KindMovementModeChanged, applyChange)
	p.link.On(ipc.KindVisibilityChanged, applyChange)
	p.link.On(ipc.KindScaleChanged, applyChange)

	p.link.On(ipc.KindPointerMove, func(env ipc.Envelope) {
		var pt ipc.PointerPayload
		if err := env.Decode(&pt); err != nil {
			return
		}
		p.controller.OnPointerMove(surface.Point{X: pt.X, Y: pt.Y})
	})

	p.link.On(ipc.KindSettingsChanged, func(env ipc.Envelope) {
		var upd ipc.SettingsUpdate
		if err := env.Decode(&upd); err != nil {
			p.remoteLog("error", fmt.Sprintf("invalid settings update: %v", err))
			return
		}
		p.UpdateSettings(upd)
	})
	p.link.On(ipc.KindPlayAnimation, func(env ipc.Envelope) {
		var n ipc.NamePayload
		if env.Decode(&n) == nil && p.PlayAnimation(n.Name) {
			p.sendAnimationInfo()
		}
	})
	p.link.On(ipc.KindChangeSkin, func(env ipc.Envelope) {
		var n ipc.NamePayload
		if env.Decode(&n) == nil && p.ChangeSkin(n.Name) {
			p.sendAnimationInfo()
		}
	})
	p.link.On(ipc.KindStopAnimation, func(ipc.Envelope) { p.StopLoop() })
	p.link.On(ipc.KindRequestAnimationInfo, func(ipc.Envelope) { p.sendAnimationInfo() })

	// Late join: the flags may have changed before we connected.
	queries := []struct{ kind, reply ipc.Kind }{
		{ipc.KindGetMovementMode, ipc.KindMovementModeStatus},
		{ipc.KindGetVisibility, ipc.KindVisibilityStatus},
		{ipc.KindGetScale, ipc.KindCurrentScale},
	}
	for _, q := range queries {
		if err := p.link.Query(q.kind, q.reply, applyChange); err != nil {
			return fmt.Errorf("query %s: %w", q.kind, err)
		}
	}

	go func() {
		defer close(p.ready)
		if p.locator.Discover(ctx) {
			p.controller.Refresh()
		}
	}()

	if _, skin := p.player.Current(); skin == "" {
		p.ChangeSkin(p.Settings().DefaultSkin)
	}
	if p.Settings().AutoPlay {
		p.startLoop()
	}
	p.remoteLog("info", "presentation ready")
	return nil
}

// Ready is closed once surface discovery has finished, found or not.
func (p *Presenter) Ready() <-chan struct{} { return p.ready }

// Mirror exposes the mirrored mode state.
func (p *Presenter) Mirror() *modestate.Mirror { return p.mirror }

// Controller exposes the hit-test controller.
func (p *Presenter) Controller() *hittest.Controller { return p.controller }

// SetThreshold changes the opacity threshold and re-evaluates routing.
func (p *Presenter) SetThreshold(v uint8) {
	if p.sampler.Threshold() == v {
		return
	}
	p.sampler.SetThreshold(v)
	p.logger.Info("opacity threshold changed", "threshold", v)
	p.controller.Refresh()
}

func (p *Presenter) Settings() ipc.AnimationSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// UpdateSettings merges upd, then starts or stops autoplay to match.
func (p *Presenter) UpdateSettings(upd ipc.SettingsUpdate) {
	p.mu.Lock()
	merged, swapped := MergeSettings(p.settings, upd)
	p.settings = merged
	playing := p.loopCancel != nil
	p.mu.Unlock()

	if swapped {
		p.logger.Info("interval bounds swapped", "min_ms", merged.MinIntervalMS, "max_ms", merged.MaxIntervalMS)
	}
	p.logger.Info("settings updated", "settings", merged)

	switch {
	case merged.AutoPlay && !playing:
		p.startLoop()
	case !merged.AutoPlay && playing:
		p.StopLoop()
	}
}

// PlayAnimation plays name once or looped per the settings.
func (p *Presenter) PlayAnimation(name string) bool {
	if err := p.player.Play(name); err != nil {
		p.remoteLog("warn", err.Error())
		return false
	}
	p.logger.Debug("playing animation", "name", name, "loop", p.Settings().Loop)
	return true
}

func (p *Presenter) ChangeSkin(name string) bool {
	if err := p.player.SetSkin(name); err != nil {
		p.remoteLog("warn", err.Error())
		return false
	}
	p.logger.Debug("skin changed", "name", name)
	return true
}

// PlayRandom plays a random animation, avoiding a repeat when possible.
func (p *Presenter) PlayRandom() bool {
	current, _ := p.player.Current()
	p.mu.Lock()
	name, err := pickRandom(p.player.Animations(), current, p.rng)
	p.mu.Unlock()
	if err != nil {
		p.logger.Debug("nothing to play", "error", err)
		return false
	}
	return p.PlayAnimation(name)
}

// Playing reports whether the autoplay loop is running.
func (p *Presenter) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loopCancel != nil
}

// StopLoop stops autoplay and reports the new state to observers.
func (p *Presenter) StopLoop() {
	p.mu.Lock()
	cancel := p.loopCancel
	p.loopCancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.logger.Info("autoplay stopped")
	p.sendAnimationInfo()
}

func (p *Presenter) startLoop() {
	p.mu.Lock()
	if p.loopCancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(p.ctx)
	p.loopCancel = cancel
	p.mu.Unlock()

	p.logger.Info("autoplay started")
	go p.loop(ctx)
}

func (p *Presenter) loop(ctx context.Context) {
	timer := time.NewTimer(firstPlayDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !p.Settings().AutoPlay {
			p.StopLoop()
			return
		}
		p.PlayRandom()
		timer.Reset(p.nextInterval())
	}
}

// nextInterval picks a delay in [min, max) milliseconds.
func (p *Presenter) nextInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	lo, hi := p.settings.MinIntervalMS, p.settings.MaxIntervalMS
	ms := lo
	if hi > lo {
		ms += p.rng.IntN(hi - lo)
	}
	return time.Duration(ms) * time.Millisecond
}

// AnimationInfo describes the catalog and playback state.
func (p *Presenter) AnimationInfo() ipc.AnimationInfo {
	animation, skin := p.player.Current()
	return ipc.AnimationInfo{
		Animations:       p.player.Animations(),
		Skins:            p.player.Skins(),
		CurrentAnimation: animation,
		CurrentSkin:      skin,
		Settings:         p.Settings(),
		Playing:          p.Playing(),
	}
}

func (p *Presenter) sendAnimationInfo() {
	if err := p.link.Send(ipc.KindAnimationInfo, p.AnimationInfo()); err != nil && !errors.Is(err, ipc.ErrClosed) {
		p.logger.Debug("animation info not sent", "error", err)
	}
}

// remoteLog logs locally and mirrors the line into the host's log.
func (p *Presenter) remoteLog(level, msg string) {
	lvl, _ := logging.ParseLevel(level)
	p.logger.Log(context.Background(), lvl, msg)
	_ = p.link.Send(ipc.KindLog, ipc.LogPayload{Level: level, Message: msg})
}
