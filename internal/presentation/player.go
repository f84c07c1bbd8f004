package presentation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
)

var (
	ErrUnknownAnimation = errors.New("unknown animation")
	ErrUnknownSkin      = errors.New("unknown skin")
	ErrNoAnimations     = errors.New("no animations available")
)

// Player is the animation runtime the presenter drives.
type Player interface {
	Animations() []string
	Skins() []string
	Play(name string) error
	SetSkin(name string) error
	Current() (animation, skin string)
}

// CatalogPlayer is a Player over a fixed list of animation and skin names.
// It tracks what is selected; drawing is left to the renderer.
type CatalogPlayer struct {
	mu         sync.Mutex
	animations []string
	skins      []string
	animation  string
	skin       string
}

var _ Player = (*CatalogPlayer)(nil)

// NewCatalogPlayer selects defaultSkin when the catalog has it.
func NewCatalogPlayer(animations, skins []string, defaultSkin string) *CatalogPlayer {
	p := &CatalogPlayer{
		animations: slices.Clone(animations),
		skins:      slices.Clone(skins),
	}
	if slices.Contains(p.skins, defaultSkin) {
		p.skin = defaultSkin
	}
	return p
}

func (p *CatalogPlayer) Animations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.animations)
}

func (p *CatalogPlayer) Skins() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.skins)
}

func (p *CatalogPlayer) Play(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !slices.Contains(p.animations, name) {
		return fmt.Errorf("%w: %q", ErrUnknownAnimation, name)
	}
	p.animation = name
	return nil
}

func (p *CatalogPlayer) SetSkin(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !slices.Contains(p.skins, name) {
		return fmt.Errorf("%w: %q", ErrUnknownSkin, name)
	}
	p.skin = name
	return nil
}

func (p *CatalogPlayer) Current() (string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.animation, p.skin
}

// pickRandom chooses an animation, preferring one other than current.
func pickRandom(animations []string, current string, rng *rand.Rand) (string, error) {
	switch len(animations) {
	case 0:
		return "", ErrNoAnimations
	case 1:
		return animations[0], nil
	}
	for i := 0; i < 10; i++ {
		candidate := animations[rng.IntN(len(animations))]
		if candidate != current {
			return candidate, nil
		}
	}
	return animations[rng.IntN(len(animations))], nil
}
