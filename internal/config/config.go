package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/deskpet/internal/logging"
	"github.com/1broseidon/deskpet/internal/retry"
)

// Bounds shared with the presentation settings validation.
const (
	MinIntervalFloorMS   = 1000
	MaxIntervalCeilingMS = 300000
	DefaultMinIntervalMS = 3000
	DefaultMaxIntervalMS = 12000
	DefaultSkin          = "Normal"
)

// HotkeysConfig holds the global shortcut bindings, in xgbutil keybind syntax.
type HotkeysConfig struct {
	MovementMode string `yaml:"movement_mode"`
	Visibility   string `yaml:"visibility"`
}

// WindowConfig identifies the overlay window and its placement defaults.
type WindowConfig struct {
	Class        string `yaml:"class"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	CornerMargin int    `yaml:"corner_margin"`
}

type HitTestConfig struct {
	// OpacityThreshold is the alpha value a texel must exceed to capture input.
	OpacityThreshold int `yaml:"opacity_threshold"`
	PointerPollMS    int `yaml:"pointer_poll_ms"`
}

// DiscoveryConfig bounds how long the presentation looks for its surface.
type DiscoveryConfig struct {
	Attempts  int `yaml:"attempts"`
	BackoffMS int `yaml:"backoff_ms"`
}

type PresentationConfig struct {
	Frame         string   `yaml:"frame,omitempty"`
	PixelRatio    float64  `yaml:"pixel_ratio"`
	Animations    []string `yaml:"animations"`
	Skins         []string `yaml:"skins"`
	DefaultSkin   string   `yaml:"default_skin"`
	MinIntervalMS int      `yaml:"min_interval_ms"`
	MaxIntervalMS int      `yaml:"max_interval_ms"`
	Loop          bool     `yaml:"loop"`
	AutoPlay      bool     `yaml:"auto_play"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full deskpet configuration.
type Config struct {
	Display      string             `yaml:"display,omitempty"`
	Hotkeys      HotkeysConfig      `yaml:"hotkeys"`
	Window       WindowConfig       `yaml:"window"`
	HitTest      HitTestConfig      `yaml:"hit_test"`
	Discovery    DiscoveryConfig    `yaml:"discovery"`
	Presentation PresentationConfig `yaml:"presentation"`
	Logging      LoggingConfig      `yaml:"logging"`
}

func DefaultConfig() *Config {
	return &Config{
		Hotkeys: HotkeysConfig{
			MovementMode: "Mod1-m",
			Visibility:   "Mod1-h",
		},
		Window: WindowConfig{
			Class:        "deskpet",
			Width:        500,
			Height:       500,
			CornerMargin: 20,
		},
		HitTest: HitTestConfig{
			OpacityThreshold: 10,
			PointerPollMS:    16,
		},
		Discovery: DiscoveryConfig{
			Attempts:  3,
			BackoffMS: 1000,
		},
		Presentation: PresentationConfig{
			PixelRatio:    1,
			Animations:    []string{"Idle", "Wave", "Jump", "Sleep"},
			Skins:         []string{DefaultSkin},
			DefaultSkin:   DefaultSkin,
			MinIntervalMS: DefaultMinIntervalMS,
			MaxIntervalMS: DefaultMaxIntervalMS,
			Loop:          true,
			AutoPlay:      true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// PollInterval returns the pointer tracker period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.HitTest.PointerPollMS) * time.Millisecond
}

// DiscoveryPolicy returns the surface discovery retry policy.
func (c *Config) DiscoveryPolicy() retry.Policy {
	return retry.Policy{
		Attempts: c.Discovery.Attempts,
		Backoff:  time.Duration(c.Discovery.BackoffMS) * time.Millisecond,
	}
}

// Threshold returns the opacity threshold as an alpha value.
func (c *Config) Threshold() uint8 {
	return uint8(c.HitTest.OpacityThreshold)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Hotkeys.MovementMode) == "" {
		return &ValidationError{Path: "hotkeys.movement_mode", Err: fmt.Errorf("hotkey is required")}
	}
	if strings.TrimSpace(c.Hotkeys.Visibility) == "" {
		return &ValidationError{Path: "hotkeys.visibility", Err: fmt.Errorf("hotkey is required")}
	}
	if strings.EqualFold(c.Hotkeys.MovementMode, c.Hotkeys.Visibility) {
		return &ValidationError{Path: "hotkeys.visibility", Err: fmt.Errorf("hotkey %q is already bound to movement_mode", c.Hotkeys.Visibility)}
	}

	if strings.TrimSpace(c.Window.Class) == "" {
		return &ValidationError{Path: "window.class", Err: fmt.Errorf("class is required")}
	}
	if c.Window.Width <= 0 {
		return &ValidationError{Path: "window.width", Err: fmt.Errorf("width must be > 0")}
	}
	if c.Window.Height <= 0 {
		return &ValidationError{Path: "window.height", Err: fmt.Errorf("height must be > 0")}
	}
	if c.Window.CornerMargin < 0 {
		return &ValidationError{Path: "window.corner_margin", Err: fmt.Errorf("corner_margin must be >= 0")}
	}

	if c.HitTest.OpacityThreshold < 0 || c.HitTest.OpacityThreshold > 254 {
		return &ValidationError{Path: "hit_test.opacity_threshold", Err: fmt.Errorf("opacity_threshold must be within [0, 254]")}
	}
	if c.HitTest.PointerPollMS < 1 || c.HitTest.PointerPollMS > 1000 {
		return &ValidationError{Path: "hit_test.pointer_poll_ms", Err: fmt.Errorf("pointer_poll_ms must be within [1, 1000]")}
	}

	if c.Discovery.Attempts < 1 {
		return &ValidationError{Path: "discovery.attempts", Err: fmt.Errorf("attempts must be >= 1")}
	}
	if c.Discovery.BackoffMS < 0 {
		return &ValidationError{Path: "discovery.backoff_ms", Err: fmt.Errorf("backoff_ms must be >= 0")}
	}

	p := c.Presentation
	if math.IsNaN(p.PixelRatio) || p.PixelRatio <= 0 || p.PixelRatio > 8 {
		return &ValidationError{Path: "presentation.pixel_ratio", Err: fmt.Errorf("pixel_ratio must be within (0, 8]")}
	}
	if p.MinIntervalMS < MinIntervalFloorMS || p.MinIntervalMS > MaxIntervalCeilingMS {
		return &ValidationError{Path: "presentation.min_interval_ms", Err: fmt.Errorf("min_interval_ms must be within [%d, %d]", MinIntervalFloorMS, MaxIntervalCeilingMS)}
	}
	if p.MaxIntervalMS < MinIntervalFloorMS || p.MaxIntervalMS > MaxIntervalCeilingMS {
		return &ValidationError{Path: "presentation.max_interval_ms", Err: fmt.Errorf("max_interval_ms must be within [%d, %d]", MinIntervalFloorMS, MaxIntervalCeilingMS)}
	}
	for i, name := range p.Animations {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Path: fmt.Sprintf("presentation.animations[%d]", i), Err: fmt.Errorf("animation name must not be empty")}
		}
	}
	if len(p.Skins) > 0 && !contains(p.Skins, p.DefaultSkin) {
		return &ValidationError{Path: "presentation.default_skin", Err: fmt.Errorf("default_skin %q not found in skins", p.DefaultSkin)}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return &ValidationError{Path: "logging.level", Err: err}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("format must be one of: text, json")}
	}
	return nil
}

// Save writes the configuration to the standard location.
//
// Note: comments in an existing file are not preserved.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
