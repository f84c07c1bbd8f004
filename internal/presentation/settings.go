package presentation

import (
	"github.com/1broseidon/deskpet/internal/config"
	"github.com/1broseidon/deskpet/internal/ipc"
)

// DefaultSettings returns the playback settings used before any update.
func DefaultSettings() ipc.AnimationSettings {
	return ipc.AnimationSettings{
		MinIntervalMS: config.DefaultMinIntervalMS,
		MaxIntervalMS: config.DefaultMaxIntervalMS,
		Loop:          true,
		AutoPlay:      true,
		DefaultSkin:   config.DefaultSkin,
	}
}

// SettingsFromConfig builds validated settings from the presentation config.
func SettingsFromConfig(c config.PresentationConfig) ipc.AnimationSettings {
	s, _ := Validate(ipc.AnimationSettings{
		MinIntervalMS: c.MinIntervalMS,
		MaxIntervalMS: c.MaxIntervalMS,
		Loop:          c.Loop,
		AutoPlay:      c.AutoPlay,
		DefaultSkin:   c.DefaultSkin,
	})
	return s
}

// MergeSettings overlays upd on cur and validates the result.
func MergeSettings(cur ipc.AnimationSettings, upd ipc.SettingsUpdate) (ipc.AnimationSettings, bool) {
	if upd.MinIntervalMS != nil {
		cur.MinIntervalMS = *upd.MinIntervalMS
	}
	if upd.MaxIntervalMS != nil {
		cur.MaxIntervalMS = *upd.MaxIntervalMS
	}
	if upd.Loop != nil {
		cur.Loop = *upd.Loop
	}
	if upd.AutoPlay != nil {
		cur.AutoPlay = *upd.AutoPlay
	}
	if upd.DefaultSkin != nil && *upd.DefaultSkin != "" {
		cur.DefaultSkin = *upd.DefaultSkin
	}
	return Validate(cur)
}

// Validate resets out-of-range intervals to their defaults and swaps them
// when min >= max. swapped reports the swap.
func Validate(s ipc.AnimationSettings) (out ipc.AnimationSettings, swapped bool) {
	s.MinIntervalMS = inRange(s.MinIntervalMS, config.DefaultMinIntervalMS)
	s.MaxIntervalMS = inRange(s.MaxIntervalMS, config.DefaultMaxIntervalMS)
	if s.MinIntervalMS >= s.MaxIntervalMS {
		s.MinIntervalMS, s.MaxIntervalMS = s.MaxIntervalMS, s.MinIntervalMS
		swapped = true
	}
	if s.DefaultSkin == "" {
		s.DefaultSkin = config.DefaultSkin
	}
	return s, swapped
}

func inRange(v, def int) int {
	if v < config.MinIntervalFloorMS || v > config.MaxIntervalCeilingMS {
		return def
	}
	return v
}
