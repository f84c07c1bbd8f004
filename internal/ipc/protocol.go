package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/deskpet/internal/modestate"
)

// Kind tags every envelope on the wire.
type Kind string

const (
	KindHello Kind = "hello"

	// Presentation/control -> host.
	KindReposition         Kind = "reposition"
	KindRequestRouting     Kind = "request-routing"
	KindToggleMovementMode Kind = "toggle-movement-mode"
	KindToggleVisibility   Kind = "toggle-visibility"
	KindSetScale           Kind = "set-scale"
	KindLog                Kind = "log"
	KindQuit               Kind = "quit"

	// Queries and their replies. A reply goes only to the asking peer.
	KindGetMovementMode    Kind = "get-movement-mode"
	KindMovementModeStatus Kind = "movement-mode-status"
	KindGetVisibility      Kind = "get-visibility"
	KindVisibilityStatus   Kind = "visibility-status"
	KindGetScale           Kind = "get-scale"
	KindCurrentScale       Kind = "current-scale"
	KindGetState           Kind = "get-state"
	KindState              Kind = "state"

	// Host -> every peer after a mutation.
	KindMovementModeChanged Kind = "movement-mode-changed"
	KindVisibilityChanged   Kind = "visibility-changed"
	KindScaleChanged        Kind = "scale-changed"

	// Host -> presentation.
	KindPointerMove Kind = "pointer-move"

	// Animation relay: control -> host -> presentation and back.
	KindRequestAnimationInfo Kind = "request-animation-info"
	KindAnimationInfo        Kind = "animation-info"
	KindPlayAnimation        Kind = "play-animation"
	KindChangeSkin           Kind = "change-skin"
	KindStopAnimation        Kind = "stop-animation"
	KindUpdateSettings       Kind = "update-settings"
	KindSettingsChanged      Kind = "settings-changed"
)

// Role identifies what a connected peer is.
type Role string

const (
	RolePresentation Role = "presentation"
	RoleControl      Role = "control"
)

// Envelope is one newline-delimited JSON message.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload (which may be nil) into an envelope.
func NewEnvelope(kind Kind, payload any) (Envelope, error) {
	env := Envelope{Kind: kind}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
		}
		env.Payload = data
	}
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", e.Kind, err)
	}
	return nil
}

// ParseEnvelope parses one line of wire data.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if env.Kind == "" {
		return Envelope{}, fmt.Errorf("envelope has no kind")
	}
	return env, nil
}

type HelloPayload struct {
	Role Role `json:"role"`
}

// RepositionMode selects how the host moves the window.
type RepositionMode string

const (
	RepositionRandom RepositionMode = "random"
	RepositionCenter RepositionMode = "center"
	RepositionCorner RepositionMode = "corner"
)

type RepositionPayload struct {
	Mode   RepositionMode `json:"mode"`
	Corner string         `json:"corner,omitempty"`
}

type RoutingPayload struct {
	Ignore  bool `json:"ignore"`
	Forward bool `json:"forward"`
}

type MovementModePayload struct {
	Enabled bool `json:"enabled"`
}

type VisibilityPayload struct {
	Visible bool `json:"visible"`
}

type ScalePayload struct {
	Value float64 `json:"value"`
}

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type NamePayload struct {
	Name string `json:"name"`
}

type LogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AnimationSettings are the playback settings owned by the presentation.
type AnimationSettings struct {
	MinIntervalMS int    `json:"min_interval_ms"`
	MaxIntervalMS int    `json:"max_interval_ms"`
	Loop          bool   `json:"loop"`
	AutoPlay      bool   `json:"auto_play"`
	DefaultSkin   string `json:"default_skin"`
}

// SettingsUpdate is a partial AnimationSettings; nil fields are unchanged.
type SettingsUpdate struct {
	MinIntervalMS *int    `json:"min_interval_ms,omitempty"`
	MaxIntervalMS *int    `json:"max_interval_ms,omitempty"`
	Loop          *bool   `json:"loop,omitempty"`
	AutoPlay      *bool   `json:"auto_play,omitempty"`
	DefaultSkin   *string `json:"default_skin,omitempty"`
}

// AnimationInfo answers request-animation-info for late-joining observers.
type AnimationInfo struct {
	Animations       []string          `json:"animations"`
	Skins            []string          `json:"skins"`
	CurrentAnimation string            `json:"current_animation"`
	CurrentSkin      string            `json:"current_skin"`
	Settings         AnimationSettings `json:"settings"`
	Playing          bool              `json:"playing"`
}

// ChangeEnvelope builds the broadcast envelope for a mode change.
func ChangeEnvelope(c modestate.Change) (Envelope, error) {
	switch c.Flag {
	case modestate.FlagMovementMode:
		return NewEnvelope(KindMovementModeChanged, MovementModePayload{Enabled: c.State.MovementMode})
	case modestate.FlagVisible:
		return NewEnvelope(KindVisibilityChanged, VisibilityPayload{Visible: c.State.Visible})
	case modestate.FlagScale:
		return NewEnvelope(KindScaleChanged, ScalePayload{Value: c.State.Scale})
	default:
		return Envelope{}, fmt.Errorf("unknown flag %q", c.Flag)
	}
}

// ChangeFromEnvelope converts a pushed change or a query reply into a
// single-flag change. ok is false for unrelated or malformed envelopes.
func ChangeFromEnvelope(env Envelope) (c modestate.Change, ok bool) {
	switch env.Kind {
	case KindMovementModeChanged, KindMovementModeStatus:
		var p MovementModePayload
		if env.Decode(&p) != nil {
			return c, false
		}
		c.Flag = modestate.FlagMovementMode
		c.State.MovementMode = p.Enabled
	case KindVisibilityChanged, KindVisibilityStatus:
		var p VisibilityPayload
		if env.Decode(&p) != nil {
			return c, false
		}
		c.Flag = modestate.FlagVisible
		c.State.Visible = p.Visible
	case KindScaleChanged, KindCurrentScale:
		var p ScalePayload
		if env.Decode(&p) != nil {
			return c, false
		}
		c.Flag = modestate.FlagScale
		c.State.Scale = p.Value
	default:
		return c, false
	}
	return c, true
}
