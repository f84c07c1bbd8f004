package mcp

import (
	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/modestate"
)

// GetStateInput is the input for the get_state tool.
type GetStateInput struct {
	IncludeAnimations bool `json:"include_animations,omitempty" jsonschema:"Also ask the presentation for its animation catalog and playback settings (fails when no presentation is connected)"`
}

// StateOutput is the mascot state returned by get_state and the mode tools.
type StateOutput struct {
	MovementMode bool               `json:"movement_mode"`
	Visible      bool               `json:"visible"`
	Scale        float64            `json:"scale"`
	Animation    *ipc.AnimationInfo `json:"animation,omitempty"`
}

func stateOutput(s modestate.State) StateOutput {
	return StateOutput{MovementMode: s.MovementMode, Visible: s.Visible, Scale: s.Scale}
}

// ToggleInput is the input for toggle_movement_mode and toggle_visibility.
type ToggleInput struct{}

// SetScaleInput is the input for the set_scale tool.
type SetScaleInput struct {
	Value float64 `json:"value" jsonschema:"New scale factor; values outside 0.3-1.0 are clamped"`
}

// RepositionInput is the input for the reposition tool.
type RepositionInput struct {
	Mode   string `json:"mode" jsonschema:"One of random, center or corner"`
	Corner string `json:"corner,omitempty" jsonschema:"Corner for mode=corner: top-left, top-right, bottom-left or bottom-right"`
}

// RepositionOutput is the output for the reposition tool.
type RepositionOutput struct {
	Requested bool `json:"requested"`
}

// NameInput is the input for play_animation and change_skin.
type NameInput struct {
	Name string `json:"name" jsonschema:"Animation or skin name as listed by get_state with include_animations"`
}

// AnimationOutput is the presentation's animation info after a command.
type AnimationOutput struct {
	Info ipc.AnimationInfo `json:"info"`
}
