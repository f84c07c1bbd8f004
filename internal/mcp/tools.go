package mcp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/modestate"
)

var validCorners = []string{"top-left", "top-right", "bottom-left", "bottom-right"}

func (s *Server) handleGetState(ctx context.Context, _ *mcpsdk.CallToolRequest, args GetStateInput) (*mcpsdk.CallToolResult, StateOutput, error) {
	env, err := s.call(ctx, ipc.KindGetState, nil, ipc.KindState)
	if err != nil {
		return nil, StateOutput{}, s.hostError("get_state", err)
	}
	var st modestate.State
	if err := env.Decode(&st); err != nil {
		return nil, StateOutput{}, err
	}
	out := stateOutput(st)

	if args.IncludeAnimations {
		info, err := s.animationInfo(ctx)
		if err != nil {
			return nil, StateOutput{}, err
		}
		out.Animation = &info
	}
	return nil, out, nil
}

func (s *Server) handleToggleMovementMode(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ToggleInput) (*mcpsdk.CallToolResult, StateOutput, error) {
	return s.mutate(ctx, "toggle_movement_mode", ipc.KindToggleMovementMode, nil, ipc.KindMovementModeChanged)
}

func (s *Server) handleToggleVisibility(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ToggleInput) (*mcpsdk.CallToolResult, StateOutput, error) {
	return s.mutate(ctx, "toggle_visibility", ipc.KindToggleVisibility, nil, ipc.KindVisibilityChanged)
}

func (s *Server) handleSetScale(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetScaleInput) (*mcpsdk.CallToolResult, StateOutput, error) {
	if math.IsNaN(args.Value) || math.IsInf(args.Value, 0) {
		return nil, StateOutput{}, fmt.Errorf("scale must be a finite number")
	}
	return s.mutate(ctx, "set_scale", ipc.KindSetScale, ipc.ScalePayload{Value: args.Value}, ipc.KindScaleChanged)
}

// mutate sends a state command, waits for its broadcast, then reads back the
// full state so the caller sees every flag.
func (s *Server) mutate(ctx context.Context, tool string, kind ipc.Kind, payload any, changedKind ipc.Kind) (*mcpsdk.CallToolResult, StateOutput, error) {
	if _, err := s.call(ctx, kind, payload, changedKind); err != nil {
		return nil, StateOutput{}, s.hostError(tool, err)
	}
	s.logger.Info("mcp command applied", "tool", tool)

	env, err := s.call(ctx, ipc.KindGetState, nil, ipc.KindState)
	if err != nil {
		return nil, StateOutput{}, s.hostError(tool, err)
	}
	var st modestate.State
	if err := env.Decode(&st); err != nil {
		return nil, StateOutput{}, err
	}
	return nil, stateOutput(st), nil
}

func (s *Server) handleReposition(_ context.Context, _ *mcpsdk.CallToolRequest, args RepositionInput) (*mcpsdk.CallToolResult, RepositionOutput, error) {
	req := ipc.RepositionPayload{Mode: ipc.RepositionMode(strings.ToLower(strings.TrimSpace(args.Mode)))}
	switch req.Mode {
	case ipc.RepositionRandom, ipc.RepositionCenter:
	case ipc.RepositionCorner:
		req.Corner = strings.ToLower(strings.TrimSpace(args.Corner))
		if !slices.Contains(validCorners, req.Corner) {
			return nil, RepositionOutput{}, fmt.Errorf("unknown corner %q (want one of %s)", args.Corner, strings.Join(validCorners, ", "))
		}
	default:
		return nil, RepositionOutput{}, fmt.Errorf("unknown mode %q (want random, center or corner)", args.Mode)
	}

	if err := s.link.Send(ipc.KindReposition, req); err != nil {
		return nil, RepositionOutput{}, s.hostError("reposition", err)
	}
	s.logger.Info("mcp reposition requested", "mode", req.Mode, "corner", req.Corner)
	return nil, RepositionOutput{Requested: true}, nil
}

func (s *Server) handlePlayAnimation(ctx context.Context, _ *mcpsdk.CallToolRequest, args NameInput) (*mcpsdk.CallToolResult, AnimationOutput, error) {
	return s.animationCommand(ctx, "play_animation", ipc.KindPlayAnimation, args.Name, func(info ipc.AnimationInfo) string {
		return info.CurrentAnimation
	})
}

func (s *Server) handleChangeSkin(ctx context.Context, _ *mcpsdk.CallToolRequest, args NameInput) (*mcpsdk.CallToolResult, AnimationOutput, error) {
	return s.animationCommand(ctx, "change_skin", ipc.KindChangeSkin, args.Name, func(info ipc.AnimationInfo) string {
		return info.CurrentSkin
	})
}

// animationCommand relays a named command to the presentation and checks the
// animation info that follows it. The presentation processes messages in
// order, so the info reflects the command.
func (s *Server) animationCommand(ctx context.Context, tool string, kind ipc.Kind, name string, current func(ipc.AnimationInfo) string) (*mcpsdk.CallToolResult, AnimationOutput, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, AnimationOutput{}, fmt.Errorf("name is required")
	}
	if err := s.link.Send(kind, ipc.NamePayload{Name: name}); err != nil {
		return nil, AnimationOutput{}, s.hostError(tool, err)
	}

	info, err := s.animationInfo(ctx)
	if err != nil {
		return nil, AnimationOutput{}, err
	}
	if current(info) != name {
		return nil, AnimationOutput{Info: info}, fmt.Errorf("%s: presentation did not accept %q", tool, name)
	}
	return nil, AnimationOutput{Info: info}, nil
}

func (s *Server) animationInfo(ctx context.Context) (ipc.AnimationInfo, error) {
	env, err := s.call(ctx, ipc.KindRequestAnimationInfo, nil, ipc.KindAnimationInfo)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ipc.AnimationInfo{}, fmt.Errorf("no animation info within %s; is the presentation running?", s.timeout)
		}
		return ipc.AnimationInfo{}, s.hostError("animation info", err)
	}
	var info ipc.AnimationInfo
	if err := env.Decode(&info); err != nil {
		return ipc.AnimationInfo{}, err
	}
	// The output schema types these as arrays, which rejects null.
	if info.Animations == nil {
		info.Animations = []string{}
	}
	if info.Skins == nil {
		info.Skins = []string{}
	}
	return info, nil
}

func (s *Server) hostError(op string, err error) error {
	s.logger.Warn("mcp host call failed", "op", op, "error", err)
	if errors.Is(err, ipc.ErrClosed) {
		return fmt.Errorf("%s: host connection closed; is deskpet host running?", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
