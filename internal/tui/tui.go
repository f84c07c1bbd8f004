// Package tui implements the terminal control panel for a running host.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/deskpet/internal/ipc"
)

// Run starts the panel and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, link Link) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("panel requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(link), tea.WithAltScreen(), tea.WithContext(ctx))

	if err := subscribe(link, p.Send); err != nil {
		return err
	}
	go func() {
		select {
		case <-link.Done():
			p.Send(disconnectedMsg{})
		case <-ctx.Done():
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// subscribe turns host pushes into panel messages and asks for the state a
// late-joining observer missed.
func subscribe(link Link, send func(tea.Msg)) error {
	onChange := func(env ipc.Envelope) {
		if c, ok := ipc.ChangeFromEnvelope(env); ok {
			send(changeMsg(c))
		}
	}
	link.On(ipc.KindMovementModeChanged, onChange)
	link.On(ipc.KindVisibilityChanged, onChange)
	link.On(ipc.KindScaleChanged, onChange)

	onInfo := func(env ipc.Envelope) {
		var info ipc.AnimationInfo
		if env.Decode(&info) == nil {
			send(infoMsg(info))
		}
	}
	link.On(ipc.KindAnimationInfo, onInfo)

	err := link.Query(ipc.KindGetState, ipc.KindState, func(env ipc.Envelope) {
		var st stateMsg
		if env.Decode(&st) == nil {
			send(st)
		}
	})
	if err != nil {
		return fmt.Errorf("query state: %w", err)
	}
	if err := link.Send(ipc.KindRequestAnimationInfo, nil); err != nil {
		return fmt.Errorf("request animation info: %w", err)
	}
	return nil
}
