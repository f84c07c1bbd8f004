package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskpet/internal/ipc"
	"github.com/1broseidon/deskpet/internal/modestate"
)

// ScaleStep is how much one grow/shrink key press changes the scale.
const ScaleStep = 0.1

// Link is the panel's connection to the host.
type Link interface {
	Send(kind ipc.Kind, payload any) error
	On(kind ipc.Kind, fn func(ipc.Envelope))
	Query(kind, replyKind ipc.Kind, fn func(ipc.Envelope)) error
	Done() <-chan struct{}
}

type (
	stateMsg        modestate.State
	changeMsg       modestate.Change
	infoMsg         ipc.AnimationInfo
	disconnectedMsg struct{}
)

// model is the bubbletea model for the control panel.
type model struct {
	link Link
	keys keyMap
	help help.Model

	state     modestate.State
	haveState bool
	info      ipc.AnimationInfo
	haveInfo  bool
	selected  int

	connected bool
	lastError string

	width  int
	height int
}

func newModel(link Link) model {
	return model{
		link:      link,
		keys:      defaultKeyMap(),
		help:      help.New(),
		state:     modestate.Default(),
		connected: true,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case stateMsg:
		m.state = modestate.State(msg)
		m.haveState = true
		return m, nil

	case changeMsg:
		if next, ok := m.state.With(modestate.Change(msg)); ok {
			m.state = next
			m.haveState = true
		}
		return m, nil

	case infoMsg:
		m.info = ipc.AnimationInfo(msg)
		m.haveInfo = true
		m.selected = m.indexOf(m.info.CurrentAnimation)
		return m, nil

	case disconnectedMsg:
		m.connected = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if !m.connected {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Movement):
		m.send(ipc.KindToggleMovementMode, nil)
	case key.Matches(msg, m.keys.Visibility):
		m.send(ipc.KindToggleVisibility, nil)
	case key.Matches(msg, m.keys.ScaleUp):
		m.send(ipc.KindSetScale, ipc.ScalePayload{Value: stepScale(m.state.Scale, ScaleStep)})
	case key.Matches(msg, m.keys.ScaleDown):
		m.send(ipc.KindSetScale, ipc.ScalePayload{Value: stepScale(m.state.Scale, -ScaleStep)})
	case key.Matches(msg, m.keys.Center):
		m.send(ipc.KindReposition, ipc.RepositionPayload{Mode: ipc.RepositionCenter})
	case key.Matches(msg, m.keys.Random):
		m.send(ipc.KindReposition, ipc.RepositionPayload{Mode: ipc.RepositionRandom})
	case key.Matches(msg, m.keys.Corner):
		m.send(ipc.KindReposition, ipc.RepositionPayload{
			Mode:   ipc.RepositionCorner,
			Corner: cornerKeys[msg.String()],
		})
	case key.Matches(msg, m.keys.Prev):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Next):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Play):
		if name, ok := m.selectedAnimation(); ok {
			m.send(ipc.KindPlayAnimation, ipc.NamePayload{Name: name})
		}
	case key.Matches(msg, m.keys.Stop):
		m.send(ipc.KindStopAnimation, nil)
	case key.Matches(msg, m.keys.Skin):
		if skin, ok := m.nextSkin(); ok {
			m.send(ipc.KindChangeSkin, ipc.NamePayload{Name: skin})
		}
	case key.Matches(msg, m.keys.AutoPlay):
		if m.haveInfo {
			on := !m.info.Settings.AutoPlay
			m.send(ipc.KindUpdateSettings, ipc.SettingsUpdate{AutoPlay: &on})
		}
	}
	return m, nil
}

// send issues a fire-and-forget command; the host pushes the result back.
func (m *model) send(kind ipc.Kind, payload any) {
	if err := m.link.Send(kind, payload); err != nil {
		m.lastError = fmt.Sprintf("%s: %v", kind, err)
		return
	}
	m.lastError = ""
}

func (m *model) moveSelection(delta int) {
	n := len(m.info.Animations)
	if n == 0 {
		return
	}
	m.selected = ((m.selected+delta)%n + n) % n
}

func (m model) selectedAnimation() (string, bool) {
	if m.selected < 0 || m.selected >= len(m.info.Animations) {
		return "", false
	}
	return m.info.Animations[m.selected], true
}

func (m model) nextSkin() (string, bool) {
	skins := m.info.Skins
	if len(skins) == 0 {
		return "", false
	}
	for i, s := range skins {
		if s == m.info.CurrentSkin {
			return skins[(i+1)%len(skins)], true
		}
	}
	return skins[0], true
}

func (m model) indexOf(name string) int {
	for i, a := range m.info.Animations {
		if a == name {
			return i
		}
	}
	if m.selected < len(m.info.Animations) {
		return m.selected
	}
	return 0
}

// stepScale rounds to one decimal so repeated steps land on clean values.
func stepScale(cur, delta float64) float64 {
	return modestate.ClampScale(math.Round((cur+delta)*10) / 10)
}

// View implements tea.Model.
func (m model) View() string {
	width := m.width
	if width == 0 {
		width = 60
	}

	status := renderStatusBar(m.connected, width)
	state := renderState(m.state, m.haveState)
	anims := renderAnimations(m.info, m.haveInfo, m.selected)

	sections := []string{status, "", state, "", anims}
	if m.lastError != "" {
		sections = append(sections, "", errorStyle.Render(m.lastError))
	}
	sections = append(sections, "", helpBarStyle.Width(width).Render(m.help.View(m.keys)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderState(s modestate.State, known bool) string {
	if !known {
		return mutedStyle.Render("  waiting for host state...")
	}
	rows := []string{
		sectionStyle.Render("Mascot"),
		row("movement mode", onOff(s.MovementMode)),
		row("visible", onOff(s.Visible)),
		row("scale", fmt.Sprintf("%.2f", s.Scale)),
	}
	return strings.Join(rows, "\n")
}

func renderAnimations(info ipc.AnimationInfo, known bool, selected int) string {
	if !known {
		return mutedStyle.Render("  no animation info (is the presentation running?)")
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Animations"))
	b.WriteString("\n")
	for i, name := range info.Animations {
		line := "  " + name
		if name == info.CurrentAnimation {
			line += " ♪"
		}
		if i == selected {
			line = selectedStyle.Render("> " + strings.TrimPrefix(line, "  "))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(row("skin", info.CurrentSkin))
	b.WriteString("\n")
	b.WriteString(row("autoplay", onOff(info.Settings.AutoPlay)))
	b.WriteString("\n")
	b.WriteString(row("interval", fmt.Sprintf("%d-%d ms", info.Settings.MinIntervalMS, info.Settings.MaxIntervalMS)))
	return b.String()
}

func row(label, value string) string {
	return "  " + labelStyle.Render(label) + valueStyle.Render(value)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
