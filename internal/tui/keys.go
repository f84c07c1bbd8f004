package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Movement   key.Binding
	Visibility key.Binding
	ScaleUp    key.Binding
	ScaleDown  key.Binding
	Center     key.Binding
	Random     key.Binding
	Corner     key.Binding
	Prev       key.Binding
	Next       key.Binding
	Play       key.Binding
	Stop       key.Binding
	Skin       key.Binding
	AutoPlay   key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Movement: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "movement mode"),
		),
		Visibility: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "show/hide"),
		),
		ScaleUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "grow"),
		),
		ScaleDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "shrink"),
		),
		Center: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "center"),
		),
		Random: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "random spot"),
		),
		Corner: key.NewBinding(
			key.WithKeys("1", "2", "3", "4"),
			key.WithHelp("1-4", "corner"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "k"),
			key.WithHelp("←", "prev animation"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "j"),
			key.WithHelp("→", "next animation"),
		),
		Play: key.NewBinding(
			key.WithKeys("enter", "p"),
			key.WithHelp("enter", "play"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop loop"),
		),
		Skin: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "next skin"),
		),
		AutoPlay: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "autoplay"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Movement, k.Visibility, k.ScaleUp, k.ScaleDown, k.Play, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Movement, k.Visibility, k.ScaleUp, k.ScaleDown},
		{k.Center, k.Random, k.Corner},
		{k.Prev, k.Next, k.Play, k.Stop},
		{k.Skin, k.AutoPlay, k.Help, k.Quit},
	}
}

var cornerKeys = map[string]string{
	"1": "top-left",
	"2": "top-right",
	"3": "bottom-left",
	"4": "bottom-right",
}
