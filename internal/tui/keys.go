package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Nudge    [4]key.Binding // up, down, left, right
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Reset    key.Binding
	Deselect key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan down")),
		Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
		Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
		Nudge: [4]key.Binding{
			key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("⇧↑/K", "move selection up")),
			key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("⇧↓/J", "move selection down")),
			key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("⇧←/H", "move selection left")),
			key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("⇧→/L", "move selection right")),
		},
		ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
		Reset:    key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset view")),
		Deselect: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "deselect")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Reset, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		k.Nudge[:],
		{k.ZoomIn, k.ZoomOut, k.Reset},
		{k.Deselect, k.Help, k.Quit},
	}
}

func matches(msg tea.KeyMsg, b key.Binding) bool {
	return key.Matches(msg, b)
}
