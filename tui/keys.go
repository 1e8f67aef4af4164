package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Pole   [3]key.Binding
	Cancel key.Binding
	New    key.Binding
	More   key.Binding
	Less   key.Binding
	Scores key.Binding
	Theme  key.Binding
	Quit   key.Binding
	Submit key.Binding
	Skip   key.Binding
}

var Keys = KeyMap{
	Pole: [3]key.Binding{
		key.NewBinding(key.WithKeys("1", "a"), key.WithHelp("1/a", "left")),
		key.NewBinding(key.WithKeys("2", "s"), key.WithHelp("2/s", "middle")),
		key.NewBinding(key.WithKeys("3", "d"), key.WithHelp("3/d", "right")),
	},
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	New:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new game")),
	More:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more disks")),
	Less:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "fewer disks")),
	Scores: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "scores")),
	Theme:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Skip:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "skip")),
}

func (k KeyMap) playHelp() []key.Binding {
	return []key.Binding{k.Pole[0], k.Pole[1], k.Pole[2], k.Cancel, k.New, k.More, k.Less, k.Scores, k.Theme, k.Quit}
}

func (k KeyMap) nameHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Skip}
}
