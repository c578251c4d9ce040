package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next, Prev key.Binding
	Add, Done  key.Binding
	Refresh    key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Next:    key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next tab")),
		Prev:    key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev tab")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Done:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "done")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
