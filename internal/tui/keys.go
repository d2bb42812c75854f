package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings of the chat screen.
type KeyMap struct {
	Submit     key.Binding
	PrevOption key.Binding
	NextOption key.Binding
	Quit       key.Binding
}

var DefaultKeyMap = KeyMap{
	Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	PrevOption: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
	NextOption: key.NewBinding(key.WithKeys("down", "j", "tab"), key.WithHelp("↓/j", "next")),
	Quit:       key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}
