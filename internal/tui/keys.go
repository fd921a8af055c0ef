package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	ForceQuit key.Binding
	Quit      key.Binding
	Dismiss   key.Binding
	Dashboard key.Binding
	Receipts  key.Binding
	Imap      key.Binding
	Logout    key.Binding
	Refresh   key.Binding

	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Next   key.Binding
	Prev   key.Binding
	Search key.Binding
	From   key.Binding
	To     key.Binding
	Cycle  key.Binding
	Reset  key.Binding

	Category key.Binding

	Add    key.Binding
	Edit   key.Binding
	Delete key.Binding
	Test   key.Binding
	Sync   key.Binding
	Yes    key.Binding
	No     key.Binding

	Submit    key.Binding
	NextField key.Binding
	PrevField key.Binding
	Register  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Dismiss:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss/back")),
		Dashboard: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "dashboard")),
		Receipts:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "receipts")),
		Imap:      key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "mailboxes")),
		Logout:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),

		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Next:   key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next page")),
		Prev:   key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "prev page")),
		Search: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		From:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "from date")),
		To:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "to date")),
		Cycle:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "category")),
		Reset:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),

		Category: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "set category")),

		Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Test:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "test")),
		Sync:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		Yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		No:     key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),

		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		NextField: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Register:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "create account")),
	}
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " · "))
}
