// Package picker is a small multi-select checklist for the terminal, used to
// choose which tethered devices receive the shared connection.
package picker

import (
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user leaves the picker without confirming.
var ErrAborted = errors.New("selection aborted")

// Option is one selectable row. Value is what Selected returns.
type Option struct {
	Label string
	Value string
}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:  key.NewBinding(key.WithKeys(" ", "space", "x"), key.WithHelp("space", "toggle")),
	All:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "abort")),
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// Model is the bubbletea model behind Run.
type Model struct {
	title    string
	options  []Option
	cursor   int
	selected map[int]bool
	done     bool
	aborted  bool
}

func New(title string, options []Option) Model {
	return Model{title: title, options: options, selected: map[int]bool{}}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Quit):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(keyMsg, keys.Confirm):
		m.done = true
		return m, tea.Quit
	case key.Matches(keyMsg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, keys.Toggle):
		if len(m.options) > 0 {
			m.selected[m.cursor] = !m.selected[m.cursor]
		}
	case key.Matches(keyMsg, keys.All):
		all := len(m.Selected()) < len(m.options)
		for i := range m.options {
			m.selected[i] = all
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	if len(m.options) == 0 {
		b.WriteString(helpStyle.Render("  no devices found"))
		b.WriteString("\n")
	}
	for i, opt := range m.options {
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		box := "[ ]"
		label := opt.Label
		if m.selected[i] {
			box = selectedStyle.Render("[x]")
			label = selectedStyle.Render(label)
		}
		b.WriteString(pointer + box + " " + label + "\n")
	}
	help := []string{}
	for _, binding := range []key.Binding{keys.Up, keys.Down, keys.Toggle, keys.All, keys.Confirm, keys.Quit} {
		h := binding.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	b.WriteString("\n")
	return b.String()
}

// Selected returns the values of the checked options in display order.
func (m Model) Selected() []string {
	var out []string
	for i, opt := range m.options {
		if m.selected[i] {
			out = append(out, opt.Value)
		}
	}
	return out
}

// Aborted reports whether the user quit without confirming.
func (m Model) Aborted() bool { return m.aborted }

// Run shows the picker on the given terminal streams and returns the chosen
// values.
func Run(title string, options []Option, in io.Reader, out io.Writer) ([]string, error) {
	program := tea.NewProgram(New(title, options), tea.WithInput(in), tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(Model)
	if !ok || m.Aborted() {
		return nil, ErrAborted
	}
	return m.Selected(), nil
}
