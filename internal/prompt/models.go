package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// inputModel reads one line.
type inputModel struct {
	label    string
	def      string
	input    textinput.Model
	validate func(string) error
	err      error
	value    string
	done     bool
	aborted  bool
}

func newInputModel(label, def string, validate func(string) error) inputModel {
	ti := textinput.New()
	ti.Placeholder = def
	ti.CharLimit = 128
	ti.Focus()
	return inputModel{label: label, def: def, input: ti, validate: validate}
}

func (m inputModel) Init() tea.Cmd { return textinput.Blink }

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			v := strings.TrimSpace(m.input.Value())
			if v == "" {
				v = m.def
			}
			if m.validate != nil {
				if err := m.validate(v); err != nil {
					m.err = err
					return m, nil
				}
			}
			m.value = v
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.err = nil
	return m, cmd
}

func (m inputModel) View() string {
	if m.done {
		return fmt.Sprintf("%s %s\n", LabelStyle.Render(m.label), m.value)
	}
	var b strings.Builder
	b.WriteString(LabelStyle.Render(m.label) + "\n")
	b.WriteString(m.input.View() + "\n")
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(m.err.Error()) + "\n")
	}
	return b.String()
}

// selectModel picks one option.
type selectModel struct {
	label   string
	options []string
	cursor  int
	done    bool
	aborted bool
}

func newSelectModel(label string, options []string, def string) selectModel {
	m := selectModel{label: label, options: options}
	if i := indexOf(options, def); i >= 0 {
		m.cursor = i
	}
	return m
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.options) > 0 {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m selectModel) value() string {
	if len(m.options) == 0 {
		return ""
	}
	return m.options[m.cursor]
}

func (m selectModel) View() string {
	if m.done {
		return fmt.Sprintf("%s %s\n", LabelStyle.Render(m.label), m.value())
	}
	var b strings.Builder
	b.WriteString(LabelStyle.Render(m.label) + "\n")
	for i, o := range m.options {
		if i == m.cursor {
			b.WriteString(CursorStyle.Render("> "+o) + "\n")
		} else {
			b.WriteString("  " + o + "\n")
		}
	}
	b.WriteString(HintStyle.Render("↑/↓ move, enter select, esc cancel") + "\n")
	return b.String()
}

// multiSelectModel picks any subset.
type multiSelectModel struct {
	label    string
	options  []string
	cursor   int
	selected map[int]bool
	done     bool
	aborted  bool
}

func newMultiSelectModel(label string, options []string) multiSelectModel {
	return multiSelectModel{label: label, options: options, selected: make(map[int]bool)}
}

func (m multiSelectModel) Init() tea.Cmd { return nil }

func (m multiSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case " ", "x":
		if len(m.options) > 0 {
			m.selected[m.cursor] = !m.selected[m.cursor]
		}
	case "a":
		all := len(m.values()) < len(m.options)
		for i := range m.options {
			m.selected[i] = all
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m multiSelectModel) values() []string {
	var out []string
	for i, o := range m.options {
		if m.selected[i] {
			out = append(out, o)
		}
	}
	return out
}

func (m multiSelectModel) View() string {
	if m.done {
		return fmt.Sprintf("%s %s\n", LabelStyle.Render(m.label), strings.Join(m.values(), ", "))
	}
	var b strings.Builder
	b.WriteString(LabelStyle.Render(m.label) + "\n")
	for i, o := range m.options {
		box := "[ ]"
		if m.selected[i] {
			box = SelectedStyle.Render("[x]")
		}
		line := box + " " + o
		if i == m.cursor {
			line = CursorStyle.Render(">") + " " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(HintStyle.Render("space toggle, a all, enter confirm, esc cancel") + "\n")
	return b.String()
}

// confirmModel answers yes or no.
type confirmModel struct {
	label   string
	value   bool
	done    bool
	aborted bool
}

func newConfirmModel(label string, def bool) confirmModel {
	return confirmModel{label: label, value: def}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	case "y":
		m.value = true
		m.done = true
		return m, tea.Quit
	case "n":
		m.value = false
		m.done = true
		return m, tea.Quit
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	hint := "y/N"
	if m.value {
		hint = "Y/n"
	}
	if m.done {
		answer := "no"
		if m.value {
			answer = "yes"
		}
		return fmt.Sprintf("%s %s\n", LabelStyle.Render(m.label), answer)
	}
	return fmt.Sprintf("%s %s\n", LabelStyle.Render(m.label), HintStyle.Render("["+hint+"]"))
}
