// Package prompt implements lineform's Backend interface on bubbletea.
// Each Ask call runs a small inline program that blocks until the user
// answers or aborts.
package prompt

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lineform"
)

// Prompt asks one question at a time on the terminal. It satisfies
// lineform.Backend: Ask blocks until answered, and Esc or Ctrl-C yields
// lineform.ErrAborted.
type Prompt struct {
	in  io.Reader
	out io.Writer

	labelStyle  lipgloss.Style
	cursorStyle lipgloss.Style
}

var _ lineform.Backend = (*Prompt)(nil)

// New creates a prompt backend with default styling.
func New() *Prompt {
	return &Prompt{
		labelStyle:  lipgloss.NewStyle().Bold(true),
		cursorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// WithIO redirects the prompt's input and output, mainly for tests.
func (p *Prompt) WithIO(in io.Reader, out io.Writer) *Prompt {
	p.in = in
	p.out = out
	return p
}

// Ask blocks until the user answers or aborts the prompt described by req.
func (p *Prompt) Ask(req lineform.PromptRequest) (string, error) {
	var m tea.Model
	if len(req.Options) > 0 {
		m = newChoiceModel(req, p.labelStyle, p.cursorStyle)
	} else {
		m = newInputModel(req, p.labelStyle)
	}

	var opts []tea.ProgramOption
	if p.in != nil {
		opts = append(opts, tea.WithInput(p.in))
	}
	if p.out != nil {
		opts = append(opts, tea.WithOutput(p.out))
	}

	res, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}

	switch final := res.(type) {
	case inputModel:
		if final.aborted {
			return "", lineform.ErrAborted
		}
		return final.input.Value(), nil
	case choiceModel:
		if final.aborted {
			return "", lineform.ErrAborted
		}
		return final.options[final.cursor], nil
	default:
		return "", fmt.Errorf("prompt: unexpected final model %T", res)
	}
}

// ============================================================================
// free-text input
// ============================================================================

type inputModel struct {
	label      string
	labelStyle lipgloss.Style
	input      textinput.Model
	aborted    bool
	done       bool
}

func newInputModel(req lineform.PromptRequest, labelStyle lipgloss.Style) inputModel {
	ti := textinput.New()
	ti.Placeholder = req.Placeholder
	ti.SetValue(req.Initial)
	if req.Secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	ti.Focus()
	return inputModel{label: req.Label, labelStyle: labelStyle, input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.aborted = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	return m.labelStyle.Render(m.label+": ") + m.input.View() + "\n"
}

// ============================================================================
// choice list
// ============================================================================

type choiceModel struct {
	label       string
	labelStyle  lipgloss.Style
	cursorStyle lipgloss.Style
	options     []string
	cursor      int
	aborted     bool
	done        bool
}

func newChoiceModel(req lineform.PromptRequest, labelStyle, cursorStyle lipgloss.Style) choiceModel {
	m := choiceModel{
		label:       req.Label,
		labelStyle:  labelStyle,
		cursorStyle: cursorStyle,
		options:     req.Options,
	}
	for i, opt := range req.Options {
		if opt == req.Initial {
			m.cursor = i
			break
		}
	}
	return m
}

func (m choiceModel) Init() tea.Cmd {
	return nil
}

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	case "esc", "ctrl+c":
		m.aborted = true
		return m, tea.Quit
	}
	return m, nil
}

func (m choiceModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	out := m.labelStyle.Render(m.label+":") + "\n"
	for i, opt := range m.options {
		line := "  ○ " + opt
		if i == m.cursor {
			line = m.cursorStyle.Render("▸ ● " + opt)
		}
		out += line + "\n"
	}
	return out
}
