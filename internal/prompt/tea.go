package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"odoogen/internal/logging"
)

// TeaPrompter runs each question as a small bubbletea program.
type TeaPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTeaPrompter creates a prompter on the given terminal streams. nil
// streams fall back to the process's stdin and stdout.
func NewTeaPrompter(in io.Reader, out io.Writer) *TeaPrompter {
	return &TeaPrompter{In: in, Out: out}
}

func (p *TeaPrompter) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("prompt: %w", err)
	}
	return final, nil
}

// Input implements Prompter.
func (p *TeaPrompter) Input(ctx context.Context, label, def string, validate func(string) error) (string, error) {
	final, err := p.run(ctx, newInputModel(label, def, validate))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	if m.aborted || !m.done {
		return "", ErrAborted
	}
	logging.Get(logging.CategoryPrompt).Debug("answered", zap.String("label", label), zap.String("value", m.value))
	return m.value, nil
}

// Select implements Prompter.
func (p *TeaPrompter) Select(ctx context.Context, label string, options []string, def string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("prompt %q: no options", label)
	}
	final, err := p.run(ctx, newSelectModel(label, options, def))
	if err != nil {
		return "", err
	}
	m := final.(selectModel)
	if m.aborted || !m.done {
		return "", ErrAborted
	}
	return m.value(), nil
}

// MultiSelect implements Prompter.
func (p *TeaPrompter) MultiSelect(ctx context.Context, label string, options []string) ([]string, error) {
	if len(options) == 0 {
		return nil, nil
	}
	final, err := p.run(ctx, newMultiSelectModel(label, options))
	if err != nil {
		return nil, err
	}
	m := final.(multiSelectModel)
	if m.aborted || !m.done {
		return nil, ErrAborted
	}
	return m.values(), nil
}

// Confirm implements Prompter.
func (p *TeaPrompter) Confirm(ctx context.Context, label string, def bool) (bool, error) {
	final, err := p.run(ctx, newConfirmModel(label, def))
	if err != nil {
		return false, err
	}
	m := final.(confirmModel)
	if m.aborted || !m.done {
		return false, ErrAborted
	}
	return m.value, nil
}
