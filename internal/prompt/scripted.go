package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrScriptExhausted is returned when a ScriptedPrompter runs out of
// answers and defaults are not allowed.
var ErrScriptExhausted = errors.New("no scripted answer left")

// ScriptedPrompter answers from a queue. An empty answer takes the
// default. For MultiSelect an answer is a comma-separated list, "*" picks
// everything and "" picks nothing. With UseDefaults, an exhausted queue
// keeps answering defaults instead of failing.
type ScriptedPrompter struct {
	mu          sync.Mutex
	answers     []string
	UseDefaults bool
	asked       []string
}

// NewScriptedPrompter queues answers in order.
func NewScriptedPrompter(answers ...string) *ScriptedPrompter {
	return &ScriptedPrompter{answers: answers}
}

// Defaults answers every prompt with its default.
func Defaults() *ScriptedPrompter {
	return &ScriptedPrompter{UseDefaults: true}
}

// Asked returns the labels prompted so far.
func (p *ScriptedPrompter) Asked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.asked...)
}

func (p *ScriptedPrompter) next(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, label)
	if len(p.answers) == 0 {
		if p.UseDefaults {
			return "", nil
		}
		return "", fmt.Errorf("%w for %q", ErrScriptExhausted, label)
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return strings.TrimSpace(a), nil
}

// Input implements Prompter.
func (p *ScriptedPrompter) Input(ctx context.Context, label, def string, validate func(string) error) (string, error) {
	a, err := p.next(ctx, label)
	if err != nil {
		return "", err
	}
	if a == "" {
		a = def
	}
	if validate != nil {
		if err := validate(a); err != nil {
			return "", fmt.Errorf("prompt %q: %w", label, err)
		}
	}
	return a, nil
}

// Select implements Prompter.
func (p *ScriptedPrompter) Select(ctx context.Context, label string, options []string, def string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("prompt %q: no options", label)
	}
	a, err := p.next(ctx, label)
	if err != nil {
		return "", err
	}
	if a == "" {
		a = def
		if indexOf(options, a) < 0 {
			a = options[0]
		}
	}
	if indexOf(options, a) < 0 {
		return "", fmt.Errorf("prompt %q: %q is not one of %v", label, a, options)
	}
	return a, nil
}

// MultiSelect implements Prompter.
func (p *ScriptedPrompter) MultiSelect(ctx context.Context, label string, options []string) ([]string, error) {
	a, err := p.next(ctx, label)
	if err != nil {
		return nil, err
	}
	switch a {
	case "":
		return nil, nil
	case "*":
		return append([]string(nil), options...), nil
	}

	want := make(map[string]bool)
	for _, part := range strings.Split(a, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if indexOf(options, part) < 0 {
			return nil, fmt.Errorf("prompt %q: %q is not one of %v", label, part, options)
		}
		want[part] = true
	}
	var out []string
	for _, o := range options {
		if want[o] {
			out = append(out, o)
		}
	}
	return out, nil
}

// Confirm implements Prompter.
func (p *ScriptedPrompter) Confirm(ctx context.Context, label string, def bool) (bool, error) {
	a, err := p.next(ctx, label)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(a) {
	case "":
		return def, nil
	case "y", "yes", "true":
		return true, nil
	case "n", "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("prompt %q: %q is not yes or no", label, a)
}
