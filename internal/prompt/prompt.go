// Package prompt asks the user for project choices. TeaPrompter drives a
// terminal with bubbletea; ScriptedPrompter answers from a list for
// non-interactive runs and tests.
package prompt

import (
	"context"
	"errors"
)

// ErrAborted is returned when the user cancels a prompt (ctrl+c or esc).
var ErrAborted = errors.New("prompt aborted")

// Prompter collects answers.
type Prompter interface {
	// Input reads a line of text. An empty answer yields def. validate may
	// be nil.
	Input(ctx context.Context, label, def string, validate func(string) error) (string, error)

	// Select picks exactly one option. def preselects an option.
	Select(ctx context.Context, label string, options []string, def string) (string, error)

	// MultiSelect picks any number of options, returned in option order.
	MultiSelect(ctx context.Context, label string, options []string) ([]string, error)

	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, label string, def bool) (bool, error)
}

func indexOf(options []string, value string) int {
	for i, o := range options {
		if o == value {
			return i
		}
	}
	return -1
}
