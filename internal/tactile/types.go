// Package tactile is the execution layer that physically touches the host:
// socket-table queries, git, chmod and docker compose all go through an
// Executor so the scaffolding logic above it can be tested without spawning
// processes.
package tactile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "ss", "git", "docker").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	// If empty, the current process directory is used.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to add (in KEY=VALUE format).
	Environment []string `json:"environment,omitempty"`

	// Timeout overrides the executor default when positive.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult is the output of a command execution.
type ExecutionResult struct {
	// Success indicates whether the execution infrastructure worked.
	// A command that runs but returns a non-zero exit code has Success=true.
	Success bool `json:"success"`

	// ExitCode is the command's exit code (-1 if not available).
	ExitCode int `json:"exit_code"`

	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Combined string `json:"combined"`

	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	// Killed indicates the command was forcibly terminated.
	Killed     bool   `json:"killed"`
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated indicates output was cut at the executor's byte limit.
	Truncated bool `json:"truncated"`

	// Error contains any infrastructure-level error message.
	Error string `json:"error,omitempty"`

	// Cause is the infrastructure error itself, kept for errors.Is checks
	// such as exec.ErrNotFound.
	Cause error `json:"-"`

	// Command is a copy of the command that was executed.
	Command *Command `json:"command,omitempty"`
}

// IsError returns true if the execution failed (infrastructure error).
func (r *ExecutionResult) IsError() bool {
	return !r.Success || r.Error != ""
}

// IsNonZeroExit returns true if the command ran but returned non-zero.
func (r *ExecutionResult) IsNonZeroExit() bool {
	return r.Success && r.ExitCode != 0
}

// Output returns Combined if available, otherwise Stdout+Stderr.
func (r *ExecutionResult) Output() string {
	if r.Combined != "" {
		return r.Combined
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// CommandError reports a command that could not run, was killed, or exited
// non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Command)
	switch {
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	default:
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, ", output: %s", out)
	}
	return b.String()
}

func (e *CommandError) Unwrap() error { return e.Err }

// ErrKilled marks a command terminated by timeout or cancellation.
var ErrKilled = errors.New("command killed")

// Check folds an Execute return pair into a single error: nil only when the
// command ran to completion with exit code 0.
func Check(res *ExecutionResult, err error) error {
	if err != nil {
		return err
	}
	if res == nil {
		return errors.New("no execution result")
	}
	name := "command"
	if res.Command != nil {
		name = res.Command.CommandString()
	}
	switch {
	case res.IsError():
		cause := res.Cause
		if cause == nil {
			cause = errors.New(res.Error)
		}
		return &CommandError{Command: name, ExitCode: res.ExitCode, Output: res.Output(), Err: cause}
	case res.Killed:
		return &CommandError{Command: name, ExitCode: res.ExitCode, Output: res.Output(),
			Err: fmt.Errorf("%w: %s", ErrKilled, res.KillReason)}
	case res.IsNonZeroExit():
		return &CommandError{Command: name, ExitCode: res.ExitCode, Output: res.Output()}
	}
	return nil
}

// ExecutorConfig holds defaults applied to every command.
type ExecutorConfig struct {
	// DefaultTimeout applies when a command sets no timeout.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// MaxOutputBytes caps captured stdout and stderr each.
	MaxOutputBytes int64 `json:"max_output_bytes"`

	// InheritEnvironment passes the caller's environment to the child.
	InheritEnvironment bool `json:"inherit_environment"`
}

// DefaultExecutorConfig returns the executor defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultTimeout:     5 * time.Minute,
		MaxOutputBytes:     4 * 1024 * 1024,
		InheritEnvironment: true,
	}
}
