package tactile

import (
	"context"
)

// Executor is the interface for command execution.
// All executor implementations must satisfy this interface.
type Executor interface {
	// Execute runs a command and returns its result. Infrastructure failures
	// (binary missing, cannot start) are reported through the result with
	// Success=false; the returned error is reserved for invalid commands.
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)
}

// Run executes cmd and folds the result through Check.
func Run(ctx context.Context, e Executor, cmd Command) (*ExecutionResult, error) {
	res, err := e.Execute(ctx, cmd)
	return res, Check(res, err)
}
