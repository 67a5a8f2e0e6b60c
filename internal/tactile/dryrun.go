package tactile

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"odoogen/internal/logging"
)

// DryRunExecutor records commands instead of running them. Unless a
// response is stubbed for the binary, every command "succeeds" with empty
// output. It backs --dry-run and stands in for the host in tests.
type DryRunExecutor struct {
	mu        sync.Mutex
	calls     []Command
	responses map[string]ExecutionResult
}

// NewDryRunExecutor creates an executor with no stubbed responses.
func NewDryRunExecutor() *DryRunExecutor {
	return &DryRunExecutor{responses: make(map[string]ExecutionResult)}
}

// Stub sets the result returned for every command whose binary matches.
func (e *DryRunExecutor) Stub(binary string, result ExecutionResult) *DryRunExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[binary] = result
	return e
}

// StubOutput stubs a successful run printing stdout.
func (e *DryRunExecutor) StubOutput(binary, stdout string) *DryRunExecutor {
	return e.Stub(binary, ExecutionResult{Success: true, ExitCode: 0, Stdout: stdout})
}

// StubMissing makes binary behave as if it were not installed.
func (e *DryRunExecutor) StubMissing(binary string) *DryRunExecutor {
	cause := &exec.Error{Name: binary, Err: exec.ErrNotFound}
	return e.Stub(binary, ExecutionResult{Success: false, ExitCode: -1, Error: cause.Error(), Cause: cause})
}

// StubExit makes binary exit with the given code and stderr.
func (e *DryRunExecutor) StubExit(binary string, code int, stderr string) *DryRunExecutor {
	return e.Stub(binary, ExecutionResult{Success: true, ExitCode: code, Stderr: stderr})
}

// Execute records cmd and returns the stubbed (or default) result.
func (e *DryRunExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("binary is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.calls = append(e.calls, cmd)
	res, ok := e.responses[cmd.Binary]
	e.mu.Unlock()

	if !ok {
		res = ExecutionResult{Success: true, ExitCode: 0}
	}
	now := time.Now()
	res.StartedAt, res.FinishedAt = now, now
	res.Command = &cmd

	logging.Get(logging.CategoryTactile).Info("dry run", zap.String("command", cmd.CommandString()),
		zap.String("dir", cmd.WorkingDirectory))
	return &res, nil
}

// Calls returns the recorded commands in execution order.
func (e *DryRunExecutor) Calls() []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Command, len(e.calls))
	copy(out, e.calls)
	return out
}
