package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"odoogen/internal/logging"
)

// DirectExecutor executes commands directly on the host using os/exec.
type DirectExecutor struct {
	config ExecutorConfig
}

// NewDirectExecutor creates a new direct executor with default config.
func NewDirectExecutor() *DirectExecutor {
	return NewDirectExecutorWithConfig(DefaultExecutorConfig())
}

// NewDirectExecutorWithConfig creates a new direct executor with custom config.
func NewDirectExecutorWithConfig(config ExecutorConfig) *DirectExecutor {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultExecutorConfig().DefaultTimeout
	}
	if config.MaxOutputBytes <= 0 {
		config.MaxOutputBytes = DefaultExecutorConfig().MaxOutputBytes
	}
	return &DirectExecutor{config: config}
}

// Validate checks if a command can be executed.
func (e *DirectExecutor) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	return nil
}

// Execute runs a command directly on the host.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	log := logging.Get(logging.CategoryTactile)

	if err := e.Validate(cmd); err != nil {
		log.Warn("command validation failed", zap.String("binary", cmd.Binary), zap.Error(err))
		return nil, err
	}

	result := &ExecutionResult{
		ExitCode: -1,
		Command:  &cmd,
	}

	timeout := e.config.DefaultTimeout
	if cmd.Timeout > 0 {
		timeout = cmd.Timeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = e.buildEnvironment(cmd.Environment)

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: e.config.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: e.config.MaxOutputBytes}
	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	log.Debug("executing", zap.String("command", cmd.CommandString()),
		zap.String("dir", cmd.WorkingDirectory), zap.Duration("timeout", timeout))

	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.Combined = result.Stdout
	if result.Stderr != "" {
		if result.Combined != "" {
			result.Combined += "\n"
		}
		result.Combined += result.Stderr
	}
	result.Truncated = stdoutLimited.truncated || stderrLimited.truncated

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.Success = true
		result.ExitCode = 0
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		result.Success = true
		result.Killed = true
		result.KillReason = fmt.Sprintf("timeout after %s", timeout)
		log.Warn("command killed", zap.String("binary", cmd.Binary), zap.Duration("timeout", timeout))
	case errors.Is(execCtx.Err(), context.Canceled):
		result.Success = true
		result.Killed = true
		result.KillReason = "context canceled"
	case errors.As(err, &exitErr):
		result.Success = true
		result.ExitCode = exitErr.ExitCode()
	default:
		result.Success = false
		result.Error = err.Error()
		result.Cause = err
		log.Debug("command failed to start", zap.String("binary", cmd.Binary), zap.Error(err))
		return result, nil
	}

	log.Debug("command completed",
		zap.String("binary", cmd.Binary),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration),
		zap.Int("stdout_bytes", len(result.Stdout)))

	return result, nil
}

// buildEnvironment creates the environment variable list.
func (e *DirectExecutor) buildEnvironment(cmdEnv []string) []string {
	env := []string{}
	if e.config.InheritEnvironment {
		env = append(env, os.Environ()...)
	}
	return append(env, cmdEnv...)
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil // Pretend we wrote it
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // Return original length to avoid "short write" errors
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
