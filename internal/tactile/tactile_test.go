package tactile

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	assert.Equal(t, "ss", Command{Binary: "ss"}.CommandString())
	assert.Equal(t, "git checkout 17.0", Command{Binary: "git", Arguments: []string{"checkout", "17.0"}}.CommandString())
}

func TestCheck(t *testing.T) {
	cmd := &Command{Binary: "git", Arguments: []string{"pull"}}

	t.Run("success", func(t *testing.T) {
		assert.NoError(t, Check(&ExecutionResult{Success: true, Command: cmd}, nil))
	})

	t.Run("non-zero exit", func(t *testing.T) {
		err := Check(&ExecutionResult{Success: true, ExitCode: 128, Stderr: "fatal: not a repo", Command: cmd}, nil)
		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, 128, cmdErr.ExitCode)
		assert.Contains(t, err.Error(), "git pull: exit status 128")
		assert.Contains(t, err.Error(), "fatal: not a repo")
	})

	t.Run("missing binary keeps cause", func(t *testing.T) {
		cause := &exec.Error{Name: "ss", Err: exec.ErrNotFound}
		err := Check(&ExecutionResult{Success: false, ExitCode: -1, Error: cause.Error(), Cause: cause, Command: cmd}, nil)
		assert.ErrorIs(t, err, exec.ErrNotFound)
	})

	t.Run("infrastructure error message", func(t *testing.T) {
		res := &ExecutionResult{Success: true, Error: "stdout pipe closed", Command: cmd}
		assert.True(t, res.IsError())
		err := Check(res, nil)
		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Contains(t, err.Error(), "stdout pipe closed")
	})

	t.Run("killed", func(t *testing.T) {
		err := Check(&ExecutionResult{Success: true, Killed: true, KillReason: "timeout after 1s", Command: cmd}, nil)
		assert.ErrorIs(t, err, ErrKilled)
	})

	t.Run("execute error passes through", func(t *testing.T) {
		boom := errors.New("boom")
		assert.ErrorIs(t, Check(nil, boom), boom)
	})
}

func TestDirectExecutor_Validate(t *testing.T) {
	_, err := NewDirectExecutor().Execute(context.Background(), Command{})
	assert.Error(t, err)
}

func TestDirectExecutor_MissingBinary(t *testing.T) {
	res, err := NewDirectExecutor().Execute(context.Background(), Command{Binary: "odoogen-definitely-not-installed"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorIs(t, Check(res, err), exec.ErrNotFound)
}

func TestDirectExecutor_RunsAndCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	res, err := NewDirectExecutor().Execute(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "echo out; echo err 1>&2; exit 3"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.True(t, res.IsNonZeroExit())
}

func TestDirectExecutor_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}
	res, err := NewDirectExecutor().Execute(context.Background(), Command{
		Binary:    "sleep",
		Arguments: []string{"5"},
		Timeout:   50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.Killed)
	assert.ErrorIs(t, Check(res, nil), ErrKilled)
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, max: 4}

	n, err := lw.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcd", buf.String())
	assert.True(t, lw.truncated)

	n, err = lw.Write([]byte("gh"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "abcd", buf.String())
}

func TestDryRunExecutor(t *testing.T) {
	e := NewDryRunExecutor().
		StubOutput("ss", "LISTEN 0 128 0.0.0.0:8069 0.0.0.0:*\n").
		StubMissing("docker")

	res, err := e.Execute(context.Background(), Command{Binary: "ss", Arguments: []string{"-tuln"}})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "8069")

	res, err = e.Execute(context.Background(), Command{Binary: "docker"})
	require.NoError(t, err)
	assert.ErrorIs(t, Check(res, err), exec.ErrNotFound)

	res, err = e.Execute(context.Background(), Command{Binary: "chmod", Arguments: []string{"-R", "777", "x"}})
	require.NoError(t, err)
	assert.NoError(t, Check(res, err))

	calls := e.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "chmod -R 777 x", calls[2].CommandString())
}
