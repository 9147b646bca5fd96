package session

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/natefield/sshmux/internal/errors"
)

// Runner executes a local process and captures its output. The transport
// binaries (ssh, scp) are invoked exclusively through this interface so
// tests can substitute a fake without a live remote.
type Runner interface {
	// Run executes name with args, returning captured stdout, stderr and
	// the process exit code. A non-nil error means the process could not
	// be started at all; a non-zero exit is not an error.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitCode(), nil
		}
		if ctx.Err() != nil {
			// Deadline or cancellation killed the process before it could
			// report an exit status.
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), TimeoutExitCode, nil
		}
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run "+name,
			"Make sure OpenSSH client tools are installed and in PATH")
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
}

// TimeoutExitCode is reported when a local deadline expires before the
// remote operation completes. Matches the timeout(1) convention.
const TimeoutExitCode = 124
