// Package remote runs commands and file transfers over an established
// session's control socket. Purely mechanical: no retry logic lives here,
// every failure surfaces with its exit code and captured output.
package remote

import (
	"context"
	"time"

	"github.com/natefield/sshmux/internal/logger"
	"github.com/natefield/sshmux/internal/session"
)

// Result is the outcome of one remote operation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the operation finished with exit code 0.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Executor runs commands and transfers through live sessions, establishing
// the session first when needed.
type Executor struct {
	Sessions *session.Manager
	Log      logger.Logger

	// OperationTimeout bounds a single operation. Zero means no limit.
	// Expiry aborts only that operation (exit code 124); the session
	// stays reusable.
	OperationTimeout time.Duration
}

// NewExecutor creates an Executor bound to a session manager.
func NewExecutor(sessions *session.Manager, log logger.Logger) *Executor {
	if log == nil {
		log = logger.NewEnvLogger("[remote]")
	}
	return &Executor{
		Sessions:         sessions,
		Log:              log,
		OperationTimeout: sessions.Config().OperationTimeout,
	}
}

// opContext applies the per-operation timeout.
func (e *Executor) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.OperationTimeout > 0 {
		return context.WithTimeout(ctx, e.OperationTimeout)
	}
	return context.WithCancel(ctx)
}

// Exec runs a command through the session for id, returning exit status
// and captured output. The session is established transparently if no
// live control socket exists.
func (e *Executor) Exec(ctx context.Context, id session.Identity, command string) (Result, error) {
	sess, err := e.Sessions.Connect(ctx, id)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	args := append(sess.SSHArgs(), sess.Identity.Destination(), "--", command)
	e.Log.Debug("exec on %s: %s", id.Key(), command)

	stdout, stderr, exitCode, err := e.Sessions.Runner().Run(opCtx, "ssh", args...)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	sess.Touch()
	return Result{
		ExitCode: exitCode,
		Stdout:   string(stdout),
		Stderr:   string(stderr),
	}, nil
}
