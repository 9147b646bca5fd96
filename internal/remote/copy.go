package remote

import (
	"context"
	"fmt"

	"github.com/natefield/sshmux/internal/errors"
	"github.com/natefield/sshmux/internal/session"
	"github.com/natefield/sshmux/internal/util"
)

// Direction says which way a transfer moves files.
type Direction int

const (
	// To pushes local source to remote destination.
	To Direction = iota
	// From pulls remote source to local destination.
	From
)

func (d Direction) String() string {
	if d == From {
		return "from"
	}
	return "to"
}

// ParseDirection parses "to" or "from".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "to":
		return To, nil
	case "from":
		return From, nil
	default:
		return To, errors.New(errors.ErrCopy,
			fmt.Sprintf("'%s' is not a transfer direction", s),
			"Use 'to' (push local→remote) or 'from' (pull remote→local)")
	}
}

// Copy transfers source to destination through the session for id,
// reusing the session's control socket (no separate authentication).
// Directories are copied recursively. The underlying exit code is
// reported, never swallowed.
func (e *Executor) Copy(ctx context.Context, id session.Identity, dir Direction, source, destination string) (Result, error) {
	sess, err := e.Sessions.Connect(ctx, id)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	// Remote paths pass through the remote shell; quote them so spaces
	// survive, keeping a leading ~/ expandable.
	var src, dst string
	switch dir {
	case To:
		src = source
		dst = sess.Identity.Destination() + ":" + util.ShellQuotePreserveTilde(destination)
	case From:
		src = sess.Identity.Destination() + ":" + util.ShellQuotePreserveTilde(source)
		dst = destination
	}

	args := append(sess.SCPArgs(), "-r", src, dst)
	e.Log.Debug("copy %s %s: %s -> %s", dir, id.Key(), src, dst)

	stdout, stderr, exitCode, err := e.Sessions.Runner().Run(opCtx, "scp", args...)
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
