package session

import (
	"context"
	"strings"

	"github.com/natefield/sshmux/internal/errors"
)

// Connect establishes (or confirms) a live master transport for id.
// Idempotent: when the control socket already answers a liveness probe the
// call returns immediately without spawning anything. On failure the state
// machine returns to Disconnected and the error names the cause; retrying
// is the caller's (or the retry engine's) responsibility, never this layer's.
func (m *Manager) Connect(ctx context.Context, id Identity) (*Session, error) {
	sess := m.Session(id)

	alive, err := m.checkAlive(ctx, sess.ControlPath, id)
	if err != nil {
		return nil, err
	}
	if alive {
		sess.State = Connected
		sess.Touch()
		m.log.Debug("%s already live, reusing control socket", sessionDescription(id))
		return sess, nil
	}

	if err := m.ensureControlDir(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			"Couldn't create control directory "+m.cfg.ControlDir,
			"Check permissions, or point control_dir somewhere writable")
	}

	// A dead socket file blocks the new master from binding.
	m.removeArtifacts(sess)

	sess.State = Connecting
	m.log.Debug("spawning master transport for %s", sessionDescription(id))

	_, stderr, exitCode, err := m.run.Run(ctx, "ssh", m.masterArgs(sess)...)
	if err != nil {
		sess.State = Disconnected
		return nil, err
	}
	if exitCode != 0 {
		// Accepted creation race: a concurrent connect may have bound the
		// socket first, making our spawn fail harmlessly.
		if alive, aliveErr := m.checkAlive(ctx, sess.ControlPath, id); aliveErr == nil && alive {
			sess.State = Connected
			sess.Touch()
			return sess, nil
		}
		sess.State = Disconnected
		return nil, m.connectError(ctx, id, exitCode, string(stderr))
	}

	if err := writeMeta(id.MetaPath(m.cfg.ControlDir), id, sess.ControlPath); err != nil {
		m.log.Warn("couldn't write session metadata for %s: %v", id.Key(), err)
	}

	sess.State = Connected
	sess.Touch()
	m.log.Info("%s established", sessionDescription(id))
	return sess, nil
}

// connectError maps an establishment failure to a specific diagnostic.
// The native handshake probe is consulted first; the transport's own
// stderr is pattern-matched as a fallback.
func (m *Manager) connectError(ctx context.Context, id Identity, exitCode int, stderr string) error {
	if m.diag != nil {
		if err := m.diag.Diagnose(ctx, id, m.IdentityFile); err != nil {
			return err
		}
	}

	stderr = strings.TrimSpace(stderr)
	msg := "Couldn't establish " + sessionDescription(id)
	suggestion := suggestionForConnectFailure(stderr)

	if stderr == "" {
		return errors.New(errors.ErrConnect, msg, suggestion)
	}
	return errors.New(errors.ErrConnect, msg+": "+stderr, suggestion)
}

// suggestionForConnectFailure maps transport stderr to an actionable hint.
func suggestionForConnectFailure(stderr string) string {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "authentication"):
		return "Auth rejected. Check your keys are loaded: ssh-add -l"
	case strings.Contains(lower, "host key verification failed"),
		strings.Contains(lower, "remote host identification has changed"):
		return "Stale known_hosts entry. Remove it: ssh-keygen -R <host>"
	case strings.Contains(lower, "connection refused"):
		return "Is SSH running on that box, on that port? Try: nc -vz <host> <port>"
	case strings.Contains(lower, "no route to host"),
		strings.Contains(lower, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(lower, "timed out"),
		strings.Contains(lower, "timeout"):
		return "Connection timed out. Host might be offline or blocked by a firewall."
	case strings.Contains(lower, "could not resolve hostname"):
		return "Hostname doesn't resolve. Check the spelling and your DNS."
	default:
		return "Try connecting manually first: ssh <user>@<host>"
	}
}
