// Package probe dials a real SSH handshake to explain connection
// failures. The transport binary collapses most establishment problems
// into one opaque exit code; a native handshake distinguishes auth
// rejection, host-key mismatch, unreachable hosts and timeouts, so the
// establisher can report cause instead of guessing.
package probe

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/natefield/sshmux/internal/errors"
	"github.com/natefield/sshmux/internal/session"
)

// FailReason categorizes why a probe failed.
type FailReason int

const (
	FailUnknown FailReason = iota
	FailTimeout
	FailRefused
	FailUnreachable
	FailAuth
	FailHostKey
	FailDNS
)

// String returns a human-readable description of the failure reason.
func (r FailReason) String() string {
	switch r {
	case FailTimeout:
		return "connection timed out"
	case FailRefused:
		return "connection refused"
	case FailUnreachable:
		return "host unreachable"
	case FailAuth:
		return "authentication failed"
	case FailHostKey:
		return "host key verification failed"
	case FailDNS:
		return "hostname did not resolve"
	default:
		return "unknown error"
	}
}

// Prober diagnoses connection failures with a native SSH handshake.
// Implements session.Diagnoser.
type Prober struct {
	// Timeout bounds the TCP dial and handshake.
	Timeout time.Duration

	// StrictHostKey controls known_hosts verification during the probe.
	StrictHostKey bool
}

// New returns a Prober with the given handshake timeout.
func New(timeout time.Duration) *Prober {
	return &Prober{Timeout: timeout, StrictHostKey: true}
}

// Diagnose attempts a handshake with id and returns a structured error
// naming the specific cause of failure. A nil return means the probe
// succeeded and the original failure came from somewhere else.
func (p *Prober) Diagnose(ctx context.Context, id session.Identity, identityFile string) error {
	reason, cause := p.probe(ctx, id, identityFile)
	if cause == nil {
		return nil
	}

	return errors.WrapWithCode(cause, errors.ErrConnect,
		fmt.Sprintf("Couldn't establish session %s: %s", id.Key(), reason),
		suggestionFor(reason, id))
}

// probe runs the TCP dial and SSH handshake, categorizing any failure.
func (p *Prober) probe(ctx context.Context, id session.Identity, identityFile string) (FailReason, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", id.Address())
	if err != nil {
		return categorizeNetError(err), err
	}
	defer conn.Close()

	cfg, err := p.clientConfig(id, identityFile)
	if err != nil {
		return FailAuth, err
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, id.Address(), cfg)
	if err != nil {
		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return FailHostKey, err
		}
		return categorizeHandshakeError(err), err
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	client.Close()
	return FailUnknown, nil
}

// suggestionFor maps a failure reason to an actionable hint.
func suggestionFor(reason FailReason, id session.Identity) string {
	switch reason {
	case FailAuth:
		return "Auth rejected for " + id.User + ". Check your keys are loaded: ssh-add -l"
	case FailHostKey:
		return fmt.Sprintf("Stale known_hosts entry. Remove it: ssh-keygen -R %s", id.Host)
	case FailRefused:
		return fmt.Sprintf("Is SSH listening on port %d? Try: nc -vz %s %d", id.Port, id.Host, id.Port)
	case FailUnreachable:
		return "Can't route to the host. Check your network connection."
	case FailTimeout:
		return "Connection timed out. Host might be offline or blocked by a firewall."
	case FailDNS:
		return "Hostname doesn't resolve. Check the spelling and your DNS."
	default:
		return fmt.Sprintf("Try connecting manually first: ssh %s", id.Destination())
	}
}

func categorizeNetError(err error) FailReason {
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return FailDNS
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return FailTimeout
	}
	msg := err.Error()
	switch {
	case contains(msg, "connection refused"):
		return FailRefused
	case contains(msg, "no route to host"), contains(msg, "network is unreachable"), contains(msg, "host is down"):
		return FailUnreachable
	case contains(msg, "timeout"), contains(msg, "timed out"):
		return FailTimeout
	default:
		return FailUnknown
	}
}

func categorizeHandshakeError(err error) FailReason {
	msg := err.Error()
	switch {
	case contains(msg, "unable to authenticate"), contains(msg, "no supported methods"),
		contains(msg, "permission denied"), contains(msg, "authentication failed"):
		return FailAuth
	case contains(msg, "host key"):
		return FailHostKey
	case contains(msg, "timeout"), contains(msg, "timed out"):
		return FailTimeout
	default:
		return FailUnknown
	}
}
