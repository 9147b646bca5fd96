// Package session implements the session registry, connection establisher
// and lifecycle manager for multiplexed remote-execution sessions. One
// master transport per (user, host, port) identity is spawned in the
// background and reused by every subsequent command and transfer, across
// processes; the control socket artifact on disk is the sole source of
// truth for "is connected".
package session

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/natefield/sshmux/internal/config"
	"github.com/natefield/sshmux/internal/logger"
)

// Diagnoser explains why connecting to an identity fails. The establisher
// reports cause, it does not guess remediation; a Diagnoser (typically the
// native handshake probe) turns an opaque transport exit into a specific
// diagnostic.
type Diagnoser interface {
	Diagnose(ctx context.Context, id Identity, identityFile string) error
}

// Manager is the public contract of the session subsystem: connect,
// disconnect, list, cleanup and liveness testing for multiplexed sessions.
// Command execution and file transfer ride on top (internal/remote).
type Manager struct {
	cfg *config.Config
	reg *Registry
	run Runner
	log logger.Logger

	diag Diagnoser

	// IdentityFile is an optional credential reference (private key path)
	// handed to the transport when establishing masters.
	IdentityFile string
}

// NewManager creates a Manager. A nil runner defaults to os/exec; a nil
// logger defaults to the env logger.
func NewManager(cfg *config.Config, run Runner, log logger.Logger) *Manager {
	if run == nil {
		run = ExecRunner{}
	}
	if log == nil {
		log = logger.NewEnvLogger("[session]")
	}
	return &Manager{
		cfg: cfg,
		reg: NewRegistry(),
		run: run,
		log: log,
	}
}

// SetDiagnoser installs the connect-failure diagnoser.
func (m *Manager) SetDiagnoser(d Diagnoser) {
	m.diag = d
}

// Registry exposes the in-process registry, mainly for tests.
func (m *Manager) Registry() *Registry {
	return m.reg
}

// Config returns the active configuration.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Runner returns the transport runner shared with the execution layer.
func (m *Manager) Runner() Runner {
	return m.run
}

// masterArgs returns the full argument list for spawning a background
// master transport bound to the session's control socket.
func (m *Manager) masterArgs(sess *Session) []string {
	args := []string{
		"-f", "-N",
		"-o", "ControlMaster=yes",
		"-S", sess.ControlPath,
		"-o", "ControlPersist=" + formatSeconds(m.cfg.PersistTimeout),
		"-o", "ServerAliveInterval=" + formatSeconds(m.cfg.ServerAliveInterval),
		"-o", "ServerAliveCountMax=" + strconv.Itoa(m.cfg.ServerAliveCount),
		"-o", "ConnectTimeout=" + formatSeconds(m.cfg.ConnectTimeout),
		"-o", "BatchMode=yes",
		"-p", strconv.Itoa(sess.Identity.Port),
	}
	if m.IdentityFile != "" {
		args = append(args, "-i", m.IdentityFile)
	}
	return append(args, sess.Identity.Destination())
}

// formatSeconds renders a duration as whole seconds for transport options.
func formatSeconds(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 1 && d > 0 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// ensureControlDir creates the control directory with owner-only access.
func (m *Manager) ensureControlDir() error {
	return os.MkdirAll(m.cfg.ControlDir, 0o700)
}

// Session returns the tracked session for id, creating the in-process
// record if needed. It does not connect.
func (m *Manager) Session(id Identity) *Session {
	sess := m.reg.GetOrCreate(id, m.cfg.ControlDir)
	sess.PersistTimeout = m.cfg.PersistTimeout
	return sess
}

// checkAlive probes the control socket with a cheap control round trip.
func (m *Manager) checkAlive(ctx context.Context, controlPath string, id Identity) (bool, error) {
	args := []string{
		"-S", controlPath,
		"-O", "check",
		"-o", "BatchMode=yes",
		"-p", strconv.Itoa(id.Port),
		id.Destination(),
	}
	_, _, exitCode, err := m.run.Run(ctx, "ssh", args...)
	if err != nil {
		return false, err
	}
	return exitCode == 0, nil
}

// sessionDescription is used in log lines and error messages.
func sessionDescription(id Identity) string {
	return fmt.Sprintf("session %s", id.Key())
}
