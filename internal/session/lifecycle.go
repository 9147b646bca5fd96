package session

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/natefield/sshmux/internal/errors"
)

// Info describes one session observed in the control directory.
type Info struct {
	Identity  Identity
	Live      bool
	CreatedAt time.Time
}

// Alive reports whether a live control socket exists for id. No side
// effects beyond the probe round trip.
func (m *Manager) Alive(ctx context.Context, id Identity) (bool, error) {
	return m.checkAlive(ctx, id.ControlPath(m.cfg.ControlDir), id)
}

// Disconnect gracefully terminates the master transport for id and removes
// its artifacts. Disconnecting an identity with no live session is not an
// error; the artifacts are reaped either way.
func (m *Manager) Disconnect(ctx context.Context, id Identity) error {
	sess := m.Session(id)

	args := []string{
		"-S", sess.ControlPath,
		"-O", "exit",
		"-o", "BatchMode=yes",
		"-p", strconv.Itoa(id.Port),
		id.Destination(),
	}
	_, stderr, exitCode, err := m.run.Run(ctx, "ssh", args...)
	if err != nil {
		return err
	}
	if exitCode != 0 && !strings.Contains(string(stderr), "No such file") {
		m.log.Debug("exit request for %s returned %d: %s", id.Key(), exitCode, strings.TrimSpace(string(stderr)))
	}

	m.removeArtifacts(sess)
	sess.State = Disconnected
	m.reg.Remove(id)
	m.log.Info("%s disconnected", sessionDescription(id))
	return nil
}

// List enumerates sessions recorded in the control directory and probes
// each for liveness.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	metas, err := filepath.Glob(filepath.Join(m.cfg.ControlDir, "mux-*.json"))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			"Couldn't scan control directory "+m.cfg.ControlDir,
			"Check the directory exists and is readable")
	}

	infos := make([]Info, 0, len(metas))
	for _, metaPath := range metas {
		meta, err := readMeta(metaPath)
		if err != nil {
			m.log.Warn("unreadable session metadata %s: %v", metaPath, err)
			continue
		}
		id := meta.Identity()
		live, err := m.checkAlive(ctx, meta.Socket, id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, Info{
			Identity:  id,
			Live:      live,
			CreatedAt: meta.CreatedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Identity.Key() < infos[j].Identity.Key()
	})
	return infos, nil
}

// Cleanup scans the control directory for artifacts that exist but fail a
// liveness probe (e.g. left by a crashed master) and removes them. Returns
// the identities whose artifacts were reaped. Live sessions are never
// touched: idle expiry belongs to the transport's persist timeout.
func (m *Manager) Cleanup(ctx context.Context) ([]Identity, error) {
	var removed []Identity

	metas, err := filepath.Glob(filepath.Join(m.cfg.ControlDir, "mux-*.json"))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			"Couldn't scan control directory "+m.cfg.ControlDir,
			"Check the directory exists and is readable")
	}

	known := make(map[string]bool)
	for _, metaPath := range metas {
		meta, err := readMeta(metaPath)
		if err != nil {
			// A sidecar we can't parse is itself a stale artifact.
			m.log.Warn("removing unreadable session metadata %s: %v", metaPath, err)
			os.Remove(metaPath)
			continue
		}
		known[meta.Socket] = true

		id := meta.Identity()
		live, err := m.checkAlive(ctx, meta.Socket, id)
		if err != nil {
			return removed, err
		}
		if live {
			continue
		}

		os.Remove(meta.Socket)
		os.Remove(metaPath)
		if sess := m.reg.Get(id); sess != nil {
			sess.State = Disconnected
		}
		removed = append(removed, id)
		m.log.Info("reaped stale handle for %s", id.Key())
	}

	// Sockets without a sidecar can't be probed (no destination); a master
	// that still owned one would have a sidecar, so treat them as stale.
	socks, err := filepath.Glob(filepath.Join(m.cfg.ControlDir, "mux-*.sock"))
	if err != nil {
		return removed, nil
	}
	for _, sock := range socks {
		if !known[sock] {
			os.Remove(sock)
			m.log.Info("reaped orphan control socket %s", sock)
		}
	}

	return removed, nil
}

// removeArtifacts deletes the socket and sidecar for a session, if present.
func (m *Manager) removeArtifacts(sess *Session) {
	os.Remove(sess.ControlPath)
	os.Remove(sess.Identity.MetaPath(m.cfg.ControlDir))
}
