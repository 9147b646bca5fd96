package session

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// State tracks the connection lifecycle of a session.
type State int

const (
	// Disconnected means no master transport is known for the identity.
	Disconnected State = iota
	// Connecting means a master transport spawn is in flight.
	Connecting
	// Connected means the control socket answered a liveness probe.
	Connected
	// Stale means the socket artifact exists but no longer answers probes.
	Stale
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Stale:
		return "stale"
	default:
		return "disconnected"
	}
}

// Session is the in-process view of one multiplexed connection. The control
// socket on disk is the source of truth for liveness; Session caches the
// last observation.
type Session struct {
	Identity       Identity
	ControlPath    string
	State          State
	LastUsedAt     time.Time
	PersistTimeout time.Duration
}

// Touch records that the session was just used.
func (s *Session) Touch() {
	s.LastUsedAt = time.Now()
}

// SSHArgs returns the ssh arguments shared by every operation against this
// session: control socket, port, and non-interactive mode.
func (s *Session) SSHArgs() []string {
	return []string{
		"-S", s.ControlPath,
		"-o", "BatchMode=yes",
		"-p", strconv.Itoa(s.Identity.Port),
	}
}

// SCPArgs returns the scp arguments reusing this session's control socket.
func (s *Session) SCPArgs() []string {
	return []string{
		"-o", "ControlPath=" + s.ControlPath,
		"-o", "BatchMode=yes",
		"-P", strconv.Itoa(s.Identity.Port),
	}
}

// Meta is the sidecar metadata written beside each control socket so list
// and cleanup can reconstruct identities from the handle directory, even
// across processes.
type Meta struct {
	User      string    `json:"user"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Socket    string    `json:"socket"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity returns the identity recorded in the metadata.
func (m Meta) Identity() Identity {
	return Identity{User: m.User, Host: m.Host, Port: m.Port}
}

// writeMeta persists sidecar metadata for a freshly connected session.
func writeMeta(path string, id Identity, socket string) error {
	meta := Meta{
		User:      id.User,
		Host:      id.Host,
		Port:      id.Port,
		Socket:    socket,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// readMeta loads sidecar metadata from path.
func readMeta(path string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}
