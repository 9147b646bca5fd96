package session

import (
	"crypto/sha256"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"

	"github.com/natefield/sshmux/internal/errors"
)

// Identity names a reusable session: one (user, host, port) tuple maps to
// at most one live control socket.
type Identity struct {
	User string
	Host string
	Port int
}

// ParseIdentity parses "[user@]host[:port]" and fills missing fields from
// ~/.ssh/config (HostName, User, Port) and process defaults.
func ParseIdentity(spec string) (Identity, error) {
	if strings.TrimSpace(spec) == "" {
		return Identity{}, errors.New(errors.ErrConfig,
			"Empty identity",
			"Use [user@]host[:port], e.g. ubuntu@10.0.0.5:22")
	}

	id := Identity{}
	host := spec

	if atIdx := strings.Index(host, "@"); atIdx != -1 {
		id.User = host[:atIdx]
		host = host[atIdx+1:]
	}

	if colonIdx := strings.LastIndex(host, ":"); colonIdx != -1 {
		portStr := host[colonIdx+1:]
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return Identity{}, errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' is not a valid port", portStr),
				"Ports are numbers between 1 and 65535")
		}
		id.Port = port
		host = host[:colonIdx]
	}

	if host == "" {
		return Identity{}, errors.New(errors.ErrConfig,
			"Identity has no host",
			"Use [user@]host[:port], e.g. ubuntu@10.0.0.5:22")
	}
	id.Host = host

	id.applySSHConfig(host)

	if id.User == "" {
		id.User = currentUser()
	}
	if id.Port == 0 {
		id.Port = 22
	}

	return id, nil
}

// applySSHConfig resolves HostName/User/Port defaults from ~/.ssh/config
// for the given alias. Values given explicitly in the target string win.
func (id *Identity) applySSHConfig(alias string) {
	if hostname, err := ssh_config.GetStrict(alias, "HostName"); err == nil && hostname != "" {
		id.Host = hostname
	}
	if id.User == "" {
		if user, err := ssh_config.GetStrict(alias, "User"); err == nil && user != "" {
			id.User = user
		}
	}
	if id.Port == 0 {
		if portStr, err := ssh_config.GetStrict(alias, "Port"); err == nil && portStr != "" {
			if port, err := strconv.Atoi(portStr); err == nil {
				id.Port = port
			}
		}
	}
}

// Key returns the canonical registry key for this identity.
func (id Identity) Key() string {
	return fmt.Sprintf("%s@%s:%d", id.User, id.Host, id.Port)
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return id.Key()
}

// Destination returns the user@host argument for ssh/scp.
func (id Identity) Destination() string {
	return id.User + "@" + id.Host
}

// Address returns host:port for dialing.
func (id Identity) Address() string {
	return net.JoinHostPort(id.Host, strconv.Itoa(id.Port))
}

// hash returns a short collision-resistant digest of the identity key.
// Socket paths have a tight length limit on most platforms, so the
// artifact names carry a digest instead of the raw key.
func (id Identity) hash() string {
	sum := sha256.Sum256([]byte(id.Key()))
	return fmt.Sprintf("%x", sum[:8])
}

// ControlPath returns the control socket path for this identity under dir.
func (id Identity) ControlPath(dir string) string {
	return filepath.Join(dir, "mux-"+id.hash()+".sock")
}

// MetaPath returns the sidecar metadata path for this identity under dir.
func (id Identity) MetaPath(dir string) string {
	return filepath.Join(dir, "mux-"+id.hash()+".json")
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}
