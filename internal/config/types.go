package config

import (
	"os"
	"path/filepath"
	"time"
)

// RetryConfig holds the retry/backoff tunables for one operation-kind family.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration `yaml:"base_delay" mapstructure:"base_delay"`

	// Multiplier grows the delay exponentially between attempts.
	Multiplier float64 `yaml:"multiplier" mapstructure:"multiplier"`

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration `yaml:"max_delay" mapstructure:"max_delay"`

	// FatalExitCodes lists exit codes that stop retrying immediately.
	// Codes not listed are treated as retryable.
	FatalExitCodes []int `yaml:"fatal_exit_codes" mapstructure:"fatal_exit_codes"`
}

// Config represents the complete sshmux configuration.
type Config struct {
	// ControlDir is where control sockets and their sidecar metadata live.
	ControlDir string `yaml:"control_dir" mapstructure:"control_dir"`

	// PersistTimeout is how long a master connection stays alive after
	// last use. Passed to the transport as ControlPersist; expiry is owned
	// by the transport, not by sshmux.
	PersistTimeout time.Duration `yaml:"persist_timeout" mapstructure:"persist_timeout"`

	// ConnectTimeout bounds master connection establishment.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// ServerAliveInterval and ServerAliveCount control transport keepalives.
	ServerAliveInterval time.Duration `yaml:"server_alive_interval" mapstructure:"server_alive_interval"`
	ServerAliveCount    int           `yaml:"server_alive_count" mapstructure:"server_alive_count"`

	// OperationTimeout bounds a single exec/copy call. Zero means no limit.
	OperationTimeout time.Duration `yaml:"operation_timeout" mapstructure:"operation_timeout"`

	// Retry tunables, attached per operation-kind family.
	Retry RetryFamilies `yaml:"retry" mapstructure:"retry"`
}

// RetryFamilies groups retry policies by operation kind.
type RetryFamilies struct {
	Command  RetryConfig `yaml:"command" mapstructure:"command"`
	Transfer RetryConfig `yaml:"transfer" mapstructure:"transfer"`
}

// DefaultControlDir returns the default location for control sockets.
func DefaultControlDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".ssh", "sshmux")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ControlDir:          DefaultControlDir(),
		PersistTimeout:      10 * time.Minute,
		ConnectTimeout:      10 * time.Second,
		ServerAliveInterval: 10 * time.Second,
		ServerAliveCount:    3,
		OperationTimeout:    0,
		Retry: RetryFamilies{
			Command: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   1 * time.Second,
				Multiplier:  2,
				MaxDelay:    60 * time.Second,
				// 126/127 mean the remote shell could not run the command
				// at all; retrying cannot help.
				FatalExitCodes: []int{126, 127},
			},
			Transfer: RetryConfig{
				MaxAttempts:    4,
				BaseDelay:      2 * time.Second,
				Multiplier:     2,
				MaxDelay:       120 * time.Second,
				FatalExitCodes: []int{},
			},
		},
	}
}
