package config

import (
	"fmt"

	"github.com/natefield/sshmux/internal/errors"
)

// Validate checks a loaded Config for values that cannot work at runtime.
func Validate(cfg *Config) error {
	if cfg.ControlDir == "" {
		return errors.New(errors.ErrConfig,
			"control_dir is empty",
			"Set control_dir (or SSHMUX_CONTROL_DIR) to a writable directory")
	}
	if cfg.PersistTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"persist_timeout must be positive",
			"Use a duration like 10m; idle expiry is delegated to the transport")
	}
	if cfg.ConnectTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"connect_timeout must be positive",
			"Use a duration like 10s")
	}
	if cfg.ServerAliveCount < 1 {
		return errors.New(errors.ErrConfig,
			"server_alive_count must be at least 1",
			"The transport needs at least one missed keepalive before giving up")
	}

	for _, fam := range []struct {
		name string
		rc   RetryConfig
	}{
		{"command", cfg.Retry.Command},
		{"transfer", cfg.Retry.Transfer},
	} {
		if err := validateRetry(fam.name, fam.rc); err != nil {
			return err
		}
	}
	return nil
}

func validateRetry(family string, rc RetryConfig) error {
	if rc.MaxAttempts < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("retry.%s.max_attempts must be at least 1", family),
			"An operation always gets at least one attempt")
	}
	if rc.BaseDelay < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("retry.%s.base_delay cannot be negative", family),
			"Use a duration like 1s")
	}
	if rc.Multiplier < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("retry.%s.multiplier must be at least 1", family),
			"Backoff must not shrink between attempts")
	}
	if rc.MaxDelay < rc.BaseDelay {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("retry.%s.max_delay is below base_delay", family),
			"Raise max_delay or lower base_delay")
	}
	return nil
}
