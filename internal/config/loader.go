package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/natefield/sshmux/internal/errors"
)

const (
	// GlobalConfigDir is the directory for global config, under $HOME.
	GlobalConfigDir = ".config/sshmux"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix namespaces environment overrides (SSHMUX_CONTROL_DIR, ...).
	EnvPrefix = "SSHMUX"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found: "+path,
				"Check the path, or rely on defaults and SSHMUX_* environment variables")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// LoadOrDefault loads config from the explicit path if given, from the
// global config file if present, or returns defaults (still honoring
// SSHMUX_* environment overrides) when no file exists.
func LoadOrDefault(explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return Load(global)
		}
	}

	// No file: defaults + environment only.
	return parseConfig(newViper(), "")
}

// newViper creates a viper instance with env bindings and defaults applied.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every recognized option so AutomaticEnv picks it up.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("control_dir", def.ControlDir)
	v.SetDefault("persist_timeout", def.PersistTimeout)
	v.SetDefault("connect_timeout", def.ConnectTimeout)
	v.SetDefault("server_alive_interval", def.ServerAliveInterval)
	v.SetDefault("server_alive_count", def.ServerAliveCount)
	v.SetDefault("operation_timeout", def.OperationTimeout)

	v.SetDefault("retry.command.max_attempts", def.Retry.Command.MaxAttempts)
	v.SetDefault("retry.command.base_delay", def.Retry.Command.BaseDelay)
	v.SetDefault("retry.command.multiplier", def.Retry.Command.Multiplier)
	v.SetDefault("retry.command.max_delay", def.Retry.Command.MaxDelay)
	v.SetDefault("retry.command.fatal_exit_codes", def.Retry.Command.FatalExitCodes)

	v.SetDefault("retry.transfer.max_attempts", def.Retry.Transfer.MaxAttempts)
	v.SetDefault("retry.transfer.base_delay", def.Retry.Transfer.BaseDelay)
	v.SetDefault("retry.transfer.multiplier", def.Retry.Transfer.Multiplier)
	v.SetDefault("retry.transfer.max_delay", def.Retry.Transfer.MaxDelay)
	v.SetDefault("retry.transfer.fatal_exit_codes", def.Retry.Transfer.FatalExitCodes)
}

// parseConfig converts viper state to our Config struct and validates it.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	cfg.ControlDir = expandPath(cfg.ControlDir)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandPath expands a leading ~/ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
