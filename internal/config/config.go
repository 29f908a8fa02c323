// Package config loads h5compound settings from defaults, an optional YAML
// file, H5COMPOUND_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. H5COMPOUND_LOG_LEVEL.
const EnvPrefix = "H5COMPOUND"

// Config holds the process settings.
type Config struct {
	Log      LogConfig
	Engine   EngineConfig
	Dispatch DispatchConfig
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string
	Format string // "console" or "json"
}

// EngineConfig holds engine defaults.
type EngineConfig struct {
	Quiet bool // log only warnings and errors
}

// DispatchConfig controls the dispatcher's file lock.
type DispatchConfig struct {
	LockTimeout time.Duration
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"quiet":        "engine.quiet",
	"lock-timeout": "dispatch.lock_timeout",
}

// Load builds the configuration. file names a config file to read; when
// empty, h5compound.yaml is looked up in the working directory and in
// $HOME/.h5compound, and a missing file is not an error. Flags present in
// flags and changed on the command line override everything else; flags may
// be nil.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("h5compound")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.h5compound")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Engine: EngineConfig{
			Quiet: v.GetBool("engine.quiet"),
		},
		Dispatch: DispatchConfig{
			LockTimeout: v.GetDuration("dispatch.lock_timeout"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("engine.quiet", false)
	v.SetDefault("dispatch.lock_timeout", 30*time.Second)
}

// Validate rejects settings the program cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format %q: want console or json", c.Log.Format)
	}
	if c.Dispatch.LockTimeout <= 0 {
		return fmt.Errorf("invalid dispatch.lock_timeout %s: must be positive", c.Dispatch.LockTimeout)
	}
	return nil
}
