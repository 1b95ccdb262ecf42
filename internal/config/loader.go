package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (KEEPER_*, plus legacy MAX_JUGGLE_AGENTS)
// 3. Config file (--config or ~/.config/keeper/keeper.yaml)
// 4. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix("KEEPER")
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	// The cron installation historically configured the ceiling through
	// MAX_JUGGLE_AGENTS; keep honoring it alongside KEEPER_MAX_AGENTS.
	_ = l.v.BindEnv("max_agents", "KEEPER_MAX_AGENTS", "MAX_JUGGLE_AGENTS")

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("keeper")
		l.v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "keeper"))
		}
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	def := Default()

	l.v.SetDefault("max_agents", def.MaxAgents)
	l.v.SetDefault("project_roots", def.ProjectRoots)
	l.v.SetDefault("juggle_bin", def.JuggleBin)
	l.v.SetDefault("provider", def.Provider)
	l.v.SetDefault("state_dir", def.StateDir)
	l.v.SetDefault("heartbeat_stale_after", def.HeartbeatStaleAfter)
	l.v.SetDefault("claim_timeout", def.ClaimTimeout)
	l.v.SetDefault("log.level", def.Log.Level)
	l.v.SetDefault("log.format", def.Log.Format)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}
