package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the supervisor configuration.
type Config struct {
	// MaxAgents is the global ceiling on concurrently running juggle agents.
	MaxAgents int `mapstructure:"max_agents" yaml:"max_agents"`

	// ProjectRoots are the directories scanned for .juggle/sessions trees.
	ProjectRoots []string `mapstructure:"project_roots" yaml:"project_roots"`

	// JuggleBin is the installation path of the juggle worker binary.
	JuggleBin string `mapstructure:"juggle_bin" yaml:"juggle_bin"`

	// Provider is passed to launched agents via --provider.
	Provider string `mapstructure:"provider" yaml:"provider"`

	// StateDir is the juggle state directory holding the ball ledger.
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`

	// HeartbeatStaleAfter is the age past which a heartbeat marks an agent hung.
	HeartbeatStaleAfter time.Duration `mapstructure:"heartbeat_stale_after" yaml:"heartbeat_stale_after"`

	// ClaimTimeout is the hold time past which a claimed ball is reported stuck.
	ClaimTimeout time.Duration `mapstructure:"claim_timeout" yaml:"claim_timeout"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		MaxAgents: 3,
		ProjectRoots: []string{
			filepath.Join(home, "Development"),
			filepath.Join(home, "vanilla-project-bootstrapper"),
		},
		JuggleBin:           filepath.Join(home, ".local", "bin", "juggle"),
		Provider:            "opencode",
		StateDir:            filepath.Join(home, ".juggle"),
		HeartbeatStaleAfter: 60 * time.Minute,
		ClaimTimeout:        time.Hour,
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// starterConfig mirrors Config with durations as strings, so the emitted
// file reads "60m0s" instead of raw nanoseconds.
type starterConfig struct {
	MaxAgents           int       `yaml:"max_agents"`
	ProjectRoots        []string  `yaml:"project_roots"`
	JuggleBin           string    `yaml:"juggle_bin"`
	Provider            string    `yaml:"provider"`
	StateDir            string    `yaml:"state_dir"`
	HeartbeatStaleAfter string    `yaml:"heartbeat_stale_after"`
	ClaimTimeout        string    `yaml:"claim_timeout"`
	Log                 LogConfig `yaml:"log"`
}

// WriteDefault writes the default configuration to path atomically.
// Existing files are not overwritten unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return os.ErrExist
		}
	}

	def := Default()
	data, err := yaml.Marshal(starterConfig{
		MaxAgents:           def.MaxAgents,
		ProjectRoots:        def.ProjectRoots,
		JuggleBin:           def.JuggleBin,
		Provider:            def.Provider,
		StateDir:            def.StateDir,
		HeartbeatStaleAfter: def.HeartbeatStaleAfter.String(),
		ClaimTimeout:        def.ClaimTimeout.String(),
		Log:                 def.Log,
	})
	if err != nil {
		return err
	}

	header := []byte("# keeper configuration\n# Supervises juggle agent daemons across project roots.\n\n")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return renameio.WriteFile(path, append(header, data...), 0o644)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "keeper.yaml"
	}
	return filepath.Join(home, ".config", "keeper", "keeper.yaml")
}
