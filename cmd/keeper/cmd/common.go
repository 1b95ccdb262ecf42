package cmd

import (
	"encoding/json"
	"io"

	"github.com/spf13/viper"

	"github.com/juggle-dev/keeper/internal/agent"
	"github.com/juggle-dev/keeper/internal/config"
	"github.com/juggle-dev/keeper/internal/logging"
	"github.com/juggle-dev/keeper/internal/proctable"
	"github.com/juggle-dev/keeper/internal/session"
	"github.com/juggle-dev/keeper/internal/supervisor"
)

// loadConfig loads the effective configuration, with CLI flags bound to
// the shared viper instance taking precedence.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	return loader.Load()
}

// newLogger builds the logger from the effective configuration.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// buildSupervisor wires the supervisor from live components.
func buildSupervisor(cfg *config.Config, log *logging.Logger, dryRun bool) *supervisor.Supervisor {
	inspector := proctable.NewInspector(nil)
	return &supervisor.Supervisor{
		Roots:      cfg.ProjectRoots,
		MaxAgents:  cfg.MaxAgents,
		Bin:        cfg.JuggleBin,
		DryRun:     dryRun,
		Inspector:  inspector,
		Detector:   session.NewDetector(cfg.HeartbeatStaleAfter),
		Terminator: agent.NewTerminator(inspector, log),
		Launcher:   agent.NewLauncher(cfg.JuggleBin, cfg.Provider, log),
		Log:        log,
	}
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
