package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	def := Default()
	assert.Equal(t, 3, def.MaxAgents)
	assert.Equal(t, "opencode", def.Provider)
	assert.Equal(t, 60*time.Minute, def.HeartbeatStaleAfter)
	assert.Equal(t, time.Hour, def.ClaimTimeout)
	assert.Len(t, def.ProjectRoots, 2)
	assert.Contains(t, def.JuggleBin, filepath.Join(".local", "bin", "juggle"))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keeper.yaml")
	content := `
max_agents: 5
provider: claude
project_roots:
  - /srv/work
heartbeat_stale_after: 30m
claim_timeout: 2h
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxAgents)
	assert.Equal(t, "claude", cfg.Provider)
	assert.Equal(t, []string{"/srv/work"}, cfg.ProjectRoots)
	assert.Equal(t, 30*time.Minute, cfg.HeartbeatStaleAfter)
	assert.Equal(t, 2*time.Hour, cfg.ClaimTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset keys keep defaults.
	assert.NotEmpty(t, cfg.JuggleBin)
	assert.NotEmpty(t, cfg.StateDir)
}

func TestLegacyEnvOverride(t *testing.T) {
	t.Setenv("MAX_JUGGLE_AGENTS", "7")

	dir := t.TempDir()
	path := filepath.Join(dir, "keeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_agents: 2\n"), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxAgents, "env must win over config file")
}

func TestKeeperEnvOverride(t *testing.T) {
	t.Setenv("KEEPER_PROVIDER", "gemini")

	dir := t.TempDir()
	path := filepath.Join(dir, "keeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: opencode\n"), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default ok", func(*Config) {}, false},
		{"zero ceiling ok", func(c *Config) { c.MaxAgents = 0 }, false},
		{"negative ceiling", func(c *Config) { c.MaxAgents = -1 }, true},
		{"empty binary", func(c *Config) { c.JuggleBin = "" }, true},
		{"empty provider", func(c *Config) { c.Provider = "" }, true},
		{"zero stale bound", func(c *Config) { c.HeartbeatStaleAfter = 0 }, true},
		{"negative claim timeout", func(c *Config) { c.ClaimTimeout = -time.Minute }, true},
		{"empty root entry", func(c *Config) { c.ProjectRoots = []string{""} }, true},
		{"no roots ok", func(c *Config) { c.ProjectRoots = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "keeper.yaml")

	require.NoError(t, WriteDefault(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_agents: 3")
	assert.Contains(t, string(data), "provider: opencode")

	// Refuses to clobber without force.
	err = WriteDefault(path, false)
	assert.ErrorIs(t, err, os.ErrExist)

	require.NoError(t, WriteDefault(path, true))
}

func TestWrittenDefaultRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keeper.yaml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, Default().MaxAgents, cfg.MaxAgents)
	assert.Equal(t, Default().HeartbeatStaleAfter, cfg.HeartbeatStaleAfter)
}
