package config

import "fmt"

// Validate checks the configuration for values the supervisor cannot run with.
// A MaxAgents of zero is legal: sweeps then only ever terminate hung agents.
func (c *Config) Validate() error {
	if c.MaxAgents < 0 {
		return fmt.Errorf("max_agents must be >= 0, got %d", c.MaxAgents)
	}
	if c.JuggleBin == "" {
		return fmt.Errorf("juggle_bin must not be empty")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider must not be empty")
	}
	if c.HeartbeatStaleAfter <= 0 {
		return fmt.Errorf("heartbeat_stale_after must be positive, got %s", c.HeartbeatStaleAfter)
	}
	if c.ClaimTimeout <= 0 {
		return fmt.Errorf("claim_timeout must be positive, got %s", c.ClaimTimeout)
	}
	for i, root := range c.ProjectRoots {
		if root == "" {
			return fmt.Errorf("project_roots[%d] is empty", i)
		}
	}
	return nil
}
