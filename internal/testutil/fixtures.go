package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ProjectRoot is a temporary juggle project root for tests.
type ProjectRoot struct {
	Path string
	t    *testing.T
}

// NewProjectRoot creates a project root with an empty sessions directory.
func NewProjectRoot(t *testing.T) *ProjectRoot {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".juggle", "sessions"), 0o755); err != nil {
		t.Fatalf("creating sessions dir: %v", err)
	}
	return &ProjectRoot{Path: root, t: t}
}

// AddSession creates a session directory and returns its path.
func (r *ProjectRoot) AddSession(name string) string {
	r.t.Helper()
	dir := filepath.Join(r.Path, ".juggle", "sessions", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.t.Fatalf("creating session %s: %v", name, err)
	}
	return dir
}

// WriteHeartbeat writes an agent.state heartbeat for a session, aged
// relative to now.
func (r *ProjectRoot) WriteHeartbeat(name string, age time.Duration) {
	r.t.Helper()
	dir := r.AddSession(name)
	last := time.Now().Add(-age).Format(time.RFC3339)
	content := fmt.Sprintf(`{"last_updated": %q}`, last)
	if err := os.WriteFile(filepath.Join(dir, "agent.state"), []byte(content), 0o644); err != nil {
		r.t.Fatalf("writing heartbeat: %v", err)
	}
}

// StateDir is a temporary juggle state directory (ledger + claims).
type StateDir struct {
	Path string
	t    *testing.T
}

// NewStateDir creates an empty juggle state directory.
func NewStateDir(t *testing.T) *StateDir {
	t.Helper()
	return &StateDir{Path: t.TempDir(), t: t}
}

// WriteLedger writes ledger lines to balls.jsonl.
func (s *StateDir) WriteLedger(lines ...string) {
	s.t.Helper()
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(filepath.Join(s.Path, "balls.jsonl"), []byte(content), 0o644); err != nil {
		s.t.Fatalf("writing ledger: %v", err)
	}
}

// WriteClaim writes a claim marker for a ball, started at the given time.
func (s *StateDir) WriteClaim(ballID string, startedAt time.Time) {
	s.t.Helper()
	claims := filepath.Join(s.Path, "balls")
	if err := os.MkdirAll(claims, 0o755); err != nil {
		s.t.Fatalf("creating claims dir: %v", err)
	}
	content := fmt.Sprintf(`{"started_at": %q}`, startedAt.Format(time.RFC3339))
	path := filepath.Join(claims, ballID+".lock.info")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		s.t.Fatalf("writing claim: %v", err)
	}
}

// WriteWorkerBin creates a stub juggle binary and returns its path.
func WriteWorkerBin(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "juggle")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("writing worker stub: %v", err)
	}
	return bin
}
