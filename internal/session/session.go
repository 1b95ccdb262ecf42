// Package session discovers juggle sessions under project roots and
// classifies their heartbeat state.
package session

import (
	"os"
	"path/filepath"
)

// Session is one unit of ongoing work, backed by a directory under a
// project root's .juggle/sessions tree. Sessions are created by external
// tooling before supervision runs; this package only reads them.
type Session struct {
	Name string
	Root string
	Dir  string
}

// ListSessions lists the sessions of a project root. A missing root or
// missing sessions directory yields an empty result, not an error.
// Ordering follows directory iteration and is not guaranteed stable.
func ListSessions(projectRoot string) []Session {
	sessionsDir := filepath.Join(projectRoot, ".juggle", "sessions")
	entries, err := os.ReadDir(sessionsDir)
	if err != nil {
		return nil
	}

	var sessions []Session
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sessions = append(sessions, Session{
			Name: entry.Name(),
			Root: projectRoot,
			Dir:  filepath.Join(sessionsDir, entry.Name()),
		})
	}
	return sessions
}
