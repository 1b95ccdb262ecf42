// Package agent starts and stops juggle agent daemons.
package agent

import (
	"github.com/shirou/gopsutil/v3/process"

	"github.com/juggle-dev/keeper/internal/logging"
)

// PIDFinder locates the daemon PIDs for a session.
type PIDFinder interface {
	MatchingPIDs(sessionName string) []int32
}

// Terminator stops hung agent daemons.
type Terminator struct {
	finder PIDFinder
	signal func(pid int32, graceful bool) error
	log    *logging.Logger
}

// NewTerminator creates a terminator that signals processes found by finder.
func NewTerminator(finder PIDFinder, log *logging.Logger) *Terminator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Terminator{
		finder: finder,
		signal: signalProcess,
		log:    log,
	}
}

func signalProcess(pid int32, graceful bool) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	if graceful {
		return p.Terminate()
	}
	return p.Kill()
}

// Terminate sends a graceful termination to every daemon process of the
// session, then immediately a forced kill to whatever still matches. There
// is no wait between the phases: the supervisor is a short periodic sweep
// and guaranteed cleanup wins over graceful-shutdown latency.
func (t *Terminator) Terminate(sessionName string) {
	log := t.log.WithSession(sessionName)

	for _, pid := range t.finder.MatchingPIDs(sessionName) {
		if err := t.signal(pid, true); err != nil {
			log.Debug("graceful signal failed", "pid", pid, "error", err)
		}
	}

	// Re-match before the forced phase: processes may have exited already,
	// and a fresh match mirrors the pkill-twice behavior this replaces.
	for _, pid := range t.finder.MatchingPIDs(sessionName) {
		if err := t.signal(pid, false); err != nil {
			log.Debug("forced signal failed", "pid", pid, "error", err)
		}
	}
}
