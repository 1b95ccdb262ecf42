// Package supervisor implements the periodic sweep over juggle agent
// daemons: kill hung agents, then top the fleet back up to the configured
// ceiling. One call to Sweep is one complete invocation; the supervisor
// holds no state between invocations and must not be re-entered
// concurrently (external scheduling guarantees single-instance runs).
package supervisor

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/juggle-dev/keeper/internal/fsutil"
	"github.com/juggle-dev/keeper/internal/logging"
	"github.com/juggle-dev/keeper/internal/session"
)

// Inspector answers process-table liveness questions.
type Inspector interface {
	IsSessionRunning(sessionName string) bool
	CountActiveAgents() int
}

// Detector classifies a session's heartbeat.
type Detector interface {
	Classify(sessionDir string) session.Heartbeat
}

// Terminator stops a session's daemon processes.
type Terminator interface {
	Terminate(sessionName string)
}

// Launcher starts a daemon agent for a session.
type Launcher interface {
	Launch(sessionName, projectRoot string) error
}

// Supervisor runs the sweep.
type Supervisor struct {
	// Roots are the project roots scanned for sessions. Missing roots are
	// skipped.
	Roots []string

	// MaxAgents is the global ceiling on live agents.
	MaxAgents int

	// Bin is the juggle worker binary; sweeps abort if it is missing.
	Bin string

	// DryRun scans and classifies but neither terminates nor launches.
	DryRun bool

	// List discovers sessions for a root; nil means session.ListSessions.
	List func(projectRoot string) []session.Session

	Inspector  Inspector
	Detector   Detector
	Terminator Terminator
	Launcher   Launcher

	Log *logging.Logger
}

// Report summarizes one sweep invocation.
type Report struct {
	SweepID      string    `json:"sweep_id"`
	StartedAt    time.Time `json:"started_at"`
	DryRun       bool      `json:"dry_run,omitempty"`
	MaxAgents    int       `json:"max_agents"`
	ActiveBefore int       `json:"active_before"`
	ActiveAfter  int       `json:"active_after"`
	Terminated   []string  `json:"terminated,omitempty"`
	Launched     []string  `json:"launched,omitempty"`

	// StuckBalls is filled in by the caller when a ball audit is requested
	// alongside the sweep.
	StuckBalls int `json:"stuck_balls,omitempty"`
}

// Sweep performs one supervision pass: count active agents, terminate hung
// ones, then launch agents for idle sessions until the ceiling is reached.
// It returns an error only when the worker binary cannot be resolved; every
// other failure is logged and absorbed.
func (s *Supervisor) Sweep() (*Report, error) {
	log := s.Log
	if log == nil {
		log = logging.NewNop()
	}
	list := s.List
	if list == nil {
		list = session.ListSessions
	}

	if _, err := os.Stat(s.Bin); err != nil {
		return nil, fmt.Errorf("juggle not found at %s: %w", s.Bin, err)
	}

	rep := &Report{
		SweepID:   uuid.NewString(),
		StartedAt: time.Now(),
		DryRun:    s.DryRun,
		MaxAgents: s.MaxAgents,
	}
	log = log.WithSweep(rep.SweepID)
	log.Info("starting sweep", "dry_run", s.DryRun)

	active := s.Inspector.CountActiveAgents()
	rep.ActiveBefore = active
	log.Info("agents running", "active", active, "max", s.MaxAgents)

	// Phase 1: terminate hung agents. The active count is decremented
	// locally instead of re-queried; see the package note on the tolerated
	// drift this introduces within a single sweep.
	for _, root := range s.Roots {
		if !fsutil.DirExists(root) {
			continue
		}
		for _, sess := range list(root) {
			if !s.Inspector.IsSessionRunning(sess.Name) {
				continue
			}
			hb := s.Detector.Classify(sess.Dir)
			if !hb.Hung() {
				continue
			}
			log.WithSession(sess.Name).Info("killing hung agent",
				"status", hb.Status, "heartbeat_age", hb.Age.Round(time.Second))
			if !s.DryRun {
				s.Terminator.Terminate(sess.Name)
			}
			active--
			rep.Terminated = append(rep.Terminated, sess.Name)
		}
	}

	// Phase 2: launch replacements up to the ceiling, first discovered
	// first launched. No prioritization by age or workload.
	deficit := s.MaxAgents - active
	if deficit > 0 {
		log.Info("starting additional agents", "count", deficit)

		for _, root := range s.Roots {
			if deficit <= 0 {
				break
			}
			if !fsutil.DirExists(root) {
				continue
			}
			for _, sess := range list(root) {
				if deficit <= 0 {
					break
				}
				if s.Inspector.IsSessionRunning(sess.Name) {
					continue
				}
				if s.DryRun {
					rep.Launched = append(rep.Launched, sess.Name)
				} else if err := s.Launcher.Launch(sess.Name, sess.Root); err != nil {
					// No retry within a sweep; the next invocation is the
					// retry mechanism.
					log.WithSession(sess.Name).Warn("launch failed", "error", err)
				} else {
					rep.Launched = append(rep.Launched, sess.Name)
				}
				deficit--
			}
		}
	}

	rep.ActiveAfter = active + len(rep.Launched)
	log.Info("sweep completed",
		"terminated", len(rep.Terminated),
		"launched", len(rep.Launched),
		"active", rep.ActiveAfter)

	return rep, nil
}
