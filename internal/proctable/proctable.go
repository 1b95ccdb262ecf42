// Package proctable answers liveness questions about juggle agent daemons
// by inspecting the OS process table. Nothing is cached between calls:
// every answer comes from a fresh snapshot, so there is no PID registry to
// go stale and no PID-reuse hazard to handle.
package proctable

import (
	"regexp"

	"github.com/shirou/gopsutil/v3/process"
)

// Entry is one process-table row: a PID and its full command line.
type Entry struct {
	PID     int32
	Cmdline string
}

// Table provides process-table snapshots. The system implementation reads
// the live OS table; tests substitute a fixed set of entries.
type Table interface {
	Snapshot() ([]Entry, error)
}

// SystemTable reads the live process table via gopsutil.
type SystemTable struct{}

// Snapshot returns the current process table. Rows whose command line
// cannot be read (already-exited or inaccessible processes) are skipped.
func (SystemTable) Snapshot() ([]Entry, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(procs))
	for _, p := range procs {
		cmdline, err := p.Cmdline()
		if err != nil || cmdline == "" {
			continue
		}
		entries = append(entries, Entry{PID: p.Pid, Cmdline: cmdline})
	}
	return entries, nil
}

// daemonPattern matches any juggle agent daemon regardless of session.
var daemonPattern = regexp.MustCompile(`juggle.*agent.*run.*--daemon`)

// SessionPattern returns the pattern matching the daemon for one session.
func SessionPattern(sessionName string) *regexp.Regexp {
	return regexp.MustCompile(`juggle.*agent.*run.*` + regexp.QuoteMeta(sessionName) + `.*--daemon`)
}

// Inspector answers liveness questions against a Table.
type Inspector struct {
	table Table
}

// NewInspector creates an inspector. A nil table means the live OS table.
func NewInspector(table Table) *Inspector {
	if table == nil {
		table = SystemTable{}
	}
	return &Inspector{table: table}
}

// IsSessionRunning reports whether a daemon process for the session exists.
// A failed snapshot reports not running.
func (i *Inspector) IsSessionRunning(sessionName string) bool {
	return len(i.MatchingPIDs(sessionName)) > 0
}

// MatchingPIDs returns the PIDs of all daemon processes for the session.
func (i *Inspector) MatchingPIDs(sessionName string) []int32 {
	entries, err := i.table.Snapshot()
	if err != nil {
		return nil
	}

	pattern := SessionPattern(sessionName)
	var pids []int32
	for _, e := range entries {
		if pattern.MatchString(e.Cmdline) {
			pids = append(pids, e.PID)
		}
	}
	return pids
}

// CountActiveAgents counts juggle agent daemons across all sessions.
// A failed snapshot counts as zero agents. That is fail-open: a transient
// inspection failure biases the supervisor toward launching rather than
// holding back, and the next sweep self-corrects.
func (i *Inspector) CountActiveAgents() int {
	entries, err := i.table.Snapshot()
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if daemonPattern.MatchString(e.Cmdline) {
			count++
		}
	}
	return count
}
