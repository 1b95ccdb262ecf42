package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/juggle-dev/keeper/internal/fsutil"
)

// StateFile is the heartbeat record a juggle agent writes in its session
// directory. The worker owns it; the supervisor only reads it.
const StateFile = "agent.state"

// Status classifies a session's heartbeat.
type Status string

const (
	// StatusFresh means the heartbeat is recent enough.
	StatusFresh Status = "fresh"
	// StatusHung means the heartbeat is stale, unparseable, or incomplete.
	StatusHung Status = "hung"
	// StatusNeverStarted means no heartbeat record exists.
	StatusNeverStarted Status = "never_started"
)

// Heartbeat is the classification result for one session.
type Heartbeat struct {
	Status      Status
	LastUpdated time.Time
	Age         time.Duration
}

// Hung reports whether the session's agent should be treated as hung.
// Anything other than a fresh heartbeat is hung: a missing or corrupt
// record must never leave a dead process alive.
func (h Heartbeat) Hung() bool {
	return h.Status != StatusFresh
}

// Detector classifies session heartbeats against a staleness bound.
type Detector struct {
	// StaleAfter is the heartbeat age past which an agent is hung.
	StaleAfter time.Duration

	// Now supplies the current instant; nil means time.Now.
	Now func() time.Time
}

// NewDetector creates a detector with the given staleness bound.
func NewDetector(staleAfter time.Duration) *Detector {
	return &Detector{StaleAfter: staleAfter}
}

type heartbeatRecord struct {
	LastUpdated string `json:"last_updated"`
}

// Classify reads and classifies the heartbeat of a session directory.
// It never returns an error: every read or parse failure degrades to the
// conservative classification.
func (d *Detector) Classify(sessionDir string) Heartbeat {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	path := filepath.Join(sessionDir, StateFile)
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Heartbeat{Status: StatusNeverStarted}
		}
		return Heartbeat{Status: StatusHung}
	}

	var record heartbeatRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return Heartbeat{Status: StatusHung}
	}
	if record.LastUpdated == "" {
		return Heartbeat{Status: StatusHung}
	}

	last, err := time.Parse(time.RFC3339, record.LastUpdated)
	if err != nil {
		return Heartbeat{Status: StatusHung}
	}

	age := now().Sub(last)
	status := StatusFresh
	if age > d.StaleAfter {
		status = StatusHung
	}
	return Heartbeat{Status: status, LastUpdated: last, Age: age}
}
