// Package ledger audits juggle ball (work-item) records against on-disk
// claim markers. The ledger and markers are owned by the work queue and
// the workers; this package only reads and reports.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juggle-dev/keeper/internal/fsutil"
	"github.com/juggle-dev/keeper/internal/logging"
)

const (
	// LedgerFile is the append-only ball ledger, one JSON record per line.
	LedgerFile = "balls.jsonl"
	// ClaimsDir holds per-ball claim markers.
	ClaimsDir = "balls"
	// claimSuffix marks a claim file; the ball ID is the remaining stem.
	claimSuffix = ".lock.info"
)

// Ball is one work-item record from the ledger.
type Ball struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// Complete reports whether the ball reached its terminal state.
func (b Ball) Complete() bool {
	return b.State == "complete"
}

// StuckBall is a claimed-but-unfinished ball held past the claim timeout.
type StuckBall struct {
	Ball
	StartedAt time.Time     `json:"started_at"`
	Held      time.Duration `json:"held"`
}

// Auditor cross-references the ball ledger with claim markers.
type Auditor struct {
	// ClaimTimeout is the hold time past which a claim counts as stuck.
	ClaimTimeout time.Duration

	// Now supplies the current instant; nil means time.Now.
	Now func() time.Time

	log *logging.Logger
}

// NewAuditor creates an auditor with the given claim timeout.
func NewAuditor(claimTimeout time.Duration, log *logging.Logger) *Auditor {
	if log == nil {
		log = logging.NewNop()
	}
	return &Auditor{ClaimTimeout: claimTimeout, log: log}
}

type claimMarker struct {
	StartedAt string `json:"started_at"`
}

// FindStuckBalls reports balls that were claimed longer ago than the claim
// timeout and whose ledger state is not complete. A missing ledger or
// claims directory yields an empty result. Individual unreadable or
// malformed markers are skipped: the audit is best-effort, never hard-fail.
func (a *Auditor) FindStuckBalls(stateDir string) []StuckBall {
	ledgerPath := filepath.Join(stateDir, LedgerFile)
	claims := filepath.Join(stateDir, ClaimsDir)

	balls := a.readLedger(ledgerPath)
	if balls == nil {
		return nil
	}
	entries, err := os.ReadDir(claims)
	if err != nil {
		return nil
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	var stuck []StuckBall
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, claimSuffix) {
			continue
		}
		ballID := strings.TrimSuffix(name, claimSuffix)

		ball, ok := balls[ballID]
		if !ok || ball.Complete() {
			continue
		}

		var marker claimMarker
		if err := fsutil.ReadJSON(filepath.Join(claims, name), &marker); err != nil {
			a.log.Debug("skipping unreadable claim marker", "ball", ballID, "error", err)
			continue
		}
		startedAt, err := time.Parse(time.RFC3339, marker.StartedAt)
		if err != nil {
			a.log.Debug("skipping claim marker with bad timestamp", "ball", ballID, "error", err)
			continue
		}

		held := now().Sub(startedAt)
		if held > a.ClaimTimeout {
			stuck = append(stuck, StuckBall{Ball: ball, StartedAt: startedAt, Held: held})
		}
	}
	return stuck
}

// readLedger parses the ledger into a map of ball ID to its latest record.
// The ledger is append-only, so the last occurrence of an ID wins.
// Malformed lines are skipped. A missing or unreadable ledger returns nil.
func (a *Auditor) readLedger(path string) map[string]Ball {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil
	}

	balls := make(map[string]Ball)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ball Ball
		if err := json.Unmarshal(line, &ball); err != nil || ball.ID == "" {
			a.log.Debug("skipping malformed ledger line", "error", err)
			continue
		}
		balls[ball.ID] = ball
	}
	return balls
}
