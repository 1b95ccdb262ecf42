package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juggle-dev/keeper/internal/logging"
	"github.com/juggle-dev/keeper/internal/session"
)

// fakeInspector simulates the process table. Launch and terminate fakes
// mutate it so consecutive sweeps see the table a real run would.
type fakeInspector struct {
	running map[string]bool
}

func (f *fakeInspector) IsSessionRunning(name string) bool {
	return f.running[name]
}

func (f *fakeInspector) CountActiveAgents() int {
	n := 0
	for _, up := range f.running {
		if up {
			n++
		}
	}
	return n
}

type fakeTerminator struct {
	inspector *fakeInspector
	killed    []string
}

func (f *fakeTerminator) Terminate(name string) {
	f.killed = append(f.killed, name)
	f.inspector.running[name] = false
}

type fakeLauncher struct {
	inspector *fakeInspector
	launched  []string
	fail      map[string]bool
}

func (f *fakeLauncher) Launch(name, _ string) error {
	if f.fail[name] {
		return fmt.Errorf("spawn failed for %s", name)
	}
	f.launched = append(f.launched, name)
	f.inspector.running[name] = true
	return nil
}

// staticDetector classifies by session directory base name.
type staticDetector struct {
	hung map[string]bool
}

func (d staticDetector) Classify(dir string) session.Heartbeat {
	if d.hung[filepath.Base(dir)] {
		return session.Heartbeat{Status: session.StatusHung, Age: 2 * time.Hour}
	}
	return session.Heartbeat{Status: session.StatusFresh, Age: time.Minute}
}

type fixture struct {
	sup       *Supervisor
	inspector *fakeInspector
	term      *fakeTerminator
	launch    *fakeLauncher
}

// newFixture builds a supervisor over a real root directory containing the
// named sessions, with a dummy worker binary.
func newFixture(t *testing.T, sessions ...string) *fixture {
	t.Helper()

	root := t.TempDir()
	for _, name := range sessions {
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".juggle", "sessions", name), 0o755))
	}

	bin := filepath.Join(t.TempDir(), "juggle")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	inspector := &fakeInspector{running: map[string]bool{}}
	term := &fakeTerminator{inspector: inspector}
	launch := &fakeLauncher{inspector: inspector, fail: map[string]bool{}}

	return &fixture{
		sup: &Supervisor{
			Roots:      []string{root},
			MaxAgents:  3,
			Bin:        bin,
			Inspector:  inspector,
			Detector:   staticDetector{},
			Terminator: term,
			Launcher:   launch,
			Log:        logging.NewNop(),
		},
		inspector: inspector,
		term:      term,
		launch:    launch,
	}
}

func TestSweepMissingBinaryAborts(t *testing.T) {
	f := newFixture(t, "s1")
	f.sup.Bin = filepath.Join(t.TempDir(), "absent")

	rep, err := f.sup.Sweep()
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.Empty(t, f.term.killed)
	assert.Empty(t, f.launch.launched)
}

func TestSweepTerminatesHungAgents(t *testing.T) {
	f := newFixture(t, "hung-one", "healthy-one")
	f.inspector.running["hung-one"] = true
	f.inspector.running["healthy-one"] = true
	f.sup.Detector = staticDetector{hung: map[string]bool{"hung-one": true}}
	f.sup.MaxAgents = 0 // isolate the termination phase

	rep, err := f.sup.Sweep()
	require.NoError(t, err)

	assert.Equal(t, []string{"hung-one"}, f.term.killed)
	assert.Equal(t, []string{"hung-one"}, rep.Terminated)
	assert.Equal(t, 2, rep.ActiveBefore)
	assert.Equal(t, 1, rep.ActiveAfter)
}

func TestHungOnlyEvaluatedForRunningSessions(t *testing.T) {
	// A session with no process is never terminated, however stale its
	// heartbeat: hung is a property of running agents.
	f := newFixture(t, "idle-stale")
	f.sup.Detector = staticDetector{hung: map[string]bool{"idle-stale": true}}
	f.sup.MaxAgents = 0

	rep, err := f.sup.Sweep()
	require.NoError(t, err)
	assert.Empty(t, f.term.killed)
	assert.Empty(t, rep.Terminated)
}

func TestSweepLaunchesUpToCeiling(t *testing.T) {
	f := newFixture(t, "a", "b", "c", "d")
	f.sup.MaxAgents = 2

	rep, err := f.sup.Sweep()
	require.NoError(t, err)

	assert.Len(t, rep.Launched, 2)
	assert.Len(t, f.launch.launched, 2)
	assert.Equal(t, 2, rep.ActiveAfter)
}

func TestSweepSkipsRunningSessionsWhenLaunching(t *testing.T) {
	f := newFixture(t, "up", "down")
	f.inspector.running["up"] = true

	rep, err := f.sup.Sweep()
	require.NoError(t, err)

	assert.Equal(t, []string{"down"}, f.launch.launched)
	assert.Equal(t, 2, rep.ActiveAfter)
}

func TestSweepIdempotent(t *testing.T) {
	f := newFixture(t, "a", "b", "c", "d", "e")

	first, err := f.sup.Sweep()
	require.NoError(t, err)
	assert.Len(t, first.Launched, 3, "first sweep fills to capacity")

	// No external process-table change between runs: the fake inspector
	// still shows everything the first sweep launched.
	second, err := f.sup.Sweep()
	require.NoError(t, err)
	assert.Empty(t, second.Launched, "second sweep must launch nothing")
	assert.Equal(t, 3, second.ActiveBefore)
	assert.Equal(t, 3, second.ActiveAfter)
}

func TestCapacityLaw(t *testing.T) {
	// Launches never exceed max(0, maxAgents - activeAfterTermination).
	cases := []struct {
		name      string
		max       int
		running   []string
		hung      []string
		idle      []string
		wantMaxed int
	}{
		{"plenty of room", 3, nil, nil, []string{"a", "b"}, 2},
		{"at capacity", 2, []string{"r1", "r2"}, nil, []string{"a"}, 0},
		{"over capacity", 1, []string{"r1", "r2"}, nil, []string{"a"}, 0},
		{"kill frees a slot", 2, []string{"r1", "r2"}, []string{"r2"}, []string{"a"}, 1},
		{"zero ceiling", 0, nil, nil, []string{"a"}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			all := append(append([]string{}, tc.running...), tc.idle...)
			f := newFixture(t, all...)
			f.sup.MaxAgents = tc.max
			for _, name := range tc.running {
				f.inspector.running[name] = true
			}
			hung := map[string]bool{}
			for _, name := range tc.hung {
				hung[name] = true
			}
			f.sup.Detector = staticDetector{hung: hung}

			rep, err := f.sup.Sweep()
			require.NoError(t, err)

			activeAfterTerm := rep.ActiveBefore - len(rep.Terminated)
			bound := tc.max - activeAfterTerm
			if bound < 0 {
				bound = 0
			}
			assert.LessOrEqual(t, len(rep.Launched), bound)
			assert.Len(t, rep.Launched, tc.wantMaxed)
		})
	}
}

func TestLaunchFailureConsumesSlotAndContinues(t *testing.T) {
	f := newFixture(t, "bad", "good", "extra")
	f.sup.MaxAgents = 1
	f.launch.fail["bad"] = true

	// Session iteration order within a root is filesystem-dependent, so
	// only assert the aggregate: at most one successful launch, failure
	// absorbed, sweep completes.
	rep, err := f.sup.Sweep()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rep.Launched), 1)
}

func TestMissingRootSkipped(t *testing.T) {
	f := newFixture(t, "a")
	f.sup.Roots = append([]string{filepath.Join(t.TempDir(), "ghost")}, f.sup.Roots...)

	rep, err := f.sup.Sweep()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rep.Launched)
}

func TestDryRunTouchesNothing(t *testing.T) {
	f := newFixture(t, "hung-one", "idle-one")
	f.inspector.running["hung-one"] = true
	f.sup.Detector = staticDetector{hung: map[string]bool{"hung-one": true}}
	f.sup.DryRun = true

	rep, err := f.sup.Sweep()
	require.NoError(t, err)

	assert.Empty(t, f.term.killed, "dry run must not terminate")
	assert.Empty(t, f.launch.launched, "dry run must not launch")
	assert.Equal(t, []string{"hung-one"}, rep.Terminated)
	assert.NotEmpty(t, rep.Launched)
	assert.True(t, rep.DryRun)
}

func TestEndToEndScenario(t *testing.T) {
	// Two project roots, one non-existent. The existing one has a session
	// with a fresh heartbeat and a live process, and a session with no
	// process. Ceiling 3. Expected: zero terminations, exactly one launch,
	// final active count 2.
	root := t.TempDir()
	for _, name := range []string{"alive", "idle"} {
		dir := filepath.Join(root, ".juggle", "sessions", name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	fresh := fmt.Sprintf(`{"last_updated": %q}`, time.Now().Add(-5*time.Minute).Format(time.RFC3339))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, ".juggle", "sessions", "alive", session.StateFile),
		[]byte(fresh), 0o644))

	bin := filepath.Join(t.TempDir(), "juggle")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	inspector := &fakeInspector{running: map[string]bool{"alive": true}}
	term := &fakeTerminator{inspector: inspector}
	launch := &fakeLauncher{inspector: inspector, fail: map[string]bool{}}

	sup := &Supervisor{
		Roots:      []string{filepath.Join(t.TempDir(), "missing-root"), root},
		MaxAgents:  3,
		Bin:        bin,
		Inspector:  inspector,
		Detector:   session.NewDetector(60 * time.Minute),
		Terminator: term,
		Launcher:   launch,
		Log:        logging.NewNop(),
	}

	rep, err := sup.Sweep()
	require.NoError(t, err)

	assert.Empty(t, rep.Terminated)
	assert.Equal(t, []string{"idle"}, rep.Launched)
	assert.Equal(t, 1, rep.ActiveBefore)
	assert.Equal(t, 2, rep.ActiveAfter)
}

func TestWriteReport(t *testing.T) {
	rep := &Report{
		SweepID:      "test-sweep",
		StartedAt:    time.Now(),
		MaxAgents:    3,
		ActiveBefore: 1,
		ActiveAfter:  2,
		Launched:     []string{"idle"},
	}

	path := filepath.Join(t.TempDir(), "reports", "last_sweep.json")
	require.NoError(t, WriteReport(path, rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sweep_id": "test-sweep"`)
	assert.Contains(t, string(data), `"idle"`)
}
