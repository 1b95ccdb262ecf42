package agent

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/juggle-dev/keeper/internal/logging"
)

// Launcher spawns juggle agent daemons bound to sessions.
type Launcher struct {
	// Bin is the juggle worker binary path.
	Bin string

	// Provider is passed to the agent via --provider.
	Provider string

	// env overrides the base environment; nil means os.Environ().
	env []string

	log *logging.Logger
}

// NewLauncher creates a launcher for the given worker binary and provider.
func NewLauncher(bin, provider string, log *logging.Logger) *Launcher {
	if log == nil {
		log = logging.NewNop()
	}
	return &Launcher{Bin: bin, Provider: provider, log: log}
}

// Launch spawns a daemon agent for the session with the project root as its
// working directory. The spawn is fire-and-forget: output is discarded, the
// process handle is released, and only an immediate spawn failure surfaces.
// There is no retry here; a failed launch shows up as "still not running"
// on the next sweep.
func (l *Launcher) Launch(sessionName, projectRoot string) error {
	cmd := exec.Command(l.Bin, "agent", "run", sessionName, "--daemon", "--provider", l.Provider)
	cmd.Dir = projectRoot
	cmd.Env = l.environ()
	configureProcAttr(cmd)

	l.log.WithSession(sessionName).WithRoot(projectRoot).Info("starting agent")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting agent for session %s: %w", sessionName, err)
	}
	return cmd.Process.Release()
}

// environ builds a per-invocation environment with the worker's bin
// directory prepended to PATH. The process-wide environment is never
// mutated; each spawn gets its own copy.
func (l *Launcher) environ() []string {
	base := l.env
	if base == nil {
		base = os.Environ()
	}

	binDir := filepath.Dir(l.Bin)
	out := make([]string, 0, len(base)+1)
	found := false
	for _, kv := range base {
		if strings.HasPrefix(kv, "PATH=") {
			out = append(out, "PATH="+binDir+string(os.PathListSeparator)+strings.TrimPrefix(kv, "PATH="))
			found = true
			continue
		}
		out = append(out, kv)
	}
	if !found {
		out = append(out, "PATH="+binDir)
	}
	return out
}
