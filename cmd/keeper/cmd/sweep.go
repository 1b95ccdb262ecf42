package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/juggle-dev/keeper/internal/ledger"
	"github.com/juggle-dev/keeper/internal/supervisor"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one supervision pass",
	Long: `Run one complete supervision pass:

- count currently running juggle agents
- terminate agents whose heartbeat is stale, missing, or corrupt
- launch agents for idle sessions up to the agent limit

The command exits non-zero only when the juggle binary cannot be found.
Missing project roots, unreadable heartbeats, and failed individual
commands are logged and absorbed; the next scheduled invocation is the
retry mechanism.`,
	RunE: runSweep,
}

var (
	sweepDryRun bool
	sweepReport string
	sweepAudit  bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Classify without terminating or launching")
	sweepCmd.Flags().StringVar(&sweepReport, "report", "", "Write the sweep report as JSON to this path")
	sweepCmd.Flags().BoolVar(&sweepAudit, "audit", false, "Also audit ball claims and include the stuck count")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	sup := buildSupervisor(cfg, log, sweepDryRun)
	rep, err := sup.Sweep()
	if err != nil {
		log.Error("sweep aborted", "error", err)
		return err
	}

	if sweepAudit {
		stuck := ledger.NewAuditor(cfg.ClaimTimeout, log).FindStuckBalls(cfg.StateDir)
		for _, b := range stuck {
			log.Warn("ball claimed but not completed",
				"ball", b.ID, "state", b.State, "held", b.Held.Round(time.Second))
		}
		rep.StuckBalls = len(stuck)
	}

	if sweepReport != "" {
		if err := supervisor.WriteReport(sweepReport, rep); err != nil {
			log.Warn("writing sweep report failed", "path", sweepReport, "error", err)
		}
	}

	cmd.Printf("Sweep %s: %d terminated, %d launched, %d/%d agents active\n",
		rep.SweepID, len(rep.Terminated), len(rep.Launched), rep.ActiveAfter, rep.MaxAgents)

	return nil
}
