package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/juggle-dev/keeper/internal/ledger"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report balls claimed but not completed",
	Long: `Cross-reference the ball ledger with on-disk claim markers and report
balls that were claimed longer ago than the claim timeout without reaching
the complete state.

This is read-only: nothing in the ledger or the claim markers is modified.`,
	RunE: runAudit,
}

var (
	auditStateDir string
	auditJSON     bool
)

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditStateDir, "state-dir", "", "Juggle state directory (default: from config)")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Output as JSON")
}

func runAudit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	stateDir := cfg.StateDir
	if auditStateDir != "" {
		stateDir = auditStateDir
	}

	stuck := ledger.NewAuditor(cfg.ClaimTimeout, log).FindStuckBalls(stateDir)

	if auditJSON {
		if stuck == nil {
			stuck = []ledger.StuckBall{}
		}
		return outputJSON(cmd.OutOrStdout(), stuck)
	}

	if len(stuck) == 0 {
		cmd.Println("No stuck balls")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BALL\tSTATE\tCLAIMED\tHELD")
	fmt.Fprintln(w, "----\t-----\t-------\t----")
	for _, b := range stuck {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			b.ID, b.State, b.StartedAt.Format(time.RFC3339), b.Held.Round(time.Minute))
	}
	return w.Flush()
}
