package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/juggle-dev/keeper/internal/fsutil"
	"github.com/juggle-dev/keeper/internal/proctable"
	"github.com/juggle-dev/keeper/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and agent state",
	Long: `Classify every discovered session without acting on it: whether a
daemon process is running, and how its heartbeat classifies (fresh, hung,
or never started).`,
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

// sessionStatus is one row of status output.
type sessionStatus struct {
	Session   string        `json:"session"`
	Root      string        `json:"root"`
	Running   bool          `json:"running"`
	Heartbeat string        `json:"heartbeat"`
	Age       time.Duration `json:"heartbeat_age,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inspector := proctable.NewInspector(nil)
	detector := session.NewDetector(cfg.HeartbeatStaleAfter)

	var rows []sessionStatus
	for _, root := range cfg.ProjectRoots {
		if !fsutil.DirExists(root) {
			continue
		}
		for _, sess := range session.ListSessions(root) {
			hb := detector.Classify(sess.Dir)
			rows = append(rows, sessionStatus{
				Session:   sess.Name,
				Root:      sess.Root,
				Running:   inspector.IsSessionRunning(sess.Name),
				Heartbeat: string(hb.Status),
				Age:       hb.Age.Round(time.Second),
			})
		}
	}

	active := inspector.CountActiveAgents()

	if statusJSON {
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"active_agents": active,
			"max_agents":    cfg.MaxAgents,
			"sessions":      rows,
		})
	}

	cmd.Printf("Agents: %d running (max %d)\n\n", active, cfg.MaxAgents)

	if len(rows) == 0 {
		cmd.Println("No sessions discovered")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tROOT\tRUNNING\tHEARTBEAT\tAGE")
	fmt.Fprintln(w, "-------\t----\t-------\t---------\t---")
	for _, r := range rows {
		age := "-"
		if r.Age > 0 {
			age = r.Age.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", r.Session, r.Root, r.Running, r.Heartbeat, age)
	}
	return w.Flush()
}
