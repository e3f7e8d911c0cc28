package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ownerdesk/ticket-engine/internal/app"
	"github.com/ownerdesk/ticket-engine/internal/service"
)

var (
	queueAgentID string
	queueTeamID  string
	queueLimit   int
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Print an agent work queue or a team queue ordered by priority score",
	Long: `Print tickets ordered by live priority score.

Examples:
  ticketctl queue --agent=<agent-id>
  ticketctl queue --team=<team-id> --limit=20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (queueAgentID == "") == (queueTeamID == "") {
			return errors.New("exactly one of --agent or --team is required")
		}
		return withContainer(cmd.Context(), func(c *app.Container) error {
			if queueAgentID != "" {
				queue, err := c.Priority.WorkQueue(cmd.Context(), queueAgentID, queueLimit)
				if err != nil {
					return err
				}
				if outputJSON {
					return printJSON(queue)
				}
				out := cmd.OutOrStdout()
				writeSection(out, "needs attention", queue.NeedsAttention)
				writeSection(out, "waiting on others", queue.WaitingOnOthers)
				writeSection(out, "on track", queue.OnTrack)
				return nil
			}
			tickets, err := c.Priority.TeamQueue(cmd.Context(), queueTeamID, queueLimit)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(tickets)
			}
			writeSection(cmd.OutOrStdout(), "team queue", tickets)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)

	queueCmd.Flags().StringVar(&queueAgentID, "agent", "", "Owner whose work queue to print")
	queueCmd.Flags().StringVar(&queueTeamID, "team", "", "Team whose open tickets to print")
	queueCmd.Flags().IntVar(&queueLimit, "limit", 0, "Maximum tickets to list (0 uses the service default)")
}

func writeSection(out io.Writer, title string, tickets []service.ScoredTicket) {
	fmt.Fprintf(out, "%s (%d)\n", title, len(tickets))
	if len(tickets) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  REFERENCE\tPRIORITY\tSTATUS\tSCORE\tSUBJECT")
	for _, st := range tickets {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%.1f\t%s\n", st.Ticket.Reference, st.Ticket.Priority, st.Ticket.Status, st.Score.Score, st.Ticket.Subject)
	}
	_ = w.Flush()
}
