package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ownerdesk/ticket-engine/internal/app"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evaluate escalation alerts for every open ticket once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *app.Container) error {
			result, err := c.Alerts.CheckAllOpenTickets(cmd.Context())
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "evaluated=%d skipped=%d failed=%d alerts_fired=%d\n",
				result.Evaluated, result.Skipped, result.Failed, result.AlertsFired)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
