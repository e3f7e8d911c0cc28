package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ownerdesk/ticket-engine/internal/app"
)

var (
	calibrationFrom string
	calibrationTo   string
	calibrationPct  float64
)

var calibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Calibration sampling and reporting",
}

var calibrationQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Sample approved resolutions in the window into the review queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := calibrationWindow()
		if err != nil {
			return err
		}
		return withContainer(cmd.Context(), func(c *app.Container) error {
			pct := calibrationPct
			if pct < 0 {
				pct = c.Config.Engine.CalibrationSamplePct
			}
			items, err := c.Calibration.GenerateQueue(cmd.Context(), from, to, pct)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(items)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d calibration items\n", len(items))
			return nil
		})
	},
}

var calibrationReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print uphold rates per resolution reason",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := calibrationWindow()
		if err != nil {
			return err
		}
		return withContainer(cmd.Context(), func(c *app.Container) error {
			report, err := c.Calibration.Report(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s to %s\n", report.From.Format(time.DateOnly), report.To.Format(time.DateOnly))
			fmt.Fprintf(out, "overall: reviewed %d/%d uphold %.0f%%\n", report.Overall.Reviewed, report.Overall.Total, report.Overall.UpholdRate*100)
			reasons := make([]string, 0, len(report.ByReason))
			for reason := range report.ByReason {
				reasons = append(reasons, reason)
			}
			sort.Strings(reasons)
			for _, reason := range reasons {
				stats := report.ByReason[reason]
				fmt.Fprintf(out, "%s: reviewed %d/%d uphold %.0f%% revised %d coaching %d\n",
					reason, stats.Reviewed, stats.Total, stats.UpholdRate*100, stats.Revised, stats.CoachingNeeded)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(calibrationCmd)
	calibrationCmd.AddCommand(calibrationQueueCmd, calibrationReportCmd)

	calibrationCmd.PersistentFlags().StringVar(&calibrationFrom, "from", "", "Window start, YYYY-MM-DD (default 7 days ago)")
	calibrationCmd.PersistentFlags().StringVar(&calibrationTo, "to", "", "Window end, YYYY-MM-DD (default now)")
	calibrationQueueCmd.Flags().Float64Var(&calibrationPct, "sample-pct", -1, "Percent of resolutions to sample (default from CALIBRATION_SAMPLE_PCT)")
}

func calibrationWindow() (time.Time, time.Time, error) {
	to := time.Now().UTC()
	if calibrationTo != "" {
		t, err := time.Parse(time.DateOnly, calibrationTo)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	from := to.AddDate(0, 0, -7)
	if calibrationFrom != "" {
		t, err := time.Parse(time.DateOnly, calibrationFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		from = t
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must be before --to")
	}
	return from, to, nil
}
