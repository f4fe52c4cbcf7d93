package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yamakit/timekeeper/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's usage against each app's limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		today := a.clock.Today()
		a.scheduler.Reconcile(today)

		fmt.Println(util.FormatHeaderTitle(fmt.Sprintf("Timekeeper - %s", today)))

		apps := a.registry.List()
		if len(apps) == 0 {
			fmt.Println("No monitored apps. Add one with: timekeeper apps add <package-id>")
			return nil
		}

		barWidth := util.TerminalWidth() - 60
		if barWidth < 14 {
			barWidth = 14
		}

		for _, app := range apps {
			usage := a.ledger.UsageMinutes(app.PackageID, today)
			percent := 0.0
			if app.CurrentLimitMinutes > 0 {
				percent = float64(usage) / float64(app.CurrentLimitMinutes) * 100
			}

			state := ""
			switch {
			case a.ledger.HasDayPass(app.PackageID, today):
				state = "day pass"
			case a.ledger.IsOverBudget(app.PackageID, today):
				state = "LOCKED"
			}

			color := util.UsageColor(percent)
			fmt.Printf("%-20s %s%s%s %s/%s %s\n",
				app.DisplayName,
				color, util.CreateProgressBar(percent, barWidth), util.ColorReset,
				util.FormatMinutes(usage), util.FormatMinutes(app.CurrentLimitMinutes),
				state)
		}

		if last, ok := a.recorder.Last(); ok {
			g := a.clock.Now().Sub(last)
			fmt.Printf("\nLast heartbeat: %s (%s ago, %s)\n",
				util.FormatTimestamp(last), util.FormatDuration(g), a.detector.Check(a.clock.Now()))
		} else {
			fmt.Println("\nNo heartbeat recorded yet.")
		}
		if cursor := a.scheduler.LastResetDate(); cursor != "" {
			fmt.Printf("Last rollover: %s\n", cursor)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
