package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yamakit/timekeeper/internal/core/gap"
	"github.com/yamakit/timekeeper/internal/util"
)

var wipeYes bool

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Inspect the heartbeat trail and manage resets",
}

var securityScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the heartbeat history for past breaches",
	Long: `Scan the heartbeat history for past breaches. This reports without
acting; the running daemon performs the destructive reset itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		history := a.recorder.History()
		fmt.Printf("Heartbeat history: %d entries\n", len(history))

		breaches := a.detector.ScanHistory()
		if len(breaches) == 0 {
			fmt.Println("No breaches found.")
			return nil
		}
		for _, b := range breaches {
			fmt.Printf("  %s gap from %s to %s (urgency %s)\n",
				util.FormatDuration(b.Gap),
				util.FormatTimestamp(b.LastSeen),
				util.FormatTimestamp(b.DetectedAt),
				gap.UrgencyLevel(b.Gap))
		}
		return nil
	},
}

var securityWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Destructively reset all enforcement state",
	Long: `Destructively reset all enforcement state: monitored apps, usage,
day passes, heartbeat history, and the rollover cursor. The device
identifier is preserved. Requires --yes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !wipeYes {
			return fmt.Errorf("refusing to wipe without --yes")
		}
		cfg := loadConfig()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.coordinator.Wipe("manual wipe via CLI"); err != nil {
			return fmt.Errorf("wipe incomplete: %w", err)
		}
		fmt.Printf("All enforcement state cleared. Device ID retained: %s\n", a.coordinator.DeviceID())
		return nil
	},
}

func init() {
	securityWipeCmd.Flags().BoolVar(&wipeYes, "yes", false, "Confirm the destructive reset")
	securityCmd.AddCommand(securityScanCmd, securityWipeCmd)
	rootCmd.AddCommand(securityCmd)
}
