package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var daypassAll bool

var daypassCmd = &cobra.Command{
	Use:   "daypass",
	Short: "Manage day passes",
}

var daypassGrantCmd = &cobra.Command{
	Use:   "grant [package-id]",
	Short: "Lift an app's limit for the rest of today",
	Long: `Lift an app's limit for the rest of today. The pass covers exactly one
calendar date and never carries over. This is the effect of a confirmed
purchase; payment itself happens outside the daemon.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		today := a.clock.Today()
		// Settle any pending rollover first so the pass lands on the
		// correct date.
		a.scheduler.Reconcile(today)

		if daypassAll {
			a.ledger.GrantDayPassAll(today)
			fmt.Printf("Day pass granted to all monitored apps for %s\n", today)
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("specify a package ID or --all")
		}
		pkg := args[0]
		if !a.registry.IsMonitored(pkg) {
			return fmt.Errorf("%s is not monitored", pkg)
		}
		a.ledger.GrantDayPass(pkg, today)
		fmt.Printf("Day pass granted for %s on %s\n", pkg, today)
		return nil
	},
}

func init() {
	daypassGrantCmd.Flags().BoolVar(&daypassAll, "all", false, "Grant to every monitored app")
	daypassCmd.AddCommand(daypassGrantCmd)
	rootCmd.AddCommand(daypassCmd)
}
