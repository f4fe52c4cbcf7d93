package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yamakit/timekeeper/internal/util"
)

var (
	appName         string
	appInitialLimit int
	appTargetLimit  int
	appNewTarget    int
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Manage monitored apps",
}

var appsAddCmd = &cobra.Command{
	Use:   "add <package-id>",
	Short: "Put an app under a decaying daily limit",
	Long: `Put an app under a decaying daily limit. The enforced limit starts at
--initial and shrinks by one minute per day until it reaches --target.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		pkg := args[0]
		name := appName
		if name == "" {
			name = pkg
		}
		if !a.registry.Register(pkg, name, appInitialLimit, appTargetLimit) {
			return fmt.Errorf("rejected: target limit (%d) must be positive and strictly below the initial limit (%d)", appTargetLimit, appInitialLimit)
		}
		fmt.Printf("Monitoring %s: %s/day, decaying to %s/day\n",
			pkg, util.FormatMinutes(appInitialLimit), util.FormatMinutes(appTargetLimit))
		return nil
	},
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitored apps and their limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		apps := a.registry.List()
		if len(apps) == 0 {
			fmt.Println("No monitored apps.")
			return nil
		}
		fmt.Printf("%-32s %-20s %8s %8s %8s\n", "PACKAGE", "NAME", "INITIAL", "CURRENT", "TARGET")
		for _, app := range apps {
			fmt.Printf("%-32s %-20s %7dm %7dm %7dm\n",
				app.PackageID, app.DisplayName,
				app.InitialLimitMinutes, app.CurrentLimitMinutes, app.TargetLimitMinutes)
		}
		return nil
	},
}

var appsRemoveCmd = &cobra.Command{
	Use:   "remove <package-id>",
	Short: "Stop monitoring an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		pkg := args[0]
		if !a.registry.IsMonitored(pkg) {
			return fmt.Errorf("%s is not monitored", pkg)
		}
		a.registry.Unregister(pkg)
		fmt.Printf("Stopped monitoring %s\n", pkg)
		return nil
	},
}

var appsTargetCmd = &cobra.Command{
	Use:   "target <package-id>",
	Short: "Lower an app's target limit",
	Long:  `Lower an app's target limit. Targets may only shrink, never rise.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		pkg := args[0]
		if !a.registry.LowerTarget(pkg, appNewTarget) {
			return fmt.Errorf("rejected: %s must be monitored and the new target (%d) strictly below the current one", pkg, appNewTarget)
		}
		fmt.Printf("Target for %s lowered to %s/day\n", pkg, util.FormatMinutes(appNewTarget))
		return nil
	},
}

func init() {
	appsAddCmd.Flags().StringVar(&appName, "name", "", "Display name (defaults to the package ID)")
	appsAddCmd.Flags().IntVar(&appInitialLimit, "initial", 60, "Starting daily limit in minutes")
	appsAddCmd.Flags().IntVar(&appTargetLimit, "target", 30, "Decay floor in minutes")
	appsTargetCmd.Flags().IntVar(&appNewTarget, "minutes", 0, "New target limit in minutes")
	appsTargetCmd.MarkFlagRequired("minutes")

	appsCmd.AddCommand(appsAddCmd, appsListCmd, appsRemoveCmd, appsTargetCmd)
	rootCmd.AddCommand(appsCmd)
}
