package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yamakit/timekeeper/internal/config"
	"github.com/yamakit/timekeeper/internal/util"
)

var (
	envFile string

	// Flag overrides; empty means "use config/env value".
	flagDB         string
	flagEvents     string
	flagTimezone   string
	flagLogLevel   string
	flagLogFile    string
	flagDebug      bool
	flagDisableGap bool

	rootCmd = &cobra.Command{
		Use:   "timekeeper",
		Short: "Daily app-time budgets with decaying limits and tamper defense",
		Long: `timekeeper enforces a daily, decaying time budget per monitored app.

A platform agent reports foreground-app changes into an event spool;
timekeeper records usage minutes against each app's limit, rolls usage over
at midnight while decaying limits toward their targets, and keeps a
heartbeat trail. A gap in the trail means monitoring was interrupted and all
enforcement state is destructively reset.

Examples:
  timekeeper run                               # Run the monitoring daemon
  timekeeper apps add com.example.video --name Video --initial 60 --target 30
  timekeeper status                            # Usage and limits for today
  timekeeper daypass grant com.example.video   # Lift one app's limit today
  timekeeper security scan                     # Inspect the heartbeat trail`,
		SilenceUsage: true,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", "", "Optional .env file with TIMEKEEPER_* settings")
	pf.StringVar(&flagDB, "db", "", "Path to the state database")
	pf.StringVar(&flagEvents, "events", "", "Path to the foreground event spool")
	pf.StringVar(&flagTimezone, "timezone", "", "Timezone for the daily rollover boundary")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFile, "log-file", "", "Log file path")
	pf.BoolVar(&flagDebug, "debug", false, "Mirror logs to stderr")
	pf.BoolVar(&flagDisableGap, "disable-gap-detection", false, "Disable tamper detection (development only)")
}

// loadConfig resolves configuration with CLI flags overriding the
// environment, then initializes the global logger.
func loadConfig() *config.Config {
	cfg := config.Load(envFile)
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagEvents != "" {
		cfg.EventsPath = flagEvents
	}
	if flagTimezone != "" {
		cfg.Timezone = flagTimezone
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFile != "" {
		cfg.LogFile = flagLogFile
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagDisableGap {
		cfg.DisableGapDetection = true
	}

	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: preparing directories: %v\n", err)
		os.Exit(1)
	}
	util.InitLogger(cfg.LogLevel, cfg.LogFile, cfg.Debug)
	return cfg
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
