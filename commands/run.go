package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yamakit/timekeeper/internal/observer"
	"github.com/yamakit/timekeeper/internal/util"
)

// livenessCheckInterval is how often the daemon re-classifies the heartbeat
// gap. Deliberately shorter than the heartbeat interval so a kill is noticed
// within minutes of restart.
const livenessCheckInterval = time.Minute

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring daemon",
	Long: `Run the monitoring daemon: follow the foreground event spool, record
usage ticks, enforce budgets, keep the heartbeat trail, and wipe enforcement
state when a tamper gap is detected.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	util.LogInfof("daemon: starting (device %s)", a.coordinator.DeviceID())

	// Breaches that happened while the process was down are handled before
	// any new state is written.
	if n := a.engine.ScanAtStartup(); n > 0 {
		util.LogWarnf("daemon: startup scan found %d historical breach(es), state was reset", n)
	}

	// Catch up on any missed rollover immediately rather than waiting for
	// the first foreground event.
	a.scheduler.Reconcile(a.clock.Today())

	a.recorder.Start(ctx)
	defer a.recorder.Stop()

	go func() {
		ticker := time.NewTicker(livenessCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.engine.CheckLiveness(a.clock.Now())
			}
		}
	}()

	tailer := observer.NewTailer(cfg.EventsPath, func(packageID string) {
		a.engine.HandleForeground(packageID)
	})
	if err := tailer.Run(ctx); err != nil {
		return err
	}

	util.LogInfo("daemon: shutting down")
	return nil
}
