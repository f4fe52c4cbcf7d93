package commands

import (
	"fmt"

	"github.com/yamakit/timekeeper/internal/config"
	"github.com/yamakit/timekeeper/internal/core/gap"
	"github.com/yamakit/timekeeper/internal/core/heartbeat"
	"github.com/yamakit/timekeeper/internal/core/ledger"
	"github.com/yamakit/timekeeper/internal/core/registry"
	"github.com/yamakit/timekeeper/internal/core/rollover"
	"github.com/yamakit/timekeeper/internal/core/security"
	"github.com/yamakit/timekeeper/internal/engine"
	"github.com/yamakit/timekeeper/internal/store"
	"github.com/yamakit/timekeeper/internal/util"
)

// app bundles the wired component graph every command works against.
type app struct {
	cfg         *config.Config
	store       *store.SQLiteStore
	clock       util.Clock
	registry    *registry.Registry
	ledger      *ledger.Ledger
	scheduler   *rollover.Scheduler
	recorder    *heartbeat.Recorder
	detector    *gap.Detector
	coordinator *security.Coordinator
	engine      *engine.Engine
}

// logNotifier is the default lock-signal consumer: the daemon has no screen
// of its own, so lock transitions are logged for the presentation layer's
// channel to pick up.
type logNotifier struct{}

func (logNotifier) Lock(packageID string) {
	util.LogWarnf("lock: %s is over budget, blocking screen requested", packageID)
}

func (logNotifier) Release(reason string) {
	util.LogInfof("lock: released (%s)", reason)
}

// newApp opens the store and wires every component. Callers must Close.
func newApp(cfg *config.Config) (*app, error) {
	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	clock, err := util.NewSystemClock(cfg.Timezone)
	if err != nil {
		st.Close()
		return nil, err
	}

	notifier := logNotifier{}
	reg := registry.New(st)
	led := ledger.New(st, reg, notifier)
	sched := rollover.New(st, reg, notifier)
	rec := heartbeat.NewRecorder(st, clock)
	det := gap.NewDetector(rec, cfg.DisableGapDetection)
	coord := security.NewCoordinator(st)
	eng := engine.New(clock, reg, led, sched, det, coord)

	coord.EnsureDeviceID()

	return &app{
		cfg:         cfg,
		store:       st,
		clock:       clock,
		registry:    reg,
		ledger:      led,
		scheduler:   sched,
		recorder:    rec,
		detector:    det,
		coordinator: coord,
		engine:      eng,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		util.LogErrorf("closing state database: %v", err)
	}
}
