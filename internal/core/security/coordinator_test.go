package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamakit/timekeeper/internal/core/constants"
	"github.com/yamakit/timekeeper/internal/core/heartbeat"
	"github.com/yamakit/timekeeper/internal/core/ledger"
	"github.com/yamakit/timekeeper/internal/core/registry"
	"github.com/yamakit/timekeeper/internal/core/rollover"
	"github.com/yamakit/timekeeper/internal/store"
	"github.com/yamakit/timekeeper/internal/util"
)

// populate fills every enforcement namespace with realistic state.
func populate(t *testing.T, st *store.MemoryStore) {
	t.Helper()
	reg := registry.New(st)
	led := ledger.New(st, reg, ledger.NopNotifier{})
	sched := rollover.New(st, reg, ledger.NopNotifier{})
	rec := heartbeat.NewRecorder(st, util.NewFakeClock(testInstant))

	require.True(t, reg.Register("pkg", "App", 60, 30))
	require.True(t, sched.Reconcile("2026-08-27"))
	led.RecordTick("pkg", "2026-08-27")
	led.GrantDayPass("pkg", "2026-08-27")
	rec.RecordNow()
}

var testInstant = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func TestWipePreservesDeviceIdentity(t *testing.T) {
	st := store.NewMemoryStore()
	coord := NewCoordinator(st)

	id := coord.EnsureDeviceID()
	require.NotEmpty(t, id)
	populate(t, st)

	require.NoError(t, coord.Wipe("test"))

	assert.Equal(t, id, coord.DeviceID(), "device ID survives the wipe")
	for _, ns := range []string{
		constants.AppsNamespace,
		constants.UsageNamespace,
		constants.HeartbeatNamespace,
		constants.ResetNamespace,
	} {
		keys, err := st.Keys(ns)
		require.NoError(t, err)
		assert.Empty(t, keys, "namespace %s must be empty after wipe", ns)
	}
}

func TestWipeIsRepeatSafe(t *testing.T) {
	st := store.NewMemoryStore()
	coord := NewCoordinator(st)
	id := coord.EnsureDeviceID()
	populate(t, st)

	require.NoError(t, coord.Wipe("live breach"))
	require.NoError(t, coord.Wipe("historical scan"))

	assert.Equal(t, id, coord.DeviceID())
}

func TestWipeBestEffortAcrossNamespaceFailures(t *testing.T) {
	st := store.NewMemoryStore()
	coord := NewCoordinator(st)
	coord.EnsureDeviceID()
	populate(t, st)

	st.FailClear[constants.UsageNamespace] = true
	err := coord.Wipe("test")
	require.Error(t, err, "a failed namespace surfaces in the aggregate error")

	// Every other namespace was still attempted and cleared.
	for _, ns := range []string{
		constants.AppsNamespace,
		constants.HeartbeatNamespace,
		constants.ResetNamespace,
	} {
		keys, kerr := st.Keys(ns)
		require.NoError(t, kerr)
		assert.Empty(t, keys, "namespace %s must be cleared despite the failure", ns)
	}
}

func TestEnsureDeviceIDIsStable(t *testing.T) {
	st := store.NewMemoryStore()
	coord := NewCoordinator(st)

	first := coord.EnsureDeviceID()
	second := coord.EnsureDeviceID()
	assert.Equal(t, first, second)
	assert.Equal(t, first, coord.DeviceID())
}
