// Package security holds the destructive response to detected tampering:
// wiping all enforcement state while keeping the device's identity.
package security

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/yamakit/timekeeper/internal/core/constants"
	"github.com/yamakit/timekeeper/internal/store"
	"github.com/yamakit/timekeeper/internal/util"
)

const deviceIDKey = "device_id"

// wipeNamespaces are cleared on a breach, each independently so one failure
// never shields the others. The device namespace is deliberately absent.
var wipeNamespaces = []string{
	constants.AppsNamespace,
	constants.UsageNamespace,
	constants.HeartbeatNamespace,
	constants.ResetNamespace,
}

// Coordinator performs the terminal security action. Wipe never retries and
// never escalates; it logs and returns. Repeated wipes leave the same end
// state as one.
type Coordinator struct {
	store store.Store
	mu    sync.Mutex
}

func NewCoordinator(st store.Store) *Coordinator {
	return &Coordinator{store: st}
}

// EnsureDeviceID returns the stable device identifier, generating and
// persisting one on first run.
func (c *Coordinator) EnsureDeviceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := store.GetString(c.store, constants.DeviceNamespace, deviceIDKey, "")
	if id != "" {
		return id
	}
	id = uuid.NewString()
	store.PutString(c.store, constants.DeviceNamespace, deviceIDKey, id)
	if !c.store.Commit(constants.DeviceNamespace) {
		util.LogError("security: failed to persist new device ID")
	} else {
		util.LogInfof("security: generated device ID %s", id)
	}
	return id
}

// DeviceID returns the stored device identifier, or "".
func (c *Coordinator) DeviceID() string {
	return store.GetString(c.store, constants.DeviceNamespace, deviceIDKey, "")
}

// Wipe clears every enforcement namespace. Best effort: each namespace is
// attempted even when an earlier one fails, and the aggregated error lists
// what could not be cleared. The device identifier is read before and
// rewritten after so identity survives the reset.
func (c *Coordinator) Wipe(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	util.LogWarnf("security: wiping all enforcement state, reason: %s", reason)
	deviceID := store.GetString(c.store, constants.DeviceNamespace, deviceIDKey, "")

	var errs []error
	for _, ns := range wipeNamespaces {
		if err := c.store.Clear(ns); err != nil {
			util.LogErrorf("security: clearing %s failed: %v", ns, err)
			errs = append(errs, fmt.Errorf("clear %s: %w", ns, err))
			continue
		}
		util.LogDebugf("security: cleared namespace %s", ns)
	}

	if deviceID != "" {
		store.PutString(c.store, constants.DeviceNamespace, deviceIDKey, deviceID)
		if !c.store.Commit(constants.DeviceNamespace) {
			errs = append(errs, errors.New("restore device ID: commit failed"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	util.LogWarnf("security: wipe completed, reason: %s", reason)
	return nil
}
