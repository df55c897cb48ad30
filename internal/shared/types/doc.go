// Package types provides the data structures shared by the launcher's
// platform, domain and API layers.
//
// Core Types:
//   - Application: read-only catalog record describing what to launch
//   - ApplicationInstance: one tracked launch with its process/window state
//   - InstanceData: per-type metadata variant carried by an instance
//   - State: instance lifecycle state machine
//   - LaunchResult, ShutdownResult: immutable operation outcomes
//   - ProcessInfo, WindowInfo: point-in-time OS snapshots
//
// Example Usage:
//
//	inst := types.NewInstance(app, "alice", pid, types.DesktopInstanceData{}, time.Now())
//	if err := inst.TransitionTo(types.StateRunning, time.Now()); err != nil {
//	    return err
//	}
package types
