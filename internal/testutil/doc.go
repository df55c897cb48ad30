// Package testutil provides in-memory fakes of the OS-facing collaborators
// (process backend, window manager, process starter, Android bridge,
// embedded browser host) so launcher and lifecycle tests run without
// spawning real processes.
package testutil
