// Package process is the safety wrapper around OS process inspection and
// control.
//
// Monitor never panics and never returns an error for a process that is
// missing, already exited or not accessible: probes collapse to false, zero
// or nil. GetProcessInfo is the one probe that reports why it failed, as a
// *ProbeError whose Kind separates NotFound, AccessDenied and Unexpected.
//
// The OS specifics live behind Backend:
//   - linux: prometheus/procfs for inspection, SIGTERM/SIGKILL via x/sys/unix
//   - windows: toolhelp, OpenProcess and TerminateProcess via x/sys/windows
//   - other unix: signal probing only
//
// Handles are opened per call and closed before the call returns.
package process
