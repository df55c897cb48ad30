package types

import (
	"fmt"
	"strings"
	"time"
)

// LaunchType says how a successful launch was satisfied
type LaunchType string

const (
	LaunchNew                  LaunchType = "new"
	LaunchExisting             LaunchType = "found_existing"
	LaunchActivated            LaunchType = "activated_existing"
	LaunchRestart              LaunchType = "restart"
	LaunchExternalRegistration LaunchType = "external_registration"
)

// FailureCategory classifies a failed launch
type FailureCategory string

const (
	FailureNone               FailureCategory = ""
	FailureInvalidArgument    FailureCategory = "invalid_argument"
	FailureUnsupported        FailureCategory = "unsupported"
	FailureNotPermitted       FailureCategory = "not_permitted"
	FailureDisabled           FailureCategory = "disabled"
	FailureProcessStart       FailureCategory = "process_start"
	FailureWindowTimeout      FailureCategory = "window_timeout"
	FailureMetadataExtraction FailureCategory = "metadata_extraction"
	FailureBridge             FailureCategory = "bridge"
	FailureRegistration       FailureCategory = "registration"
	FailureUnexpected         FailureCategory = "unexpected"
)

// Code returns the stable error code for the category
func (c FailureCategory) Code() string {
	if c == FailureNone {
		return ""
	}
	return "LAUNCH_" + strings.ToUpper(string(c))
}

// LaunchResult is the outcome of one launch attempt. Build it with the
// Launch* constructors and treat it as immutable afterwards.
type LaunchResult struct {
	Success      bool                 `json:"success"`
	Instance     *ApplicationInstance `json:"instance,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	ErrorCode    string               `json:"error_code,omitempty"`
	Err          error                `json:"-"`
	Category     FailureCategory      `json:"category,omitempty"`
	Duration     time.Duration        `json:"duration"`
	LaunchType   LaunchType           `json:"launch_type,omitempty"`
	Attempts     int                  `json:"attempts"`
	AttemptID    string               `json:"attempt_id,omitempty"`
	LauncherName string               `json:"launcher,omitempty"`
}

func succeeded(inst *ApplicationInstance, lt LaunchType, d time.Duration) *LaunchResult {
	return &LaunchResult{Success: true, Instance: inst, LaunchType: lt, Duration: d, Attempts: 1}
}

// LaunchSucceeded reports a freshly started instance
func LaunchSucceeded(inst *ApplicationInstance, d time.Duration) *LaunchResult {
	return succeeded(inst, LaunchNew, d)
}

// LaunchFoundExisting reports that a live instance was reused
func LaunchFoundExisting(inst *ApplicationInstance, d time.Duration) *LaunchResult {
	return succeeded(inst, LaunchExisting, d)
}

// LaunchActivatedExisting reports that a live instance was brought forward
func LaunchActivatedExisting(inst *ApplicationInstance, d time.Duration) *LaunchResult {
	return succeeded(inst, LaunchActivated, d)
}

// LaunchRestarted reports a fresh instance started in place of a closed one
func LaunchRestarted(inst *ApplicationInstance, d time.Duration) *LaunchResult {
	return succeeded(inst, LaunchRestart, d)
}

// LaunchRegistered reports an externally started process adopted by the launcher
func LaunchRegistered(inst *ApplicationInstance, d time.Duration) *LaunchResult {
	return succeeded(inst, LaunchExternalRegistration, d)
}

// LaunchFailed reports a failure of the given category
func LaunchFailed(category FailureCategory, msg string, err error, d time.Duration) *LaunchResult {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &LaunchResult{
		Success:      false,
		ErrorMessage: msg,
		ErrorCode:    category.Code(),
		Err:          err,
		Category:     category,
		Duration:     d,
		Attempts:     1,
	}
}

// LaunchUnsupported reports that no launcher (or the named one) can start app
func LaunchUnsupported(app *Application, launcher string) *LaunchResult {
	name, typ := "<nil>", ApplicationType("")
	if app != nil {
		name, typ = app.Name, app.Type
	}
	msg := fmt.Sprintf("cannot launch %q: no launcher supports type %q", name, typ)
	if launcher != "" {
		msg = fmt.Sprintf("cannot launch %q: %s launcher does not support type %q", name, launcher, typ)
	}
	return LaunchFailed(FailureUnsupported, msg, nil, 0)
}

// LaunchDenied reports an authorization failure
func LaunchDenied(err error, d time.Duration) *LaunchResult {
	return LaunchFailed(FailureNotPermitted, "", err, d)
}

// WithAttempt returns a copy stamped with the attempt id and launcher name.
func (r *LaunchResult) WithAttempt(attemptID, launcher string) *LaunchResult {
	c := *r
	c.AttemptID = attemptID
	if launcher != "" {
		c.LauncherName = launcher
	}
	return &c
}

// WithDuration returns a copy with the duration replaced.
func (r *LaunchResult) WithDuration(d time.Duration) *LaunchResult {
	c := *r
	c.Duration = d
	return &c
}

// ShutdownMethod records how one instance was brought down
type ShutdownMethod string

const (
	ShutdownGraceful      ShutdownMethod = "graceful"
	ShutdownForced        ShutdownMethod = "forced"
	ShutdownAlreadyExited ShutdownMethod = "already_exited"
	ShutdownFailed        ShutdownMethod = "failed"
)

// ApplicationShutdownInfo is the per-instance outcome of a bulk close
type ApplicationShutdownInfo struct {
	InstanceID      string         `json:"instance_id"`
	ApplicationName string         `json:"application_name"`
	ProcessID       int            `json:"process_id"`
	Method          ShutdownMethod `json:"method"`
	Success         bool           `json:"success"`
	Duration        time.Duration  `json:"duration"`
	Error           string         `json:"error,omitempty"`
}

// ShutdownResult aggregates a bulk close. Produced once by ShutdownBuilder.
type ShutdownResult struct {
	TotalApplications int                       `json:"total_applications"`
	GracefullyClosed  int                       `json:"gracefully_closed"`
	ForceClosed       int                       `json:"force_closed"`
	FailedToClose     int                       `json:"failed_to_close"`
	Duration          time.Duration             `json:"duration"`
	Applications      []ApplicationShutdownInfo `json:"applications"`
	Errors            []string                  `json:"errors,omitempty"`
}

// Succeeded is true when every instance went down.
func (r *ShutdownResult) Succeeded() bool {
	return r.FailedToClose == 0
}

// ShutdownBuilder accumulates per-instance outcomes. Not safe for concurrent
// use; callers collect results first and record them from one goroutine.
type ShutdownBuilder struct {
	total int
	infos []ApplicationShutdownInfo
	errs  []string
}

// NewShutdownBuilder starts a result for total instances
func NewShutdownBuilder(total int) *ShutdownBuilder {
	return &ShutdownBuilder{total: total, infos: make([]ApplicationShutdownInfo, 0, total)}
}

// Record adds one per-instance outcome. A failed entry with an error also
// lands in the aggregated error list.
func (b *ShutdownBuilder) Record(info ApplicationShutdownInfo) {
	b.infos = append(b.infos, info)
	if !info.Success && info.Error != "" {
		b.errs = append(b.errs, fmt.Sprintf("%s (%s): %s", info.ApplicationName, info.InstanceID, info.Error))
	}
}

// AddError records an error not tied to one instance
func (b *ShutdownBuilder) AddError(msg string) {
	b.errs = append(b.errs, msg)
}

// Build produces the final result
func (b *ShutdownBuilder) Build(d time.Duration) *ShutdownResult {
	res := &ShutdownResult{
		TotalApplications: b.total,
		Duration:          d,
		Applications:      append([]ApplicationShutdownInfo(nil), b.infos...),
		Errors:            append([]string(nil), b.errs...),
	}
	for _, info := range b.infos {
		switch {
		case !info.Success:
			res.FailedToClose++
		case info.Method == ShutdownForced:
			res.ForceClosed++
		default:
			res.GracefullyClosed++
		}
	}
	return res
}
