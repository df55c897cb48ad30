package types

import "time"

// LaunchRecord is the audit entry written for every launch attempt
type LaunchRecord struct {
	AttemptID       string        `json:"attempt_id" db:"attempt_id"`
	ApplicationID   string        `json:"application_id" db:"application_id"`
	ApplicationName string        `json:"application_name" db:"application_name"`
	User            string        `json:"user" db:"user_name"`
	Launcher        string        `json:"launcher,omitempty" db:"launcher"`
	InstanceID      string        `json:"instance_id,omitempty" db:"instance_id"`
	ProcessID       int           `json:"process_id,omitempty" db:"process_id"`
	LaunchType      LaunchType    `json:"launch_type,omitempty" db:"launch_type"`
	Success         bool          `json:"success" db:"success"`
	ErrorCode       string        `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage    string        `json:"error_message,omitempty" db:"error_message"`
	Duration        time.Duration `json:"duration" db:"duration_ns"`
	At              time.Time     `json:"at" db:"at"`
}

// TerminationRecord is the audit entry written when an instance is closed
// or killed through the lifecycle service.
type TerminationRecord struct {
	InstanceID    string         `json:"instance_id" db:"instance_id"`
	ApplicationID string         `json:"application_id" db:"application_id"`
	User          string         `json:"user" db:"user_name"`
	ProcessID     int            `json:"process_id" db:"process_id"`
	Method        ShutdownMethod `json:"method" db:"method"`
	Success       bool           `json:"success" db:"success"`
	Duration      time.Duration  `json:"duration" db:"duration_ns"`
	At            time.Time      `json:"at" db:"at"`
}

// NewLaunchRecord summarises a launch result for the audit log
func NewLaunchRecord(app *Application, user string, res *LaunchResult, at time.Time) LaunchRecord {
	rec := LaunchRecord{User: user, At: at}
	if app != nil {
		rec.ApplicationID, rec.ApplicationName = app.ID, app.Name
	}
	if res == nil {
		return rec
	}
	rec.AttemptID = res.AttemptID
	rec.Launcher = res.LauncherName
	rec.LaunchType = res.LaunchType
	rec.Success = res.Success
	rec.ErrorCode = res.ErrorCode
	rec.ErrorMessage = res.ErrorMessage
	rec.Duration = res.Duration
	if res.Instance != nil {
		rec.InstanceID = res.Instance.InstanceID
		rec.ProcessID = res.Instance.ProcessID
	}
	return rec
}
