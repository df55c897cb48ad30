package types

import (
	"time"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/id"
)

// InstanceData is the per-type metadata carried by an instance. Exactly one
// variant exists per ApplicationType.
type InstanceData interface {
	Kind() ApplicationType
}

// DesktopInstanceData describes a native executable launch
type DesktopInstanceData struct {
	WorkingDirectory string `json:"working_directory,omitempty"`
	CommandLine      string `json:"command_line,omitempty"`
}

// ChromeAppInstanceData describes a chrome --app window. AppKey tells
// several app windows hosted by the same chrome processes apart.
type ChromeAppInstanceData struct {
	AppKey              string `json:"app_key"`
	AppURL              string `json:"app_url"`
	ExpectedWindowTitle string `json:"expected_window_title,omitempty"`
}

// WebInstanceData describes a URL opened in a browser or embedded view
type WebInstanceData struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id,omitempty"`
	Embedded  bool   `json:"embedded"`
}

// FolderInstanceData describes a file manager window
type FolderInstanceData struct {
	Path string `json:"path"`
}

// AndroidInstanceData describes an app running in the Android subsystem
type AndroidInstanceData struct {
	PackageName string `json:"package_name"`
	Label       string `json:"label,omitempty"`
	VersionName string `json:"version_name,omitempty"`
	APKPath     string `json:"apk_path,omitempty"`
}

func (DesktopInstanceData) Kind() ApplicationType   { return TypeDesktop }
func (ChromeAppInstanceData) Kind() ApplicationType { return TypeChromeApp }
func (WebInstanceData) Kind() ApplicationType       { return TypeWeb }
func (FolderInstanceData) Kind() ApplicationType    { return TypeFolder }
func (AndroidInstanceData) Kind() ApplicationType   { return TypeAndroid }

// ApplicationInstance is one tracked launch of an Application.
type ApplicationInstance struct {
	InstanceID    string       `json:"instance_id"`
	Application   *Application `json:"application"`
	LaunchedBy    string       `json:"launched_by"`
	ProcessID     int          `json:"process_id"`
	ProcessName   string       `json:"process_name,omitempty"`
	MemoryUsageMB float64      `json:"memory_usage_mb"`
	IsResponding  bool         `json:"is_responding"`
	IsVirtual     bool         `json:"is_virtual"`
	Window        *WindowInfo  `json:"window,omitempty"`
	State         State        `json:"state"`
	ErrorMessage  string       `json:"error_message,omitempty"`
	StartTime     time.Time    `json:"start_time"`
	EndTime       *time.Time   `json:"end_time,omitempty"`
	LastUpdated   time.Time    `json:"last_updated"`
	Data          InstanceData `json:"data,omitempty"`
	// Launcher names the launcher that started the instance.
	Launcher string `json:"launcher,omitempty"`
}

// NewInstance creates an instance in StateStarting with a fresh unique id.
func NewInstance(app *Application, launchedBy string, pid int, data InstanceData, now time.Time) *ApplicationInstance {
	appID := ""
	if app != nil {
		appID = app.ID
	}
	return &ApplicationInstance{
		InstanceID:   string(id.NewInstanceID(appID, pid)),
		Application:  app,
		LaunchedBy:   launchedBy,
		ProcessID:    pid,
		IsResponding: true,
		State:        StateStarting,
		StartTime:    now,
		LastUpdated:  now,
		Data:         data,
	}
}

// IsActiveInstance reports whether the instance still counts as running.
func (i *ApplicationInstance) IsActiveInstance() bool {
	return i.State.IsActive()
}

// TransitionTo moves the instance to next. Re-entering the current state is
// a no-op. Entering a terminal state stamps EndTime once.
func (i *ApplicationInstance) TransitionTo(next State, now time.Time) error {
	if i.State == next {
		return nil
	}
	if !i.State.CanTransitionTo(next) {
		return transitionError(i.State, next)
	}
	i.State = next
	i.LastUpdated = now
	if next.IsTerminated() && i.EndTime == nil {
		end := now
		i.EndTime = &end
	}
	if next.IsTerminated() {
		i.IsResponding = false
	}
	return nil
}

// Fail moves the instance to StateError with a message.
func (i *ApplicationInstance) Fail(msg string, now time.Time) error {
	if err := i.TransitionTo(StateError, now); err != nil {
		return err
	}
	i.ErrorMessage = msg
	return nil
}

// Uptime is the time since launch, frozen at EndTime once terminated.
func (i *ApplicationInstance) Uptime(now time.Time) time.Duration {
	if i.EndTime != nil {
		return i.EndTime.Sub(i.StartTime)
	}
	return now.Sub(i.StartTime)
}

// Type returns the application type or empty when no application is set.
func (i *ApplicationInstance) Type() ApplicationType {
	if i.Application == nil {
		return ""
	}
	return i.Application.Type
}

// ApplicationID returns the application id or empty.
func (i *ApplicationInstance) ApplicationID() string {
	if i.Application == nil {
		return ""
	}
	return i.Application.ID
}

// ApplicationName returns the display name or empty.
func (i *ApplicationInstance) ApplicationName() string {
	if i.Application == nil {
		return ""
	}
	return i.Application.Name
}

// ChromeAppKey returns the chrome app key, if this is a chrome app instance
func (i *ApplicationInstance) ChromeAppKey() string {
	if d, ok := i.Data.(ChromeAppInstanceData); ok {
		return d.AppKey
	}
	return ""
}

// ExpectedWindowTitle returns the title a chrome app window should carry
func (i *ApplicationInstance) ExpectedWindowTitle() string {
	if d, ok := i.Data.(ChromeAppInstanceData); ok {
		return d.ExpectedWindowTitle
	}
	return ""
}

// WebURL returns the URL of a web or chrome app instance
func (i *ApplicationInstance) WebURL() string {
	switch d := i.Data.(type) {
	case WebInstanceData:
		return d.URL
	case ChromeAppInstanceData:
		return d.AppURL
	}
	return ""
}

// SessionID returns the embedded-browser session id
func (i *ApplicationInstance) SessionID() string {
	if d, ok := i.Data.(WebInstanceData); ok {
		return d.SessionID
	}
	return ""
}

// FolderPath returns the folder opened by a folder instance
func (i *ApplicationInstance) FolderPath() string {
	if d, ok := i.Data.(FolderInstanceData); ok {
		return d.Path
	}
	return ""
}

// PackageName returns the Android package of an Android instance
func (i *ApplicationInstance) PackageName() string {
	if d, ok := i.Data.(AndroidInstanceData); ok {
		return d.PackageName
	}
	return ""
}

// Clone deep-copies the mutable parts of the instance. The Application
// pointer is shared since it is read-only.
func (i *ApplicationInstance) Clone() *ApplicationInstance {
	if i == nil {
		return nil
	}
	c := *i
	c.Window = i.Window.Clone()
	if i.EndTime != nil {
		end := *i.EndTime
		c.EndTime = &end
	}
	return &c
}
