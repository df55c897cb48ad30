package types

// LaunchRequest asks the API to launch a catalog application
type LaunchRequest struct {
	ApplicationID string `json:"application_id" binding:"required"`
	User          string `json:"user" binding:"required"`
}

// RegisterRequest asks the API to adopt an already running process
type RegisterRequest struct {
	ApplicationID string `json:"application_id" binding:"required"`
	User          string `json:"user" binding:"required"`
	ProcessID     int    `json:"process_id" binding:"required"`
}

// RestartRequest names the user the replacement instance is launched for
type RestartRequest struct {
	User string `json:"user" binding:"required"`
}

// CloseRequest carries an optional graceful-close budget in milliseconds
type CloseRequest struct {
	TimeoutMs int `json:"timeout_ms"`
}

// ShutdownRequest carries the two budgets of a graceful-then-forced sweep
type ShutdownRequest struct {
	GracefulTimeoutMs int `json:"graceful_timeout_ms"`
	FinalTimeoutMs    int `json:"final_timeout_ms"`
}

// CleanupRequest selects age-based eviction when MaxAgeSeconds is positive
type CleanupRequest struct {
	MaxAgeSeconds int `json:"max_age_seconds"`
}

// WSMessage is one frame on the event stream
type WSMessage struct {
	Type      string      `json:"type"`
	Event     string      `json:"event,omitempty"`
	Instance  interface{} `json:"instance,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	URL       string      `json:"url,omitempty"`
	Title     string      `json:"title,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}
