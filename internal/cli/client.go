package cli

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// App is the catalog entry as listed by the server.
type App struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	MinimumRole string `json:"minimum_role"`
	Enabled     bool   `json:"enabled"`
}

// Instance is the client-side view of a tracked application instance.
type Instance struct {
	InstanceID    string    `json:"instance_id"`
	Application   *App      `json:"application"`
	LaunchedBy    string    `json:"launched_by"`
	ProcessID     int       `json:"process_id"`
	MemoryUsageMB float64   `json:"memory_usage_mb"`
	IsResponding  bool      `json:"is_responding"`
	State         string    `json:"state"`
	ErrorMessage  string    `json:"error_message"`
	StartTime     time.Time `json:"start_time"`
	Launcher      string    `json:"launcher"`
}

// LaunchResult mirrors the server's launch response.
type LaunchResult struct {
	Success      bool      `json:"success"`
	Instance     *Instance `json:"instance"`
	ErrorMessage string    `json:"error_message"`
	ErrorCode    string    `json:"error_code"`
	Category     string    `json:"category"`
	LaunchType   string    `json:"launch_type"`
	Launcher     string    `json:"launcher"`
}

// ActionResult is returned by single-instance window and termination calls.
type ActionResult struct {
	Success    bool   `json:"success"`
	InstanceID string `json:"instance_id"`
	State      string `json:"state"`
	Error      string `json:"error"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to the launcher REST API.
type Client struct {
	http *resty.Client
	user string
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL, user string, timeout time.Duration) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "launcherctl/1.0")
	if user != "" {
		r.SetHeader("X-Launcher-User", user)
	}
	return &Client{http: r, user: user}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var failure apiError
	req := c.http.R().SetContext(ctx).SetError(&failure)
	if out != nil {
		req.SetResult(out)
	}
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		if failure.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status(), failure.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status())
	}
	return nil
}

// Apps lists the catalog, filtered by the client's user when set
func (c *Client) Apps(ctx context.Context) ([]App, error) {
	var out struct {
		Applications []App `json:"applications"`
	}
	path := "/catalog"
	if c.user != "" {
		path += "?user=" + url.QueryEscape(c.user)
	}
	if err := c.do(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Applications, nil
}

// Launch starts an application as the client's user. A launch the server
// refused still yields a result; err is reserved for transport and lookup
// failures.
func (c *Client) Launch(ctx context.Context, appID string) (*LaunchResult, error) {
	return c.launch(ctx, "/launch", types.LaunchRequest{ApplicationID: appID, User: c.user}, "launch "+appID)
}

// Restart closes an instance and launches its application again as the
// client's user
func (c *Client) Restart(ctx context.Context, id string) (*LaunchResult, error) {
	return c.launch(ctx, "/instances/"+id+"/restart", types.RestartRequest{User: c.user}, "restart "+id)
}

func (c *Client) launch(ctx context.Context, path string, body interface{}, what string) (*LaunchResult, error) {
	var out struct {
		LaunchResult
		Error string `json:"error"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if resp.IsError() && out.ErrorCode == "" {
		if out.Error != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status(), out.Error)
		}
		return nil, fmt.Errorf("%s: %s", what, resp.Status())
	}
	return &out.LaunchResult, nil
}

// Instances lists tracked instances; running restricts to live ones
func (c *Client) Instances(ctx context.Context, running bool) ([]Instance, error) {
	var out struct {
		Instances []Instance `json:"instances"`
	}
	path := "/instances"
	if running {
		path += "?state=running"
	}
	if err := c.do(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Instances, nil
}

// Action posts a window or termination action for one instance
func (c *Client) Action(ctx context.Context, id, action string, body interface{}) (*ActionResult, error) {
	var out ActionResult
	if err := c.do(ctx, resty.MethodPost, "/instances/"+id+"/"+action, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Shutdown closes every instance, force-killing stragglers
func (c *Client) Shutdown(ctx context.Context, graceful, final time.Duration) (*types.ShutdownResult, error) {
	var out types.ShutdownResult
	req := types.ShutdownRequest{
		GracefulTimeoutMs: int(graceful / time.Millisecond),
		FinalTimeoutMs:    int(final / time.Millisecond),
	}
	if err := c.do(ctx, resty.MethodPost, "/bulk/shutdown", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns the raw statistics document
func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := c.do(ctx, resty.MethodGet, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
