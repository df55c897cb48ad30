package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/api/middleware"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/catalog"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/audit"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

const (
	maxCloseTimeout = 2 * time.Minute
	defaultAudit    = 50
	maxAudit        = 1000
)

// Handlers contains all HTTP handlers
type Handlers struct {
	lifecycle *lifecycle.Service
	catalog   *catalog.Store
	audit     audit.Sink
	metrics   *monitoring.Metrics
	log       *logging.Logger
	version   string
}

// NewHandlers creates a new handler set. sink may be nil.
func NewHandlers(svc *lifecycle.Service, store *catalog.Store, sink audit.Sink, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	return &Handlers{
		lifecycle: svc,
		catalog:   store,
		audit:     sink,
		metrics:   metrics,
		log:       logging.OrNop(log).Named("api"),
		version:   "1.0.0",
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/catalog", h.ListCatalog)
	r.GET("/catalog/:id", h.GetCatalogApp)

	r.POST("/launch", h.Launch)

	r.GET("/instances", h.ListInstances)
	r.POST("/instances", h.RegisterInstance)
	r.GET("/instances/:id", h.GetInstance)
	r.POST("/instances/:id/switch", h.SwitchTo)
	r.POST("/instances/:id/minimize", h.Minimize)
	r.POST("/instances/:id/restore", h.Restore)
	r.POST("/instances/:id/close", h.Close)
	r.POST("/instances/:id/kill", h.Kill)
	r.POST("/instances/:id/restart", h.Restart)

	r.POST("/bulk/close", h.CloseAll)
	r.POST("/bulk/kill", h.KillAll)
	r.POST("/bulk/shutdown", h.ShutdownAll)

	r.POST("/maintenance/cleanup", h.Cleanup)
	r.GET("/maintenance/validate", h.Validate)

	r.GET("/monitoring", h.MonitoringStatus)
	r.POST("/monitoring/start", h.StartMonitoring)
	r.POST("/monitoring/stop", h.StopMonitoring)
	r.POST("/monitoring/refresh", h.Refresh)

	r.GET("/stats", h.Stats)
	r.GET("/audit/launches", h.RecentLaunches)
	r.GET("/audit/terminations", h.RecentTerminations)

	r.POST("/logs", h.IngestLogs)
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Application Launcher",
		"version": h.version,
	})
}

// Health reports component status
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"instances":       h.lifecycle.Count(),
		"monitoring":      h.lifecycle.IsMonitoring(),
		"catalog_version": h.catalog.Version(),
		"launchers":       h.lifecycle.Launchers().Names(),
		"audit":           h.audit != nil,
		"uptime_seconds":  int64(h.metrics.UptimeDuration().Seconds()),
	})
}

// ListCatalog lists applications, filtered to what ?user may launch
func (h *Handlers) ListCatalog(c *gin.Context) {
	user := h.user(c)
	var apps []*types.Application
	if user != "" {
		apps = h.catalog.ForUser(user)
	} else {
		apps = h.catalog.List()
	}
	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"count":        len(apps),
		"version":      h.catalog.Version(),
	})
}

func (h *Handlers) GetCatalogApp(c *gin.Context) {
	app, ok := h.catalog.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		return
	}
	c.JSON(http.StatusOK, app)
}

// Launch starts a catalog application for a user
func (h *Handlers) Launch(c *gin.Context) {
	var req types.LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, ok := h.catalog.Get(req.ApplicationID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		return
	}

	res, err := h.lifecycle.Launch(c.Request.Context(), app, req.User)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, launcher.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(launchStatus(res), res)
}

// RegisterInstance adopts a process started outside the launcher
func (h *Handlers) RegisterInstance(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, ok := h.catalog.Get(req.ApplicationID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		return
	}

	res, err := h.lifecycle.Register(c.Request.Context(), app, req.ProcessID, req.User)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(launchStatus(res), res)
}

func launchStatus(res *types.LaunchResult) int {
	if res.Success {
		if res.LaunchType == types.LaunchNew {
			return http.StatusCreated
		}
		return http.StatusOK
	}
	switch res.Category {
	case types.FailureInvalidArgument:
		return http.StatusBadRequest
	case types.FailureNotPermitted:
		return http.StatusForbidden
	case types.FailureDisabled, types.FailureRegistration:
		return http.StatusConflict
	case types.FailureUnsupported:
		return http.StatusUnprocessableEntity
	case types.FailureWindowTimeout, types.FailureBridge:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ListInstances lists tracked instances, optionally by ?user, ?application or ?state=running
func (h *Handlers) ListInstances(c *gin.Context) {
	var out []*types.ApplicationInstance
	switch {
	case c.Query("application") != "":
		out = h.lifecycle.ByApplication(c.Query("application"))
	case c.Query("user") != "":
		out = h.lifecycle.ByUser(c.Query("user"))
	case c.Query("state") == "running":
		out = h.lifecycle.Running()
	default:
		out = h.lifecycle.All()
	}
	c.JSON(http.StatusOK, gin.H{
		"instances": out,
		"count":     len(out),
	})
}

func (h *Handlers) GetInstance(c *gin.Context) {
	inst, ok := h.lifecycle.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (h *Handlers) SwitchTo(c *gin.Context) {
	h.windowAction(c, "switch", h.lifecycle.SwitchTo)
}

func (h *Handlers) Minimize(c *gin.Context) {
	h.windowAction(c, "minimize", h.lifecycle.Minimize)
}

func (h *Handlers) Restore(c *gin.Context) {
	h.windowAction(c, "restore", h.lifecycle.Restore)
}

func (h *Handlers) windowAction(c *gin.Context, action string, fn func(context.Context, string) bool) {
	id := c.Param("id")
	if _, ok := h.lifecycle.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     fn(c.Request.Context(), id),
		"action":      action,
		"instance_id": id,
	})
}

// Close asks an instance to exit within the optional timeout_ms budget
func (h *Handlers) Close(c *gin.Context) {
	var req types.CloseRequest
	if !h.bindOptional(c, &req) {
		return
	}
	id := c.Param("id")
	if _, ok := h.lifecycle.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}
	ok := h.lifecycle.Close(c.Request.Context(), id, millis(req.TimeoutMs))
	h.terminated(c, id, ok)
}

// Kill forcibly terminates an instance
func (h *Handlers) Kill(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.lifecycle.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}
	h.terminated(c, id, h.lifecycle.Kill(c.Request.Context(), id))
}

// Restart closes an instance and launches its application again
func (h *Handlers) Restart(c *gin.Context) {
	var req types.RestartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.lifecycle.Restart(c.Request.Context(), c.Param("id"), req.User)
	switch {
	case errors.Is(err, lifecycle.ErrUnknownInstance):
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(launchStatus(res), res)
	}
}

func (h *Handlers) terminated(c *gin.Context, id string, ok bool) {
	body := gin.H{"success": ok, "instance_id": id}
	if inst, found := h.lifecycle.Get(id); found {
		body["state"] = inst.State
		if inst.ErrorMessage != "" {
			body["error"] = inst.ErrorMessage
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handlers) CloseAll(c *gin.Context) {
	var req types.CloseRequest
	if !h.bindOptional(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.lifecycle.CloseAll(c.Request.Context(), millis(req.TimeoutMs)))
}

func (h *Handlers) KillAll(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"killed": h.lifecycle.KillAll(c.Request.Context())})
}

// ShutdownAll closes every instance, force-killing the ones that ignore
// the graceful request
func (h *Handlers) ShutdownAll(c *gin.Context) {
	var req types.ShutdownRequest
	if !h.bindOptional(c, &req) {
		return
	}
	res := h.lifecycle.ShutdownAll(c.Request.Context(), millis(req.GracefulTimeoutMs), millis(req.FinalTimeoutMs))
	h.log.Info("Bulk shutdown requested",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Int("total", res.TotalApplications),
		zap.Int("failed", res.FailedToClose))
	c.JSON(http.StatusOK, res)
}

// Cleanup drops terminated instances, or instances older than max_age_seconds
func (h *Handlers) Cleanup(c *gin.Context) {
	var req types.CleanupRequest
	if !h.bindOptional(c, &req) {
		return
	}
	var removed int
	if req.MaxAgeSeconds > 0 {
		removed = h.lifecycle.CleanupOlderThan(time.Duration(req.MaxAgeSeconds) * time.Second)
	} else {
		removed = h.lifecycle.Cleanup()
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed, "remaining": h.lifecycle.Count()})
}

func (h *Handlers) Validate(c *gin.Context) {
	issues := h.lifecycle.Validate()
	c.JSON(http.StatusOK, gin.H{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}

func (h *Handlers) MonitoringStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"monitoring": h.lifecycle.IsMonitoring()})
}

func (h *Handlers) StartMonitoring(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"started": h.lifecycle.StartMonitoring(), "monitoring": true})
}

func (h *Handlers) StopMonitoring(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stopped": h.lifecycle.StopMonitoring(), "monitoring": false})
}

// Refresh runs one monitoring sweep now
func (h *Handlers) Refresh(c *gin.Context) {
	c.JSON(http.StatusOK, h.lifecycle.Refresh(c.Request.Context()))
}

func (h *Handlers) Stats(c *gin.Context) {
	snap := h.metrics.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"instances": h.lifecycle.Statistics(),
		"launches": gin.H{
			"total":        snap.TotalLaunches,
			"failed":       snap.FailedLaunches,
			"success_rate": snap.LaunchSuccessRate(),
		},
		"http": gin.H{
			"requests":        snap.TotalRequests,
			"errors":          snap.TotalErrors,
			"average_latency": snap.AverageLatency().String(),
		},
	})
}

func (h *Handlers) RecentLaunches(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log disabled"})
		return
	}
	recs, err := h.audit.Recent(c.Request.Context(), limit(c))
	if err != nil {
		h.log.Error("Audit query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"launches": recs, "count": len(recs)})
}

func (h *Handlers) RecentTerminations(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log disabled"})
		return
	}
	recs, err := h.audit.RecentTerminations(c.Request.Context(), limit(c))
	if err != nil {
		h.log.Error("Audit query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"terminations": recs, "count": len(recs)})
}

// user reads the acting user from ?user, then the user header
func (h *Handlers) user(c *gin.Context) string {
	if u := c.Query("user"); u != "" {
		return u
	}
	if u := c.GetHeader(middleware.UserHeader); u != "" {
		return u
	}
	return ""
}

// bindOptional binds a JSON body when one was sent
func (h *Handlers) bindOptional(c *gin.Context, v interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func millis(ms int) time.Duration {
	d := time.Duration(ms) * time.Millisecond
	if d > maxCloseTimeout {
		return maxCloseTimeout
	}
	return d
}

func limit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultAudit
	}
	if n > maxAudit {
		return maxAudit
	}
	return n
}
