package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxShellLogBatch = 200

// ShellLogEntry is one log line forwarded by the shell UI
type ShellLogEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message" binding:"required"`
	Context map[string]interface{} `json:"context"`
	Session string                 `json:"session_id"`
}

// ShellLogBatch is the body of POST /logs
type ShellLogBatch struct {
	Entries []ShellLogEntry `json:"entries" binding:"required,dive"`
}

// IngestLogs writes shell UI log entries into the server log
func (h *Handlers) IngestLogs(c *gin.Context) {
	var req ShellLogBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Entries) > maxShellLogBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many log entries"})
		return
	}

	log := h.log.Named("shell")
	for _, e := range req.Entries {
		fields := make([]zap.Field, 0, len(e.Context)+1)
		if e.Session != "" {
			fields = append(fields, zap.String("session_id", e.Session))
		}
		for k, v := range e.Context {
			fields = append(fields, zap.Any(k, v))
		}
		switch e.Level {
		case "error":
			log.Error(e.Message, fields...)
		case "warn":
			log.Warn(e.Message, fields...)
		case "debug", "verbose":
			log.Debug(e.Message, fields...)
		default:
			log.Info(e.Message, fields...)
		}
	}

	c.JSON(http.StatusOK, gin.H{"accepted": len(req.Entries)})
}
