// Package logging provides structured logging using uber/zap.
//
// Production mode writes JSON, development mode writes colored console
// output. Components receive a *Logger and derive a named child from it:
//
//	logger := logging.NewDefault()
//	monitorLog := logger.Named("process")
//	monitorLog.Info("probe failed", zap.Int("pid", pid), zap.Error(err))
package logging
