package launcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// FolderLauncher opens directories in the file manager
type FolderLauncher struct {
	base
	fileManager string
}

// NewFolderLauncher creates the folder launcher. An empty file manager
// selects the platform default.
func NewFolderLauncher(d Deps, fileManager string, windowWait time.Duration) *FolderLauncher {
	if fileManager == "" {
		fileManager = DefaultFileManager()
	}
	return &FolderLauncher{base: newBase("folder", 20, d, windowWait), fileManager: fileManager}
}

// DefaultFileManager returns the file manager used when none is configured
func DefaultFileManager() string {
	switch runtime.GOOS {
	case "windows":
		return "explorer.exe"
	case "darwin":
		return "open"
	}
	return "xdg-open"
}

// CanLaunch accepts folder applications whose path is an existing directory
func (l *FolderLauncher) CanLaunch(app *types.Application) bool {
	if app == nil || app.Type != types.TypeFolder || strings.TrimSpace(app.ExecutablePath) == "" {
		return false
	}
	fi, err := os.Stat(app.ExecutablePath)
	return err == nil && fi.IsDir()
}

func (l *FolderLauncher) Launch(ctx context.Context, app *types.Application, launchedBy string) (res *types.LaunchResult, err error) {
	if err := checkArgs(app, launchedBy); err != nil {
		return nil, err
	}
	begin := l.now()
	defer guard(l.log, l.name, begin, &res, &err)

	if !l.CanLaunch(app) {
		return types.LaunchUnsupported(app, l.name), nil
	}

	dir := filepath.Clean(app.ExecutablePath)
	title := filepath.Base(dir)
	h := l.watchHandoff(ctx, l.fileManager)
	s, failed := l.startAndWait(ctx, l.fileManager, []string{dir}, "", l.windowWait, func(pid int) *types.WindowInfo {
		if win, err := l.windows.FindByTitle(title, []int{pid}); err == nil {
			return win
		}
		if win := l.mainWindow(pid); win != nil {
			return win
		}
		return l.handedOff(h, title)
	})
	if failed != nil {
		return failed, nil
	}
	if s.window != nil {
		s.pid = s.window.ProcessID
	}

	inst := l.newRunning(app, launchedBy, s, types.FolderInstanceData{Path: dir})
	l.log.Info("Opened folder", zap.String("app_id", app.ID), zap.String("path", dir), zap.Int("pid", inst.ProcessID))
	return types.LaunchSucceeded(inst, l.now().Sub(begin)), nil
}

// FindExistingInstance returns a live instance showing the same folder
func (l *FolderLauncher) FindExistingInstance(_ context.Context, app *types.Application, candidates []*types.ApplicationInstance) (*types.ApplicationInstance, bool) {
	if app == nil {
		return nil, false
	}
	dir := filepath.Clean(app.ExecutablePath)
	return l.findAlive(candidates, func(c *types.ApplicationInstance) bool {
		return c.FolderPath() == dir
	})
}
