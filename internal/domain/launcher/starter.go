package launcher

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
)

// ExecStarter starts processes with os/exec and reaps them in the
// background.
type ExecStarter struct {
	log *logging.Logger
}

// NewExecStarter creates a starter
func NewExecStarter(log *logging.Logger) *ExecStarter {
	return &ExecStarter{log: logging.OrNop(log).Named("starter")}
}

// Start launches path detached from ctx so the application survives the
// request that started it.
func (s *ExecStarter) Start(ctx context.Context, path string, args []string, dir string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	configureDetached(cmd)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", path, err)
	}
	pid := cmd.Process.Pid

	go func() {
		err := cmd.Wait()
		s.log.Debug("Process exited", zap.Int("pid", pid), zap.String("path", path), zap.Error(err))
	}()
	return pid, nil
}
