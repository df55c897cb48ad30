package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

type terminateFunc func(ctx context.Context, inst *types.ApplicationInstance, l launcher.Launcher) types.ApplicationShutdownInfo

// fanOut runs fn for every target with bounded concurrency. One failing
// or panicking target never stops the others.
func (s *Service) fanOut(ctx context.Context, targets []*types.ApplicationInstance, fn terminateFunc) []types.ApplicationShutdownInfo {
	out := make([]types.ApplicationShutdownInfo, len(targets))
	var g errgroup.Group
	g.SetLimit(s.cfg.BulkConcurrency)

	for i, inst := range targets {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("Termination panicked", zap.String("instance_id", inst.InstanceID), zap.Any("panic", r))
					out[i] = types.ApplicationShutdownInfo{
						InstanceID:      inst.InstanceID,
						ApplicationName: inst.ApplicationName(),
						ProcessID:       inst.ProcessID,
						Method:          types.ShutdownFailed,
						Error:           fmt.Sprintf("panic: %v", r),
					}
				}
			}()
			l, _ := s.launchers.ForInstance(inst)
			out[i] = fn(ctx, inst, l)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) build(ctx context.Context, infos []types.ApplicationShutdownInfo, begin time.Time) *types.ShutdownResult {
	b := types.NewShutdownBuilder(len(infos))
	for _, info := range infos {
		b.Record(info)
	}
	if err := ctx.Err(); err != nil {
		b.AddError("interrupted: " + err.Error())
	}
	return b.Build(s.now().Sub(begin))
}

// CloseAll gracefully closes every active instance, each within timeout
func (s *Service) CloseAll(ctx context.Context, timeout time.Duration) *types.ShutdownResult {
	if timeout <= 0 {
		timeout = s.cfg.GracefulTimeout
	}
	begin := s.now()
	infos := s.fanOut(ctx, s.instances.Active(), func(ctx context.Context, inst *types.ApplicationInstance, l launcher.Launcher) types.ApplicationShutdownInfo {
		return s.terminate(ctx, inst, l, launcher.Graceful, timeout)
	})
	res := s.build(ctx, infos, begin)
	s.log.Info("Closed all instances",
		zap.Int("total", res.TotalApplications),
		zap.Int("graceful", res.GracefullyClosed),
		zap.Int("failed", res.FailedToClose),
		zap.Duration("duration", res.Duration))
	return res
}

// KillAll forcibly terminates every active instance and returns how many
// are confirmed gone.
func (s *Service) KillAll(ctx context.Context) int {
	infos := s.fanOut(ctx, s.instances.Active(), func(ctx context.Context, inst *types.ApplicationInstance, l launcher.Launcher) types.ApplicationShutdownInfo {
		return s.terminate(ctx, inst, l, launcher.Force, s.cfg.KillTimeout)
	})
	n := 0
	for _, info := range infos {
		if info.Success {
			n++
		}
	}
	s.log.Info("Killed all instances", zap.Int("total", len(infos)), zap.Int("terminated", n))
	return n
}

// ShutdownAll closes every active instance gracefully and kills those still
// running after graceful, giving each kill up to final.
func (s *Service) ShutdownAll(ctx context.Context, graceful, final time.Duration) *types.ShutdownResult {
	if graceful <= 0 {
		graceful = s.cfg.GracefulTimeout
	}
	if final <= 0 {
		final = s.cfg.KillTimeout
	}
	begin := s.now()
	targets := s.instances.Active()
	infos := s.fanOut(ctx, targets, func(ctx context.Context, inst *types.ApplicationInstance, l launcher.Launcher) types.ApplicationShutdownInfo {
		return s.terminate(ctx, inst, l, launcher.Graceful, graceful)
	})

	var pending []int
	var retry []*types.ApplicationInstance
	for i, info := range infos {
		if info.Success {
			continue
		}
		pending = append(pending, i)
		inst, ok := s.instances.Get(info.InstanceID)
		if !ok {
			inst = targets[i]
		}
		retry = append(retry, inst)
	}

	if len(retry) > 0 {
		s.log.Info("Escalating to kill", zap.Int("remaining", len(retry)), zap.Duration("final_timeout", final))
		forced := s.fanOut(ctx, retry, func(ctx context.Context, inst *types.ApplicationInstance, l launcher.Launcher) types.ApplicationShutdownInfo {
			return s.terminate(ctx, inst, l, launcher.Force, final)
		})
		for j, idx := range pending {
			info := forced[j]
			info.Duration += infos[idx].Duration
			infos[idx] = info
		}
	}

	res := s.build(ctx, infos, begin)
	s.metrics.RecordShutdown(res.Duration)
	s.log.Info("Shutdown complete",
		zap.Int("total", res.TotalApplications),
		zap.Int("graceful", res.GracefullyClosed),
		zap.Int("forced", res.ForceClosed),
		zap.Int("failed", res.FailedToClose),
		zap.Duration("duration", res.Duration))
	return res
}
