package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// resolve returns a copy of the instance and the launcher that owns it
func (s *Service) resolve(id string) (*types.ApplicationInstance, launcher.Launcher, bool) {
	inst, ok := s.instances.Get(id)
	if !ok {
		return nil, nil, false
	}
	l, _ := s.launchers.ForInstance(inst)
	return inst, l, true
}

// SwitchTo brings the instance to the foreground. Unknown ids and failed
// activations report false.
func (s *Service) SwitchTo(ctx context.Context, id string) bool {
	inst, l, ok := s.resolve(id)
	if !ok || l == nil || !inst.IsActiveInstance() {
		return false
	}
	if !l.SwitchTo(ctx, inst) {
		return false
	}
	s.emit(Event{Kind: EventActivated, Instance: inst, Reason: "switch requested"})
	return true
}

// Minimize minimizes the instance's window
func (s *Service) Minimize(ctx context.Context, id string) bool {
	inst, l, ok := s.resolve(id)
	if !ok || !inst.IsActiveInstance() {
		return false
	}
	wc, ok := l.(launcher.WindowController)
	return ok && wc.Minimize(ctx, inst)
}

// Restore restores the instance's window from minimized or maximized
func (s *Service) Restore(ctx context.Context, id string) bool {
	inst, l, ok := s.resolve(id)
	if !ok || !inst.IsActiveInstance() {
		return false
	}
	wc, ok := l.(launcher.WindowController)
	return ok && wc.Restore(ctx, inst)
}

// Close asks the instance to exit and waits up to timeout. A non-positive
// timeout uses the configured graceful timeout.
func (s *Service) Close(ctx context.Context, id string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = s.cfg.GracefulTimeout
	}
	inst, l, ok := s.resolve(id)
	if !ok {
		return false
	}
	return s.terminate(ctx, inst, l, launcher.Graceful, timeout).Success
}

// Kill forcibly terminates the instance
func (s *Service) Kill(ctx context.Context, id string) bool {
	inst, l, ok := s.resolve(id)
	if !ok {
		return false
	}
	return s.terminate(ctx, inst, l, launcher.Force, s.cfg.KillTimeout).Success
}

// terminate stops one instance and records the outcome. The instance moves
// to Closing first and to Terminated once exit is confirmed.
func (s *Service) terminate(ctx context.Context, inst *types.ApplicationInstance, l launcher.Launcher,
	mode launcher.TerminateMode, timeout time.Duration) types.ApplicationShutdownInfo {

	begin := s.now()
	info := types.ApplicationShutdownInfo{
		InstanceID:      inst.InstanceID,
		ApplicationName: inst.ApplicationName(),
		ProcessID:       inst.ProcessID,
	}
	done := func(method types.ShutdownMethod, ok bool) types.ApplicationShutdownInfo {
		info.Method, info.Success = method, ok
		info.Duration = s.now().Sub(begin)
		s.metrics.RecordTermination(string(method))
		s.auditTermination(ctx, inst, method, ok, info.Duration)
		return info
	}

	if inst.State.IsTerminated() {
		info.Method, info.Success = types.ShutdownAlreadyExited, true
		return info
	}
	if !s.probe(ctx, l, inst).Alive {
		s.finish(ctx, inst, l, types.ShutdownAlreadyExited, "process already exited")
		return done(types.ShutdownAlreadyExited, true)
	}

	if inst.State != types.StateClosing {
		s.transition(inst.InstanceID, types.StateClosing, mode.String()+" close requested")
	}

	var ok bool
	if l != nil {
		ok = l.Terminate(ctx, inst, mode, timeout)
	} else {
		ok = s.fallbackTerminate(ctx, inst, mode, timeout)
	}

	method := types.ShutdownGraceful
	if mode == launcher.Force {
		method = types.ShutdownForced
	}
	if !ok {
		info.Error = fmt.Sprintf("%s termination not confirmed within %s", mode, timeout)
		s.log.Warn("Termination not confirmed",
			zap.String("instance_id", inst.InstanceID),
			zap.Int("pid", inst.ProcessID),
			zap.String("mode", mode.String()),
			zap.Duration("timeout", timeout))
		return done(types.ShutdownFailed, false)
	}
	s.finish(ctx, inst, l, method, mode.String()+" close confirmed")
	return done(method, true)
}

// fallbackTerminate handles instances whose launcher is no longer registered
func (s *Service) fallbackTerminate(ctx context.Context, inst *types.ApplicationInstance, mode launcher.TerminateMode, timeout time.Duration) bool {
	if inst.IsVirtual || s.monitor == nil {
		return false
	}
	if mode == launcher.Force {
		return s.monitor.KillProcess(ctx, inst.ProcessID, timeout)
	}
	return s.monitor.CloseProcessGracefully(ctx, inst.ProcessID, timeout)
}

// finish marks the instance terminated, lets its launcher release
// resources and announces the stop.
func (s *Service) finish(ctx context.Context, inst *types.ApplicationInstance, l launcher.Launcher, method types.ShutdownMethod, reason string) {
	updated, from, ok := s.transition(inst.InstanceID, types.StateTerminated, reason)
	if l != nil {
		l.Cleanup(ctx, inst)
	}
	if !ok {
		return
	}
	s.emit(Event{Kind: EventStopped, Instance: updated, From: from, To: types.StateTerminated, Reason: reason, Method: method})
}

// transition moves the stored instance to state to. It reports the
// previous state and whether the move happened.
func (s *Service) transition(id string, to types.State, reason string) (*types.ApplicationInstance, types.State, bool) {
	var from types.State
	updated, err := s.instances.Mutate(id, reason, func(i *types.ApplicationInstance) error {
		from = i.State
		return i.TransitionTo(to, s.now())
	})
	if err != nil {
		return nil, from, false
	}
	if to != types.StateTerminated {
		s.emit(Event{Kind: EventStateChanged, Instance: updated, From: from, To: to, Reason: reason})
	}
	return updated, from, true
}

// probe observes inst through its launcher, falling back to the process
// monitor. A panicking prober leaves the recorded state untouched.
func (s *Service) probe(ctx context.Context, l launcher.Launcher, inst *types.ApplicationInstance) (p launcher.Probe) {
	current := launcher.Probe{
		Alive:       inst.IsActiveInstance(),
		Responding:  inst.IsResponding,
		MemoryMB:    inst.MemoryUsageMB,
		ProcessName: inst.ProcessName,
		Window:      inst.Window,
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Probe panicked", zap.String("instance_id", inst.InstanceID), zap.Any("panic", r))
			p = current
		}
	}()

	if lp, ok := l.(launcher.LivenessProber); ok {
		return lp.Probe(ctx, inst)
	}
	if inst.IsVirtual || s.monitor == nil {
		return current
	}
	info := s.monitor.Sample(inst.ProcessID)
	if info == nil {
		current.Alive = s.monitor.IsProcessAlive(inst.ProcessID)
		current.Responding = current.Alive && inst.IsResponding
		return current
	}
	return launcher.Probe{Alive: true, Responding: info.IsResponding, MemoryMB: info.MemoryMB, ProcessName: info.Name, Window: inst.Window}
}
