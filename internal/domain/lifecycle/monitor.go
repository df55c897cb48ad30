package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// SweepResult summarises one monitoring pass
type SweepResult struct {
	Checked     int            `json:"checked"`
	Transitions map[string]int `json:"transitions"`
	Updated     int            `json:"updated"`
	Expired     int            `json:"expired"`
	Duration    time.Duration  `json:"duration"`
}

// StartMonitoring starts the periodic sweep. It returns false when the
// loop is already running.
func (s *Service) StartMonitoring() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go s.loop(ctx, done)
	s.log.Info("Monitoring started", zap.Duration("interval", s.cfg.MonitorInterval))
	return true
}

// StopMonitoring halts the sweep and waits for an in-flight pass to end,
// so a following StartMonitoring never overlaps the old loop.
func (s *Service) StopMonitoring() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.log.Info("Monitoring stopped")
	return true
}

// IsMonitoring reports whether the sweep loop is running
func (s *Service) IsMonitoring() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	return s.cancel != nil
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Refresh runs one monitoring pass now: every active instance is probed
// and its record reconciled with what the probe saw.
func (s *Service) Refresh(ctx context.Context) SweepResult {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	begin := s.now()
	res := SweepResult{Transitions: make(map[string]int)}
	for _, inst := range s.instances.Active() {
		if ctx.Err() != nil {
			break
		}
		res.Checked++
		l, _ := s.launchers.ForInstance(inst)
		to, changed := s.reconcile(ctx, inst, l)
		switch {
		case to != "":
			res.Transitions[string(to)]++
		case changed:
			res.Updated++
		}
	}
	if s.cfg.MaxInstanceAge > 0 {
		res.Expired = s.instances.CleanupOlderThan(s.cfg.MaxInstanceAge)
	}
	res.Duration = s.now().Sub(begin)
	s.metrics.RecordSweep(res.Duration, res.Transitions)
	if len(res.Transitions) > 0 || res.Expired > 0 {
		s.log.Debug("Sweep finished",
			zap.Int("checked", res.Checked),
			zap.Any("transitions", res.Transitions),
			zap.Int("expired", res.Expired))
	}
	return res
}

// reconcile probes one instance and applies what changed. It returns the
// new state when the state moved, and whether any other field changed.
func (s *Service) reconcile(ctx context.Context, inst *types.ApplicationInstance, l launcher.Launcher) (types.State, bool) {
	p := s.probe(ctx, l, inst)

	if !p.Alive {
		s.finish(ctx, inst, l, types.ShutdownAlreadyExited, "process exited")
		return types.StateTerminated, false
	}

	next := inst.State
	switch {
	case inst.State == types.StateClosing:
	case p.Responding && inst.State != types.StateRunning:
		next = types.StateRunning
	case !p.Responding && inst.State == types.StateRunning:
		next = types.StateNotResponding
	}

	wasActive := inst.Window != nil && inst.Window.IsActive
	nowActive := p.Window != nil && p.Window.IsActive
	changed := p.ProcessName != "" && p.ProcessName != inst.ProcessName ||
		process.IsSignificantMemoryChange(inst.MemoryUsageMB, p.MemoryMB) ||
		p.Responding != inst.IsResponding ||
		windowChanged(inst.Window, p.Window)

	if next == inst.State && !changed {
		return "", false
	}

	var from types.State
	updated, err := s.instances.Mutate(inst.InstanceID, "monitoring sweep", func(i *types.ApplicationInstance) error {
		from = i.State
		if next != i.State {
			if err := i.TransitionTo(next, s.now()); err != nil {
				return err
			}
		}
		i.IsResponding = p.Responding
		i.MemoryUsageMB = p.MemoryMB
		if p.ProcessName != "" {
			i.ProcessName = p.ProcessName
		}
		if p.Window != nil {
			i.Window = p.Window.Clone()
		}
		return nil
	})
	if err != nil {
		s.log.Debug("Sweep update skipped", zap.String("instance_id", inst.InstanceID), zap.Error(err))
		return "", false
	}

	if from != updated.State {
		s.emit(Event{Kind: EventStateChanged, Instance: updated, From: from, To: updated.State, Reason: "monitoring sweep"})
	}
	if !wasActive && nowActive {
		s.emit(Event{Kind: EventActivated, Instance: updated, Reason: "window activated"})
	}
	if changed {
		s.emit(Event{Kind: EventUpdated, Instance: updated, Reason: "monitoring sweep"})
	}
	if from != updated.State {
		return updated.State, changed
	}
	return "", changed
}

func windowChanged(old, cur *types.WindowInfo) bool {
	if cur == nil {
		return false
	}
	if old == nil {
		return true
	}
	return old.Handle != cur.Handle || old.Title != cur.Title ||
		old.IsActive != cur.IsActive || old.IsMinimized != cur.IsMinimized
}
