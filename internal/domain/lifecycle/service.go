package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/instance"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// ErrUnknownInstance is returned for instance ids the registry does not hold
var ErrUnknownInstance = errors.New("unknown instance")

// ErrNotPermitted is wrapped by Authorizer errors that deny a launch
var ErrNotPermitted = errors.New("launch not permitted")

// Authorizer decides whether user may launch app
type Authorizer interface {
	Authorize(ctx context.Context, user string, app *types.Application) error
}

// AuditSink receives launch and termination records. Failures are logged
// and never affect the operation being audited.
type AuditSink interface {
	RecordLaunch(ctx context.Context, rec types.LaunchRecord) error
	RecordTermination(ctx context.Context, rec types.TerminationRecord) error
}

// Config holds the timing knobs of the service
type Config struct {
	MonitorInterval time.Duration
	GracefulTimeout time.Duration
	KillTimeout     time.Duration
	// MaxInstanceAge, when positive, makes each sweep drop older instances.
	MaxInstanceAge  time.Duration
	BulkConcurrency int
}

// DefaultConfig returns the service defaults
func DefaultConfig() Config {
	return Config{
		MonitorInterval: 5 * time.Second,
		GracefulTimeout: 5 * time.Second,
		KillTimeout:     3 * time.Second,
		BulkConcurrency: 8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = d.MonitorInterval
	}
	if c.GracefulTimeout <= 0 {
		c.GracefulTimeout = d.GracefulTimeout
	}
	if c.KillTimeout <= 0 {
		c.KillTimeout = d.KillTimeout
	}
	if c.BulkConcurrency <= 0 {
		c.BulkConcurrency = d.BulkConcurrency
	}
	return c
}

// Service orchestrates launches, window actions, termination and the
// monitoring sweep over the instance registry.
type Service struct {
	cfg       Config
	launchers *launcher.Registry
	instances *instance.Manager
	monitor   *process.Monitor
	auth      Authorizer
	audit     AuditSink
	metrics   *monitoring.Metrics
	log       *logging.Logger
	now       func() time.Time

	appLocks sync.Map // application id -> *sync.Mutex

	loopMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	sweepMu sync.Mutex

	subMu   sync.RWMutex
	subs    []subscription
	nextSub int
}

// Option configures a Service
type Option func(*Service)

// WithConfig replaces the default timing configuration
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg.withDefaults() }
}

// WithMonitor sets the process monitor used to probe instances whose
// launcher has no prober of its own.
func WithMonitor(m *process.Monitor) Option {
	return func(s *Service) { s.monitor = m }
}

// WithAuthorizer installs a launch authorization check
func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) { s.auth = a }
}

// WithAudit installs an audit sink
func WithAudit(a AuditSink) Option {
	return func(s *Service) { s.audit = a }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a lifecycle service over launchers and instances
func NewService(launchers *launcher.Registry, instances *instance.Manager, opts ...Option) *Service {
	s := &Service{
		cfg:       DefaultConfig(),
		launchers: launchers,
		instances: instances,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrNop(s.log).Named("lifecycle")
	return s
}

// WithMetrics adds metrics tracking to the service
func (s *Service) WithMetrics(metrics *monitoring.Metrics) *Service {
	s.metrics = metrics
	return s
}

// Instances exposes the registry the service writes to
func (s *Service) Instances() *instance.Manager { return s.instances }

// Launchers exposes the launcher registry
func (s *Service) Launchers() *launcher.Registry { return s.launchers }

func (s *Service) appLock(appID string) *sync.Mutex {
	v, _ := s.appLocks.LoadOrStore(appID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Launch starts app for launchedBy, or returns an existing instance when
// the application's instance policy asks for one. Only a nil application
// or a blank user produce an error; every other outcome is a LaunchResult.
func (s *Service) Launch(ctx context.Context, app *types.Application, launchedBy string) (*types.LaunchResult, error) {
	if app == nil {
		return nil, fmt.Errorf("%w: application is nil", launcher.ErrInvalidArgument)
	}
	if strings.TrimSpace(launchedBy) == "" {
		return nil, fmt.Errorf("%w: launchedBy is empty", launcher.ErrInvalidArgument)
	}

	begin := s.now()
	res, name := s.launch(ctx, app, launchedBy, begin)
	return s.record(ctx, app, launchedBy, begin, res, name), nil
}

// record stamps the attempt id and duration on res, then meters, audits
// and logs it.
func (s *Service) record(ctx context.Context, app *types.Application, launchedBy string, begin time.Time, res *types.LaunchResult, name string) *types.LaunchResult {
	attempt := uuid.NewString()
	res = res.WithAttempt(attempt, name)
	if res.Duration == 0 {
		res = res.WithDuration(s.now().Sub(begin))
	}

	s.metrics.RecordLaunch(string(app.Type), string(res.LaunchType), string(res.Category), res.Success, res.Duration)
	s.auditLaunch(ctx, app, launchedBy, res)

	fields := []zap.Field{
		zap.String("attempt_id", attempt),
		zap.String("app_id", app.ID),
		zap.String("user", launchedBy),
		zap.String("launcher", name),
		zap.Duration("duration", res.Duration),
	}
	if res.Success {
		s.log.Info("Launch succeeded", append(fields, zap.String("launch_type", string(res.LaunchType)),
			zap.String("instance_id", res.Instance.InstanceID))...)
	} else {
		s.log.Warn("Launch failed", append(fields, zap.String("code", res.ErrorCode), zap.String("error", res.ErrorMessage))...)
	}
	return res
}

func (s *Service) launch(ctx context.Context, app *types.Application, launchedBy string, begin time.Time) (*types.LaunchResult, string) {
	if s.auth != nil {
		if err := s.auth.Authorize(ctx, launchedBy, app); err != nil {
			return types.LaunchDenied(err, s.now().Sub(begin)), ""
		}
	}
	if !app.Enabled {
		return types.LaunchFailed(types.FailureDisabled, fmt.Sprintf("application %q is disabled", app.Name), nil, 0), ""
	}

	l, ok := s.launchers.Select(app)
	if !ok {
		return types.LaunchUnsupported(app, ""), ""
	}

	// Single policies hold the application lock from the existence check
	// until the new instance is registered. Multiple-instance launches run
	// unlocked.
	if policy := app.Policy(); policy != types.PolicyMultiple {
		lock := s.appLock(app.ID)
		lock.Lock()
		defer lock.Unlock()

		if existing, owner := s.findExisting(ctx, app); existing != nil {
			if policy == types.PolicySingleActivate && owner.SwitchTo(ctx, existing) {
				s.emit(Event{Kind: EventActivated, Instance: existing, Reason: "single instance policy"})
				return types.LaunchActivatedExisting(existing, s.now().Sub(begin)), owner.Name()
			}
			return types.LaunchFoundExisting(existing, s.now().Sub(begin)), owner.Name()
		}
		if res := s.adoptExternal(ctx, app, launchedBy, l, begin); res != nil {
			if res.Success && policy == types.PolicySingleActivate {
				l.SwitchTo(ctx, res.Instance)
			}
			return res, l.Name()
		}
	}

	res, err := l.Launch(ctx, app, launchedBy)
	if err != nil {
		return types.LaunchFailed(types.FailureInvalidArgument, err.Error(), err, s.now().Sub(begin)), l.Name()
	}
	if !res.Success || res.Instance == nil {
		if res.Success {
			res = types.LaunchFailed(types.FailureUnexpected, l.Name()+" launcher returned no instance", nil, res.Duration)
		}
		return res, l.Name()
	}

	if !s.instances.Add(res.Instance) {
		l.Cleanup(ctx, res.Instance)
		return types.LaunchFailed(types.FailureRegistration,
			fmt.Sprintf("instance %s could not be registered", res.Instance.InstanceID), nil, s.now().Sub(begin)), l.Name()
	}
	s.emit(Event{Kind: EventStarted, Instance: res.Instance.Clone(), To: res.Instance.State})
	return res, l.Name()
}

// adoptExternal registers a running process of a desktop application that
// was started outside the launcher, so single-instance policies cover it
// too. It returns nil when there is nothing to adopt.
func (s *Service) adoptExternal(ctx context.Context, app *types.Application, launchedBy string, l launcher.Launcher, begin time.Time) *types.LaunchResult {
	if s.monitor == nil || app.Type != types.TypeDesktop || launcher.IsChromeExecutable(app.ExecutablePath) {
		return nil
	}
	for _, p := range s.monitor.FindProcessesByName(ctx, app.ExecutablePath) {
		if s.tracked(p.PID) {
			continue
		}
		return s.register(app, launchedBy, p.PID, l, begin)
	}
	return nil
}

func (s *Service) tracked(pid int) bool {
	for _, inst := range s.instances.ByProcess(pid) {
		if inst.IsActiveInstance() && !inst.IsVirtual {
			return true
		}
	}
	return false
}

// Register adopts the already running process pid as an instance of app.
// The process must be alive and not tracked by another active instance.
func (s *Service) Register(ctx context.Context, app *types.Application, pid int, launchedBy string) (*types.LaunchResult, error) {
	if app == nil {
		return nil, fmt.Errorf("%w: application is nil", launcher.ErrInvalidArgument)
	}
	if strings.TrimSpace(launchedBy) == "" {
		return nil, fmt.Errorf("%w: launchedBy is empty", launcher.ErrInvalidArgument)
	}
	if pid <= 0 {
		return nil, fmt.Errorf("%w: process id %d", launcher.ErrInvalidArgument, pid)
	}

	begin := s.now()
	res, name := s.registerChecked(ctx, app, launchedBy, pid, begin)
	return s.record(ctx, app, launchedBy, begin, res, name), nil
}

// Restart closes the instance, killing it when the close is not confirmed,
// and launches its application again for launchedBy.
func (s *Service) Restart(ctx context.Context, id, launchedBy string) (*types.LaunchResult, error) {
	if strings.TrimSpace(launchedBy) == "" {
		return nil, fmt.Errorf("%w: launchedBy is empty", launcher.ErrInvalidArgument)
	}
	inst, l, ok := s.resolve(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstance, id)
	}
	app := inst.Application
	if app == nil {
		return nil, fmt.Errorf("%w: instance %s has no application", launcher.ErrInvalidArgument, id)
	}

	begin := s.now()
	name := ""
	if l != nil {
		name = l.Name()
	}
	if s.auth != nil {
		if err := s.auth.Authorize(ctx, launchedBy, app); err != nil {
			return s.record(ctx, app, launchedBy, begin, types.LaunchDenied(err, s.now().Sub(begin)), name), nil
		}
	}
	if info := s.terminate(ctx, inst, l, launcher.Graceful, s.cfg.GracefulTimeout); !info.Success {
		if inst, _, ok = s.resolve(id); ok {
			info = s.terminate(ctx, inst, l, launcher.Force, s.cfg.KillTimeout)
		}
		if !info.Success {
			res := types.LaunchFailed(types.FailureUnexpected, "previous instance did not exit: "+info.Error, nil, s.now().Sub(begin))
			return s.record(ctx, app, launchedBy, begin, res, name), nil
		}
	}

	res, name := s.launch(ctx, app, launchedBy, begin)
	if res.Success && res.LaunchType == types.LaunchNew {
		res = types.LaunchRestarted(res.Instance, res.Duration)
	}
	return s.record(ctx, app, launchedBy, begin, res, name), nil
}

func (s *Service) registerChecked(ctx context.Context, app *types.Application, launchedBy string, pid int, begin time.Time) (*types.LaunchResult, string) {
	if s.auth != nil {
		if err := s.auth.Authorize(ctx, launchedBy, app); err != nil {
			return types.LaunchDenied(err, s.now().Sub(begin)), ""
		}
	}
	l, ok := s.launchers.Select(app)
	if !ok {
		return types.LaunchUnsupported(app, ""), ""
	}
	lock := s.appLock(app.ID)
	lock.Lock()
	defer lock.Unlock()
	if s.tracked(pid) {
		return types.LaunchFailed(types.FailureRegistration,
			fmt.Sprintf("process %d is already tracked", pid), nil, s.now().Sub(begin)), l.Name()
	}
	return s.register(app, launchedBy, pid, l, begin), l.Name()
}

// register builds a Running instance for an external process and adds it.
func (s *Service) register(app *types.Application, launchedBy string, pid int, l launcher.Launcher, begin time.Time) *types.LaunchResult {
	if s.monitor == nil {
		return types.LaunchFailed(types.FailureRegistration, "no process monitor to inspect external processes", nil, s.now().Sub(begin))
	}
	info, err := s.monitor.GetProcessInfo(pid)
	if err != nil {
		return types.LaunchFailed(types.FailureRegistration,
			fmt.Sprintf("process %d cannot be registered: %v", pid, err), err, s.now().Sub(begin))
	}

	now := s.now()
	inst := types.NewInstance(app, launchedBy, pid, types.DesktopInstanceData{
		WorkingDirectory: app.WorkingDirectory,
		CommandLine:      info.ExecutablePath,
	}, now)
	inst.Launcher = l.Name()
	inst.ProcessName = info.Name
	inst.MemoryUsageMB = info.MemoryMB
	inst.IsResponding = info.IsResponding
	_ = inst.TransitionTo(types.StateRunning, now)

	if !s.instances.Add(inst) {
		return types.LaunchFailed(types.FailureRegistration,
			fmt.Sprintf("instance %s could not be registered", inst.InstanceID), nil, s.now().Sub(begin))
	}
	s.log.Info("Registered external process",
		zap.String("app_id", app.ID),
		zap.Int("pid", pid),
		zap.String("instance_id", inst.InstanceID))
	s.emit(Event{Kind: EventStarted, Instance: inst.Clone(), To: inst.State, Reason: "external process registered"})
	return types.LaunchRegistered(inst, s.now().Sub(begin))
}

// findExisting asks the launcher that owns each live instance of app
// whether it is still usable.
func (s *Service) findExisting(ctx context.Context, app *types.Application) (*types.ApplicationInstance, launcher.Launcher) {
	for _, c := range s.instances.ByApplication(app.ID) {
		if !c.IsActiveInstance() {
			continue
		}
		owner, ok := s.launchers.ForInstance(c)
		if !ok {
			continue
		}
		if found, ok := owner.FindExistingInstance(ctx, app, []*types.ApplicationInstance{c}); ok {
			return found, owner
		}
	}
	return nil, nil
}

func (s *Service) auditLaunch(ctx context.Context, app *types.Application, user string, res *types.LaunchResult) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordLaunch(context.WithoutCancel(ctx), types.NewLaunchRecord(app, user, res, s.now())); err != nil {
		s.log.Warn("Audit write failed", zap.String("app_id", app.ID), zap.Error(err))
	}
}

func (s *Service) auditTermination(ctx context.Context, inst *types.ApplicationInstance, method types.ShutdownMethod, ok bool, d time.Duration) {
	if s.audit == nil || inst == nil {
		return
	}
	rec := types.TerminationRecord{
		InstanceID:    inst.InstanceID,
		ApplicationID: inst.ApplicationID(),
		User:          inst.LaunchedBy,
		ProcessID:     inst.ProcessID,
		Method:        method,
		Success:       ok,
		Duration:      d,
		At:            s.now(),
	}
	if err := s.audit.RecordTermination(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Warn("Audit write failed", zap.String("instance_id", inst.InstanceID), zap.Error(err))
	}
}
