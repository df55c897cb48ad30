package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AppLauncher/backend/internal/api/http"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/api/middleware"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/api/ws"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/catalog"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/instance"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/audit"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/window"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config    *config.Config
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	router    *gin.Engine
	http      *http.Server
	lifecycle *lifecycle.Service
	catalog   *catalog.Store
	watcher   *catalog.Watcher
	hub       *ws.Hub
	audit     *audit.SQLiteSink

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
	unsubs   []func()
	once     sync.Once
}

// NewServer builds every component from cfg
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Initializing launcher server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("catalog", cfg.Catalog.Path),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)

	store := catalog.NewStore(logger).WithMetrics(metrics)
	if err := store.Load(cfg.Catalog.Path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		logger.Warn("Catalog file not found, starting empty", zap.String("path", cfg.Catalog.Path))
	}

	backend, err := process.NewPlatformBackend()
	if err != nil {
		return nil, fmt.Errorf("process backend: %w", err)
	}
	windows := window.New()
	monitor := process.NewMonitor(backend,
		process.WithWindows(windows),
		process.WithLogger(logger),
	)

	hub := ws.NewHub(
		ws.WithLogger(logger),
		ws.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	).WithMetrics(metrics)

	registry := buildLaunchers(cfg, launcherDeps{
		monitor: monitor,
		windows: windows,
		host:    hub,
		metrics: metrics,
		logger:  logger,
	})

	instances := instance.NewManager(instance.WithLogger(logger)).WithMetrics(metrics)

	opts := []lifecycle.Option{
		lifecycle.WithConfig(lifecycle.Config{
			MonitorInterval: cfg.Lifecycle.MonitorInterval,
			GracefulTimeout: cfg.Lifecycle.GracefulTimeout,
			KillTimeout:     cfg.Lifecycle.KillTimeout,
			MaxInstanceAge:  cfg.Lifecycle.MaxInstanceAge,
			BulkConcurrency: cfg.Lifecycle.BulkConcurrency,
		}),
		lifecycle.WithMonitor(monitor),
		lifecycle.WithAuthorizer(catalog.NewRoleAuthorizer(store)),
		lifecycle.WithLogger(logger),
	}

	var sink audit.Sink
	var sqlite *audit.SQLiteSink
	if cfg.Audit.Enabled {
		sqlite, err = audit.Open(cfg.Audit.DSN, logger)
		if err != nil {
			return nil, err
		}
		sink = sqlite
		opts = append(opts, lifecycle.WithAudit(sqlite))
	}

	svc := lifecycle.NewService(registry, instances, opts...).WithMetrics(metrics)

	s := &Server{
		config:    cfg,
		logger:    logger,
		metrics:   metrics,
		lifecycle: svc,
		catalog:   store,
		hub:       hub,
		audit:     sqlite,
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	s.unsubs = append(s.unsubs,
		svc.Subscribe(hub.OnLifecycle),
		instances.Subscribe(hub.OnCollection),
	)

	if cfg.Catalog.Watch {
		s.watcher = catalog.NewWatcher(cfg.Catalog.Path, store, logger)
		s.watcher.OnReload = func(err error) {
			if err == nil {
				s.mergeAPKs()
			}
		}
	}

	s.router = s.buildRouter(apihttp.NewHandlers(svc, store, sink, metrics, logger), reg)
	s.http = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully", zap.Strings("launchers", registry.Names()))
	return s, nil
}

func (s *Server) buildRouter(handlers *apihttp.Handlers, reg *prometheus.Registry) *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(s.logger))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins:     s.config.Server.AllowedOrigins,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: s.config.RateLimit.RequestsPerSecond,
			Burst:             s.config.RateLimit.Burst,
		}))
	}

	handlers.Register(router)
	router.GET("/stream", s.hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	return router
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Lifecycle returns the lifecycle service
func (s *Server) Lifecycle() *lifecycle.Service {
	return s.lifecycle
}

// Start launches the background work: APK discovery, the catalog watcher
// and the monitoring sweep.
func (s *Server) Start() {
	s.mergeAPKs()

	if s.watcher != nil {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			if err := s.watcher.Run(s.bgCtx); err != nil {
				s.logger.Error("Catalog watcher stopped", zap.Error(err))
			}
		}()
	}
	if s.config.Lifecycle.AutoMonitor {
		s.lifecycle.StartMonitoring()
	}
}

// Run starts the background work and serves HTTP until Shutdown
func (s *Server) Run() error {
	s.Start()
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops serving, stops the monitor and, when configured, closes
// every tracked application before releasing resources.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	s.once.Do(func() {
		s.logger.Info("Shutting down server...")

		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		s.lifecycle.StopMonitoring()

		if s.config.Lifecycle.ShutdownOnExit {
			res := s.lifecycle.ShutdownAll(ctx, s.config.Lifecycle.GracefulTimeout, s.config.Lifecycle.KillTimeout)
			s.logger.Info("Closed tracked applications",
				zap.Int("total", res.TotalApplications),
				zap.Int("graceful", res.GracefullyClosed),
				zap.Int("forced", res.ForceClosed),
				zap.Int("failed", res.FailedToClose),
			)
		}

		for _, unsub := range s.unsubs {
			unsub()
		}
		s.bgCancel()
		s.bg.Wait()
		s.hub.Shutdown()

		if s.audit != nil {
			if err := s.audit.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close audit log: %w", err))
			}
		}
		_ = s.logger.Sync()
	})
	return errors.Join(errs...)
}

func (s *Server) mergeAPKs() {
	dirs := s.config.Android.APKDirectories
	if !s.config.Android.Enabled || len(dirs) == 0 {
		return
	}
	apps, err := catalog.DiscoverAPKs(s.bgCtx, dirs)
	if err != nil {
		s.logger.Warn("APK discovery incomplete", zap.Error(err))
	}
	if n := s.catalog.Merge(apps); n > 0 {
		s.logger.Info("Added discovered APKs to catalog", zap.Int("count", n))
	}
}
