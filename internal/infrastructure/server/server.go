package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/chatdeck/chatdeck/internal/api/http"
	"github.com/chatdeck/chatdeck/internal/api/middleware"
	"github.com/chatdeck/chatdeck/internal/domain/account"
	"github.com/chatdeck/chatdeck/internal/domain/recovery"
	"github.com/chatdeck/chatdeck/internal/domain/session"
	"github.com/chatdeck/chatdeck/internal/domain/view"
	"github.com/chatdeck/chatdeck/internal/events"
	"github.com/chatdeck/chatdeck/internal/infrastructure/config"
	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/infrastructure/monitoring"
	"github.com/chatdeck/chatdeck/internal/infrastructure/resilience"
	"github.com/chatdeck/chatdeck/internal/infrastructure/tracing"
	"github.com/chatdeck/chatdeck/internal/probe"
	"github.com/chatdeck/chatdeck/internal/shared/paths"
	"github.com/chatdeck/chatdeck/internal/surface"
	"github.com/chatdeck/chatdeck/internal/ws"
)

// Server wraps the HTTP server and the lifecycle core behind it.
type Server struct {
	router   *gin.Engine
	views    *view.Manager
	recovery *recovery.Manager
	accounts *account.Store
	sessions *session.Provider
	bus      *events.Bus
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics

	stopPump chan struct{}
	pumpDone chan struct{}
}

// NewServer wires the full service together.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("initializing chatdeck server",
		zap.String("port", cfg.Server.Port),
		zap.String("data_root", cfg.Storage.Root),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("chatdeck", logger.Logger)
	bus := events.NewBus()

	sessions, err := session.NewProvider(cfg.Storage.Root, logger.Named("session"))
	if err != nil {
		return nil, err
	}

	accounts, err := account.NewStore(paths.AccountsFile(cfg.Storage.Root), logger.Named("account"))
	if err != nil {
		return nil, err
	}

	breaker := resilience.NewBreaker("status-probe", resilience.BreakerSettings{
		FailureThreshold: cfg.Recovery.BreakerThreshold,
		OpenTimeout:      cfg.Recovery.BreakerOpenTimeout,
	})
	statusProbe := probe.NewDocumentProbe(probe.Options{
		Timeout: cfg.Lifecycle.ProbeTimeout,
		Breaker: breaker,
	}, logger.Named("probe"))

	views := view.NewManager(
		cfg.Lifecycle,
		sessions,
		surface.NewWebFactory(),
		statusProbe,
		bus,
		metrics,
		logger.Named("view"),
	)
	rec := recovery.NewManager(cfg.Recovery, views, sessions, accounts, metrics, logger.Named("recovery"))
	views.SetRecoveryNotifier(rec.HandleConnectionChange)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(views, rec, accounts, sessions, metrics)
	wsHandler := ws.NewHandler(bus, metrics, logger.Named("ws"))

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// View lifecycle
	router.GET("/views", handlers.ListViews)
	router.POST("/views/:accountId", handlers.CreateView)
	router.POST("/views/:accountId/switch", handlers.SwitchView)
	router.DELETE("/views/:accountId", handlers.DestroyView)
	router.GET("/views/:accountId/state", handlers.GetViewState)
	router.POST("/views/:accountId/monitor", handlers.StartMonitoring)
	router.DELETE("/views/:accountId/monitor", handlers.StopMonitoring)
	router.POST("/views/:accountId/refresh", handlers.RefreshStatus)

	// Recovery
	router.POST("/views/:accountId/reconnect", handlers.Reconnect)
	router.POST("/views/:accountId/auto-reconnect", handlers.StartAutoReconnect)
	router.DELETE("/views/:accountId/auto-reconnect", handlers.StopAutoReconnect)
	router.POST("/views/:accountId/recover-session", handlers.RecoverSession)
	router.POST("/views/:accountId/reset", handlers.ResetAccount)

	// Telemetry and geometry
	router.GET("/memory", handlers.GetMemory)
	router.POST("/memory/optimize", handlers.OptimizeMemory)
	router.GET("/perf", handlers.GetPerf)
	router.GET("/bounds", handlers.GetBounds)
	router.POST("/bounds/host-size", handlers.SetHostSize)
	router.POST("/bounds/invalidate", handlers.InvalidateBounds)

	// Account records
	router.GET("/accounts", handlers.ListAccounts)
	router.POST("/accounts", handlers.CreateAccount)
	router.PUT("/accounts/:accountId", handlers.UpdateAccount)
	router.DELETE("/accounts/:accountId", handlers.DeleteAccount)
	router.GET("/accounts/:accountId/disk", handlers.GetDiskUsage)

	// WebSocket status stream
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)

	s := &Server{
		router:   router,
		views:    views,
		recovery: rec,
		accounts: accounts,
		sessions: sessions,
		bus:      bus,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		stopPump: make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go s.pumpAccountEvents()

	logger.Info("server initialized")
	return s, nil
}

// pumpAccountEvents forwards account store changes to the lifecycle
// manager until shutdown.
func (s *Server) pumpAccountEvents() {
	defer close(s.pumpDone)

	ch, cancel := s.accounts.Subscribe()
	defer cancel()

	for {
		select {
		case <-s.stopPump:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.views.HandleAccountEvent(ev)
		}
	}
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close shuts the lifecycle core down in dependency order.
func (s *Server) Close() error {
	s.logger.Info("shutting down server")

	close(s.stopPump)
	<-s.pumpDone

	s.recovery.Cleanup()
	if err := s.views.Close(); err != nil {
		s.logger.Error("failed to close view manager", zap.Error(err))
	}
	s.bus.Close()
	s.sessions.ReleaseAll()
	s.logger.Sync()
	return nil
}
