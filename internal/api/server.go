package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/inventory-core/internal/audit"
	"github.com/nerrad567/inventory-core/internal/blobstore"
	"github.com/nerrad567/inventory-core/internal/infrastructure/config"
	"github.com/nerrad567/inventory-core/internal/infrastructure/database"
	"github.com/nerrad567/inventory-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/inventory-core/internal/infrastructure/logging"
	"github.com/nerrad567/inventory-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/inventory-core/internal/inventory"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Registry *inventory.Registry
	Blobs    *blobstore.Store

	// Optional. Each endpoint or metric that needs one degrades when it is nil.
	AuditRepo audit.Repository
	DB        *database.DB
	MQTT      *mqtt.Client
	Influx    *influxdb.Client

	// If set, the server uses this hub instead of creating its own. The
	// caller is then responsible for running it and registering it with
	// the registry.
	ExternalHub *Hub

	Version string
}

// Server is the HTTP API server for the inventory service.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	registry    *inventory.Registry
	blobs       *blobstore.Store
	auditRepo   audit.Repository
	db          *database.DB
	mqtt        *mqtt.Client
	influx      *influxdb.Client
	version     string
	startTime   time.Time
	limiter     *rate.Limiter
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// Unless an external hub is supplied, New creates a WebSocket hub and
// registers it with the registry so that every mutation is broadcast.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("inventory registry is required")
	}
	if deps.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		registry:  deps.Registry,
		blobs:     deps.Blobs,
		auditRepo: deps.AuditRepo,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		influx:    deps.Influx,
		version:   deps.Version,
		startTime: time.Now(),
		limiter:   newLimiter(deps.Security.RateLimit),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
		s.hub.SetStatsSource(deps.Registry.GetStats)
		deps.Registry.AddNotifier(s.hub)
	}

	return s, nil
}

// Handler returns the fully wired router. Useful for tests and for
// embedding the API in another server.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Hub returns the WebSocket hub the server broadcasts on.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub (unless external), builds the router and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
