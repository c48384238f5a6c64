package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/skynet-core/internal/automation"
	"github.com/nerrad567/skynet-core/internal/device"
	"github.com/nerrad567/skynet-core/internal/history"
	"github.com/nerrad567/skynet-core/internal/infrastructure/config"
	"github.com/nerrad567/skynet-core/internal/infrastructure/logging"
	"github.com/nerrad567/skynet-core/internal/infrastructure/mqtt"
)

const (
	// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
	gracefulShutdownTimeout = 10 * time.Second

	defaultWSPath = "/api/v1/ws"
)

// TriggerService is the trigger and alarm registry the API manages.
// *coordinator.Coordinator implements it.
type TriggerService interface {
	AddTrigger(t automation.Trigger) (automation.Trigger, error)
	RemoveTrigger(id string) bool
	Trigger(id string) (automation.Trigger, error)
	TriggersForSensor(sensor device.ID) []automation.Trigger
	AllTriggers() []automation.Trigger
	AllAlarms() []device.Alarm
	Counts() (alarms, triggers int)
}

// HistoryReader serves recorded trigger firings.
type HistoryReader interface {
	Get(ctx context.Context, id string) (*history.Event, error)
	List(ctx context.Context, filter history.Filter) (*history.ListResult, error)
}

// BusStatus reports on the MQTT connection. *mqtt.Client implements it.
type BusStatus interface {
	IsConnected() bool
	Stats() mqtt.Stats
}

// HealthCheck reports whether a component is healthy.
type HealthCheck func(ctx context.Context) error

// Deps holds the dependencies of the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Triggers TriggerService

	// Optional.
	History      HistoryReader
	Bus          BusStatus
	HealthChecks map[string]HealthCheck
	Hub          *Hub // created by New when nil
	Version      string
}

// Server is the HTTP API server.
type Server struct {
	cfg          config.APIConfig
	secCfg       config.SecurityConfig
	logger       *logging.Logger
	triggers     TriggerService
	history      HistoryReader
	bus          BusStatus
	healthChecks map[string]HealthCheck
	origins      map[string]struct{}
	version      string
	wsPath       string
	startTime    time.Time

	hub         *Hub
	externalHub bool

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
	cancel context.CancelFunc
}

// New creates a server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Triggers == nil {
		return nil, fmt.Errorf("trigger service is required")
	}

	s := &Server{
		cfg:          deps.Config,
		secCfg:       deps.Security,
		logger:       deps.Logger,
		triggers:     deps.Triggers,
		history:      deps.History,
		bus:          deps.Bus,
		healthChecks: deps.HealthChecks,
		version:      deps.Version,
		wsPath:       deps.WS.Path,
		startTime:    time.Now(),
	}
	if s.wsPath == "" {
		s.wsPath = defaultWSPath
	}
	if n := len(deps.Config.CORS.AllowedOrigins); n > 0 {
		s.origins = make(map[string]struct{}, n)
		for _, o := range deps.Config.CORS.AllowedOrigins {
			s.origins[o] = struct{}{}
		}
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}

	return s, nil
}

// Hub returns the WebSocket hub, for registration on the event notifier.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler with every route and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	s.addr = ln.Addr()

	s.logger.Info("API server starting", "address", s.addr.String(), "auth", s.authEnabled())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close shuts the server down, waiting for in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	cancel := s.cancel
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancelShutdown()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
