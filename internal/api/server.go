package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/audit"
	"github.com/nerrad567/gray-logic-climate/internal/discovery"
	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/history"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Engine is the discovery surface the API drives. *discovery.Engine
// satisfies it.
type Engine interface {
	AddSensor(ctx context.Context, humidityID, temperatureID string) error
	AddWindowSensor(ctx context.Context, src sensor.WindowSources) error
	Rediscover(ctx context.Context) (int, error)
	ReevaluateWindowSensors(ctx context.Context) (int, error)
	Snapshot() discovery.Snapshot
}

// SensorSource lists the derived entities. *host.Platform satisfies it.
type SensorSource interface {
	Entities() []entity.Entity
}

// StateSource reads entity states. *host.StateStore satisfies it.
type StateSource interface {
	GetState(entityID string) (*entity.State, bool)
}

// MQTTStatus reports broker connectivity. *mqtt.Client satisfies it.
type MQTTStatus interface {
	IsConnected() bool
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the API server. Audit, History, Metrics, MQTT, DB
// and Hub are optional.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Engine   Engine
	Sensors  SensorSource
	States   StateSource
	Audit    audit.Repository
	History  history.Repository
	Metrics  *metrics.Metrics
	MQTT     MQTTStatus
	DB       *database.DB
	Hub      *Hub // if set, the server uses this hub instead of creating its own
	Version  string
}

// Server is the HTTP API server.
type Server struct {
	cfg         config.APIConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	engine      Engine
	sensors     SensorSource
	states      StateSource
	auditRepo   audit.Repository
	historyRepo history.Repository
	metrics     *metrics.Metrics
	mqtt        MQTTStatus
	db          *database.DB
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a server. It is not listening until Start.
//
// Returns:
//   - error: if Logger, Engine, Sensors or States is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("discovery engine is required")
	}
	if deps.Sensors == nil || deps.States == nil {
		return nil, fmt.Errorf("sensor and state sources are required")
	}

	s := &Server{
		cfg:         deps.Config,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		engine:      deps.Engine,
		sensors:     deps.Sensors,
		states:      deps.States,
		auditRepo:   deps.Audit,
		historyRepo: deps.History,
		metrics:     deps.Metrics,
		mqtt:        deps.MQTT,
		db:          deps.DB,
		version:     deps.Version,
		startTime:   time.Now(),
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	return s, nil
}

// Hub returns the WebSocket hub, for registration as a state publisher.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start launches the HTTP listener in the background.
//
// Parameters:
//   - ctx: parent of the hub's lifetime; Close stops it too
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
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close stops the hub and shuts the listener down gracefully.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
