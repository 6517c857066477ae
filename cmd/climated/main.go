// Gray Logic Climate - derived humidity sensors and window advice
//
// climated watches humidity and temperature sensors published over MQTT,
// pairs them up, and maintains two kinds of derived sensor:
//   - absolute humidity (g/m³) for every indoor humidity sensor
//   - a window recommendation comparing each room with the outdoor reference
//
// Derived states are published back to MQTT and streamed over WebSocket.
// Value changes are kept in a local SQLite history, and InfluxDB export is
// optional.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-climate/internal/api"
	"github.com/nerrad567/gray-logic-climate/internal/audit"
	"github.com/nerrad567/gray-logic-climate/internal/discovery"
	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/history"
	"github.com/nerrad567/gray-logic-climate/internal/host"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
	"github.com/nerrad567/gray-logic-climate/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Metric sink labels for state publishers.
const (
	sinkMQTT      = "mqtt"
	sinkInfluxDB  = "influxdb"
	sinkWebSocket = "websocket"
	sinkHistory   = "history"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Climate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete", "applied", applied)

	auditRepo := audit.NewSQLiteRepository(db.DB)
	auditor := audit.NewRecorder(auditRepo, log.Component("audit"))
	m := metrics.New()

	rt := host.NewRuntime(log.Component("host"))

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.Component("mqtt"))
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	rt.Platform.AddPublisher(instrument(sinkMQTT, mqtt.NewStatePublisher(mqttClient, byte(cfg.MQTT.QoS)), m))

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		rt.Platform.AddPublisher(instrument(sinkInfluxDB, influxClient, m))
	} else {
		log.Info("InfluxDB disabled")
	}

	var historyRepo history.Repository
	var historyRecorder *history.Recorder
	if cfg.History.Enabled {
		historyRepo = history.NewSQLiteRepository(db.DB)
		historyRecorder = history.NewRecorder(historyRepo, log.Component("history"))
		rt.Platform.AddPublisher(instrument(sinkHistory, historyRecorder, m))
		log.Info("state history enabled", "retention_days", cfg.History.RetentionDays)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	factory := sensor.NewFactory(rt.Store, cfg.Climate.Thresholds)
	factory.SetLogger(log.Component("sensor"))

	engine := discovery.NewEngine(rt, rt.Dispatcher, factory, discovery.Config{
		OutdoorTemperatureSensor: cfg.Climate.OutdoorTemperatureSensor,
		OutdoorHumiditySensor:    cfg.Climate.OutdoorHumiditySensor,
		Thresholds:               cfg.Climate.Thresholds,
	}, log.Component("discovery"))
	engine.SetRecorder(m)
	engine.SetAuditor(auditor)
	defer engine.Close()

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log.Component("api"),
		Engine:   engine,
		Sensors:  rt.Platform,
		States:   rt.Store,
		Audit:    auditRepo,
		History:  historyRepo,
		Metrics:  m,
		MQTT:     mqttClient,
		DB:       db,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	rt.Platform.AddPublisher(instrument(sinkWebSocket, server.Hub(), m))

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go rt.Loop.Run(loopCtx)

	ingest := host.NewIngest(mqttSubscriber{client: mqttClient}, rt.Store, rt.Loop,
		cfg.Climate.Ingest.StateTopicPrefix, log.Component("ingest"))
	if err := ingest.Start(); err != nil {
		stopLoop()
		rt.Loop.Wait()
		return fmt.Errorf("starting state ingest: %w", err)
	}

	// Retained upstream states arrive as loop tasks, so the initial scan is
	// queued behind whatever has been delivered by now.
	rt.Loop.CreateTask(func(ctx context.Context) {
		if err := engine.Start(ctx); err != nil {
			log.Error("discovery engine failed to start", "error", err)
		}
	})
	go rt.Platform.Run(loopCtx, cfg.GetScanInterval())
	if historyRecorder != nil {
		go historyRecorder.RunPruner(loopCtx, cfg.GetHistoryPruneInterval(), cfg.GetHistoryRetention())
	}

	if err := server.Start(ctx); err != nil {
		stopLoop()
		rt.Loop.Wait()
		return fmt.Errorf("starting API server: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	if err := server.Close(); err != nil {
		log.Error("error closing API server", "error", err)
	}
	if err := ingest.Stop(); err != nil {
		log.Warn("error stopping state ingest", "error", err)
	}
	stopLoop()
	rt.Loop.Wait()
	engine.Close()
	rt.Platform.Unload()

	// Deferred Close() calls then run in reverse order:
	// InfluxDB (if enabled), MQTT, database.

	log.Info("Gray Logic Climate stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthChecker reports whether a connection is usable.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db, mqttClient healthChecker, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttSubscriber adapts the MQTT client to host.Subscriber.
type mqttSubscriber struct {
	client *mqtt.Client
}

// Subscribe implements host.Subscriber.
func (s mqttSubscriber) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return s.client.Subscribe(topic, qos, handler)
}

// Unsubscribe implements host.Subscriber.
func (s mqttSubscriber) Unsubscribe(topic string) error {
	return s.client.Unsubscribe(topic)
}

// publishRecorder counts publish outcomes. *metrics.Metrics satisfies it.
type publishRecorder interface {
	StatePublished(sink string, err error)
}

// instrumentedPublisher counts every publish to one sink.
type instrumentedPublisher struct {
	sink    string
	next    host.StatePublisher
	metrics publishRecorder
}

func instrument(sink string, next host.StatePublisher, m publishRecorder) host.StatePublisher {
	return instrumentedPublisher{sink: sink, next: next, metrics: m}
}

// PublishState implements host.StatePublisher.
func (p instrumentedPublisher) PublishState(ctx context.Context, st *entity.State) error {
	err := p.next.PublishState(ctx, st)
	p.metrics.StatePublished(p.sink, err)
	return err
}
