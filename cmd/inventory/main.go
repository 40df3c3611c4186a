// Inventory Core - device assignment registry service.
//
// This is the main entry point. It loads configuration, opens the audit
// database, wires the optional MQTT and InfluxDB event sinks to the
// in-memory registry and serves the HTTP API until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/inventory-core/internal/api"
	"github.com/nerrad567/inventory-core/internal/audit"
	"github.com/nerrad567/inventory-core/internal/blobstore"
	"github.com/nerrad567/inventory-core/internal/infrastructure/config"
	"github.com/nerrad567/inventory-core/internal/infrastructure/database"
	"github.com/nerrad567/inventory-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/inventory-core/internal/infrastructure/logging"
	"github.com/nerrad567/inventory-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/inventory-core/internal/inventory"
	"github.com/nerrad567/inventory-core/internal/notify"
	"github.com/nerrad567/inventory-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Startup wiring: each optional component adds a branch
	log := logging.Default()
	log.Info("starting inventory core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.PathFromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).WithSite(cfg.Site)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
	)

	// Audit database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	// Registry
	policy, err := inventory.ParseIDPolicy(cfg.Registry.IDPolicy)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	registry := inventory.NewRegistry(inventory.Options{IDPolicy: policy})
	registry.SetLogger(log.With("component", "registry"))

	auditRepo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(auditRepo, audit.SourceAPI)
	recorder.SetLogger(log)
	registry.AddNotifier(recorder)
	log.Info("registry initialised", "id_policy", policy)

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		publisher := notify.NewMQTTPublisher(mqttClient, mqttClient.Topics(), mqttClient.QoS())
		publisher.SetLogger(log)
		registry.AddNotifier(publisher)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"topic_prefix", mqttClient.Topics().Prefix,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
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

		registry.AddNotifier(notify.NewInfluxRecorder(influxClient, registry.GetStats))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Image storage
	blobs, err := blobstore.New(cfg.Storage.UploadsDir, cfg.MaxUploadBytes())
	if err != nil {
		return fmt.Errorf("opening image store: %w", err)
	}
	log.Info("image store ready", "dir", blobs.Dir())

	// HTTP API
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Registry:  registry,
		Blobs:     blobs,
		AuditRepo: auditRepo,
		DB:        db,
		MQTT:      mqttClient,
		Influx:    influxClient,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// healthCheck verifies every connected dependency once at startup.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
