// Skynet Core routes sensor readings to alarms over MQTT.
//
// Sensors publish readings on sensors/{type}/{name}. Alarms announce
// themselves on alarms/{type}/{name}. When a registered trigger matches a
// reading, Skynet Core publishes its severity to every targeted alarm.
// Triggers are managed over the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/skynet-core/internal/api"
	"github.com/nerrad567/skynet-core/internal/coordinator"
	"github.com/nerrad567/skynet-core/internal/history"
	"github.com/nerrad567/skynet-core/internal/infrastructure/config"
	"github.com/nerrad567/skynet-core/internal/infrastructure/database"
	"github.com/nerrad567/skynet-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/skynet-core/internal/infrastructure/logging"
	"github.com/nerrad567/skynet-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/skynet-core/internal/topic"
	"github.com/nerrad567/skynet-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// defaultConfigPath is used when neither --config nor SKYNET_CONFIG is set.
	defaultConfigPath = "configs/config.yaml"

	startupCheckTimeout = 10 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFlag string

	root := &cobra.Command{
		Use:   "skynet",
		Short: "Route sensor readings to alarms over MQTT.",
		Long: `Skynet Core connects to the MQTT broker, tracks the alarms that announce
themselves on the bus and fires registered triggers against incoming sensor
readings. Triggers are managed through the HTTP API.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, getConfigPath(configFlag))
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"path to configuration file (default $SKYNET_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(newVersionCmd(), newTokenCmd(&configFlag))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "skynet %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// newTokenCmd mints an API bearer token with the configured JWT secret.
func newTokenCmd(configFlag *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(getConfigPath(*configFlag))
			if err != nil {
				return err
			}
			token, err := api.IssueToken(cfg.Security.JWT, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", api.DefaultTokenTTL, "token lifetime")
	return cmd
}

// getConfigPath returns the --config flag, else SKYNET_CONFIG, else the
// default path.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("SKYNET_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads path, falling back to built-in defaults when the file
// does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// run is the actual application logic, separated from main for testability.
// It blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Skynet Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.ID)

	// Trigger history (optional)
	var db *database.DB
	var historyRepo *history.SQLiteRepository
	if cfg.Database.Enabled {
		db, err = database.Open(ctx, database.FromConfig(cfg.Database))
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
		historyRepo = history.NewSQLiteRepository(db.DB)
		log.Info("database ready", "path", cfg.Database.Path)
	} else {
		log.Info("trigger history disabled")
	}

	// Reading telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Bus
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	codec, err := topic.New(cfg.Topics.SensorPrefix, cfg.Topics.AlarmPrefix)
	if err != nil {
		return fmt.Errorf("building topic codec: %w", err)
	}

	coord := coordinator.New(coordinator.Config{
		Codec: codec,
		Hello: cfg.Topics.Hello,
		QoS:   byte(cfg.MQTT.QoS),
	}, &busGateway{client: mqttClient}, nil, nil)
	coord.SetLogger(log.Component("coordinator"))

	mqttClient.SetOnConnect(coord.OnConnected)
	mqttClient.SetOnDisconnect(coord.OnConnectionLost)

	if historyRepo != nil || influxClient != nil {
		rec := newRecorder(historyRepo, influxClient)
		rec.SetLogger(log.Component("history"))
		coord.RegisterListener(rec, rec.Kinds()...)
	}

	if startErr := coord.Start(ctx); startErr != nil {
		return fmt.Errorf("starting coordinator: %w", startErr)
	}
	defer coord.Stop()

	// API
	checks := healthChecks(db, mqttClient, influxClient)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:       cfg.API,
			WS:           cfg.WebSocket,
			Security:     cfg.Security,
			Logger:       log.Component("api"),
			Triggers:     coord,
			Bus:          mqttClient,
			HealthChecks: checks,
			Version:      version,
		}
		if historyRepo != nil {
			deps.History = historyRepo
		}

		server, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		coord.RegisterListener(server.Hub())
		if cfg.Security.JWT.Secret == "" {
			log.Warn("API authentication disabled (security.jwt.secret is empty)")
		}
	} else {
		log.Info("API disabled")
	}

	checkCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	err = healthCheck(checkCtx, checks)
	cancel()
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, coordinator, MQTT,
	// InfluxDB, database.

	log.Info("Skynet Core stopped")
	return nil
}

// newRecorder keeps a nil client out of the Telemetry interface.
func newRecorder(repo *history.SQLiteRepository, influxClient *influxdb.Client) *history.Recorder {
	var r history.Repository
	if repo != nil {
		r = repo
	}
	var t history.Telemetry
	if influxClient != nil {
		t = influxClient
	}
	return history.NewRecorder(r, t)
}

// healthChecks collects the checks for every enabled component.
func healthChecks(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"mqtt": mqttClient.HealthCheck,
	}
	if db != nil {
		checks["database"] = db.HealthCheck
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient.HealthCheck
	}
	return checks
}

// healthCheck runs every check and returns the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthCheck) error {
	for name, check := range checks {
		if err := check(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// busGateway adapts the MQTT client to coordinator.Gateway. Alarm commands
// are published without waiting for the broker so message handling never
// blocks on a slow acknowledgement.
type busGateway struct {
	client *mqtt.Client
}

// Publish implements coordinator.Gateway.
func (g *busGateway) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return g.client.PublishAsync(topic, payload, qos, retained)
}

// Subscribe implements coordinator.Gateway.
func (g *busGateway) Subscribe(filter string, qos byte, handler func(topic string, payload []byte) error) error {
	return g.client.Subscribe(filter, qos, handler)
}

// Unsubscribe implements coordinator.Gateway.
func (g *busGateway) Unsubscribe(filter string) error {
	return g.client.Unsubscribe(filter)
}
