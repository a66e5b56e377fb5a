// Notecard telemetry relay.
//
// The relay accepts sensor readings over HTTP (and optionally MQTT), buffers
// them in memory and periodically uploads them as one compressed note per
// batch through a Blues Notecard, correcting timestamps for host clock drift
// against the Notecard's time.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-notecard/internal/api"
	"github.com/nerrad567/gray-logic-notecard/internal/batch"
	"github.com/nerrad567/gray-logic-notecard/internal/drift"
	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-notecard/internal/ingest"
	"github.com/nerrad567/gray-logic-notecard/internal/notecard"
	"github.com/nerrad567/gray-logic-notecard/internal/reading"
	"github.com/nerrad567/gray-logic-notecard/internal/upload"
	"github.com/nerrad567/gray-logic-notecard/migrations"
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

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags.
type options struct {
	configPath  string
	envFile     string
	showVersion bool
	migrateDown bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("notecard-relay", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (default $NOTECARD_CONFIG or "+defaultConfigPath+")")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	fs.BoolVarP(&opts.showVersion, "version", "v", false, "print version and exit")
	fs.BoolVar(&opts.migrateDown, "migrate-down", false, "roll back the latest journal migration and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - args: Command-line arguments without the program name
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Printf("notecard-relay %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	if opts.envFile != "" {
		if err := config.LoadDotEnv(opts.envFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}

	configPath := resolveConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting notecard relay",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	if opts.migrateDown {
		return migrateDown(ctx, cfg, log)
	}

	return newRelay(cfg, log).run(ctx)
}

// migrateDown rolls back the most recent flush journal migration.
func migrateDown(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Nothing left to flush after the rollback

	if err := db.MigrateDown(ctx, migrations.FS); err != nil {
		return fmt.Errorf("rolling back migration: %w", err)
	}
	log.Info("journal migration rolled back", "path", cfg.Database.Path)
	return nil
}

// resolveConfigPath picks the flag value, then NOTECARD_CONFIG, then the
// default path when that file exists. An empty result means defaults plus
// environment only.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(config.EnvPrefix + "CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// relay holds the wired components.
type relay struct {
	cfg *config.Config
	log *logging.Logger

	queue       *reading.Queue
	opener      *notecard.Opener
	coordinator *upload.Coordinator
	scheduler   *upload.Scheduler
}

func newRelay(cfg *config.Config, log *logging.Logger) *relay {
	queue := reading.NewQueue()

	opener := notecard.NewOpener(notecard.Config{
		Kind:            notecard.Kind(cfg.Device.Transport),
		Endpoint:        cfg.Device.Endpoint,
		BaudRate:        cfg.Device.BaudRate,
		I2CAddress:      cfg.Device.I2CAddress,
		ResponseTimeout: cfg.ResponseTimeout(),
		RetryInterval:   cfg.OpenRetryInterval(),
	})
	opener.SetLogger(log.Component("notecard"))

	return &relay{
		cfg:    cfg,
		log:    log,
		queue:  queue,
		opener: opener,
	}
}

// run wires the upload pipeline and the optional integrations, then serves
// until ctx is cancelled.
func (r *relay) run(ctx context.Context) error {
	cfg, log := r.cfg, r.log

	compression, err := batch.ParseCompression(cfg.Upload.Compression)
	if err != nil {
		return fmt.Errorf("upload compression: %w", err)
	}
	encoder, err := batch.NewEncoder(compression)
	if err != nil {
		return fmt.Errorf("creating batch encoder: %w", err)
	}

	corrector := drift.New(drift.Options{
		Threshold:        cfg.DriftThreshold(),
		CorrectHostClock: cfg.Clock.CorrectHost,
	})
	corrector.SetLogger(log.Component("drift"))

	r.coordinator = upload.NewCoordinator(upload.CoordinatorConfig{
		Notefile:         cfg.Upload.Notefile,
		RequeueOnFailure: cfg.Upload.RequeueOnFailure,
	}, r.opener, corrector, encoder, r.queue)
	r.coordinator.SetLogger(log.Component("upload"))

	r.scheduler = upload.NewScheduler(upload.SchedulerConfig{
		Period:       cfg.UploadPeriod(),
		PollInterval: cfg.PollInterval(),
		RetryBackoff: cfg.RetryBackoff(),
	}, r.coordinator, r.queue)
	r.scheduler.SetLogger(log.Component("scheduler"))

	deps := api.Deps{
		Config:      cfg.API,
		Logger:      log.Component("api"),
		Queue:       r.queue,
		Scheduler:   r.scheduler,
		Coordinator: r.coordinator,
		Opener:      r.opener,
		Checks:      map[string]api.HealthChecker{},
		Version:     version,
	}

	// Optional flush journal
	if cfg.Database.Enabled {
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
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		journal := database.NewJournal(db)
		r.coordinator.AddRecorder(journal)
		deps.Journal = journal
		deps.Pool = db
		deps.Checks["database"] = db
		log.Info("flush journal enabled", "path", cfg.Database.Path)
	}

	// Optional InfluxDB mirror
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
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

		r.coordinator.AddRecorder(influxdb.NewMirror(influxClient, cfg.InfluxDB.Measurement, cfg.Hub.SerialNumber))
		deps.Checks["influxdb"] = influxClient
		log.Info("InfluxDB mirror enabled", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Optional MQTT ingestion and health publishing
	var reporter *upload.HealthReporter
	if cfg.MQTT.Enabled {
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
		deps.Checks["mqtt"] = mqttClient

		source := ingest.NewMQTTSource(mqttClient, cfg.MQTT.IngestTopic, byte(cfg.MQTT.QoS), r.queue)
		source.SetLogger(log.Component("ingest"))
		if err := source.Start(); err != nil {
			return fmt.Errorf("subscribing to %s: %w", source.Topic(), err)
		}

		reporter = upload.NewHealthReporter(upload.HealthReporterConfig{
			DeviceID:    r.deviceID(),
			Version:     version,
			Topic:       r.healthTopic(),
			Interval:    r.healthInterval(),
			Publisher:   mqttClient,
			Scheduler:   r.scheduler,
			Coordinator: r.coordinator,
			Opener:      r.opener,
		})
		reporter.SetLogger(log.Component("health"))
		log.Info("MQTT enabled",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"ingest_topic", source.Topic(),
		)
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// All Notecard I/O happens on this goroutine: hub.set first, then the
	// upload schedule.
	g.Go(func() error {
		r.configureHub(gctx)
		return ignoreCancel(r.scheduler.Run(gctx))
	})

	g.Go(func() error {
		<-gctx.Done()
		return server.Close()
	})

	if reporter != nil {
		reporter.Start(gctx)
		g.Go(func() error {
			<-gctx.Done()
			reporter.Stop()
			return nil
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	err = g.Wait()

	if n := r.queue.Len(); n > 0 {
		log.Warn("shutting down with unsent readings", "readings", n)
	}
	log.Info("notecard relay stopped")
	return err
}

// configureHub applies hub.set once a session opens. A rejected hub.set is
// logged and the relay carries on with the card's stored configuration.
func (r *relay) configureHub(ctx context.Context) {
	sess, err := r.opener.Open(ctx)
	if err != nil {
		return
	}
	defer sess.Close() //nolint:errcheck // Session is discarded either way

	hub := notecard.HubConfig{
		Product:      r.cfg.Hub.Product,
		SerialNumber: r.cfg.Hub.SerialNumber,
		Mode:         r.cfg.Hub.Mode,
		Outbound:     r.cfg.Hub.Outbound,
		Inbound:      r.cfg.Hub.Inbound,
		Restore:      r.cfg.Hub.RestoreOnStart,
	}
	if err := notecard.Configure(ctx, sess, hub); err != nil {
		r.log.Error("notecard hub configuration failed", "product", hub.Product, "error", err)
		return
	}
	r.log.Info("notecard configured", "product", hub.Product, "sn", hub.SerialNumber, "mode", hub.Request()["mode"])
}

func (r *relay) deviceID() string {
	if r.cfg.Hub.SerialNumber != "" {
		return r.cfg.Hub.SerialNumber
	}
	return r.cfg.MQTT.Broker.ClientID
}

func (r *relay) healthTopic() string {
	if r.cfg.MQTT.HealthTopic != "" {
		return r.cfg.MQTT.HealthTopic
	}
	return mqtt.Topics{}.Health(r.deviceID())
}

func (r *relay) healthInterval() time.Duration {
	return time.Duration(r.cfg.MQTT.HealthInterval) * time.Second
}

// ignoreCancel maps shutdown cancellation to a clean exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
