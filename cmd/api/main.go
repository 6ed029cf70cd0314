package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/api"
	mqttbridge "github.com/urmzd/zwcore/pkg/bridge/mqtt"
	"github.com/urmzd/zwcore/pkg/capture"
	"github.com/urmzd/zwcore/pkg/config"
	"github.com/urmzd/zwcore/pkg/db"
	"github.com/urmzd/zwcore/pkg/discovery"
	"github.com/urmzd/zwcore/pkg/manager"
	"github.com/urmzd/zwcore/pkg/notify"
	"github.com/urmzd/zwcore/pkg/schema"
	"github.com/urmzd/zwcore/pkg/telemetry"

	_ "github.com/urmzd/zwcore/docs"
)

var version = "dev"

// @title           zwcore API
// @version         1.0
// @description     REST API for Z-Wave networks: controllers, nodes and values

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := flag.String("config", "", "Path to YAML config file")
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/zwcore/zwcore.db)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("API server failed")
	}
	log.Info().Msg("Shut down")
}

func run(ctx context.Context, cfg config.Config) error {
	database, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Closing database")
		}
	}()
	log.Info().Str("path", database.Path()).Msg("Database opened")

	if err := database.Migrate(ctx); err != nil {
		return err
	}
	// Configured drivers only seed an empty endpoint table.
	if err := database.Bootstrap(ctx, cfg.ZWave.Drivers); err != nil {
		return err
	}

	m, err := manager.Create(cfg.ZWave, manager.WithNameStore(database.Nodes()))
	if err != nil {
		return err
	}

	svc := &services{m: m}
	defer svc.close()
	defer func() {
		if err := m.Destroy(); err != nil {
			log.Error().Err(err).Msg("Destroying manager")
		}
	}()

	broker := notify.NewBroker()
	if err := svc.watch(broker.Watch, broker, broker.Close); err != nil {
		return err
	}
	svc.start(ctx, cfg)

	endpoints, err := database.Endpoints().Enabled(ctx)
	if err != nil {
		return err
	}
	for _, e := range endpoints {
		if err := m.AddDriver(e); err != nil {
			log.Error().Err(err).Str("endpoint", e).Msg("Failed to attach controller")
		}
	}

	network := &persistentNetwork{Manager: m, endpoints: database.Endpoints()}
	router := api.NewRouter(network, broker, schema.NewValidator())

	addr := cfg.API.Address()
	log.Info().Str("address", addr).Str("version", version).Msg("Starting API server")
	return router.Serve(ctx, addr)
}

// services are the optional notification consumers. They close in reverse
// order of registration, after the manager stops notifying.
type services struct {
	m       *manager.Manager
	closers []func()
}

func (s *services) watch(fn notify.WatcherFunc, id any, closeFn func()) error {
	if err := s.m.AddWatcher(fn, id); err != nil {
		closeFn()
		return err
	}
	s.closers = append(s.closers, closeFn)
	return nil
}

func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// start brings up every enabled consumer. One that cannot reach its
// backend is logged and skipped.
func (s *services) start(ctx context.Context, cfg config.Config) {
	if cfg.MQTT.Enabled {
		bridge, err := mqttbridge.Connect(cfg.MQTT, s.m)
		if err == nil {
			err = s.watch(bridge.Watch, bridge, bridge.Close)
		}
		if err != nil {
			log.Error().Err(err).Msg("MQTT bridge unavailable")
		}
	}

	if cfg.Telemetry.Enabled {
		sink, err := telemetry.Connect(cfg.Telemetry, s.m)
		if err == nil {
			err = s.watch(sink.Watch, sink, sink.Close)
		}
		if err != nil {
			log.Error().Err(err).Msg("Telemetry unavailable")
		} else {
			go sink.Run(ctx)
		}
	}

	if cfg.Capture.Enabled {
		logger, err := capture.NewFileLogger(cfg.Capture.Path, s.m)
		if err == nil {
			err = s.watch(logger.Watch, logger, func() { _ = logger.Close() })
		}
		if err != nil {
			log.Error().Err(err).Str("path", cfg.Capture.Path).Msg("Capture unavailable")
		} else {
			log.Info().Str("path", cfg.Capture.Path).Str("session", logger.Session()).Msg("Capturing notifications")
		}
	}

	if cfg.Discovery.Enabled {
		adv := discovery.NewAdvertiser(cfg.Discovery, s.m, cfg.API.Port, version)
		err := adv.Start()
		if err == nil {
			err = s.watch(adv.Watch, adv, adv.Shutdown)
		}
		if err != nil {
			log.Error().Err(err).Msg("mDNS announcement unavailable")
		}
	}
}
