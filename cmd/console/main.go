package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/config"
	"github.com/urmzd/zwcore/pkg/console"
	"github.com/urmzd/zwcore/pkg/manager"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := flag.String("config", "", "Path to YAML config file")
	drivers := flag.String("drivers", "", "Comma separated endpoints to attach (overrides the config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *drivers != "" {
		cfg.ZWave.Drivers = strings.Split(*drivers, ",")
	}

	m, err := manager.Create(cfg.ZWave)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create manager")
	}
	defer func() { _ = m.Destroy() }()

	c, err := console.New(m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start console")
	}
	// Keep log lines from garbling the prompt
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: c.Stdout()})

	if err := m.AddWatcher(c.Watch, c); err != nil {
		log.Fatal().Err(err).Msg("Failed to add watcher")
	}
	for _, e := range cfg.ZWave.Drivers {
		if err := m.AddDriver(strings.TrimSpace(e)); err != nil {
			log.Error().Err(err).Str("endpoint", e).Msg("Failed to attach controller")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Run(ctx, cancel)
}
