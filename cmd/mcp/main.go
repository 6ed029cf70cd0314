package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/config"
	"github.com/urmzd/zwcore/pkg/db"
	"github.com/urmzd/zwcore/pkg/manager"
	zwmcp "github.com/urmzd/zwcore/pkg/mcp"
	"github.com/urmzd/zwcore/pkg/schema"
)

var version = "dev"

func main() {
	// stdout carries the MCP transport.
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
	if err := serve(context.Background(), cfg); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}

// serve attaches the remembered controllers and answers tool calls on
// stdio until the client disconnects. Endpoints attached through the tools
// are not remembered.
func serve(ctx context.Context, cfg config.Config) error {
	database, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return err
	}
	if err := database.Bootstrap(ctx, cfg.ZWave.Drivers); err != nil {
		return err
	}
	endpoints, err := database.Endpoints().Enabled(ctx)
	if err != nil {
		return err
	}

	m, err := manager.Create(cfg.ZWave, manager.WithNameStore(database.Nodes()))
	if err != nil {
		return err
	}
	defer func() { _ = m.Destroy() }()

	for _, e := range endpoints {
		if err := m.AddDriver(e); err != nil {
			log.Error().Err(err).Str("endpoint", e).Msg("Failed to attach controller")
		}
	}

	log.Info().Str("db", database.Path()).Int("drivers", len(endpoints)).Msg("Starting MCP server on stdio")
	return zwmcp.NewServer(m, schema.NewValidator(), version).ServeStdio()
}
