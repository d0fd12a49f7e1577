package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tradfrid/internal/app"
	"github.com/dokzlo13/tradfrid/internal/config"
	"github.com/dokzlo13/tradfrid/internal/discovery"
)

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	clearState := flag.Bool("clear-state", false, "Clear persisted light and group records on startup")
	discover := flag.Bool("discover", false, "Browse the local network for gateways and exit")
	flag.Parse()

	// Optional .env file for ${VAR} expansion in the config
	_ = godotenv.Load()

	if *discover {
		runDiscover()
		return
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	setupLogging(cfg.Log.GetLevel(), cfg.Log.JSON, cfg.Log.Colors)

	log.Info().Str("config", configPath).Msg("Starting tradfrid")

	// Create application
	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	// Handle clear state flag
	if *clearState {
		log.Info().Msg("Clearing persisted records (--clear-state)")
		if err := application.ClearStoredState(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear persisted records")
		}
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	// Start the application
	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	// Wait for shutdown
	application.Wait()

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

// runDiscover prints the first gateway found via mDNS.
func runDiscover() {
	setupLogging("info", false, true)

	ctx := app.SignalContext()
	gw, err := discovery.Lookup(ctx, 30*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("Discovery failed")
	}
	fmt.Printf("%s at %s:%d\n", gw.Instance, gw.Host, gw.Port)
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
