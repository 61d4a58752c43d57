// Command parcheesi-server runs the Parcheesi REST/WebSocket API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/xtaveras38/Parcheesi/internal/store"
	"github.com/xtaveras38/Parcheesi/pkg/api"
	"github.com/xtaveras38/Parcheesi/pkg/engine"
)

const version = "0.1.0"

func main() {
	host := flag.String("host", "localhost", "Host to bind to (use 0.0.0.0 for all interfaces)")
	port := flag.Int("port", 8080, "Port to listen on")
	cacheSize := flag.Uint("cache-size", 0, "Evaluation cache entries (0 = default)")
	dbDSN := flag.String("db", "", "PostgreSQL DSN for game archiving (empty = disabled)")
	readTimeout := flag.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	fastWorkers := flag.Int("fast-workers", 100, "Max concurrent game operations")
	slowWorkers := flag.Int("slow-workers", 4, "Max concurrent rollouts")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Parcheesi API Server v%s\n", version)
		os.Exit(0)
	}

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	log.Info().Str("version", version).Msg("Parcheesi API server")

	eng := engine.NewEngine(engine.EngineOptions{CacheSize: uint32(*cacheSize)})

	var archiver api.Archiver
	if *dbDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		st, err := store.Open(ctx, *dbDSN)
		if err != nil {
			cancel()
			log.Fatal().Err(err).Msg("failed to open archive store")
		}
		if err := st.Init(ctx); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("failed to initialize archive schema")
		}
		cancel()
		defer st.Close()
		archiver = st
		log.Info().Msg("game archiving enabled")
	}

	config := api.ServerConfig{
		Host:           *host,
		Port:           *port,
		ReadTimeout:    *readTimeout,
		WriteTimeout:   *writeTimeout,
		IdleTimeout:    60 * time.Second,
		MaxFastWorkers: *fastWorkers,
		MaxSlowWorkers: *slowWorkers,
		SessionMaxAge:  24 * time.Hour,
	}

	server := api.NewServer(eng, config, version, archiver, log)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
