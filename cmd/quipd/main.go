package main

import (
	"flag"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quiplabs/quip/pkg/logger"
	"github.com/quiplabs/quip/server"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to TOML config file")
	listenAddr := flag.String("listen", "", "Address to listen on (overrides config)")
	dbPath := flag.String("db", "", "Path to SQLite conversation log (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Set up logger
	logger := logger.NewLogger("quipd", *debug)
	defer logger.Sync()

	// Secrets come from the environment; .env is a convenience for
	// local development and is allowed to be absent.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env")
	}

	config, err := server.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *listenAddr != "" {
		config.ListenAddr = *listenAddr
	}
	if *dbPath != "" {
		config.DBPath = *dbPath
	}

	logger.Info("quipd starting",
		zap.String("listen", config.ListenAddr),
		zap.String("static_root", config.StaticRoot),
		zap.Bool("debug", *debug),
	)

	s, err := server.New(config, logger)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}
	defer s.Close()

	if err := s.Run(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
