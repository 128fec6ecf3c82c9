// Package main is the entry point for the tensormidi API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wrongbad/tensormidi/pkg/api"
	"github.com/wrongbad/tensormidi/pkg/config"
	"github.com/wrongbad/tensormidi/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Config file (default ~/.config/tensormidi/config.json)")
	port := flag.Int("port", 0, "Server port (default from config)")
	logLevel := flag.String("log-level", "", "Log level (default from config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port == 0 {
		*port = cfg.Server.Port
	}
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	opts, err := cfg.Options()
	if err != nil {
		logger.Fatal("invalid decode options", zap.Error(err))
	}

	fmt.Printf("Starting tensormidi API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port, api.Config{
		Logger:    logger,
		Defaults:  opts,
		MaxUpload: int64(cfg.Server.MaxUploadMB) << 20,
	}); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
