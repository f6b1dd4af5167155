package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/civicsense/civicsense"
	"github.com/civicsense/civicsense/common/logger"
	"github.com/civicsense/civicsense/config"
	"github.com/civicsense/civicsense/store"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	defer logger.Sync()

	var records *store.Store
	if cfg.Store.DSN != "" {
		records, err = store.Open(cfg.Store.DSN, cfg.App.Name, cfg.App.Version)
		if err != nil {
			logger.Errorf("open record store: %v", err)
			os.Exit(1)
		}
	} else {
		logger.Warnf("no database configured, interaction records will not be persisted")
	}

	assistant, err := civicsense.NewAssistant(cfg, records)
	if err != nil {
		logger.Errorf("build assistant: %v", err)
		os.Exit(1)
	}

	sessions, err := civicsense.NewSessionStore(&cfg.Session)
	if err != nil {
		logger.Errorf("build session store: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := civicsense.NewServer(cfg, assistant, sessions, records)
	if err := srv.Run(ctx); err != nil {
		logger.Errorf("server: %v", err)
		os.Exit(1)
	}
}
