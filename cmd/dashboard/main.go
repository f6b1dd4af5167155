package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/civicsense/civicsense/config"
	"github.com/civicsense/civicsense/dashboard"
	"github.com/civicsense/civicsense/store"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Store.DSN == "" {
		fmt.Fprintln(os.Stderr, "the dashboard needs a database; set store.dsn or CIVICSENSE_DB_DSN")
		os.Exit(1)
	}

	records, err := store.Open(cfg.Store.DSN, cfg.App.Name, cfg.App.Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open record store: %v\n", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(dashboard.New(records), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", err)
		os.Exit(1)
	}
}
