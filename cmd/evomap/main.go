package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jarrodharvey/evolution-mapper-frontend/internal/history"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/api"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/config"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/debug"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/ui"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/version"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/watcher"
)

func main() {
	backendURL := flag.String("backend-url", "", "Backend base URL (overrides config)")
	apiKey := flag.String("api-key", "", "Backend API key (overrides config)")
	configPath := flag.String("config", "", "Path to config.yaml (default: XDG config dir)")
	exportDir := flag.String("export", "", "Directory for exported tree snapshots (overrides config)")
	noWatch := flag.Bool("no-watch", false, "Disable live config reloading")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *help {
		fmt.Println("Usage: evomap [options]")
		fmt.Println("\nA terminal client for the Evolution Mapper backend: pick species,")
		fmt.Println("generate their dated evolutionary tree, and explore it.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("evomap %s\n", version.Version)
		os.Exit(0)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	if *backendURL != "" {
		cfg.Backend.URL = *backendURL
	}
	if *apiKey != "" {
		cfg.Backend.APIKey = *apiKey
	}
	if *exportDir != "" {
		cfg.UI.ExportDir = *exportDir
	}

	// First run: walk through backend setup before starting the UI.
	if !cfg.Complete() {
		cfg, err = runSetupWizard(cfg, cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			os.Exit(1)
		}
	}

	client := api.New(cfg.Backend.URL, cfg.Backend.APIKey)

	store, err := history.Open()
	if err != nil {
		debug.Log("history unavailable: %v", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	var cfgWatcher *watcher.Watcher
	if !*noWatch && cfgPath != "" {
		cfgWatcher, err = watcher.NewWatcher(cfgPath)
		if err == nil {
			if err := cfgWatcher.Start(); err != nil {
				debug.Log("config watcher disabled: %v", err)
				cfgWatcher = nil
			} else {
				defer cfgWatcher.Stop()
			}
		} else {
			cfgWatcher = nil
		}
	}

	m := ui.NewModel(cfg, client, store, cfgWatcher)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
