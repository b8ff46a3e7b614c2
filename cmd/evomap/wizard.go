package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/config"
)

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// runSetupWizard collects the backend URL and API key when the config is
// incomplete, and offers to persist them. Non-interactive invocations get
// an actionable error instead of a hanging prompt.
func runSetupWizard(cfg config.Config, cfgPath string) (config.Config, error) {
	if !isInteractive() {
		return cfg, fmt.Errorf(
			"no API key configured; set EVOMAP_API_KEY, pass --api-key, or add it to %s", cfgPath)
	}

	url := cfg.Backend.URL
	if url == "" {
		url = config.DefaultBackendURL
	}
	key := cfg.Backend.APIKey
	save := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("The Evolution Mapper backend to talk to").
				Value(&url).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("backend URL is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("API key").
				Description("Sent as X-API-Key with every request").
				EchoMode(huh.EchoModePassword).
				Value(&key).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("an API key is required")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Save to config file?").
				Description(cfgPath).
				Value(&save),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return cfg, err
	}

	cfg.Backend.URL = strings.TrimSpace(url)
	cfg.Backend.APIKey = strings.TrimSpace(key)

	if save && cfgPath != "" {
		if err := config.SaveTo(cfg, cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
		}
	}
	return cfg, nil
}
