// Package main provides the hoverpilot application: a Chromium session whose
// hovered posts get reply suggestions in a terminal panel while a modifier
// key is held.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/hoverpilot/pkg/clipboard"
	"github.com/entrhq/hoverpilot/pkg/config"
	"github.com/entrhq/hoverpilot/pkg/engine"
	"github.com/entrhq/hoverpilot/pkg/generate"
	"github.com/entrhq/hoverpilot/pkg/llm/tokenizer"
	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/panel"
	"github.com/entrhq/hoverpilot/pkg/surface"
)

const (
	version      = "0.1.0"       // Version of hoverpilot
	defaultModel = "gpt-4o-mini" // Default model to use
)

// Config holds the application configuration
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	ConfigPath   string
	ProfilePath  string
	StartURL     string
	UserDataDir  string
	StyleRules   string
	Headless     bool
	NoPanel      bool
	PrintProfile bool
	ShowVersion  bool
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("hoverpilot v%s\n", version)
		return
	}

	if cfg.PrintProfile {
		out, err := config.DefaultProfile().Marshal()
		if err != nil {
			log.Fatalf("Failed to render profile: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	if err := cfg.validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		cancel()
		log.Fatalf("Application error: %v", err)
	}
	cancel()
}

// parseFlags parses command line flags and environment variables
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	flag.StringVar(&cfg.BaseURL, "base-url", "", "OpenAI API base URL (or set OPENAI_BASE_URL env var)")
	flag.StringVar(&cfg.Model, "model", "", "LLM model to use (default: "+defaultModel+")")
	flag.StringVar(&cfg.ConfigPath, "config", "", "Path to config file (default: ~/.hoverpilot/config.json)")
	flag.StringVar(&cfg.ProfilePath, "profile", "", "Path to a site profile (YAML); watched for changes")
	flag.StringVar(&cfg.StartURL, "url", "", "Start URL (default: the profile's start_url)")
	flag.StringVar(&cfg.UserDataDir, "user-data-dir", "", "Persistent browser profile directory (keeps logins)")
	flag.StringVar(&cfg.StyleRules, "style", "", "Style rules for generated replies (optional, overrides default)")
	flag.BoolVar(&cfg.Headless, "headless", false, "Run the browser without a window")
	flag.BoolVar(&cfg.NoPanel, "no-panel", false, "Print engine events instead of showing the panel")
	flag.BoolVar(&cfg.PrintProfile, "print-profile", false, "Print the built-in site profile and exit")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "hoverpilot - reply suggestions for the post under the cursor\n\n")
		fmt.Fprintf(os.Stderr, "Usage: hoverpilot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY     OpenAI API key\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_BASE_URL    OpenAI API base URL (for compatible APIs)\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hoverpilot -user-data-dir ~/.hoverpilot/browser\n")
		fmt.Fprintf(os.Stderr, "  hoverpilot -profile forum.yaml -model gpt-4o\n")
		fmt.Fprintf(os.Stderr, "  hoverpilot -print-profile > profile.yaml\n")
	}

	flag.Parse()
	return cfg
}

// validate checks that the configuration is valid
func (c *Config) validate() error {
	if c.ProfilePath != "" {
		info, err := os.Stat(c.ProfilePath)
		if err != nil {
			return fmt.Errorf("profile error: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("profile path '%s' is a directory", c.ProfilePath)
		}
	}
	if c.Headless && !c.NoPanel {
		return fmt.Errorf("a headless browser cannot be hovered; combine -headless with -no-panel")
	}
	return nil
}

// run wires the engine together and blocks until the panel exits or ctx is
// cancelled.
func run(ctx context.Context, cfg *Config) error {
	logger, err := logging.NewLogger("hoverpilot")
	if err != nil {
		return err
	}
	defer logger.Close()

	if err := config.Initialize(cfg.ConfigPath); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	settings := config.Engine()

	profile := config.DefaultProfile()
	if cfg.ProfilePath != "" {
		if profile, err = config.LoadProfile(cfg.ProfilePath); err != nil {
			return err
		}
	}

	gen, err := buildGenerator(cfg, settings, logger)
	if err != nil {
		return err
	}

	session := surface.NewSessionManager()
	if err := session.Initialize(); err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	defer func() {
		if err := session.Shutdown(); err != nil {
			logger.Warnf("Browser shutdown failed: %v", err)
		}
	}()

	startURL := cfg.StartURL
	if startURL == "" {
		startURL = profile.StartURL
	}
	primary, err := session.Launch(ctx, startURL, surface.SessionOptions{
		Headless:    cfg.Headless,
		UserDataDir: cfg.UserDataDir,
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	panelSettings := config.Panel()
	clip := clipboard.NewSystemProvider()
	if !clip.Available() {
		logger.Warnf("System clipboard unavailable, paste requests will resolve empty")
	}

	state := panel.NewState()
	state.SetMouseHold(panelSettings.MouseHold)
	eng, err := engine.New(engine.Config{
		Profile:   profile,
		Settings:  settings,
		Primary:   primary,
		Browser:   engine.SessionBrowser{Session: session},
		Generator: gen,
		Clipboard: clip,
		Panel:     state,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if cfg.ProfilePath != "" {
		watcher, err := config.NewProfileWatcher(cfg.ProfilePath, config.DefaultDebounce, func(p *config.Profile) {
			if err := eng.ApplyProfile(ctx, p); err != nil {
				logger.Warnf("Profile reload rejected: %v", err)
			}
		}, logger.Named("config"))
		if err != nil {
			return err
		}
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- eng.Run(runCtx)
	}()

	fmt.Printf("hoverpilot v%s\n", version)
	fmt.Printf("Profile: %s\n", profile.Name)
	fmt.Printf("Log: %s\n", logger.LogPath())

	if cfg.NoPanel {
		err = printEvents(runCtx, eng.Events())
	} else {
		model := panel.New(panel.Config{
			Context:       runCtx,
			State:         state,
			Actions:       eng,
			Clipboard:     clip,
			AutoSubmit:    settings.AutoSubmit,
			Profile:       profile.Name,
			StatusTimeout: panelSettings.StatusTimeout,
			KeepErrors:    panelSettings.KeepErrors,
			FullHelp:      panelSettings.ShowFullHelp,
		})
		err = panel.Run(runCtx, model, eng.Events())
	}

	stop()
	if runErr := <-engineErr; runErr != nil && err == nil && !errors.Is(runErr, context.Canceled) {
		err = runErr
	}
	return err
}

// buildGenerator resolves the backend chain and wraps it in a Generator.
func buildGenerator(cfg *Config, settings config.EngineSettings, logger *logging.Logger) (*generate.Generator, error) {
	llmSettings := config.GetLLM().Snapshot()

	providers, err := config.BuildProviders(config.ProviderFlags{
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
	}, llmSettings, defaultModel)
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.New()
	if err != nil {
		// Truncation falls back to a character estimate.
		logger.Warnf("Tokenizer unavailable: %v", err)
	}

	return generate.New(providers, tok, generate.Options{
		Timeout:     llmSettings.Timeout,
		StyleRules:  cfg.StyleRules,
		Suggestions: settings.Suggestions,
	}, logger.Named("generate"))
}
