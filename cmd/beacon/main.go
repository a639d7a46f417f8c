// Package main provides the Beacon terminal application. Beacon drives a
// browser window and narrates the page in it: ask where something is and it
// highlights the element and reads the answer aloud.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/beacon/pkg/assistant"
	"github.com/entrhq/beacon/pkg/browser"
	appconfig "github.com/entrhq/beacon/pkg/config"
	"github.com/entrhq/beacon/pkg/executor/cli"
	"github.com/entrhq/beacon/pkg/executor/tui"
	"github.com/entrhq/beacon/pkg/types"
)

const (
	version = "0.1.0" // Version of the Beacon narrator

	shutdownTimeout = 10 * time.Second
)

// Config holds the application configuration
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	ConfigFile  string
	URL         string
	Locale      string
	Headless    bool
	Plain       bool
	ShowVersion bool
}

func main() {
	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("Beacon v%s\n", version)
		return
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	// Run the application
	if runErr := run(ctx, config); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
	cancel()
}

// parseFlags parses command line flags and environment variables
func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.Provider, "provider", "", "Language model provider: gemini or openai (or set BEACON_LLM_PROVIDER)")
	flag.StringVar(&config.APIKey, "api-key", "", "API key (or set GEMINI_API_KEY / OPENAI_API_KEY)")
	flag.StringVar(&config.BaseURL, "base-url", "", "API base URL for compatible endpoints")
	flag.StringVar(&config.Model, "model", "", "Model to use (default depends on the provider)")
	flag.StringVar(&config.ConfigFile, "config", "", "Path to the settings file (default ~/.beacon/config.json)")
	flag.StringVar(&config.URL, "url", "", "Page to open on start")
	flag.StringVar(&config.Locale, "locale", "en-US", "Page and speech language")
	flag.BoolVar(&config.Headless, "headless-browser", false, "Run the browser without a window")
	flag.BoolVar(&config.Plain, "plain", false, "Use the line-mode interface instead of the full-screen TUI")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Beacon - an accessibility narrator for the web\n\n")
		fmt.Fprintf(os.Stderr, "Usage: beacon [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  BEACON_LLM_PROVIDER  gemini (default) or openai\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY       Gemini API key\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY       OpenAI API key\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_BASE_URL      OpenAI API base URL (for compatible APIs)\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  beacon -url https://example.com\n")
		fmt.Fprintf(os.Stderr, "  beacon -provider openai -model gpt-4o-mini\n")
		fmt.Fprintf(os.Stderr, "  beacon -plain -url https://example.com\n")
	}

	flag.Parse()
	return config
}

// run starts the assistant and hands the terminal to the chosen front end
func run(ctx context.Context, config *Config) error {
	if err := appconfig.Initialize(config.ConfigFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	var (
		handle  func(*types.Event)
		execute func(context.Context, *assistant.Assistant) error
	)
	if config.Plain {
		executor := cli.NewExecutor()
		handle = executor.Handle
		execute = func(ctx context.Context, a *assistant.Assistant) error {
			return executor.Run(ctx, a.Orchestrator(), a)
		}
	} else {
		executor := tui.NewExecutor("beacon")
		handle = executor.Handle
		execute = func(ctx context.Context, a *assistant.Assistant) error {
			return executor.Run(ctx, a.Orchestrator(), a)
		}
	}

	fmt.Printf("Beacon v%s - Accessibility Narrator\n", version)
	fmt.Println("Starting browser...")

	a, err := assistant.Start(ctx, assistant.Options{
		ConfigPath: config.ConfigFile,
		Provider: appconfig.ProviderFlags{
			Provider: config.Provider,
			Model:    config.Model,
			BaseURL:  config.BaseURL,
			APIKey:   config.APIKey,
		},
		Session: browser.SessionOptions{
			Headless: config.Headless,
			Locale:   config.Locale,
		},
		StartURL: config.URL,
		OnEvent:  handle,
	})
	if err != nil {
		return fmt.Errorf("failed to start assistant: %w", err)
	}

	runErr := execute(ctx, a)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if closeErr := a.Close(closeCtx); closeErr != nil {
		log.Printf("Shutdown error: %v", closeErr)
	}

	if runErr != nil {
		return fmt.Errorf("executor error: %w", runErr)
	}
	return nil
}
