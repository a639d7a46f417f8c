// Package main provides the Beacon headless runner for CI. It opens a page in
// a windowless browser, runs the steps of a YAML job through the narrator
// pipeline and writes a report.
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
	"time"

	"github.com/entrhq/beacon/pkg/assistant"
	"github.com/entrhq/beacon/pkg/browser"
	appconfig "github.com/entrhq/beacon/pkg/config"
	"github.com/entrhq/beacon/pkg/executor/headless"
)

const (
	version = "0.1.0"

	shutdownTimeout = 10 * time.Second

	// exitPartial is used when some steps failed and others passed
	exitPartial = 2
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Model        string
	SettingsFile string
	JobFile      string
	URL          string
	OutputDir    string
	Verbosity    string
	Timeout      time.Duration
	ShowBrowser  bool
	ShowVersion  bool
}

func main() {
	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("Beacon Headless v%s\n", version)
		return
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	err := run(ctx, config)
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, headless.ErrPartialSuccess):
		os.Exit(exitPartial)
	default:
		log.Printf("Execution failed: %v", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	config := &CLIConfig{}

	flag.StringVar(&config.JobFile, "job", "", "Path to the job file (YAML, required)")
	flag.StringVar(&config.Provider, "provider", "", "Language model provider: gemini or openai")
	flag.StringVar(&config.APIKey, "api-key", "", "API key (or set GEMINI_API_KEY / OPENAI_API_KEY)")
	flag.StringVar(&config.BaseURL, "base-url", "", "API base URL for compatible endpoints")
	flag.StringVar(&config.Model, "model", "", "Model to use (default depends on the provider)")
	flag.StringVar(&config.SettingsFile, "config", "", "Path to the settings file (default ~/.beacon/config.json)")
	flag.StringVar(&config.URL, "url", "", "Override the job's start page")
	flag.StringVar(&config.OutputDir, "output", "", "Override the artifact directory")
	flag.StringVar(&config.Verbosity, "verbosity", "", "Override logging: quiet, normal, verbose or debug")
	flag.DurationVar(&config.Timeout, "timeout", 0, "Override the job timeout")
	flag.BoolVar(&config.ShowBrowser, "show-browser", false, "Show the browser window")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Beacon Headless - scripted narrator runs for CI\n\n")
		fmt.Fprintf(os.Stderr, "Usage: beacon-headless -job job.yaml [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExit codes:\n")
		fmt.Fprintf(os.Stderr, "  0  every step passed\n")
		fmt.Fprintf(os.Stderr, "  1  the job failed\n")
		fmt.Fprintf(os.Stderr, "  2  some steps failed\n")
	}

	flag.Parse()
	return config
}

// run executes the job
func run(ctx context.Context, cliConfig *CLIConfig) error {
	job, err := loadJob(cliConfig)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	executor, err := headless.NewExecutor(job)
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	if initErr := appconfig.Initialize(cliConfig.SettingsFile); initErr != nil {
		return fmt.Errorf("failed to initialize configuration: %w", initErr)
	}

	a, err := assistant.Start(ctx, assistant.Options{
		ConfigPath: cliConfig.SettingsFile,
		Provider: appconfig.ProviderFlags{
			Provider: cliConfig.Provider,
			Model:    cliConfig.Model,
			BaseURL:  cliConfig.BaseURL,
			APIKey:   cliConfig.APIKey,
		},
		Session: browser.SessionOptions{Headless: !cliConfig.ShowBrowser},
		OnEvent: executor.Handle,
	})
	if err != nil {
		return fmt.Errorf("failed to start assistant: %w", err)
	}

	runErr := executor.Run(ctx, a.Orchestrator(), a)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if closeErr := a.Close(closeCtx); closeErr != nil {
		log.Printf("Shutdown error: %v", closeErr)
	}

	return runErr
}

// loadJob reads the job file and applies command-line overrides
func loadJob(cliConfig *CLIConfig) (*headless.Config, error) {
	if cliConfig.JobFile == "" {
		return nil, fmt.Errorf("a job file is required (use -job)")
	}

	job, err := headless.LoadConfig(cliConfig.JobFile)
	if err != nil {
		return nil, err
	}

	if cliConfig.URL != "" {
		job.URL = cliConfig.URL
	}
	if cliConfig.OutputDir != "" {
		job.Artifacts.OutputDir = cliConfig.OutputDir
	}
	if cliConfig.Verbosity != "" {
		job.Logging.Verbosity = cliConfig.Verbosity
	}
	if cliConfig.Timeout > 0 {
		job.Constraints.Timeout = cliConfig.Timeout
	}
	return job, nil
}
