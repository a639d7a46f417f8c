package headless

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/beacon/pkg/config"
)

// Config describes one headless job: a page to open and the commands to run
// against it.
type Config struct {
	// Job name, used in logs and reports
	Name string `yaml:"name" json:"name"`

	// URL opened before the first step
	URL string `yaml:"url" json:"url"`

	// Steps run in order
	Steps []StepConfig `yaml:"steps" json:"steps"`

	// Features overrides the saved feature toggles for this job
	Features map[string]bool `yaml:"features" json:"features"`

	// FailFast stops the job at the first failed step
	FailFast bool `yaml:"fail_fast" json:"fail_fast"`

	// Safety constraints
	Constraints ConstraintConfig `yaml:"constraints" json:"constraints"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// Step commands. The first four map onto pipeline commands; the rest act on
// the session directly.
const (
	StepSummarize = "summarize"
	StepGuide     = "guide"
	StepNavigate  = "navigate"
	StepClear     = "clear"
	StepOpen      = "open"
	StepToggle    = "toggle"
	StepWait      = "wait"
)

// StepConfig is one entry of a job.
type StepConfig struct {
	Command string `yaml:"command" json:"command"`

	// Query is the navigate question
	Query string `yaml:"query,omitempty" json:"query,omitempty"`

	// URL is the page for open steps
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Feature is the toggle name for toggle steps
	Feature string `yaml:"feature,omitempty" json:"feature,omitempty"`

	// Duration is the pause for wait steps
	Duration time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`

	// Expect lists checks run against the step's outcome
	Expect ExpectConfig `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// ExpectConfig holds the checks for a step. Patterns are globs; an empty
// pattern is not checked.
type ExpectConfig struct {
	Reply         string `yaml:"reply,omitempty" json:"reply,omitempty"`
	Selector      string `yaml:"selector,omitempty" json:"selector,omitempty"`
	Highlighted   *bool  `yaml:"highlighted,omitempty" json:"highlighted,omitempty"`
	Clarification *bool  `yaml:"clarification,omitempty" json:"clarification,omitempty"`
}

// ConstraintConfig defines safety limits for a job
type ConstraintConfig struct {
	// MaxTokens stops the job once model usage passes it. Zero means no limit.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	// Timeout bounds the whole job
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// StepTimeout bounds each step
	StepTimeout time.Duration `yaml:"step_timeout" json:"step_timeout"`

	// AllowedURLs and DeniedURLs are glob patterns checked before every open
	AllowedURLs []string `yaml:"allowed_urls" json:"allowed_urls"`
	DeniedURLs  []string `yaml:"denied_urls" json:"denied_urls"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Snapshots also writes the page model captured by each step
	Snapshots bool `yaml:"snapshots" json:"snapshots"`
}

// LoadConfig reads a YAML job file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}
	if cfg.Name == "" {
		base := filepath.Base(path)
		cfg.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return cfg, nil
}

// Validate validates the configuration
//
//nolint:gocyclo
func (c *Config) Validate() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	for i, step := range c.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	for name := range c.Features {
		if !knownFeature(name) {
			return fmt.Errorf("unknown feature: %s", name)
		}
	}

	if c.Constraints.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if c.Constraints.StepTimeout < 0 {
		return fmt.Errorf("step_timeout cannot be negative")
	}

	if c.Constraints.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative")
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts output_dir is required when artifacts are enabled")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

func (s StepConfig) validate() error {
	switch s.Command {
	case StepSummarize, StepGuide, StepClear:
	case StepNavigate:
		if strings.TrimSpace(s.Query) == "" {
			return fmt.Errorf("navigate requires a query")
		}
	case StepOpen:
		if s.URL == "" {
			return fmt.Errorf("open requires a url")
		}
	case StepToggle:
		if s.Feature == "" {
			return fmt.Errorf("toggle requires a feature")
		}
		if !knownFeature(s.Feature) {
			return fmt.Errorf("unknown feature: %s", s.Feature)
		}
	case StepWait:
		if s.Duration <= 0 {
			return fmt.Errorf("wait requires a positive duration")
		}
	case "":
		return fmt.Errorf("command is required")
	default:
		return fmt.Errorf("unknown command: %s", s.Command)
	}
	return nil
}

func knownFeature(name string) bool {
	for _, known := range config.FeatureNames() {
		if name == known {
			return true
		}
	}
	return false
}

// Label is a short human description of the step.
func (s StepConfig) Label() string {
	switch s.Command {
	case StepNavigate:
		return fmt.Sprintf("navigate %q", s.Query)
	case StepOpen:
		return "open " + s.URL
	case StepToggle:
		return "toggle " + s.Feature
	case StepWait:
		return "wait " + s.Duration.String()
	}
	return s.Command
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Constraints: ConstraintConfig{
			Timeout:     5 * time.Minute,
			StepTimeout: time.Minute,
			MaxTokens:   50000,
		},
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: ".beacon/artifacts",
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}
