package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/beacon/pkg/snapshot"
)

// ArtifactWriter handles writing execution artifacts
type ArtifactWriter struct {
	outputDir string
	snapshots bool
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, snapshots bool) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		snapshots: snapshots,
	}
}

// WriteAll writes all configured artifact formats
func (w *ArtifactWriter) WriteAll(summary *ExecutionSummary) error {
	// Ensure output directory exists
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.WriteExecutionJSON(summary); err != nil {
		return fmt.Errorf("failed to write execution JSON: %w", err)
	}

	if err := w.WriteSummaryMarkdown(summary); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}

	if err := w.WriteMetricsJSON(summary); err != nil {
		return fmt.Errorf("failed to write metrics JSON: %w", err)
	}

	if w.snapshots {
		if err := w.WriteSnapshots(summary); err != nil {
			return fmt.Errorf("failed to write snapshots: %w", err)
		}
	}

	return nil
}

// WriteExecutionJSON writes the full execution summary as JSON
func (w *ArtifactWriter) WriteExecutionJSON(summary *ExecutionSummary) error {
	return writeJSON(filepath.Join(w.outputDir, "execution.json"), summary)
}

// WriteMetricsJSON writes execution metrics as JSON
func (w *ArtifactWriter) WriteMetricsJSON(summary *ExecutionSummary) error {
	return writeJSON(filepath.Join(w.outputDir, "metrics.json"), summary.Metrics)
}

// WriteSnapshots writes the page model each step captured, one file per step
func (w *ArtifactWriter) WriteSnapshots(summary *ExecutionSummary) error {
	for _, step := range summary.Steps {
		if step.Snapshot == nil {
			continue
		}
		name := fmt.Sprintf("step-%02d-snapshot.json", step.Index)
		if err := writeJSON(filepath.Join(w.outputDir, name), step.Snapshot); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")

	var md strings.Builder

	// Header
	md.WriteString("# Beacon Headless Execution Summary\n\n")
	md.WriteString(fmt.Sprintf("**Job:** %s\n\n", summary.Job))
	if summary.URL != "" {
		md.WriteString(fmt.Sprintf("**Page:** %s\n\n", summary.URL))
	}
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	// Result
	md.WriteString("## Result\n\n")
	if summary.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", summary.Error))
	} else {
		md.WriteString("✅ **Success**\n\n")
	}

	// Steps
	if len(summary.Steps) > 0 {
		md.WriteString("## Steps\n\n")
		for _, step := range summary.Steps {
			md.WriteString(fmt.Sprintf("%s **%d. %s** (%s)\n", stepIcon(step.Status), step.Index, step.Label, step.Duration.Round(time.Millisecond)))
			if step.Reply != "" {
				prefix := "Reply"
				if step.Clarification {
					prefix = "Question"
				}
				md.WriteString(fmt.Sprintf("   %s: %s\n", prefix, step.Reply))
			}
			if step.Selector != "" {
				md.WriteString(fmt.Sprintf("   Target: `%s`", step.Selector))
				if !step.Highlighted {
					md.WriteString(" (not shown)")
				}
				md.WriteString("\n")
			}
			for _, check := range step.Expectations {
				if !check.Passed {
					md.WriteString(fmt.Sprintf("   Expectation failed: %s\n", check.Error))
				}
			}
			if step.Error != "" {
				md.WriteString(fmt.Sprintf("   Error: %s\n", step.Error))
			}
		}
		md.WriteString("\n")
	}

	// Metrics
	md.WriteString("## Metrics\n\n")
	md.WriteString(fmt.Sprintf("- **Steps Passed:** %d/%d\n", summary.Metrics.StepsPassed, summary.Metrics.StepsRun))
	md.WriteString(fmt.Sprintf("- **Model Calls:** %d\n", summary.Metrics.ModelCalls))
	md.WriteString(fmt.Sprintf("- **Tokens Used:** %d\n", summary.Metrics.TokensUsed))
	md.WriteString(fmt.Sprintf("- **Highlights:** %d\n", summary.Metrics.Highlights))
	md.WriteString(fmt.Sprintf("- **Clarifications:** %d\n", summary.Metrics.Clarifications))

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

func stepIcon(status string) string {
	switch status {
	case stepPassed:
		return "✅"
	case stepSkipped:
		return "⏭"
	default:
		return "❌"
	}
}

// ExecutionSummary contains a complete summary of headless execution
type ExecutionSummary struct {
	Job       string           `json:"job"`
	URL       string           `json:"url,omitempty"`
	Status    string           `json:"status"`
	Error     string           `json:"error,omitempty"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Duration  time.Duration    `json:"duration"`
	Steps     []StepResult     `json:"steps"`
	Errors    []string         `json:"errors,omitempty"`
	Metrics   ExecutionMetrics `json:"metrics"`
}

// StepResult records what one step did
type StepResult struct {
	Index         int                 `json:"index"`
	Command       string              `json:"command"`
	Label         string              `json:"label"`
	Status        string              `json:"status"`
	CommandID     string              `json:"command_id,omitempty"`
	Reply         string              `json:"reply,omitempty"`
	Clarification bool                `json:"clarification,omitempty"`
	Selector      string              `json:"selector,omitempty"`
	Description   string              `json:"description,omitempty"`
	Highlighted   bool                `json:"highlighted,omitempty"`
	Error         string              `json:"error,omitempty"`
	Duration      time.Duration       `json:"duration"`
	Expectations  []ExpectationResult `json:"expectations,omitempty"`

	Snapshot *snapshot.Snapshot `json:"-"`
}

// ExecutionMetrics contains execution metrics
type ExecutionMetrics struct {
	StepsRun         int `json:"steps_run"`
	StepsPassed      int `json:"steps_passed"`
	StepsFailed      int `json:"steps_failed"`
	ModelCalls       int `json:"model_calls"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TokensUsed       int `json:"tokens_used"`
	Highlights       int `json:"highlights"`
	Clarifications   int `json:"clarifications"`
	Narrations       int `json:"narrations"`
}
