package headless

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LogLevel represents the logging verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only critical information (errors, warnings, final summary)
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows standard execution progress (default)
	LogLevelNormal
	// LogLevelVerbose shows detailed execution information
	LogLevelVerbose
	// LogLevelDebug shows all internal details for debugging
	LogLevelDebug
)

// Logger prints job progress for headless execution
type Logger struct {
	level  LogLevel
	writer io.Writer

	// ANSI color codes
	colorReset     string
	colorCyan      string
	colorSalmon    string
	colorYellow    string
	colorRed       string
	colorGray      string
	colorBoldGreen string
	colorBoldRed   string
	colorBoldWhite string
}

// NewLogger creates a new logger with the specified level
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		level:          level,
		writer:         os.Stdout,
		colorReset:     "\033[0m",
		colorCyan:      "\033[36m",
		colorSalmon:    "\033[38;5;217m", // Salmon pink #FFB3BA
		colorYellow:    "\033[33m",
		colorRed:       "\033[31m",
		colorGray:      "\033[90m",
		colorBoldGreen: "\033[1;32m",
		colorBoldRed:   "\033[1;31m",
		colorBoldWhite: "\033[1;37m",
	}
}

// SetOutput redirects the logger, e.g. to a buffer in tests
func (l *Logger) SetOutput(w io.Writer) {
	l.writer = w
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintf(l.writer, "\n%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
		fmt.Fprintf(l.writer, "%s  %s%s\n", l.colorBoldWhite, message, l.colorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	}
}

// Section prints a section divider
func (l *Logger) Section(title string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		fmt.Fprintf(l.writer, "%s▶ %s%s\n", l.colorCyan, title, l.colorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorGray, strings.Repeat("─", 50), l.colorReset)
	}
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s✓ %s%s\n", l.colorBoldGreen, msg, l.colorReset)
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorSalmon, msg, l.colorReset)
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s⚠ Warning: %s%s\n", l.colorYellow, msg, l.colorReset)
	}
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s✗ Error: %s%s\n", l.colorBoldRed, msg, l.colorReset)
	}
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s→ %s%s\n", l.colorGray, msg, l.colorReset)
	}
}

// Debugf prints debug information (only in debug mode)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s[DEBUG] %s%s\n", l.colorGray, msg, l.colorReset)
	}
}

// StepStart logs the beginning of a job step
func (l *Logger) StepStart(index, total int, label string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintf(l.writer, "\n%s[%d/%d] %s%s\n", l.colorCyan, index, total, label, l.colorReset)
	}
}

// Reply logs the reply or question a step produced
func (l *Logger) Reply(text string, clarification bool) {
	if l.level < LogLevelNormal || text == "" {
		return
	}
	if clarification {
		fmt.Fprintf(l.writer, "%s  ? %s%s\n", l.colorYellow, text, l.colorReset)
		return
	}
	fmt.Fprintf(l.writer, "%s  %s%s\n", l.colorSalmon, text, l.colorReset)
}

// Highlight logs an overlay request and whether it was drawn
func (l *Logger) Highlight(selector, description string, shown bool) {
	switch l.level {
	case LogLevelQuiet:
		// Don't log highlights in quiet mode
	case LogLevelNormal:
		if shown {
			fmt.Fprintf(l.writer, "%s  ➜ %s%s\n", l.colorBoldGreen, description, l.colorReset)
		}
	case LogLevelVerbose, LogLevelDebug:
		state := "shown"
		if !shown {
			state = "not shown"
		}
		fmt.Fprintf(l.writer, "%s  ➜ %s (%s, %s)%s\n", l.colorCyan, description, selector, state, l.colorReset)
	}
}

// StepResult logs the end of a step with its expectation results
func (l *Logger) StepResult(result StepResult) {
	if l.level < LogLevelNormal {
		return
	}
	for _, check := range result.Expectations {
		if check.Passed {
			if l.level >= LogLevelVerbose {
				fmt.Fprintf(l.writer, "%s  ✓ expect %s%s\n", l.colorBoldGreen, check.Name, l.colorReset)
			}
			continue
		}
		fmt.Fprintf(l.writer, "%s  ✗ expect %s%s\n", l.colorBoldRed, check.Name, l.colorReset)
		fmt.Fprintf(l.writer, "%s    %s%s\n", l.colorGray, check.Error, l.colorReset)
	}
	switch result.Status {
	case stepPassed:
		fmt.Fprintf(l.writer, "%s  ✓ done in %s%s\n", l.colorGray, result.Duration.Round(time.Millisecond), l.colorReset)
	case stepSkipped:
		fmt.Fprintf(l.writer, "%s  skipped%s\n", l.colorGray, l.colorReset)
	default:
		if result.Error != "" {
			fmt.Fprintf(l.writer, "%s  ✗ %s%s\n", l.colorBoldRed, result.Error, l.colorReset)
		}
	}
}

// Summary prints a final execution summary
func (l *Logger) Summary(status string, summary *ExecutionSummary) {
	if l.level < LogLevelQuiet {
		return
	}

	l.printSummaryHeader()
	l.printStatus(status)
	l.printJobAndDuration(summary)
	l.printMetrics(summary)
	l.printFailedSteps(summary)
	l.printError(summary)
	l.printSummaryFooter()
}

func (l *Logger) printSummaryHeader() {
	fmt.Fprintln(l.writer)
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	fmt.Fprintf(l.writer, "%s  EXECUTION SUMMARY%s\n", l.colorBoldWhite, l.colorReset)
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
}

func (l *Logger) printStatus(status string) {
	fmt.Fprint(l.writer, "  Status: ")
	switch status {
	case statusSuccess:
		fmt.Fprintf(l.writer, "%s✓ SUCCESS%s\n", l.colorBoldGreen, l.colorReset)
	case statusPartialSuccess:
		fmt.Fprintf(l.writer, "%s⚠ PARTIAL SUCCESS%s\n", l.colorYellow, l.colorReset)
	case statusFailed:
		fmt.Fprintf(l.writer, "%s✗ FAILED%s\n", l.colorBoldRed, l.colorReset)
	default:
		fmt.Fprintln(l.writer, status)
	}
}

func (l *Logger) printJobAndDuration(summary *ExecutionSummary) {
	fmt.Fprintf(l.writer, "  Job: %s\n", summary.Job)
	if summary.URL != "" {
		fmt.Fprintf(l.writer, "  Page: %s\n", summary.URL)
	}
	fmt.Fprintf(l.writer, "  Duration: %s\n", summary.Duration.Round(time.Second))
}

func (l *Logger) printMetrics(summary *ExecutionSummary) {
	if summary.Metrics.StepsRun == 0 {
		return
	}

	fmt.Fprintf(l.writer, "\n  📊 Metrics:\n")
	fmt.Fprintf(l.writer, "    Steps passed: %d/%d\n", summary.Metrics.StepsPassed, summary.Metrics.StepsRun)
	fmt.Fprintf(l.writer, "    Model calls: %d\n", summary.Metrics.ModelCalls)

	if summary.Metrics.Highlights > 0 {
		fmt.Fprintf(l.writer, "    Highlights: %d\n", summary.Metrics.Highlights)
	}

	if summary.Metrics.TokensUsed > 0 {
		fmt.Fprintf(l.writer, "    Tokens used: %s\n", formatNumber(summary.Metrics.TokensUsed))
	}
}

func (l *Logger) printFailedSteps(summary *ExecutionSummary) {
	if summary.Metrics.StepsFailed == 0 {
		return
	}

	fmt.Fprintf(l.writer, "\n  ✗ Failed Steps:\n")
	for _, step := range summary.Steps {
		if step.Status != stepFailed {
			continue
		}
		fmt.Fprintf(l.writer, "%s    %d. %s%s\n", l.colorBoldRed, step.Index, step.Label, l.colorReset)
		if l.level >= LogLevelVerbose && step.Error != "" {
			fmt.Fprintf(l.writer, "%s      %s%s\n", l.colorGray, step.Error, l.colorReset)
		}
	}
}

func (l *Logger) printError(summary *ExecutionSummary) {
	if summary.Error == "" {
		return
	}

	fmt.Fprintln(l.writer)
	fmt.Fprintf(l.writer, "%s  Error Details:%s\n", l.colorBoldRed, l.colorReset)
	fmt.Fprintf(l.writer, "%s    %s%s\n", l.colorRed, summary.Error, l.colorReset)
}

func (l *Logger) printSummaryFooter() {
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	fmt.Fprintln(l.writer)
}

// Newline adds a blank line (respects log level)
func (l *Logger) Newline() {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
	}
}

// parseLogLevel converts a string log level to LogLevel type
func parseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

// formatNumber formats large numbers with commas for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
