package headless

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/entrhq/beacon/pkg/config"
	"github.com/entrhq/beacon/pkg/logging"
	"github.com/entrhq/beacon/pkg/orchestrator"
	"github.com/entrhq/beacon/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("headless")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize headless logger, using stderr fallback: %v", err)
	}
}

const (
	statusSuccess        = "success"
	statusFailed         = "failed"
	statusPartialSuccess = "partial_success"

	stepPassed  = "passed"
	stepFailed  = "failed"
	stepSkipped = "skipped"
)

// Runner executes pipeline commands.
type Runner interface {
	Run(ctx context.Context, in *types.Input) (*orchestrator.Outcome, error)
}

// Controls acts on the browser session and feature toggles.
type Controls interface {
	URL() string
	Open(ctx context.Context, url string) error
	Toggle(name string) (bool, error)
	Flags() config.FeatureFlags
}

// Executor runs a job's steps and reports on them
type Executor struct {
	config         *Config
	constraintMgr  *ConstraintManager
	artifactWriter *ArtifactWriter
	logger         *Logger
	expectations   [][]Expectation

	mu        sync.Mutex
	summary   *ExecutionSummary
	cancel    context.CancelFunc
	violation error
}

// NewExecutor validates config and prepares an executor for it
func NewExecutor(config *Config) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	constraintMgr, err := NewConstraintManager(config.Constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to create constraint manager: %w", err)
	}

	expectations := make([][]Expectation, len(config.Steps))
	for i, step := range config.Steps {
		checks, err := CreateExpectations(step.Expect)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		expectations[i] = checks
	}

	return &Executor{
		config:         config,
		constraintMgr:  constraintMgr,
		artifactWriter: NewArtifactWriter(config.Artifacts.OutputDir, config.Artifacts.Snapshots),
		logger:         NewLogger(parseLogLevel(config.Logging.Verbosity)),
		expectations:   expectations,
		summary: &ExecutionSummary{
			Job:    config.Name,
			URL:    config.URL,
			Status: "running",
		},
	}, nil
}

// Logger returns the progress logger
func (e *Executor) Logger() *Logger {
	return e.logger
}

// Summary returns the execution summary. It is complete once Run returns.
func (e *Executor) Summary() *ExecutionSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

// Handle consumes pipeline events. It is safe for concurrent use and may be
// called before Run.
func (e *Executor) Handle(event *types.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics := &e.summary.Metrics
	switch event.Type {
	case types.EventTypeSnapshotCaptured:
		elements, _ := event.Metadata["elements"].(int)
		e.logger.Verbosef("Read %s (%d elements)", event.Content, elements)

	case types.EventTypeAPICallStart:
		metrics.ModelCalls++
		e.logger.Debugf("[%s] model call", event.CommandID)

	case types.EventTypeTokenUsage:
		if event.TokenUsage == nil {
			return
		}
		metrics.PromptTokens += event.TokenUsage.PromptTokens
		metrics.CompletionTokens += event.TokenUsage.CompletionTokens
		metrics.TokensUsed += event.TokenUsage.TotalTokens
		if err := e.constraintMgr.RecordTokenUsage(event.TokenUsage.TotalTokens); err != nil && e.violation == nil {
			e.logger.Warningf("%v", err)
			e.violation = err
			if e.cancel != nil {
				e.cancel()
			}
		}

	case types.EventTypeHighlight:
		if h := event.Highlight; h != nil {
			if h.Shown {
				metrics.Highlights++
			}
			e.logger.Highlight(h.Selector, h.Description, h.Shown)
		}

	case types.EventTypeClarification:
		metrics.Clarifications++

	case types.EventTypeSpeechStart:
		metrics.Narrations++

	case types.EventTypeSpeechEnd:
		if event.Error != nil {
			e.logger.Verbosef("Narration failed: %v", event.Error)
		}

	case types.EventTypeError:
		e.summary.Errors = append(e.summary.Errors, event.Content)
		if event.Error != nil {
			e.logger.Debugf("[%s] %v", event.CommandID, event.Error)
		}
	}
}

// Run executes the job against the given pipeline and session
func (e *Executor) Run(ctx context.Context, runner Runner, controls Controls) error {
	e.mu.Lock()
	e.summary.StartTime = time.Now()
	e.mu.Unlock()

	e.logger.Header("Beacon headless: " + e.config.Name)
	debugLog.Infof("Starting job %s with %d steps", e.config.Name, len(e.config.Steps))

	var execCtx context.Context
	var cancel context.CancelFunc
	if e.config.Constraints.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, e.config.Constraints.Timeout)
	} else {
		execCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	if err := e.applyFeatures(controls); err != nil {
		return e.fail(err)
	}

	if e.config.URL != "" {
		if err := e.open(execCtx, controls, e.config.URL); err != nil {
			return e.fail(fmt.Errorf("failed to open %s: %w", e.config.URL, err))
		}
		e.logger.Successf("Loaded %s", e.config.URL)
	}

	total := len(e.config.Steps)
	for i, step := range e.config.Steps {
		if err := e.stopReason(execCtx); err != nil {
			e.skipFrom(i)
			e.setError(err)
			break
		}

		e.logger.StepStart(i+1, total, step.Label())
		result := e.runStep(execCtx, i, step, runner, controls)
		e.logger.StepResult(result)

		e.mu.Lock()
		e.summary.Steps = append(e.summary.Steps, result)
		e.mu.Unlock()

		if result.Status == stepFailed && e.config.FailFast {
			e.skipFrom(i + 1)
			break
		}
	}

	// A violation during the last step is only noticed here
	if err := e.stopReason(execCtx); err != nil {
		e.setError(err)
	}

	e.mu.Lock()
	if url := controls.URL(); url != "" {
		e.summary.URL = url
	}
	e.mu.Unlock()

	return e.finalize()
}

// runStep executes one step and checks its expectations
func (e *Executor) runStep(ctx context.Context, index int, step StepConfig, runner Runner, controls Controls) StepResult {
	result := StepResult{
		Index:   index + 1,
		Command: step.Command,
		Label:   step.Label(),
	}

	stepCtx := ctx
	if e.config.Constraints.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, e.config.Constraints.StepTimeout)
		defer cancel()
	}

	start := time.Now()
	var out *orchestrator.Outcome
	var err error
	switch step.Command {
	case StepOpen:
		err = e.open(stepCtx, controls, step.URL)
	case StepToggle:
		var on bool
		on, err = controls.Toggle(step.Feature)
		if err == nil {
			e.logger.Infof("%s is now %s", step.Feature, onOff(on))
		}
	case StepWait:
		err = sleep(stepCtx, step.Duration)
	default:
		out, err = runner.Run(stepCtx, stepInput(step))
	}
	result.Duration = time.Since(start)

	if err != nil {
		result.Status = stepFailed
		result.Error = err.Error()
		if step.Command != StepOpen && step.Command != StepToggle && step.Command != StepWait {
			result.Reply = orchestrator.UserMessage(err)
		}
		debugLog.Warnf("Step %d (%s) failed: %v", result.Index, result.Label, err)
		return result
	}

	if out != nil {
		result.CommandID = out.CommandID
		result.Reply = out.Message
		result.Clarification = out.Clarification
		result.Highlighted = out.Highlighted
		result.Snapshot = out.Snapshot
		if out.Target != nil {
			result.Selector = out.Target.Selector
			result.Description = out.Target.Description
		}
		e.logger.Reply(out.Message, out.Clarification)
	}

	checks, allPassed := RunExpectations(e.expectations[index], out)
	result.Expectations = checks
	if !allPassed {
		result.Status = stepFailed
		result.Error = "expectations not met"
		return result
	}

	result.Status = stepPassed
	return result
}

// stepInput maps a pipeline step onto its command input
func stepInput(step StepConfig) *types.Input {
	var in *types.Input
	switch step.Command {
	case StepSummarize:
		in = types.NewSummarizeInput()
	case StepGuide:
		in = types.NewGuideInput()
	case StepNavigate:
		in = types.NewNavigateInput(step.Query)
	default:
		in = types.NewClearInput()
	}
	return in.WithSource("headless")
}

// open loads url after checking it against the url patterns
func (e *Executor) open(ctx context.Context, controls Controls, url string) error {
	if err := e.constraintMgr.ValidateURL(url); err != nil {
		return err
	}
	return controls.Open(ctx, url)
}

// applyFeatures brings the session's toggles in line with the job
func (e *Executor) applyFeatures(controls Controls) error {
	names := make([]string, 0, len(e.config.Features))
	for name := range e.config.Features {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		want := e.config.Features[name]
		if flagValue(controls.Flags(), name) == want {
			continue
		}
		if _, err := controls.Toggle(name); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
		e.logger.Verbosef("Set %s %s", name, onOff(want))
	}
	return nil
}

// stopReason reports why the job cannot continue, or nil
func (e *Executor) stopReason(ctx context.Context) error {
	e.mu.Lock()
	violation := e.violation
	e.mu.Unlock()
	if violation != nil {
		return violation
	}

	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &ConstraintViolation{
			Type:    ViolationTimeout,
			Message: fmt.Sprintf("execution timeout exceeded (%s)", e.config.Constraints.Timeout),
		}
	default:
		return fmt.Errorf("execution canceled: %w", err)
	}
}

// skipFrom records every step from index on as skipped
func (e *Executor) skipFrom(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := index; i < len(e.config.Steps); i++ {
		step := e.config.Steps[i]
		e.summary.Steps = append(e.summary.Steps, StepResult{
			Index:   i + 1,
			Command: step.Command,
			Label:   step.Label(),
			Status:  stepSkipped,
		})
	}
}

func (e *Executor) setError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.summary.Error == "" {
		e.summary.Error = err.Error()
	}
}

// finalize computes the status and generates artifacts
func (e *Executor) finalize() error {
	e.mu.Lock()
	s := e.summary
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	s.Metrics.StepsRun, s.Metrics.StepsPassed, s.Metrics.StepsFailed = 0, 0, 0
	for _, step := range s.Steps {
		switch step.Status {
		case stepPassed:
			s.Metrics.StepsRun++
			s.Metrics.StepsPassed++
		case stepFailed:
			s.Metrics.StepsRun++
			s.Metrics.StepsFailed++
		}
	}

	switch {
	case s.Metrics.StepsPassed == 0:
		s.Status = statusFailed
	case s.Metrics.StepsFailed > 0 || s.Error != "":
		s.Status = statusPartialSuccess
	default:
		s.Status = statusSuccess
	}
	if s.Status == statusFailed && s.Error == "" {
		s.Error = "no step succeeded"
	}
	e.mu.Unlock()

	e.writeArtifacts()
	e.logger.Summary(s.Status, s)
	debugLog.Infof("Job %s completed: %s (duration: %s)", e.config.Name, s.Status, s.Duration)

	if s.Status == statusFailed {
		return fmt.Errorf("execution failed: %s", s.Error)
	}
	if s.Status == statusPartialSuccess {
		return ErrPartialSuccess
	}
	return nil
}

// ErrPartialSuccess is returned by Run when some steps passed and some did
// not.
var ErrPartialSuccess = errors.New("some steps failed")

// fail marks the execution as failed and returns an error
func (e *Executor) fail(err error) error {
	e.mu.Lock()
	e.summary.Status = statusFailed
	e.summary.Error = err.Error()
	e.summary.EndTime = time.Now()
	e.summary.Duration = e.summary.EndTime.Sub(e.summary.StartTime)
	e.mu.Unlock()

	e.logger.Errorf("%v", err)
	// Try to generate artifacts even on failure
	e.writeArtifacts()
	e.logger.Summary(statusFailed, e.summary)
	return err
}

func (e *Executor) writeArtifacts() {
	if !e.config.Artifacts.Enabled {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.artifactWriter.WriteAll(e.summary); err != nil {
		e.logger.Warningf("failed to write artifacts: %v", err)
		return
	}
	e.logger.Verbosef("Artifacts written to %s", e.config.Artifacts.OutputDir)
}

// flagValue reads one toggle from f by name
func flagValue(f config.FeatureFlags, name string) bool {
	switch name {
	case config.FeatureVoiceInput:
		return f.VoiceInput
	case config.FeatureVoiceOutput:
		return f.VoiceOutput
	case config.FeatureCustomTTS:
		return f.CustomTTS
	case config.FeatureVisualArrows:
		return f.VisualArrows
	case config.FeatureAutoSummarize:
		return f.AutoSummarize
	}
	return false
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
