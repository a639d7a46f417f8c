// Package orchestrator runs beacon commands end to end: it reads the page
// over the bridge, prompts the model, interprets the reply, resolves the
// recommended element and drives the overlay and narration.
//
// Only one command runs at a time. A command that arrives while another is in
// progress is rejected with ErrBusy rather than queued; a clarification
// question counts as part of the command that asked it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/beacon/pkg/bridge"
	"github.com/entrhq/beacon/pkg/interpret"
	"github.com/entrhq/beacon/pkg/llm"
	"github.com/entrhq/beacon/pkg/llm/tokenizer"
	"github.com/entrhq/beacon/pkg/logging"
	"github.com/entrhq/beacon/pkg/prompt"
	"github.com/entrhq/beacon/pkg/resolve"
	"github.com/entrhq/beacon/pkg/snapshot"
	"github.com/entrhq/beacon/pkg/speech"
	"github.com/entrhq/beacon/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("orchestrator")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize orchestrator logger, using stderr fallback: %v", err)
	}
}

const (
	// DefaultRetryDelay is the pause before the single page-content retry.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultTokenBudget bounds prompt size.
	DefaultTokenBudget = 6000

	// MessageEmptyQuery asks for a request when navigate has none.
	MessageEmptyQuery = "Tell me what you're looking for, for example \"find the search box\"."
)

// Tab is the page commands run against.
type Tab interface {
	URL() string
}

// Speaker narrates text. speech.Narrator implements it.
type Speaker interface {
	Speak(ctx context.Context, text string) (string, error)
	Stop(ctx context.Context)
}

// UsageRecorder accumulates usage counters.
type UsageRecorder interface {
	RecordCommand(kind types.InputType)
	RecordTokens(usage types.TokenUsage)
}

// Features are the capability toggles consulted while a command runs.
type Features struct {
	VoiceOutput   bool
	VisualArrows  bool
	AutoSummarize bool
}

// DefaultFeatures enables arrows only.
func DefaultFeatures() Features {
	return Features{VisualArrows: true}
}

// Outcome is the result of a finished command.
type Outcome struct {
	CommandID string
	Kind      types.InputType

	// Message is what was displayed and spoken. For clarifications it is the
	// question.
	Message       string
	Clarification bool

	// Target is set for guide and navigate commands that resolved an element.
	Target      *resolve.Target
	Highlighted bool

	// Recovered names the failure the command worked around: KindParse when
	// the target came from text matching, KindResolution when no element
	// matched and the user was asked to rephrase. Empty otherwise.
	Recovered Kind

	Snapshot *snapshot.Snapshot
	Usage    *types.TokenUsage
	Duration time.Duration
}

// Orchestrator sequences commands. It is safe for concurrent use.
type Orchestrator struct {
	provider llm.Provider
	client   *bridge.Client

	tab        Tab
	speaker    Speaker
	usage      UsageRecorder
	onEvent    func(*types.Event)
	restricted *RestrictedMatcher
	counter    prompt.Counter
	budget     int
	retryDelay time.Duration

	busy atomic.Bool

	mu       sync.Mutex
	features Features
	last     *Outcome

	narration sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTab sets the page commands run against. Without one every command
// fails with ErrNoTab.
func WithTab(tab Tab) Option {
	return func(o *Orchestrator) {
		o.tab = tab
	}
}

// WithSpeaker sets the narration output.
func WithSpeaker(s Speaker) Option {
	return func(o *Orchestrator) {
		o.speaker = s
	}
}

// WithUsageRecorder sets where usage counters go.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(o *Orchestrator) {
		o.usage = r
	}
}

// WithEventHandler sets the receiver of command events. It is called
// synchronously and must not block.
func WithEventHandler(fn func(*types.Event)) Option {
	return func(o *Orchestrator) {
		o.onEvent = fn
	}
}

// WithFeatures sets the initial feature toggles.
func WithFeatures(f Features) Option {
	return func(o *Orchestrator) {
		o.features = f
	}
}

// WithRestrictedMatcher replaces the default restricted page list.
func WithRestrictedMatcher(m *RestrictedMatcher) Option {
	return func(o *Orchestrator) {
		o.restricted = m
	}
}

// WithTokenBudget bounds prompt size. A budget of zero disables the check.
func WithTokenBudget(budget int, counter prompt.Counter) Option {
	return func(o *Orchestrator) {
		o.budget = budget
		o.counter = counter
	}
}

// WithRetryDelay sets the pause before retrying page content.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.retryDelay = d
	}
}

// New creates an orchestrator that reads the page through client and asks
// provider for answers.
func New(provider llm.Provider, client *bridge.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:   provider,
		client:     client,
		features:   DefaultFeatures(),
		budget:     DefaultTokenBudget,
		retryDelay: DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.restricted == nil {
		m, err := NewRestrictedMatcher(DefaultRestrictedPatterns)
		if err != nil {
			panic(err)
		}
		o.restricted = m
	}
	if o.counter == nil {
		// Fall back to estimation if the BPE table cannot be loaded
		tok, err := tokenizer.New()
		if err != nil {
			debugLog.Warnf("tokenizer unavailable, estimating prompt size: %v", err)
			tok = nil
		}
		o.counter = tok
	}
	return o
}

// Busy reports whether a command is running.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Features returns the current toggles.
func (o *Orchestrator) Features() Features {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.features
}

// SetFeatures replaces the toggles. Commands in flight see the change at
// their next point of use.
func (o *Orchestrator) SetFeatures(f Features) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.features = f
}

// Last returns the outcome of the most recent successful command.
func (o *Orchestrator) Last() *Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Wait blocks until narration started by earlier commands has finished.
func (o *Orchestrator) Wait() {
	o.narration.Wait()
}

// Run executes one command. Clear commands run even while another command is
// busy; everything else is rejected with ErrBusy in that case.
func (o *Orchestrator) Run(ctx context.Context, in *types.Input) (*Outcome, error) {
	if in == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}
	if in.IsClear() {
		return o.clear(ctx)
	}
	if !in.NeedsModel() {
		return nil, fmt.Errorf("unsupported command %q", in.Type)
	}

	if !o.busy.CompareAndSwap(false, true) {
		o.emit(types.NewErrorEvent("", MessageBusy, ErrBusy))
		return nil, ErrBusy
	}
	o.emit(types.NewUpdateBusyEvent(true))
	defer func() {
		o.busy.Store(false)
		o.emit(types.NewUpdateBusyEvent(false))
	}()

	id := uuid.NewString()
	start := time.Now()
	o.emit(types.NewCommandStartEvent(id, in.Type))
	debugLog.Infof("[%s] %s command from %q", id, in.Type, in.Source)

	out, err := o.execute(ctx, id, in)
	duration := time.Since(start)
	o.emit(types.NewCommandEndEvent(id, duration))

	if err != nil {
		debugLog.Warnf("[%s] %s failed after %v: %v", id, in.Type, duration, err)
		o.report(id, err)
		return nil, err
	}

	out.Duration = duration
	o.mu.Lock()
	o.last = out
	o.mu.Unlock()
	debugLog.Infof("[%s] %s done in %v", id, in.Type, duration)
	return out, nil
}

// Submit runs a navigate command for a voice transcript.
func (o *Orchestrator) Submit(ctx context.Context, transcript string) {
	if _, err := o.Run(ctx, types.NewNavigateInput(transcript).WithSource("voice")); err != nil {
		debugLog.Debugf("voice command: %v", err)
	}
}

// OnNavigated summarizes a newly loaded page when auto-summarize is on and
// nothing else is running.
func (o *Orchestrator) OnNavigated(ctx context.Context, url string) error {
	if !o.Features().AutoSummarize || o.Busy() || o.restricted.Match(url) {
		return nil
	}
	_, err := o.Run(ctx, types.NewSummarizeInput().WithSource("auto"))
	if errors.Is(err, ErrBusy) {
		return nil
	}
	return err
}

func taskKind(t types.InputType) prompt.TaskKind {
	switch t {
	case types.InputTypeGuide:
		return prompt.Guide
	case types.InputTypeNavigate:
		return prompt.Navigate
	}
	return prompt.Summarize
}

func (o *Orchestrator) execute(ctx context.Context, id string, in *types.Input) (*Outcome, error) {
	kind := taskKind(in.Type)
	query := strings.TrimSpace(in.Content)
	if kind == prompt.Navigate && query == "" {
		return nil, newError(KindEnvironment, MessageEmptyQuery, prompt.ErrEmptyQuery)
	}

	if err := o.checkTab(); err != nil {
		return nil, err
	}
	if o.usage != nil {
		o.usage.RecordCommand(in.Type)
	}

	snap, err := o.pageContent(ctx, id)
	if err != nil {
		return nil, err
	}
	o.emit(types.NewSnapshotCapturedEvent(id, snap.URL, len(snap.InteractiveElements)))

	text, err := prompt.NewBuilder(snap).
		WithQuery(query).
		WithTokenBudget(o.budget, o.counter).
		Build(kind)
	if err != nil {
		return nil, newError(KindModel, MessageModel, fmt.Errorf("failed to build prompt: %w", err))
	}

	reply, err := o.complete(ctx, id, text)
	if err != nil {
		return nil, err
	}

	out := &Outcome{CommandID: id, Kind: in.Type, Snapshot: snap, Usage: reply.Usage}
	res := interpret.Interpret(reply.Content, kind)

	if res.NeedsClarification() {
		o.clarify(ctx, out, res.Clarification)
		return out, nil
	}

	if !kind.WantsHighlight() {
		out.Message = res.Message
		o.emit(types.NewMessageEvent(id, out.Message))
		o.say(id, out.Message)
		return out, nil
	}

	if res.Instruction == nil {
		debugLog.Debugf("[%s] reply had no usable highlight block, matching on text", id)
		out.Recovered = KindParse
	}
	target := resolve.Resolve(res.Instruction, snap, res.Message)
	if target == nil {
		debugLog.Infof("[%s] no element matched the reply", id)
		out.Recovered = KindResolution
		o.clarify(ctx, out, MessageNoTarget)
		return out, nil
	}
	out.Target = target
	debugLog.Debugf("[%s] resolved %q via %s", id, target.Selector, target.Source)

	if o.Features().VisualArrows {
		shown, err := o.client.HighlightElement(ctx, target.Selector, target.Description)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			debugLog.Warnf("[%s] highlight request failed: %v", id, err)
		}
		o.emit(types.NewHighlightEvent(id, target.Selector, target.Description, shown))
		if !shown {
			out.Recovered = KindResolution
			o.clarify(ctx, out, MessageNoTarget)
			return out, nil
		}
		out.Highlighted = true
	}

	out.Message = res.Message
	o.emit(types.NewMessageEvent(id, out.Message))
	o.say(id, out.Message)
	return out, nil
}

func (o *Orchestrator) checkTab() error {
	if o.tab == nil {
		return newError(KindEnvironment, MessageNoTab, ErrNoTab)
	}
	url := o.tab.URL()
	if strings.TrimSpace(url) == "" {
		return newError(KindEnvironment, MessageNoTab, ErrNoTab)
	}
	if o.restricted.Match(url) {
		return newError(KindEnvironment, MessageRestricted, fmt.Errorf("%w: %s", ErrRestricted, url))
	}
	return nil
}

// pageContent fetches a snapshot, retrying once after retryDelay.
func (o *Orchestrator) pageContent(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	snap, err := o.client.GetPageContent(ctx)
	if err == nil {
		return snap, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	debugLog.Warnf("[%s] page content unavailable, retrying in %v: %v", id, o.retryDelay, err)

	timer := time.NewTimer(o.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	snap, err = o.client.GetPageContent(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(KindTransient, MessageTransient, fmt.Errorf("failed to read page: %w", err))
	}
	return snap, nil
}

func (o *Orchestrator) complete(ctx context.Context, id, text string) (*types.Message, error) {
	promptTokens := o.counter.CountTokens(text)
	o.emit(types.NewAPICallStartEvent(id, o.provider.GetModel(), promptTokens))
	start := time.Now()
	reply, err := o.provider.Complete(ctx, []*types.Message{types.NewUserMessage(text)})
	o.emit(types.NewAPICallEndEvent(id, time.Since(start)))

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(KindModel, MessageModel, fmt.Errorf("model call failed: %w", err))
	}
	if reply == nil || strings.TrimSpace(reply.Content) == "" {
		return nil, newError(KindModel, MessageModel, llm.ErrEmptyResponse)
	}

	if u := reply.Usage; u != nil {
		o.emit(types.NewTokenUsageEvent(id, u.PromptTokens, u.CompletionTokens, u.TotalTokens))
		if o.usage != nil {
			o.usage.RecordTokens(*u)
		}
	}
	return reply, nil
}

// clarify shows question instead of an answer. Any overlay from an earlier
// command is removed so it cannot be mistaken for the answer.
func (o *Orchestrator) clarify(ctx context.Context, out *Outcome, question string) {
	out.Clarification = true
	out.Message = question
	ev := types.NewClarificationEvent(out.CommandID, question)
	if out.Recovered != "" {
		ev.WithMetadata("recovered", string(out.Recovered))
	}
	o.emit(ev)

	if err := o.client.ClearHighlights(ctx); err != nil {
		debugLog.Warnf("[%s] clear highlights: %v", out.CommandID, err)
	} else {
		o.emit(types.NewHighlightClearedEvent(out.CommandID))
	}
	o.say(out.CommandID, question)
}

func (o *Orchestrator) clear(ctx context.Context) (*Outcome, error) {
	id := uuid.NewString()
	if o.speaker != nil {
		o.speaker.Stop(ctx)
	}
	if err := o.client.ClearHighlights(ctx); err != nil {
		return nil, newError(KindTransient, MessageTransient, fmt.Errorf("failed to clear highlights: %w", err))
	}
	o.emit(types.NewHighlightClearedEvent(id))
	return &Outcome{CommandID: id, Kind: types.InputTypeClear}, nil
}

// report surfaces a failure to the user.
func (o *Orchestrator) report(id string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		o.emit(types.NewErrorEvent(id, "Cancelled.", err))
		return
	}
	msg := UserMessage(err)
	o.emit(types.NewErrorEvent(id, msg, err))
	o.say(id, msg)
}

// say narrates text in the background when voice output is on. Newer
// narration supersedes older narration inside the speaker.
func (o *Orchestrator) say(id, text string) {
	if o.speaker == nil || !o.Features().VoiceOutput || strings.TrimSpace(text) == "" {
		return
	}
	o.narration.Add(1)
	go func() {
		defer o.narration.Done()
		o.emit(types.NewSpeechStartEvent(id, text, ""))
		engine, err := o.speaker.Speak(context.Background(), text)
		if errors.Is(err, speech.ErrSuperseded) {
			err = nil
		}
		if err != nil {
			debugLog.Warnf("[%s] speech failed: %v", id, err)
		}
		o.emit(types.NewSpeechEndEvent(id, err).WithMetadata("engine", engine))
	}()
}

func (o *Orchestrator) emit(event *types.Event) {
	if o.onEvent != nil {
		o.onEvent(event)
	}
}
