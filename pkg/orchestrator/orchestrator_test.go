package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/beacon/pkg/bridge"
	"github.com/entrhq/beacon/pkg/dom"
	"github.com/entrhq/beacon/pkg/llm"
	"github.com/entrhq/beacon/pkg/types"
)

const shopPage = `<html><head><title>Shop</title></head><body>
<header><button id="signin">Sign In</button></header>
<main>
  <h1>Welcome</h1>
  <input type="search" id="q" aria-label="Search products">
  <p>Great prices on shoes every day.</p>
</main>
</body></html>`

type fakeTab struct{ url string }

func (t fakeTab) URL() string { return t.url }

type fakeProvider struct {
	mu      sync.Mutex
	reply   string
	usage   *types.TokenUsage
	err     error
	prompts []string
	block   chan struct{}
}

func (p *fakeProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	return nil, errors.New("streaming not supported")
}

func (p *fakeProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, messages[len(messages)-1].Content)
	block := p.block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	msg := types.NewAssistantMessage(p.reply)
	msg.Usage = p.usage
	return msg, nil
}

func (p *fakeProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Provider: "fake", Name: "fake-1"}
}

func (p *fakeProvider) GetModel() string { return "fake-1" }

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

type pageSource struct {
	html     string
	failures atomic.Int32
	reads    atomic.Int32
}

func (s *pageSource) Document(ctx context.Context) (*dom.Document, error) {
	s.reads.Add(1)
	if s.failures.Load() > 0 {
		s.failures.Add(-1)
		return nil, errors.New("content script not ready")
	}
	return dom.Parse(strings.NewReader(s.html), "https://shop.test/")
}

type fakeOverlay struct {
	mu      sync.Mutex
	shown   []string
	cleared int
	result  bool
}

func (o *fakeOverlay) Show(ctx context.Context, selector, description string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shown = append(o.shown, selector+"|"+description)
	return o.result, nil
}

func (o *fakeOverlay) Clear(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cleared++
	return nil
}

func (o *fakeOverlay) snapshot() ([]string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.shown...), o.cleared
}

type fakeSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	stopped int
}

func (s *fakeSpeaker) Speak(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return "browser", nil
}

func (s *fakeSpeaker) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

func (s *fakeSpeaker) said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type fakeUsage struct {
	mu       sync.Mutex
	commands map[types.InputType]int
	tokens   int
}

func (u *fakeUsage) RecordCommand(kind types.InputType) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.commands == nil {
		u.commands = make(map[types.InputType]int)
	}
	u.commands[kind]++
}

func (u *fakeUsage) RecordTokens(usage types.TokenUsage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tokens += usage.TotalTokens
}

type charCounter struct{}

func (charCounter) CountTokens(text string) int { return len(text) / 4 }

type eventLog struct {
	mu     sync.Mutex
	events []*types.Event
}

func (l *eventLog) add(e *types.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []types.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) find(t types.EventType) *types.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Type == t {
			return e
		}
	}
	return nil
}

type harness struct {
	orch     *Orchestrator
	provider *fakeProvider
	source   *pageSource
	overlay  *fakeOverlay
	speaker  *fakeSpeaker
	usage    *fakeUsage
	events   *eventLog
}

func newHarness(t *testing.T, reply string, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		provider: &fakeProvider{reply: reply},
		source:   &pageSource{html: shopPage},
		overlay:  &fakeOverlay{result: true},
		speaker:  &fakeSpeaker{},
		usage:    &fakeUsage{},
		events:   &eventLog{},
	}

	port := bridge.NewPort()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = port.Serve(ctx, bridge.NewPageHandler(h.source, nil, h.overlay))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, port.Serving, time.Second, time.Millisecond)

	base := []Option{
		WithTab(fakeTab{url: "https://shop.test/"}),
		WithSpeaker(h.speaker),
		WithUsageRecorder(h.usage),
		WithEventHandler(h.events.add),
		WithFeatures(Features{VoiceOutput: true, VisualArrows: true}),
		WithTokenBudget(DefaultTokenBudget, charCounter{}),
		WithRetryDelay(10 * time.Millisecond),
	}
	h.orch = New(h.provider, bridge.NewClient(port), append(base, opts...)...)
	return h
}

func TestRun_SignInScenario(t *testing.T) {
	h := newHarness(t, `Click the Sign In button at the top of the page. [HIGHLIGHT_ELEMENT]{"elementIndex":0,"description":"Sign in button"}[/HIGHLIGHT_ELEMENT]`)
	h.provider.usage = &types.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}

	out, err := h.orch.Run(context.Background(), types.NewGuideInput())
	require.NoError(t, err)
	h.orch.Wait()

	require.NotNil(t, out.Target)
	assert.Equal(t, "#signin", out.Target.Selector)
	assert.Equal(t, "Sign in button", out.Target.Description)
	assert.True(t, out.Highlighted)
	assert.False(t, out.Clarification)
	assert.Equal(t, "Click the Sign In button at the top of the page.", out.Message)
	assert.Empty(t, out.Recovered)

	shown, _ := h.overlay.snapshot()
	assert.Equal(t, []string{"#signin|Sign in button"}, shown)
	assert.Equal(t, []string{out.Message}, h.speaker.said())
	assert.Equal(t, 1, h.usage.commands[types.InputTypeGuide])
	assert.Equal(t, 120, h.usage.tokens)

	require.Len(t, h.provider.prompts, 1)
	assert.Contains(t, h.provider.prompts[0], "Sign In")

	seen := h.events.types()
	assert.Contains(t, seen, types.EventTypeSnapshotCaptured)
	assert.Contains(t, seen, types.EventTypeTokenUsage)
	assert.Contains(t, seen, types.EventTypeHighlight)
	assert.Contains(t, seen, types.EventTypeSpeechEnd)
	assert.Contains(t, seen, types.EventTypeUpdateBusy)
	assert.False(t, h.orch.Busy())
	assert.Same(t, out, h.orch.Last())
}

func TestRun_ClarifySkipsResolverAndClears(t *testing.T) {
	h := newHarness(t, `[CLARIFY]Did you mean the search bar or the filter menu?[/CLARIFY] [HIGHLIGHT_ELEMENT]{"elementIndex":0}[/HIGHLIGHT_ELEMENT]`)

	out, err := h.orch.Run(context.Background(), types.NewNavigateInput("filter"))
	require.NoError(t, err)
	h.orch.Wait()

	assert.True(t, out.Clarification)
	assert.Equal(t, "Did you mean the search bar or the filter menu?", out.Message)
	assert.Nil(t, out.Target)

	shown, cleared := h.overlay.snapshot()
	assert.Empty(t, shown)
	assert.Equal(t, 1, cleared)
	assert.Equal(t, []string{out.Message}, h.speaker.said())

	ev := h.events.find(types.EventTypeClarification)
	require.NotNil(t, ev)
	assert.Equal(t, out.Message, ev.Content)
}

func TestRun_MalformedHighlightFallsBackToText(t *testing.T) {
	h := newHarness(t, `Use the Search products box. [HIGHLIGHT_ELEMENT]{"elementIndex": "oops"`)

	out, err := h.orch.Run(context.Background(), types.NewNavigateInput("find shoes"))
	require.NoError(t, err)

	assert.Equal(t, "Use the Search products box.", out.Message)
	require.NotNil(t, out.Target)
	assert.Equal(t, "#q", out.Target.Selector)
	assert.NotContains(t, out.Message, "HIGHLIGHT")
	assert.Equal(t, KindParse, out.Recovered)
}

func TestRun_Summarize(t *testing.T) {
	h := newHarness(t, "This is a shoe shop. You can sign in or search for products.")

	out, err := h.orch.Run(context.Background(), types.NewSummarizeInput())
	require.NoError(t, err)
	h.orch.Wait()

	assert.Equal(t, "This is a shoe shop. You can sign in or search for products.", out.Message)
	assert.Nil(t, out.Target)
	shown, cleared := h.overlay.snapshot()
	assert.Empty(t, shown)
	assert.Zero(t, cleared)
	assert.Len(t, h.speaker.said(), 1)
}

func TestRun_OverlayFailureRepromptsUser(t *testing.T) {
	h := newHarness(t, `Click Sign In. [HIGHLIGHT_ELEMENT]{"elementIndex":0,"description":"Sign in"}[/HIGHLIGHT_ELEMENT]`)
	h.overlay.result = false

	out, err := h.orch.Run(context.Background(), types.NewGuideInput())
	require.NoError(t, err)

	assert.True(t, out.Clarification)
	assert.False(t, out.Highlighted)
	assert.Equal(t, MessageNoTarget, out.Message)
	assert.Equal(t, KindResolution, out.Recovered)
	ev := h.events.find(types.EventTypeHighlight)
	require.NotNil(t, ev)
	assert.False(t, ev.Highlight.Shown)

	ev = h.events.find(types.EventTypeClarification)
	require.NotNil(t, ev)
	assert.Equal(t, string(KindResolution), ev.Metadata["recovered"])
}

func TestRun_ArrowsDisabled(t *testing.T) {
	h := newHarness(t, `Click Sign In. [HIGHLIGHT_ELEMENT]{"elementIndex":0}[/HIGHLIGHT_ELEMENT]`)
	h.orch.SetFeatures(Features{})

	out, err := h.orch.Run(context.Background(), types.NewGuideInput())
	require.NoError(t, err)
	h.orch.Wait()

	require.NotNil(t, out.Target)
	assert.False(t, out.Highlighted)
	shown, _ := h.overlay.snapshot()
	assert.Empty(t, shown)
	assert.Empty(t, h.speaker.said())
}

func TestRun_Busy(t *testing.T) {
	h := newHarness(t, "Summary.")
	h.provider.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Run(context.Background(), types.NewSummarizeInput())
		done <- err
	}()
	require.Eventually(t, func() bool { return h.provider.calls() == 1 }, time.Second, time.Millisecond)
	assert.True(t, h.orch.Busy())

	_, err := h.orch.Run(context.Background(), types.NewGuideInput())
	assert.ErrorIs(t, err, ErrBusy)

	close(h.provider.block)
	require.NoError(t, <-done)
	assert.False(t, h.orch.Busy())
	assert.Equal(t, 1, h.provider.calls())
}

func TestRun_RetriesPageContentOnce(t *testing.T) {
	h := newHarness(t, "Summary.")
	h.source.failures.Store(1)

	_, err := h.orch.Run(context.Background(), types.NewSummarizeInput())
	require.NoError(t, err)
	assert.Equal(t, int32(2), h.source.reads.Load())
}

func TestRun_TransientAfterSecondFailure(t *testing.T) {
	h := newHarness(t, "Summary.")
	h.source.failures.Store(5)

	_, err := h.orch.Run(context.Background(), types.NewSummarizeInput())
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Equal(t, MessageTransient, UserMessage(err))
	assert.Equal(t, int32(2), h.source.reads.Load())
	assert.Zero(t, h.provider.calls())
}

func TestRun_EnvironmentErrors(t *testing.T) {
	tests := []struct {
		name string
		tab  Tab
		want error
	}{
		{"no tab", nil, ErrNoTab},
		{"blank url", fakeTab{}, ErrNoTab},
		{"settings page", fakeTab{url: "chrome://settings"}, ErrRestricted},
		{"web store", fakeTab{url: "https://chromewebstore.google.com/detail/x"}, ErrRestricted},
		{"about page", fakeTab{url: "about:blank"}, ErrRestricted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "Summary.", WithTab(tt.tab))
			_, err := h.orch.Run(context.Background(), types.NewSummarizeInput())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindEnvironment, KindOf(err))
			assert.Zero(t, h.source.reads.Load())
			assert.Zero(t, h.provider.calls())

			ev := h.events.find(types.EventTypeError)
			require.NotNil(t, ev)
			assert.Equal(t, UserMessage(err), ev.Content)
		})
	}
}

func TestRun_ModelError(t *testing.T) {
	h := newHarness(t, "")
	h.provider.err = errors.New("503 service unavailable")

	_, err := h.orch.Run(context.Background(), types.NewGuideInput())
	require.Error(t, err)
	assert.Equal(t, KindModel, KindOf(err))
	h.orch.Wait()
	assert.Equal(t, []string{MessageModel}, h.speaker.said())
	assert.False(t, h.orch.Busy())
}

func TestRun_EmptyReplyIsModelError(t *testing.T) {
	h := newHarness(t, "   ")

	_, err := h.orch.Run(context.Background(), types.NewSummarizeInput())
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	assert.Equal(t, KindModel, KindOf(err))
}

func TestRun_NavigateNeedsQuery(t *testing.T) {
	h := newHarness(t, "unused")

	_, err := h.orch.Run(context.Background(), types.NewNavigateInput("  "))
	require.Error(t, err)
	assert.Equal(t, MessageEmptyQuery, UserMessage(err))
	assert.Zero(t, h.provider.calls())
}

func TestRun_ClearStopsSpeechAndOverlay(t *testing.T) {
	h := newHarness(t, "unused")

	out, err := h.orch.Run(context.Background(), types.NewClearInput())
	require.NoError(t, err)
	assert.Equal(t, types.InputTypeClear, out.Kind)

	_, cleared := h.overlay.snapshot()
	assert.Equal(t, 1, cleared)
	assert.Equal(t, 1, h.speaker.stopped)
	assert.NotNil(t, h.events.find(types.EventTypeHighlightCleared))
}

func TestOnNavigated(t *testing.T) {
	h := newHarness(t, "A shoe shop.")

	require.NoError(t, h.orch.OnNavigated(context.Background(), "https://shop.test/"))
	assert.Zero(t, h.provider.calls())

	f := h.orch.Features()
	f.AutoSummarize = true
	h.orch.SetFeatures(f)

	require.NoError(t, h.orch.OnNavigated(context.Background(), "chrome://newtab"))
	assert.Zero(t, h.provider.calls())

	require.NoError(t, h.orch.OnNavigated(context.Background(), "https://shop.test/"))
	assert.Equal(t, 1, h.provider.calls())
	assert.Contains(t, h.provider.prompts[0], "Describe this page")
}

func TestSubmit(t *testing.T) {
	h := newHarness(t, `Type in the search box. [HIGHLIGHT_ELEMENT]{"elementIndex":1}[/HIGHLIGHT_ELEMENT]`)

	h.orch.Submit(context.Background(), "search for shoes")
	require.Equal(t, 1, h.provider.calls())
	assert.Contains(t, h.provider.prompts[0], "search for shoes")

	shown, _ := h.overlay.snapshot()
	require.Len(t, shown, 1)
	assert.True(t, strings.HasPrefix(shown[0], "#q|"))
}

func TestRestrictedMatcher(t *testing.T) {
	m, err := NewRestrictedMatcher(append(DefaultRestrictedPatterns, FilePattern))
	require.NoError(t, err)

	assert.True(t, m.Match("CHROME://extensions"))
	assert.True(t, m.Match("file:///home/user/doc.html"))
	assert.True(t, m.Match("view-source:https://example.com"))
	assert.False(t, m.Match("https://example.com/chrome://"))
	assert.False(t, m.Match("https://shop.test/"))

	var nilMatcher *RestrictedMatcher
	assert.False(t, nilMatcher.Match("chrome://settings"))

	_, err = NewRestrictedMatcher([]string{"[unterminated"})
	assert.Error(t, err)
}

func TestErrorHelpers(t *testing.T) {
	err := newError(KindModel, MessageModel, errors.New("boom"))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, KindModel, KindOf(fmtWrap(err)))
	assert.Equal(t, MessageBusy, UserMessage(ErrBusy))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, "resolution error: nothing", (&Error{Kind: KindResolution, UserMessage: "nothing"}).Error())
}

func fmtWrap(err error) error {
	return errors.Join(errors.New("context"), err)
}
