package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/beacon/pkg/config"
	"github.com/entrhq/beacon/pkg/orchestrator"
	"github.com/entrhq/beacon/pkg/snapshot"
	"github.com/entrhq/beacon/pkg/types"
)

type fakeRunner struct {
	mu     sync.Mutex
	inputs []*types.Input
	last   *orchestrator.Outcome
	err    error
	busy   bool
}

func (f *fakeRunner) Run(_ context.Context, in *types.Input) (*orchestrator.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &orchestrator.Outcome{CommandID: "c1", Kind: in.Type}, nil
}

func (f *fakeRunner) Busy() bool                  { return f.busy }
func (f *fakeRunner) Last() *orchestrator.Outcome { return f.last }

type fakeControls struct {
	url      string
	opened   []string
	openErr  error
	features *config.FeaturesSection
	usage    *config.UsageSection
}

func newFakeControls() *fakeControls {
	return &fakeControls{
		url:      "https://shop.test/",
		features: config.NewFeaturesSection(),
		usage:    config.NewUsageSection(),
	}
}

func (f *fakeControls) URL() string { return f.url }

func (f *fakeControls) Open(_ context.Context, url string) error {
	f.opened = append(f.opened, url)
	return f.openErr
}

func (f *fakeControls) Toggle(name string) (bool, error) { return f.features.Toggle(name) }
func (f *fakeControls) Flags() config.FeatureFlags       { return f.features.Flags() }
func (f *fakeControls) Usage() *config.UsageSection      { return f.usage }

func newTestModel(t *testing.T) (*model, *fakeRunner, *fakeControls) {
	t.Helper()
	runner := &fakeRunner{}
	controls := newFakeControls()
	m := initialModel(context.Background(), runner, controls)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	require.True(t, m.ready)
	return m, runner, controls
}

func typeLine(m *model, line string) tea.Cmd {
	m.textarea.SetValue(line)
	_, cmd := m.handleKeyPress(tea.KeyMsg{Type: tea.KeyEnter}, nil)
	return cmd
}

// drain runs cmd and feeds every resulting message back into the model.
func drain(m *model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			drain(m, c)
		}
		return
	}
	if msg != nil {
		m.Update(msg)
	}
}

func TestParseSlashCommand(t *testing.T) {
	name, args, ok := parseSlashCommand("  /Open example.com ")
	require.True(t, ok)
	assert.Equal(t, "open", name)
	assert.Equal(t, []string{"example.com"}, args)

	_, _, ok = parseSlashCommand("where is the cart?")
	assert.False(t, ok)
	_, _, ok = parseSlashCommand("/")
	assert.False(t, ok)
}

func TestSubmit_FreeTextIsNavigate(t *testing.T) {
	m, runner, _ := newTestModel(t)

	cmd := typeLine(m, "where do I sign in?")
	assert.True(t, m.busy)
	drain(m, cmd)

	require.Len(t, runner.inputs, 1)
	in := runner.inputs[0]
	assert.Equal(t, types.InputTypeNavigate, in.Type)
	assert.Equal(t, "where do I sign in?", in.Content)
	assert.Equal(t, "tui", in.Source)
	assert.False(t, m.busy)
	assert.Contains(t, m.content.String(), "where do I sign in?")
	assert.Empty(t, m.textarea.Value())
}

func TestSlashCommands_RunOrchestratorCommands(t *testing.T) {
	m, runner, _ := newTestModel(t)

	drain(m, typeLine(m, "/summarize"))
	drain(m, typeLine(m, "/guide"))
	drain(m, typeLine(m, "/clear"))

	require.Len(t, runner.inputs, 3)
	assert.Equal(t, types.InputTypeSummarize, runner.inputs[0].Type)
	assert.Equal(t, types.InputTypeGuide, runner.inputs[1].Type)
	assert.Equal(t, types.InputTypeClear, runner.inputs[2].Type)
}

func TestEscClearsHighlight(t *testing.T) {
	m, runner, _ := newTestModel(t)
	_, cmd := m.handleKeyPress(tea.KeyMsg{Type: tea.KeyEsc}, nil)
	drain(m, cmd)
	require.Len(t, runner.inputs, 1)
	assert.True(t, runner.inputs[0].IsClear())
}

func TestSlashCommand_Validation(t *testing.T) {
	m, runner, _ := newTestModel(t)

	assert.Nil(t, typeLine(m, "/teleport"))
	require.NotNil(t, m.toast)
	assert.True(t, m.toast.isError)
	assert.Equal(t, "Unknown command", m.toast.message)

	assert.Nil(t, typeLine(m, "/open"))
	assert.Equal(t, "Usage", m.toast.message)
	assert.Equal(t, "/open <url>", m.toast.details)
	assert.Empty(t, runner.inputs)
}

func TestOpenCommand(t *testing.T) {
	m, _, controls := newTestModel(t)

	drain(m, typeLine(m, "/open example.com"))
	assert.Equal(t, []string{"https://example.com"}, controls.opened)
	assert.Contains(t, m.content.String(), "Loaded https://example.com")

	controls.openErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	drain(m, typeLine(m, "/open http://nowhere.test"))
	assert.Contains(t, m.content.String(), "Could not open http://nowhere.test")
}

func TestToggleAndFeatures(t *testing.T) {
	m, _, controls := newTestModel(t)

	typeLine(m, "/toggle voice-output")
	assert.True(t, controls.Flags().VoiceOutput)
	assert.Equal(t, "voice_output on", m.toast.message)

	typeLine(m, "/toggle telepathy")
	assert.True(t, m.toast.isError)

	typeLine(m, "/features")
	out := m.content.String()
	assert.Contains(t, out, "voice_output")
	assert.Contains(t, out, "visual_arrows")
}

func TestSnapshotCommand(t *testing.T) {
	m, runner, _ := newTestModel(t)

	typeLine(m, "/snapshot")
	assert.Nil(t, m.panel)
	assert.Equal(t, "No snapshot yet", m.toast.message)

	runner.last = &orchestrator.Outcome{Snapshot: &snapshot.Snapshot{URL: "https://shop.test/", Title: "Shop"}}
	typeLine(m, "/snapshot")
	require.NotNil(t, m.panel)
	assert.Contains(t, m.panel.title, "https://shop.test/")
	assert.Contains(t, m.View(), "Page snapshot")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.panel)
	assert.Len(t, runner.inputs, 0, "esc closes the panel without clearing")
}

func TestHandleEvent(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(types.NewCommandStartEvent("c1", types.InputTypeGuide))
	assert.True(t, m.busy)
	assert.Equal(t, "Looking for the next step...", m.loadingMsg)

	m.Update(types.NewMessageEvent("c1", "Click the Sign In button."))
	m.Update(types.NewHighlightEvent("c1", "#signin", "Sign in button", true))
	m.Update(types.NewTokenUsageEvent("c1", 100, 20, 120))
	m.Update(types.NewTokenUsageEvent("c2", 10, 5, 15))
	m.Update(types.NewUpdateBusyEvent(false))

	out := m.content.String()
	assert.Contains(t, out, "Click the Sign In button.")
	assert.Contains(t, out, "Highlighted: Sign in button")
	assert.Equal(t, "Click the Sign In button.", m.lastMessage)
	assert.Equal(t, 135, m.totalTokens)
	assert.Equal(t, 110, m.totalPromptTokens)
	assert.False(t, m.busy)

	m.Update(types.NewErrorEvent("c3", orchestrator.MessageNoTab, orchestrator.ErrNoTab))
	assert.Contains(t, m.content.String(), orchestrator.MessageNoTab)

	m.Update(types.NewSpeechStartEvent("c1", "hello", "browser"))
	assert.True(t, m.speaking)
	assert.Contains(t, m.buildTopStatus(), "speaking")
	m.Update(types.NewSpeechEndEvent("c1", nil))
	assert.False(t, m.speaking)
}

func TestCopyLastMessage(t *testing.T) {
	m, _, _ := newTestModel(t)
	var copied string
	orig := clipboardWriteAll
	clipboardWriteAll = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { clipboardWriteAll = orig })

	m.handleKeyPress(tea.KeyMsg{Type: tea.KeyCtrlY}, nil)
	assert.Equal(t, "Nothing to copy", m.toast.message)

	m.Update(types.NewClarificationEvent("c1", "Which button do you mean?"))
	m.handleKeyPress(tea.KeyMsg{Type: tea.KeyCtrlY}, nil)
	assert.Equal(t, "Which button do you mean?", copied)
	assert.Equal(t, "Copied last reply", m.toast.message)
}

func TestCommandDone_Busy(t *testing.T) {
	m, runner, _ := newTestModel(t)
	runner.err = orchestrator.ErrBusy
	drain(m, typeLine(m, "/guide"))
	assert.Equal(t, "Still working", m.toast.message)
}

func TestPalette(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.handleKeyPress(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")}, nil)
	require.True(t, m.palette.isActive())
	m.handleKeyPress(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("su")}, nil)
	sel := m.palette.selected()
	require.NotNil(t, sel)
	assert.Equal(t, "summarize", sel.Name)

	m.handleKeyPress(tea.KeyMsg{Type: tea.KeyTab}, nil)
	assert.False(t, m.palette.isActive())
	assert.Equal(t, "/summarize ", m.textarea.Value())
}

func TestPaletteFilterRanksNamesFirst(t *testing.T) {
	p := newCommandPalette([]paletteItem{
		{Name: "clear", Description: "Remove the highlight"},
		{Name: "help", Description: "Show commands"},
	})
	p.activate()
	p.updateFilter("h")
	require.Len(t, p.filtered, 2)
	assert.Equal(t, "help", p.filtered[0].Name)

	p.selectPrev()
	assert.Equal(t, "clear", p.selected().Name)
	p.updateFilter("zzz")
	assert.Nil(t, p.selected())
	assert.Empty(t, p.render(80))
}

func TestExecutorHandleDropsWhenFull(t *testing.T) {
	e := NewExecutor("beacon")
	for i := 0; i < eventBuffer+10; i++ {
		e.Handle(types.NewUpdateBusyEvent(true))
	}
	assert.Len(t, e.events, eventBuffer)
}

func TestWordWrap(t *testing.T) {
	assert.Equal(t, "one two\nthree", wordWrap("one two three", 8))
	assert.Equal(t, "abcd\nefgh", wordWrap("abcdefgh", 4))
	assert.Equal(t, "a\nb", wordWrap("a\n\nb", 10))
}

func TestHelpText(t *testing.T) {
	text := helpText()
	for _, c := range sortedCommands() {
		assert.Contains(t, text, "/"+c.Name)
	}
	assert.True(t, strings.Contains(text, config.FeatureAutoSummarize))
}

func TestHighlightJSONKeepsText(t *testing.T) {
	out := highlightJSON(`{"url": "https://shop.test/"}`)
	assert.Contains(t, out, "shop.test")
}
