package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/beacon/pkg/orchestrator"
	"github.com/entrhq/beacon/pkg/types"
)

type recordingRunner struct {
	inputs []*types.Input
	err    error
}

func (r *recordingRunner) Run(_ context.Context, in *types.Input) (*orchestrator.Outcome, error) {
	r.inputs = append(r.inputs, in)
	if r.err != nil {
		return nil, r.err
	}
	return &orchestrator.Outcome{Kind: in.Type}, nil
}

type fakeControls struct {
	url     string
	opened  []string
	toggled []string
	openErr error
}

func (c *fakeControls) URL() string { return c.url }

func (c *fakeControls) Open(_ context.Context, url string) error {
	if c.openErr != nil {
		return c.openErr
	}
	c.opened = append(c.opened, url)
	c.url = url
	return nil
}

func (c *fakeControls) Toggle(name string) (bool, error) {
	if name == "teleport" {
		return false, errors.New("unknown feature")
	}
	c.toggled = append(c.toggled, name)
	return true, nil
}

func runLines(t *testing.T, input string, runner Runner, controls Controls) string {
	t.Helper()
	var out bytes.Buffer
	e := NewExecutor(WithReader(strings.NewReader(input)), WithWriter(&out))
	require.NoError(t, e.Run(context.Background(), runner, controls))
	return out.String()
}

func TestRun_DispatchesCommands(t *testing.T) {
	runner := &recordingRunner{}
	controls := &fakeControls{}

	runLines(t, "summarize\nGuide\nwhere is the cart?\nclear\n\nexit\nsummarize\n", runner, controls)

	require.Len(t, runner.inputs, 4)
	assert.Equal(t, types.InputTypeSummarize, runner.inputs[0].Type)
	assert.Equal(t, types.InputTypeGuide, runner.inputs[1].Type)
	assert.Equal(t, types.InputTypeNavigate, runner.inputs[2].Type)
	assert.Equal(t, "where is the cart?", runner.inputs[2].Content)
	assert.Equal(t, types.InputTypeClear, runner.inputs[3].Type)
	for _, in := range runner.inputs {
		assert.Equal(t, "cli", in.Source)
	}
}

func TestRun_EndsAtEOFWithoutNewline(t *testing.T) {
	runner := &recordingRunner{}
	runLines(t, "summarize", runner, &fakeControls{})
	require.Len(t, runner.inputs, 1)
}

func TestRun_OpenAddsScheme(t *testing.T) {
	controls := &fakeControls{}
	out := runLines(t, "open example.com\nopen http://localhost:8080\nopen\n", &recordingRunner{}, controls)

	assert.Equal(t, []string{"https://example.com", "http://localhost:8080"}, controls.opened)
	assert.Contains(t, out, "Loaded https://example.com")
	assert.Contains(t, out, "Usage: open <url>")
}

func TestRun_OpenError(t *testing.T) {
	controls := &fakeControls{openErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	out := runLines(t, "open nowhere.invalid\n", &recordingRunner{}, controls)
	assert.Contains(t, out, "Could not open https://nowhere.invalid")
}

func TestRun_Toggle(t *testing.T) {
	controls := &fakeControls{}
	out := runLines(t, "toggle voice-output\ntoggle teleport\n", &recordingRunner{}, controls)

	assert.Equal(t, []string{"voice_output"}, controls.toggled)
	assert.Contains(t, out, "voice_output is now on")
	assert.Contains(t, out, "Could not toggle teleport")
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExecutor(WithReader(strings.NewReader("summarize\n")), WithWriter(&bytes.Buffer{}))
	err := e.Run(ctx, &recordingRunner{}, &fakeControls{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandle(t *testing.T) {
	var out bytes.Buffer
	e := NewExecutor(WithWriter(&out))

	e.Handle(types.NewCommandStartEvent("c1", types.InputTypeSummarize))
	e.Handle(types.NewMessageEvent("c1", "This is a shop front page."))
	e.Handle(types.NewClarificationEvent("c1", "Do you mean the header cart?"))
	e.Handle(types.NewHighlightEvent("c1", "#cart", "Cart link", true))
	e.Handle(types.NewHighlightEvent("c1", "#gone", "Gone", false))
	e.Handle(types.NewHighlightClearedEvent("c1"))
	e.Handle(types.NewErrorEvent("c1", "model unavailable", errors.New("503")))
	e.Handle(types.NewTokenUsageEvent("c1", 10, 5, 15))

	want := strings.Join([]string{
		"[Reading the page...]",
		"This is a shop front page.",
		"Question: Do you mean the header cart?",
		"Highlighted: Cart link",
		"Highlight cleared.",
		"Error: model unavailable",
		"",
	}, "\n")
	assert.Equal(t, want, out.String())
}

func TestHandle_HidesProgress(t *testing.T) {
	var out bytes.Buffer
	e := NewExecutor(WithWriter(&out), WithShowProgress(false))
	e.Handle(types.NewCommandStartEvent("c1", types.InputTypeGuide))
	assert.Empty(t, out.String())
}
