package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/beacon/pkg/prompt"
)

func TestInterpret_ClarifyWins(t *testing.T) {
	raw := `[CLARIFY]Did you mean the search bar or the filter menu?[/CLARIFY]
[HIGHLIGHT_ELEMENT]{"elementIndex":2}[/HIGHLIGHT_ELEMENT]`

	res := Interpret(raw, prompt.Navigate)
	assert.True(t, res.NeedsClarification())
	assert.Equal(t, "Did you mean the search bar or the filter menu?", res.Clarification)
	assert.Equal(t, res.Clarification, res.Message)
	assert.Nil(t, res.Instruction)
}

func TestInterpret_UnterminatedClarifyDropsHighlight(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"closed highlight", "[CLARIFY]Did you mean the search bar?\n[HIGHLIGHT_ELEMENT]{\"elementIndex\":0}[/HIGHLIGHT_ELEMENT]"},
		{"open highlight", "[CLARIFY]Did you mean the search bar? [HIGHLIGHT_ELEMENT]{\"elementIndex\":0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Interpret(tt.raw, prompt.Navigate)
			assert.Equal(t, "Did you mean the search bar?", res.Clarification)
			assert.Equal(t, res.Clarification, res.Message)
			assert.NotContains(t, res.Message, "HIGHLIGHT_ELEMENT")
			assert.Nil(t, res.Instruction)
		})
	}
}

func TestInterpret_EmptyClarifyFallsThrough(t *testing.T) {
	res := Interpret("[CLARIFY][HIGHLIGHT_ELEMENT]{\"elementIndex\":1}[/HIGHLIGHT_ELEMENT]", prompt.Guide)
	assert.False(t, res.NeedsClarification())
	assert.Equal(t, FallbackAction, res.Message)
}

func TestInterpret_HighlightParsed(t *testing.T) {
	raw := `Click the Sign In button at the top.
[HIGHLIGHT_ELEMENT]{"elementIndex":0,"description":"Sign in button"}[/HIGHLIGHT_ELEMENT]`

	res := Interpret(raw, prompt.Guide)
	assert.False(t, res.NeedsClarification())
	assert.Equal(t, "Click the Sign In button at the top.", res.Message)
	require.NotNil(t, res.Instruction)
	require.True(t, res.Instruction.HasIndex())
	assert.Equal(t, 0, *res.Instruction.ElementIndex)
	assert.Equal(t, "Sign in button", res.Instruction.Description)
}

func TestInterpret_MalformedHighlightStillStripped(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unterminated json", `Open the cart. [HIGHLIGHT_ELEMENT]{"elementIndex": "oops"[/HIGHLIGHT_ELEMENT]`},
		{"unterminated block", `Open the cart. [HIGHLIGHT_ELEMENT]{"elementIndex": "oops"`},
		{"wrong type", `Open the cart. [HIGHLIGHT_ELEMENT]{"elementIndex": "oops"}[/HIGHLIGHT_ELEMENT]`},
		{"empty object", `Open the cart. [HIGHLIGHT_ELEMENT]{}[/HIGHLIGHT_ELEMENT]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Interpret(tt.raw, prompt.Navigate)
			assert.Equal(t, "Open the cart.", res.Message)
			assert.Nil(t, res.Instruction)
			assert.NotContains(t, res.Message, "HIGHLIGHT")
		})
	}
}

func TestInterpret_CodeFencedPayload(t *testing.T) {
	raw := "Use the search box.\n[HIGHLIGHT_ELEMENT]```json\n{\"elementIndex\": 4}\n```[/HIGHLIGHT_ELEMENT]"

	res := Interpret(raw, prompt.Navigate)
	require.NotNil(t, res.Instruction)
	assert.Equal(t, 4, *res.Instruction.ElementIndex)
}

func TestInterpret_SelectorOnlyAndFractionalIndex(t *testing.T) {
	res := Interpret(`Go. [HIGHLIGHT_ELEMENT]{"elementIndex": 1.5, "selector": " #cart "}[/HIGHLIGHT_ELEMENT]`, prompt.Guide)
	require.NotNil(t, res.Instruction)
	assert.False(t, res.Instruction.HasIndex())
	assert.Equal(t, "#cart", res.Instruction.Selector)
}

func TestInterpret_ActionFormatting(t *testing.T) {
	raw := "1. **click** the `Cart` icon!\n- then press checkout. Finally pay. Extra sentence."

	res := Interpret(raw, prompt.Guide)
	assert.Equal(t, "Click the Cart icon! Then press checkout.", res.Message)
}

func TestInterpret_Fallbacks(t *testing.T) {
	res := Interpret(`[HIGHLIGHT_ELEMENT]{"elementIndex":1}[/HIGHLIGHT_ELEMENT]`, prompt.Guide)
	assert.Equal(t, FallbackAction, res.Message)
	require.NotNil(t, res.Instruction)

	res = Interpret("   ", prompt.Summarize)
	assert.Equal(t, FallbackSummary, res.Message)
}

func TestInterpret_SummaryKeepsAllSentences(t *testing.T) {
	raw := "## Overview\nThis is a shop.\nYou can browse deals. You can also track orders."

	res := Interpret(raw, prompt.Summarize)
	assert.Equal(t, "Overview This is a shop. You can browse deals. You can also track orders.", res.Message)
	assert.Nil(t, res.Instruction)
}

func TestFormatAction(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"press the button", "Press the button"},
		{"Rate it 4.5 stars. Then submit. Then leave.", "Rate it 4.5 stars. Then submit."},
		{"  * scroll down?   then click Help.", "Scroll down? Then click Help."},
		{"élan vital.", "Élan vital."},
		{"1. Click Sign in. 2. Enter your email. 3. Submit.", "Click Sign in. Enter your email."},
		{"Open the menu. - choose Settings. - save.", "Open the menu. Choose Settings."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAction(tt.in), tt.in)
	}
}
