package resolve

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/beacon/pkg/interpret"
	"github.com/entrhq/beacon/pkg/prompt"
	"github.com/entrhq/beacon/pkg/snapshot"
)

func index(i int) *int { return &i }

func tenElements() *snapshot.Snapshot {
	snap := &snapshot.Snapshot{}
	for i := 0; i < 10; i++ {
		snap.InteractiveElements = append(snap.InteractiveElements, snapshot.Element{
			Tag:      "button",
			Text:     fmt.Sprintf("Item %d", i),
			Selector: fmt.Sprintf("#item-%d", i),
		})
	}
	return snap
}

func TestResolve_ByIndex(t *testing.T) {
	got := Resolve(&interpret.Instruction{ElementIndex: index(3)}, tenElements(), "whatever")
	require.NotNil(t, got)
	assert.Equal(t, "#item-3", got.Selector)
	assert.Equal(t, "Item 3", got.Description)
	assert.Equal(t, FromIndex, got.Source)
}

func TestResolve_OutOfRangeIndexFallsBackToText(t *testing.T) {
	got := Resolve(&interpret.Instruction{ElementIndex: index(99)}, tenElements(), "Press item 7 to continue.")
	require.NotNil(t, got)
	assert.Equal(t, "#item-7", got.Selector)
	assert.Equal(t, FromText, got.Source)

	got = Resolve(&interpret.Instruction{ElementIndex: index(-1)}, tenElements(), "Press item 2.")
	require.NotNil(t, got)
	assert.Equal(t, "#item-2", got.Selector)
}

func TestResolve_SignInScenario(t *testing.T) {
	snap := &snapshot.Snapshot{InteractiveElements: []snapshot.Element{
		{Tag: "button", Text: "Sign In", Selector: "#signin"},
	}}
	raw := `Click Sign In at the top right. [HIGHLIGHT_ELEMENT]{"elementIndex":0,"description":"Sign in button"}[/HIGHLIGHT_ELEMENT]`

	res := interpret.Interpret(raw, prompt.Guide)
	got := Resolve(res.Instruction, snap, res.Message)
	require.NotNil(t, got)
	assert.Equal(t, "#signin", got.Selector)
	assert.Equal(t, "Sign in button", got.Description)
}

func TestResolve_SelectorUsedVerbatim(t *testing.T) {
	got := Resolve(&interpret.Instruction{Selector: "div.hero > a"}, tenElements(), "Open the hero link.")
	require.NotNil(t, got)
	assert.Equal(t, "div.hero > a", got.Selector)
	assert.Equal(t, "Open the hero link.", got.Description)
	assert.Equal(t, FromSelector, got.Source)
}

func TestResolve_MalformedReplyFallsBackToText(t *testing.T) {
	snap := &snapshot.Snapshot{InteractiveElements: []snapshot.Element{
		{Tag: "a", Text: "Home", Selector: "#home"},
		{Tag: "input", AriaLabel: "Search products", Selector: "#search"},
		{Tag: "button", Text: "Filters", Selector: "#filters"},
	}}
	raw := `Type what you want into the search products box. [HIGHLIGHT_ELEMENT]{"elementIndex": "oops"`

	res := interpret.Interpret(raw, prompt.Navigate)
	require.Nil(t, res.Instruction)

	got := Resolve(res.Instruction, snap, res.Message)
	require.NotNil(t, got)
	assert.Equal(t, "#search", got.Selector)
	assert.Equal(t, "Search products", got.Description)
}

func TestResolve_DefaultsToFirstElement(t *testing.T) {
	got := Resolve(nil, tenElements(), "Nothing in common here.")
	require.NotNil(t, got)
	assert.Equal(t, "#item-0", got.Selector)
	assert.Equal(t, FromDefault, got.Source)
}

func TestResolve_Nil(t *testing.T) {
	assert.Nil(t, Resolve(nil, &snapshot.Snapshot{}, "text"))
	assert.Nil(t, Resolve(&interpret.Instruction{ElementIndex: index(0)}, nil, "text"))

	got := Resolve(&interpret.Instruction{Selector: "#x"}, &snapshot.Snapshot{}, "text")
	require.NotNil(t, got)
	assert.Equal(t, "#x", got.Selector)
}

func TestScore(t *testing.T) {
	el := snapshot.Element{Text: "Add to cart", AriaLabel: "Add to cart"}
	// containment plus every token; duplicate label ignored
	assert.Equal(t, ContainmentScore+3*TokenScore, Score(el, "click add to cart now"))
	assert.Equal(t, TokenScore, Score(el, "your cart"))
	assert.Equal(t, 0, Score(el, ""))
}

func TestScore_ShortTokensCount(t *testing.T) {
	assert.Equal(t, ContainmentScore+TokenScore, Score(snapshot.Element{Text: "Go"}, "press go."))
	assert.Equal(t, TokenScore, Score(snapshot.Element{AriaLabel: "Sign in"}, "type your email in the box"))
}
