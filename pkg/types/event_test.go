package types

import (
	"errors"
	"testing"
	"time"
)

func TestEventType(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCommandStart, "command_start"},
		{EventTypeCommandEnd, "command_end"},
		{EventTypeSnapshotCaptured, "snapshot_captured"},
		{EventTypeMessage, "message"},
		{EventTypeClarification, "clarification"},
		{EventTypeHighlight, "highlight"},
		{EventTypeHighlightCleared, "highlight_cleared"},
		{EventTypeSpeechStart, "speech_start"},
		{EventTypeError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.eventType) != tt.expected {
				t.Errorf("EventType = %v, want %v", tt.eventType, tt.expected)
			}
		})
	}
}

func TestNewCommandEvents(t *testing.T) {
	start := NewCommandStartEvent("cmd-1", InputTypeGuide)
	if start.Type != EventTypeCommandStart {
		t.Errorf("CommandStart type = %v, want %v", start.Type, EventTypeCommandStart)
	}
	if start.Metadata["kind"] != "guide" {
		t.Errorf("CommandStart kind = %v, want guide", start.Metadata["kind"])
	}

	end := NewCommandEndEvent("cmd-1", 2*time.Second)
	if end.CommandID != "cmd-1" || end.Duration != 2*time.Second {
		t.Errorf("CommandEnd = %+v", end)
	}
}

func TestNewHighlightEvent(t *testing.T) {
	e := NewHighlightEvent("cmd-2", "#signin", "Sign in button", true)
	if e.Highlight == nil {
		t.Fatal("Highlight info not set")
	}
	if e.Highlight.Selector != "#signin" || e.Highlight.Description != "Sign in button" || !e.Highlight.Shown {
		t.Errorf("Highlight info = %+v", e.Highlight)
	}
}

func TestNewTokenUsageEvent(t *testing.T) {
	e := NewTokenUsageEvent("cmd-3", 100, 20, 120)
	if e.TokenUsage == nil || e.TokenUsage.TotalTokens != 120 {
		t.Errorf("TokenUsage = %+v", e.TokenUsage)
	}
}

func TestNewErrorEvent(t *testing.T) {
	cause := errors.New("boom")
	e := NewErrorEvent("cmd-4", "Something went wrong.", cause)
	if e.Content != "Something went wrong." {
		t.Errorf("Error content = %v", e.Content)
	}
	if !errors.Is(e.Error, cause) {
		t.Error("Error event error not set correctly")
	}
}

func TestEventWithMetadata(t *testing.T) {
	event := NewMessageEvent("cmd", "test")
	result := event.WithMetadata("test_key", "test_value")

	if result != event {
		t.Error("WithMetadata should return the same event for chaining")
	}
	if event.Metadata["test_key"] != "test_value" {
		t.Errorf("WithMetadata did not set metadata correctly, got %v", event.Metadata["test_key"])
	}
}

func TestEventHelpers(t *testing.T) {
	tests := []struct {
		event      *Event
		name       string
		isCommand  bool
		isAPI      bool
		isOverlay  bool
		isSpeech   bool
		userFacing bool
		isError    bool
	}{
		{name: "command_start", event: NewCommandStartEvent("c", InputTypeSummarize), isCommand: true},
		{name: "api_call_start", event: NewAPICallStartEvent("c", "m", 10), isAPI: true},
		{name: "highlight", event: NewHighlightEvent("c", "#a", "a", false), isOverlay: true},
		{name: "highlight_cleared", event: NewHighlightClearedEvent("c"), isOverlay: true},
		{name: "speech_start", event: NewSpeechStartEvent("c", "hi", "browser"), isSpeech: true},
		{name: "message", event: NewMessageEvent("c", "hi"), userFacing: true},
		{name: "clarification", event: NewClarificationEvent("c", "which?"), userFacing: true},
		{name: "error", event: NewErrorEvent("c", "oops", errors.New("x")), userFacing: true, isError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.IsCommandEvent(); got != tt.isCommand {
				t.Errorf("IsCommandEvent() = %v, want %v", got, tt.isCommand)
			}
			if got := tt.event.IsAPIEvent(); got != tt.isAPI {
				t.Errorf("IsAPIEvent() = %v, want %v", got, tt.isAPI)
			}
			if got := tt.event.IsOverlayEvent(); got != tt.isOverlay {
				t.Errorf("IsOverlayEvent() = %v, want %v", got, tt.isOverlay)
			}
			if got := tt.event.IsSpeechEvent(); got != tt.isSpeech {
				t.Errorf("IsSpeechEvent() = %v, want %v", got, tt.isSpeech)
			}
			if got := tt.event.IsUserFacing(); got != tt.userFacing {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.userFacing)
			}
			if got := tt.event.IsErrorEvent(); got != tt.isError {
				t.Errorf("IsErrorEvent() = %v, want %v", got, tt.isError)
			}
		})
	}
}

func TestInputHelpers(t *testing.T) {
	nav := NewNavigateInput("find the cart").WithSource("voice")
	if nav.Content != "find the cart" || nav.Source != "voice" {
		t.Errorf("Navigate input = %+v", nav)
	}
	if !nav.NeedsModel() || nav.IsClear() {
		t.Error("navigate input should need the model")
	}

	clear := NewClearInput()
	if clear.NeedsModel() || !clear.IsClear() {
		t.Error("clear input should not need the model")
	}
}
