package types

import "time"

// EventType defines the type of event emitted while a command runs.
type EventType string

const (
	EventTypeCommandStart     EventType = "command_start"     // EventTypeCommandStart indicates a command was accepted.
	EventTypeCommandEnd       EventType = "command_end"       // EventTypeCommandEnd indicates a command finished, successfully or not.
	EventTypeSnapshotCaptured EventType = "snapshot_captured" // EventTypeSnapshotCaptured indicates the page model was extracted.
	EventTypeAPICallStart     EventType = "api_call_start"    // EventTypeAPICallStart indicates the model is being called.
	EventTypeAPICallEnd       EventType = "api_call_end"      // EventTypeAPICallEnd indicates the model call returned.
	EventTypeMessage          EventType = "message"           // EventTypeMessage carries the user-facing reply.
	EventTypeClarification    EventType = "clarification"     // EventTypeClarification carries a question back to the user.
	EventTypeHighlight        EventType = "highlight"         // EventTypeHighlight reports an overlay request and its result.
	EventTypeHighlightCleared EventType = "highlight_cleared" // EventTypeHighlightCleared indicates the overlay was removed.
	EventTypeSpeechStart      EventType = "speech_start"      // EventTypeSpeechStart indicates narration began.
	EventTypeSpeechEnd        EventType = "speech_end"        // EventTypeSpeechEnd indicates narration finished or was superseded.
	EventTypeTokenUsage       EventType = "token_usage"       // EventTypeTokenUsage carries token usage for a model call.
	EventTypeUpdateBusy       EventType = "update_busy"       // EventTypeUpdateBusy indicates a change in busy status.
	EventTypeError            EventType = "error"             // EventTypeError carries a user-facing error.
)

// Event represents something that happened during command processing.
type Event struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// Error contains error information for error events.
	Error error

	// TokenUsage is set on token usage events.
	TokenUsage *TokenUsage

	// Highlight is set on highlight events.
	Highlight *HighlightInfo

	// Content holds text for message, clarification and speech events.
	Content string

	// CommandID correlates all events of one command.
	CommandID string

	// Type indicates the kind of event.
	Type EventType

	// Duration is set on command end and API call end events.
	Duration time.Duration

	// IsBusy is set on busy status events.
	IsBusy bool
}

// TokenUsage contains token usage statistics from a model call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// HighlightInfo describes an overlay request.
type HighlightInfo struct {
	Selector    string
	Description string

	// Shown is false when the page could not locate the element.
	Shown bool
}

// NewCommandStartEvent creates a command start event.
func NewCommandStartEvent(commandID string, kind InputType) *Event {
	return &Event{
		Type:      EventTypeCommandStart,
		CommandID: commandID,
		Metadata:  map[string]interface{}{"kind": string(kind)},
	}
}

// NewCommandEndEvent creates a command end event.
func NewCommandEndEvent(commandID string, duration time.Duration) *Event {
	return &Event{
		Type:      EventTypeCommandEnd,
		CommandID: commandID,
		Duration:  duration,
		Metadata:  make(map[string]interface{}),
	}
}

// NewSnapshotCapturedEvent creates a snapshot event.
func NewSnapshotCapturedEvent(commandID, url string, elements int) *Event {
	return &Event{
		Type:      EventTypeSnapshotCaptured,
		CommandID: commandID,
		Content:   url,
		Metadata:  map[string]interface{}{"elements": elements},
	}
}

// NewAPICallStartEvent creates an API call start event.
func NewAPICallStartEvent(commandID, model string, promptTokens int) *Event {
	return &Event{
		Type:      EventTypeAPICallStart,
		CommandID: commandID,
		Metadata:  map[string]interface{}{"model": model, "prompt_tokens": promptTokens},
	}
}

// NewAPICallEndEvent creates an API call end event.
func NewAPICallEndEvent(commandID string, duration time.Duration) *Event {
	return &Event{
		Type:      EventTypeAPICallEnd,
		CommandID: commandID,
		Duration:  duration,
		Metadata:  make(map[string]interface{}),
	}
}

// NewMessageEvent creates a message event.
func NewMessageEvent(commandID, content string) *Event {
	return &Event{
		Type:      EventTypeMessage,
		CommandID: commandID,
		Content:   content,
		Metadata:  make(map[string]interface{}),
	}
}

// NewClarificationEvent creates a clarification event.
func NewClarificationEvent(commandID, question string) *Event {
	return &Event{
		Type:      EventTypeClarification,
		CommandID: commandID,
		Content:   question,
		Metadata:  make(map[string]interface{}),
	}
}

// NewHighlightEvent creates a highlight event.
func NewHighlightEvent(commandID, selector, description string, shown bool) *Event {
	return &Event{
		Type:      EventTypeHighlight,
		CommandID: commandID,
		Highlight: &HighlightInfo{
			Selector:    selector,
			Description: description,
			Shown:       shown,
		},
		Metadata: make(map[string]interface{}),
	}
}

// NewHighlightClearedEvent creates a highlight cleared event.
func NewHighlightClearedEvent(commandID string) *Event {
	return &Event{
		Type:      EventTypeHighlightCleared,
		CommandID: commandID,
		Metadata:  make(map[string]interface{}),
	}
}

// NewSpeechStartEvent creates a speech start event.
func NewSpeechStartEvent(commandID, text, engine string) *Event {
	return &Event{
		Type:      EventTypeSpeechStart,
		CommandID: commandID,
		Content:   text,
		Metadata:  map[string]interface{}{"engine": engine},
	}
}

// NewSpeechEndEvent creates a speech end event.
func NewSpeechEndEvent(commandID string, err error) *Event {
	return &Event{
		Type:      EventTypeSpeechEnd,
		CommandID: commandID,
		Error:     err,
		Metadata:  make(map[string]interface{}),
	}
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(commandID string, promptTokens, completionTokens, totalTokens int) *Event {
	return &Event{
		Type:      EventTypeTokenUsage,
		CommandID: commandID,
		TokenUsage: &TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      totalTokens,
		},
		Metadata: make(map[string]interface{}),
	}
}

// NewUpdateBusyEvent creates a busy status update event.
func NewUpdateBusyEvent(isBusy bool) *Event {
	return &Event{
		Type:     EventTypeUpdateBusy,
		IsBusy:   isBusy,
		Metadata: make(map[string]interface{}),
	}
}

// NewErrorEvent creates an error event. message is the text shown or spoken
// to the user; err keeps the underlying cause for logs.
func NewErrorEvent(commandID, message string, err error) *Event {
	return &Event{
		Type:      EventTypeError,
		CommandID: commandID,
		Content:   message,
		Error:     err,
		Metadata:  make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the event and returns the event for chaining.
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsCommandEvent returns true for command lifecycle events.
func (e *Event) IsCommandEvent() bool {
	return e.Type == EventTypeCommandStart ||
		e.Type == EventTypeCommandEnd
}

// IsAPIEvent returns true if this is any API-related event.
func (e *Event) IsAPIEvent() bool {
	return e.Type == EventTypeAPICallStart ||
		e.Type == EventTypeAPICallEnd
}

// IsOverlayEvent returns true for highlight events.
func (e *Event) IsOverlayEvent() bool {
	return e.Type == EventTypeHighlight ||
		e.Type == EventTypeHighlightCleared
}

// IsSpeechEvent returns true for narration events.
func (e *Event) IsSpeechEvent() bool {
	return e.Type == EventTypeSpeechStart ||
		e.Type == EventTypeSpeechEnd
}

// IsUserFacing returns true if the event carries text meant for the user.
func (e *Event) IsUserFacing() bool {
	return e.Type == EventTypeMessage ||
		e.Type == EventTypeClarification ||
		e.Type == EventTypeError
}

// IsErrorEvent returns true if this is an error event.
func (e *Event) IsErrorEvent() bool {
	return e.Type == EventTypeError
}
