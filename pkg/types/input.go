package types

// InputType defines the kind of command a front end sends to the orchestrator.
type InputType string

const (
	InputTypeSummarize InputType = "summarize" // InputTypeSummarize asks for a plain-language page summary.
	InputTypeGuide     InputType = "guide"     // InputTypeGuide asks for the best next action on the page.
	InputTypeNavigate  InputType = "navigate"  // InputTypeNavigate answers a free-text user request.
	InputTypeClear     InputType = "clear"     // InputTypeClear removes any overlay and stops speech.
)

// Input is a command issued by the user through any front end.
type Input struct {
	// Metadata holds optional additional information about the input.
	Metadata map[string]interface{}

	// Content is the user's query. Only used by navigate commands.
	Content string

	// Source names the front end that produced the input, e.g. "voice".
	Source string

	// Type indicates the kind of command.
	Type InputType
}

// NewSummarizeInput creates a summarize command.
func NewSummarizeInput() *Input {
	return &Input{
		Type:     InputTypeSummarize,
		Metadata: make(map[string]interface{}),
	}
}

// NewGuideInput creates a guide command.
func NewGuideInput() *Input {
	return &Input{
		Type:     InputTypeGuide,
		Metadata: make(map[string]interface{}),
	}
}

// NewNavigateInput creates a navigate command for the given query.
func NewNavigateInput(query string) *Input {
	return &Input{
		Type:     InputTypeNavigate,
		Content:  query,
		Metadata: make(map[string]interface{}),
	}
}

// NewClearInput creates a clear command.
func NewClearInput() *Input {
	return &Input{
		Type:     InputTypeClear,
		Metadata: make(map[string]interface{}),
	}
}

// WithSource records which front end produced the input.
func (i *Input) WithSource(source string) *Input {
	i.Source = source
	return i
}

// WithMetadata adds metadata to the input and returns the input for chaining.
func (i *Input) WithMetadata(key string, value interface{}) *Input {
	if i.Metadata == nil {
		i.Metadata = make(map[string]interface{})
	}
	i.Metadata[key] = value
	return i
}

// IsClear returns true if this is a clear command.
func (i *Input) IsClear() bool {
	return i.Type == InputTypeClear
}

// NeedsModel returns true if the command calls the language model.
func (i *Input) NeedsModel() bool {
	switch i.Type {
	case InputTypeSummarize, InputTypeGuide, InputTypeNavigate:
		return true
	}
	return false
}
