package llm

import "github.com/entrhq/beacon/pkg/types"

// StreamChunk is one piece of a streamed model reply.
type StreamChunk struct {
	// Error is set when the stream failed. It is always the last chunk.
	Error error

	// Usage is reported on the final chunk by providers that know it.
	Usage *types.TokenUsage

	// Role is set on the first chunk of a reply.
	Role string

	// Content is a text delta.
	Content string

	// Finished marks the final chunk.
	Finished bool
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}

// IsLast reports whether no further chunks follow.
func (c *StreamChunk) IsLast() bool {
	return c != nil && (c.Finished || c.Error != nil)
}
