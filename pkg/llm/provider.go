// Package llm provides abstractions for language-model provider integration.
//
// Example usage:
//
//	provider, err := gemini.NewProvider(ctx, os.Getenv("GEMINI_API_KEY"),
//	    gemini.WithModel("gemini-2.0-flash"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := provider.Complete(ctx, []*types.Message{
//	    types.NewUserMessage(promptText),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(reply.Content)
package llm

import (
	"context"
	"errors"

	"github.com/entrhq/beacon/pkg/types"
)

// ErrEmptyResponse is returned when a provider answers successfully but the
// reply carries no text.
var ErrEmptyResponse = errors.New("model returned no text")

// Provider defines the interface for language-model integrations.
//
// Providers only handle API communication. Interpreting the reply is left to
// the caller, so a provider can be swapped without touching the command flow.
type Provider interface {
	// StreamCompletion sends messages to the model and streams back response
	// chunks. The channel is closed when the reply is complete or an error
	// chunk has been sent.
	//
	// Returns an error only if the request cannot be started. Stream-time
	// errors arrive as chunks with Error set.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages to the model and returns the full reply.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}

// Collect drains a stream into a single assistant message. It returns
// ErrEmptyResponse when the stream carried no content.
func Collect(stream <-chan *StreamChunk) (*types.Message, error) {
	var content string
	var usage *types.TokenUsage
	for chunk := range stream {
		if chunk.IsError() {
			return nil, chunk.Error
		}
		content += chunk.Content
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}
	if content == "" {
		return nil, ErrEmptyResponse
	}
	msg := types.NewAssistantMessage(content)
	msg.Usage = usage
	return msg, nil
}
