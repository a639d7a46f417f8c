package bridge

import (
	"context"
	"fmt"

	"github.com/entrhq/beacon/pkg/dom"
	"github.com/entrhq/beacon/pkg/snapshot"
)

// DocumentSource yields a fresh mirror of the live page.
type DocumentSource interface {
	Document(ctx context.Context) (*dom.Document, error)
}

// Overlay is the on-page highlight owner.
type Overlay interface {
	Show(ctx context.Context, selector, description string) (bool, error)
	Clear(ctx context.Context) error
}

// PageHandler is the on-page side of the bridge: it captures snapshots and
// drives the overlay.
type PageHandler struct {
	source    DocumentSource
	extractor *snapshot.Extractor
	overlay   Overlay
}

// NewPageHandler wires a page handler. A nil extractor uses the default caps.
func NewPageHandler(source DocumentSource, extractor *snapshot.Extractor, overlay Overlay) *PageHandler {
	if extractor == nil {
		extractor = snapshot.NewExtractor()
	}
	return &PageHandler{source: source, extractor: extractor, overlay: overlay}
}

// HandleMessage implements Handler.
func (h *PageHandler) HandleMessage(ctx context.Context, req *Request) *Response {
	switch req.Action {
	case ActionGetPageContent:
		doc, err := h.source.Document(ctx)
		if err != nil {
			return &Response{Error: fmt.Sprintf("read page: %v", err)}
		}
		return &Response{Success: true, Snapshot: h.extractor.Capture(doc)}

	case ActionHighlightElement:
		ok, err := h.overlay.Show(ctx, req.Selector, req.Description)
		if err != nil {
			return &Response{Error: err.Error()}
		}
		return &Response{Success: ok}

	case ActionClearHighlights:
		if err := h.overlay.Clear(ctx); err != nil {
			debugLog.Warnf("clear highlights: %v", err)
		}
		return &Response{Success: true}
	}

	return &Response{Error: fmt.Sprintf("unknown action %q", req.Action)}
}
