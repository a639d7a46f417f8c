// Package overlay owns the highlight box, arrow and tooltip drawn over a page.
//
// At most one overlay exists per page. Show always clears the previous one
// first; Clear removes the visual nodes, detaches listeners and sweeps the page
// for any node still bearing an overlay marker class.
//
// The controller never touches the page directly. Everything goes through
// Page, which the browser host implements with injected scripts and tests
// implement in memory.
package overlay

import (
	"context"

	"github.com/entrhq/beacon/pkg/dom"
)

// Marker classes carried by the three overlay nodes. Erase removes every
// element bearing any of them.
const (
	HighlightClass = "beacon-highlight"
	ArrowClass     = "beacon-arrow"
	TooltipClass   = "beacon-tooltip"
)

// MarkerClasses lists all overlay marker classes.
var MarkerClasses = []string{HighlightClass, ArrowClass, TooltipClass}

// Measurement is the live geometry of the overlay target.
type Measurement struct {
	Rect     dom.Rect
	Viewport dom.Viewport

	// Attached is false when the selector no longer matches a node in the
	// document.
	Attached bool
}

// Events are the page notifications the controller listens for.
type Events struct {
	// OnViewportChange fires on scroll and resize.
	OnViewportChange func()

	// OnPointerDown fires on any click in the page.
	OnPointerDown func()
}

// Page is the live document the overlay is drawn on.
type Page interface {
	// Document returns a fresh mirror of the page.
	Document(ctx context.Context) (*dom.Document, error)

	// Measure returns the current viewport rect of the first element matching
	// selector.
	Measure(ctx context.Context, selector string) (Measurement, error)

	// ScrollIntoView smoothly scrolls the element to the center of the viewport.
	ScrollIntoView(ctx context.Context, selector string) error

	// Paint creates or updates the three overlay nodes for frame.ID.
	Paint(ctx context.Context, frame Frame) error

	// Erase removes every node bearing a marker class.
	Erase(ctx context.Context) error

	// Subscribe attaches scroll, resize and click listeners. The returned
	// function detaches them.
	Subscribe(ctx context.Context, events Events) (func(), error)
}
