package overlay

import (
	"math"

	"github.com/entrhq/beacon/pkg/dom"
)

// Side is where the arrow sits relative to the highlight.
type Side string

const (
	SideRight Side = "right"
	SideLeft  Side = "left"
	SideTop   Side = "top"
)

// sideOrder is the preference order for arrow placement.
var sideOrder = []Side{SideRight, SideLeft, SideTop}

// Tone distinguishes "click here" from "read here".
type Tone struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var (
	InteractiveTone = Tone{Name: "interactive", Color: "#2563eb"}
	ScanTone        = Tone{Name: "scan", Color: "#f97316"}
)

// Geometry constants, in CSS pixels.
const (
	InteractiveInset = 4
	ScanInset        = 12
	ArrowClearance   = 130
	ArrowSize        = 40
	ArrowGap         = 8
	TooltipMaxWidth  = 280
	TooltipMinWidth  = 120
	TooltipHeight    = 48
	TooltipGap       = 8
	ViewportMargin   = 8
)

// Arrow is the arrow node's placement. It points from Side toward the target.
type Arrow struct {
	Side Side     `json:"side"`
	Rect dom.Rect `json:"rect"`
}

// Tooltip is the tooltip node's placement and text.
type Tooltip struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	MaxWidth float64 `json:"maxWidth"`
	Text     string  `json:"text"`
}

// Frame is everything the page needs to draw or move the overlay. All
// coordinates are viewport-relative.
type Frame struct {
	ID        string   `json:"id"`
	Tone      Tone     `json:"tone"`
	Highlight dom.Rect `json:"highlight"`
	Arrow     Arrow    `json:"arrow"`
	Tooltip   Tooltip  `json:"tooltip"`
}

// ToneFor maps a capability onto its tone.
func ToneFor(c dom.Capability) Tone {
	if c == dom.Interactive {
		return InteractiveTone
	}
	return ScanTone
}

// InsetFor returns the highlight padding for a capability.
func InsetFor(c dom.Capability) float64 {
	if c == dom.Interactive {
		return InteractiveInset
	}
	return ScanInset
}

// Layout computes the overlay frame for a target rect.
func Layout(id string, target dom.Rect, vp dom.Viewport, c dom.Capability, description string) Frame {
	hl := target.Expand(InsetFor(c))
	side := PickSide(hl, vp)
	arrow := placeArrow(hl, side)
	return Frame{
		ID:        id,
		Tone:      ToneFor(c),
		Highlight: hl,
		Arrow:     Arrow{Side: side, Rect: arrow},
		Tooltip:   placeTooltip(arrow, side, vp, description),
	}
}

// PickSide returns the first side in right, left, top order with at least
// ArrowClearance of free space, else the side with the most space.
func PickSide(hl dom.Rect, vp dom.Viewport) Side {
	best, bestSpace := SideRight, math.Inf(-1)
	for _, s := range sideOrder {
		space := clearance(hl, vp, s)
		if space >= ArrowClearance {
			return s
		}
		if space > bestSpace {
			best, bestSpace = s, space
		}
	}
	return best
}

func clearance(hl dom.Rect, vp dom.Viewport, s Side) float64 {
	switch s {
	case SideRight:
		return vp.Width - hl.Right()
	case SideLeft:
		return hl.X
	default:
		return hl.Y
	}
}

func placeArrow(hl dom.Rect, s Side) dom.Rect {
	switch s {
	case SideRight:
		return dom.Rect{X: hl.Right() + ArrowGap, Y: hl.CenterY() - ArrowSize/2, Width: ArrowSize, Height: ArrowSize}
	case SideLeft:
		return dom.Rect{X: hl.X - ArrowGap - ArrowSize, Y: hl.CenterY() - ArrowSize/2, Width: ArrowSize, Height: ArrowSize}
	default:
		return dom.Rect{X: hl.CenterX() - ArrowSize/2, Y: hl.Y - ArrowGap - ArrowSize, Width: ArrowSize, Height: ArrowSize}
	}
}

func placeTooltip(arrow dom.Rect, s Side, vp dom.Viewport, text string) Tooltip {
	var t Tooltip
	t.Text = text
	switch s {
	case SideRight:
		t.X = arrow.Right() + TooltipGap
		t.MaxWidth = clamp(vp.Width-ViewportMargin-t.X, TooltipMinWidth, TooltipMaxWidth)
		t.Y = arrow.CenterY() - TooltipHeight/2
	case SideLeft:
		t.MaxWidth = clamp(arrow.X-TooltipGap-ViewportMargin, TooltipMinWidth, TooltipMaxWidth)
		t.X = arrow.X - TooltipGap - t.MaxWidth
		t.Y = arrow.CenterY() - TooltipHeight/2
	default:
		t.MaxWidth = TooltipMaxWidth
		t.X = arrow.CenterX() - t.MaxWidth/2
		t.Y = arrow.Y - TooltipGap - TooltipHeight
	}
	t.X = clamp(t.X, ViewportMargin, vp.Width-ViewportMargin-t.MaxWidth)
	t.Y = clamp(t.Y, ViewportMargin, vp.Height-ViewportMargin-TooltipHeight)
	return t
}

// clamp bounds v to [lo, hi]; lo wins when the range is empty.
func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
