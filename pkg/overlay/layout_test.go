package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/beacon/pkg/dom"
)

var desktop = dom.Viewport{Width: 1280, Height: 720}

func TestPickSide(t *testing.T) {
	tests := []struct {
		name string
		hl   dom.Rect
		want Side
	}{
		{"room on the right", dom.Rect{X: 100, Y: 300, Width: 200, Height: 40}, SideRight},
		{"flush right", dom.Rect{X: 1100, Y: 300, Width: 170, Height: 40}, SideLeft},
		{"full width below the fold", dom.Rect{X: 0, Y: 400, Width: 1280, Height: 40}, SideTop},
		{"exactly the clearance", dom.Rect{X: 0, Y: 0, Width: 1150, Height: 40}, SideRight},
		{"no side has room", dom.Rect{X: 60, Y: 20, Width: 1200, Height: 600}, SideLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickSide(tt.hl, desktop))
		})
	}
}

func TestLayout_InsetAndTone(t *testing.T) {
	target := dom.Rect{X: 100, Y: 100, Width: 80, Height: 30}

	f := Layout("a", target, desktop, dom.Interactive, "Buy")
	assert.Equal(t, dom.Rect{X: 96, Y: 96, Width: 88, Height: 38}, f.Highlight)
	assert.Equal(t, InteractiveTone, f.Tone)
	assert.Equal(t, "#2563eb", f.Tone.Color)

	f = Layout("b", target, desktop, dom.Scannable, "Read")
	assert.Equal(t, dom.Rect{X: 88, Y: 88, Width: 104, Height: 54}, f.Highlight)
	assert.Equal(t, ScanTone, f.Tone)
	assert.Equal(t, "#f97316", f.Tone.Color)
}

func TestLayout_ArrowAndTooltipRight(t *testing.T) {
	f := Layout("id", dom.Rect{X: 100, Y: 300, Width: 200, Height: 40}, desktop, dom.Interactive, "Sign in")

	hl := f.Highlight
	assert.Equal(t, SideRight, f.Arrow.Side)
	assert.Equal(t, hl.Right()+ArrowGap, f.Arrow.Rect.X)
	assert.Equal(t, hl.CenterY(), f.Arrow.Rect.CenterY())
	assert.Equal(t, f.Arrow.Rect.Right()+TooltipGap, f.Tooltip.X)
	assert.Equal(t, float64(TooltipMaxWidth), f.Tooltip.MaxWidth)
	assert.Equal(t, "Sign in", f.Tooltip.Text)
}

func TestLayout_TooltipStaysInViewport(t *testing.T) {
	f := Layout("id", dom.Rect{X: 40, Y: 2, Width: 1200, Height: 10}, desktop, dom.Interactive, "x")

	assert.GreaterOrEqual(t, f.Tooltip.X, float64(ViewportMargin))
	assert.GreaterOrEqual(t, f.Tooltip.Y, float64(ViewportMargin))
	assert.LessOrEqual(t, f.Tooltip.X+f.Tooltip.MaxWidth, desktop.Width-ViewportMargin)
}
