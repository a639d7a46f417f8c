package overlay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/beacon/pkg/dom"
	"github.com/entrhq/beacon/pkg/logging"
	"github.com/entrhq/beacon/pkg/snapshot"
)

// Default timings.
const (
	DefaultSettleDelay   = 350 * time.Millisecond
	DefaultDismissGrace  = 400 * time.Millisecond
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultPassTimeout   = 3 * time.Second
)

// state is the single active overlay. The target is held by selector and
// re-measured on every pass, never as a node reference.
type state struct {
	id          string
	gen         uint64
	selector    string
	description string
	capability  dom.Capability

	unsubscribe func()
	settle      *time.Timer
	arm         *time.Timer
	armed       bool
	painted     bool
	last        Frame
}

// Controller shows and clears the overlay on one page.
type Controller struct {
	page   Page
	logger *logging.Logger
	frames *FrameScheduler

	settleDelay  time.Duration
	dismissGrace time.Duration
	passTimeout  time.Duration

	mu  sync.Mutex
	gen uint64
	st  *state

	// paintMu orders Paint against Erase so a late reposition cannot leave
	// nodes behind after Clear.
	paintMu sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithSettleDelay sets the delay between scrolling and the first paint. Zero
// paints synchronously inside Show.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.settleDelay = d
	}
}

// WithDismissGrace sets how long after Show a click starts dismissing the
// overlay.
func WithDismissGrace(d time.Duration) Option {
	return func(c *Controller) {
		c.dismissGrace = d
	}
}

// WithFrameInterval sets the reposition coalescing window. Zero repositions
// synchronously on every event.
func WithFrameInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.frames = NewFrameScheduler(d)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a controller for page.
func NewController(page Page, opts ...Option) *Controller {
	c := &Controller{
		page:         page,
		logger:       logging.Discard(),
		frames:       NewFrameScheduler(DefaultFrameInterval),
		settleDelay:  DefaultSettleDelay,
		dismissGrace: DefaultDismissGrace,
		passTimeout:  DefaultPassTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Show clears any existing overlay and points a new one at the element
// described by selector and description. It returns false, leaving no overlay,
// when no element can be located.
func (c *Controller) Show(ctx context.Context, selector, description string) (bool, error) {
	if err := c.Clear(ctx); err != nil {
		return false, err
	}

	doc, err := c.page.Document(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mirror page: %w", err)
	}

	node, byText := Locate(doc, selector, description)
	if node == nil {
		c.logger.Infof("no element for selector %q or description %q", selector, description)
		return false, nil
	}
	if byText {
		c.logger.Debugf("selector %q failed, matched by text", selector)
	}
	node = Promote(doc, node)

	st := &state{
		id:          uuid.New().String(),
		selector:    snapshot.SelectorFor(doc, node),
		description: description,
		capability:  doc.Classify(node),
	}

	c.mu.Lock()
	c.gen++
	st.gen = c.gen
	c.st = st
	c.mu.Unlock()
	gen := st.gen

	if err := c.page.ScrollIntoView(ctx, st.selector); err != nil {
		c.logger.Warnf("scroll into view failed for %q: %v", st.selector, err)
	}

	unsubscribe, err := c.page.Subscribe(ctx, Events{
		OnViewportChange: func() { c.requestReposition(gen) },
		OnPointerDown:    func() { c.pointerDown(gen) },
	})
	if err != nil {
		_ = c.clearGen(ctx, gen)
		return false, fmt.Errorf("failed to attach listeners: %w", err)
	}

	c.mu.Lock()
	if c.st != st {
		c.mu.Unlock()
		unsubscribe()
		return false, nil
	}
	st.unsubscribe = unsubscribe
	if c.dismissGrace <= 0 {
		st.armed = true
	} else {
		st.arm = time.AfterFunc(c.dismissGrace, func() { c.armDismiss(gen) })
	}
	if c.settleDelay > 0 {
		st.settle = time.AfterFunc(c.settleDelay, func() { c.asyncPass(gen) })
	}
	c.mu.Unlock()

	c.logger.Infof("overlay %s on %q (%s)", st.id, st.selector, st.capability)
	if c.settleDelay > 0 {
		return true, nil
	}
	if err := c.reposition(ctx, gen); err != nil {
		return false, err
	}
	return c.activeGen(gen), nil
}

// Clear removes the overlay, detaches listeners and sweeps the page for
// orphaned overlay nodes. Calling it with nothing shown is harmless.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	st := c.st
	c.st = nil
	c.gen++
	c.mu.Unlock()

	c.frames.Cancel()
	if st != nil {
		st.stop()
		c.logger.Debugf("overlay %s cleared", st.id)
	}

	c.paintMu.Lock()
	defer c.paintMu.Unlock()
	if err := c.page.Erase(ctx); err != nil {
		return fmt.Errorf("failed to erase overlay: %w", err)
	}
	return nil
}

// Active reports whether an overlay is shown or pending its first paint.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st != nil
}

// Current returns the active target selector and last painted frame.
func (c *Controller) Current() (selector string, frame Frame, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return "", Frame{}, false
	}
	return c.st.selector, c.st.last, true
}

func (st *state) stop() {
	if st.settle != nil {
		st.settle.Stop()
	}
	if st.arm != nil {
		st.arm.Stop()
	}
	if st.unsubscribe != nil {
		st.unsubscribe()
	}
}

func (c *Controller) activeGen(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st != nil && c.st.gen == gen
}

// clearGen clears only if gen is still the active overlay.
func (c *Controller) clearGen(ctx context.Context, gen uint64) error {
	if !c.activeGen(gen) {
		return nil
	}
	return c.Clear(ctx)
}

func (c *Controller) armDismiss(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st != nil && c.st.gen == gen {
		c.st.armed = true
	}
}

func (c *Controller) pointerDown(gen uint64) {
	c.mu.Lock()
	dismiss := c.st != nil && c.st.gen == gen && c.st.armed
	c.mu.Unlock()
	if !dismiss {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.passTimeout)
	defer cancel()
	if err := c.clearGen(ctx, gen); err != nil {
		c.logger.Warnf("dismiss failed: %v", err)
	}
}

func (c *Controller) requestReposition(gen uint64) {
	c.mu.Lock()
	ready := c.st != nil && c.st.gen == gen && c.st.painted
	c.mu.Unlock()
	if ready {
		c.frames.Request(func() { c.asyncPass(gen) })
	}
}

func (c *Controller) asyncPass(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.passTimeout)
	defer cancel()
	if err := c.reposition(ctx, gen); err != nil {
		c.logger.Warnf("reposition failed: %v", err)
	}
}

// reposition measures the target and repaints. A detached target clears the
// overlay.
func (c *Controller) reposition(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	st := c.st
	if st == nil || st.gen != gen {
		c.mu.Unlock()
		return nil
	}
	id, selector, description, capability := st.id, st.selector, st.description, st.capability
	c.mu.Unlock()

	m, err := c.page.Measure(ctx, selector)
	if err != nil {
		return fmt.Errorf("failed to measure %q: %w", selector, err)
	}
	if !m.Attached {
		c.logger.Infof("overlay target %q detached", selector)
		return c.clearGen(ctx, gen)
	}
	frame := Layout(id, m.Rect, m.Viewport, capability, description)

	c.paintMu.Lock()
	defer c.paintMu.Unlock()
	if !c.activeGen(gen) {
		return nil
	}
	if err := c.page.Paint(ctx, frame); err != nil {
		return fmt.Errorf("failed to paint overlay: %w", err)
	}

	c.mu.Lock()
	if c.st == st {
		st.painted = true
		st.last = frame
	}
	c.mu.Unlock()
	return nil
}
