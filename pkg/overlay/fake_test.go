package overlay

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/beacon/pkg/dom"
)

// fakePage is an in-memory Page over a static document. Painted overlays are
// kept per frame ID, so a controller that forgot to erase would leave more
// than one triple behind.
type fakePage struct {
	mu       sync.Mutex
	doc      *dom.Document
	painted  map[string]Frame
	detached map[string]bool
	events   Events
	listen   int
	measures int
	erases   int
	scrolled []string
}

func newFakePage(t *testing.T, src string) *fakePage {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(src), "https://example.com/")
	require.NoError(t, err)
	return &fakePage{
		doc:      doc,
		painted:  make(map[string]Frame),
		detached: make(map[string]bool),
	}
}

func (p *fakePage) Document(ctx context.Context) (*dom.Document, error) {
	return p.doc, nil
}

func (p *fakePage) Measure(ctx context.Context, selector string) (Measurement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measures++
	m := Measurement{Viewport: p.doc.Viewport()}
	if p.detached[selector] {
		return m, nil
	}
	n, err := p.doc.Query(selector)
	if err != nil || n == nil {
		return m, nil
	}
	l, _ := p.doc.Layout(n)
	m.Rect, m.Attached = l.Rect, true
	return m, nil
}

func (p *fakePage) ScrollIntoView(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolled = append(p.scrolled, selector)
	return nil
}

func (p *fakePage) Paint(ctx context.Context, frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.painted[frame.ID] = frame
	return nil
}

func (p *fakePage) Erase(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.erases++
	p.painted = make(map[string]Frame)
	return nil
}

func (p *fakePage) Subscribe(ctx context.Context, events Events) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = events
	p.listen++
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.listen--
			p.events = Events{}
		})
	}, nil
}

func (p *fakePage) detach(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detached[selector] = true
}

func (p *fakePage) scroll() {
	p.mu.Lock()
	fn := p.events.OnViewportChange
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (p *fakePage) click() {
	p.mu.Lock()
	fn := p.events.OnPointerDown
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (p *fakePage) triples() []Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Frame, 0, len(p.painted))
	for _, f := range p.painted {
		out = append(out, f)
	}
	return out
}

func (p *fakePage) listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listen
}

func (p *fakePage) measureCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.measures
}
