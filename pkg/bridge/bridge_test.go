package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/beacon/pkg/dom"
)

type staticSource struct {
	html string
	err  error
}

func (s staticSource) Document(ctx context.Context) (*dom.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return dom.Parse(strings.NewReader(s.html), "https://shop.test/")
}

type recordingOverlay struct {
	mu      sync.Mutex
	shown   []string
	cleared int
	result  bool
	err     error
}

func (o *recordingOverlay) Show(ctx context.Context, selector, description string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shown = append(o.shown, selector+"|"+description)
	return o.result, o.err
}

func (o *recordingOverlay) Clear(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cleared++
	return errors.New("nothing to clear")
}

func serve(t *testing.T, h Handler) *Client {
	t.Helper()
	port := NewPort()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = port.Serve(ctx, h)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, port.Serving, time.Second, time.Millisecond)
	return NewClient(port)
}

func TestClient_NoReceiver(t *testing.T) {
	c := NewClient(NewPort())

	_, err := c.GetPageContent(context.Background())
	assert.ErrorIs(t, err, ErrNoReceiver)
	assert.ErrorIs(t, c.ClearHighlights(context.Background()), ErrNoReceiver)
}

func TestPageHandler_RoundTrip(t *testing.T) {
	ov := &recordingOverlay{result: true}
	c := serve(t, NewPageHandler(staticSource{html: `<title>Shop</title><main><p>Deals</p><button id="signin">Sign in</button></main>`}, nil, ov))
	ctx := context.Background()

	snap, err := c.GetPageContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Shop", snap.Title)
	require.Len(t, snap.InteractiveElements, 1)
	assert.Equal(t, "#signin", snap.InteractiveElements[0].Selector)

	ok, err := c.HighlightElement(ctx, "#signin", "Sign in button")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"#signin|Sign in button"}, ov.shown)

	// clearHighlights always reports success
	require.NoError(t, c.ClearHighlights(ctx))
	assert.Equal(t, 1, ov.cleared)
}

func TestPageHandler_Failures(t *testing.T) {
	ov := &recordingOverlay{err: errors.New("page closed")}
	c := serve(t, NewPageHandler(staticSource{err: errors.New("navigating")}, nil, ov))
	ctx := context.Background()

	_, err := c.GetPageContent(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoReceiver)
	assert.Contains(t, err.Error(), "navigating")

	ok, err := c.HighlightElement(ctx, "#x", "")
	require.NoError(t, err)
	assert.False(t, ok)

	resp, err := c.Send(ctx, &Request{Action: "reload"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown action")
}

func TestSend_EchoesIDs(t *testing.T) {
	c := serve(t, HandlerFunc(func(ctx context.Context, req *Request) *Response {
		return &Response{ID: "overwritten", Success: true}
	}))

	resp, err := c.Send(context.Background(), &Request{ID: "req-1", Action: ActionClearHighlights})
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.ID)

	req := &Request{Action: ActionClearHighlights}
	resp, err = c.Send(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, req.ID, resp.ID)
}

func TestServe_SingleReceiver(t *testing.T) {
	port := NewPort()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = port.Serve(ctx, HandlerFunc(func(context.Context, *Request) *Response { return nil })) }()
	require.Eventually(t, port.Serving, time.Second, time.Millisecond)

	assert.ErrorIs(t, port.Serve(ctx, nil), ErrAlreadyServing)
}

func TestServe_StopDetaches(t *testing.T) {
	port := NewPort()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- port.Serve(ctx, HandlerFunc(func(context.Context, *Request) *Response { return &Response{Success: true} })) }()
	require.Eventually(t, port.Serving, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.False(t, port.Serving())

	_, err := NewClient(port).Send(context.Background(), &Request{Action: ActionClearHighlights})
	assert.ErrorIs(t, err, ErrNoReceiver)
}

func TestSend_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := serve(t, HandlerFunc(func(context.Context, *Request) *Response {
		<-block
		return &Response{Success: true}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Send(ctx, &Request{Action: ActionGetPageContent})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
