// Package bridge carries request/response messages between the command side
// (popup, TUI, headless runner) and the on-page side that owns the document.
//
// Three actions exist:
//
//	getPageContent                       -> Snapshot
//	highlightElement {selector, desc}    -> {success}
//	clearHighlights                      -> {success: true}
//
// Every request gets exactly one response. A Port has at most one receiver;
// sending while nothing serves the port fails fast with ErrNoReceiver.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/entrhq/beacon/pkg/logging"
	"github.com/entrhq/beacon/pkg/snapshot"
)

// Action names a message type.
type Action string

const (
	ActionGetPageContent   Action = "getPageContent"
	ActionHighlightElement Action = "highlightElement"
	ActionClearHighlights  Action = "clearHighlights"
)

var (
	// ErrNoReceiver means no on-page side is serving the port. The caller may
	// retry once the page has loaded.
	ErrNoReceiver = errors.New("could not establish connection: receiving end does not exist")

	// ErrAlreadyServing is returned by Serve when the port already has a
	// receiver.
	ErrAlreadyServing = errors.New("port already has a receiver")
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("bridge")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize bridge logger, using stderr fallback: %v", err)
	}
}

// Request is a message sent to the on-page side.
type Request struct {
	ID          string `json:"id"`
	Action      Action `json:"action"`
	Selector    string `json:"selector,omitempty"`
	Description string `json:"description,omitempty"`
}

// Response answers a Request with the same ID.
type Response struct {
	ID       string             `json:"id"`
	Success  bool               `json:"success"`
	Snapshot *snapshot.Snapshot `json:"snapshot,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Handler serves requests on the on-page side.
type Handler interface {
	HandleMessage(ctx context.Context, req *Request) *Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) *Response

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}

type envelope struct {
	req   *Request
	reply chan *Response
}

// Port is an asynchronous message channel with a single receiver.
type Port struct {
	inbox chan envelope

	mu   sync.Mutex
	stop chan struct{}
}

// NewPort creates a port with no receiver.
func NewPort() *Port {
	return &Port{inbox: make(chan envelope)}
}

// Serving reports whether a receiver is attached.
func (p *Port) Serving() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Serve attaches h as the receiver and handles requests one at a time until
// ctx is done. Requests are handled in arrival order so page reads and
// overlay writes never interleave.
func (p *Port) Serve(ctx context.Context, h Handler) error {
	p.mu.Lock()
	if p.stop != nil {
		p.mu.Unlock()
		return ErrAlreadyServing
	}
	stop := make(chan struct{})
	p.stop = stop
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.stop = nil
		close(stop)
		p.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-p.inbox:
			resp := h.HandleMessage(ctx, env.req)
			if resp == nil {
				resp = &Response{Error: "no response"}
			}
			resp.ID = env.req.ID
			env.reply <- resp
		}
	}
}

// Client sends requests over a port.
type Client struct {
	port *Port
}

// NewClient creates a client for port.
func NewClient(port *Port) *Client {
	return &Client{port: port}
}

// Send delivers req and waits for its response. A missing ID is filled in.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	c.port.mu.Lock()
	stop := c.port.stop
	c.port.mu.Unlock()
	if stop == nil {
		return nil, ErrNoReceiver
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	env := envelope{req: req, reply: make(chan *Response, 1)}

	select {
	case c.port.inbox <- env:
	case <-stop:
		return nil, ErrNoReceiver
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-env.reply:
		return resp, nil
	case <-stop:
		// The receiver replies before it detaches, so a reply may already
		// be waiting.
		select {
		case resp := <-env.reply:
			return resp, nil
		default:
			return nil, ErrNoReceiver
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetPageContent requests a fresh snapshot.
func (c *Client) GetPageContent(ctx context.Context) (*snapshot.Snapshot, error) {
	resp, err := c.Send(ctx, &Request{Action: ActionGetPageContent})
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Snapshot == nil {
		return nil, fmt.Errorf("page content unavailable: %s", resp.Error)
	}
	return resp.Snapshot, nil
}

// HighlightElement asks the page to show the overlay on selector. The bool is
// the page's success flag.
func (c *Client) HighlightElement(ctx context.Context, selector, description string) (bool, error) {
	resp, err := c.Send(ctx, &Request{
		Action:      ActionHighlightElement,
		Selector:    selector,
		Description: description,
	})
	if err != nil {
		return false, err
	}
	if resp.Error != "" {
		debugLog.Warnf("highlight %q failed on page: %s", selector, resp.Error)
	}
	return resp.Success, nil
}

// ClearHighlights asks the page to remove the overlay.
func (c *Client) ClearHighlights(ctx context.Context) error {
	resp, err := c.Send(ctx, &Request{Action: ActionClearHighlights})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("clear highlights: %s", resp.Error)
	}
	return nil
}
