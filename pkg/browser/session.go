package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/beacon/pkg/dom"
	"github.com/entrhq/beacon/pkg/overlay"
)

// bind exposes the page callbacks and watches main-frame navigation. It is
// called once, before the first navigation.
func (s *Session) bind() error {
	if err := s.Page.ExposeFunction(eventBinding, s.events.handle); err != nil {
		return fmt.Errorf("failed to expose %s: %w", eventBinding, err)
	}
	if err := s.Page.ExposeFunction(voiceBinding, s.voice.handle); err != nil {
		return fmt.Errorf("failed to expose %s: %w", voiceBinding, err)
	}
	s.Page.OnFrameNavigated(func(f playwright.Frame) {
		if f != s.Page.MainFrame() {
			return
		}
		s.mu.Lock()
		fn := s.onNavigated
		s.mu.Unlock()
		if fn != nil {
			url := f.URL()
			go fn(url)
		}
	})
	return nil
}

// OnNavigated registers fn to run after every main-frame navigation.
func (s *Session) OnNavigated(fn func(url string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onNavigated = fn
}

// URL returns the URL of the page.
func (s *Session) URL() string {
	return s.Page.URL()
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	playwrightOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// evaluate runs script with arg and decodes the result into out (when
// non-nil) through JSON.
func (s *Session) evaluate(ctx context.Context, script string, arg interface{}, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		result interface{}
		err    error
	)
	if arg == nil {
		result, err = s.Page.Evaluate(script)
	} else {
		result, err = s.Page.Evaluate(script, arg)
	}
	if err != nil {
		return fmt.Errorf("page script failed: %w", err)
	}
	if out == nil {
		return nil
	}
	return decodeResult(result, out)
}

func decodeResult(result interface{}, out interface{}) error {
	if s, ok := result.(string); ok {
		if sp, ok := out.(*string); ok {
			*sp = s
			return nil
		}
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to re-encode script result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unexpected script result: %w", err)
	}
	return nil
}

// toArg converts v into the plain maps and slices Playwright serializes.
func toArg(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Document mirrors the live page into a dom.Document.
func (s *Session) Document(ctx context.Context) (*dom.Document, error) {
	var payload string
	if err := s.evaluate(ctx, mirrorScript, MaxMirrorNodes, &payload); err != nil {
		return nil, err
	}
	return dom.Decode([]byte(payload))
}

type measureResult struct {
	Error    string       `json:"error"`
	Attached bool         `json:"attached"`
	Rect     dom.Rect     `json:"rect"`
	Viewport dom.Viewport `json:"viewport"`
}

// Measure implements overlay.Page.
func (s *Session) Measure(ctx context.Context, selector string) (overlay.Measurement, error) {
	var r measureResult
	if err := s.evaluate(ctx, measureScript, selector, &r); err != nil {
		return overlay.Measurement{}, err
	}
	if r.Error != "" {
		return overlay.Measurement{}, fmt.Errorf("invalid selector %q: %s", selector, r.Error)
	}
	return overlay.Measurement{Rect: r.Rect, Viewport: r.Viewport, Attached: r.Attached}, nil
}

// ScrollIntoView implements overlay.Page.
func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	var found bool
	if err := s.evaluate(ctx, scrollScript, selector, &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no element matches %q", selector)
	}
	return nil
}

// Paint implements overlay.Page.
func (s *Session) Paint(ctx context.Context, frame overlay.Frame) error {
	arg, err := toArg(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return s.evaluate(ctx, paintScript, arg, nil)
}

// Erase implements overlay.Page.
func (s *Session) Erase(ctx context.Context) error {
	var removed int
	if err := s.evaluate(ctx, eraseScript, nil, &removed); err != nil {
		return err
	}
	if removed > 0 {
		debugLog.Debugf("erased %d overlay nodes", removed)
	}
	return nil
}

// Subscribe implements overlay.Page.
func (s *Session) Subscribe(ctx context.Context, events overlay.Events) (func(), error) {
	id := s.events.add(events)
	if err := s.evaluate(ctx, subscribeScript, id, nil); err != nil {
		s.events.remove(id)
		return nil, err
	}
	return func() {
		s.events.remove(id)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.evaluate(ctx, unsubscribeScript, id, nil); err != nil {
			// The page may have navigated away, taking the listeners with it.
			debugLog.Debugf("unsubscribe %s: %v", id, err)
		}
	}, nil
}

// close releases goroutines owned by the session.
func (s *Session) close() {
	s.voice.close()
}
