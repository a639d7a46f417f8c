// Package voice turns spoken input into navigate commands.
//
// Final transcripts are accumulated and submitted once the user has been quiet
// for the quiet period, so a sentence spoken with pauses becomes one command.
package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/beacon/pkg/logging"
)

// DefaultQuietPeriod is how long the listener waits after the last final
// transcript before submitting.
const DefaultQuietPeriod = 1200 * time.Millisecond

// ErrAlreadyListening is returned by Start while a session is running.
var ErrAlreadyListening = errors.New("already listening")

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("voice")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize voice logger, using stderr fallback: %v", err)
	}
}

// RecognitionEvents receives recognizer callbacks. Callbacks may arrive on any
// goroutine.
type RecognitionEvents struct {
	OnResult func(transcript string, final bool)
	OnError  func(code string)
	OnEnd    func()
}

// Recognizer is a continuous speech recognizer.
type Recognizer interface {
	Start(ctx context.Context, lang string, events RecognitionEvents) error
	Stop(ctx context.Context) error
}

// SubmitFunc receives a complete utterance.
type SubmitFunc func(ctx context.Context, text string)

// Listener accumulates transcripts and submits them after a quiet period.
type Listener struct {
	rec      Recognizer
	submit   SubmitFunc
	debounce *Debouncer

	onInterim func(string)
	onError   func(*RecognitionError)

	mu        sync.Mutex
	ctx       context.Context
	lang      string
	buf       []string
	listening bool
	gen       uint64

	inflight sync.WaitGroup
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod(d time.Duration) ListenerOption {
	return func(l *Listener) {
		l.debounce = NewDebouncer(d)
	}
}

// WithInterimHandler receives the running transcript while the user speaks.
func WithInterimHandler(fn func(string)) ListenerOption {
	return func(l *Listener) {
		l.onInterim = fn
	}
}

// WithErrorHandler receives recognition failures that need user action.
func WithErrorHandler(fn func(*RecognitionError)) ListenerOption {
	return func(l *Listener) {
		l.onError = fn
	}
}

// NewListener creates a listener that calls submit with each utterance.
func NewListener(rec Recognizer, submit SubmitFunc, opts ...ListenerOption) *Listener {
	l := &Listener{rec: rec, submit: submit, debounce: NewDebouncer(DefaultQuietPeriod)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Listening reports whether a recognition session is running.
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

// Start begins a recognition session in lang.
func (l *Listener) Start(ctx context.Context, lang string) error {
	l.mu.Lock()
	if l.listening {
		l.mu.Unlock()
		return ErrAlreadyListening
	}
	l.listening = true
	l.ctx = ctx
	l.lang = lang
	l.buf = nil
	l.gen++
	l.mu.Unlock()

	err := l.rec.Start(ctx, lang, l.events())
	if err != nil {
		l.mu.Lock()
		l.listening = false
		l.mu.Unlock()
		return err
	}
	debugLog.Debugf("listening (%s)", lang)
	return nil
}

// Stop ends the session. Speech already transcribed is submitted right away
// without waiting for the command to finish; Wait joins it.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	was := l.listening
	l.listening = false
	l.gen++
	l.mu.Unlock()
	if !was {
		return nil
	}
	err := l.rec.Stop(ctx)
	l.debounce.Flush()
	return err
}

// Wait blocks until every submitted utterance has been handled.
func (l *Listener) Wait() {
	l.inflight.Wait()
}

func (l *Listener) events() RecognitionEvents {
	return RecognitionEvents{
		OnResult: l.handleResult,
		OnError:  l.handleError,
		OnEnd:    l.handleEnd,
	}
}

func (l *Listener) handleResult(transcript string, final bool) {
	transcript = strings.TrimSpace(transcript)
	l.mu.Lock()
	if !l.listening {
		l.mu.Unlock()
		return
	}
	if !final {
		running := strings.Join(append(append([]string(nil), l.buf...), transcript), " ")
		l.mu.Unlock()
		if l.onInterim != nil {
			l.onInterim(strings.TrimSpace(running))
		}
		return
	}
	if transcript != "" {
		l.buf = append(l.buf, transcript)
	}
	l.mu.Unlock()

	l.debounce.Trigger(l.submitBuffered)
}

func (l *Listener) submitBuffered() {
	l.mu.Lock()
	text := strings.TrimSpace(strings.Join(l.buf, " "))
	l.buf = nil
	ctx := l.ctx
	l.mu.Unlock()

	if text == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	debugLog.Infof("submitting voice command (%d chars)", len(text))
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		l.submit(ctx, text)
	}()
}

func (l *Listener) handleError(code string) {
	rerr := MapError(code)
	if rerr == nil {
		return
	}
	debugLog.Warnf("recognition error: %v", rerr)

	l.mu.Lock()
	l.listening = false
	l.buf = nil
	l.gen++
	l.mu.Unlock()
	l.debounce.Stop()

	if l.onError != nil {
		l.onError(rerr)
	}
}

// handleEnd runs when the recognizer stops. An end we did not ask for
// (silence timeout, engine restart) starts a new recognition session so
// voice input stays on.
func (l *Listener) handleEnd() {
	l.debounce.Flush()

	l.mu.Lock()
	running, ctx, lang, gen := l.listening, l.ctx, l.lang, l.gen
	l.mu.Unlock()
	if !running {
		return
	}
	// The end callback arrives on the recognizer's own goroutine.
	go l.restart(ctx, lang, gen)
}

func (l *Listener) restart(ctx context.Context, lang string, gen uint64) {
	if ctx == nil {
		ctx = context.Background()
	}
	err := ctx.Err()
	if err == nil {
		err = l.rec.Start(ctx, lang, l.events())
	}

	l.mu.Lock()
	current := l.listening && l.gen == gen
	if err != nil && current {
		l.listening = false
		l.gen++
	}
	l.mu.Unlock()

	switch {
	case err == nil && !current:
		// Stopped while restarting
		_ = l.rec.Stop(context.Background())
	case err == nil:
		debugLog.Debugf("recognition restarted (%s)", lang)
	case current:
		debugLog.Warnf("failed to restart recognition: %v", err)
		if l.onError != nil {
			l.onError(&RecognitionError{
				Code:        "restart",
				Err:         err,
				Remediation: "Voice input stopped unexpectedly. Please try again.",
			})
		}
	}
}
