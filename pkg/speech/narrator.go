// Package speech speaks responses aloud.
//
// Speech is single-flight: every Speak takes a new request id and cancels
// whatever was speaking before. A request that has been superseded returns
// ErrSuperseded instead of its own result, so late completions never race the
// caller's state.
package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/entrhq/beacon/pkg/logging"
)

// ErrSuperseded is returned by a Speak call that was replaced by a newer one or
// stopped.
var ErrSuperseded = errors.New("speech superseded")

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("speech")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize speech logger, using stderr fallback: %v", err)
	}
}

// Utterance is one request to the local synthesizer.
type Utterance struct {
	Text  string
	Lang  string
	Rate  float64
	Pitch float64
}

// Engine is the local synthesizer (the browser's speechSynthesis). Speak
// blocks until the utterance ends or ctx is done.
type Engine interface {
	Speak(ctx context.Context, u Utterance) error
	Stop(ctx context.Context) error
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player plays synthesized audio. Play blocks until playback ends or ctx is
// done.
type Player interface {
	Play(ctx context.Context, audio []byte, mime string) error
	Stop(ctx context.Context) error
}

// Options control voice output.
type Options struct {
	Lang  string
	Rate  float64
	Pitch float64

	// UseRemote routes speech through the remote synthesizer when one is
	// configured.
	UseRemote bool
}

// DefaultOptions are used by a new Narrator.
var DefaultOptions = Options{Lang: "en-US", Rate: 1.0, Pitch: 1.0}

// Engine names reported by Speak.
const (
	EngineBrowser = "browser"
	EngineRemote  = "remote"
)

// Narrator routes text to remote or local speech, one request at a time.
type Narrator struct {
	engine Engine
	remote Synthesizer
	player Player

	mu     sync.Mutex
	opts   Options
	seq    uint64
	cancel context.CancelFunc
}

// NewNarrator creates a narrator. remote and player may be nil, in which case
// every request uses engine.
func NewNarrator(engine Engine, remote Synthesizer, player Player) *Narrator {
	return &Narrator{engine: engine, remote: remote, player: player, opts: DefaultOptions}
}

// SetOptions replaces the voice options for subsequent requests.
func (n *Narrator) SetOptions(o Options) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opts = o
}

// Options returns the current voice options.
func (n *Narrator) Options() Options {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.opts
}

// Speaking reports whether a request is in flight.
func (n *Narrator) Speaking() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancel != nil
}

func (n *Narrator) begin(ctx context.Context) (uint64, context.Context, Options) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
	}
	n.seq++
	reqCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	return n.seq, reqCtx, n.opts
}

func (n *Narrator) current(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seq == id
}

func (n *Narrator) finish(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seq == id && n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

// Speak speaks text and returns the engine that was used. It cancels any
// request in flight. When this request is itself superseded before it ends it
// returns ErrSuperseded.
func (n *Narrator) Speak(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	id, reqCtx, opts := n.begin(ctx)
	defer n.finish(id)

	if text == "" {
		return "", nil
	}

	// Stop anything the previous request left playing.
	n.stopOutputs(reqCtx)

	if opts.UseRemote && n.remote != nil && n.player != nil {
		audio, err := n.remote.Synthesize(reqCtx, text)
		if !n.current(id) {
			return EngineRemote, ErrSuperseded
		}
		if err == nil {
			err = n.player.Play(reqCtx, audio, AudioMIME)
			if !n.current(id) {
				return EngineRemote, ErrSuperseded
			}
			if err == nil {
				return EngineRemote, nil
			}
		}
		if ctx.Err() != nil {
			return EngineRemote, ctx.Err()
		}
		debugLog.Warnf("remote speech failed, falling back to browser speech: %v", err)
	}

	err := n.engine.Speak(reqCtx, Utterance{Text: text, Lang: opts.Lang, Rate: opts.Rate, Pitch: opts.Pitch})
	if !n.current(id) {
		return EngineBrowser, ErrSuperseded
	}
	return EngineBrowser, err
}

// Stop cancels the request in flight, if any, and silences both outputs.
func (n *Narrator) Stop(ctx context.Context) {
	n.mu.Lock()
	n.seq++
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.mu.Unlock()

	n.stopOutputs(ctx)
}

func (n *Narrator) stopOutputs(ctx context.Context) {
	if err := n.engine.Stop(ctx); err != nil {
		debugLog.Debugf("stop browser speech: %v", err)
	}
	if n.player != nil {
		if err := n.player.Stop(ctx); err != nil {
			debugLog.Debugf("stop audio: %v", err)
		}
	}
}
