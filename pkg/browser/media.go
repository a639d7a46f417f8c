package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/beacon/pkg/speech"
	"github.com/entrhq/beacon/pkg/voice"
)

// ErrSpeechUnsupported means the page has no speech API.
var ErrSpeechUnsupported = errors.New("speech is not supported in this browser")

const stopTimeout = 2 * time.Second

// awaitScript runs a promise-returning script and waits for it, or for ctx.
// On cancellation, stop is evaluated so the promise settles in the page.
func (s *Session) awaitScript(ctx context.Context, script string, arg interface{}, stop string) (string, error) {
	type outcome struct {
		code string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		var code string
		err := s.evaluate(context.Background(), script, arg, &code)
		done <- outcome{code, err}
	}()

	select {
	case o := <-done:
		return o.code, o.err
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = s.evaluate(stopCtx, stop, nil, nil)
		return "", ctx.Err()
	}
}

// mediaCode maps a script's resolution code onto an error. Interruptions are
// not failures: they happen whenever newer speech replaces older speech.
func mediaCode(code string) error {
	switch code {
	case "", "interrupted", "canceled":
		return nil
	case "unsupported":
		return ErrSpeechUnsupported
	}
	return fmt.Errorf("speech failed: %s", code)
}

type speechEngine struct{ s *Session }

// SpeechEngine returns the page's speechSynthesis as a speech.Engine.
func (s *Session) SpeechEngine() speech.Engine {
	return speechEngine{s}
}

func (e speechEngine) Speak(ctx context.Context, u speech.Utterance) error {
	arg := map[string]interface{}{"text": u.Text, "lang": u.Lang, "rate": u.Rate, "pitch": u.Pitch}
	code, err := e.s.awaitScript(ctx, speakScript, arg, stopSpeechScript)
	if err != nil {
		return err
	}
	return mediaCode(code)
}

func (e speechEngine) Stop(ctx context.Context) error {
	return e.s.evaluate(ctx, stopSpeechScript, nil, nil)
}

type audioPlayer struct{ s *Session }

// AudioPlayer returns a speech.Player that plays audio inside the page.
func (s *Session) AudioPlayer() speech.Player {
	return audioPlayer{s}
}

func (p audioPlayer) Play(ctx context.Context, audio []byte, mime string) error {
	arg := map[string]interface{}{"mime": mime, "data": base64.StdEncoding.EncodeToString(audio)}
	code, err := p.s.awaitScript(ctx, playAudioScript, arg, stopAudioScript)
	if err != nil {
		return err
	}
	return mediaCode(code)
}

func (p audioPlayer) Stop(ctx context.Context) error {
	return p.s.evaluate(ctx, stopAudioScript, nil, nil)
}

type recognizer struct{ s *Session }

// Recognizer returns the page's SpeechRecognition as a voice.Recognizer.
func (s *Session) Recognizer() voice.Recognizer {
	return recognizer{s}
}

func (r recognizer) Start(ctx context.Context, lang string, events voice.RecognitionEvents) error {
	r.s.voice.set(&events)
	var code string
	if err := r.s.evaluate(ctx, recognizeScript, lang, &code); err != nil {
		r.s.voice.set(nil)
		return err
	}
	if code != "" {
		r.s.voice.set(nil)
		if code == "unsupported" {
			return ErrSpeechUnsupported
		}
		return fmt.Errorf("speech recognition failed to start: %s", code)
	}
	return nil
}

func (r recognizer) Stop(ctx context.Context) error {
	return r.s.evaluate(ctx, stopRecognitionScript, nil, nil)
}
