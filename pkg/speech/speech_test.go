package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingEngine speaks until released or cancelled.
type blockingEngine struct {
	mu      sync.Mutex
	spoken  []Utterance
	stops   int
	started chan struct{}
	release chan struct{}
}

func newBlockingEngine() *blockingEngine {
	return &blockingEngine{started: make(chan struct{}, 10), release: make(chan struct{})}
}

func (e *blockingEngine) Speak(ctx context.Context, u Utterance) error {
	e.mu.Lock()
	e.spoken = append(e.spoken, u)
	e.mu.Unlock()
	e.started <- struct{}{}
	select {
	case <-e.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *blockingEngine) Stop(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
	return nil
}

func (e *blockingEngine) texts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.spoken))
	for i, u := range e.spoken {
		out[i] = u.Text
	}
	return out
}

type instantEngine struct{ blockingEngine }

func (e *instantEngine) Speak(ctx context.Context, u Utterance) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spoken = append(e.spoken, u)
	return nil
}

type fakeSynth struct {
	audio []byte
	err   error
}

func (s fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return s.audio, s.err
}

type fakePlayer struct {
	mu     sync.Mutex
	played [][]byte
}

func (p *fakePlayer) Play(ctx context.Context, audio []byte, mime string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, audio)
	return nil
}

func (p *fakePlayer) Stop(context.Context) error { return nil }

func TestNarrator_NewRequestSupersedesOld(t *testing.T) {
	engine := newBlockingEngine()
	n := NewNarrator(engine, nil, nil)

	first := make(chan error, 1)
	go func() {
		_, err := n.Speak(context.Background(), "first")
		first <- err
	}()
	<-engine.started
	assert.True(t, n.Speaking())

	second := make(chan error, 1)
	go func() {
		_, err := n.Speak(context.Background(), "second")
		second <- err
	}()

	select {
	case err := <-first:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("first request was not cancelled")
	}

	<-engine.started
	close(engine.release)
	require.NoError(t, <-second)
	assert.Equal(t, []string{"first", "second"}, engine.texts())
	assert.False(t, n.Speaking())
}

func TestNarrator_StopCancels(t *testing.T) {
	engine := newBlockingEngine()
	n := NewNarrator(engine, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := n.Speak(context.Background(), "long answer")
		done <- err
	}()
	<-engine.started

	n.Stop(context.Background())
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.False(t, n.Speaking())
}

func TestNarrator_Routing(t *testing.T) {
	engine := &instantEngine{}
	player := &fakePlayer{}
	n := NewNarrator(engine, fakeSynth{audio: []byte("mp3")}, player)

	used, err := n.Speak(context.Background(), "browser please")
	require.NoError(t, err)
	assert.Equal(t, EngineBrowser, used)

	opts := DefaultOptions
	opts.UseRemote = true
	opts.Rate = 1.5
	n.SetOptions(opts)

	used, err = n.Speak(context.Background(), "remote please")
	require.NoError(t, err)
	assert.Equal(t, EngineRemote, used)
	assert.Equal(t, [][]byte{[]byte("mp3")}, player.played)
	assert.Equal(t, []string{"browser please"}, engine.texts())
	assert.Equal(t, 1.0, engine.spoken[0].Rate)
}

func TestNarrator_RemoteFailureFallsBack(t *testing.T) {
	engine := &instantEngine{}
	n := NewNarrator(engine, fakeSynth{err: errors.New("quota exceeded")}, &fakePlayer{})
	n.SetOptions(Options{Lang: "fr-FR", Rate: 1, Pitch: 1, UseRemote: true})

	used, err := n.Speak(context.Background(), "bonjour")
	require.NoError(t, err)
	assert.Equal(t, EngineBrowser, used)
	require.Len(t, engine.spoken, 1)
	assert.Equal(t, "fr-FR", engine.spoken[0].Lang)
}

func TestNarrator_EmptyTextIsNoop(t *testing.T) {
	engine := &instantEngine{}
	n := NewNarrator(engine, nil, nil)

	_, err := n.Speak(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, engine.spoken)
}

func TestRemoteClient_Request(t *testing.T) {
	var got synthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		assert.Equal(t, AudioMIME, r.Header.Get("Accept"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", AudioMIME)
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	c, err := NewRemoteClient("secret", WithRemoteBaseURL(srv.URL+"/"), WithVoice("voice-1"))
	require.NoError(t, err)

	audio, err := c.Synthesize(context.Background(), "Click the Sign in button.")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), audio)
	assert.Equal(t, "Click the Sign in button.", got.Text)
	assert.Equal(t, DefaultRemoteModel, got.ModelID)
	assert.Equal(t, DefaultVoiceSettings, got.VoiceSettings)
}

func TestRemoteClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested detail", `{"detail":{"status":"quota_exceeded","message":"You have 0 credits left."}}`, "You have 0 credits left."},
		{"string detail", `{"detail":"Invalid API key"}`, "Invalid API key"},
		{"top-level message", `{"message":"Voice not found"}`, "Voice not found"},
		{"plain text", `upstream timeout`, "upstream timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewRemoteClient("k", WithRemoteBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = c.Synthesize(context.Background(), "hi")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestRemoteClient_Cancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	// Runs before srv.Close so the handler never outlives the test.
	defer close(release)

	c, err := NewRemoteClient("k", WithRemoteBaseURL(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Synthesize(ctx, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRemoteClient_RequiresKey(t *testing.T) {
	_, err := NewRemoteClient(" ")
	assert.Error(t, err)
}
