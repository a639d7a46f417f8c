package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/beacon/pkg/dom"
	"github.com/entrhq/beacon/pkg/overlay"
	"github.com/entrhq/beacon/pkg/voice"
)

func inline(fn func()) { fn() }

func TestDispatcher_RoutesByKind(t *testing.T) {
	d := newDispatcher()
	d.run = inline

	var viewport, pointer int
	id := d.add(overlay.Events{
		OnViewportChange: func() { viewport++ },
		OnPointerDown:    func() { pointer++ },
	})
	assert.Equal(t, 1, d.count())

	d.handle(id, "viewport")
	d.handle(id, "viewport")
	d.handle(id, "pointer")
	d.handle(id, "unknown")
	d.handle("other", "pointer")
	d.handle(id)

	assert.Equal(t, 2, viewport)
	assert.Equal(t, 1, pointer)

	d.remove(id)
	d.handle(id, "viewport")
	assert.Equal(t, 2, viewport)
	assert.Equal(t, 0, d.count())
}

func TestDispatcher_NilHandlers(t *testing.T) {
	d := newDispatcher()
	d.run = inline
	id := d.add(overlay.Events{})
	assert.NotPanics(t, func() {
		d.handle(id, "viewport")
		d.handle(id, "pointer")
	})
}

func TestVoiceRouter_ForwardsUntilEnd(t *testing.T) {
	v := &voiceRouter{run: inline}

	var got []string
	ended := 0
	v.set(&voice.RecognitionEvents{
		OnResult: func(text string, final bool) {
			if final {
				text += "!"
			}
			got = append(got, text)
		},
		OnError: func(code string) { got = append(got, "error:"+code) },
		OnEnd:   func() { ended++ },
	})

	v.handle("result", "open", false)
	v.handle("result", "open settings", true)
	v.handle("error", "no-speech")
	v.handle("end")
	v.handle("result", "ignored", true)

	assert.Equal(t, []string{"open", "open settings!", "error:no-speech"}, got)
	assert.Equal(t, 1, ended)
}

func TestVoiceRouter_NoListener(t *testing.T) {
	v := &voiceRouter{run: inline}
	assert.NotPanics(t, func() {
		v.handle("result", "hello", true)
		v.handle()
	})
}

func TestSerialQueue_PreservesOrder(t *testing.T) {
	q := newSerialQueue()
	out := make(chan int, 10)
	for i := 0; i < 10; i++ {
		n := i
		q.push(func() { out <- n })
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, <-out)
	}
	q.close()
	q.close()
	assert.NotPanics(t, func() { q.push(func() {}) })
}

func TestDecodeResult(t *testing.T) {
	var s string
	require.NoError(t, decodeResult(`{"url":"x"}`, &s))
	assert.Equal(t, `{"url":"x"}`, s)

	var n int
	require.NoError(t, decodeResult(float64(3), &n))
	assert.Equal(t, 3, n)

	var m measureResult
	raw := map[string]interface{}{
		"attached": true,
		"rect":     map[string]interface{}{"x": 10.0, "y": 20.0, "width": 30.0, "height": 40.0},
		"viewport": map[string]interface{}{"width": 800.0, "height": 600.0},
	}
	require.NoError(t, decodeResult(raw, &m))
	assert.True(t, m.Attached)
	assert.Equal(t, dom.Rect{X: 10, Y: 20, Width: 30, Height: 40}, m.Rect)
	assert.Equal(t, 800.0, m.Viewport.Width)

	var b bool
	assert.Error(t, decodeResult("yes", &b))
}

func TestToArg(t *testing.T) {
	arg, err := toArg(struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{"frame", 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "frame", "count": 2.0}, arg)
}

func TestMediaCode(t *testing.T) {
	assert.NoError(t, mediaCode(""))
	assert.NoError(t, mediaCode("interrupted"))
	assert.NoError(t, mediaCode("canceled"))
	assert.ErrorIs(t, mediaCode("unsupported"), ErrSpeechUnsupported)
	assert.ErrorContains(t, mediaCode("synthesis-failed"), "synthesis-failed")
}

func TestSessionManager_RequiresInitialize(t *testing.T) {
	m := NewSessionManager()
	_, err := m.StartSession("main", SessionOptions{Headless: true})
	assert.ErrorContains(t, err, "not initialized")

	assert.ErrorContains(t, m.CloseSession("main"), "not found")
	assert.NoError(t, m.Shutdown())
}
