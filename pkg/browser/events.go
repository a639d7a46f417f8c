package browser

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/entrhq/beacon/pkg/overlay"
	"github.com/entrhq/beacon/pkg/voice"
)

// Names of the functions exposed to page scripts.
const (
	eventBinding = "__beaconEvent"
	voiceBinding = "__beaconVoice"
)

// dispatcher routes page events to overlay subscriptions. Handlers run on
// their own goroutine: Playwright delivers bindings on its connection
// goroutine, and a handler that calls back into the page from there would
// deadlock.
type dispatcher struct {
	mu   sync.Mutex
	subs map[string]overlay.Events
	run  func(func())
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		subs: make(map[string]overlay.Events),
		run:  func(fn func()) { go fn() },
	}
}

func (d *dispatcher) add(ev overlay.Events) string {
	id := uuid.NewString()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[id] = ev
	return id
}

func (d *dispatcher) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, id)
}

func (d *dispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// handle is the exposed binding: args are (subscriptionID, kind).
func (d *dispatcher) handle(args ...interface{}) interface{} {
	if len(args) < 2 {
		return nil
	}
	id := fmt.Sprint(args[0])
	kind := fmt.Sprint(args[1])

	d.mu.Lock()
	ev, ok := d.subs[id]
	d.mu.Unlock()
	if !ok {
		return nil
	}

	var fn func()
	switch kind {
	case "viewport":
		fn = ev.OnViewportChange
	case "pointer":
		fn = ev.OnPointerDown
	}
	if fn != nil {
		d.run(fn)
	}
	return nil
}

// serialQueue runs functions one at a time, in order, off the caller's
// goroutine.
type serialQueue struct {
	mu     sync.Mutex
	ch     chan func()
	closed bool
}

func newSerialQueue() *serialQueue {
	q := &serialQueue{ch: make(chan func(), 64)}
	go func() {
		for fn := range q.ch {
			fn()
		}
	}()
	return q
}

func (q *serialQueue) push(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.ch <- fn
	}
}

func (q *serialQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// voiceRouter forwards recognition callbacks to the active listener. Results
// must keep their order, so they go through a serial queue.
type voiceRouter struct {
	mu     sync.Mutex
	events *voice.RecognitionEvents
	queue  *serialQueue
	run    func(func())
}

func newVoiceRouter() *voiceRouter {
	q := newSerialQueue()
	return &voiceRouter{queue: q, run: q.push}
}

func (v *voiceRouter) close() {
	if v.queue != nil {
		v.queue.close()
	}
}

func (v *voiceRouter) set(ev *voice.RecognitionEvents) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = ev
}

// handle is the exposed binding: args are (kind, payload, final).
func (v *voiceRouter) handle(args ...interface{}) interface{} {
	if len(args) < 1 {
		return nil
	}
	v.mu.Lock()
	ev := v.events
	v.mu.Unlock()
	if ev == nil {
		return nil
	}

	kind := fmt.Sprint(args[0])
	payload := ""
	if len(args) > 1 && args[1] != nil {
		payload = fmt.Sprint(args[1])
	}
	final := false
	if len(args) > 2 {
		final, _ = args[2].(bool)
	}

	switch kind {
	case "result":
		if ev.OnResult != nil {
			v.run(func() { ev.OnResult(payload, final) })
		}
	case "error":
		if ev.OnError != nil {
			v.run(func() { ev.OnError(payload) })
		}
	case "end":
		v.set(nil)
		if ev.OnEnd != nil {
			v.run(ev.OnEnd)
		}
	}
	return nil
}
