package overlay

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameScheduler_Coalesces(t *testing.T) {
	s := NewFrameScheduler(time.Hour)
	var ran, last atomic.Int32

	assert.True(t, s.Request(func() { ran.Add(1); last.Store(1) }))
	assert.False(t, s.Request(func() { ran.Add(1); last.Store(2) }))
	assert.False(t, s.Request(func() { ran.Add(1); last.Store(3) }))
	assert.True(t, s.Pending())

	s.Flush()
	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, int32(3), last.Load(), "latest request wins")
	assert.False(t, s.Pending())
}

func TestFrameScheduler_Fires(t *testing.T) {
	s := NewFrameScheduler(5 * time.Millisecond)
	done := make(chan struct{})

	s.Request(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pending task never ran")
	}
	assert.False(t, s.Pending())
}

func TestFrameScheduler_Cancel(t *testing.T) {
	s := NewFrameScheduler(time.Hour)
	var ran atomic.Bool

	s.Request(func() { ran.Store(true) })
	s.Cancel()
	s.Flush()
	assert.False(t, ran.Load())
}

func TestFrameScheduler_ZeroIntervalRunsInline(t *testing.T) {
	s := NewFrameScheduler(0)
	n := 0
	s.Request(func() { n++ })
	s.Request(func() { n++ })
	assert.Equal(t, 2, n)
}
