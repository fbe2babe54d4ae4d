package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerRunsOnlyLatest(t *testing.T) {
	d := NewDebouncer()
	var first, second atomic.Int32
	done := make(chan struct{})

	d.Schedule(20*time.Millisecond, func() { first.Add(1) })
	d.Schedule(20*time.Millisecond, func() { second.Add(1); close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced task did not fire")
	}
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "rescheduling must cancel the earlier task")
	assert.Equal(t, int32(1), second.Load())
	assert.False(t, d.Pending())
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer()
	var ran atomic.Bool
	d.Schedule(10*time.Millisecond, func() { ran.Store(true) })
	assert.True(t, d.Pending())
	assert.True(t, d.Cancel())
	time.Sleep(30 * time.Millisecond)
	assert.False(t, ran.Load())
	assert.False(t, d.Cancel(), "nothing left to cancel")
}

func TestDebouncerFlush(t *testing.T) {
	d := NewDebouncer()
	var ran atomic.Int32
	d.Schedule(time.Hour, func() { ran.Add(1) })

	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), ran.Load())
	assert.False(t, d.Flush(), "flush with nothing pending is a no-op")
}
