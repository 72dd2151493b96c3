package view

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunMonitorStopsOnSignal(t *testing.T) {
	h := newMonitorHandle()
	var polls atomic.Int32
	go runMonitor(h, time.Millisecond, func(ctx context.Context) bool {
		polls.Add(1)
		return true
	})

	assert.Eventually(t, func() bool { return polls.Load() >= 2 }, time.Second, time.Millisecond)
	h.halt()

	select {
	case <-h.done:
	default:
		t.Fatal("halt returned before the loop exited")
	}
}

func TestRunMonitorWatcherExitsWhenPollEndsLoop(t *testing.T) {
	before := runtime.NumGoroutine()

	// Each run spawns one cancellation watcher; when the first poll
	// reports the unit gone, the loop exits without ever being
	// signalled and the watcher must exit with it.
	for i := 0; i < 50; i++ {
		h := newMonitorHandle()
		runMonitor(h, time.Hour, func(context.Context) bool { return false })
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, time.Second, 10*time.Millisecond)
}

func TestRunMonitorCancelsInFlightPollOnStop(t *testing.T) {
	h := newMonitorHandle()
	polling := make(chan struct{})
	var pollCtx context.Context

	go runMonitor(h, time.Hour, func(ctx context.Context) bool {
		pollCtx = ctx
		close(polling)
		<-ctx.Done()
		return false
	})

	<-polling
	h.halt()
	assert.ErrorIs(t, pollCtx.Err(), context.Canceled)
}
