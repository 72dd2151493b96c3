package view

import (
	"context"
	"sync"
	"time"
)

// monitorHandle controls one polling loop.
type monitorHandle struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newMonitorHandle() *monitorHandle {
	return &monitorHandle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// signal asks the loop to exit without waiting for it. Idempotent.
func (h *monitorHandle) signal() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// halt signals the loop and waits for it to exit.
func (h *monitorHandle) halt() {
	h.signal()
	<-h.done
}

// runMonitor polls fn on the given interval until the handle is
// stopped or fn reports the monitored unit is gone. An initial poll
// runs immediately so a freshly started monitor reports within one
// probe, not one interval.
func runMonitor(h *monitorHandle, interval time.Duration, fn func(ctx context.Context) bool) {
	defer close(h.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// done also releases the watcher: the loop can exit without
		// ever being signalled when the monitored unit disappears.
		select {
		case <-h.stop:
			cancel()
		case <-h.done:
		}
	}()

	if !fn(ctx) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			if !fn(ctx) {
				return
			}
		}
	}
}
