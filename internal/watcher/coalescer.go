package watcher

import (
	"sync"
	"time"
)

// Coalescer collapses bursts of events for the same path into one event
// emitted after the path has been quiet for the debounce window.
type Coalescer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	events  chan FileEvent
	stopped bool
}

type pendingEvent struct {
	event FileEvent
	timer *time.Timer
}

// NewCoalescer creates a Coalescer with the given debounce window.
func NewCoalescer(window time.Duration) *Coalescer {
	return &Coalescer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		events:  make(chan FileEvent, 256),
	}
}

// Add schedules event, merging it with any pending event for the same path.
func (c *Coalescer) Add(event FileEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	path := event.Path

	if pe, exists := c.pending[path]; exists {
		// emit() checks the pending map, so a timer that already fired is harmless.
		pe.timer.Stop()
		pe.event = merge(pe.event, event)
		pe.timer = time.AfterFunc(c.window, func() {
			c.emit(path)
		})
		return
	}

	pe := &pendingEvent{event: event}
	pe.timer = time.AfterFunc(c.window, func() {
		c.emit(path)
	})
	c.pending[path] = pe
}

// Events returns the channel of coalesced events.
func (c *Coalescer) Events() <-chan FileEvent {
	return c.events
}

// Stop discards pending events and closes the events channel.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true

	for path, pe := range c.pending {
		pe.timer.Stop()
		delete(c.pending, path)
	}
	close(c.events)
}

// PendingCount returns the number of pending events.
func (c *Coalescer) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coalescer) emit(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pe, exists := c.pending[path]
	if !exists || c.stopped {
		return
	}
	delete(c.pending, path)

	select {
	case c.events <- pe.event:
	default:
		// Buffer full; the next write to the file produces a fresh event.
	}
}

// merge combines two events for the same path. Created wins so that a new
// file written in several chunks is still handled as a creation.
func merge(prev, next FileEvent) FileEvent {
	if prev.Kind == Created || next.Kind == Created {
		return FileEvent{Path: next.Path, Kind: Created}
	}
	return next
}
