// Package frametest provides in-memory frames for tests.
package frametest

import (
	"sync"
	"sync/atomic"

	"github.com/jarupong555/Detec-V1.0/internal/frame"
)

// Tracker counts frames that are still open so tests can assert that every
// frame handed out was closed.
type Tracker struct {
	open atomic.Int64
}

// Open returns the number of frames created by this tracker and not yet closed.
func (t *Tracker) Open() int64 {
	return t.open.Load()
}

// New creates a frame tagged with id.
func (t *Tracker) New(id int) *Frame {
	t.open.Add(1)
	return &Frame{ID: id, tracker: t}
}

// Frame is a fake frame identified by ID.
type Frame struct {
	ID      int
	tracker *Tracker

	mu     sync.Mutex
	closed bool
}

// Clone returns a new open frame with the same ID.
func (f *Frame) Clone() frame.Frame {
	return f.tracker.New(f.ID)
}

// Close marks the frame closed. Closing twice panics so double frees surface in tests.
func (f *Frame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		panic("frametest: frame closed twice")
	}
	f.closed = true
	f.tracker.open.Add(-1)
	return nil
}

// Closed reports whether Close was called.
func (f *Frame) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// ID returns the fake id of fr, or -1 when fr is not a frametest frame.
func ID(fr frame.Frame) int {
	if f, ok := fr.(*Frame); ok {
		return f.ID
	}
	return -1
}
