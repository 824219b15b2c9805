package capture

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/frame/frametest"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestBuffer_DropsOldestWhenFull(t *testing.T) {
	tracker := &frametest.Tracker{}
	src := &scriptedSource{tracker: tracker, total: 10}

	buf := NewBuffer(src, BufferOptions{Capacity: 3, TargetFPS: 1000, RetryDelay: time.Millisecond, PopTimeout: 50 * time.Millisecond}, logger.Nop())
	defer buf.Release()

	waitFor(t, 2*time.Second, func() bool { return buf.Dropped() == 7 })

	if buf.Len() != 3 || buf.Cap() != 3 {
		t.Fatalf("Len/Cap = %d/%d, expected 3/3", buf.Len(), buf.Cap())
	}

	for _, want := range []int{8, 9, 10} {
		f, err := buf.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if got := frametest.ID(f); got != want {
			t.Errorf("Read returned frame %d, expected %d", got, want)
		}
		f.Close()
	}

	// Evicted frames were closed by the buffer.
	if open := tracker.Open(); open != 0 {
		t.Errorf("%d frames left open", open)
	}
}

func TestBuffer_ReadTimesOutWhenEmpty(t *testing.T) {
	src := &scriptedSource{tracker: &frametest.Tracker{}}
	buf := NewBuffer(src, BufferOptions{Capacity: 2, RetryDelay: time.Millisecond, PopTimeout: 20 * time.Millisecond}, logger.Nop())
	defer buf.Release()

	start := time.Now()
	_, err := buf.Read()
	if !errors.Is(err, ErrNoFrame) || !IsTransient(err) {
		t.Fatalf("expected transient ErrNoFrame, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Read returned before the pop timeout")
	}
}

func TestBuffer_ReleaseIsIdempotentAndDrains(t *testing.T) {
	tracker := &frametest.Tracker{}
	src := &scriptedSource{tracker: tracker, total: 5}
	buf := NewBuffer(src, BufferOptions{Capacity: 10, RetryDelay: time.Millisecond}, logger.Nop())

	waitFor(t, time.Second, func() bool { return buf.Len() == 5 })

	if err := buf.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := buf.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	if src.releaseCount() != 1 {
		t.Errorf("underlying source released %d times, expected 1", src.releaseCount())
	}
	if tracker.Open() != 0 {
		t.Errorf("%d queued frames not closed", tracker.Open())
	}
	if _, err := buf.Read(); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Release = %v, expected ErrClosed", err)
	}
}

// pendingSource blocks one read until unblock is closed and then hands out
// a frame. Release never waits on the read.
type pendingSource struct {
	tracker  *frametest.Tracker
	unblock  chan struct{}
	entered  chan struct{}
	released atomic.Bool
	served   atomic.Bool
	once     sync.Once
}

func (s *pendingSource) Read() (frame.Frame, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.unblock
	f := s.tracker.New(1)
	s.served.Store(true)
	return f, nil
}

func (s *pendingSource) Release() error {
	s.released.Store(true)
	return nil
}

func TestBuffer_ReleaseDoesNotWaitForPendingRead(t *testing.T) {
	tracker := &frametest.Tracker{}
	src := &pendingSource{tracker: tracker, unblock: make(chan struct{}), entered: make(chan struct{})}
	buf := NewBuffer(src, BufferOptions{Capacity: 2, RetryDelay: time.Millisecond}, logger.Nop())
	<-src.entered

	released := make(chan struct{})
	go func() {
		buf.Release()
		close(released)
	}()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Release waited for the pending read")
	}
	if !src.released.Load() {
		t.Error("underlying source not released")
	}

	close(src.unblock)
	waitFor(t, time.Second, func() bool { return src.served.Load() && tracker.Open() == 0 })
}
