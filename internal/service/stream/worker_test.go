package stream

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/frame/frametest"
	"github.com/jarupong555/Detec-V1.0/internal/service/capture"
)

func TestWorker_StartStopReleasesSource(t *testing.T) {
	tracker := &frametest.Tracker{}
	opener := &fakeOpener{tracker: tracker}
	w := NewWorker(testCamera("a"), opener, testWorkerOptions(), nopLogger())

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("second Start should be a no-op: %v", err)
	}
	if opener.opens.Load() != 1 {
		t.Errorf("source opened %d times, expected 1", opener.opens.Load())
	}

	if !waitFor(func() bool { _, _, ok := w.Latest(); return ok }) {
		t.Fatal("worker never produced a frame")
	}

	w.Stop()
	w.Stop()

	select {
	case <-w.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
	if w.State() != StateStopped {
		t.Errorf("state %v, expected stopped", w.State())
	}
	if got := opener.source(0).releaseCount(); got != 1 {
		t.Errorf("source released %d times, expected 1", got)
	}
	if _, _, ok := w.Latest(); ok {
		t.Error("Latest should be empty after Stop")
	}
	if tracker.Open() != 0 {
		t.Errorf("%d frames left open", tracker.Open())
	}
}

func TestWorker_LatestIsConsistentUnderConcurrency(t *testing.T) {
	tracker := &frametest.Tracker{}
	opts := testWorkerOptions()
	opts.Pacing = 0
	w := NewWorker(testCamera("a"), &fakeOpener{tracker: tracker}, opts, nopLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for j := 0; j < 200; j++ {
				f, seq, ok := w.Latest()
				if !ok {
					continue
				}
				if seq < last {
					errs <- errors.New("sequence went backwards")
					f.Close()
					return
				}
				// Frames are numbered in read order, so the id always equals the sequence.
				if uint64(frametest.ID(f)) != seq {
					errs <- errors.New("frame does not match its sequence number")
					f.Close()
					return
				}
				last = seq
				f.Close()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	w.Stop()
	if tracker.Open() != 0 {
		t.Errorf("%d frames left open", tracker.Open())
	}
}

func TestWorker_RetriesTransientReads(t *testing.T) {
	opener := &fakeOpener{tracker: &frametest.Tracker{}, noFrames: true}
	w := NewWorker(testCamera("a"), opener, testWorkerOptions(), nopLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if !waitFor(func() bool { return opener.source(0).readCount() >= 3 }) {
		t.Fatal("worker did not keep retrying")
	}
	if !w.Running() {
		t.Error("transient failures must not stop the worker")
	}
}

func TestWorker_FatalReadStopsWorker(t *testing.T) {
	opener := &fakeOpener{tracker: &frametest.Tracker{}, failAfter: 2}
	w := NewWorker(testCamera("a"), opener, testWorkerOptions(), nopLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker kept running after an unrecoverable read error")
	}
	if opener.source(0).releaseCount() != 1 {
		t.Error("source not released after fatal error")
	}
}

func TestWorker_OpenFailureLeavesWorkerStopped(t *testing.T) {
	openErr := &capture.OpenError{Source: "0", Err: errors.New("no device")}
	w := NewWorker(testCamera("a"), &fakeOpener{tracker: &frametest.Tracker{}, err: openErr}, testWorkerOptions(), nopLogger())

	err := w.Start()
	var got *capture.OpenError
	if !errors.As(err, &got) {
		t.Fatalf("expected OpenError, got %v", err)
	}
	if w.State() != StateStopped {
		t.Errorf("state %v, expected stopped", w.State())
	}
	if err := w.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("restart of stopped worker = %v, expected ErrStopped", err)
	}
}

func TestWorker_StopAbortsStartInProgress(t *testing.T) {
	opener := &fakeOpener{tracker: &frametest.Tracker{}, gate: make(chan struct{})}
	w := NewWorker(testCamera("a"), opener, testWorkerOptions(), nopLogger())

	errc := make(chan error, 1)
	go func() { errc <- w.Start() }()

	if !waitFor(func() bool { return opener.opens.Load() == 1 }) {
		t.Fatal("open never attempted")
	}
	w.Stop()

	select {
	case err := <-errc:
		if err == nil {
			t.Error("Start should fail when stopped during open")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	if w.Running() {
		t.Error("worker running after Stop")
	}
}

func TestWorker_StopIsBoundedWhenReadIsStuck(t *testing.T) {
	tests := []struct {
		name     string
		buffered bool
	}{
		{"direct source", false},
		{"buffered source", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stuck := newStuckSource()
			var src capture.Source = stuck
			if tt.buffered {
				src = capture.NewBuffer(stuck, capture.BufferOptions{Capacity: 2, PopTimeout: 20 * time.Millisecond}, nopLogger())
			}

			opts := testWorkerOptions()
			opts.StopTimeout = 100 * time.Millisecond
			w := NewWorker(testCamera("a"), sourceOpener{src: src}, opts, nopLogger())
			if err := w.Start(); err != nil {
				t.Fatalf("Start: %v", err)
			}
			<-stuck.entered

			stopped := make(chan struct{})
			go func() {
				w.Stop()
				close(stopped)
			}()

			select {
			case <-stopped:
			case <-time.After(2 * time.Second):
				t.Fatal("Stop blocked behind a stuck read")
			}
			select {
			case <-w.Done():
			default:
				t.Fatal("Done not closed after Stop")
			}
			if w.State() != StateStopped {
				t.Errorf("state %v, expected stopped", w.State())
			}

			close(stuck.unblock)
			if !waitFor(stuck.released.Load) {
				t.Error("source never released once the read returned")
			}
		})
	}
}
