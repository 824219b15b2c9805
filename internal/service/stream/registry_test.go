package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/frame/frametest"
	"github.com/jarupong555/Detec-V1.0/internal/service/capture"
)

func TestRegistry_ConcurrentEnsureCreatesOneWorker(t *testing.T) {
	gate := make(chan struct{})
	opener := &fakeOpener{tracker: &frametest.Tracker{}, gate: gate}
	r := NewRegistry(opener, testWorkerOptions(), nopLogger())
	defer r.StopAll()

	const callers = 16
	workers := make([]*Worker, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := r.Ensure(context.Background(), testCamera("a"))
			if err != nil {
				t.Errorf("Ensure: %v", err)
				return
			}
			workers[i] = w
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := opener.opens.Load(); got != 1 {
		t.Fatalf("source opened %d times, expected 1", got)
	}
	for i := 1; i < callers; i++ {
		if workers[i] != workers[0] {
			t.Fatalf("caller %d received a different worker", i)
		}
	}
	if r.Len() != 1 {
		t.Errorf("registry holds %d workers, expected 1", r.Len())
	}
}

func TestRegistry_StopThenEnsureCreatesFreshWorker(t *testing.T) {
	opener := &fakeOpener{tracker: &frametest.Tracker{}}
	r := NewRegistry(opener, testWorkerOptions(), nopLogger())
	defer r.StopAll()

	first, err := r.Ensure(context.Background(), testCamera("a"))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !r.Running("a") {
		t.Fatal("camera should be running")
	}

	if !r.Stop("a") {
		t.Fatal("Stop reported no worker")
	}
	if r.Stop("a") {
		t.Error("second Stop should report no worker")
	}
	if r.Running("a") {
		t.Error("camera still running after Stop")
	}
	if opener.source(0).releaseCount() != 1 {
		t.Error("source not released on Stop")
	}

	second, err := r.Ensure(context.Background(), testCamera("a"))
	if err != nil {
		t.Fatalf("Ensure after Stop: %v", err)
	}
	if second == first {
		t.Error("expected a fresh worker")
	}
}

func TestRegistry_OpenFailureIsNotRegistered(t *testing.T) {
	opener := &fakeOpener{tracker: &frametest.Tracker{}, err: &capture.OpenError{Source: "x"}}
	r := NewRegistry(opener, testWorkerOptions(), nopLogger())

	_, err := r.Ensure(context.Background(), testCamera("a"))
	var openErr *capture.OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected OpenError, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("failed worker left in registry")
	}
}

func TestRegistry_CamerasStartIndependently(t *testing.T) {
	slow := &fakeOpener{tracker: &frametest.Tracker{}, gate: make(chan struct{})}
	fast := &fakeOpener{tracker: &frametest.Tracker{}}
	r := NewRegistry(openerByCamera{"slow": slow, "fast": fast}, testWorkerOptions(), nopLogger())
	defer r.StopAll()

	go r.Ensure(context.Background(), testCamera("slow"))
	if !waitFor(func() bool { return slow.opens.Load() == 1 }) {
		t.Fatal("slow camera never started opening")
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Ensure(context.Background(), testCamera("fast"))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Ensure fast: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("a slow camera blocked another camera from starting")
	}
	close(slow.gate)
}

func TestRegistry_StopAbortsWarmingWorker(t *testing.T) {
	opener := &fakeOpener{tracker: &frametest.Tracker{}, gate: make(chan struct{})}
	r := NewRegistry(opener, testWorkerOptions(), nopLogger())

	errc := make(chan error, 1)
	go func() {
		_, err := r.Ensure(context.Background(), testCamera("a"))
		errc <- err
	}()
	if !waitFor(func() bool { return opener.opens.Load() == 1 }) {
		t.Fatal("open never attempted")
	}

	if !r.Stop("a") {
		t.Fatal("Stop should find the starting worker")
	}
	select {
	case err := <-errc:
		if err == nil {
			t.Error("Ensure should fail once the camera is stopped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Ensure did not return after Stop")
	}
	if r.Len() != 0 {
		t.Error("registry not empty")
	}
}

func TestRegistry_EnsureHonorsCallerContext(t *testing.T) {
	opener := &fakeOpener{tracker: &frametest.Tracker{}, gate: make(chan struct{})}
	r := NewRegistry(opener, testWorkerOptions(), nopLogger())
	defer r.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := r.Ensure(ctx, testCamera("a")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// The departed caller does not abort the warm-up; the next caller joins it.
	close(opener.gate)
	w, err := r.Ensure(context.Background(), testCamera("a"))
	if err != nil {
		t.Fatalf("Ensure after warm-up: %v", err)
	}
	if !w.Running() {
		t.Error("worker should be running")
	}
	if opener.opens.Load() != 1 {
		t.Errorf("source opened %d times, expected the warm-up to be reused", opener.opens.Load())
	}
}
