// Package stream runs one acquisition worker per camera and turns its latest
// frames into a multipart JPEG stream.
package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/service/capture"
)

// ErrStopped is returned by Start on a worker that was already stopped.
var ErrStopped = errors.New("worker stopped")

// State is the lifecycle state of a Worker.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Opener opens the source of a camera. capture.Adapter implements it.
type Opener interface {
	Open(ctx context.Context, protocol model.Protocol, source string) (capture.Source, error)
}

// WorkerOptions tune the read loop.
type WorkerOptions struct {
	ReadRetry   time.Duration // wait after a transient read failure
	Pacing      time.Duration // pause after each stored frame
	StopTimeout time.Duration // bound on waiting for the loop in Stop
}

// DefaultWorkerOptions returns the production timings.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		ReadRetry:   time.Second,
		Pacing:      10 * time.Millisecond,
		StopTimeout: 3 * time.Second,
	}
}

// Worker owns the source of one camera and keeps its most recent frame.
type Worker struct {
	camera model.Camera
	opener Opener
	opts   WorkerOptions
	logger *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32

	startMu     sync.Mutex
	mu          sync.Mutex // guards src, started and state transitions
	src         capture.Source
	started     bool
	releaseOnce sync.Once
	stopOnce    sync.Once

	cellMu sync.Mutex
	latest frame.Frame
	seq    uint64

	loopDone chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// NewWorker creates an idle worker for camera.
func NewWorker(camera model.Camera, opener Opener, opts WorkerOptions, log *logger.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		camera:   camera,
		opener:   opener,
		opts:     opts,
		logger:   log,
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Camera returns the camera this worker serves.
func (w *Worker) Camera() model.Camera {
	return w.camera
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Running reports whether the read loop is active.
func (w *Worker) Running() bool {
	return w.State() == StateRunning
}

// Done is closed once the worker has stopped.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Start opens the source and launches the read loop. It is a no-op on a
// running worker. Open failures leave the worker stopped.
func (w *Worker) Start() error {
	w.startMu.Lock()
	defer w.startMu.Unlock()

	switch w.State() {
	case StateRunning:
		return nil
	case StateStopping, StateStopped:
		return ErrStopped
	}

	src, err := w.opener.Open(w.ctx, w.camera.Protocol, w.camera.Source)
	if err != nil {
		w.logger.Error("Camera %s: %v", w.camera.ID, err)
		w.cancel()
		w.finish()
		return err
	}

	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		src.Release()
		w.finish()
		return ErrStopped
	}
	w.src = src
	w.started = true
	w.state.Store(int32(StateRunning))
	w.mu.Unlock()

	go w.loop(src)
	w.logger.Info("Camera %s: worker started (%s %s)", w.camera.ID, w.camera.Protocol, w.camera.Source)
	return nil
}

func (w *Worker) loop(src capture.Source) {
	defer close(w.loopDone)
	defer func() {
		if w.ctx.Err() == nil {
			// The source failed on its own.
			w.cancel()
			w.finish()
			w.releaseSource()
		}
	}()

	for {
		if w.ctx.Err() != nil {
			return
		}

		f, err := src.Read()
		if err != nil {
			if capture.IsTransient(err) {
				if !w.sleep(w.opts.ReadRetry) {
					return
				}
				continue
			}
			if w.ctx.Err() == nil {
				w.logger.Error("Camera %s: read failed, stopping worker: %v", w.camera.ID, err)
			}
			return
		}

		w.store(f)
		if !w.sleep(w.opts.Pacing) {
			return
		}
	}
}

// sleep waits d unless the worker is cancelled first. It reports whether the
// worker is still live.
func (w *Worker) sleep(d time.Duration) bool {
	if d <= 0 {
		return w.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-w.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (w *Worker) store(f frame.Frame) {
	w.cellMu.Lock()
	defer w.cellMu.Unlock()

	if w.ctx.Err() != nil {
		f.Close()
		return
	}
	if w.latest != nil {
		w.latest.Close()
	}
	w.latest = f
	w.seq++
}

// Latest returns a copy of the most recent frame and its sequence number.
// The caller owns the returned frame.
func (w *Worker) Latest() (frame.Frame, uint64, bool) {
	w.cellMu.Lock()
	defer w.cellMu.Unlock()

	if w.latest == nil {
		return nil, 0, false
	}
	return w.latest.Clone(), w.seq, true
}

// Stop cancels the worker, marks it stopped and releases its source. Waiting
// for the release and the read loop is bounded by the stop timeout, so a read
// stuck inside the source cannot hold Stop. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()

		w.mu.Lock()
		if w.State() != StateStopped {
			w.state.Store(int32(StateStopping))
		}
		started := w.started
		w.mu.Unlock()

		w.finish()

		released := make(chan struct{})
		go func() {
			defer close(released)
			w.releaseSource()
		}()

		if started {
			timer := time.NewTimer(w.opts.StopTimeout)
			defer timer.Stop()
			for _, ch := range []<-chan struct{}{released, w.loopDone} {
				select {
				case <-ch:
				case <-timer.C:
					w.logger.Warning("Camera %s: source did not stop within %v", w.camera.ID, w.opts.StopTimeout)
					return
				}
			}
		}
		w.logger.Info("Camera %s: worker stopped", w.camera.ID)
	})
}

func (w *Worker) releaseSource() {
	w.releaseOnce.Do(func() {
		w.mu.Lock()
		src := w.src
		w.mu.Unlock()
		if src == nil {
			return
		}
		if err := src.Release(); err != nil {
			w.logger.Warning("Camera %s: release failed: %v", w.camera.ID, err)
		}
	})
}

func (w *Worker) finish() {
	w.doneOnce.Do(func() {
		w.state.Store(int32(StateStopped))

		w.cellMu.Lock()
		if w.latest != nil {
			w.latest.Close()
			w.latest = nil
		}
		w.cellMu.Unlock()

		close(w.done)
	})
}
