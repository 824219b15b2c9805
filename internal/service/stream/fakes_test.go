package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/frame/frametest"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/service/capture"
)

// liveSource produces a new frame on every read until released. When failAfter
// is positive the read after that many frames fails permanently.
type liveSource struct {
	tracker   *frametest.Tracker
	failAfter int
	noFrames  bool

	mu       sync.Mutex
	n        int
	released int
	reads    int
}

func (s *liveSource) Read() (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.released > 0 {
		return nil, capture.ErrClosed
	}
	if s.noFrames {
		return nil, capture.ErrNoFrame
	}
	if s.failAfter > 0 && s.n >= s.failAfter {
		return nil, errors.New("stream ended")
	}
	s.n++
	return s.tracker.New(s.n), nil
}

func (s *liveSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

func (s *liveSource) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func (s *liveSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// fakeOpener hands out liveSources. A non-nil gate blocks opens until it is
// closed or the worker context ends.
type fakeOpener struct {
	tracker   *frametest.Tracker
	err       error
	gate      chan struct{}
	failAfter int
	noFrames  bool

	opens   atomic.Int32
	mu      sync.Mutex
	sources []*liveSource
}

func (o *fakeOpener) Open(ctx context.Context, protocol model.Protocol, source string) (capture.Source, error) {
	o.opens.Add(1)
	if o.gate != nil {
		select {
		case <-o.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if o.err != nil {
		return nil, o.err
	}
	src := &liveSource{tracker: o.tracker, failAfter: o.failAfter, noFrames: o.noFrames}
	o.mu.Lock()
	o.sources = append(o.sources, src)
	o.mu.Unlock()
	return src, nil
}

func (o *fakeOpener) source(i int) *liveSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i >= len(o.sources) {
		return nil
	}
	return o.sources[i]
}

// openerByCamera routes opens by camera source.
type openerByCamera map[string]*fakeOpener

func (m openerByCamera) Open(ctx context.Context, protocol model.Protocol, source string) (capture.Source, error) {
	return m[source].Open(ctx, protocol, source)
}

// echoProcessor returns the frame id as the payload.
type echoProcessor struct {
	calls atomic.Int32
}

func (p *echoProcessor) Process(camera *model.Camera, f frame.Frame) ([]byte, []dto.DetectionResult) {
	p.calls.Add(1)
	return []byte{byte(frametest.ID(f))}, nil
}

func testWorkerOptions() WorkerOptions {
	return WorkerOptions{
		ReadRetry:   5 * time.Millisecond,
		Pacing:      time.Millisecond,
		StopTimeout: time.Second,
	}
}

func testCamera(id string) model.Camera {
	return model.Camera{ID: id, Name: "cam-" + id, Protocol: model.ProtocolUSB, Source: id}
}

func nopLogger() *logger.Logger {
	return logger.Nop()
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// stuckSource blocks inside Read while holding its lock until unblock is
// closed, so Release waits behind the pending read.
type stuckSource struct {
	mu       sync.Mutex
	unblock  chan struct{}
	entered  chan struct{}
	once     sync.Once
	released atomic.Bool
}

func newStuckSource() *stuckSource {
	return &stuckSource{unblock: make(chan struct{}), entered: make(chan struct{})}
}

func (s *stuckSource) Read() (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.once.Do(func() { close(s.entered) })
	<-s.unblock
	return nil, capture.ErrClosed
}

func (s *stuckSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released.Store(true)
	return nil
}

// sourceOpener returns a prepared source.
type sourceOpener struct {
	src capture.Source
}

func (o sourceOpener) Open(ctx context.Context, protocol model.Protocol, source string) (capture.Source, error) {
	return o.src, nil
}
