package capture

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
)

const (
	defaultBufferRetry = 50 * time.Millisecond
	defaultPopTimeout  = time.Second
)

// BufferOptions configure a smoothing Buffer.
type BufferOptions struct {
	Capacity   int
	TargetFPS  int
	RetryDelay time.Duration // wait after a failed raw read
	PopTimeout time.Duration // how long Read waits for a queued frame
}

// Buffer decouples a jittery network source from its consumer. A background
// goroutine keeps reading into a bounded queue, evicting the oldest frame when
// full, and Read hands frames out at the target frame rate.
type Buffer struct {
	src        Source
	queue      chan frame.Frame
	interval   time.Duration
	retry      time.Duration
	popTimeout time.Duration

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
	logger  *logger.Logger
}

// NewBuffer wraps src and starts the acquisition goroutine.
func NewBuffer(src Source, opts BufferOptions, log *logger.Logger) *Buffer {
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultBufferRetry
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = defaultPopTimeout
	}

	b := &Buffer{
		src:        src,
		queue:      make(chan frame.Frame, opts.Capacity),
		retry:      opts.RetryDelay,
		popTimeout: opts.PopTimeout,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     log,
	}
	if opts.TargetFPS > 0 {
		b.interval = time.Second / time.Duration(opts.TargetFPS)
	}

	go b.acquire()
	return b
}

func (b *Buffer) acquire() {
	defer close(b.done)
	defer b.drain()

	for {
		select {
		case <-b.stop:
			return
		default:
		}

		f, err := b.src.Read()
		if err != nil {
			if errors.Is(err, ErrClosed) {
				b.logger.Warning("Buffered source ended: %v", err)
				return
			}
			select {
			case <-b.stop:
				return
			case <-time.After(b.retry):
			}
			continue
		}

		select {
		case <-b.stop:
			f.Close()
			return
		default:
		}
		b.push(f)
	}
}

// push enqueues f, evicting the oldest frames until it fits.
func (b *Buffer) push(f frame.Frame) {
	for {
		select {
		case b.queue <- f:
			return
		default:
		}

		select {
		case old := <-b.queue:
			old.Close()
			b.dropped.Add(1)
		default:
		}
	}
}

// Read pops the oldest queued frame, waiting up to the pop timeout. It returns
// ErrNoFrame on timeout and ErrClosed after Release or once the source ended and
// the queue is empty.
func (b *Buffer) Read() (frame.Frame, error) {
	select {
	case <-b.stop:
		return nil, ErrClosed
	default:
	}

	timer := time.NewTimer(b.popTimeout)
	defer timer.Stop()

	select {
	case f := <-b.queue:
		b.pace()
		return f, nil
	case <-b.done:
		select {
		case f := <-b.queue:
			return f, nil
		default:
			return nil, ErrClosed
		}
	case <-b.stop:
		return nil, ErrClosed
	case <-timer.C:
		return nil, ErrNoFrame
	}
}

func (b *Buffer) pace() {
	if b.interval <= 0 {
		return
	}
	select {
	case <-time.After(b.interval):
	case <-b.stop:
	}
}

// Release stops acquisition, releases the wrapped source and closes queued
// frames. It does not wait for an in-flight read; the acquisition goroutine
// closes anything it still holds when that read returns.
func (b *Buffer) Release() error {
	var err error
	b.once.Do(func() {
		close(b.stop)
		err = b.src.Release()
		b.drain()
	})
	return err
}

func (b *Buffer) drain() {
	for {
		select {
		case f := <-b.queue:
			f.Close()
		default:
			return
		}
	}
}

// Len is the number of frames currently queued.
func (b *Buffer) Len() int { return len(b.queue) }

// Cap is the queue capacity.
func (b *Buffer) Cap() int { return cap(b.queue) }

// Dropped is the number of frames evicted because the queue was full.
func (b *Buffer) Dropped() uint64 { return b.dropped.Load() }
