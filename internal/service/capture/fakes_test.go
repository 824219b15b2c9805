package capture

import (
	"errors"
	"sync"

	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/frame/frametest"
)

// scriptedSource yields frames 1..total, then ErrNoFrame until released.
type scriptedSource struct {
	tracker *frametest.Tracker

	mu       sync.Mutex
	next     int
	total    int
	released int
}

func (s *scriptedSource) Read() (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released > 0 {
		return nil, ErrClosed
	}
	if s.next >= s.total {
		return nil, ErrNoFrame
	}
	s.next++
	return s.tracker.New(s.next), nil
}

func (s *scriptedSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

func (s *scriptedSource) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

type openCall struct {
	kind      string
	target    string
	alternate bool
	width     int
	height    int
}

// fakeBackend fails the first failFirst opens, then returns a scripted source.
type fakeBackend struct {
	tracker   *frametest.Tracker
	failFirst int
	frames    int

	mu      sync.Mutex
	calls   []openCall
	sources []*scriptedSource
}

func (b *fakeBackend) open(call openCall) (Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	if len(b.calls) <= b.failFirst {
		return nil, errors.New("backend refused")
	}
	src := &scriptedSource{tracker: b.tracker, total: b.frames}
	b.sources = append(b.sources, src)
	return src, nil
}

func (b *fakeBackend) OpenDevice(device string, width, height int, alternate bool) (Source, error) {
	return b.open(openCall{kind: "device", target: device, alternate: alternate, width: width, height: height})
}

func (b *fakeBackend) OpenURL(url string, alternate bool) (Source, error) {
	return b.open(openCall{kind: "url", target: url, alternate: alternate})
}

func (b *fakeBackend) recorded() []openCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]openCall(nil), b.calls...)
}
