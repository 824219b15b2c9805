// Package opencv implements capture sources and frame encoding with gocv.
package opencv

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/service/capture"
	"gocv.io/x/gocv"
)

// Backend opens sources through OpenCV's VideoCapture.
type Backend struct{}

// NewBackend returns an OpenCV capture backend.
func NewBackend() *Backend {
	return &Backend{}
}

// OpenDevice opens a local device by index ("0") or path ("/dev/video0").
// The alternate attempt forces V4L2.
func (b *Backend) OpenDevice(device string, width, height int, alternate bool) (capture.Source, error) {
	api := gocv.VideoCaptureAny
	if alternate {
		api = gocv.VideoCaptureV4L2
	}

	var target interface{} = device
	if idx, err := strconv.Atoi(device); err == nil {
		target = idx
	}

	vc, err := gocv.OpenVideoCaptureWithAPI(target, api)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %s did not open", device)
	}

	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &videoSource{vc: vc}, nil
}

// OpenURL opens a network stream. The alternate attempt forces FFmpeg.
func (b *Backend) OpenURL(url string, alternate bool) (capture.Source, error) {
	api := gocv.VideoCaptureAny
	if alternate {
		api = gocv.VideoCaptureFFmpeg
	}

	vc, err := gocv.OpenVideoCaptureWithAPI(url, api)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("stream did not open")
	}
	return &videoSource{vc: vc}, nil
}

// videoSource lets Release return while a read is in flight. The capture is
// closed by whichever of Release or the pending Read finishes last. Read is
// called from a single goroutine.
type videoSource struct {
	mu      sync.Mutex
	vc      *gocv.VideoCapture
	reading bool
	closed  bool
}

func (s *videoSource) Read() (frame.Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, capture.ErrClosed
	}
	s.reading = true
	s.mu.Unlock()

	mat := gocv.NewMat()
	ok := s.vc.Read(&mat)

	s.mu.Lock()
	s.reading = false
	closed := s.closed
	s.mu.Unlock()

	if closed {
		mat.Close()
		s.vc.Close()
		return nil, capture.ErrClosed
	}
	if !ok || mat.Empty() {
		mat.Close()
		return nil, capture.ErrNoFrame
	}
	return NewFrame(mat), nil
}

func (s *videoSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.reading {
		return nil
	}
	return s.vc.Close()
}
