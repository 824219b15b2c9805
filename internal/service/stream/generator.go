package stream

import (
	"context"
	"io"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
)

const (
	// Boundary separates parts of the multipart stream.
	Boundary = "frame"
	// ContentType is the response content type of a camera stream.
	ContentType = "multipart/x-mixed-replace; boundary=" + Boundary
)

var partHeader = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")

// Processor turns a frame into streamable JPEG bytes. An empty result means
// the frame is skipped.
type Processor interface {
	Process(camera *model.Camera, f frame.Frame) ([]byte, []dto.DetectionResult)
}

// Chunk wraps one JPEG image as a multipart part.
func Chunk(jpeg []byte) []byte {
	out := make([]byte, 0, len(partHeader)+len(jpeg)+2)
	out = append(out, partHeader...)
	out = append(out, jpeg...)
	return append(out, '\r', '\n')
}

// Generator opens camera streams on top of the registry.
type Generator struct {
	registry  *Registry
	processor Processor
	poll      time.Duration
	logger    *logger.Logger
}

// NewGenerator creates a Generator polling workers every poll interval.
func NewGenerator(registry *Registry, processor Processor, poll time.Duration, log *logger.Logger) *Generator {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	return &Generator{registry: registry, processor: processor, poll: poll, logger: log}
}

// Open ensures a worker for camera and returns a Stream reading from it. The
// only error surfaced is the failure to start the worker.
func (g *Generator) Open(ctx context.Context, camera model.Camera) (*Stream, error) {
	w, err := g.registry.Ensure(ctx, camera)
	if err != nil {
		return nil, err
	}
	return &Stream{worker: w, camera: camera, processor: g.processor, poll: g.poll}, nil
}

// Stream yields multipart chunks for one client.
type Stream struct {
	worker    *Worker
	camera    model.Camera
	processor Processor
	poll      time.Duration

	lastSeq uint64
	hasSeq  bool
}

// Next blocks until the next chunk is ready. It returns io.EOF once the worker
// stops and ctx.Err() when the client goes away.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.worker.Done():
			return nil, io.EOF
		default:
		}

		if f, seq, ok := s.worker.Latest(); ok {
			if !s.hasSeq || seq != s.lastSeq {
				s.lastSeq, s.hasSeq = seq, true
				data, _ := s.processor.Process(&s.camera, f)
				f.Close()
				if len(data) > 0 {
					return Chunk(data), nil
				}
			} else {
				f.Close()
			}
		}

		timer := time.NewTimer(s.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-s.worker.Done():
			timer.Stop()
			return nil, io.EOF
		case <-timer.C:
		}
	}
}

// Copy writes chunks to w until the stream ends. It returns nil when the
// worker stops.
func (s *Stream) Copy(ctx context.Context, w io.Writer) error {
	for {
		chunk, err := s.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
}
