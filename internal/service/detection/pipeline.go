// Package detection throttles inference per camera, encodes the annotated
// frames and schedules saving of detections.
package detection

import (
	"sync"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
)

// Detector runs inference on a frame. Detections must already be restricted to
// filter, and the frame is annotated in place.
type Detector interface {
	Labels() map[int]string
	Detect(f frame.Frame, filter ClassFilter) ([]dto.DetectionResult, error)
}

// Encoder turns a frame into JPEG bytes.
type Encoder interface {
	Encode(f frame.Frame) ([]byte, error)
}

// RunningChecker reports whether a camera worker is live.
type RunningChecker interface {
	Running(cameraID string) bool
}

// ClassDefaults supplies the global class selection used by cameras without
// their own. An empty result falls back to Options.DefaultClasses.
type ClassDefaults interface {
	GlobalClasses() string
}

// Sink receives frames selected for saving. Submit must not block.
type Sink interface {
	Submit(camera model.Camera, jpeg []byte, detections []dto.DetectionResult, at time.Time) bool
}

// Options tune the pipeline.
type Options struct {
	EveryN           int
	Cooldown         time.Duration
	FailureThreshold int           // consecutive detector failures before backing off; 0 disables
	FailureBackoff   time.Duration // how long inference is suspended after the threshold
	DefaultClasses   string
}

// Pipeline processes frames for every camera. Each camera has its own state
// object so cameras never contend with each other.
type Pipeline struct {
	detector Detector
	encoder  Encoder
	running  RunningChecker
	defaults ClassDefaults
	sink     Sink
	opts     Options
	logger   *logger.Logger
	now      func() time.Time

	statesMu sync.RWMutex
	states   map[string]*cameraState
}

// NewPipeline wires a pipeline. defaults and sink may be nil.
func NewPipeline(detector Detector, encoder Encoder, running RunningChecker, defaults ClassDefaults, sink Sink, opts Options, log *logger.Logger) *Pipeline {
	if opts.EveryN < 1 {
		opts.EveryN = 1
	}
	return &Pipeline{
		detector: detector,
		encoder:  encoder,
		running:  running,
		defaults: defaults,
		sink:     sink,
		opts:     opts,
		logger:   log,
		now:      time.Now,
		states:   make(map[string]*cameraState),
	}
}

// SetClock replaces the time source. Used by tests.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Process runs one frame through the pipeline and returns the JPEG to stream
// plus any detections. The frame stays owned by the caller but may be
// annotated in place. An empty result means the frame should be skipped.
func (p *Pipeline) Process(camera *model.Camera, f frame.Frame) ([]byte, []dto.DetectionResult) {
	if !p.running.Running(camera.ID) {
		return nil, nil
	}

	st := p.state(camera.ID)
	if !st.tick(p.opts.EveryN) {
		return p.encode(camera, f), nil
	}

	filter := p.Filter(camera)
	if filter.Empty() {
		return p.encode(camera, f), nil
	}

	now := p.now()
	if st.suppressed(now) {
		return p.encode(camera, f), nil
	}

	dets, err := p.detector.Detect(f, filter)
	if err != nil {
		if st.fail(now, p.opts.FailureThreshold, p.opts.FailureBackoff) {
			p.logger.Error("Camera %s: detector failed %d times in a row, pausing inference for %v: %v",
				camera.ID, p.opts.FailureThreshold, p.opts.FailureBackoff, err)
		} else {
			p.logger.Warning("Camera %s: detector error: %v", camera.ID, err)
		}
		return p.encode(camera, f), nil
	}
	st.succeed()

	data := p.encode(camera, f)
	if data == nil {
		return nil, dets
	}

	if len(dets) > 0 && st.claimSave(now, p.opts.Cooldown) && p.sink != nil {
		if !p.sink.Submit(*camera, data, dets, now) {
			p.logger.Warning("Camera %s: save queue full, detection not persisted", camera.ID)
		}
	}
	return data, dets
}

// Filter resolves the class selection for camera: its own override, else the
// global setting, else the configured default.
func (p *Pipeline) Filter(camera *model.Camera) ClassFilter {
	selection, ok := camera.ClassOverride()
	if !ok {
		selection = p.globalClasses()
	}
	return ParseClasses(selection, p.detector.Labels())
}

func (p *Pipeline) globalClasses() string {
	if p.defaults != nil {
		if s := p.defaults.GlobalClasses(); s != "" {
			return s
		}
	}
	return p.opts.DefaultClasses
}

func (p *Pipeline) encode(camera *model.Camera, f frame.Frame) []byte {
	data, err := p.encoder.Encode(f)
	if err != nil || len(data) == 0 {
		p.logger.Warning("Camera %s: dropping frame, encode failed: %v", camera.ID, err)
		return nil
	}
	return data
}

// Forget drops the state of a deleted camera.
func (p *Pipeline) Forget(cameraID string) {
	p.statesMu.Lock()
	delete(p.states, cameraID)
	p.statesMu.Unlock()
}

// state returns the per-camera state, creating it when absent.
func (p *Pipeline) state(cameraID string) *cameraState {
	p.statesMu.RLock()
	st, ok := p.states[cameraID]
	p.statesMu.RUnlock()
	if ok {
		return st
	}

	p.statesMu.Lock()
	defer p.statesMu.Unlock()
	// Double-check (may have been created by another stream)
	if st, ok := p.states[cameraID]; ok {
		return st
	}
	st = &cameraState{}
	p.states[cameraID] = st
	return st
}

// cameraState holds the throttling, cooldown and failure counters of one camera.
type cameraState struct {
	mu              sync.Mutex
	frames          uint64
	lastSaved       time.Time
	failures        int
	suppressedUntil time.Time
}

// tick counts a frame and reports whether it is due for inference.
func (s *cameraState) tick(everyN int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	return s.frames%uint64(everyN) == 0
}

// claimSave takes the save slot when the cooldown has expired.
func (s *cameraState) claimSave(now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastSaved.IsZero() && now.Sub(s.lastSaved) < cooldown {
		return false
	}
	s.lastSaved = now
	return true
}

func (s *cameraState) suppressed(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Before(s.suppressedUntil)
}

// fail records a detector failure and reports whether it tripped the breaker.
func (s *cameraState) fail(now time.Time, threshold int, backoff time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	if threshold <= 0 || s.failures < threshold {
		return false
	}
	s.failures = 0
	s.suppressedUntil = now.Add(backoff)
	return true
}

func (s *cameraState) succeed() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}
