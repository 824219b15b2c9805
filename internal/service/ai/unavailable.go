package ai

import (
	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/service/detection"
)

// UnavailableDetector stands in when the model could not be loaded. Every
// call fails, so streams keep running with raw frames.
type UnavailableDetector struct {
	labels map[int]string
	err    error
}

// NewUnavailableDetector returns a detector failing with err.
func NewUnavailableDetector(labels map[int]string, err error) *UnavailableDetector {
	return &UnavailableDetector{labels: labels, err: err}
}

func (d *UnavailableDetector) Labels() map[int]string {
	return d.labels
}

func (d *UnavailableDetector) Detect(f frame.Frame, filter detection.ClassFilter) ([]dto.DetectionResult, error) {
	return nil, d.err
}
