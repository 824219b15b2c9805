package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/service/capture/opencv"
	"github.com/jarupong555/Detec-V1.0/internal/service/detection"
)

// RemoteOptions configure the HTTP inference client.
type RemoteOptions struct {
	URL           string
	Labels        map[int]string
	ConfThreshold float64
	IOUThreshold  float64
	Timeout       time.Duration
}

// remoteResponse is the body returned by the inference service.
type remoteResponse struct {
	Detections []dto.DetectionResult `json:"detections"`
}

// RemoteDetector sends JPEG frames to an inference service and draws the
// returned boxes locally.
type RemoteDetector struct {
	opts       RemoteOptions
	encoder    *opencv.JPEGEncoder
	httpClient *http.Client
	logger     *logger.Logger
}

// NewRemoteDetector creates a client for the service at opts.URL.
func NewRemoteDetector(opts RemoteOptions, logger *logger.Logger) *RemoteDetector {
	if opts.Labels == nil {
		opts.Labels = COCOLabels()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	logger.Info("Using remote detector at %s", opts.URL)
	return &RemoteDetector{
		opts:       opts,
		encoder:    opencv.NewJPEGEncoder(90),
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

// Labels returns the class id to name map.
func (d *RemoteDetector) Labels() map[int]string {
	return d.opts.Labels
}

// Detect posts f to the service, keeps detections allowed by filter and
// draws them onto f.
func (d *RemoteDetector) Detect(f frame.Frame, filter detection.ClassFilter) ([]dto.DetectionResult, error) {
	mat, err := opencv.AsMat(f)
	if err != nil {
		return nil, err
	}
	jpeg, err := d.encoder.Encode(f)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
	defer cancel()
	detections, err := d.request(ctx, jpeg)
	if err != nil {
		return nil, err
	}

	results := filter.Apply(d.normalize(detections))
	if err := Annotate(&mat, results); err != nil {
		return results, err
	}
	return results, nil
}

func (d *RemoteDetector) request(ctx context.Context, jpeg []byte) ([]dto.DetectionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.URL, bytes.NewReader(jpeg))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	q := req.URL.Query()
	q.Set("conf", strconv.FormatFloat(d.opts.ConfThreshold, 'f', -1, 64))
	q.Set("iou", strconv.FormatFloat(d.opts.IOUThreshold, 'f', -1, 64))
	req.URL.RawQuery = q.Encode()

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call detector: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var parsed remoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode detector response: %w", err)
	}
	return parsed.Detections, nil
}

// normalize drops low-confidence results and fills in missing labels.
func (d *RemoteDetector) normalize(detections []dto.DetectionResult) []dto.DetectionResult {
	out := detections[:0]
	for _, det := range detections {
		if det.Confidence < d.opts.ConfThreshold {
			continue
		}
		if det.Label == "" {
			det.Label = labelFor(d.opts.Labels, det.ClassID)
		}
		out = append(out, det)
	}
	return out
}
