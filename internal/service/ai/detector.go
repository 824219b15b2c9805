package ai

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/service/capture/opencv"
	"github.com/jarupong555/Detec-V1.0/internal/service/detection"
	"gocv.io/x/gocv"
)

// DNNOptions configure the OpenCV DNN detector.
type DNNOptions struct {
	ModelPath     string
	ConfigPath    string
	Labels        map[int]string
	ConfThreshold float64
	IOUThreshold  float64
	Device        string // "cpu" or "cuda"
}

// DNNDetector runs an SSD network through OpenCV's DNN module. A gocv.Net is
// not safe for concurrent use, so inference is serialized.
type DNNDetector struct {
	mu     sync.Mutex
	net    gocv.Net
	opts   DNNOptions
	logger *logger.Logger
}

// NewDNNDetector loads the network. It fails when the model files are missing.
func NewDNNDetector(opts DNNOptions, logger *logger.Logger) (*DNNDetector, error) {
	if _, err := os.Stat(opts.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", opts.ModelPath)
	}
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", opts.ConfigPath)
		}
	}
	if opts.Labels == nil {
		opts.Labels = COCOLabels()
	}

	net := gocv.ReadNet(opts.ModelPath, opts.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network")
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if opts.Device == "cuda" {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	errBackend := net.SetPreferableBackend(backend)
	errTarget := net.SetPreferableTarget(target)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	logger.Info("Detection network initialized (%s, device=%s)", opts.ModelPath, deviceName(opts.Device))
	return &DNNDetector{net: net, opts: opts, logger: logger}, nil
}

func deviceName(device string) string {
	if device == "" {
		return "cpu"
	}
	return device
}

// Labels returns the class id to name map.
func (d *DNNDetector) Labels() map[int]string {
	return d.opts.Labels
}

// Detect runs the network on f, keeps detections allowed by filter and draws
// them onto f.
func (d *DNNDetector) Detect(f frame.Frame, filter detection.ClassFilter) ([]dto.DetectionResult, error) {
	mat, err := opencv.AsMat(f)
	if err != nil {
		return nil, err
	}

	results, err := d.infer(mat, filter)
	if err != nil {
		return nil, err
	}
	if err := Annotate(&mat, results); err != nil {
		return results, err
	}
	return results, nil
}

func (d *DNNDetector) infer(mat gocv.Mat, filter detection.ClassFilter) ([]dto.DetectionResult, error) {
	// Blob parameters match the SSD COCO input.
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	if output.Empty() || output.Total()%7 != 0 {
		return nil, fmt.Errorf("unexpected network output shape")
	}

	// Rows: [batch_id, class_id, confidence, x1, y1, x2, y2], coordinates normalized.
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	cols, height := float32(mat.Cols()), float32(mat.Rows())
	var candidates []dto.DetectionResult
	var boxes []image.Rectangle
	var scores []float32
	for i := 0; i < rows.Rows(); i++ {
		confidence := rows.GetFloatAt(i, 2)
		if float64(confidence) < d.opts.ConfThreshold {
			continue
		}
		classID := int(rows.GetFloatAt(i, 1))
		if !filter.Allows(classID) {
			continue
		}

		x := int(rows.GetFloatAt(i, 3) * cols)
		y := int(rows.GetFloatAt(i, 4) * height)
		width := int(rows.GetFloatAt(i, 5)*cols) - x
		h := int(rows.GetFloatAt(i, 6)*height) - y

		candidates = append(candidates, dto.DetectionResult{
			ClassID:    classID,
			Label:      labelFor(d.opts.Labels, classID),
			Confidence: float64(confidence),
			X:          x,
			Y:          y,
			Width:      width,
			Height:     h,
		})
		boxes = append(boxes, image.Rect(x, y, x+width, y+h))
		scores = append(scores, confidence)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(d.opts.ConfThreshold), float32(d.opts.IOUThreshold))
	results := make([]dto.DetectionResult, 0, len(keep))
	for _, i := range keep {
		results = append(results, candidates[i])
	}
	return results, nil
}

// Close releases the network.
func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
