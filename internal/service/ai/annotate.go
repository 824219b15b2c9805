package ai

import (
	"fmt"
	"image"
	"image/color"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"gocv.io/x/gocv"
)

var boxColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}

// Annotate draws a box and a "label (confidence)" caption for every detection.
func Annotate(mat *gocv.Mat, detections []dto.DetectionResult) error {
	for _, detection := range detections {
		rect := image.Rect(detection.X, detection.Y, detection.X+detection.Width, detection.Y+detection.Height)
		if err := gocv.Rectangle(mat, rect, boxColor, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.2f)", detection.Label, detection.Confidence)
		pt := image.Pt(detection.X, max(detection.Y-5, 10))
		if err := gocv.PutText(mat, label, pt, gocv.FontHersheySimplex, 0.5, boxColor, 1); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return nil
}
