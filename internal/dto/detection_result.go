package dto

// DetectionResult is one object found by a detector. The box is in pixels of the
// source frame.
type DetectionResult struct {
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	TrackID    *int    `json:"track_id,omitempty"`
}
