package dto

// DetectionEvent is broadcast to websocket subscribers when an image is saved.
type DetectionEvent struct {
	CameraID   string            `json:"camera_id"`
	Camera     string            `json:"camera"`
	Location   string            `json:"location"`
	Filename   string            `json:"filename"`
	ImageID    int64             `json:"image_id,omitempty"`
	Timestamp  string            `json:"timestamp"`
	Detections []DetectionResult `json:"detections"`
}
