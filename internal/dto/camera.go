package dto

import "time"

// CameraRequest is the body accepted by POST /api/cameras.
type CameraRequest struct {
	Name          string  `json:"name"`
	Location      string  `json:"location"`
	Protocol      string  `json:"protocol"`
	Source        string  `json:"source"`
	DetectClasses *string `json:"detect_classes"`
}

// CameraResponse is a catalog record as returned by the API.
type CameraResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	Protocol      string    `json:"protocol"`
	Source        string    `json:"source"`
	DetectClasses *string   `json:"detect_classes"`
	StreamURL     string    `json:"stream_url"`
	Running       bool      `json:"running"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClassesConfig carries the global class selection.
type ClassesConfig struct {
	Classes string `json:"classes"`
}

// DeleteResult reports whether a delete removed anything.
type DeleteResult struct {
	OK bool `json:"ok"`
}
