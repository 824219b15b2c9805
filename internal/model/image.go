package model

import "time"

// Image represents a saved detection artifact.
type Image struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Camera    string    `json:"camera"`
	CameraID  string    `json:"camera_id"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}

// Detection represents a detected object in an image.
type Detection struct {
	ID         int64   `json:"id"`
	ImageID    int64   `json:"image_id"`
	ClassID    int     `json:"class_id"`
	ObjectName string  `json:"object_name"`
	TrackID    *int    `json:"track_id,omitempty"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// ImageStats contains statistics about stored images.
type ImageStats struct {
	TotalImages    int            `json:"total_images"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerLocation    map[string]int `json:"per_location"`
	ObjectCounts   map[string]int `json:"object_counts"`
}
