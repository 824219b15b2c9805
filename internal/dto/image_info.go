package dto

import (
	"encoding/json"
	"time"
)

// ImageInfo represents metadata about a stored detection image.
type ImageInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	Camera    string    `json:"camera"`
	Location  string    `json:"location"`
	Objects   []string  `json:"objects"` // Multiple detected objects

	Detections []DetectionResult `json:"detections"`
}

// MarshalJSON customizes JSON output for ImageInfo to format date and time-of-day.
func (p ImageInfo) MarshalJSON() ([]byte, error) {
	type Alias ImageInfo
	return json.Marshal(&struct {
		Alias
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
	}{
		Alias:     (Alias)(p),
		Date:      p.Date.Format("02-01-2006"),
		TimeOfDay: p.TimeOfDay.Format("15:04:05"),
	})
}
