package dto

// NotificationPayload is posted to NOTIFY_URL after a detection image is saved.
type NotificationPayload struct {
	FrameName string `json:"frame_name"`
	TimeUTC   string `json:"time_utc"`
	TimeLocal string `json:"time_local"`
}
