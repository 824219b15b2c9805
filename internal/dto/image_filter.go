// ImageFilters describe user-provided filters to narrow the image list.
package dto

import "time"

type ImageFilters struct {
	Camera     string
	Location   string
	Object     string
	DateAfter  time.Time
	DateBefore time.Time
	TimeAfter  string // HH:MM
	TimeBefore string // HH:MM
	Limit      int
	Offset     int
}
