// Package frame defines the decoded image handle passed between capture,
// streaming and detection.
package frame

// Frame is a decoded image with explicit ownership. Whoever holds a Frame must
// Close it exactly once; Clone returns an independent copy owned by the caller.
type Frame interface {
	Clone() Frame
	Close() error
}

// Sized is implemented by frames that know their pixel dimensions.
type Sized interface {
	Size() (width, height int)
}
