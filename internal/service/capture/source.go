// Package capture opens camera sources and smooths network streams.
package capture

import (
	"errors"
	"fmt"

	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"github.com/jarupong555/Detec-V1.0/internal/model"
)

var (
	// ErrTransientRead marks read failures worth retrying.
	ErrTransientRead = errors.New("transient read failure")
	// ErrNoFrame is returned when no frame is available yet.
	ErrNoFrame = fmt.Errorf("no frame available: %w", ErrTransientRead)
	// ErrClosed is returned by Read once the source has been released or has ended.
	ErrClosed = errors.New("source closed")
)

// Source yields decoded frames. Read transfers ownership of the frame to the caller.
// Release is idempotent; after it Read returns ErrClosed.
type Source interface {
	Read() (frame.Frame, error)
	Release() error
}

// Backend opens raw sources. alternate selects the fallback capture API.
type Backend interface {
	OpenDevice(device string, width, height int, alternate bool) (Source, error)
	OpenURL(url string, alternate bool) (Source, error)
}

// OpenError reports that a camera source could not be opened.
type OpenError struct {
	Protocol model.Protocol
	Source   string
	Err      error
}

func (e *OpenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot open %s source %q", e.Protocol, e.Source)
	}
	return fmt.Sprintf("cannot open %s source %q: %v", e.Protocol, e.Source, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable read failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientRead)
}
