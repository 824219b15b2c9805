package model

import (
	"strings"
	"time"
)

// Protocol identifies how a camera source is opened.
type Protocol string

const (
	ProtocolUSB  Protocol = "usb"
	ProtocolRTSP Protocol = "rtsp"
	ProtocolRTMP Protocol = "rtmp"
	ProtocolHTTP Protocol = "http"
	ProtocolHLS  Protocol = "hls"
)

// ParseProtocol normalizes a protocol name. The second result is false when it is unknown.
func ParseProtocol(s string) (Protocol, bool) {
	p := Protocol(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// Valid reports whether p is one of the supported protocols.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolUSB, ProtocolRTSP, ProtocolRTMP, ProtocolHTTP, ProtocolHLS:
		return true
	}
	return false
}

// IsNetwork reports whether frames arrive over the network and need smoothing.
func (p Protocol) IsNetwork() bool {
	return p.Valid() && p != ProtocolUSB
}

// Camera is a catalog record. ID never changes once assigned.
type Camera struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	Protocol      Protocol  `json:"protocol"`
	Source        string    `json:"source"`
	DetectClasses *string   `json:"detect_classes"`
	CreatedAt     time.Time `json:"created_at"`
}

// DisplayName is the name used in artifact file names.
func (c *Camera) DisplayName() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.ID
}

// StorageKey is the folder grouping key for saved artifacts.
func (c *Camera) StorageKey() string {
	if strings.TrimSpace(c.Location) != "" {
		return c.Location
	}
	return c.ID
}

// ClassOverride returns the per-camera class selection, or "" with false when
// the camera follows the global default.
func (c *Camera) ClassOverride() (string, bool) {
	if c.DetectClasses == nil || strings.TrimSpace(*c.DetectClasses) == "" {
		return "", false
	}
	return *c.DetectClasses, true
}
