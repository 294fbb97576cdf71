package sandbox

import (
	"regexp"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
)

// Capability remediation messages shown to the user.
const (
	MsgSharedArrayBuffer = "Live preview requires SharedArrayBuffer support. Please ensure your browser is up to date and the site is served with proper CORS headers."
	MsgServiceWorker     = "Live preview requires Service Worker support. Please use a modern browser."
	MsgSecureContext     = "Live preview requires a secure context (HTTPS). Please use HTTPS or localhost."

	// MobileAdvisory is appended to preview errors on constrained devices.
	MobileAdvisory = "Note: live preview has limited support on mobile devices. For the best experience, use a desktop browser."
)

// constrainedWidth is the viewport width at or below which a touch device
// counts as constrained.
const constrainedWidth = 768

var mobileUA = regexp.MustCompile(`(?i)android|webos|iphone|ipad|ipod|blackberry|windows phone|mobile`)

// Environment describes the viewer's host capabilities.
type Environment struct {
	ServiceWorker     bool   `json:"serviceWorker"`
	SharedArrayBuffer bool   `json:"sharedArrayBuffer"`
	SecureContext     bool   `json:"secureContext"`
	UserAgent         string `json:"userAgent,omitempty"`
	ViewportWidth     int    `json:"viewportWidth,omitempty"`
	TouchPoints       int    `json:"touchPoints,omitempty"`
}

// HostEnvironment is the environment of a terminal viewer: every
// capability is present and the device is not constrained.
func HostEnvironment() Environment {
	return Environment{
		ServiceWorker:     true,
		SharedArrayBuffer: true,
		SecureContext:     true,
	}
}

// Check returns a capability error for the first missing capability.
func (e Environment) Check() error {
	switch {
	case !e.SharedArrayBuffer:
		return errors.CapabilityUnavailable(MsgSharedArrayBuffer)
	case !e.ServiceWorker:
		return errors.CapabilityUnavailable(MsgServiceWorker)
	case !e.SecureContext:
		return errors.CapabilityUnavailable(MsgSecureContext)
	}
	return nil
}

// IsConstrainedDevice reports whether the viewer is a mobile-class device:
// a mobile user agent, or a small touch screen.
func (e Environment) IsConstrainedDevice() bool {
	if mobileUA.MatchString(e.UserAgent) {
		return true
	}
	return e.ViewportWidth > 0 && e.ViewportWidth <= constrainedWidth && e.TouchPoints > 0
}
