package tracker

import (
	"fmt"
	"strings"
)

// Reason is why the platform could not supply a location.
type Reason string

const (
	ReasonPermissionDenied    Reason = "permission_denied"
	ReasonPositionUnavailable Reason = "position_unavailable"
	ReasonTimeout             Reason = "timeout"
	ReasonUnsupported         Reason = "unsupported"
)

// LocationError is the typed geolocation failure surfaced to callers.
type LocationError struct {
	Reason Reason
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("geolocation failed: %s", e.Reason)
}

// Message is the text shown to the user.
func (e *LocationError) Message() string {
	switch e.Reason {
	case ReasonPermissionDenied:
		return "Please enable location access"
	case ReasonPositionUnavailable:
		return "Location unavailable"
	case ReasonTimeout:
		return "Location request timed out"
	case ReasonUnsupported:
		return "Location not supported by your browser"
	default:
		return "Unable to get location"
	}
}

// ParseReason maps a reported error code to a Reason. Both the names above
// and the numeric GeolocationPositionError codes (1, 2, 3) are accepted;
// anything else becomes position_unavailable.
func ParseReason(code string) Reason {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "1", string(ReasonPermissionDenied):
		return ReasonPermissionDenied
	case "3", string(ReasonTimeout):
		return ReasonTimeout
	case string(ReasonUnsupported):
		return ReasonUnsupported
	default:
		return ReasonPositionUnavailable
	}
}
