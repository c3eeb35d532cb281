package domain

import "time"

// Position is a single fix reported by the device. Optional readings are nil
// when the device did not provide them.
type Position struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Altitude       *float64 `json:"altitude,omitempty"`
	Heading        *float64 `json:"heading,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
	AccuracyMeters float64  `json:"accuracy"`
	CapturedAt     int64    `json:"timestamp"`
}

func (p Position) Time() time.Time {
	return time.UnixMilli(p.CapturedAt).UTC()
}

// ErrorCode mirrors the error codes reported by the device location API.
type ErrorCode int

const (
	CodeInternal             ErrorCode = -1
	CodePermissionDenied     ErrorCode = 1
	CodePositionUnavailable  ErrorCode = 2
	CodeTimeout              ErrorCode = 3
	CodePlayServiceMissing   ErrorCode = 4
	CodeSettingsNotSatisfied ErrorCode = 5
)

// PositionError is a device-side failure to produce a fix.
type PositionError struct {
	Code    ErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return codeNames[e.Code]
	}
	return codeNames[e.Code] + ": " + e.Message
}

var codeNames = map[ErrorCode]string{
	CodeInternal:             "internal error",
	CodePermissionDenied:     "permission denied",
	CodePositionUnavailable:  "position unavailable",
	CodeTimeout:              "timeout",
	CodePlayServiceMissing:   "play service not available",
	CodeSettingsNotSatisfied: "settings not satisfied",
}

// ParseErrorCode accepts the names used in device simulation settings.
func ParseErrorCode(name string) (ErrorCode, bool) {
	for code, n := range codeNames {
		if n == name {
			return code, true
		}
	}
	switch name {
	case "unavailable":
		return CodePositionUnavailable, true
	case "internal":
		return CodeInternal, true
	}
	return 0, false
}

// WatchEvent is one delivery on a watch subscription: either a position or
// an error, never both.
type WatchEvent struct {
	Position *Position
	Err      error
}
