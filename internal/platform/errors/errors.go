package apperrors

import "errors"

var (
	ErrInvalidInput                 = errors.New("invalid input")
	ErrNotFound                     = errors.New("not found")
	ErrOperationInProgress          = errors.New("location operation already in progress")
	ErrNotWatching                  = errors.New("no active watch")
	ErrPermissionDenied             = errors.New("location permission denied")
	ErrPermissionDeniedPermanently  = errors.New("location permission permanently denied")
	ErrLocationServicesDisabled     = errors.New("location services disabled")
	ErrPositionTimeout              = errors.New("position request timed out")
	ErrPositionUnavailable          = errors.New("position unavailable")
	ErrPositionCancelled            = errors.New("position request cancelled")
	ErrForegroundServiceStartFailed = errors.New("foreground service start failed")
	ErrSessionClosed                = errors.New("location session closed")
)
