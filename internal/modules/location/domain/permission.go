package domain

import (
	"fmt"

	apperrors "geowatch/internal/platform/errors"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// RuntimePermissionFloor is the first Android API level with runtime
// permissions. Older versions grant at install time.
const RuntimePermissionFloor = 23

// NotificationChannelFloor is the first Android API level that requires a
// notification channel for foreground services.
const NotificationChannelFloor = 26

const FineLocationPermission = "android.permission.ACCESS_FINE_LOCATION"

type PermissionOutcome string

const (
	OutcomeGranted         PermissionOutcome = "granted"
	OutcomeDeniedTemporary PermissionOutcome = "denied_temporary"
	OutcomeDeniedPermanent PermissionOutcome = "denied_permanent"
	OutcomeServiceDisabled PermissionOutcome = "service_disabled"
)

// Err maps a non-granted outcome to the error returned to callers.
func (o PermissionOutcome) Err() error {
	switch o {
	case OutcomeGranted:
		return nil
	case OutcomeDeniedTemporary:
		return apperrors.ErrPermissionDenied
	case OutcomeDeniedPermanent:
		return apperrors.ErrPermissionDeniedPermanently
	case OutcomeServiceDisabled:
		return apperrors.ErrLocationServicesDisabled
	default:
		return fmt.Errorf("%w: unknown permission outcome %q", apperrors.ErrPermissionDenied, string(o))
	}
}

// AuthorizationScope is the iOS authorization level requested.
type AuthorizationScope string

const (
	ScopeWhenInUse AuthorizationScope = "whenInUse"
	ScopeAlways    AuthorizationScope = "always"
)

type AuthorizationStatus string

const (
	AuthorizationGranted    AuthorizationStatus = "granted"
	AuthorizationDenied     AuthorizationStatus = "denied"
	AuthorizationDisabled   AuthorizationStatus = "disabled"
	AuthorizationRestricted AuthorizationStatus = "restricted"
)

type PermissionResult string

const (
	PermissionGranted       PermissionResult = "granted"
	PermissionDenied        PermissionResult = "denied"
	PermissionNeverAskAgain PermissionResult = "never_ask_again"
)
