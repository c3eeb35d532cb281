package service

import (
	"context"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	"geowatch/internal/modules/location/domain"
	locationout "geowatch/internal/modules/location/port/out"
	apperrors "geowatch/internal/platform/errors"
	"geowatch/internal/platform/logging"
)

// PermissionGate resolves whether location permission is held, prompting at
// most once per call. It never fails; problems come back as a non-granted
// outcome.
type PermissionGate interface {
	Ensure(ctx context.Context) domain.PermissionOutcome
}

type PermissionDevice interface {
	locationout.Authorizer
	locationout.RuntimePermissions
	locationout.SettingsLauncher
}

// NewPermissionGate picks the permission flow for the platform family.
func NewPermissionGate(platform domain.Platform, osVersion int, device PermissionDevice, notifier locationout.Notifier, displayName string, logger hclog.Logger) (PermissionGate, error) {
	if notifier == nil {
		notifier = silentNotifier{}
	}
	logger = logging.OrDiscard(logger).Named("permission")
	switch platform {
	case domain.PlatformIOS:
		return &promptGate{auth: device, launcher: device, notifier: notifier, displayName: displayName, logger: logger}, nil
	case domain.PlatformAndroid:
		return &runtimeGate{perms: device, notifier: notifier, osVersion: osVersion, logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported platform %q", apperrors.ErrInvalidInput, platform)
	}
}

type promptGate struct {
	auth        locationout.Authorizer
	launcher    locationout.SettingsLauncher
	notifier    locationout.Notifier
	displayName string
	logger      hclog.Logger
}

func (g *promptGate) Ensure(ctx context.Context) domain.PermissionOutcome {
	status, err := g.auth.RequestAuthorization(ctx, domain.ScopeWhenInUse)
	if err != nil {
		g.logger.Warn("authorization request failed", "error", err)
		return domain.OutcomeDeniedTemporary
	}

	switch status {
	case domain.AuthorizationGranted:
		return domain.OutcomeGranted
	case domain.AuthorizationDisabled:
		g.offerSettings(ctx)
		return domain.OutcomeServiceDisabled
	case domain.AuthorizationDenied, domain.AuthorizationRestricted:
		g.notifier.Notify(ctx, domain.Advisory{Kind: domain.AdvisoryAlert, Title: "Location permission denied"})
	default:
		g.logger.Warn("unknown authorization status", "status", status)
	}
	return domain.OutcomeDeniedTemporary
}

// offerSettings asks once whether to open system settings. Declining does
// nothing further.
func (g *promptGate) offerSettings(ctx context.Context) {
	choice := g.notifier.Choose(ctx, domain.Advisory{
		Kind:    domain.AdvisoryAlert,
		Title:   fmt.Sprintf("Turn on Location Services to allow %q to determine your location.", g.displayName),
		Actions: []string{domain.ActionOpenSettings, domain.ActionDontUseLocation},
	})
	if choice != domain.ActionOpenSettings {
		return
	}
	if err := g.launcher.OpenSettings(ctx); err != nil {
		g.logger.Warn("open settings failed", "error", err)
		g.notifier.Notify(ctx, domain.Advisory{Kind: domain.AdvisoryAlert, Title: "Unable to open settings"})
	}
}

type runtimeGate struct {
	perms     locationout.RuntimePermissions
	notifier  locationout.Notifier
	osVersion int
	logger    hclog.Logger
}

func (g *runtimeGate) Ensure(ctx context.Context) domain.PermissionOutcome {
	if g.osVersion < domain.RuntimePermissionFloor {
		return domain.OutcomeGranted
	}

	granted, err := g.perms.CheckPermission(ctx, domain.FineLocationPermission)
	if err != nil {
		g.logger.Warn("permission check failed", "error", err)
	}
	if granted {
		return domain.OutcomeGranted
	}

	result, err := g.perms.RequestPermission(ctx, domain.FineLocationPermission)
	if err != nil {
		g.logger.Warn("permission request failed", "error", err)
		return domain.OutcomeDeniedTemporary
	}
	switch result {
	case domain.PermissionGranted:
		return domain.OutcomeGranted
	case domain.PermissionDenied:
		g.notifier.Notify(ctx, domain.Advisory{Kind: domain.AdvisoryToast, Message: "Location permission denied by user."})
		return domain.OutcomeDeniedTemporary
	case domain.PermissionNeverAskAgain:
		g.notifier.Notify(ctx, domain.Advisory{Kind: domain.AdvisoryToast, Message: "Location permission revoked by user."})
		return domain.OutcomeDeniedPermanent
	default:
		g.logger.Warn("unknown permission result", "result", result)
		return domain.OutcomeDeniedTemporary
	}
}

type silentNotifier struct{}

func (silentNotifier) Notify(context.Context, domain.Advisory) {}

func (silentNotifier) Choose(context.Context, domain.Advisory) string { return "" }
