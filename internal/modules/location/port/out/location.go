package out

import (
	"context"

	"geowatch/internal/modules/location/domain"
)

// Authorizer is the single-prompt authorization API of the iOS family.
type Authorizer interface {
	RequestAuthorization(ctx context.Context, scope domain.AuthorizationScope) (domain.AuthorizationStatus, error)
}

// RuntimePermissions is the check/request API of the Android family.
type RuntimePermissions interface {
	CheckPermission(ctx context.Context, permission string) (bool, error)
	RequestPermission(ctx context.Context, permission string) (domain.PermissionResult, error)
}

type SettingsLauncher interface {
	OpenSettings(ctx context.Context) error
}

// Subscription is a live continuous position stream. Events is closed once
// the subscription ends. Close is safe to call more than once.
type Subscription interface {
	Events() <-chan domain.WatchEvent
	Close() error
}

type LocationProvider interface {
	CurrentPosition(ctx context.Context, opts domain.RequestOptions) (domain.Position, error)
	Watch(ctx context.Context, opts domain.RequestOptions) (Subscription, error)
}

type ForegroundService interface {
	CreateNotificationChannel(ctx context.Context, channel domain.ChannelConfig) error
	StartService(ctx context.Context, notification domain.NotificationConfig) error
	StopService(ctx context.Context) error
}

// Device bundles every platform service the session needs.
type Device interface {
	Authorizer
	RuntimePermissions
	SettingsLauncher
	LocationProvider
	ForegroundService
}

// Notifier surfaces advisories. Choose blocks until the user picks one of
// the advisory actions and returns it; it returns "" when nothing was picked.
type Notifier interface {
	Notify(ctx context.Context, advisory domain.Advisory)
	Choose(ctx context.Context, advisory domain.Advisory) string
}

type TransitionJournal interface {
	Record(ctx context.Context, transition domain.Transition) error
	Recent(ctx context.Context, limit int) ([]domain.Transition, error)
}
