package out

import (
	"context"

	"geowatch/internal/modules/settings/domain"
)

// Store persists settings. Load returns defaults when nothing is stored.
type Store interface {
	Load(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) error
}

// ChangeWatcher signals when the stored settings may have changed. The
// channel closes when ctx is done.
type ChangeWatcher interface {
	Changes(ctx context.Context) (<-chan struct{}, error)
}
