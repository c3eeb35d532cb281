package in

import (
	"context"

	"geowatch/internal/modules/settings/dto"
)

type Usecase interface {
	Get(ctx context.Context) (dto.SettingsOutput, error)
	Set(ctx context.Context, key, value string) (dto.SettingsOutput, error)
	Toggle(ctx context.Context, key string) (dto.SettingsOutput, error)
	Reset(ctx context.Context) (dto.SettingsOutput, error)
	Keys() []string
	// Watch emits the settings each time the file is changed outside this
	// process. The channel closes when ctx is done.
	Watch(ctx context.Context) (<-chan dto.SettingsOutput, error)
}
