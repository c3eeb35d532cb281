package in

import (
	"context"

	locationdto "geowatch/internal/modules/location/dto"
	locationin "geowatch/internal/modules/location/port/in"
	settingsdto "geowatch/internal/modules/settings/dto"
	settingsin "geowatch/internal/modules/settings/port/in"
)

// TUIHandler backs the interactive screen: session operations plus the
// switches shown next to them.
type TUIHandler struct {
	usecase  locationin.Usecase
	settings settingsin.Usecase
}

func NewTUIHandler(usecase locationin.Usecase, settings settingsin.Usecase) TUIHandler {
	return TUIHandler{usecase: usecase, settings: settings}
}

func (h TUIHandler) Settings(ctx context.Context) (settingsdto.SettingsOutput, error) {
	return h.settings.Get(ctx)
}

func (h TUIHandler) Toggle(ctx context.Context, key string) (settingsdto.SettingsOutput, error) {
	return h.settings.Toggle(ctx, key)
}

func (h TUIHandler) SetSetting(ctx context.Context, key, value string) (settingsdto.SettingsOutput, error) {
	return h.settings.Set(ctx, key, value)
}

func (h TUIHandler) ResetSettings(ctx context.Context) (settingsdto.SettingsOutput, error) {
	return h.settings.Reset(ctx)
}

func (h TUIHandler) SettingKeys() []string {
	return h.settings.Keys()
}

func (h TUIHandler) WatchSettings(ctx context.Context) (<-chan settingsdto.SettingsOutput, error) {
	return h.settings.Watch(ctx)
}

func (h TUIHandler) Fetch(ctx context.Context, settings settingsdto.SettingsOutput) (locationdto.PositionOutput, error) {
	return h.usecase.FetchOnce(ctx, fetchInput(settings))
}

func (h TUIHandler) StartWatch(ctx context.Context, settings settingsdto.SettingsOutput) (locationdto.WatchOutput, error) {
	return h.usecase.StartWatch(ctx, watchInput(settings))
}

func (h TUIHandler) StopWatch(ctx context.Context) error {
	return h.usecase.StopWatch(ctx)
}

func (h TUIHandler) Snapshot(ctx context.Context) locationdto.SnapshotOutput {
	return h.usecase.Snapshot(ctx)
}

func (h TUIHandler) Subscribe() (<-chan locationdto.SessionEvent, func()) {
	return h.usecase.Subscribe()
}

func (h TUIHandler) Close(ctx context.Context) error {
	return h.usecase.Close(ctx)
}
