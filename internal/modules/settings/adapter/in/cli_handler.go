package in

import (
	"context"

	settingsdto "geowatch/internal/modules/settings/dto"
	settingsin "geowatch/internal/modules/settings/port/in"
)

type CLIHandler struct {
	usecase settingsin.Usecase
}

func NewCLIHandler(usecase settingsin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Show(ctx context.Context) (settingsdto.SettingsOutput, error) {
	return h.usecase.Get(ctx)
}

func (h CLIHandler) Set(ctx context.Context, key, value string) (settingsdto.SettingsOutput, error) {
	return h.usecase.Set(ctx, key, value)
}

func (h CLIHandler) Toggle(ctx context.Context, key string) (settingsdto.SettingsOutput, error) {
	return h.usecase.Toggle(ctx, key)
}

func (h CLIHandler) Reset(ctx context.Context) (settingsdto.SettingsOutput, error) {
	return h.usecase.Reset(ctx)
}

func (h CLIHandler) Keys() []string {
	return h.usecase.Keys()
}
