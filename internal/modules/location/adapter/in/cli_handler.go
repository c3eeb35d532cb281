package in

import (
	"context"

	locationdto "geowatch/internal/modules/location/dto"
	locationin "geowatch/internal/modules/location/port/in"
	settingsin "geowatch/internal/modules/settings/port/in"
)

// CLIHandler runs session operations with the stored settings.
type CLIHandler struct {
	usecase  locationin.Usecase
	settings settingsin.Usecase
}

func NewCLIHandler(usecase locationin.Usecase, settings settingsin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase, settings: settings}
}

func (h CLIHandler) Fetch(ctx context.Context) (locationdto.PositionOutput, error) {
	settings, err := h.settings.Get(ctx)
	if err != nil {
		return locationdto.PositionOutput{}, err
	}
	return h.usecase.FetchOnce(ctx, fetchInput(settings))
}

func (h CLIHandler) StartWatch(ctx context.Context) (locationdto.WatchOutput, error) {
	settings, err := h.settings.Get(ctx)
	if err != nil {
		return locationdto.WatchOutput{}, err
	}
	return h.usecase.StartWatch(ctx, watchInput(settings))
}

func (h CLIHandler) StopWatch(ctx context.Context) error {
	return h.usecase.StopWatch(ctx)
}

func (h CLIHandler) Subscribe() (<-chan locationdto.SessionEvent, func()) {
	return h.usecase.Subscribe()
}

func (h CLIHandler) Journal(ctx context.Context, limit int) ([]locationdto.TransitionOutput, error) {
	return h.usecase.Journal(ctx, limit)
}

func (h CLIHandler) Close(ctx context.Context) error {
	return h.usecase.Close(ctx)
}
