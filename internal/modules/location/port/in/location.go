package in

import (
	"context"

	"geowatch/internal/modules/location/dto"
)

type Usecase interface {
	FetchOnce(ctx context.Context, input dto.FetchInput) (dto.PositionOutput, error)
	StartWatch(ctx context.Context, input dto.WatchInput) (dto.WatchOutput, error)
	StopWatch(ctx context.Context) error
	Snapshot(ctx context.Context) dto.SnapshotOutput
	Subscribe() (<-chan dto.SessionEvent, func())
	Journal(ctx context.Context, limit int) ([]dto.TransitionOutput, error)
	Close(ctx context.Context) error
}
