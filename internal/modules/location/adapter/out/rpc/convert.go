package rpc

import (
	"errors"
	"time"

	"geowatch/internal/modules/location/domain"
)

func toWireOptions(opts domain.RequestOptions) *PositionOptions {
	return &PositionOptions{
		Mode:                  string(opts.Mode),
		Accuracy:              Accuracy{Android: opts.Accuracy.Android, IOS: opts.Accuracy.IOS},
		EnableHighAccuracy:    opts.EnableHighAccuracy,
		TimeoutMS:             opts.Timeout.Milliseconds(),
		MaximumAgeMS:          opts.MaximumAge.Milliseconds(),
		DistanceFilter:        opts.DistanceFilter,
		IntervalMS:            opts.Interval.Milliseconds(),
		FastestIntervalMS:     opts.FastestInterval.Milliseconds(),
		ForceRequestLocation:  opts.ForceRequestLocation,
		ShowLocationDialog:    opts.ShowLocationDialog,
		UseSignificantChanges: opts.UseSignificantChanges,
	}
}

func fromWireOptions(in *PositionOptions) domain.RequestOptions {
	return domain.RequestOptions{
		Mode:                  domain.Mode(in.Mode),
		Accuracy:              domain.Accuracy{Android: in.Accuracy.Android, IOS: in.Accuracy.IOS},
		EnableHighAccuracy:    in.EnableHighAccuracy,
		Timeout:               time.Duration(in.TimeoutMS) * time.Millisecond,
		MaximumAge:            time.Duration(in.MaximumAgeMS) * time.Millisecond,
		DistanceFilter:        in.DistanceFilter,
		Interval:              time.Duration(in.IntervalMS) * time.Millisecond,
		FastestInterval:       time.Duration(in.FastestIntervalMS) * time.Millisecond,
		ForceRequestLocation:  in.ForceRequestLocation,
		ShowLocationDialog:    in.ShowLocationDialog,
		UseSignificantChanges: in.UseSignificantChanges,
	}
}

func toWirePosition(p domain.Position) *Position {
	return &Position{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Altitude:  p.Altitude,
		Heading:   p.Heading,
		Speed:     p.Speed,
		Accuracy:  p.AccuracyMeters,
		Timestamp: p.CapturedAt,
	}
}

func fromWirePosition(p *Position) domain.Position {
	return domain.Position{
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Altitude:       p.Altitude,
		Heading:        p.Heading,
		Speed:          p.Speed,
		AccuracyMeters: p.Accuracy,
		CapturedAt:     p.Timestamp,
	}
}

// toWireError flattens a device error into a code and message. Errors that
// are not position errors travel as internal errors.
func toWireError(err error) (int32, string) {
	var positionErr *domain.PositionError
	if errors.As(err, &positionErr) {
		return int32(positionErr.Code), positionErr.Message
	}
	return int32(domain.CodeInternal), err.Error()
}

func fromWireError(code int32, message string) error {
	if code == 0 {
		return nil
	}
	return &domain.PositionError{Code: domain.ErrorCode(code), Message: message}
}
