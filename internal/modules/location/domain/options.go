package domain

import (
	"fmt"
	"time"

	apperrors "geowatch/internal/platform/errors"
)

// SessionConfig is the user-facing switch set, snapshotted when an operation
// starts.
type SessionConfig struct {
	HighAccuracy             bool
	ForceLocationRequest     bool
	ShowLocationDialog       bool
	UseSignificantChanges    bool
	ForegroundServiceEnabled bool
}

type Accuracy struct {
	Android string `json:"android"`
	IOS     string `json:"ios"`
}

// Tuning holds the device tuning parameters for one request mode.
type Tuning struct {
	Accuracy        Accuracy
	Timeout         time.Duration
	MaximumAge      time.Duration
	DistanceFilter  float64
	Interval        time.Duration
	FastestInterval time.Duration
}

type Mode string

const (
	ModeOnce  Mode = "once"
	ModeWatch Mode = "watch"
)

// RequestOptions is handed to the device untouched.
type RequestOptions struct {
	Mode                  Mode          `json:"mode"`
	Accuracy              Accuracy      `json:"accuracy"`
	EnableHighAccuracy    bool          `json:"enable_high_accuracy"`
	Timeout               time.Duration `json:"timeout"`
	MaximumAge            time.Duration `json:"maximum_age"`
	DistanceFilter        float64       `json:"distance_filter"`
	Interval              time.Duration `json:"interval"`
	FastestInterval       time.Duration `json:"fastest_interval"`
	ForceRequestLocation  bool          `json:"force_request_location"`
	ShowLocationDialog    bool          `json:"show_location_dialog"`
	UseSignificantChanges bool          `json:"use_significant_changes"`
}

func NewRequestOptions(mode Mode, cfg SessionConfig, tuning Tuning) RequestOptions {
	opts := RequestOptions{
		Mode:                 mode,
		Accuracy:             tuning.Accuracy,
		EnableHighAccuracy:   cfg.HighAccuracy,
		Timeout:              tuning.Timeout,
		MaximumAge:           tuning.MaximumAge,
		DistanceFilter:       tuning.DistanceFilter,
		Interval:             tuning.Interval,
		FastestInterval:      tuning.FastestInterval,
		ForceRequestLocation: cfg.ForceLocationRequest,
		ShowLocationDialog:   cfg.ShowLocationDialog,
	}
	if mode == ModeWatch {
		opts.UseSignificantChanges = cfg.UseSignificantChanges
	}
	return opts
}

// Validate checks that the parameters the mode depends on are present. Values
// are not range-checked; the device owns their meaning.
func (o RequestOptions) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s options require %s", apperrors.ErrInvalidInput, o.Mode, field)
	}
	if o.Accuracy.Android == "" || o.Accuracy.IOS == "" {
		return missing("accuracy for both platforms")
	}
	if o.DistanceFilter < 0 {
		return missing("non-negative distance filter")
	}
	switch o.Mode {
	case ModeOnce:
		if o.Timeout <= 0 {
			return missing("timeout")
		}
		if o.MaximumAge < 0 {
			return missing("non-negative maximum age")
		}
	case ModeWatch:
		if o.Interval <= 0 {
			return missing("interval")
		}
		if o.FastestInterval <= 0 {
			return missing("fastest interval")
		}
	default:
		return fmt.Errorf("%w: unknown request mode %q", apperrors.ErrInvalidInput, o.Mode)
	}
	return nil
}
