package dto

import "time"

type Tuning struct {
	AccuracyAndroid string
	AccuracyIOS     string
	Timeout         time.Duration
	MaximumAge      time.Duration
	DistanceFilter  float64
	Interval        time.Duration
	FastestInterval time.Duration
}

type Toggle struct {
	Key   string
	Label string
	On    bool
}

// SettingsOutput carries every value plus the switches offered on the
// current platform, in display order.
type SettingsOutput struct {
	Platform              string
	HighAccuracy          bool
	ForceLocationRequest  bool
	ShowLocationDialog    bool
	UseSignificantChanges bool
	ForegroundService     bool
	Fetch                 Tuning
	Watch                 Tuning
	Toggles               []Toggle
}
