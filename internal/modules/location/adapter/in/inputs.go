package in

import (
	locationdto "geowatch/internal/modules/location/dto"
	settingsdto "geowatch/internal/modules/settings/dto"
)

// sessionConfig snapshots the stored switches. Switches not offered on the
// platform are passed as stored; the session ignores the ones that do not
// apply.
func sessionConfig(settings settingsdto.SettingsOutput) locationdto.SessionConfig {
	return locationdto.SessionConfig{
		HighAccuracy:             settings.HighAccuracy,
		ForceLocationRequest:     settings.ForceLocationRequest,
		ShowLocationDialog:       settings.ShowLocationDialog,
		UseSignificantChanges:    settings.UseSignificantChanges,
		ForegroundServiceEnabled: settings.ForegroundService,
	}
}

func tuning(in settingsdto.Tuning) locationdto.Tuning {
	return locationdto.Tuning{
		AccuracyAndroid: in.AccuracyAndroid,
		AccuracyIOS:     in.AccuracyIOS,
		Timeout:         in.Timeout,
		MaximumAge:      in.MaximumAge,
		DistanceFilter:  in.DistanceFilter,
		Interval:        in.Interval,
		FastestInterval: in.FastestInterval,
	}
}

func fetchInput(settings settingsdto.SettingsOutput) locationdto.FetchInput {
	return locationdto.FetchInput{Config: sessionConfig(settings), Tuning: tuning(settings.Fetch)}
}

func watchInput(settings settingsdto.SettingsOutput) locationdto.WatchInput {
	return locationdto.WatchInput{Config: sessionConfig(settings), Tuning: tuning(settings.Watch)}
}
