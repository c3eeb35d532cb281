package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	apperrors "geowatch/internal/platform/errors"
)

// Tuning holds device tuning values for one request mode. Durations are in
// milliseconds, the unit the device APIs take.
type Tuning struct {
	AccuracyAndroid   string  `yaml:"accuracy_android"`
	AccuracyIOS       string  `yaml:"accuracy_ios"`
	TimeoutMS         int64   `yaml:"timeout_ms"`
	MaximumAgeMS      int64   `yaml:"maximum_age_ms"`
	DistanceFilter    float64 `yaml:"distance_filter"`
	IntervalMS        int64   `yaml:"interval_ms"`
	FastestIntervalMS int64   `yaml:"fastest_interval_ms"`
}

// Settings is the persisted user configuration.
type Settings struct {
	HighAccuracy          bool   `yaml:"high_accuracy"`
	ForceLocationRequest  bool   `yaml:"force_location_request"`
	ShowLocationDialog    bool   `yaml:"show_location_dialog"`
	UseSignificantChanges bool   `yaml:"use_significant_changes"`
	ForegroundService     bool   `yaml:"foreground_service"`
	Fetch                 Tuning `yaml:"fetch"`
	Watch                 Tuning `yaml:"watch"`
}

func Defaults() Settings {
	return Settings{
		HighAccuracy:         true,
		ForceLocationRequest: true,
		ShowLocationDialog:   true,
		Fetch: Tuning{
			AccuracyAndroid: "high",
			AccuracyIOS:     "best",
			TimeoutMS:       15_000,
			MaximumAgeMS:    10_000,
		},
		Watch: Tuning{
			AccuracyAndroid:   "balanced",
			AccuracyIOS:       "hundredMeters",
			IntervalMS:        5_000,
			FastestIntervalMS: 2_000,
		},
	}
}

const (
	KeyHighAccuracy          = "high_accuracy"
	KeyForceLocationRequest  = "force_location_request"
	KeyShowLocationDialog    = "show_location_dialog"
	KeyUseSignificantChanges = "use_significant_changes"
	KeyForegroundService     = "foreground_service"
)

// Toggle describes one user switch.
type Toggle struct {
	Key   string
	Label string
	On    bool
}

type toggleField struct {
	key       string
	label     string
	platforms []string
	ref       func(s *Settings) *bool
}

// toggleFields is in display order.
var toggleFields = []toggleField{
	{KeyHighAccuracy, "Enable High Accuracy", []string{"ios", "android"}, func(s *Settings) *bool { return &s.HighAccuracy }},
	{KeyUseSignificantChanges, "Use Significant Changes", []string{"ios"}, func(s *Settings) *bool { return &s.UseSignificantChanges }},
	{KeyShowLocationDialog, "Show Location Dialog", []string{"android"}, func(s *Settings) *bool { return &s.ShowLocationDialog }},
	{KeyForceLocationRequest, "Force Location Request", []string{"android"}, func(s *Settings) *bool { return &s.ForceLocationRequest }},
	{KeyForegroundService, "Enable Foreground Service", []string{"android"}, func(s *Settings) *bool { return &s.ForegroundService }},
}

// Applicable reports whether a toggle is offered on platform. Tuning keys
// apply everywhere.
func Applicable(platform, key string) bool {
	for _, field := range toggleFields {
		if field.key == key {
			return slices.Contains(field.platforms, platform)
		}
	}
	_, ok := tuningRef(&Settings{}, key)
	return ok
}

// Toggles lists the switches offered on platform with their current values.
func (s Settings) Toggles(platform string) []Toggle {
	out := make([]Toggle, 0, len(toggleFields))
	for _, field := range toggleFields {
		if !slices.Contains(field.platforms, platform) {
			continue
		}
		out = append(out, Toggle{Key: field.key, Label: field.label, On: *field.ref(&s)})
	}
	return out
}

// Flip inverts a toggle and returns its new value.
func (s *Settings) Flip(key string) (bool, error) {
	ref, ok := toggleRef(s, key)
	if !ok {
		if _, tuning := tuningRef(s, key); tuning {
			return false, fmt.Errorf("%w: %s is not a switch", apperrors.ErrInvalidInput, key)
		}
		return false, fmt.Errorf("%w: setting %q", apperrors.ErrNotFound, key)
	}
	*ref = !*ref
	return *ref, nil
}

// Set parses value for key. Tuning keys are addressed as fetch.<field> or
// watch.<field>.
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	if ref, ok := toggleRef(s, key); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false", apperrors.ErrInvalidInput, key)
		}
		*ref = parsed
		return nil
	}
	ref, ok := tuningRef(s, key)
	if !ok {
		return fmt.Errorf("%w: setting %q", apperrors.ErrNotFound, key)
	}
	return ref(value)
}

// Validate rejects values no device accepts.
func (s Settings) Validate() error {
	for mode, tuning := range map[string]Tuning{"fetch": s.Fetch, "watch": s.Watch} {
		if tuning.TimeoutMS < 0 || tuning.MaximumAgeMS < 0 || tuning.IntervalMS < 0 || tuning.FastestIntervalMS < 0 {
			return fmt.Errorf("%w: %s durations must not be negative", apperrors.ErrInvalidInput, mode)
		}
		if tuning.DistanceFilter < 0 {
			return fmt.Errorf("%w: %s distance filter must not be negative", apperrors.ErrInvalidInput, mode)
		}
	}
	return nil
}

// Keys lists every settable key.
func Keys() []string {
	keys := make([]string, 0, len(toggleFields)+14)
	for _, field := range toggleFields {
		keys = append(keys, field.key)
	}
	for _, mode := range []string{"fetch", "watch"} {
		for _, field := range tuningFields {
			keys = append(keys, mode+"."+field)
		}
	}
	return keys
}

func toggleRef(s *Settings, key string) (*bool, bool) {
	for _, field := range toggleFields {
		if field.key == key {
			return field.ref(s), true
		}
	}
	return nil, false
}

var tuningFields = []string{
	"accuracy_android",
	"accuracy_ios",
	"timeout_ms",
	"maximum_age_ms",
	"distance_filter",
	"interval_ms",
	"fastest_interval_ms",
}

func tuningRef(s *Settings, key string) (func(string) error, bool) {
	mode, field, ok := strings.Cut(key, ".")
	if !ok {
		return nil, false
	}
	var tuning *Tuning
	switch mode {
	case "fetch":
		tuning = &s.Fetch
	case "watch":
		tuning = &s.Watch
	default:
		return nil, false
	}
	switch field {
	case "accuracy_android":
		return setText(key, &tuning.AccuracyAndroid), true
	case "accuracy_ios":
		return setText(key, &tuning.AccuracyIOS), true
	case "timeout_ms":
		return setMillis(key, &tuning.TimeoutMS), true
	case "maximum_age_ms":
		return setMillis(key, &tuning.MaximumAgeMS), true
	case "interval_ms":
		return setMillis(key, &tuning.IntervalMS), true
	case "fastest_interval_ms":
		return setMillis(key, &tuning.FastestIntervalMS), true
	case "distance_filter":
		return func(value string) error {
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil || parsed < 0 {
				return fmt.Errorf("%w: %s expects a non-negative number", apperrors.ErrInvalidInput, key)
			}
			tuning.DistanceFilter = parsed
			return nil
		}, true
	}
	return nil, false
}

func setText(key string, dst *string) func(string) error {
	return func(value string) error {
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", apperrors.ErrInvalidInput, key)
		}
		*dst = value
		return nil
	}
}

func setMillis(key string, dst *int64) func(string) error {
	return func(value string) error {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed < 0 {
			return fmt.Errorf("%w: %s expects a non-negative integer", apperrors.ErrInvalidInput, key)
		}
		*dst = parsed
		return nil
	}
}
