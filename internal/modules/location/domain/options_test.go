package domain

import (
	"errors"
	"testing"
	"time"

	apperrors "geowatch/internal/platform/errors"
)

func TestNewRequestOptionsPassesValuesThrough(t *testing.T) {
	t.Parallel()
	cfg := SessionConfig{HighAccuracy: true, ForceLocationRequest: true, UseSignificantChanges: true}
	tuning := Tuning{
		Accuracy:       Accuracy{Android: "high", IOS: "best"},
		Timeout:        15 * time.Second,
		MaximumAge:     10 * time.Second,
		DistanceFilter: 3.5,
	}
	once := NewRequestOptions(ModeOnce, cfg, tuning)
	if !once.EnableHighAccuracy || !once.ForceRequestLocation || once.ShowLocationDialog {
		t.Fatalf("unexpected flags: %+v", once)
	}
	if once.UseSignificantChanges {
		t.Fatalf("significant changes only applies to watches")
	}
	if once.DistanceFilter != 3.5 || once.Timeout != 15*time.Second {
		t.Fatalf("tuning must pass through verbatim: %+v", once)
	}
	if err := once.Validate(); err != nil {
		t.Fatalf("validate once: %v", err)
	}

	watch := NewRequestOptions(ModeWatch, cfg, Tuning{Accuracy: Accuracy{Android: "balanced", IOS: "hundredMeters"}, Interval: 5 * time.Second, FastestInterval: 2 * time.Second})
	if !watch.UseSignificantChanges {
		t.Fatalf("watch should carry significant changes flag")
	}
	if err := watch.Validate(); err != nil {
		t.Fatalf("validate watch: %v", err)
	}
}

func TestRequestOptionsValidateRequiresPresence(t *testing.T) {
	t.Parallel()
	cases := []RequestOptions{
		{Mode: ModeOnce, Accuracy: Accuracy{Android: "high"}, Timeout: time.Second},
		{Mode: ModeOnce, Accuracy: Accuracy{Android: "high", IOS: "best"}},
		{Mode: ModeWatch, Accuracy: Accuracy{Android: "high", IOS: "best"}, FastestInterval: time.Second},
		{Mode: ModeWatch, Accuracy: Accuracy{Android: "high", IOS: "best"}, Interval: time.Second},
		{Mode: "burst", Accuracy: Accuracy{Android: "high", IOS: "best"}},
		{Mode: ModeOnce, Accuracy: Accuracy{Android: "high", IOS: "best"}, Timeout: time.Second, DistanceFilter: -1},
	}
	for i, opts := range cases {
		if err := opts.Validate(); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestPermissionOutcomeErr(t *testing.T) {
	t.Parallel()
	if OutcomeGranted.Err() != nil {
		t.Fatalf("granted must not map to an error")
	}
	checks := map[PermissionOutcome]error{
		OutcomeDeniedTemporary: apperrors.ErrPermissionDenied,
		OutcomeDeniedPermanent: apperrors.ErrPermissionDeniedPermanently,
		OutcomeServiceDisabled: apperrors.ErrLocationServicesDisabled,
	}
	for outcome, want := range checks {
		if err := outcome.Err(); !errors.Is(err, want) {
			t.Fatalf("%s: expected %v, got %v", outcome, want, err)
		}
	}
}

func TestParseErrorCode(t *testing.T) {
	t.Parallel()
	if code, ok := ParseErrorCode("timeout"); !ok || code != CodeTimeout {
		t.Fatalf("timeout: %v %t", code, ok)
	}
	if code, ok := ParseErrorCode("unavailable"); !ok || code != CodePositionUnavailable {
		t.Fatalf("unavailable: %v %t", code, ok)
	}
	if _, ok := ParseErrorCode("nope"); ok {
		t.Fatalf("unknown code must not parse")
	}
}
