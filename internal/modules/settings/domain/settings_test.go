package domain

import (
	"errors"
	"testing"

	apperrors "geowatch/internal/platform/errors"
)

func TestTogglesFollowPlatform(t *testing.T) {
	t.Parallel()
	s := Defaults()

	ios := s.Toggles("ios")
	if len(ios) != 2 || ios[0].Key != KeyHighAccuracy || ios[1].Key != KeyUseSignificantChanges {
		t.Fatalf("unexpected ios toggles: %+v", ios)
	}
	android := s.Toggles("android")
	want := []string{KeyHighAccuracy, KeyShowLocationDialog, KeyForceLocationRequest, KeyForegroundService}
	if len(android) != len(want) {
		t.Fatalf("unexpected android toggles: %+v", android)
	}
	for idx, key := range want {
		if android[idx].Key != key {
			t.Fatalf("toggle %d: expected %s, got %s", idx, key, android[idx].Key)
		}
	}
	if !Applicable("ios", "watch.interval_ms") || Applicable("ios", KeyForegroundService) {
		t.Fatalf("unexpected applicability")
	}
}

func TestSetParsesByKind(t *testing.T) {
	t.Parallel()
	s := Defaults()
	if err := s.Set(KeyHighAccuracy, "false"); err != nil {
		t.Fatalf("set toggle: %v", err)
	}
	if s.HighAccuracy {
		t.Fatalf("expected high accuracy off")
	}
	if err := s.Set("watch.interval_ms", "1000"); err != nil {
		t.Fatalf("set interval: %v", err)
	}
	if s.Watch.IntervalMS != 1000 {
		t.Fatalf("expected interval 1000, got %d", s.Watch.IntervalMS)
	}
	if err := s.Set("fetch.distance_filter", "12.5"); err != nil {
		t.Fatalf("set distance: %v", err)
	}
	if s.Fetch.DistanceFilter != 12.5 {
		t.Fatalf("expected distance 12.5, got %v", s.Fetch.DistanceFilter)
	}
	if err := s.Set("fetch.accuracy_ios", "nearestTenMeters"); err != nil {
		t.Fatalf("set accuracy: %v", err)
	}
}

func TestSetRejectsBadInput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		key, value string
		want       error
	}{
		{KeyHighAccuracy, "maybe", apperrors.ErrInvalidInput},
		{"watch.interval_ms", "-5", apperrors.ErrInvalidInput},
		{"fetch.timeout_ms", "soon", apperrors.ErrInvalidInput},
		{"fetch.accuracy_android", " ", apperrors.ErrInvalidInput},
		{"fetch.unknown", "1", apperrors.ErrNotFound},
		{"colour", "blue", apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		s := Defaults()
		if err := s.Set(tt.key, tt.value); !errors.Is(err, tt.want) {
			t.Fatalf("set %s=%q: expected %v, got %v", tt.key, tt.value, tt.want, err)
		}
	}
}

func TestFlip(t *testing.T) {
	t.Parallel()
	s := Defaults()
	on, err := s.Flip(KeyForegroundService)
	if err != nil || !on || !s.ForegroundService {
		t.Fatalf("expected foreground service on, got %v %v", on, err)
	}
	if _, err := s.Flip("watch.interval_ms"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input flipping a tuning key, got %v", err)
	}
}

func TestKeysAreSettable(t *testing.T) {
	t.Parallel()
	for _, key := range Keys() {
		s := Defaults()
		value := "1"
		if _, ok := toggleRef(&s, key); ok {
			value = "true"
		}
		if err := s.Set(key, value); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
}
