package out_test

import (
	"context"
	"errors"
	"testing"
	"time"

	locationadapterout "geowatch/internal/modules/location/adapter/out"
	"geowatch/internal/modules/location/domain"
	"geowatch/internal/platform/clock"
)

func TestSimulatedDevicePermissionAnswers(t *testing.T) {
	tests := []struct {
		answer  string
		result  domain.PermissionResult
		status  domain.AuthorizationStatus
		granted bool
	}{
		{answer: "granted", result: domain.PermissionGranted, status: domain.AuthorizationGranted, granted: true},
		{answer: "denied", result: domain.PermissionDenied, status: domain.AuthorizationDenied},
		{answer: "never_ask_again", result: domain.PermissionNeverAskAgain, status: domain.AuthorizationDenied},
		{answer: "disabled", result: domain.PermissionDenied, status: domain.AuthorizationDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			device := locationadapterout.NewSimulatedDevice(clock.SystemClock{}, locationadapterout.SimulationConfig{Permission: tt.answer}, nil)
			ctx := context.Background()
			result, err := device.RequestPermission(ctx, domain.FineLocationPermission)
			if err != nil {
				t.Fatalf("request permission: %v", err)
			}
			if result != tt.result {
				t.Fatalf("expected %s, got %s", tt.result, result)
			}
			status, err := device.RequestAuthorization(ctx, domain.ScopeWhenInUse)
			if err != nil {
				t.Fatalf("request authorization: %v", err)
			}
			if status != tt.status {
				t.Fatalf("expected %s, got %s", tt.status, status)
			}
			granted, _ := device.CheckPermission(ctx, domain.FineLocationPermission)
			if granted != tt.granted {
				t.Fatalf("expected granted=%v, got %v", tt.granted, granted)
			}
		})
	}
}

func TestSimulatedDeviceRejectsUnknownPermission(t *testing.T) {
	device := locationadapterout.NewSimulatedDevice(clock.SystemClock{}, locationadapterout.SimulationConfig{}, nil)
	if _, err := device.CheckPermission(context.Background(), "android.permission.CAMERA"); err == nil {
		t.Fatalf("expected error for unknown permission")
	}
}

func TestSimulatedDeviceTimesOutSlowFix(t *testing.T) {
	device := locationadapterout.NewSimulatedDevice(clock.SystemClock{}, locationadapterout.SimulationConfig{FixLatency: time.Second}, nil)
	_, err := device.CurrentPosition(context.Background(), domain.RequestOptions{Mode: domain.ModeOnce, Timeout: 10 * time.Millisecond})
	var positionErr *domain.PositionError
	if !errors.As(err, &positionErr) || positionErr.Code != domain.CodeTimeout {
		t.Fatalf("expected timeout position error, got %v", err)
	}
}

func TestSimulatedDeviceHonoursCancellation(t *testing.T) {
	device := locationadapterout.NewSimulatedDevice(clock.SystemClock{}, locationadapterout.SimulationConfig{FixLatency: time.Second}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := device.CurrentPosition(ctx, domain.RequestOptions{Mode: domain.ModeOnce, Timeout: 5 * time.Second})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestSimulatedDeviceWatchDeliversErrors(t *testing.T) {
	device := locationadapterout.NewSimulatedDevice(clock.SystemClock{}, locationadapterout.SimulationConfig{FixError: "unavailable"}, nil)
	sub, err := device.Watch(context.Background(), domain.RequestOptions{Mode: domain.ModeWatch, Interval: 10 * time.Millisecond, FastestInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		var positionErr *domain.PositionError
		if !errors.As(event.Err, &positionErr) || positionErr.Code != domain.CodePositionUnavailable {
			t.Fatalf("expected unavailable error event, got %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestSimulatedDeviceWatchClosesEvents(t *testing.T) {
	device := locationadapterout.NewSimulatedDevice(clock.SystemClock{}, locationadapterout.SimulationConfig{}, nil)
	sub, err := device.Watch(context.Background(), domain.RequestOptions{Mode: domain.ModeWatch, Interval: 5 * time.Millisecond, FastestInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	_ = sub.Close()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("events channel not closed")
		}
	}
}
