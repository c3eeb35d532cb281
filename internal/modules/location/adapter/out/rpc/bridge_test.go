package rpc_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	locationadapterout "geowatch/internal/modules/location/adapter/out"
	devicerpc "geowatch/internal/modules/location/adapter/out/rpc"
	"geowatch/internal/modules/location/domain"
	"geowatch/internal/platform/clock"
)

func newBridge(t *testing.T, sim locationadapterout.SimulationConfig) (*devicerpc.BridgeDevice, *locationadapterout.SimulatedDevice) {
	t.Helper()
	device := locationadapterout.NewSimulatedDevice(clock.SystemClock{}, sim, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := grpc.NewServer()
	devicerpc.RegisterDeviceBridgeServer(server, devicerpc.NewDeviceServer(device))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return devicerpc.NewBridgeDevice(devicerpc.NewDeviceBridgeClient(conn), nil), device
}

func watchOptions() domain.RequestOptions {
	return domain.RequestOptions{
		Mode:            domain.ModeWatch,
		Accuracy:        domain.Accuracy{Android: "balanced", IOS: "hundredMeters"},
		Interval:        20 * time.Millisecond,
		FastestInterval: 10 * time.Millisecond,
	}
}

func TestBridgePermissionRoundTrip(t *testing.T) {
	bridge, device := newBridge(t, locationadapterout.SimulationConfig{Permission: "granted"})
	ctx := context.Background()

	granted, err := bridge.CheckPermission(ctx, domain.FineLocationPermission)
	if err != nil {
		t.Fatalf("check permission: %v", err)
	}
	if granted {
		t.Fatalf("expected permission not granted before the prompt")
	}
	result, err := bridge.RequestPermission(ctx, domain.FineLocationPermission)
	if err != nil {
		t.Fatalf("request permission: %v", err)
	}
	if result != domain.PermissionGranted {
		t.Fatalf("expected granted, got %s", result)
	}
	granted, err = bridge.CheckPermission(ctx, domain.FineLocationPermission)
	if err != nil || !granted {
		t.Fatalf("expected granted after prompt, got %v %v", granted, err)
	}

	status, err := bridge.RequestAuthorization(ctx, domain.ScopeWhenInUse)
	if err != nil {
		t.Fatalf("request authorization: %v", err)
	}
	if status != domain.AuthorizationGranted {
		t.Fatalf("expected granted authorization, got %s", status)
	}

	if err := bridge.OpenSettings(ctx); err != nil {
		t.Fatalf("open settings: %v", err)
	}
	if device.SettingsOpened() != 1 {
		t.Fatalf("expected settings opened once, got %d", device.SettingsOpened())
	}
}

func TestBridgeCurrentPosition(t *testing.T) {
	bridge, _ := newBridge(t, locationadapterout.SimulationConfig{Latitude: 52.52, Longitude: 13.405})
	position, err := bridge.CurrentPosition(context.Background(), domain.RequestOptions{
		Mode:               domain.ModeOnce,
		EnableHighAccuracy: true,
		Timeout:            time.Second,
	})
	if err != nil {
		t.Fatalf("current position: %v", err)
	}
	if position.AccuracyMeters != 4.5 {
		t.Fatalf("expected high accuracy fix, got %v", position.AccuracyMeters)
	}
	if position.Altitude == nil || position.CapturedAt == 0 {
		t.Fatalf("expected optional readings and timestamp, got %+v", position)
	}
}

func TestBridgeCarriesPositionErrorCodes(t *testing.T) {
	bridge, _ := newBridge(t, locationadapterout.SimulationConfig{FixError: "timeout"})
	_, err := bridge.CurrentPosition(context.Background(), domain.RequestOptions{Mode: domain.ModeOnce, Timeout: time.Second})
	var positionErr *domain.PositionError
	if !errors.As(err, &positionErr) {
		t.Fatalf("expected position error, got %v", err)
	}
	if positionErr.Code != domain.CodeTimeout {
		t.Fatalf("expected timeout code, got %d", positionErr.Code)
	}
}

func TestBridgeForegroundService(t *testing.T) {
	bridge, device := newBridge(t, locationadapterout.SimulationConfig{})
	ctx := context.Background()
	if err := bridge.CreateNotificationChannel(ctx, domain.DefaultChannel()); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if err := bridge.StartService(ctx, domain.DefaultNotification("GeoWatch")); err != nil {
		t.Fatalf("start service: %v", err)
	}
	if !device.ServiceRunning() {
		t.Fatalf("expected service running")
	}
	if err := bridge.StopService(ctx); err != nil {
		t.Fatalf("stop service: %v", err)
	}
	if device.ServiceRunning() {
		t.Fatalf("expected service stopped")
	}
	if err := bridge.StopService(ctx); err == nil {
		t.Fatalf("expected error stopping a stopped service")
	}
}

func TestBridgeStartServiceFailure(t *testing.T) {
	bridge, _ := newBridge(t, locationadapterout.SimulationConfig{ServiceFails: true})
	if err := bridge.StartService(context.Background(), domain.DefaultNotification("GeoWatch")); err == nil {
		t.Fatalf("expected start failure")
	}
}

func TestBridgeWatchStreamsUntilClosed(t *testing.T) {
	bridge, _ := newBridge(t, locationadapterout.SimulationConfig{Latitude: 1, Longitude: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := bridge.Watch(ctx, watchOptions())
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				t.Fatalf("stream ended early")
			}
			if event.Err != nil || event.Position == nil {
				t.Fatalf("expected position event, got %+v", event)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		case <-ctx.Done():
			t.Fatalf("events channel not closed after Close")
		}
	}
}

func TestBridgeWatchRegistrationError(t *testing.T) {
	bridge, _ := newBridge(t, locationadapterout.SimulationConfig{})
	opts := watchOptions()
	opts.Interval = 0
	opts.FastestInterval = 0
	_, err := bridge.Watch(context.Background(), opts)
	var positionErr *domain.PositionError
	if !errors.As(err, &positionErr) {
		t.Fatalf("expected position error from registration, got %v", err)
	}
}
