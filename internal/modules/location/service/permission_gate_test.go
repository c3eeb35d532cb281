package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"geowatch/internal/modules/location/domain"
	"geowatch/internal/modules/location/service"
)

type fakePermissions struct {
	authStatus domain.AuthorizationStatus
	authErr    error
	granted    bool
	checkErr   error
	result     domain.PermissionResult
	requestErr error
	openErr    error

	authCalls    int
	checkCalls   int
	requestCalls int
	openCalls    int
}

func (f *fakePermissions) RequestAuthorization(context.Context, domain.AuthorizationScope) (domain.AuthorizationStatus, error) {
	f.authCalls++
	return f.authStatus, f.authErr
}

func (f *fakePermissions) CheckPermission(context.Context, string) (bool, error) {
	f.checkCalls++
	return f.granted, f.checkErr
}

func (f *fakePermissions) RequestPermission(context.Context, string) (domain.PermissionResult, error) {
	f.requestCalls++
	return f.result, f.requestErr
}

func (f *fakePermissions) OpenSettings(context.Context) error {
	f.openCalls++
	return f.openErr
}

type fakeNotifier struct {
	choice   string
	notified []domain.Advisory
	asked    []domain.Advisory
}

func (f *fakeNotifier) Notify(_ context.Context, advisory domain.Advisory) {
	f.notified = append(f.notified, advisory)
}

func (f *fakeNotifier) Choose(_ context.Context, advisory domain.Advisory) string {
	f.asked = append(f.asked, advisory)
	return f.choice
}

func newGate(t *testing.T, platform domain.Platform, osVersion int, device *fakePermissions, notifier *fakeNotifier) service.PermissionGate {
	t.Helper()
	gate, err := service.NewPermissionGate(platform, osVersion, device, notifier, "GeoWatch", nil)
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	return gate
}

func TestPromptGateOutcomes(t *testing.T) {
	t.Parallel()
	device := &fakePermissions{authStatus: domain.AuthorizationGranted}
	notifier := &fakeNotifier{}
	if got := newGate(t, domain.PlatformIOS, 17, device, notifier).Ensure(context.Background()); got != domain.OutcomeGranted {
		t.Fatalf("expected granted, got %s", got)
	}
	if len(notifier.notified) != 0 || device.authCalls != 1 {
		t.Fatalf("granted must prompt once and stay quiet: %+v calls=%d", notifier.notified, device.authCalls)
	}

	device = &fakePermissions{authStatus: domain.AuthorizationDenied}
	notifier = &fakeNotifier{}
	if got := newGate(t, domain.PlatformIOS, 17, device, notifier).Ensure(context.Background()); got != domain.OutcomeDeniedTemporary {
		t.Fatalf("expected denied temporary, got %s", got)
	}
	if len(notifier.notified) != 1 || notifier.notified[0].Title != "Location permission denied" {
		t.Fatalf("expected one denial advisory, got %+v", notifier.notified)
	}
	if device.checkCalls != 0 || device.requestCalls != 0 {
		t.Fatalf("ios flow must not use runtime permission calls")
	}
}

func TestPromptGateDisabledOffersSettings(t *testing.T) {
	t.Parallel()
	device := &fakePermissions{authStatus: domain.AuthorizationDisabled}
	notifier := &fakeNotifier{choice: domain.ActionOpenSettings}
	if got := newGate(t, domain.PlatformIOS, 17, device, notifier).Ensure(context.Background()); got != domain.OutcomeServiceDisabled {
		t.Fatalf("expected service disabled, got %s", got)
	}
	if len(notifier.asked) != 1 || !strings.Contains(notifier.asked[0].Title, `"GeoWatch"`) {
		t.Fatalf("expected settings offer naming the app, got %+v", notifier.asked)
	}
	if notifier.asked[0].Actions[0] != domain.ActionOpenSettings {
		t.Fatalf("settings action must come first: %v", notifier.asked[0].Actions)
	}
	if device.openCalls != 1 {
		t.Fatalf("expected settings deep link, got %d calls", device.openCalls)
	}

	device = &fakePermissions{authStatus: domain.AuthorizationDisabled, openErr: errors.New("no settings app")}
	notifier = &fakeNotifier{choice: domain.ActionOpenSettings}
	newGate(t, domain.PlatformIOS, 17, device, notifier).Ensure(context.Background())
	if len(notifier.notified) != 1 || notifier.notified[0].Title != "Unable to open settings" {
		t.Fatalf("expected open settings failure advisory, got %+v", notifier.notified)
	}

	device = &fakePermissions{authStatus: domain.AuthorizationDisabled}
	notifier = &fakeNotifier{choice: domain.ActionDontUseLocation}
	newGate(t, domain.PlatformIOS, 17, device, notifier).Ensure(context.Background())
	if device.openCalls != 0 || len(notifier.notified) != 0 || device.authCalls != 1 {
		t.Fatalf("declining must be a silent no-op: open=%d notified=%v auth=%d", device.openCalls, notifier.notified, device.authCalls)
	}
}

func TestPromptGateErrorIsNotGranted(t *testing.T) {
	t.Parallel()
	device := &fakePermissions{authErr: errors.New("bridge down")}
	if got := newGate(t, domain.PlatformIOS, 17, device, &fakeNotifier{}).Ensure(context.Background()); got != domain.OutcomeDeniedTemporary {
		t.Fatalf("expected denied temporary on error, got %s", got)
	}
}

func TestRuntimeGateBelowFloorSkipsDevice(t *testing.T) {
	t.Parallel()
	device := &fakePermissions{result: domain.PermissionDenied}
	for _, version := range []int{1, 21, 22} {
		if got := newGate(t, domain.PlatformAndroid, version, device, &fakeNotifier{}).Ensure(context.Background()); got != domain.OutcomeGranted {
			t.Fatalf("api %d: expected granted, got %s", version, got)
		}
	}
	if device.checkCalls != 0 || device.requestCalls != 0 {
		t.Fatalf("below floor must not touch the device: check=%d request=%d", device.checkCalls, device.requestCalls)
	}
}

func TestRuntimeGateAlreadyGrantedDoesNotPrompt(t *testing.T) {
	t.Parallel()
	device := &fakePermissions{granted: true}
	if got := newGate(t, domain.PlatformAndroid, 23, device, &fakeNotifier{}).Ensure(context.Background()); got != domain.OutcomeGranted {
		t.Fatalf("expected granted, got %s", got)
	}
	if device.requestCalls != 0 {
		t.Fatalf("already granted must not prompt")
	}
}

func TestRuntimeGateRequestOutcomes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		result  domain.PermissionResult
		want    domain.PermissionOutcome
		message string
	}{
		{domain.PermissionGranted, domain.OutcomeGranted, ""},
		{domain.PermissionDenied, domain.OutcomeDeniedTemporary, "Location permission denied by user."},
		{domain.PermissionNeverAskAgain, domain.OutcomeDeniedPermanent, "Location permission revoked by user."},
	}
	for _, tc := range cases {
		device := &fakePermissions{result: tc.result}
		notifier := &fakeNotifier{}
		got := newGate(t, domain.PlatformAndroid, 30, device, notifier).Ensure(context.Background())
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.result, tc.want, got)
		}
		if device.requestCalls != 1 {
			t.Fatalf("%s: expected exactly one prompt, got %d", tc.result, device.requestCalls)
		}
		if tc.message == "" {
			if len(notifier.notified) != 0 {
				t.Fatalf("%s: unexpected advisory %+v", tc.result, notifier.notified)
			}
			continue
		}
		if len(notifier.notified) != 1 || notifier.notified[0].Message != tc.message || notifier.notified[0].Kind != domain.AdvisoryToast {
			t.Fatalf("%s: unexpected advisory %+v", tc.result, notifier.notified)
		}
		if device.openCalls != 0 {
			t.Fatalf("android flow must never redirect to settings")
		}
	}
}

func TestRuntimeGateRequestErrorIsNotGranted(t *testing.T) {
	t.Parallel()
	device := &fakePermissions{checkErr: errors.New("check failed"), requestErr: errors.New("request failed")}
	if got := newGate(t, domain.PlatformAndroid, 30, device, &fakeNotifier{}).Ensure(context.Background()); got != domain.OutcomeDeniedTemporary {
		t.Fatalf("expected denied temporary, got %s", got)
	}
	if device.requestCalls != 1 {
		t.Fatalf("a failed check still allows one prompt, got %d", device.requestCalls)
	}
}

func TestNewPermissionGateRejectsUnknownPlatform(t *testing.T) {
	t.Parallel()
	if _, err := service.NewPermissionGate("tizen", 1, &fakePermissions{}, nil, "", nil); err == nil {
		t.Fatalf("unknown platform must fail")
	}
}
