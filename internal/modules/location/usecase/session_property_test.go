package usecase_test

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"geowatch/internal/modules/location/domain"
	locationdto "geowatch/internal/modules/location/dto"
)

func TestWatchHandleInvariantHoldsForAnySequence(t *testing.T) {
	t.Parallel()
	outcomes := []domain.PermissionOutcome{
		domain.OutcomeGranted,
		domain.OutcomeDeniedTemporary,
		domain.OutcomeDeniedPermanent,
		domain.OutcomeServiceDisabled,
	}
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, domain.PlatformAndroid)
		defer func() { _ = h.uc.Close(context.Background()) }()

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for step := 0; step < steps; step++ {
			h.gate.set(rapid.SampledFrom(outcomes).Draw(rt, "outcome"))
			h.foreground.mu.Lock()
			h.foreground.startErr = nil
			if rapid.Bool().Draw(rt, "service_fails") {
				h.foreground.startErr = errService
			}
			h.foreground.mu.Unlock()

			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				cfg := locationdto.SessionConfig{ForegroundServiceEnabled: rapid.Bool().Draw(rt, "fg")}
				_, _ = h.uc.StartWatch(context.Background(), watchInput(cfg))
			case 1:
				_ = h.uc.StopWatch(context.Background())
			case 2:
				_, _ = h.uc.FetchOnce(context.Background(), fetchInput(locationdto.SessionConfig{}))
			}

			snap := h.uc.Snapshot(context.Background())
			watching := snap.State == string(domain.StateWatching)
			if (snap.HandleID != "") != watching {
				rt.Fatalf("handle/state mismatch: %+v", snap)
			}
			if !watching && snap.State != string(domain.StateIdle) {
				rt.Fatalf("synchronous operations must settle in idle or watching, got %s", snap.State)
			}
			_, _, running := h.foreground.snapshot()
			if running != (watching && snap.ServiceBound) {
				rt.Fatalf("service running=%t but snapshot %+v", running, snap)
			}
		}
	})
}
