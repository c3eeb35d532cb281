package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"geowatch/internal/modules/location/domain"
	locationdto "geowatch/internal/modules/location/dto"
	locationin "geowatch/internal/modules/location/port/in"
	locationout "geowatch/internal/modules/location/port/out"
	"geowatch/internal/modules/location/service"
	"geowatch/internal/modules/location/usecase"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("watch-%d", s.n)
}

type fakeGate struct {
	mu      sync.Mutex
	outcome domain.PermissionOutcome
	calls   int
	block   chan struct{}
	entered chan struct{}
}

func (g *fakeGate) Ensure(context.Context) domain.PermissionOutcome {
	g.mu.Lock()
	g.calls++
	outcome, block, entered := g.outcome, g.block, g.entered
	g.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return outcome
}

func (g *fakeGate) set(outcome domain.PermissionOutcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outcome = outcome
}

type fakeSub struct {
	ch         chan domain.WatchEvent
	once       sync.Once
	mu         sync.Mutex
	closeCalls int
}

func newFakeSub() *fakeSub {
	return &fakeSub{ch: make(chan domain.WatchEvent, 8)}
}

func (s *fakeSub) Events() <-chan domain.WatchEvent { return s.ch }

func (s *fakeSub) Close() error {
	s.mu.Lock()
	s.closeCalls++
	s.mu.Unlock()
	s.end()
	return nil
}

func (s *fakeSub) end() {
	s.once.Do(func() { close(s.ch) })
}

func (s *fakeSub) closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

type fakeProvider struct {
	mu          sync.Mutex
	position    domain.Position
	fetchErr    error
	watchErr    error
	fetchCalls  int
	watchCalls  int
	lastOptions domain.RequestOptions
	subs        []*fakeSub
}

func (p *fakeProvider) CurrentPosition(_ context.Context, opts domain.RequestOptions) (domain.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls++
	p.lastOptions = opts
	if p.fetchErr != nil {
		return domain.Position{}, p.fetchErr
	}
	return p.position, nil
}

func (p *fakeProvider) Watch(_ context.Context, opts domain.RequestOptions) (locationout.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchCalls++
	p.lastOptions = opts
	if p.watchErr != nil {
		return nil, p.watchErr
	}
	sub := newFakeSub()
	p.subs = append(p.subs, sub)
	return sub, nil
}

func (p *fakeProvider) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchCalls, p.watchCalls
}

func (p *fakeProvider) lastSub() *fakeSub {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.subs) == 0 {
		return nil
	}
	return p.subs[len(p.subs)-1]
}

type fakeForeground struct {
	mu         sync.Mutex
	startErr   error
	startCalls int
	stopCalls  int
	running    bool
}

func (f *fakeForeground) CreateNotificationChannel(context.Context, domain.ChannelConfig) error {
	return nil
}

func (f *fakeForeground) StartService(context.Context, domain.NotificationConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeForeground) StopService(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	f.running = false
	return nil
}

func (f *fakeForeground) snapshot() (starts, stops int, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.stopCalls, f.running
}

type fakeJournal struct {
	mu          sync.Mutex
	transitions []domain.Transition
}

func (j *fakeJournal) Record(_ context.Context, t domain.Transition) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transitions = append(j.transitions, t)
	return nil
}

func (j *fakeJournal) Recent(_ context.Context, limit int) ([]domain.Transition, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.Transition, 0, limit)
	for idx := len(j.transitions) - 1; idx >= 0 && len(out) < limit; idx-- {
		out = append(out, j.transitions[idx])
	}
	return out, nil
}

func (j *fakeJournal) path() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.transitions))
	for _, t := range j.transitions {
		out = append(out, string(t.From)+">"+string(t.To))
	}
	return out
}

type harness struct {
	uc         locationin.Usecase
	gate       *fakeGate
	provider   *fakeProvider
	foreground *fakeForeground
	journal    *fakeJournal
}

func newHarness(t *testing.T, platform domain.Platform) *harness {
	t.Helper()
	h := &harness{
		gate:       &fakeGate{outcome: domain.OutcomeGranted},
		provider:   &fakeProvider{position: domain.Position{Latitude: 52.52, Longitude: 13.405, AccuracyMeters: 5, CapturedAt: 1_700_000_000_000}},
		foreground: &fakeForeground{},
		journal:    &fakeJournal{},
	}
	h.uc = usecase.NewInteractor(
		h.gate,
		service.NewForegroundServiceController(h.foreground, platform, 30, nil),
		h.provider,
		h.journal,
		fixedClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)},
		&seqIDs{},
		usecase.Settings{Platform: platform, DisplayName: "GeoWatch"},
		nil,
	)
	t.Cleanup(func() { _ = h.uc.Close(context.Background()) })
	return h
}

func fetchTuning() locationdto.Tuning {
	return locationdto.Tuning{AccuracyAndroid: "high", AccuracyIOS: "best", Timeout: 15 * time.Second, MaximumAge: 10 * time.Second}
}

func watchTuning() locationdto.Tuning {
	return locationdto.Tuning{AccuracyAndroid: "balanced", AccuracyIOS: "hundredMeters", Interval: 5 * time.Second, FastestInterval: 2 * time.Second}
}

func fetchInput(cfg locationdto.SessionConfig) locationdto.FetchInput {
	return locationdto.FetchInput{Config: cfg, Tuning: fetchTuning()}
}

func watchInput(cfg locationdto.SessionConfig) locationdto.WatchInput {
	return locationdto.WatchInput{Config: cfg, Tuning: watchTuning()}
}

var errService = errors.New("service refused")

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
