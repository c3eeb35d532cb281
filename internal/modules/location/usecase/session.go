package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"geowatch/internal/modules/location/domain"
	locationdto "geowatch/internal/modules/location/dto"
	locationin "geowatch/internal/modules/location/port/in"
	locationout "geowatch/internal/modules/location/port/out"
	"geowatch/internal/modules/location/service"
	"geowatch/internal/platform/clock"
	apperrors "geowatch/internal/platform/errors"
	"geowatch/internal/platform/id"
	"geowatch/internal/platform/logging"
)

const subscriberBuffer = 64

type Settings struct {
	Platform    domain.Platform
	DisplayName string
}

// Interactor owns the one location session: its state, the live watch
// subscription and the foreground service binding. Nothing else starts or
// stops them.
type Interactor struct {
	gate       service.PermissionGate
	foreground *service.ForegroundServiceController
	provider   locationout.LocationProvider
	journal    locationout.TransitionJournal
	clock      clock.Clock
	ids        id.Generator
	settings   Settings
	logger     hclog.Logger

	// mu is never held across a permission prompt, service start or device call.
	mu           sync.Mutex
	session      *domain.Session
	sub          locationout.Subscription
	lastAdvisory string
	shutdown     bool

	subsMu      sync.Mutex
	subscribers map[int]chan locationdto.SessionEvent
	nextSub     int
	closed      bool
}

func NewInteractor(
	gate service.PermissionGate,
	foreground *service.ForegroundServiceController,
	provider locationout.LocationProvider,
	journal locationout.TransitionJournal,
	clk clock.Clock,
	ids id.Generator,
	settings Settings,
	logger hclog.Logger,
) locationin.Usecase {
	return &Interactor{
		gate:        gate,
		foreground:  foreground,
		provider:    provider,
		journal:     journal,
		clock:       clk,
		ids:         ids,
		settings:    settings,
		logger:      logging.OrDiscard(logger).Named("session"),
		session:     domain.NewSession(),
		subscribers: map[int]chan locationdto.SessionEvent{},
	}
}

func (i *Interactor) FetchOnce(ctx context.Context, input locationdto.FetchInput) (locationdto.PositionOutput, error) {
	opts := domain.NewRequestOptions(domain.ModeOnce, toConfig(input.Config), toTuning(input.Tuning))
	if err := opts.Validate(); err != nil {
		return locationdto.PositionOutput{}, err
	}
	if i.closing() {
		return locationdto.PositionOutput{}, apperrors.ErrSessionClosed
	}
	if err := i.step(ctx, "fetch requested", (*domain.Session).Acquire); err != nil {
		return locationdto.PositionOutput{}, err
	}

	if outcome := i.gate.Ensure(ctx); outcome != domain.OutcomeGranted {
		i.abort(ctx, "permission "+string(outcome))
		return locationdto.PositionOutput{}, outcome.Err()
	}
	if err := i.halted(ctx); err != nil {
		i.abort(ctx, "fetch abandoned")
		return locationdto.PositionOutput{}, err
	}
	if err := i.step(ctx, "permission granted", (*domain.Session).BeginFetch); err != nil {
		i.abort(ctx, "fetch rejected")
		return locationdto.PositionOutput{}, err
	}

	position, err := i.provider.CurrentPosition(ctx, opts)
	if err != nil {
		mapped := classifyPositionError(ctx, err)
		i.abort(ctx, "fetch failed")
		i.advise(mapped.Error())
		return locationdto.PositionOutput{}, mapped
	}

	i.mu.Lock()
	t, err := i.session.FinishFetch(position)
	i.mu.Unlock()
	if err != nil {
		return locationdto.PositionOutput{}, err
	}
	i.record(ctx, t, "position received")
	i.publish(locationdto.SessionEvent{Kind: locationdto.EventPosition, Position: toPositionOutput(position)})
	return toPositionOutput(position), nil
}

func (i *Interactor) StartWatch(ctx context.Context, input locationdto.WatchInput) (locationdto.WatchOutput, error) {
	opts := domain.NewRequestOptions(domain.ModeWatch, toConfig(input.Config), toTuning(input.Tuning))
	if err := opts.Validate(); err != nil {
		return locationdto.WatchOutput{}, err
	}

	i.mu.Lock()
	if i.shutdown {
		i.mu.Unlock()
		return locationdto.WatchOutput{}, apperrors.ErrSessionClosed
	}
	if handle, ok := i.session.Handle(); ok {
		i.mu.Unlock()
		return toWatchOutput(handle, true), nil
	}
	t, err := i.session.Acquire()
	i.mu.Unlock()
	if err != nil {
		return locationdto.WatchOutput{}, err
	}
	i.record(ctx, t, "watch requested")

	if outcome := i.gate.Ensure(ctx); outcome != domain.OutcomeGranted {
		i.abort(ctx, "permission "+string(outcome))
		return locationdto.WatchOutput{}, outcome.Err()
	}
	if err := i.halted(ctx); err != nil {
		i.abort(ctx, "watch abandoned")
		return locationdto.WatchOutput{}, err
	}

	bindService := input.Config.ForegroundServiceEnabled && i.settings.Platform == domain.PlatformAndroid && i.foreground != nil
	if bindService {
		err := i.foreground.Start(ctx, domain.DefaultChannel(), domain.DefaultNotification(i.settings.DisplayName))
		if err != nil {
			i.logger.Warn("foreground service start failed, watch not registered", "error", err)
			i.abort(ctx, "foreground service start failed")
			i.advise(err.Error())
			return locationdto.WatchOutput{}, err
		}
	}

	if err := i.halted(ctx); err != nil {
		if bindService {
			i.foreground.Stop(ctx)
		}
		i.abort(ctx, "watch abandoned")
		return locationdto.WatchOutput{}, err
	}

	sub, err := i.provider.Watch(ctx, opts)
	if err != nil {
		if bindService {
			i.foreground.Stop(ctx)
		}
		mapped := classifyPositionError(ctx, err)
		i.abort(ctx, "watch registration failed")
		i.advise(mapped.Error())
		return locationdto.WatchOutput{}, mapped
	}

	handle := domain.WatchHandle{ID: i.ids.New(), StartedAt: i.clock.Now(), ServiceBound: bindService}
	i.mu.Lock()
	err = i.haltedLocked(ctx)
	if err == nil {
		t, err = i.session.BeginWatch(handle)
	}
	if err == nil {
		i.sub = sub
	}
	i.mu.Unlock()
	if err != nil {
		_ = sub.Close()
		if bindService {
			i.foreground.Stop(ctx)
		}
		i.abort(ctx, "watch rejected")
		return locationdto.WatchOutput{}, err
	}
	i.record(ctx, t, "watch registered")
	i.logger.Info("watch started", "handle", handle.ID, "foreground_service", bindService)

	go i.deliver(handle.ID, sub)
	return toWatchOutput(handle, false), nil
}

// StopWatch is a no-op unless a watch is live. The foreground service is
// stopped only when this watch started it, so a watch without a bound
// service never reaches the service API and a bound one stops it once.
func (i *Interactor) StopWatch(ctx context.Context) error {
	i.stop(ctx, "", "stop requested")
	return nil
}

func (i *Interactor) Snapshot(_ context.Context) locationdto.SnapshotOutput {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := locationdto.SnapshotOutput{State: string(i.session.State()), LastAdvisory: i.lastAdvisory}
	if handle, ok := i.session.Handle(); ok {
		out.HandleID = handle.ID
		out.ServiceBound = handle.ServiceBound
	}
	if position, ok := i.session.LastKnown(); ok {
		out.HasPosition = true
		out.Position = toPositionOutput(position)
	}
	return out
}

// Subscribe streams session events. Slow subscribers miss events rather
// than stall delivery.
func (i *Interactor) Subscribe() (<-chan locationdto.SessionEvent, func()) {
	i.subsMu.Lock()
	defer i.subsMu.Unlock()
	ch := make(chan locationdto.SessionEvent, subscriberBuffer)
	if i.closed {
		close(ch)
		return ch, func() {}
	}
	key := i.nextSub
	i.nextSub++
	i.subscribers[key] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			i.subsMu.Lock()
			defer i.subsMu.Unlock()
			if existing, ok := i.subscribers[key]; ok {
				delete(i.subscribers, key)
				close(existing)
			}
		})
	}
}

func (i *Interactor) Journal(ctx context.Context, limit int) ([]locationdto.TransitionOutput, error) {
	if i.journal == nil {
		return nil, nil
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", apperrors.ErrInvalidInput)
	}
	transitions, err := i.journal.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]locationdto.TransitionOutput, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, locationdto.TransitionOutput{At: t.At, From: string(t.From), To: string(t.To), HandleID: t.HandleID, Reason: t.Reason})
	}
	return out, nil
}

// Close tears the session down on process exit. Operations still waiting on
// a prompt or the service start give up once they resume, and later calls
// fail with ErrSessionClosed.
func (i *Interactor) Close(ctx context.Context) error {
	i.mu.Lock()
	i.shutdown = true
	i.mu.Unlock()
	i.stop(ctx, "", "process teardown")
	i.subsMu.Lock()
	defer i.subsMu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	for key, ch := range i.subscribers {
		delete(i.subscribers, key)
		close(ch)
	}
	return nil
}

// deliver pumps one subscription until it ends. Events for a handle that is
// no longer live are dropped.
func (i *Interactor) deliver(handleID string, sub locationout.Subscription) {
	for event := range sub.Events() {
		i.mu.Lock()
		current := i.session.IsCurrent(handleID)
		if current && event.Position != nil {
			i.session.Deliver(handleID, *event.Position)
		}
		if current && event.Err != nil {
			i.lastAdvisory = event.Err.Error()
		}
		i.mu.Unlock()
		if !current {
			continue
		}

		switch {
		case event.Err != nil:
			i.logger.Warn("watch delivered an error, watch stays live", "handle", handleID, "error", event.Err)
			i.publish(locationdto.SessionEvent{Kind: locationdto.EventAdvisory, Message: event.Err.Error()})
		case event.Position != nil:
			i.publish(locationdto.SessionEvent{Kind: locationdto.EventPosition, Position: toPositionOutput(*event.Position)})
		}
	}

	if i.isCurrent(handleID) {
		i.logger.Warn("watch stream ended by device", "handle", handleID)
		i.advise("location updates ended unexpectedly")
		i.stop(context.Background(), handleID, "stream ended")
	}
}

func (i *Interactor) closing() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.shutdown
}

// halted reports why an operation that just resumed from a suspension point
// must not go on.
func (i *Interactor) halted(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.haltedLocked(ctx)
}

func (i *Interactor) haltedLocked(ctx context.Context) error {
	if i.shutdown {
		return apperrors.ErrSessionClosed
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPositionCancelled, ctx.Err())
	}
	return nil
}

func (i *Interactor) isCurrent(handleID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.session.IsCurrent(handleID)
}

// stop tears down the live watch. With onlyHandle set it only acts when
// that handle is still the live one.
func (i *Interactor) stop(ctx context.Context, onlyHandle, reason string) {
	i.mu.Lock()
	if i.session.State() != domain.StateWatching || (onlyHandle != "" && !i.session.IsCurrent(onlyHandle)) {
		i.mu.Unlock()
		return
	}
	handle, t, err := i.session.BeginStop()
	sub := i.sub
	i.sub = nil
	i.mu.Unlock()
	if err != nil {
		return
	}
	i.record(ctx, t, reason)

	if sub != nil {
		if err := sub.Close(); err != nil {
			i.logger.Warn("clear watch failed", "handle", handle.ID, "error", err)
		}
	}
	if handle.ServiceBound {
		i.foreground.Stop(ctx)
	}

	i.mu.Lock()
	t, err = i.session.FinishStop()
	i.mu.Unlock()
	if err == nil {
		i.record(ctx, t, "watch cleared")
	}
	i.logger.Info("watch stopped", "handle", handle.ID)
}

func (i *Interactor) step(ctx context.Context, reason string, fn func(*domain.Session) (domain.Transition, error)) error {
	i.mu.Lock()
	t, err := fn(i.session)
	i.mu.Unlock()
	if err != nil {
		return err
	}
	i.record(ctx, t, reason)
	return nil
}

func (i *Interactor) abort(ctx context.Context, reason string) {
	if err := i.step(ctx, reason, (*domain.Session).Abort); err != nil {
		i.logger.Error("abort failed", "reason", reason, "error", err)
	}
}

func (i *Interactor) advise(message string) {
	i.mu.Lock()
	i.lastAdvisory = message
	i.mu.Unlock()
	i.publish(locationdto.SessionEvent{Kind: locationdto.EventAdvisory, Message: message})
}

func (i *Interactor) record(ctx context.Context, t domain.Transition, reason string) {
	t.At = i.clock.Now()
	t.Reason = reason
	i.logger.Debug("transition", "from", t.From, "to", t.To, "reason", reason)
	if i.journal != nil {
		if err := i.journal.Record(context.WithoutCancel(ctx), t); err != nil {
			i.logger.Warn("journal write failed", "error", err)
		}
	}
	i.publish(locationdto.SessionEvent{Kind: locationdto.EventState, State: string(t.To)})
}

func (i *Interactor) publish(event locationdto.SessionEvent) {
	i.subsMu.Lock()
	defer i.subsMu.Unlock()
	for _, ch := range i.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// classifyPositionError folds device failures into timeout, unavailable or
// cancelled.
func classifyPositionError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrPositionTimeout),
		errors.Is(err, apperrors.ErrPositionUnavailable),
		errors.Is(err, apperrors.ErrPositionCancelled),
		errors.Is(err, apperrors.ErrInvalidInput):
		return err
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %w", apperrors.ErrPositionCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", apperrors.ErrPositionTimeout, err)
	}
	var positionErr *domain.PositionError
	if errors.As(err, &positionErr) && positionErr.Code == domain.CodeTimeout {
		return fmt.Errorf("%w: %w", apperrors.ErrPositionTimeout, err)
	}
	return fmt.Errorf("%w: %w", apperrors.ErrPositionUnavailable, err)
}

func toConfig(in locationdto.SessionConfig) domain.SessionConfig {
	return domain.SessionConfig{
		HighAccuracy:             in.HighAccuracy,
		ForceLocationRequest:     in.ForceLocationRequest,
		ShowLocationDialog:       in.ShowLocationDialog,
		UseSignificantChanges:    in.UseSignificantChanges,
		ForegroundServiceEnabled: in.ForegroundServiceEnabled,
	}
}

func toTuning(in locationdto.Tuning) domain.Tuning {
	return domain.Tuning{
		Accuracy:        domain.Accuracy{Android: in.AccuracyAndroid, IOS: in.AccuracyIOS},
		Timeout:         in.Timeout,
		MaximumAge:      in.MaximumAge,
		DistanceFilter:  in.DistanceFilter,
		Interval:        in.Interval,
		FastestInterval: in.FastestInterval,
	}
}

func toPositionOutput(p domain.Position) locationdto.PositionOutput {
	return locationdto.PositionOutput{
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Altitude:       p.Altitude,
		Heading:        p.Heading,
		Speed:          p.Speed,
		AccuracyMeters: p.AccuracyMeters,
		CapturedAt:     p.Time(),
	}
}

func toWatchOutput(handle domain.WatchHandle, already bool) locationdto.WatchOutput {
	return locationdto.WatchOutput{
		HandleID:        handle.ID,
		StartedAt:       handle.StartedAt,
		ServiceBound:    handle.ServiceBound,
		AlreadyWatching: already,
	}
}
