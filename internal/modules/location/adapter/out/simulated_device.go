package out

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"geowatch/internal/modules/location/domain"
	locationout "geowatch/internal/modules/location/port/out"
	"geowatch/internal/platform/clock"
	"geowatch/internal/platform/logging"
)

const metersPerDegree = 111_320.0

// SimulationConfig scripts how the simulated device answers.
type SimulationConfig struct {
	// Permission is the user's answer to prompts: granted, denied,
	// never_ask_again or disabled.
	Permission     string
	AlreadyGranted bool
	ServiceFails   bool
	FixError       string
	FixLatency     time.Duration
	Latitude       float64
	Longitude      float64
	Seed           int64
}

// SimulatedDevice stands in for the OS location, permission and
// notification services. Fixes follow a small random walk around the
// configured origin.
type SimulatedDevice struct {
	clock  clock.Clock
	cfg    SimulationConfig
	logger hclog.Logger

	mu             sync.Mutex
	rng            *rand.Rand
	lat            float64
	lon            float64
	granted        bool
	channels       map[string]domain.ChannelConfig
	serviceRunning bool
	notification   domain.NotificationConfig
	settingsOpened int
}

func NewSimulatedDevice(clk clock.Clock, cfg SimulationConfig, logger hclog.Logger) *SimulatedDevice {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Permission == "" {
		cfg.Permission = string(domain.PermissionGranted)
	}
	return &SimulatedDevice{
		clock:    clk,
		cfg:      cfg,
		logger:   logging.OrDiscard(logger).Named("simdevice"),
		rng:      rand.New(rand.NewSource(seed)),
		lat:      cfg.Latitude,
		lon:      cfg.Longitude,
		granted:  cfg.AlreadyGranted,
		channels: map[string]domain.ChannelConfig{},
	}
}

var _ locationout.Device = (*SimulatedDevice)(nil)

func (d *SimulatedDevice) RequestAuthorization(_ context.Context, scope domain.AuthorizationScope) (domain.AuthorizationStatus, error) {
	d.logger.Debug("authorization prompt", "scope", scope, "answer", d.cfg.Permission)
	switch d.cfg.Permission {
	case "granted":
		d.setGranted(true)
		return domain.AuthorizationGranted, nil
	case "denied", "never_ask_again":
		return domain.AuthorizationDenied, nil
	case "disabled":
		return domain.AuthorizationDisabled, nil
	default:
		return "", fmt.Errorf("unknown simulated permission answer %q", d.cfg.Permission)
	}
}

func (d *SimulatedDevice) CheckPermission(_ context.Context, permission string) (bool, error) {
	if permission != domain.FineLocationPermission {
		return false, fmt.Errorf("unknown permission %q", permission)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.granted, nil
}

func (d *SimulatedDevice) RequestPermission(_ context.Context, permission string) (domain.PermissionResult, error) {
	if permission != domain.FineLocationPermission {
		return "", fmt.Errorf("unknown permission %q", permission)
	}
	d.logger.Debug("permission prompt", "permission", permission, "answer", d.cfg.Permission)
	switch d.cfg.Permission {
	case "granted":
		d.setGranted(true)
		return domain.PermissionGranted, nil
	case "denied", "disabled":
		return domain.PermissionDenied, nil
	case "never_ask_again":
		return domain.PermissionNeverAskAgain, nil
	default:
		return "", fmt.Errorf("unknown simulated permission answer %q", d.cfg.Permission)
	}
}

func (d *SimulatedDevice) OpenSettings(context.Context) error {
	d.mu.Lock()
	d.settingsOpened++
	d.mu.Unlock()
	d.logger.Info("system settings opened")
	return nil
}

func (d *SimulatedDevice) CurrentPosition(ctx context.Context, opts domain.RequestOptions) (domain.Position, error) {
	if d.cfg.FixLatency > 0 {
		wait := d.cfg.FixLatency
		timedOut := opts.Timeout > 0 && opts.Timeout < wait
		if timedOut {
			wait = opts.Timeout
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.Position{}, ctx.Err()
		case <-timer.C:
		}
		if timedOut {
			return domain.Position{}, &domain.PositionError{Code: domain.CodeTimeout, Message: "no fix within timeout"}
		}
	}
	if err := d.fixError(); err != nil {
		return domain.Position{}, err
	}
	return d.nextFix(opts), nil
}

func (d *SimulatedDevice) Watch(_ context.Context, opts domain.RequestOptions) (locationout.Subscription, error) {
	interval := opts.Interval
	if opts.FastestInterval > 0 && opts.FastestInterval < interval {
		interval = opts.FastestInterval
	}
	if interval <= 0 {
		return nil, &domain.PositionError{Code: domain.CodeInternal, Message: "watch interval must be positive"}
	}
	sub := &simSubscription{
		events: make(chan domain.WatchEvent, 1),
		done:   make(chan struct{}),
	}
	go d.emit(sub, interval, opts)
	return sub, nil
}

func (d *SimulatedDevice) emit(sub *simSubscription, interval time.Duration, opts domain.RequestOptions) {
	defer close(sub.events)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *domain.Position
	for {
		select {
		case <-sub.done:
			return
		case <-ticker.C:
		}
		event := domain.WatchEvent{}
		if err := d.fixError(); err != nil {
			event.Err = err
		} else {
			fix := d.nextFix(opts)
			if last != nil && distanceMeters(*last, fix) < opts.DistanceFilter {
				continue
			}
			last = &fix
			event.Position = &fix
		}
		select {
		case <-sub.done:
			return
		case sub.events <- event:
		}
	}
}

func (d *SimulatedDevice) CreateNotificationChannel(_ context.Context, channel domain.ChannelConfig) error {
	if channel.ID == "" {
		return errors.New("channel id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[channel.ID] = channel
	return nil
}

func (d *SimulatedDevice) StartService(_ context.Context, notification domain.NotificationConfig) error {
	if d.cfg.ServiceFails {
		return errors.New("simulated foreground service refused to start")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.serviceRunning = true
	d.notification = notification
	d.logger.Info("foreground service running", "notification_id", notification.ID, "title", notification.Title)
	return nil
}

func (d *SimulatedDevice) StopService(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.serviceRunning {
		return errors.New("foreground service is not running")
	}
	d.serviceRunning = false
	return nil
}

// ServiceRunning reports the simulated service state.
func (d *SimulatedDevice) ServiceRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.serviceRunning
}

func (d *SimulatedDevice) SettingsOpened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settingsOpened
}

func (d *SimulatedDevice) setGranted(v bool) {
	d.mu.Lock()
	d.granted = v
	d.mu.Unlock()
}

func (d *SimulatedDevice) fixError() error {
	if d.cfg.FixError == "" {
		return nil
	}
	code, ok := domain.ParseErrorCode(d.cfg.FixError)
	if !ok {
		code = domain.CodeInternal
	}
	return &domain.PositionError{Code: code, Message: "simulated"}
}

func (d *SimulatedDevice) nextFix(opts domain.RequestOptions) domain.Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lat += (d.rng.Float64() - 0.5) * 0.0004
	d.lon += (d.rng.Float64() - 0.5) * 0.0004
	accuracy := 35.0
	if opts.EnableHighAccuracy {
		accuracy = 4.5
	}
	altitude := 34 + d.rng.Float64()*2
	heading := d.rng.Float64() * 360
	speed := d.rng.Float64() * 1.5
	return domain.Position{
		Latitude:       d.lat,
		Longitude:      d.lon,
		Altitude:       &altitude,
		Heading:        &heading,
		Speed:          &speed,
		AccuracyMeters: accuracy,
		CapturedAt:     clock.EpochMillis(d.clock),
	}
}

// distanceMeters is an equirectangular approximation, fine at walking scale.
func distanceMeters(a, b domain.Position) float64 {
	dLat := (b.Latitude - a.Latitude) * metersPerDegree
	dLon := (b.Longitude - a.Longitude) * metersPerDegree * math.Cos(a.Latitude*math.Pi/180)
	return math.Hypot(dLat, dLon)
}

type simSubscription struct {
	events chan domain.WatchEvent
	done   chan struct{}
	once   sync.Once
}

func (s *simSubscription) Events() <-chan domain.WatchEvent {
	return s.events
}

func (s *simSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
