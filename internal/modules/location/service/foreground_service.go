package service

import (
	"context"
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"geowatch/internal/modules/location/domain"
	locationout "geowatch/internal/modules/location/port/out"
	apperrors "geowatch/internal/platform/errors"
	"geowatch/internal/platform/logging"
)

// ForegroundServiceController keeps a notification-bound service alive while
// a watch runs in the background.
type ForegroundServiceController struct {
	svc       locationout.ForegroundService
	platform  domain.Platform
	osVersion int
	logger    hclog.Logger

	mu      sync.Mutex
	running bool
}

func NewForegroundServiceController(svc locationout.ForegroundService, platform domain.Platform, osVersion int, logger hclog.Logger) *ForegroundServiceController {
	return &ForegroundServiceController{
		svc:       svc,
		platform:  platform,
		osVersion: osVersion,
		logger:    logging.OrDiscard(logger).Named("foreground"),
	}
}

// Supported reports whether the platform has foreground services at all.
func (c *ForegroundServiceController) Supported() bool {
	return c.platform == domain.PlatformAndroid && c.svc != nil
}

func (c *ForegroundServiceController) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start creates the notification channel when the OS needs one, then starts
// the service. Repeated starts reuse the fixed notification id.
func (c *ForegroundServiceController) Start(ctx context.Context, channel domain.ChannelConfig, notification domain.NotificationConfig) error {
	if !c.Supported() {
		return fmt.Errorf("%w: no foreground service on %s", apperrors.ErrForegroundServiceStartFailed, c.platform)
	}
	if c.osVersion >= domain.NotificationChannelFloor {
		if err := c.svc.CreateNotificationChannel(ctx, channel); err != nil {
			return fmt.Errorf("%w: create channel: %v", apperrors.ErrForegroundServiceStartFailed, err)
		}
	}
	if err := c.svc.StartService(ctx, notification); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrForegroundServiceStartFailed, err)
	}

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	c.logger.Debug("foreground service started", "notification_id", notification.ID)
	return nil
}

// Stop is best-effort. Failures are logged and intentionally not returned so
// watch teardown always completes.
func (c *ForegroundServiceController) Stop(ctx context.Context) {
	c.mu.Lock()
	running := c.running
	c.running = false
	c.mu.Unlock()
	if !running {
		return
	}
	if err := c.svc.StopService(ctx); err != nil {
		c.logger.Warn("stop foreground service failed", "error", err)
		return
	}
	c.logger.Debug("foreground service stopped")
}
