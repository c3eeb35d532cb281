package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"geowatch/internal/modules/location/domain"
	locationout "geowatch/internal/modules/location/port/out"
	"geowatch/internal/platform/logging"
)

const (
	defaultCallTimeout = 5 * time.Second
	// Prompts wait on the user.
	defaultPromptTimeout = 2 * time.Minute
)

// BridgeDevice is the host side of the device bridge.
type BridgeDevice struct {
	client DeviceBridgeClient
	logger hclog.Logger
}

func NewBridgeDevice(client DeviceBridgeClient, logger hclog.Logger) *BridgeDevice {
	return &BridgeDevice{client: client, logger: logging.OrDiscard(logger).Named("bridge")}
}

var _ locationout.Device = (*BridgeDevice)(nil)

func (d *BridgeDevice) RequestAuthorization(ctx context.Context, scope domain.AuthorizationScope) (domain.AuthorizationStatus, error) {
	callCtx, cancel := callContext(ctx, defaultPromptTimeout)
	defer cancel()
	response, err := d.client.RequestAuthorization(callCtx, &AuthorizationRequest{Scope: string(scope)})
	if err != nil {
		return "", fmt.Errorf("request authorization: %w", err)
	}
	return domain.AuthorizationStatus(response.Status), nil
}

func (d *BridgeDevice) CheckPermission(ctx context.Context, permission string) (bool, error) {
	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	response, err := d.client.CheckPermission(callCtx, &PermissionRequest{Permission: permission})
	if err != nil {
		return false, fmt.Errorf("check permission: %w", err)
	}
	return response.Granted, nil
}

func (d *BridgeDevice) RequestPermission(ctx context.Context, permission string) (domain.PermissionResult, error) {
	callCtx, cancel := callContext(ctx, defaultPromptTimeout)
	defer cancel()
	response, err := d.client.RequestPermission(callCtx, &PermissionRequest{Permission: permission})
	if err != nil {
		return "", fmt.Errorf("request permission: %w", err)
	}
	return domain.PermissionResult(response.Result), nil
}

func (d *BridgeDevice) OpenSettings(ctx context.Context) error {
	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	if err := d.client.OpenSettings(callCtx); err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	return nil
}

// CurrentPosition leaves the deadline to the device timeout in opts, plus a
// margin for the transport.
func (d *BridgeDevice) CurrentPosition(ctx context.Context, opts domain.RequestOptions) (domain.Position, error) {
	callCtx, cancel := callContext(ctx, opts.Timeout+defaultCallTimeout)
	defer cancel()
	response, err := d.client.GetCurrentPosition(callCtx, toWireOptions(opts))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Position{}, ctxErr
		}
		if callCtx.Err() == context.DeadlineExceeded {
			return domain.Position{}, &domain.PositionError{Code: domain.CodeTimeout, Message: "bridge call timed out"}
		}
		return domain.Position{}, fmt.Errorf("get current position: %w", err)
	}
	if err := fromWireError(response.ErrorCode, response.ErrorMessage); err != nil {
		return domain.Position{}, err
	}
	if response.Position == nil {
		return domain.Position{}, &domain.PositionError{Code: domain.CodeInternal, Message: "empty position response"}
	}
	return fromWirePosition(response.Position), nil
}

// Watch opens the stream and waits for the registration ack. ctx bounds the
// registration only; the stream lives until the subscription is closed.
func (d *BridgeDevice) Watch(ctx context.Context, opts domain.RequestOptions) (locationout.Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := d.client.WatchPosition(streamCtx, toWireOptions(opts))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch position: %w", err)
	}

	type ack struct {
		event *WatchEvent
		err   error
	}
	acked := make(chan ack, 1)
	go func() {
		event, err := stream.Recv()
		acked <- ack{event: event, err: err}
	}()

	select {
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case first := <-acked:
		if first.err != nil {
			cancel()
			return nil, fmt.Errorf("watch position: %w", first.err)
		}
		if err := fromWireError(first.event.ErrorCode, first.event.ErrorMessage); err != nil {
			cancel()
			return nil, err
		}
		if !first.event.Registered {
			cancel()
			return nil, fmt.Errorf("watch position: missing registration ack")
		}
	}

	sub := &bridgeSubscription{
		events: make(chan domain.WatchEvent),
		cancel: cancel,
		done:   streamCtx.Done(),
	}
	go d.relay(stream, sub)
	return sub, nil
}

func (d *BridgeDevice) relay(stream WatchPositionClient, sub *bridgeSubscription) {
	defer close(sub.events)
	for {
		message, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				select {
				case <-sub.done:
				default:
					d.logger.Warn("watch stream ended", "error", err)
				}
			}
			return
		}
		event := domain.WatchEvent{}
		if wireErr := fromWireError(message.ErrorCode, message.ErrorMessage); wireErr != nil {
			event.Err = wireErr
		} else if message.Position != nil {
			position := fromWirePosition(message.Position)
			event.Position = &position
		} else {
			continue
		}
		select {
		case <-sub.done:
			return
		case sub.events <- event:
		}
	}
}

func (d *BridgeDevice) CreateNotificationChannel(ctx context.Context, channel domain.ChannelConfig) error {
	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	err := d.client.CreateNotificationChannel(callCtx, &ChannelRequest{
		ID:              channel.ID,
		Name:            channel.Name,
		Description:     channel.Description,
		EnableVibration: channel.EnableVibration,
	})
	if err != nil {
		return fmt.Errorf("create notification channel: %w", err)
	}
	return nil
}

func (d *BridgeDevice) StartService(ctx context.Context, notification domain.NotificationConfig) error {
	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	err := d.client.StartService(callCtx, &StartServiceRequest{
		ChannelID: notification.ChannelID,
		ID:        int32(notification.ID),
		Title:     notification.Title,
		Text:      notification.Text,
		Icon:      notification.Icon,
	})
	if err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	return nil
}

func (d *BridgeDevice) StopService(ctx context.Context) error {
	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	if err := d.client.StopService(callCtx); err != nil {
		return fmt.Errorf("stop service: %w", err)
	}
	return nil
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

type bridgeSubscription struct {
	events chan domain.WatchEvent
	cancel context.CancelFunc
	done   <-chan struct{}
	once   sync.Once
}

func (s *bridgeSubscription) Events() <-chan domain.WatchEvent {
	return s.events
}

func (s *bridgeSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}
