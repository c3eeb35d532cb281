package rpc

import (
	"context"
	"errors"

	"geowatch/internal/modules/location/domain"
	locationout "geowatch/internal/modules/location/port/out"
)

// DeviceServer exposes a device over the bridge. It runs inside the device
// plugin process.
type DeviceServer struct {
	device locationout.Device
}

func NewDeviceServer(device locationout.Device) *DeviceServer {
	return &DeviceServer{device: device}
}

var _ DeviceBridgeServer = (*DeviceServer)(nil)

func (s *DeviceServer) RequestAuthorization(ctx context.Context, in *AuthorizationRequest) (*AuthorizationResponse, error) {
	status, err := s.device.RequestAuthorization(ctx, domain.AuthorizationScope(in.Scope))
	if err != nil {
		return nil, err
	}
	return &AuthorizationResponse{Status: string(status)}, nil
}

func (s *DeviceServer) CheckPermission(ctx context.Context, in *PermissionRequest) (*CheckPermissionResponse, error) {
	granted, err := s.device.CheckPermission(ctx, in.Permission)
	if err != nil {
		return nil, err
	}
	return &CheckPermissionResponse{Granted: granted}, nil
}

func (s *DeviceServer) RequestPermission(ctx context.Context, in *PermissionRequest) (*PermissionResponse, error) {
	result, err := s.device.RequestPermission(ctx, in.Permission)
	if err != nil {
		return nil, err
	}
	return &PermissionResponse{Result: string(result)}, nil
}

func (s *DeviceServer) GetCurrentPosition(ctx context.Context, in *PositionOptions) (*PositionResponse, error) {
	position, err := s.device.CurrentPosition(ctx, fromWireOptions(in))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		code, message := toWireError(err)
		return &PositionResponse{ErrorCode: code, ErrorMessage: message}, nil
	}
	return &PositionResponse{Position: toWirePosition(position)}, nil
}

func (s *DeviceServer) CreateNotificationChannel(ctx context.Context, in *ChannelRequest) (*Empty, error) {
	err := s.device.CreateNotificationChannel(ctx, domain.ChannelConfig{
		ID:              in.ID,
		Name:            in.Name,
		Description:     in.Description,
		EnableVibration: in.EnableVibration,
	})
	if err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *DeviceServer) StartService(ctx context.Context, in *StartServiceRequest) (*Empty, error) {
	err := s.device.StartService(ctx, domain.NotificationConfig{
		ChannelID: in.ChannelID,
		ID:        int(in.ID),
		Title:     in.Title,
		Text:      in.Text,
		Icon:      in.Icon,
	})
	if err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *DeviceServer) StopService(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := s.device.StopService(ctx); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *DeviceServer) OpenSettings(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := s.device.OpenSettings(ctx); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// WatchPosition registers a device watch and relays its events until the
// client goes away or the device ends the stream.
func (s *DeviceServer) WatchPosition(in *PositionOptions, stream WatchPositionServer) error {
	ctx := stream.Context()
	sub, err := s.device.Watch(ctx, fromWireOptions(in))
	if err != nil {
		code, message := toWireError(err)
		return stream.Send(&WatchEvent{ErrorCode: code, ErrorMessage: message})
	}
	defer sub.Close()

	if err := stream.Send(&WatchEvent{Registered: true}); err != nil {
		return err
	}
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.Send(toWireEvent(event)); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}
	}
}

func toWireEvent(event domain.WatchEvent) *WatchEvent {
	if event.Err != nil {
		code, message := toWireError(event.Err)
		return &WatchEvent{ErrorCode: code, ErrorMessage: message}
	}
	if event.Position == nil {
		return &WatchEvent{ErrorCode: int32(domain.CodeInternal), ErrorMessage: "empty watch event"}
	}
	return &WatchEvent{Position: toWirePosition(*event.Position)}
}
