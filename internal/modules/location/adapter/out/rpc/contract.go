package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey  = "device"
	serviceName   = "geowatch.device.v1.DeviceBridge"
	jsonCodecName = "json"

	methodRequestAuthorization      = "/" + serviceName + "/RequestAuthorization"
	methodCheckPermission           = "/" + serviceName + "/CheckPermission"
	methodRequestPermission         = "/" + serviceName + "/RequestPermission"
	methodGetCurrentPosition        = "/" + serviceName + "/GetCurrentPosition"
	methodCreateNotificationChannel = "/" + serviceName + "/CreateNotificationChannel"
	methodStartService              = "/" + serviceName + "/StartService"
	methodStopService               = "/" + serviceName + "/StopService"
	methodOpenSettings              = "/" + serviceName + "/OpenSettings"
	methodWatchPosition             = "/" + serviceName + "/WatchPosition"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "GEOWATCH_DEVICE_PLUGIN",
	MagicCookieValue: "geowatch",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type AuthorizationRequest struct {
	Scope string `json:"scope"`
}

type AuthorizationResponse struct {
	Status string `json:"status"`
}

type PermissionRequest struct {
	Permission string `json:"permission"`
}

type CheckPermissionResponse struct {
	Granted bool `json:"granted"`
}

type PermissionResponse struct {
	Result string `json:"result"`
}

type Accuracy struct {
	Android string `json:"android"`
	IOS     string `json:"ios"`
}

// PositionOptions carries durations in milliseconds, matching the device API.
type PositionOptions struct {
	Mode                  string   `json:"mode"`
	Accuracy              Accuracy `json:"accuracy"`
	EnableHighAccuracy    bool     `json:"enable_high_accuracy"`
	TimeoutMS             int64    `json:"timeout_ms"`
	MaximumAgeMS          int64    `json:"maximum_age_ms"`
	DistanceFilter        float64  `json:"distance_filter"`
	IntervalMS            int64    `json:"interval_ms"`
	FastestIntervalMS     int64    `json:"fastest_interval_ms"`
	ForceRequestLocation  bool     `json:"force_request_location"`
	ShowLocationDialog    bool     `json:"show_location_dialog"`
	UseSignificantChanges bool     `json:"use_significant_changes"`
}

type Position struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Accuracy  float64  `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
}

// PositionResponse carries either a position or a device error code. Device
// errors travel in-band so their codes survive the transport.
type PositionResponse struct {
	Position     *Position `json:"position,omitempty"`
	ErrorCode    int32     `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// WatchEvent is one stream message. The first message of every stream is a
// registration ack with Registered set, or an error.
type WatchEvent struct {
	Registered   bool      `json:"registered,omitempty"`
	Position     *Position `json:"position,omitempty"`
	ErrorCode    int32     `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

type ChannelRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	EnableVibration bool   `json:"enable_vibration"`
}

type StartServiceRequest struct {
	ChannelID string `json:"channel_id"`
	ID        int32  `json:"id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Icon      string `json:"icon"`
}

type WatchPositionServer interface {
	Send(*WatchEvent) error
	Context() context.Context
}

type WatchPositionClient interface {
	Recv() (*WatchEvent, error)
}

type DeviceBridgeServer interface {
	RequestAuthorization(ctx context.Context, in *AuthorizationRequest) (*AuthorizationResponse, error)
	CheckPermission(ctx context.Context, in *PermissionRequest) (*CheckPermissionResponse, error)
	RequestPermission(ctx context.Context, in *PermissionRequest) (*PermissionResponse, error)
	GetCurrentPosition(ctx context.Context, in *PositionOptions) (*PositionResponse, error)
	CreateNotificationChannel(ctx context.Context, in *ChannelRequest) (*Empty, error)
	StartService(ctx context.Context, in *StartServiceRequest) (*Empty, error)
	StopService(ctx context.Context, in *Empty) (*Empty, error)
	OpenSettings(ctx context.Context, in *Empty) (*Empty, error)
	WatchPosition(in *PositionOptions, stream WatchPositionServer) error
}

type DeviceBridgeClient interface {
	RequestAuthorization(ctx context.Context, in *AuthorizationRequest) (*AuthorizationResponse, error)
	CheckPermission(ctx context.Context, in *PermissionRequest) (*CheckPermissionResponse, error)
	RequestPermission(ctx context.Context, in *PermissionRequest) (*PermissionResponse, error)
	GetCurrentPosition(ctx context.Context, in *PositionOptions) (*PositionResponse, error)
	CreateNotificationChannel(ctx context.Context, in *ChannelRequest) error
	StartService(ctx context.Context, in *StartServiceRequest) error
	StopService(ctx context.Context) error
	OpenSettings(ctx context.Context) error
	WatchPosition(ctx context.Context, in *PositionOptions) (WatchPositionClient, error)
}

type deviceBridgeClient struct {
	conn *grpc.ClientConn
}

func NewDeviceBridgeClient(conn *grpc.ClientConn) DeviceBridgeClient {
	return &deviceBridgeClient{conn: conn}
}

func (c *deviceBridgeClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, method, in, out, grpc.CallContentSubtype(jsonCodecName))
}

func (c *deviceBridgeClient) RequestAuthorization(ctx context.Context, in *AuthorizationRequest) (*AuthorizationResponse, error) {
	out := &AuthorizationResponse{}
	if err := c.invoke(ctx, methodRequestAuthorization, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *deviceBridgeClient) CheckPermission(ctx context.Context, in *PermissionRequest) (*CheckPermissionResponse, error) {
	out := &CheckPermissionResponse{}
	if err := c.invoke(ctx, methodCheckPermission, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *deviceBridgeClient) RequestPermission(ctx context.Context, in *PermissionRequest) (*PermissionResponse, error) {
	out := &PermissionResponse{}
	if err := c.invoke(ctx, methodRequestPermission, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *deviceBridgeClient) GetCurrentPosition(ctx context.Context, in *PositionOptions) (*PositionResponse, error) {
	out := &PositionResponse{}
	if err := c.invoke(ctx, methodGetCurrentPosition, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *deviceBridgeClient) CreateNotificationChannel(ctx context.Context, in *ChannelRequest) error {
	return c.invoke(ctx, methodCreateNotificationChannel, in, &Empty{})
}

func (c *deviceBridgeClient) StartService(ctx context.Context, in *StartServiceRequest) error {
	return c.invoke(ctx, methodStartService, in, &Empty{})
}

func (c *deviceBridgeClient) StopService(ctx context.Context) error {
	return c.invoke(ctx, methodStopService, &Empty{}, &Empty{})
}

func (c *deviceBridgeClient) OpenSettings(ctx context.Context) error {
	return c.invoke(ctx, methodOpenSettings, &Empty{}, &Empty{})
}

var watchPositionStreamDesc = grpc.StreamDesc{
	StreamName:    "WatchPosition",
	ServerStreams: true,
}

func (c *deviceBridgeClient) WatchPosition(ctx context.Context, in *PositionOptions) (WatchPositionClient, error) {
	stream, err := c.conn.NewStream(ctx, &watchPositionStreamDesc, methodWatchPosition, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &watchPositionClient{stream: stream}, nil
}

type watchPositionClient struct {
	stream grpc.ClientStream
}

func (c *watchPositionClient) Recv() (*WatchEvent, error) {
	out := &WatchEvent{}
	if err := c.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

type watchPositionServer struct {
	stream grpc.ServerStream
}

func (s *watchPositionServer) Send(event *WatchEvent) error {
	return s.stream.SendMsg(event)
}

func (s *watchPositionServer) Context() context.Context {
	return s.stream.Context()
}

// unary builds a method handler that decodes a fresh In and dispatches it
// through the interceptor chain when one is installed.
func unary[In any](method string, call func(ctx context.Context, in *In) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*In)
			if !ok {
				return nil, fmt.Errorf("invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterDeviceBridgeServer(server grpc.ServiceRegistrar, impl DeviceBridgeServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*DeviceBridgeServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "RequestAuthorization",
				Handler: unary(methodRequestAuthorization, func(ctx context.Context, in *AuthorizationRequest) (any, error) {
					return impl.RequestAuthorization(ctx, in)
				}),
			},
			{
				MethodName: "CheckPermission",
				Handler: unary(methodCheckPermission, func(ctx context.Context, in *PermissionRequest) (any, error) {
					return impl.CheckPermission(ctx, in)
				}),
			},
			{
				MethodName: "RequestPermission",
				Handler: unary(methodRequestPermission, func(ctx context.Context, in *PermissionRequest) (any, error) {
					return impl.RequestPermission(ctx, in)
				}),
			},
			{
				MethodName: "GetCurrentPosition",
				Handler: unary(methodGetCurrentPosition, func(ctx context.Context, in *PositionOptions) (any, error) {
					return impl.GetCurrentPosition(ctx, in)
				}),
			},
			{
				MethodName: "CreateNotificationChannel",
				Handler: unary(methodCreateNotificationChannel, func(ctx context.Context, in *ChannelRequest) (any, error) {
					return impl.CreateNotificationChannel(ctx, in)
				}),
			},
			{
				MethodName: "StartService",
				Handler: unary(methodStartService, func(ctx context.Context, in *StartServiceRequest) (any, error) {
					return impl.StartService(ctx, in)
				}),
			},
			{
				MethodName: "StopService",
				Handler: unary(methodStopService, func(ctx context.Context, in *Empty) (any, error) {
					return impl.StopService(ctx, in)
				}),
			},
			{
				MethodName: "OpenSettings",
				Handler: unary(methodOpenSettings, func(ctx context.Context, in *Empty) (any, error) {
					return impl.OpenSettings(ctx, in)
				}),
			},
		},
		Streams: []grpc.StreamDesc{
			{
				StreamName:    "WatchPosition",
				ServerStreams: true,
				Handler: func(_ any, stream grpc.ServerStream) error {
					in := &PositionOptions{}
					if err := stream.RecvMsg(in); err != nil {
						return err
					}
					return impl.WatchPosition(in, &watchPositionServer{stream: stream})
				},
			},
		},
		Metadata: "schemas/device-bridge-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl DeviceBridgeServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterDeviceBridgeServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewDeviceBridgeClient(conn), nil
}

func PluginMap(impl DeviceBridgeServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
