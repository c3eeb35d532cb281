package out

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	devicerpc "geowatch/internal/modules/location/adapter/out/rpc"
	"geowatch/internal/platform/logging"
)

const (
	defaultStartTimeout = 3 * time.Second
	// DataDirEnv tells the plugin process where to read its configuration.
	DataDirEnv = "GEOWATCH_DATA_DIR"
)

// PluginDevice talks to a device plugin process over the bridge. The
// process lives until Close.
type PluginDevice struct {
	*devicerpc.BridgeDevice
	client *plugin.Client
}

func NewPluginDevice(binary, dataDir string, logger hclog.Logger) (*PluginDevice, error) {
	if binary == "" {
		return nil, fmt.Errorf("device plugin binary is required")
	}
	logger = logging.OrDiscard(logger)
	cmd := exec.Command(binary)
	cmd.Env = append(os.Environ(), DataDirEnv+"="+dataDir)

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  devicerpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          devicerpc.PluginMap(nil),
		Cmd:              cmd,
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           logger.Named("device-plugin"),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("start device plugin: %w", err)
	}
	raw, err := rpcClient.Dispense(devicerpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense device plugin: %w", err)
	}
	typed, ok := raw.(devicerpc.DeviceBridgeClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("device plugin rpc client type mismatch")
	}
	return &PluginDevice{
		BridgeDevice: devicerpc.NewBridgeDevice(typed, logger),
		client:       client,
	}, nil
}

func (d *PluginDevice) Close() error {
	d.client.Kill()
	return nil
}
