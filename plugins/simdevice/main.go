package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-plugin"

	locationadapterout "geowatch/internal/modules/location/adapter/out"
	devicerpc "geowatch/internal/modules/location/adapter/out/rpc"
	"geowatch/internal/platform/clock"
	"geowatch/internal/platform/config"
	"geowatch/internal/platform/logging"
)

func main() {
	cfg, err := config.New(os.Getenv(locationadapterout.DataDirEnv), config.Overrides{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// The host relays plugin stderr into its own log.
	logger := logging.New("simdevice", cfg.LogLevel, os.Stderr)
	device := locationadapterout.NewSimulatedDevice(clock.SystemClock{}, simulationConfig(cfg.Simulation), logger)

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: devicerpc.HandshakeConfig,
		Plugins:         devicerpc.PluginMap(devicerpc.NewDeviceServer(device)),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}

func simulationConfig(sim config.Simulation) locationadapterout.SimulationConfig {
	return locationadapterout.SimulationConfig{
		Permission:     sim.Permission,
		AlreadyGranted: sim.AlreadyGranted,
		ServiceFails:   sim.ServiceFails,
		FixError:       sim.FixError,
		FixLatency:     time.Duration(sim.FixLatencyMS) * time.Millisecond,
		Latitude:       sim.Latitude,
		Longitude:      sim.Longitude,
	}
}
