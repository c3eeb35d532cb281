package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"

	FileName            = "geowatch.yaml"
	defaultDisplayName  = "GeoWatch"
	defaultAndroidLevel = 33
	defaultIOSLevel     = 17
)

type Config struct {
	DataDir      string
	SettingsPath string
	JournalPath  string

	Platform     string
	OSVersion    int
	DisplayName  string
	DevicePlugin string
	LogLevel     string
	LogFile      string
	Journal      bool

	// Device simulation knobs, only read by the in-process device.
	Simulation Simulation
}

type Simulation struct {
	Permission     string  `yaml:"permission"`
	AlreadyGranted bool    `yaml:"already_granted"`
	ServiceFails   bool    `yaml:"service_fails"`
	FixError       string  `yaml:"fix_error"`
	FixLatencyMS   int     `yaml:"fix_latency_ms"`
	Latitude       float64 `yaml:"latitude"`
	Longitude      float64 `yaml:"longitude"`
}

// Overrides carries values set on the command line. Zero values leave the
// file or default value in place.
type Overrides struct {
	Platform     string
	OSVersion    int
	DevicePlugin string
	LogLevel     string
}

type fileConfig struct {
	Platform     string     `yaml:"platform"`
	OSVersion    int        `yaml:"os_version"`
	DisplayName  string     `yaml:"display_name"`
	DevicePlugin string     `yaml:"device_plugin"`
	LogLevel     string     `yaml:"log_level"`
	LogFile      string     `yaml:"log_file"`
	Journal      *bool      `yaml:"journal"`
	Simulation   Simulation `yaml:"simulation"`
}

func New(dataDir string, overrides Overrides) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	cfg := Config{
		DataDir:      dataDir,
		SettingsPath: filepath.Join(dataDir, "settings.yaml"),
		JournalPath:  filepath.Join(dataDir, "journal.db"),
		Platform:     PlatformAndroid,
		DisplayName:  defaultDisplayName,
		LogLevel:     "info",
		Journal:      true,
		Simulation: Simulation{
			Permission: "granted",
			Latitude:   52.5200,
			Longitude:  13.4050,
		},
	}

	file, err := readFile(filepath.Join(dataDir, FileName))
	if err != nil {
		return Config{}, err
	}
	if file != nil {
		cfg.apply(*file)
	}
	cfg.override(overrides)

	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	if cfg.Platform != PlatformIOS && cfg.Platform != PlatformAndroid {
		return Config{}, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
	if cfg.OSVersion == 0 {
		cfg.OSVersion = defaultOSVersion(cfg.Platform)
	}
	if cfg.OSVersion < 0 {
		return Config{}, fmt.Errorf("os version must be positive")
	}
	return cfg, nil
}

func readFile(path string) (*fileConfig, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	file := fileConfig{}
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &file, nil
}

func (c *Config) apply(file fileConfig) {
	if file.Platform != "" {
		c.Platform = file.Platform
	}
	if file.OSVersion != 0 {
		c.OSVersion = file.OSVersion
	}
	if file.DisplayName != "" {
		c.DisplayName = file.DisplayName
	}
	if file.DevicePlugin != "" {
		c.DevicePlugin = file.DevicePlugin
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.LogFile != "" {
		c.LogFile = file.LogFile
	}
	if file.Journal != nil {
		c.Journal = *file.Journal
	}
	sim := file.Simulation
	if sim.Permission != "" {
		c.Simulation.Permission = sim.Permission
	}
	if sim.Latitude != 0 || sim.Longitude != 0 {
		c.Simulation.Latitude = sim.Latitude
		c.Simulation.Longitude = sim.Longitude
	}
	c.Simulation.AlreadyGranted = sim.AlreadyGranted
	c.Simulation.ServiceFails = sim.ServiceFails
	c.Simulation.FixError = sim.FixError
	c.Simulation.FixLatencyMS = sim.FixLatencyMS
}

func (c *Config) override(o Overrides) {
	if o.Platform != "" {
		c.Platform = o.Platform
	}
	if o.OSVersion != 0 {
		c.OSVersion = o.OSVersion
	}
	if o.DevicePlugin != "" {
		c.DevicePlugin = o.DevicePlugin
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

func defaultOSVersion(platform string) int {
	if platform == PlatformIOS {
		return defaultIOSLevel
	}
	return defaultAndroidLevel
}
