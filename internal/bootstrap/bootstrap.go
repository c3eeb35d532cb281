package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"

	locationinadapter "geowatch/internal/modules/location/adapter/in"
	locationoutadapter "geowatch/internal/modules/location/adapter/out"
	"geowatch/internal/modules/location/domain"
	locationout "geowatch/internal/modules/location/port/out"
	locationservice "geowatch/internal/modules/location/service"
	locationusecase "geowatch/internal/modules/location/usecase"
	settingsinadapter "geowatch/internal/modules/settings/adapter/in"
	settingsoutadapter "geowatch/internal/modules/settings/adapter/out"
	settingsservice "geowatch/internal/modules/settings/service"
	settingsusecase "geowatch/internal/modules/settings/usecase"
	"geowatch/internal/platform/clock"
	"geowatch/internal/platform/config"
	"geowatch/internal/platform/id"
	"geowatch/internal/platform/logging"
	uiapp "geowatch/internal/ui/app"
	"geowatch/internal/ui/components"
)

const closeTimeout = 5 * time.Second

type App struct {
	LocationCLI locationinadapter.CLIHandler
	LocationTUI locationinadapter.TUIHandler
	SettingsCLI settingsinadapter.CLIHandler
	Logger      hclog.Logger

	closers []io.Closer
}

// Options selects how the app talks to the user.
type Options struct {
	// Notifier shows permission advisories. Nil prints them to stdout.
	Notifier locationout.Notifier
	// LogOutput receives the app log. Nil means stderr.
	LogOutput io.Writer
}

func New(cfg config.Config, opts Options) (*App, error) {
	clk := clock.SystemClock{}
	logger := logging.New("geowatch", cfg.LogLevel, opts.LogOutput)
	app := &App{Logger: logger}

	settingsUC := settingsusecase.NewInteractor(
		settingsservice.NewSettingsService(cfg.Platform, settingsoutadapter.NewYAMLStore(cfg.SettingsPath)),
		settingsoutadapter.NewFileWatcher(cfg.SettingsPath, logger),
	)

	device, err := app.openDevice(cfg, clk, logger)
	if err != nil {
		return nil, err
	}

	var journal locationout.TransitionJournal
	if cfg.Journal {
		sqliteJournal, err := locationoutadapter.NewSQLiteJournal(cfg.JournalPath)
		if err != nil {
			_ = app.closeResources()
			return nil, fmt.Errorf("new transition journal: %w", err)
		}
		app.closers = append(app.closers, sqliteJournal)
		journal = sqliteJournal
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = locationoutadapter.NewConsoleNotifier(os.Stdout, os.Stdin)
	}

	platform := domain.Platform(cfg.Platform)
	gate, err := locationservice.NewPermissionGate(platform, cfg.OSVersion, device, notifier, cfg.DisplayName, logger)
	if err != nil {
		_ = app.closeResources()
		return nil, fmt.Errorf("new permission gate: %w", err)
	}
	locationUC := locationusecase.NewInteractor(
		gate,
		locationservice.NewForegroundServiceController(device, platform, cfg.OSVersion, logger),
		device,
		journal,
		clk,
		id.UUID{},
		locationusecase.Settings{Platform: platform, DisplayName: cfg.DisplayName},
		logger,
	)

	app.LocationCLI = locationinadapter.NewCLIHandler(locationUC, settingsUC)
	app.LocationTUI = locationinadapter.NewTUIHandler(locationUC, settingsUC)
	app.SettingsCLI = settingsinadapter.NewCLIHandler(settingsUC)
	return app, nil
}

func (a *App) openDevice(cfg config.Config, clk clock.Clock, logger hclog.Logger) (locationout.Device, error) {
	if cfg.DevicePlugin == "" {
		sim := cfg.Simulation
		return locationoutadapter.NewSimulatedDevice(clk, locationoutadapter.SimulationConfig{
			Permission:     sim.Permission,
			AlreadyGranted: sim.AlreadyGranted,
			ServiceFails:   sim.ServiceFails,
			FixError:       sim.FixError,
			FixLatency:     time.Duration(sim.FixLatencyMS) * time.Millisecond,
			Latitude:       sim.Latitude,
			Longitude:      sim.Longitude,
		}, logger), nil
	}
	device, err := locationoutadapter.NewPluginDevice(cfg.DevicePlugin, cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open device plugin: %w", err)
	}
	a.closers = append(a.closers, device)
	return device, nil
}

// Close stops any live watch, then releases the device and the journal.
func (a *App) Close(ctx context.Context) error {
	err := a.LocationCLI.Close(ctx)
	return errors.Join(err, a.closeResources())
}

func (a *App) closeResources() error {
	var errs []error
	for idx := len(a.closers) - 1; idx >= 0; idx-- {
		errs = append(errs, a.closers[idx].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RunTUI builds the app around the interactive screen and blocks until the
// user quits. Logs go to the configured log file only.
func RunTUI(cfg config.Config) error {
	logOutput := io.Discard
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		logOutput = file
	}

	prompter := components.NewPrompter()
	app, err := New(cfg, Options{
		Notifier:  locationoutadapter.NewRelayNotifier(prompter),
		LogOutput: logOutput,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	model := uiapp.NewModel(ctx, cfg.DisplayName, app.LocationTUI, prompter)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := program.Run()

	prompter.Shutdown()
	cancel()
	model.Release()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
	defer closeCancel()
	return errors.Join(runErr, app.Close(closeCtx))
}
