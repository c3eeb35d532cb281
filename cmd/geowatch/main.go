package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"geowatch/internal/bootstrap"
	locationdto "geowatch/internal/modules/location/dto"
	settingsdto "geowatch/internal/modules/settings/dto"
	"geowatch/internal/platform/config"
)

const closeTimeout = 5 * time.Second

type rootFlags struct {
	dataDir      string
	platform     string
	osVersion    int
	devicePlugin string
	logLevel     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "geowatch",
		Short:         "Location session manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", ".geowatch", "directory holding config, settings and journal")
	root.PersistentFlags().StringVar(&flags.platform, "platform", "", "device platform: android|ios")
	root.PersistentFlags().IntVar(&flags.osVersion, "os-version", 0, "device OS version (Android API level or iOS major)")
	root.PersistentFlags().StringVar(&flags.devicePlugin, "device-plugin", "", "device plugin binary; empty uses the built-in simulator")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")

	root.AddCommand(newFetchCmd(flags))
	root.AddCommand(newWatchCmd(flags))
	root.AddCommand(newSettingsCmd(flags))
	root.AddCommand(newJournalCmd(flags))
	root.AddCommand(newTUICmd(flags))
	return root
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	return config.New(flags.dataDir, config.Overrides{
		Platform:     flags.platform,
		OSVersion:    flags.osVersion,
		DevicePlugin: flags.devicePlugin,
		LogLevel:     flags.logLevel,
	})
}

func loadApp(flags *rootFlags) (*bootstrap.App, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, bootstrap.Options{})
}

func closeApp(app *bootstrap.App) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		app.Logger.Warn("shutdown", "error", err)
	}
}

func newTUICmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return bootstrap.RunTUI(cfg)
		},
	}
}

func newFetchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Get the current location once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer closeApp(app)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			position, err := app.LocationCLI.Fetch(ctx)
			if err != nil {
				return err
			}
			printPosition(cmd.OutOrStdout(), position)
			return nil
		},
	}
}

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var duration time.Duration

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Observe location updates until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer closeApp(app)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			events, unsubscribe := app.LocationCLI.Subscribe()
			defer unsubscribe()

			out := cmd.OutOrStdout()
			started, err := app.LocationCLI.StartWatch(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "observing handle=%s foreground_service=%t\n", started.HandleID, started.ServiceBound)

			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-events:
					if !ok {
						return nil
					}
					switch event.Kind {
					case locationdto.EventPosition:
						printPosition(out, event.Position)
					case locationdto.EventAdvisory:
						_, _ = fmt.Fprintln(out, "advisory:", event.Message)
					case locationdto.EventState:
						if event.State == "idle" {
							_, _ = fmt.Fprintln(out, "watch ended")
							return nil
						}
					}
				}
			}
		},
	}
	watch.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	return watch
}

func newSettingsCmd(flags *rootFlags) *cobra.Command {
	settings := &cobra.Command{Use: "settings", Short: "Show and change location settings"}

	settings.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer closeApp(app)
			out, err := app.SettingsCLI.Show(context.Background())
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), out)
			return nil
		},
	})

	settings.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer closeApp(app)
			out, err := app.SettingsCLI.Set(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("%w (keys: %s)", err, strings.Join(app.SettingsCLI.Keys(), ", "))
			}
			printSettings(cmd.OutOrStdout(), out)
			return nil
		},
	})

	settings.AddCommand(&cobra.Command{
		Use:   "toggle <key>",
		Short: "Flip a switch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer closeApp(app)
			out, err := app.SettingsCLI.Toggle(context.Background(), args[0])
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), out)
			return nil
		},
	})

	settings.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore default settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer closeApp(app)
			out, err := app.SettingsCLI.Reset(context.Background())
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), out)
			return nil
		},
	})
	return settings
}

func newJournalCmd(flags *rootFlags) *cobra.Command {
	var limit int

	journal := &cobra.Command{
		Use:   "journal",
		Short: "Show recent session state transitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer closeApp(app)
			transitions, err := app.LocationCLI.Journal(context.Background(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(transitions) == 0 {
				_, _ = fmt.Fprintln(out, "no transitions")
				return nil
			}
			for _, t := range transitions {
				line := fmt.Sprintf("%s  %s -> %s", t.At.Local().Format(time.RFC3339), t.From, t.To)
				if t.HandleID != "" {
					line += "  handle=" + t.HandleID
				}
				if t.Reason != "" {
					line += "  (" + t.Reason + ")"
				}
				_, _ = fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	journal.Flags().IntVar(&limit, "limit", 20, "number of transitions to show")
	return journal
}

func printPosition(w io.Writer, p locationdto.PositionOutput) {
	_, _ = fmt.Fprintf(w, "latitude=%.6f longitude=%.6f accuracy=%.1fm heading=%s altitude=%s speed=%s at=%s\n",
		p.Latitude,
		p.Longitude,
		p.AccuracyMeters,
		optional(p.Heading),
		optional(p.Altitude),
		optional(p.Speed),
		p.CapturedAt.Local().Format(time.RFC3339),
	)
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func printSettings(w io.Writer, s settingsdto.SettingsOutput) {
	_, _ = fmt.Fprintf(w, "platform: %s\n", s.Platform)
	for _, toggle := range s.Toggles {
		state := "off"
		if toggle.On {
			state = "on"
		}
		_, _ = fmt.Fprintf(w, "  %-26s %-3s  (%s)\n", toggle.Label, state, toggle.Key)
	}
	printTuning(w, "fetch", s.Fetch)
	printTuning(w, "watch", s.Watch)
}

func printTuning(w io.Writer, mode string, t settingsdto.Tuning) {
	_, _ = fmt.Fprintf(w, "%s: accuracy=%s/%s timeout=%s maximum_age=%s distance_filter=%.1f interval=%s fastest_interval=%s\n",
		mode, t.AccuracyAndroid, t.AccuracyIOS, t.Timeout, t.MaximumAge, t.DistanceFilter, t.Interval, t.FastestInterval)
}
