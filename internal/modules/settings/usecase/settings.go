package usecase

import (
	"context"
	"reflect"
	"time"

	"geowatch/internal/modules/settings/domain"
	settingsdto "geowatch/internal/modules/settings/dto"
	settingsin "geowatch/internal/modules/settings/port/in"
	settingsout "geowatch/internal/modules/settings/port/out"
	"geowatch/internal/modules/settings/service"
)

type Interactor struct {
	svc     *service.SettingsService
	watcher settingsout.ChangeWatcher
}

func NewInteractor(svc *service.SettingsService, watcher settingsout.ChangeWatcher) settingsin.Usecase {
	return &Interactor{svc: svc, watcher: watcher}
}

func (i *Interactor) Get(ctx context.Context) (settingsdto.SettingsOutput, error) {
	settings, err := i.svc.Load(ctx)
	if err != nil {
		return settingsdto.SettingsOutput{}, err
	}
	return i.toOutput(settings), nil
}

func (i *Interactor) Set(ctx context.Context, key, value string) (settingsdto.SettingsOutput, error) {
	settings, err := i.svc.Update(ctx, key, func(s *domain.Settings) error {
		return s.Set(key, value)
	})
	if err != nil {
		return settingsdto.SettingsOutput{}, err
	}
	return i.toOutput(settings), nil
}

func (i *Interactor) Toggle(ctx context.Context, key string) (settingsdto.SettingsOutput, error) {
	settings, err := i.svc.Update(ctx, key, func(s *domain.Settings) error {
		_, err := s.Flip(key)
		return err
	})
	if err != nil {
		return settingsdto.SettingsOutput{}, err
	}
	return i.toOutput(settings), nil
}

func (i *Interactor) Reset(ctx context.Context) (settingsdto.SettingsOutput, error) {
	settings, err := i.svc.Reset(ctx)
	if err != nil {
		return settingsdto.SettingsOutput{}, err
	}
	return i.toOutput(settings), nil
}

func (i *Interactor) Keys() []string {
	return domain.Keys()
}

// Watch reloads on every change signal and emits only when the values
// differ from the last emission. Unreadable intermediate states are skipped.
func (i *Interactor) Watch(ctx context.Context) (<-chan settingsdto.SettingsOutput, error) {
	out := make(chan settingsdto.SettingsOutput, 1)
	if i.watcher == nil {
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out, nil
	}
	changes, err := i.watcher.Changes(ctx)
	if err != nil {
		return nil, err
	}
	last, _ := i.svc.Load(ctx)
	go func() {
		defer close(out)
		for range changes {
			settings, err := i.svc.Load(ctx)
			if err != nil || reflect.DeepEqual(settings, last) {
				continue
			}
			last = settings
			select {
			case out <- i.toOutput(settings):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (i *Interactor) toOutput(settings domain.Settings) settingsdto.SettingsOutput {
	platform := i.svc.Platform()
	toggles := settings.Toggles(platform)
	out := settingsdto.SettingsOutput{
		Platform:              platform,
		HighAccuracy:          settings.HighAccuracy,
		ForceLocationRequest:  settings.ForceLocationRequest,
		ShowLocationDialog:    settings.ShowLocationDialog,
		UseSignificantChanges: settings.UseSignificantChanges,
		ForegroundService:     settings.ForegroundService,
		Fetch:                 toTuning(settings.Fetch),
		Watch:                 toTuning(settings.Watch),
		Toggles:               make([]settingsdto.Toggle, 0, len(toggles)),
	}
	for _, toggle := range toggles {
		out.Toggles = append(out.Toggles, settingsdto.Toggle{Key: toggle.Key, Label: toggle.Label, On: toggle.On})
	}
	return out
}

func toTuning(t domain.Tuning) settingsdto.Tuning {
	return settingsdto.Tuning{
		AccuracyAndroid: t.AccuracyAndroid,
		AccuracyIOS:     t.AccuracyIOS,
		Timeout:         time.Duration(t.TimeoutMS) * time.Millisecond,
		MaximumAge:      time.Duration(t.MaximumAgeMS) * time.Millisecond,
		DistanceFilter:  t.DistanceFilter,
		Interval:        time.Duration(t.IntervalMS) * time.Millisecond,
		FastestInterval: time.Duration(t.FastestIntervalMS) * time.Millisecond,
	}
}
