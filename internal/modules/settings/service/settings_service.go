package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"geowatch/internal/modules/settings/domain"
	settingsout "geowatch/internal/modules/settings/port/out"
	apperrors "geowatch/internal/platform/errors"
)

type SettingsService struct {
	platform string
	store    settingsout.Store

	mu sync.Mutex
}

func NewSettingsService(platform string, store settingsout.Store) *SettingsService {
	return &SettingsService{platform: platform, store: store}
}

func (s *SettingsService) Platform() string {
	return s.platform
}

func (s *SettingsService) Load(ctx context.Context) (domain.Settings, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("stored settings: %w", err)
	}
	return settings, nil
}

// Update applies change to the stored settings and saves the result.
// Switches not offered on the platform cannot be changed.
func (s *SettingsService) Update(ctx context.Context, key string, change func(*domain.Settings) error) (domain.Settings, error) {
	if !domain.Applicable(s.platform, key) {
		if !isKnown(key) {
			return domain.Settings{}, fmt.Errorf("%w: setting %q", apperrors.ErrNotFound, key)
		}
		return domain.Settings{}, fmt.Errorf("%w: %s is not available on %s", apperrors.ErrInvalidInput, key, s.platform)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.Load(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := change(&settings); err != nil {
		return domain.Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}
	if err := s.store.Save(ctx, settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

func (s *SettingsService) Reset(ctx context.Context) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := domain.Defaults()
	if err := s.store.Save(ctx, settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

func isKnown(key string) bool {
	return slices.Contains(domain.Keys(), key)
}
