package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"geowatch/internal/modules/settings/domain"
	settingsout "geowatch/internal/modules/settings/port/out"
)

type YAMLStore struct {
	path string
}

func NewYAMLStore(path string) settingsout.Store {
	return &YAMLStore{path: path}
}

// Load overlays the file on the defaults, so keys missing from the file keep
// their default values.
func (s *YAMLStore) Load(_ context.Context) (domain.Settings, error) {
	settings := domain.Defaults()
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return domain.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(payload, &settings); err != nil {
		return domain.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// Save writes through a temp file and rename so watchers never see a
// half-written file.
func (s *YAMLStore) Save(_ context.Context, settings domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	payload, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
