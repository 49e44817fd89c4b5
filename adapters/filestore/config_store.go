package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"goannotate/domain/core"
	"goannotate/domain/feedback"
)

const (
	activeConfigFile = "feedback_config.json"
	configArchiveDir = "archived_configs"
)

// ConfigStore keeps the active feedback config in feedback_config.json and
// moves replaced configs under archived_configs/<id>.json so old stats
// snapshots stay readable.
type ConfigStore struct {
	dir string
	mu  sync.Mutex
}

func NewConfigStore(dir string) (*ConfigStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}
	return &ConfigStore{dir: dir}, nil
}

func (s *ConfigStore) activePath() string {
	return filepath.Join(s.dir, activeConfigFile)
}

func (s *ConfigStore) archivePath(id core.ConfigID) string {
	return filepath.Join(s.dir, configArchiveDir, string(id)+".json")
}

func (s *ConfigStore) SaveActive(ctx context.Context, cfg *feedback.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, err := s.readFile(s.activePath()); err == nil && old.ID != cfg.ID {
		if err := os.MkdirAll(filepath.Join(s.dir, configArchiveDir), 0o755); err != nil {
			return fmt.Errorf("failed to create config archive dir: %w", err)
		}
		if err := s.writeFile(s.archivePath(old.ID), old); err != nil {
			return err
		}
	}
	return s.writeFile(s.activePath(), cfg)
}

func (s *ConfigStore) GetActive(ctx context.Context) (*feedback.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.readFile(s.activePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrConfigNotFound
		}
		return nil, err
	}
	return cfg, nil
}

func (s *ConfigStore) Get(ctx context.Context, id core.ConfigID) (*feedback.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, err := s.readFile(s.activePath()); err == nil && cfg.ID == id {
		return cfg, nil
	}
	cfg, err := s.readFile(s.archivePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config %s", core.ErrConfigNotFound, id)
		}
		return nil, err
	}
	return cfg, nil
}

func (s *ConfigStore) SaveStats(ctx context.Context, id core.ConfigID, stats *feedback.ConfigStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.activePath()
	cfg, err := s.readFile(path)
	if err != nil || cfg.ID != id {
		path = s.archivePath(id)
		cfg, err = s.readFile(path)
		if err != nil {
			return fmt.Errorf("%w: config %s", core.ErrConfigNotFound, id)
		}
	}
	cfg.Stats = stats
	return s.writeFile(path, cfg)
}

func (s *ConfigStore) readFile(path string) (*feedback.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := feedback.ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func (s *ConfigStore) writeFile(path string, cfg *feedback.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
