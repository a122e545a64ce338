package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"audiototext/internal/domain"
)

// TOMLStore persists settings in a single TOML file on disk.
type TOMLStore struct {
	path string
}

// NewTOMLStore creates a TOML-backed settings store.
func NewTOMLStore(path string) *TOMLStore {
	return &TOMLStore{path: path}
}

// Path returns the backing file location.
func (s *TOMLStore) Path() string {
	return s.path
}

// Load reads settings from disk or returns defaults when missing.
// Keys absent from the file keep their default values.
func (s *TOMLStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}

	cfg := DefaultSettings()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return domain.Settings{}, fmt.Errorf("parse %s: unknown key %q", s.path, undecoded[0].String())
	}

	return withDefaults(cfg), nil
}

// Save writes settings as TOML and creates parent directories.
func (s *TOMLStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}

	return os.WriteFile(s.path, buf.Bytes(), 0o644)
}
