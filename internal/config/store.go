package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Store handles reading and writing of the project config file.
//
// Every mutation goes through Update, which re-reads the on-disk content
// before applying the change. Earlier sub-steps of the same run have already
// flushed their results, so mutating an in-memory copy taken at run start
// would clobber them.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file location.
func (s *Store) Path() string {
	return s.path
}

// Read loads the config from disk. A missing file is returned as an error
// wrapping os.ErrNotExist so callers can tell "not generated yet" apart
// from corruption.
func (s *Store) Read() (*ProjectConfig, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("project config %s: %w", s.path, err)
		}
		return nil, fmt.Errorf("failed to read project config %s: %w", s.path, err)
	}

	var cfg ProjectConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config %s: %w", s.path, err)
	}
	return &cfg, nil
}

// Write saves the config to disk. The file holds secret access keys, so it
// is written owner-readable only.
func (s *Store) Write(cfg *ProjectConfig) error {
	content, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize project config: %w", err)
	}
	content = append(content, '\n')

	if err := os.WriteFile(s.path, content, 0600); err != nil {
		return fmt.Errorf("failed to write project config %s: %w", s.path, err)
	}
	return nil
}

// Update performs a read-modify-write cycle against the current on-disk
// content and returns the config as written.
func (s *Store) Update(fn func(*ProjectConfig) error) (*ProjectConfig, error) {
	cfg, err := s.Read()
	if err != nil {
		return nil, err
	}
	if err := fn(cfg); err != nil {
		return nil, err
	}
	if err := s.Write(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
