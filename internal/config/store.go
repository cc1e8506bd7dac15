// Package config persists the CLI credential record as a flat key-value
// store backed by a single YAML file under the user's configuration
// directory. The file is rewritten wholesale on every mutation; concurrent
// CLI invocations are last-writer-wins.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is the per-user configuration directory, relative to $HOME.
const DefaultConfigDir = ".config/chief"

// configFileName is the credential file inside the configuration directory.
const configFileName = "config.yaml"

// Well-known credential keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyTeamSlug     = "team_slug"
	KeyTeamName     = "team_name"
)

// Store is a flat key-value credential store.
//
// SECURITY: The store holds OAuth credentials. The file is created with 0600
// permissions and the directory with 0700; token values are never logged.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// defaults returns the credential record with all values unset.
func defaults() map[string]string {
	return map[string]string{
		KeyAccessToken:  "",
		KeyRefreshToken: "",
		KeyTeamSlug:     "",
		KeyTeamName:     "",
	}
}

// DefaultDir returns the default configuration directory (~/.config/chief).
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultConfigDir), nil
}

// NewStore opens the credential store in the given directory, creating the
// directory and a defaulted credential file if they do not exist yet.
// An empty dir selects the default configuration directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	s := &Store{
		path:   filepath.Join(dir, configFileName),
		values: defaults(),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// load reads the credential file, creating it with defaults when absent.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.write()
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", s.path, err)
	}

	loaded := map[string]string{}
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", s.path, err)
	}

	// Merge over defaults so a hand-edited file missing keys still resolves.
	for k, v := range loaded {
		s.values[k] = v
	}
	return nil
}

// write rewrites the whole credential file.
// REQUIRES: s.mu held for writing, or exclusive access during construction.
func (s *Store) write() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Restricted permissions: the file holds bearer credentials.
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", s.path, err)
	}
	return nil
}

// Get returns the value for key, or the empty string when unset.
func (s *Store) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Has reports whether key holds a non-empty value.
func (s *Store) Has(key string) bool {
	return s.Get(key) != ""
}

// Set stores a single value and persists the record.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.write()
}

// SetMany stores multiple values in a single persisted mutation.
func (s *Store) SetMany(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.values[k] = v
	}
	return s.write()
}

// Remove unsets a key and persists the record. Removing an unknown key is a
// no-op.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	s.values[key] = ""
	return s.write()
}

// Reset restores the credential record to its defaults (full logout).
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = defaults()
	return s.write()
}

// All returns a copy of the current credential record.
func (s *Store) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Path returns the location of the credential file.
func (s *Store) Path() string {
	return s.path
}
