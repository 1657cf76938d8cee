// Package settings persists user preferences as a small YAML document.
package settings

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultServerURLKey holds the remote server the UI should prefer.
const DefaultServerURLKey = "defaultServerUrl"

const fileName = "settings.yaml"

// Store is a string key/value store backed by a YAML file.
// It is safe for concurrent use.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// DefaultPath returns the settings file under the user config directory.
func DefaultPath(appName string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, appName, fileName), nil
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value for key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value in memory. Call Save to persist.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key. It reports whether the key was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	delete(s.values, key)
	return ok
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the store atomically.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := yaml.Marshal(s.values)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+fileName+".*")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// DefaultServerURL returns the configured remote server, if any.
func (s *Store) DefaultServerURL() (string, bool) {
	v, ok := s.Get(DefaultServerURLKey)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// GetDefaultServerURL returns the configured remote server or nil.
func (s *Store) GetDefaultServerURL() *string {
	v, ok := s.DefaultServerURL()
	if !ok {
		return nil
	}
	return &v
}

// SetDefaultServerURL persists the remote server URL. A nil or empty url
// removes the setting.
func (s *Store) SetDefaultServerURL(url *string) error {
	if url == nil || *url == "" {
		s.Delete(DefaultServerURLKey)
		return s.Save()
	}
	if err := ValidateServerURL(*url); err != nil {
		return err
	}
	s.Set(DefaultServerURLKey, *url)
	return s.Save()
}

// ValidateServerURL requires an absolute http or https URL.
func ValidateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server url %q: missing host", raw)
	}
	return nil
}
