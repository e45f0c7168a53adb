// internal/store/store.go
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// KeyLastBootReason holds the diagnostic written right before a restart.
const KeyLastBootReason = "last_boot_reason"

// DefaultBootReason is reported when no reason was persisted.
const DefaultBootReason = "Normal boot, no Last-Boot-Message"

// Restart reasons written by the watchdogs and the web server.
const (
	ReasonGatewayUnreachable = "Gateway unreachable"
	ReasonWebServerLost      = "HTTP-Daemon connection loss"
	ReasonManualReboot       = "Manual reboot via web"
)

// ErrNotFound is returned by Lookup for an absent key.
var ErrNotFound = errors.New("store: key not found")

// File is a flat string map persisted as TOML.
// Safe for concurrent use within one process.
type File struct {
	mu   sync.Mutex
	path string
}

// Open returns a store backed by path. The file need not exist yet.
func Open(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("store: path required")
	}
	return &File{path: path}, nil
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

// Lookup returns the stored value for key.
func (f *File) Lookup(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Load returns the stored value for key, or DefaultBootReason when absent
// or unreadable.
func (f *File) Load(key string) string {
	v, err := f.Lookup(key)
	if err != nil {
		return DefaultBootReason
	}
	return v
}

// Save sets key and rewrites the file atomically.
func (f *File) Save(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.read()
	if err != nil {
		// a corrupt file is replaced rather than blocking the write
		m = map[string]string{}
	}
	m[key] = value
	return f.write(m)
}

func (f *File) read() (map[string]string, error) {
	m := map[string]string{}
	if _, err := toml.DecodeFile(f.path, &m); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("store: decode %s: %w", f.path, err)
	}
	return m, nil
}

func (f *File) write(m map[string]string) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(m); err != nil {
		tmp.Close()
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
