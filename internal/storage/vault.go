// Package storage provides the console's durable client-side storage: a
// small keyed vault persisted as a JSON file. It stands in for browser
// local storage: every session mutation is written through synchronously
// so a restarted process can resynchronize its state.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Vault keys used by the session store. Values are opaque strings; the
// user record is stored as serialized JSON. Absence is represented by a
// deleted key, never by an empty string.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyTheme        = "theme"
	KeyLocale       = "locale"
)

// Vault manages reading and writing the vault file. Writes are atomic
// (write-tmp-then-rename) and guarded by an flock for cross-process safety
// plus an in-process mutex.
type Vault struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewVault creates a Vault backed by the given file path.
func NewVault(path string, logger *slog.Logger) *Vault {
	return &Vault{path: path, logger: logger}
}

// Get returns the value for a key and whether it is present.
func (v *Vault) Get(key string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.load()
	if err != nil {
		v.logger.Warn("vault read failed", "key", key, "error", err)
		return "", false
	}
	val, ok := data[key]
	return val, ok
}

// Set stores a value under a key, persisting immediately.
func (v *Vault) Set(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.load()
	if err != nil {
		return err
	}
	data[key] = value
	return v.save(data)
}

// Delete removes a key, persisting immediately. Deleting a missing key is
// a no-op.
func (v *Vault) Delete(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return v.save(data)
}

// Keys returns the keys currently present in the vault.
func (v *Vault) Keys() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.load()
	if err != nil {
		v.logger.Warn("vault read failed", "error", err)
		return nil
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	return keys
}

// Path returns the configured file path.
func (v *Vault) Path() string { return v.path }

// load reads and parses the vault file. A missing file is an empty vault.
// Caller must hold v.mu.
func (v *Vault) load() (map[string]string, error) {
	raw, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read vault file: %w", err)
	}

	// The vault holds bearer credentials; warn when readable by others.
	// Skip on Windows where Unix permission bits are not supported.
	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(v.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 {
				v.logger.Warn("vault file has too-open permissions, should be 0600",
					"path", v.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse vault file: %w", err)
	}
	if data == nil {
		data = map[string]string{}
	}
	return data, nil
}

// save writes the vault contents to disk atomically under an flock.
// Caller must hold v.mu.
func (v *Vault) save(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(v.path), 0700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}

	lockPath := v.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vault: %w", err)
	}
	raw = append(raw, '\n')

	if err := v.writeAtomic(raw); err != nil {
		return err
	}

	if err := os.Chmod(v.path, 0600); err != nil {
		v.logger.Warn("failed to set permissions on vault file", "error", err)
	}

	v.logger.Debug("vault saved", "path", v.path)
	return nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it over
// the target path. On any error the temp file is cleaned up.
func (v *Vault) writeAtomic(data []byte) error {
	tmpPath := v.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, v.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to vault: %w", err)
	}
	return nil
}
