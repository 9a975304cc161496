// Package iconstore keeps notification icons and images outside the record store,
// one file per key under a single directory.
package iconstore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// Extensions probed when looking up a stored asset, in order.
var Extensions = []string{"png", "jpg", "jpeg", "gif", "webp"}

var dataURIPrefix = regexp.MustCompile(`^data:image/([a-z]+);base64,`)

// ErrEmptyKey is returned when an asset key is blank.
var ErrEmptyKey = errors.New("iconstore: empty key")

// Store writes decoded base64 assets to dir on fs.
type Store struct {
	fs  afero.Fs
	dir string
}

// New creates a Store rooted at dir. Pass afero.NewOsFs() for disk storage.
func New(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

func (s *Store) ensureDir() error {
	return s.fs.MkdirAll(s.dir, 0o755)
}

// Save decodes data (optionally carrying a data:image/<ext>;base64, prefix) and writes it
// as <key>.<ext>, replacing any asset already stored under key. Returns the file path.
func (s *Store) Save(key, data string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrEmptyKey
	}
	if err := s.ensureDir(); err != nil {
		return "", fmt.Errorf("create icon dir: %w", err)
	}

	ext := "png"
	if m := dataURIPrefix.FindStringSubmatch(data); m != nil {
		// Unknown types are stored as png so Path and Delete can still find them.
		if slices.Contains(Extensions, m[1]) {
			ext = m[1]
		}
		data = data[len(m[0]):]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("decode icon %s: %w", key, err)
	}

	if err := s.Delete(key); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, key+"."+ext)
	if err := afero.WriteFile(s.fs, path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write icon %s: %w", key, err)
	}
	return path, nil
}

// Path returns the stored file path for key, or "" if none exists.
func (s *Store) Path(key string) (string, error) {
	for _, ext := range Extensions {
		path := filepath.Join(s.dir, key+"."+ext)
		ok, err := afero.Exists(s.fs, path)
		if err != nil {
			return "", fmt.Errorf("stat icon %s: %w", key, err)
		}
		if ok {
			return path, nil
		}
	}
	return "", nil
}

// Delete removes the asset stored under key. Missing assets are not an error.
func (s *Store) Delete(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	for _, ext := range Extensions {
		path := filepath.Join(s.dir, key+"."+ext)
		if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete icon %s: %w", key, err)
		}
	}
	return nil
}

// Clear removes every stored asset.
func (s *Store) Clear() error {
	if err := s.fs.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clear icons: %w", err)
	}
	return s.ensureDir()
}

// TotalSize returns the number of bytes used by stored assets.
func (s *Store) TotalSize() (int64, error) {
	ok, err := afero.DirExists(s.fs, s.dir)
	if err != nil || !ok {
		return 0, err
	}
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return 0, fmt.Errorf("read icon dir: %w", err)
	}
	var total int64
	for _, fi := range infos {
		if !fi.IsDir() {
			total += fi.Size()
		}
	}
	return total, nil
}
