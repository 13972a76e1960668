// Package fileutil writes wallet state files so a crash never leaves a
// partial file behind.
package fileutil

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// DirPerm is the mode of directories created for state files.
const DirPerm = 0o700

// WriteAtomic writes data next to path, syncs it and renames it over
// path. Missing parent directories are created.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "path is empty"})
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return cwerr.Wrap(err, "creating %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return cwerr.Wrap(err, "creating temp file")
	}
	tmpPath := tmp.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return cwerr.Wrap(err, "writing temp file")
	}
	if err := tmp.Chmod(perm); err != nil {
		return cwerr.Wrap(err, "setting temp file permissions")
	}
	if err := tmp.Sync(); err != nil {
		return cwerr.Wrap(err, "syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		return cwerr.Wrap(err, "closing temp file")
	}
	closed = true

	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: path comes from config
		return cwerr.Wrap(err, "renaming temp file")
	}
	if d, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from path
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// WriteYAML encodes v and writes it atomically.
func WriteYAML(path string, v any, perm os.FileMode) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return cwerr.Wrap(err, "encoding %s", filepath.Base(path))
	}
	return WriteAtomic(path, data, perm)
}

// ReadYAML decodes path into v. It reports false, leaving v untouched,
// when the file does not exist.
func ReadYAML(path string, v any) (bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from config
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, cwerr.Wrap(err, "reading %s", path)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return false, cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{"path": path, "reason": err.Error()})
	}
	return true, nil
}
