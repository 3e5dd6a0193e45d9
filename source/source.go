// Package source reads and edits bookmark files: a Chromium profile's
// Bookmarks JSON, a Netscape bookmarks.html export and a plain YAML list.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lukemcguire/linkreaper/bookmark"
)

// ErrReadOnly is returned by sources that cannot be edited.
var ErrReadOnly = errors.New("bookmark source is read-only")

// ErrPermanentFolder is returned when removing a top-level browser folder.
var ErrPermanentFolder = errors.New("cannot remove a permanent folder")

// Open returns the source for path, chosen by file extension: .html/.htm
// for a Netscape export, .yaml/.yml for a YAML list, and Chromium JSON for
// anything else. The file must exist.
func Open(path string) (bookmark.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open bookmarks: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return NewNetscape(path), nil
	case ".yaml", ".yml":
		return NewYAML(path), nil
	default:
		return NewChrome(path), nil
	}
}

// writeFileAtomic replaces path with data by writing a temp file in the same
// directory and renaming it over the original.
func writeFileAtomic(path string, data []byte) error {
	perm := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
