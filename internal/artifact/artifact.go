// Package artifact writes checkpoint screenshots to an output directory.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var checkpointPattern = regexp.MustCompile(`^[0-9]{2,}_[A-Za-z0-9_-]+\.png$`)

// Name is the file name for the screenshot of a step: "02_review_page.png".
func Name(step int, label string) string {
	return fmt.Sprintf("%02d_%s.png", step, label)
}

// Dir stores screenshots under one directory. Each name is written at most
// once per Dir; files left by earlier runs are replaced.
type Dir struct {
	Path string

	mu      sync.Mutex
	written map[string]bool
}

// NewDir returns a Dir rooted at path. The directory is created on first
// write.
func NewDir(path string) *Dir {
	return &Dir{Path: path, written: make(map[string]bool)}
}

// Save writes png as Name(step, label) and returns the file path.
func (d *Dir) Save(step int, label string, png []byte) (string, error) {
	name := Name(step, label)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.written == nil {
		d.written = make(map[string]bool)
	}
	if d.written[name] {
		return "", fmt.Errorf("artifact %s already written in this run", name)
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	final := filepath.Join(d.Path, name)
	tmp, err := os.CreateTemp(d.Path, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close artifact %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("chmod artifact %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename artifact %s: %w", name, err)
	}
	d.written[name] = true
	return final, nil
}

// Clear removes checkpoint screenshots left in the directory by an earlier
// run, so a failed run does not sit next to stale later checkpoints. Other
// files and subdirectories are kept. A missing directory is not an error.
func (d *Dir) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := os.ReadDir(d.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read artifact dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !checkpointPattern.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(d.Path, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale artifact: %w", err)
		}
	}
	d.written = make(map[string]bool)
	return nil
}
