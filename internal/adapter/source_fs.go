package adapter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	m "github.com/mouse-blink/pbox/internal/model"
)

// SourceFS hides the file system from the commands and the interpreter so
// both can be tested without touching the disk.
type SourceFS interface {
	// Walk visits root and, when recursive, its subdirectories.
	Walk(root m.Path, recursive bool, fn WalkFunc) error
	// ReadFile loads a file.
	ReadFile(path m.Path) ([]byte, error)
	// ReadLines loads a file split into lines without terminators.
	ReadLines(path m.Path) ([]string, error)
	// WriteFile writes content with the given permissions.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error
	// HashFile returns a SHA-256 fingerprint of the file.
	HashFile(path m.Path) (string, error)
	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)
	// CreateTempDir creates a scratch directory.
	CreateTempDir(pattern string) (m.Path, error)
	// RemoveAll removes a directory tree.
	RemoveAll(path m.Path) error
	// Abs resolves a path, expanding a leading ~.
	Abs(path m.Path) (m.Path, error)
}

// WalkFunc is called for every visited path.
type WalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFS is the os-backed SourceFS.
type LocalSourceFS struct{}

// NewLocalSourceFS constructs a LocalSourceFS.
func NewLocalSourceFS() *LocalSourceFS {
	return &LocalSourceFS{}
}

// Walk traverses root, skipping subdirectories unless recursive.
func (a *LocalSourceFS) Walk(root m.Path, recursive bool, fn WalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads a file from disk and returns its contents.
func (a *LocalSourceFS) ReadFile(path m.Path) ([]byte, error) {
	// #nosec G304 - path is the program the user asked to run
	return os.ReadFile(string(path))
}

// ReadLines loads a file as lines the way an editor shows them, so a
// trailing newline yields an empty last line.
func (a *LocalSourceFS) ReadLines(path m.Path) ([]string, error) {
	data, err := a.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return SplitLines(string(data)), nil
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFS) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	return os.WriteFile(string(path), content, perm)
}

// HashFile returns a SHA-256 hex digest of the file.
func (a *LocalSourceFS) HashFile(path m.Path) (string, error) {
	// #nosec G304 - path is the program the user asked to run
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileInfo returns metadata for a path.
func (a *LocalSourceFS) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// CreateTempDir creates a temporary directory.
func (a *LocalSourceFS) CreateTempDir(pattern string) (m.Path, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	return m.Path(dir), nil
}

// RemoveAll removes a directory and all its contents.
func (a *LocalSourceFS) RemoveAll(path m.Path) error {
	return os.RemoveAll(string(path))
}

// Abs resolves path to an absolute path.
func (a *LocalSourceFS) Abs(path m.Path) (m.Path, error) {
	p := string(path)

	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		suffix := strings.TrimPrefix(p, "~")
		suffix = strings.TrimPrefix(suffix, string(os.PathSeparator))
		p = filepath.Join(home, suffix)
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	return m.Path(abs), nil
}

// SplitLines splits text on newlines.
func SplitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
