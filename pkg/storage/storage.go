package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dtnitsch/docbundle/pkg/render"
)

// ErrOutputDir is returned when the output location cannot be created or written.
var ErrOutputDir = errors.New("output directory is not writable")

// ErrUnsafePath rejects paths that escape the storage root.
var ErrUnsafePath = errors.New("path escapes output directory")

// Storage writes files below a single root directory.
type Storage struct {
	root string
}

// FileStats holds metadata about a file without reading its contents.
type FileStats struct {
	SizeBytes int64
	ModTime   time.Time
}

// New creates root (and parents) if needed.
func New(root string) (*Storage, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrOutputDir)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOutputDir, root, err)
	}
	return &Storage{root: root}, nil
}

// Open returns a Storage for an existing directory without creating it.
func Open(root string) (*Storage, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return &Storage{root: root}, nil
}

func (s *Storage) Root() string { return s.root }

func (s *Storage) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, rel)
	}
	return filepath.Join(s.root, clean), nil
}

// SaveFile writes content to rel, creating parent directories.
func (s *Storage) SaveFile(rel string, content []byte) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

func (s *Storage) ReadFile(rel string) ([]byte, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return data, nil
}

func (s *Storage) HasFile(rel string) bool {
	path, err := s.resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// GetFileStats returns metadata about a file using os.Stat.
func (s *Storage) GetFileStats(rel string) (*FileStats, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error getting file stats: %w", err)
	}
	return &FileStats{
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

// List returns the slash-separated paths of all files below the root, sorted.
func (s *Storage) List() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", s.root, err)
	}
	sort.Strings(files)
	return files, nil
}

// WriteBundle writes every file of b below the root and returns their paths.
func (s *Storage) WriteBundle(b *render.Bundle) ([]string, error) {
	paths := make([]string, 0, len(b.Files))
	for _, f := range b.Files {
		if err := s.SaveFile(f.Path, f.Data); err != nil {
			return paths, err
		}
		paths = append(paths, filepath.Join(s.root, filepath.FromSlash(f.Path)))
	}
	return paths, nil
}

// WriteBundle writes b into dir, creating it first.
func WriteBundle(dir string, b *render.Bundle) (*Storage, []string, error) {
	s, err := New(dir)
	if err != nil {
		return nil, nil, err
	}
	paths, err := s.WriteBundle(b)
	return s, paths, err
}

// RemoveDir deletes a bundle directory. It refuses the filesystem root, the
// working directory and the user's home directory.
func RemoveDir(dir string) error {
	clean := filepath.Clean(dir)
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("error resolving %s: %w", dir, err)
	}
	cwd, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	if clean == "." || abs == filepath.Dir(abs) || abs == cwd || (home != "" && abs == home) {
		return fmt.Errorf("%w: refusing to remove %s", ErrUnsafePath, dir)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("error removing %s: %w", dir, err)
	}
	return nil
}
