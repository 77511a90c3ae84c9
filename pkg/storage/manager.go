package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Manager owns the local mirror tree: root/<course>/<section>/<file>.
// A file that exists at its final path is considered synced.
type Manager struct {
	root string
	safe bool
}

// NewManager creates the root directory if needed. With safe set, file
// names are reduced to portable ASCII.
func NewManager(root string, safe bool) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory is empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &Manager{root: root, safe: safe}, nil
}

// Dir returns the directory for a course section without creating it.
// An empty section yields the course directory.
func (m *Manager) Dir(course, section string) string {
	if section == "" {
		return filepath.Join(m.root, SanitizeSegment(course))
	}
	return filepath.Join(m.root, SanitizeSegment(course), SanitizeSegment(section))
}

// FileName maps a server-provided name to the name written on disk
func (m *Manager) FileName(name string) string {
	name = SanitizeSegment(name)
	if m.safe {
		return SafeFileName(name)
	}
	return name
}

// Path joins dir and the on-disk form of name
func (m *Manager) Path(dir, name string) string {
	return filepath.Join(dir, m.FileName(name))
}

// Exists reports whether name is already present in dir
func (m *Manager) Exists(dir, name string) bool {
	info, err := os.Stat(m.Path(dir, name))
	return err == nil && !info.IsDir()
}

// Save writes r to dir/name, creating dir on first use. The data lands in a
// temporary file that is renamed into place, so an interrupted write never
// leaves a partial file under the final name.
func (m *Manager) Save(r io.Reader, dir, name string) (int64, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	path := m.Path(dir, name)
	tmp, err := os.CreateTemp(dir, ".nalanda-*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return n, nil
}
