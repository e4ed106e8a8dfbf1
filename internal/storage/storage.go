// Package storage abstracts the filesystem operations the vault core needs.
// Paths are absolute; scope resolution decides where files live.
package storage

// Provider is the storage abstraction consumed by the index, link graph,
// and article service.
type Provider interface {
	ReadFile(path string) ([]byte, error)
	// WriteFile writes content atomically, creating parent directories.
	WriteFile(path string, content []byte) error
	DeleteFile(path string) error
	Exists(path string) bool
	MkdirAll(path string) error
	// ListFiles returns absolute paths of files under dir whose base name
	// matches pattern (filepath.Match syntax). When recursive is true the
	// walk descends into subdirectories.
	ListFiles(dir, pattern string, recursive bool) ([]string, error)
}
