package index

import (
	"path/filepath"
	"strings"
)

// toPortable converts an absolute file path into the form stored in
// index.json: relative to the home directory (~/...) for the global scope,
// otherwise relative to the parent of the scope root so a moved or cloned
// project keeps a valid index. Paths that escape the anchor stay absolute.
func (r *Repo) toPortable(abs, scopeRoot string) string {
	if abs == "" || !filepath.IsAbs(abs) {
		return abs
	}
	anchor := filepath.Dir(scopeRoot)
	prefix := ""
	if filepath.Clean(scopeRoot) == r.scopes.GlobalRoot() {
		anchor = r.scopes.Home()
		prefix = "~/"
	}
	rel, err := filepath.Rel(anchor, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return prefix + filepath.ToSlash(rel)
}

// toAbsolute restores an absolute path from the stored portable form.
// Already-absolute paths are accepted for backward compatibility with
// index files written before relativization.
func (r *Repo) toAbsolute(stored, scopeRoot string) string {
	switch {
	case stored == "":
		return stored
	case strings.HasPrefix(stored, "~/"):
		return filepath.Join(r.scopes.Home(), filepath.FromSlash(stored[2:]))
	case filepath.IsAbs(stored):
		return stored
	default:
		return filepath.Join(filepath.Dir(scopeRoot), filepath.FromSlash(stored))
	}
}
