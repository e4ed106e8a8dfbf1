package scope

import (
	"path/filepath"
	"sort"

	"github.com/corvid-labs/fuda/internal/apperr"
)

// DefaultVaultName is the implicit vault backed by <globalRoot>/vault.
const DefaultVaultName = "default"

// VaultEntry describes one registered vault.
type VaultEntry struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Active bool   `json:"active"`
}

// ListVaults returns the registered vaults including the implicit default.
func (r *Resolver) ListVaults() []VaultEntry {
	cfg := r.loadGlobalConfig()
	active := cfg.ActiveVault
	if active == "" {
		active = DefaultVaultName
	}

	entries := []VaultEntry{{
		Name:   DefaultVaultName,
		Path:   filepath.Join(r.globalRoot, "vault"),
		Active: active == DefaultVaultName,
	}}

	names := make([]string, 0, len(cfg.Vaults))
	for name := range cfg.Vaults {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entries = append(entries, VaultEntry{
			Name:   name,
			Path:   cfg.Vaults[name],
			Active: name == active,
		})
	}
	return entries
}

// AddVault registers a named vault. The directory is created if missing;
// files on disk are never touched beyond that.
func (r *Resolver) AddVault(name, path string) error {
	if name == DefaultVaultName {
		return apperr.Newf(apperr.CodeValidationError,
			"cannot use reserved vault name %q", DefaultVaultName)
	}
	cfg := r.loadGlobalConfig()
	if cfg.Vaults == nil {
		cfg.Vaults = make(map[string]string)
	}
	if existing, ok := cfg.Vaults[name]; ok {
		return apperr.Newf(apperr.CodeValidationError,
			"vault %q already exists at %s", name, existing)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return apperr.Wrap(apperr.CodeValidationError, "resolve vault path", err)
	}
	if err := r.store.MkdirAll(abs); err != nil {
		return err
	}
	cfg.Vaults[name] = abs
	return r.saveGlobalConfig(cfg)
}

// RemoveVault unregisters a named vault and returns its path. If the removed
// vault was active, the default vault becomes active again.
func (r *Resolver) RemoveVault(name string) (string, error) {
	if name == DefaultVaultName {
		return "", apperr.New(apperr.CodeValidationError, "cannot remove the default vault")
	}
	cfg := r.loadGlobalConfig()
	path, ok := cfg.Vaults[name]
	if !ok {
		return "", apperr.Newf(apperr.CodeVaultNotFound, "vault %q not found", name)
	}
	delete(cfg.Vaults, name)
	if cfg.ActiveVault == name {
		cfg.ActiveVault = DefaultVaultName
	}
	if err := r.saveGlobalConfig(cfg); err != nil {
		return "", err
	}
	r.refreshVaultDir(cfg)
	return path, nil
}

// UseVault switches the active vault and returns its content directory.
func (r *Resolver) UseVault(name string) (string, error) {
	cfg := r.loadGlobalConfig()
	if name != DefaultVaultName {
		if _, ok := cfg.Vaults[name]; !ok {
			return "", apperr.Newf(apperr.CodeVaultNotFound,
				"vault %q not found, register it with 'fuda vault add %s <path>'", name, name)
		}
	}
	cfg.ActiveVault = name
	if err := r.saveGlobalConfig(cfg); err != nil {
		return "", err
	}
	r.refreshVaultDir(cfg)
	return r.vaultDir, nil
}

// refreshVaultDir re-derives the memoized global vault directory after a
// registry mutation within the same process.
func (r *Resolver) refreshVaultDir(cfg Config) {
	r.vaultDir = filepath.Join(r.globalRoot, "vault")
	if cfg.ActiveVault != "" && cfg.ActiveVault != DefaultVaultName {
		if path, ok := cfg.Vaults[cfg.ActiveVault]; ok {
			r.vaultDir = path
		}
	}
}
