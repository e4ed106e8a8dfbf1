// Package scope resolves which vault context (local project or global user)
// governs an operation, and derives the canonical side-file paths for a
// scope root.
package scope

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/corvid-labs/fuda/internal/apperr"
	"github.com/corvid-labs/fuda/internal/storage"
)

// MarkerDir is the directory that marks a scope root (~/.fuda for the global
// scope, <project>/.fuda for a local one).
const MarkerDir = ".fuda"

// Scope is a closed enumeration of vault contexts. Adding a third scope kind
// must be caught by every switch over this type.
type Scope string

const (
	Local  Scope = "local"
	Global Scope = "global"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case Local, Global:
		return true
	default:
		return false
	}
}

// Selector is what the user asked for on the command line. Auto means no
// explicit request and triggers operation-dependent resolution.
type Selector string

const (
	SelectLocal  Selector = "local"
	SelectGlobal Selector = "global"
	SelectAll    Selector = "all"
	SelectAuto   Selector = ""
)

// ParseSelector validates a user-supplied scope string.
func ParseSelector(s string) (Selector, error) {
	switch Selector(s) {
	case SelectLocal, SelectGlobal, SelectAll, SelectAuto:
		return Selector(s), nil
	default:
		return SelectAuto, apperr.Newf(apperr.CodeValidationError,
			"invalid scope %q (expected local, global, or all)", s)
	}
}

// Operation distinguishes read from write resolution policy.
type Operation string

const (
	Read  Operation = "read"
	Write Operation = "write"
)

// Paths holds the canonical locations derived from a scope root.
type Paths struct {
	Root       string
	Vault      string
	Templates  string
	IndexFile  string
	LinksFile  string
	ConfigFile string
	HooksFile  string
}

// Root pairs a scope with its resolved root directory.
type Root struct {
	Scope Scope
	Path  string
}

// Resolution is the outcome of resolving a selector for an operation.
// Scopes is ordered: local always precedes global.
type Resolution struct {
	Scopes     []Scope
	LocalRoot  string // empty when no local scope was found
	GlobalRoot string
}

// Roots returns the resolved scopes paired with their root directories.
func (r Resolution) Roots() []Root {
	out := make([]Root, 0, len(r.Scopes))
	for _, s := range r.Scopes {
		switch s {
		case Local:
			out = append(out, Root{Scope: Local, Path: r.LocalRoot})
		case Global:
			out = append(out, Root{Scope: Global, Path: r.GlobalRoot})
		}
	}
	return out
}

// Config is the per-scope config.json. At the global root it additionally
// carries the named-vault registry.
type Config struct {
	Server *ServerSettings `json:"server,omitempty"`
	Build  *BuildSettings  `json:"build,omitempty"`
	// Vaults maps a vault name to an absolute content directory.
	Vaults map[string]string `json:"vaults,omitempty"`
	// ActiveVault selects which registered vault backs the global scope.
	ActiveVault string `json:"activeVault,omitempty"`
}

// ServerSettings is the server section of config.json.
type ServerSettings struct {
	Port int `json:"port,omitempty"`
}

// BuildSettings is the build section of config.json.
type BuildSettings struct {
	OutDir string `json:"outDir,omitempty"`
}

// Resolver computes scope roots and paths. The active global vault directory
// is resolved once at construction and reused, replacing the hidden
// module-level memo of older designs with explicit state.
type Resolver struct {
	store      storage.Provider
	cwd        string
	home       string
	globalRoot string
	// vaultDir is the content directory backing the global scope. It differs
	// from <globalRoot>/vault only when config.json names an active vault.
	vaultDir string
}

// New creates a Resolver anchored at cwd with the given home directory.
// It loads the global config once to resolve the active vault redirection.
func New(store storage.Provider, cwd, home string) (*Resolver, error) {
	if cwd == "" || home == "" {
		return nil, fmt.Errorf("scope: cwd and home are required")
	}
	r := &Resolver{
		store:      store,
		cwd:        filepath.Clean(cwd),
		home:       filepath.Clean(home),
		globalRoot: filepath.Join(filepath.Clean(home), MarkerDir),
	}
	cfg := r.loadGlobalConfig()
	r.vaultDir = filepath.Join(r.globalRoot, "vault")
	if cfg.ActiveVault != "" && cfg.ActiveVault != DefaultVaultName {
		if path, ok := cfg.Vaults[cfg.ActiveVault]; ok {
			r.vaultDir = path
		}
	}
	return r, nil
}

// GlobalRoot returns the global scope root (~/.fuda).
func (r *Resolver) GlobalRoot() string { return r.globalRoot }

// Home returns the user home directory the resolver was built with.
func (r *Resolver) Home() string { return r.home }

// ServerPort returns the port from the global config.json, or 0 when unset.
func (r *Resolver) ServerPort() int {
	cfg := r.loadGlobalConfig()
	if cfg.Server == nil {
		return 0
	}
	return cfg.Server.Port
}

// GlobalScopeExists reports whether the global scope has been initialized.
func (r *Resolver) GlobalScopeExists() bool {
	return r.store.Exists(r.globalRoot)
}

// FindLocalRoot walks from cwd toward the filesystem root looking for a
// .fuda marker directory. Returns "" when none is found.
func (r *Resolver) FindLocalRoot() string {
	dir := r.cwd
	for {
		candidate := filepath.Join(dir, MarkerDir)
		if r.store.Exists(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Resolve applies the scope resolution policy. Reads without an explicit
// selector chain local before global so local articles shadow global ones;
// writes pick the single nearest scope.
func (r *Resolver) Resolve(requested Selector, op Operation) (Resolution, error) {
	localRoot := r.FindLocalRoot()
	res := Resolution{LocalRoot: localRoot, GlobalRoot: r.globalRoot}

	switch requested {
	case SelectAll:
		if localRoot != "" {
			res.Scopes = append(res.Scopes, Local)
		}
		if r.GlobalScopeExists() {
			res.Scopes = append(res.Scopes, Global)
		}
		if len(res.Scopes) == 0 {
			// Nothing initialized anywhere: fall back to the global root,
			// which is always computable. Writes then target global and
			// reads see an empty scope.
			res.Scopes = []Scope{Global}
		}
		return res, nil

	case SelectLocal:
		if localRoot == "" {
			return Resolution{}, apperr.New(apperr.CodeScopeNotFound,
				"local scope not found, run 'fuda init' to initialize")
		}
		res.Scopes = []Scope{Local}
		return res, nil

	case SelectGlobal:
		// The global root is computable even before initialization.
		res.Scopes = []Scope{Global}
		return res, nil

	case SelectAuto:
		switch op {
		case Write:
			if localRoot != "" {
				res.Scopes = []Scope{Local}
			} else {
				res.Scopes = []Scope{Global}
			}
			return res, nil
		case Read:
			if localRoot != "" {
				res.Scopes = []Scope{Local, Global}
			} else {
				res.Scopes = []Scope{Global}
			}
			return res, nil
		default:
			return Resolution{}, fmt.Errorf("scope: unknown operation %q", op)
		}

	default:
		return Resolution{}, apperr.Newf(apperr.CodeValidationError,
			"invalid scope %q", requested)
	}
}

// RootFor returns the root directory for a specific scope.
func (r *Resolver) RootFor(s Scope) (string, error) {
	switch s {
	case Global:
		return r.globalRoot, nil
	case Local:
		root := r.FindLocalRoot()
		if root == "" {
			return "", apperr.New(apperr.CodeScopeNotFound,
				"local scope not found, run 'fuda init' to initialize")
		}
		return root, nil
	default:
		return "", fmt.Errorf("scope: unknown scope %q", s)
	}
}

// PathsFor derives the canonical side-file paths for a scope root. For the
// global root the vault directory honours the active-vault redirection while
// index/links/config/hooks stay anchored at the root itself.
func (r *Resolver) PathsFor(root string) Paths {
	vault := filepath.Join(root, "vault")
	if filepath.Clean(root) == r.globalRoot {
		vault = r.vaultDir
	}
	return Paths{
		Root:       root,
		Vault:      vault,
		Templates:  filepath.Join(root, "templates"),
		IndexFile:  filepath.Join(root, "index.json"),
		LinksFile:  filepath.Join(root, "links.json"),
		ConfigFile: filepath.Join(root, "config.json"),
		HooksFile:  filepath.Join(root, "hooks.json"),
	}
}

// ReadRoots resolves the ordered scope chain used for read-side lookups
// (templates, link targets): local first when present, then global.
func (r *Resolver) ReadRoots() []Root {
	var out []Root
	if localRoot := r.FindLocalRoot(); localRoot != "" {
		out = append(out, Root{Scope: Local, Path: localRoot})
	}
	out = append(out, Root{Scope: Global, Path: r.globalRoot})
	return out
}

// InitLocalScope creates a .fuda scope in cwd with empty side-files.
func (r *Resolver) InitLocalScope() (string, error) {
	root := filepath.Join(r.cwd, MarkerDir)
	if err := r.scaffold(root, Config{Build: &BuildSettings{OutDir: "./.fuda/dist"}}); err != nil {
		return "", err
	}
	return root, nil
}

// EnsureGlobalScope creates the global scope on first use.
func (r *Resolver) EnsureGlobalScope() (string, error) {
	if r.store.Exists(r.globalRoot) {
		return r.globalRoot, nil
	}
	cfg := Config{
		Server: &ServerSettings{Port: 8335},
		Build:  &BuildSettings{OutDir: "dist"},
	}
	if err := r.scaffold(r.globalRoot, cfg); err != nil {
		return "", err
	}
	return r.globalRoot, nil
}

func (r *Resolver) scaffold(root string, cfg Config) error {
	paths := r.PathsFor(root)
	if err := r.store.MkdirAll(paths.Vault); err != nil {
		return err
	}
	if err := r.store.MkdirAll(paths.Templates); err != nil {
		return err
	}
	files := map[string]any{
		paths.IndexFile:  map[string]any{"articles": map[string]any{}},
		paths.LinksFile:  map[string]any{"forward": map[string]any{}, "backlinks": map[string]any{}},
		paths.ConfigFile: cfg,
		paths.HooksFile:  map[string]any{"hooks": []any{}},
	}
	for path, v := range files {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("scope: marshal %s: %w", path, err)
		}
		if err := r.store.WriteFile(path, append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// loadGlobalConfig reads ~/.fuda/config.json, falling back to an empty
// config on any failure. Config is a cache of user intent, not state.
func (r *Resolver) loadGlobalConfig() Config {
	data, err := r.store.ReadFile(filepath.Join(r.globalRoot, "config.json"))
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// saveGlobalConfig persists the global config, creating the root if needed.
func (r *Resolver) saveGlobalConfig(cfg Config) error {
	if err := r.store.MkdirAll(r.globalRoot); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("scope: marshal config: %w", err)
	}
	return r.store.WriteFile(filepath.Join(r.globalRoot, "config.json"), append(data, '\n'))
}
