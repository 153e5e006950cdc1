package toolchain

import (
	"go/types"
	"strings"
	"sync"
)

// CellPathPrefix is the import-path namespace every compiled cell package
// registers under for the life of a session.
const CellPathPrefix = "notebook/"

// Registry memoizes compiled cell packages for the life of a session.
// Registering a path twice is a caller bug.
type Registry struct {
	mu   sync.RWMutex
	pkgs map[string]*types.Package
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{pkgs: make(map[string]*types.Package)}
}

// Register records a compiled cell package under its path.
func (r *Registry) Register(path string, pkg *types.Package) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pkgs[path] = pkg
}

// Lookup returns the cell package registered under path, or nil.
func (r *Registry) Lookup(path string) *types.Package {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.pkgs[path]
}

// IsCellPath reports whether an import path lies in the session cell
// namespace. This is the local/external discriminator for import splitting.
func (r *Registry) IsCellPath(path string) bool {
	return strings.HasPrefix(path, CellPathPrefix)
}
