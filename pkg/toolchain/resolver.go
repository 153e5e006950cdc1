package toolchain

import (
	"fmt"
	"go/importer"
	"go/token"
	"go/types"
)

// Resolver supplies typed packages for import paths outside the session cell
// namespace. It is the seam where a dependency/classpath provider plugs in;
// the default resolves against the local toolchain installation.
type Resolver interface {
	ResolvePackage(path string) (*types.Package, error)
}

// NewSourceResolver returns a Resolver that type-checks library packages
// from source against the given fileset, so their positions share the
// session's coordinate space.
func NewSourceResolver(fset *token.FileSet) Resolver {
	return &sourceResolver{imp: importer.ForCompiler(fset, "source", nil)}
}

type sourceResolver struct {
	imp types.Importer
}

// ResolvePackage implements Resolver.
func (r *sourceResolver) ResolvePackage(path string) (*types.Package, error) {
	pkg, err := r.imp.Import(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	return pkg, nil
}

// NewRestrictedResolver returns a Resolver that rejects every library
// import. Cells compiled against it may only reference other cells.
func NewRestrictedResolver() Resolver {
	return restrictedResolver{}
}

type restrictedResolver struct{}

// ResolvePackage implements Resolver.
func (restrictedResolver) ResolvePackage(path string) (*types.Package, error) {
	return nil, fmt.Errorf("resolve %s: library imports are disabled for this session", path)
}

// sessionImporter satisfies the type-checker's import hook: cell packages
// come from the session registry, everything else from the resolver.
type sessionImporter struct {
	registry *Registry
	resolver Resolver
}

// Import implements types.Importer.
func (si *sessionImporter) Import(path string) (*types.Package, error) {
	if si.registry.IsCellPath(path) {
		pkg := si.registry.Lookup(path)
		if pkg == nil {
			return nil, fmt.Errorf("toolchain: cell package %s not compiled yet", path)
		}

		return pkg, nil
	}

	if si.resolver == nil {
		return nil, fmt.Errorf("toolchain: no resolver for %s", path)
	}

	return si.resolver.ResolvePackage(path)
}
