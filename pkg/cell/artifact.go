package cell

import (
	"go/ast"
	"go/types"
)

// Origin records where a synthesized package-scope name came from, so the
// usage analyzer can map a referenced object back to the dependency that
// supplied it.
type Origin struct {
	// PriorCell is the name of the prior cell that owns the symbol, or "".
	PriorCell string

	// Input is the declared input name, or "".
	Input string
}

// Construct is the synthesized nested-scope unit built by the scope chain
// builder: a single file whose package-scope mirrors the cell's constructor
// surface. All user nodes are fresh clones; nothing aliases the source body.
type Construct struct {
	// File is the synthesized file submitted to the toolchain.
	File *ast.File

	// PkgName is the generated package name.
	PkgName string

	// PkgPath is the import path the compiled package registers under.
	PkgPath string

	// Provenance maps synthesized package-scope names (prior-cell binding
	// aliases and input variables) to their origin.
	Provenance map[string]Origin

	// PriorHandles maps the import name a prior cell was imported under to
	// that prior cell's name, covering qualified member selection.
	PriorHandles map[string]string

	// UserImportSpecs are the typed-tree import nodes originating from the
	// cell's own text, index-aligned with Body.UserImports.
	UserImportSpecs []*ast.ImportSpec
}

// Artifact is a compiled cell's typed result: the construct it was built
// from plus the toolchain's package and resolution tables.
type Artifact struct {
	Construct *Construct

	// Pkg is the typed package registered in the session registry.
	Pkg *types.Package

	// Info holds the toolchain's identifier resolution tables for the
	// synthesized file.
	Info *types.Info
}

// Lookup returns the package-scope object with the given name, or nil.
func (a *Artifact) Lookup(name string) types.Object {
	if a.Pkg == nil {
		return nil
	}

	return a.Pkg.Scope().Lookup(name)
}
