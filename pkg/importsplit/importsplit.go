// Package importsplit classifies a compiled cell's imports as local (owned
// by the cell chain) or external (library code), for propagation to
// descendant cells. Local imports are scope-specific and re-synthesized for
// each descendant; external imports are inherited verbatim.
package importsplit

import (
	"go/ast"
	"strconv"

	"github.com/ikpaetukgabriel/polynote/pkg/cell"
	"github.com/ikpaetukgabriel/polynote/pkg/toolchain"
)

// Split partitions the import statements of a compiled cell. Each untyped
// original is zipped with the typed import node the toolchain actually
// compiled; a pair is local when the typed path resolves to a package
// registered by the session, external otherwise. The result is built from the
// untyped originals, so later reuse carries no trace of the temporary
// synthesized wrapping. The partition is total: len(Local) + len(External)
// equals the number of user imports.
func Split(c *cell.Cell, registry *toolchain.Registry) (cell.Imports, error) {
	art, err := c.Artifact()
	if err != nil {
		return cell.Imports{}, err
	}

	typed := art.Construct.UserImportSpecs

	var out cell.Imports

	for i, spec := range c.Body().UserImports {
		path := spec.Path

		// A nil typed node marks an import deduplicated against the
		// inherited surface; the untyped path stands in for it.
		if i < len(typed) && typed[i] != nil {
			path = typedPath(typed[i], spec.Path)
		}

		if registry.Lookup(path) != nil {
			out.Local = append(out.Local, spec)
		} else {
			out.External = append(out.External, spec)
		}
	}

	return out, nil
}

// typedPath unquotes the compiled import node's path, falling back to the
// untyped record when the literal is malformed.
func typedPath(spec *ast.ImportSpec, fallback string) string {
	path, err := strconv.Unquote(spec.Path.Value)
	if err != nil {
		return fallback
	}

	return path
}

// Inheritable returns the imports a descendant cell should inherit from a
// compiled cell: the cell's own inherited imports concatenated with the
// classification of its user imports.
func Inheritable(c *cell.Cell, registry *toolchain.Registry) (cell.Imports, error) {
	own, err := Split(c, registry)
	if err != nil {
		return cell.Imports{}, err
	}

	return c.InheritedImports().Concat(own), nil
}
