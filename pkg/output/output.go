// Package output recovers the fully resolved type of every value a compiled
// cell declares, for presentation back to the caller. It has no effect on
// further compilation.
package output

import (
	"go/types"
	"strings"

	"github.com/ikpaetukgabriel/polynote/pkg/cell"
	"github.com/ikpaetukgabriel/polynote/pkg/toolchain"
)

// NamedType is one declared value with its toolchain-resolved type, carrying
// the original name and position.
type NamedType struct {
	Name   string
	Kind   cell.BindingKind
	Type   string
	Offset int
	Line   int
	Column int
}

// Extract returns the cell's public top-level value declarations in original
// declaration order, each with its fully resolved type. Type declarations
// are not values and are skipped, as are bindings whose type did not
// resolve.
func Extract(c *cell.Cell) ([]NamedType, error) {
	art, err := c.Artifact()
	if err != nil {
		return nil, err
	}

	body := c.Body()
	qualify := displayQualifier(art)

	var out []NamedType

	for _, bind := range body.Bindings {
		if bind.Kind == cell.BindType {
			continue
		}

		obj := art.Lookup(bind.Name)
		if obj == nil || obj.Type() == nil {
			continue
		}

		if basic, ok := obj.Type().(*types.Basic); ok && basic.Kind() == types.Invalid {
			continue
		}

		offset := body.SourceOffset(bind.Pos)
		line, col := body.LineCol(offset)

		out = append(out, NamedType{
			Name:   bind.Name,
			Kind:   bind.Kind,
			Type:   types.TypeString(obj.Type(), qualify),
			Offset: offset,
			Line:   line,
			Column: col,
		})
	}

	return out, nil
}

// displayQualifier renders types relative to the cell: the cell's own
// package disappears, prior cell packages render as the prior cell's name,
// and library packages keep their package name.
func displayQualifier(art *cell.Artifact) types.Qualifier {
	return func(p *types.Package) string {
		if p == art.Pkg {
			return ""
		}

		if strings.HasPrefix(p.Path(), toolchain.CellPathPrefix) {
			handle := strings.TrimPrefix(p.Path(), toolchain.CellPathPrefix)

			prior, ok := art.Construct.PriorHandles[handle]
			if ok {
				return prior
			}

			return handle
		}

		return p.Name()
	}
}
