// Package usage determines which parts of a cell's declared dependency
// surface its typed body actually references, and prunes the cell down to
// exactly that.
package usage

import (
	"go/types"
	"strings"

	"github.com/ikpaetukgabriel/polynote/pkg/cell"
	"github.com/ikpaetukgabriel/polynote/pkg/toolchain"
)

// Result is the set of dependency names a compiled cell's body references.
// Ordering is irrelevant; this is a membership test.
type Result struct {
	Priors map[string]bool
	Inputs map[string]bool
}

// Analyze walks a compiled cell's resolution tables and reports exactly the
// prior cells and inputs referenced from the cell's own source region.
// Synthesized scaffolding is excluded, so alias declarations and mirrors do
// not count as uses; definitions never count because only uses are walked.
//
// A prior cell is referenced either through a plain name the scope chain
// bound for it, through qualified selection on its package handle, or
// through any symbol its package owns (such as a method reached via a value
// it defined).
func Analyze(c *cell.Cell) (*Result, error) {
	art, err := c.Artifact()
	if err != nil {
		return nil, err
	}

	body := c.Body()
	res := &Result{
		Priors: make(map[string]bool),
		Inputs: make(map[string]bool),
	}

	pkgScope := art.Pkg.Scope()

	for ident, obj := range art.Info.Uses {
		if !body.InUserRegion(ident.Pos()) {
			continue
		}

		// Qualified selection on a prior-cell handle.
		if pkgName, ok := obj.(*types.PkgName); ok {
			prior, isPrior := art.Construct.PriorHandles[pkgName.Name()]
			if isPrior {
				res.Priors[prior] = true
			}

			continue
		}

		// Plain name bound at package scope by the scope chain builder.
		if obj.Pkg() == art.Pkg && obj.Parent() == pkgScope {
			origin, tracked := art.Construct.Provenance[obj.Name()]
			if !tracked {
				continue
			}

			switch {
			case origin.PriorCell != "":
				res.Priors[origin.PriorCell] = true
			case origin.Input != "":
				res.Inputs[origin.Input] = true
			}

			continue
		}

		// A symbol owned by a prior cell's package, reached indirectly.
		if obj.Pkg() != nil {
			prior, isPrior := priorForPath(art, obj.Pkg().Path())
			if isPrior {
				res.Priors[prior] = true
			}
		}
	}

	return res, nil
}

// priorForPath maps a cell-namespace package path back to the prior cell
// imported under that generated name.
func priorForPath(art *cell.Artifact, path string) (string, bool) {
	if !strings.HasPrefix(path, toolchain.CellPathPrefix) {
		return "", false
	}

	handle := strings.TrimPrefix(path, toolchain.CellPathPrefix)
	prior, ok := art.Construct.PriorHandles[handle]

	return prior, ok
}

// Prune returns a new cell retaining only the prior cells and inputs the
// compiled cell's body references. Declaration order is preserved; retained
// sets are always subsets of the declared ones.
//
// This is a hard ownership transfer, not a read-only query: the source cell's
// compilation-unit state is consumed, and the source must never be compiled
// again. Use the returned cell from here on.
func Prune(c *cell.Cell) (*cell.Cell, error) {
	res, err := Analyze(c)
	if err != nil {
		return nil, err
	}

	var priors []*cell.Cell

	for _, prior := range c.Priors() {
		if res.Priors[prior.Name()] {
			priors = append(priors, prior)
		}
	}

	var inputs []cell.Input

	for _, in := range c.Inputs() {
		if res.Inputs[in.Name] {
			inputs = append(inputs, in)
		}
	}

	return c.Derive(priors, inputs)
}
