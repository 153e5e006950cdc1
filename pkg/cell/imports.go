package cell

// ImportSpec is one untyped import statement: an optional alias and the
// quoted path's value. Untyped originals are what descend the cell chain, so
// later reuse is not polluted by the temporary synthesized wrapping.
type ImportSpec struct {
	Alias string
	Path  string
}

// Imports partitions import statements into local imports, which resolve to
// symbols defined by the current or prior cells and must be re-synthesized
// for each descendant scope, and external imports, which resolve outside the
// cell chain and are inherited verbatim.
type Imports struct {
	Local    []ImportSpec
	External []ImportSpec
}

// Concat appends another Imports value. Concatenation is associative and
// order-preserving within each class.
func (i Imports) Concat(other Imports) Imports {
	return Imports{
		Local:    append(append([]ImportSpec(nil), i.Local...), other.Local...),
		External: append(append([]ImportSpec(nil), i.External...), other.External...),
	}
}

// Total returns the number of import statements across both classes.
func (i Imports) Total() int {
	return len(i.Local) + len(i.External)
}
