package cell

import (
	"go/ast"
	"go/token"
)

// BindingKind classifies a top-level binding a cell defines.
type BindingKind int

const (
	// BindVar is a package-level variable binding, including bindings hoisted
	// from short variable declarations in statement-form cells.
	BindVar BindingKind = iota

	// BindConst is a constant binding.
	BindConst

	// BindType is a type declaration or alias.
	BindType

	// BindFunc is a function declaration. Methods are not bindings; they
	// travel with their receiver type.
	BindFunc
)

// String returns the binding kind name.
func (k BindingKind) String() string {
	switch k {
	case BindVar:
		return "var"
	case BindConst:
		return "const"
	case BindType:
		return "type"
	case BindFunc:
		return "func"
	default:
		return "binding"
	}
}

// Binding is one top-level name a cell defines, in declaration order. These
// are the names descendant cells see in plain-name scope, and the names the
// output type extractor reports.
type Binding struct {
	Name string
	Kind BindingKind

	// Pos is the binding's position in the toolchain fileset. It maps back to
	// an offset inside the original cell text.
	Pos token.Pos
}

// Body is a cell's parsed, not yet typed, source: top-level declarations
// (including bindings hoisted from statement form), residual side-effect
// statements, and the imports the user wrote in the cell text.
type Body struct {
	// Decls are the cell's top-level declarations, excluding imports.
	Decls []ast.Decl

	// Stmts are side-effect statements that do not bind a top-level name.
	// They are wrapped into an anonymous function by the scope chain builder
	// so the typed tree covers them.
	Stmts []ast.Stmt

	// UserImports are import statements written in the cell text, as untyped
	// originals.
	UserImports []ImportSpec

	// userImportDecls are the parsed import declarations matching
	// UserImports, index-aligned, kept for typed/untyped zipping by the
	// import splitter.
	UserImportDecls []*ast.ImportSpec

	// Bindings are the top-level names the cell defines, in order.
	Bindings []Binding

	// Source is the original cell text.
	Source string

	// File is the token file holding the parsed source inside the shared
	// toolchain fileset. HeaderLen is the length of the synthetic prefix
	// prepended before parsing; subtracting it converts fileset offsets to
	// offsets in Source.
	File      *token.File
	HeaderLen int
}

// HasBinding reports whether the body defines the given top-level name.
func (b *Body) HasBinding(name string) bool {
	for _, bind := range b.Bindings {
		if bind.Name == name {
			return true
		}
	}

	return false
}

// InUserRegion reports whether a position lies inside the cell's own source
// text, as opposed to synthesized scaffolding. Synthesized nodes carry
// token.NoPos or positions of other files and never satisfy this.
func (b *Body) InUserRegion(pos token.Pos) bool {
	if !pos.IsValid() || b.File == nil {
		return false
	}

	base := token.Pos(b.File.Base())
	end := base + token.Pos(b.File.Size())

	return pos >= base+token.Pos(b.HeaderLen) && pos <= end
}

// SourceOffset converts a fileset position inside the user region to an
// offset in the original cell text. Returns -1 for positions outside it.
func (b *Body) SourceOffset(pos token.Pos) int {
	if !b.InUserRegion(pos) {
		return -1
	}

	return int(pos) - b.File.Base() - b.HeaderLen
}

// LineCol converts an offset in the original cell text to a 1-based line and
// column, independent of any synthetic wrapping.
func (b *Body) LineCol(offset int) (line, col int) {
	if offset < 0 || offset > len(b.Source) {
		return 0, 0
	}

	line, col = 1, 1

	for _, r := range b.Source[:offset] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return line, col
}
