// Package scopechain synthesizes the nested-scope construct for one cell: a
// single package whose scope is, in order, every symbol the prior cells
// expose, the cell's declared inputs, and the cell's own statements. The
// construct is what the compilation driver submits to the toolchain.
package scopechain

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/ikpaetukgabriel/polynote/pkg/cell"
)

// ExportPrefix is prepended to every top-level binding to produce its
// exported mirror, which is how descendant cell packages reach notebook
// names regardless of Go export rules.
const ExportPrefix = "Out_"

// Params carries the session context a build needs.
type Params struct {
	// Namer assigns the generated package name.
	Namer *cell.Namer

	// PathPrefix is the session namespace all cell packages register under.
	PathPrefix string

	// ParseType parses an input type expression against the shared fileset.
	ParseType func(name, expr string) (ast.Expr, error)
}

// Build synthesizes the scope-chain construct for a cell. The returned
// construct holds only fresh trees; the cell body is never mutated.
func Build(c *cell.Cell, p Params) (*cell.Construct, error) {
	body := c.Body()
	if body == nil {
		return nil, fmt.Errorf("scopechain: cell %s has no parsed body", c.Name())
	}

	genName := c.GenName(p.Namer)

	b := &builder{
		cell:    c,
		body:    body,
		params:  p,
		genName: genName,
		construct: &cell.Construct{
			PkgName:      genName,
			PkgPath:      p.PathPrefix + genName,
			Provenance:   make(map[string]cell.Origin),
			PriorHandles: make(map[string]string),
		},
	}

	err := b.build()
	if err != nil {
		return nil, err
	}

	return b.construct, nil
}

// builder accumulates the synthesized file for one cell.
type builder struct {
	cell      *cell.Cell
	body      *cell.Body
	params    Params
	genName   string
	construct *cell.Construct

	imports []ast.Spec
	decls   []ast.Decl

	// seenImports dedupes import specs by effective name and path, so a user
	// re-importing an inherited package does not redeclare it.
	seenImports map[cell.ImportSpec]bool
}

// build assembles the file in the scope-chain order: prior-cell imports,
// inherited external imports, inherited local imports, user imports, prior
// binding aliases, inputs, user declarations, mirrors, side-effect body.
func (b *builder) build() error {
	b.seenImports = make(map[cell.ImportSpec]bool)

	aliased := b.resolvePriorBindings()

	b.addPriorImports(aliased)
	b.addInheritedImports()
	b.addUserImports()
	b.addPriorAliases(aliased)

	err := b.addInputs()
	if err != nil {
		return err
	}

	b.addUserDecls()
	b.addMirrors()
	b.addSideEffectBody()

	file := &ast.File{
		Name: ast.NewIdent(b.genName),
	}

	if len(b.imports) > 0 {
		file.Decls = append(file.Decls, &ast.GenDecl{Tok: token.IMPORT, Specs: b.imports})
	}

	file.Decls = append(file.Decls, b.decls...)
	b.construct.File = file

	return nil
}

// priorBinding is one prior-cell binding that survives name resolution.
type priorBinding struct {
	prior   *cell.Cell
	binding cell.Binding
}

// resolvePriorBindings decides, per prior cell, which bindings get aliased
// into this cell's scope. A name declared by the cell itself or by one of its
// inputs shadows every prior; between priors, the later cell wins, matching
// notebook redefinition semantics.
func (b *builder) resolvePriorBindings() map[string][]priorBinding {
	shadowed := make(map[string]bool)

	for _, bind := range b.body.Bindings {
		shadowed[bind.Name] = true
	}

	for _, in := range b.cell.Inputs() {
		shadowed[in.Name] = true
	}

	owner := make(map[string]*cell.Cell)
	priors := b.cell.Priors()

	for _, prior := range priors {
		for _, bind := range prior.Body().Bindings {
			if shadowed[bind.Name] || !mirrorable(bind, prior.Body()) {
				continue
			}

			owner[bind.Name] = prior
		}
	}

	perPrior := make(map[string][]priorBinding, len(priors))

	for _, prior := range priors {
		for _, bind := range prior.Body().Bindings {
			if owner[bind.Name] != prior {
				continue
			}

			perPrior[prior.Name()] = append(perPrior[prior.Name()], priorBinding{prior: prior, binding: bind})
		}
	}

	return perPrior
}

// addPriorImports emits one import per prior cell, in prior order. A prior
// contributing no aliases still gets a blank import, preserving the
// positional alignment of the prior-cell list.
func (b *builder) addPriorImports(aliased map[string][]priorBinding) {
	for _, prior := range b.cell.Priors() {
		handle := prior.AssignedGenName()
		path := b.params.PathPrefix + handle

		var name *ast.Ident
		if len(aliased[prior.Name()]) > 0 {
			name = ast.NewIdent(handle)
		} else {
			name = ast.NewIdent("_")
		}

		b.imports = append(b.imports, &ast.ImportSpec{
			Name: name,
			Path: &ast.BasicLit{Kind: token.STRING, Value: quote(path)},
		})

		b.construct.PriorHandles[handle] = prior.Name()
		b.seenImports[cell.ImportSpec{Alias: handle, Path: path}] = true
	}
}

// addInheritedImports emits the inherited external then local imports.
func (b *builder) addInheritedImports() {
	inherited := b.cell.InheritedImports()

	for _, spec := range inherited.External {
		b.addImportSpec(spec, nil)
	}

	for _, spec := range inherited.Local {
		b.addImportSpec(spec, nil)
	}
}

// addUserImports emits the imports written in the cell text, cloned from the
// parsed originals so their positions land in the user region.
func (b *builder) addUserImports() {
	for i, spec := range b.body.UserImports {
		b.addImportSpec(spec, b.body.UserImportDecls[i])
	}
}

// addImportSpec appends one import spec, deduplicating repeats. When the
// parsed original is given it is cloned and also recorded for the import
// splitter's typed/untyped zipping.
func (b *builder) addImportSpec(spec cell.ImportSpec, original *ast.ImportSpec) {
	if b.seenImports[spec] {
		if original != nil {
			b.construct.UserImportSpecs = append(b.construct.UserImportSpecs, nil)
		}

		return
	}

	b.seenImports[spec] = true

	var node *ast.ImportSpec
	if original != nil {
		node = cloneImportSpec(original)
		b.construct.UserImportSpecs = append(b.construct.UserImportSpecs, node)
	} else {
		node = &ast.ImportSpec{
			Path: &ast.BasicLit{Kind: token.STRING, Value: quote(spec.Path)},
		}
		if spec.Alias != "" {
			node.Name = ast.NewIdent(spec.Alias)
		}
	}

	b.imports = append(b.imports, node)
}

// addPriorAliases emits the alias declarations binding prior-cell names into
// plain-name scope, per prior in order.
func (b *builder) addPriorAliases(aliased map[string][]priorBinding) {
	for _, prior := range b.cell.Priors() {
		handle := prior.AssignedGenName()

		for _, pb := range aliased[prior.Name()] {
			b.decls = append(b.decls, aliasDecl(handle, pb.binding))
			b.construct.Provenance[pb.binding.Name] = cell.Origin{PriorCell: prior.Name()}
		}
	}
}

// aliasDecl builds one alias declaration for a prior-cell binding.
func aliasDecl(handle string, bind cell.Binding) ast.Decl {
	mirror := &ast.SelectorExpr{
		X:   ast.NewIdent(handle),
		Sel: ast.NewIdent(ExportPrefix + bind.Name),
	}

	switch bind.Kind {
	case cell.BindType:
		return &ast.GenDecl{
			Tok: token.TYPE,
			Specs: []ast.Spec{&ast.TypeSpec{
				Name:   ast.NewIdent(bind.Name),
				Assign: 1, // alias, not definition
				Type:   mirror,
			}},
		}

	case cell.BindConst:
		return &ast.GenDecl{
			Tok: token.CONST,
			Specs: []ast.Spec{&ast.ValueSpec{
				Names:  []*ast.Ident{ast.NewIdent(bind.Name)},
				Values: []ast.Expr{mirror},
			}},
		}

	default:
		return &ast.GenDecl{
			Tok: token.VAR,
			Specs: []ast.Spec{&ast.ValueSpec{
				Names:  []*ast.Ident{ast.NewIdent(bind.Name)},
				Values: []ast.Expr{mirror},
			}},
		}
	}
}

// addInputs emits the declared inputs as package variables, non-implicit
// inputs first, then implicit inputs, preserving declaration order within
// each class.
func (b *builder) addInputs() error {
	inputs := b.cell.Inputs()

	for _, implicit := range []bool{false, true} {
		for _, in := range inputs {
			if in.Implicit != implicit {
				continue
			}

			typeExpr, err := b.params.ParseType(fmt.Sprintf("<input %s>", in.Name), in.Type)
			if err != nil {
				return fmt.Errorf("scopechain: input %s of cell %s: %w", in.Name, b.cell.Name(), err)
			}

			b.decls = append(b.decls, &ast.GenDecl{
				Tok: token.VAR,
				Specs: []ast.Spec{&ast.ValueSpec{
					Names: []*ast.Ident{ast.NewIdent(in.Name)},
					Type:  typeExpr,
				}},
			})

			b.construct.Provenance[in.Name] = cell.Origin{Input: in.Name}
		}
	}

	return nil
}

// addUserDecls emits deep clones of the cell's own declarations.
func (b *builder) addUserDecls() {
	for _, decl := range b.body.Decls {
		b.decls = append(b.decls, cloneDecl(decl))
	}
}

// addMirrors emits the exported mirror of every mirrorable binding.
func (b *builder) addMirrors() {
	for _, bind := range b.body.Bindings {
		if !mirrorable(bind, b.body) {
			continue
		}

		b.decls = append(b.decls, mirrorDecl(bind))
	}
}

// mirrorDecl builds the exported mirror declaration for one binding.
func mirrorDecl(bind cell.Binding) ast.Decl {
	name := ast.NewIdent(ExportPrefix + bind.Name)
	ref := ast.NewIdent(bind.Name)

	switch bind.Kind {
	case cell.BindType:
		return &ast.GenDecl{
			Tok: token.TYPE,
			Specs: []ast.Spec{&ast.TypeSpec{
				Name:   name,
				Assign: 1,
				Type:   ref,
			}},
		}

	case cell.BindConst:
		return &ast.GenDecl{
			Tok: token.CONST,
			Specs: []ast.Spec{&ast.ValueSpec{
				Names:  []*ast.Ident{name},
				Values: []ast.Expr{ref},
			}},
		}

	default:
		return &ast.GenDecl{
			Tok: token.VAR,
			Specs: []ast.Spec{&ast.ValueSpec{
				Names:  []*ast.Ident{name},
				Values: []ast.Expr{ref},
			}},
		}
	}
}

// mirrorable reports whether a binding can be mirrored across a package
// boundary. Generic functions and generic types cannot travel as values or
// plain aliases, so they stay cell-private.
func mirrorable(bind cell.Binding, body *cell.Body) bool {
	for _, decl := range body.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Name != nil && d.Name.Name == bind.Name {
				return d.Type.TypeParams == nil
			}

		case *ast.GenDecl:
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if ok && ts.Name.Name == bind.Name {
					return ts.TypeParams == nil
				}
			}
		}
	}

	return true
}

// addSideEffectBody wraps residual statements into an anonymous function so
// the typed tree covers them without binding any name.
func (b *builder) addSideEffectBody() {
	if len(b.body.Stmts) == 0 {
		return
	}

	stmts := make([]ast.Stmt, 0, len(b.body.Stmts))
	for _, stmt := range b.body.Stmts {
		stmts = append(stmts, cloneStmt(stmt))
	}

	b.decls = append(b.decls, &ast.FuncDecl{
		Name: ast.NewIdent("_"),
		Type: &ast.FuncType{Params: &ast.FieldList{}},
		Body: &ast.BlockStmt{List: stmts},
	})
}

// quote renders an import path literal.
func quote(path string) string {
	return `"` + path + `"`
}
