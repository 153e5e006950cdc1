// Package cellparse turns raw cell text into a parsed cell body. A cell may
// be written in file form (top-level declarations, optional leading imports)
// or statement form (a statement sequence); statement form gets its binding
// statements hoisted to top level so descendant cells can see them.
package cellparse

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"

	"github.com/ikpaetukgabriel/polynote/pkg/cell"
)

// synthPkgClause is the package clause prepended to cell text before parsing.
const synthPkgClause = "package cellsrc\n"

// synthFuncOpen and synthFuncClose wrap cell text into a function body for
// the statement-form parse attempt.
const (
	synthFuncOpen  = "func _() {\n"
	synthFuncClose = "\n}\n"
)

// Parse parses one cell's source text against the shared toolchain fileset.
// On failure it returns diagnostics positioned in the original cell text.
func Parse(fset *token.FileSet, name, src string) (*cell.Body, cell.Diagnostics) {
	fileBody, fileDiags := parseFileForm(fset, name, src)
	if fileDiags == nil {
		return fileBody, nil
	}

	stmtBody, stmtDiags := parseStmtForm(fset, name, src)
	if stmtDiags == nil {
		return stmtBody, nil
	}

	// Both attempts failed. Report the attempt that progressed further into
	// the user source; its first error is the more truthful one.
	if firstOffset(stmtDiags) >= firstOffset(fileDiags) {
		return nil, stmtDiags
	}

	return nil, fileDiags
}

// parseFileForm parses the text as top-level declarations.
func parseFileForm(fset *token.FileSet, name, src string) (*cell.Body, cell.Diagnostics) {
	header := synthPkgClause
	full := header + src

	astFile, err := parser.ParseFile(fset, name, full, parser.SkipObjectResolution)
	if err != nil {
		return nil, parseDiagnostics(name, err, len(header), 1)
	}

	body := &cell.Body{
		Source:    src,
		File:      fset.File(astFile.Pos()),
		HeaderLen: len(header),
	}

	for _, decl := range astFile.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if ok && gen.Tok == token.IMPORT {
			collectImports(body, gen)
			continue
		}

		body.Decls = append(body.Decls, decl)
		collectBindings(body, decl)
	}

	return body, nil
}

// parseStmtForm parses the text as a statement sequence and hoists binding
// statements to top level.
func parseStmtForm(fset *token.FileSet, name, src string) (*cell.Body, cell.Diagnostics) {
	header := synthPkgClause + synthFuncOpen
	full := header + src + synthFuncClose

	astFile, err := parser.ParseFile(fset, name, full, parser.SkipObjectResolution)
	if err != nil {
		return nil, parseDiagnostics(name, err, len(header), 2)
	}

	body := &cell.Body{
		Source:    src,
		File:      fset.File(astFile.Pos()),
		HeaderLen: len(header),
	}

	fn, ok := astFile.Decls[0].(*ast.FuncDecl)
	if !ok || fn.Body == nil {
		return body, nil
	}

	for _, stmt := range fn.Body.List {
		hoistStmt(body, stmt)
	}

	return body, nil
}

// hoistStmt lifts binding statements to top-level declarations and keeps the
// rest as side-effect statements.
func hoistStmt(body *cell.Body, stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.DeclStmt:
		gen, ok := s.Decl.(*ast.GenDecl)
		if ok && gen.Tok == token.IMPORT {
			// Imports are only legal in file form; surface it as-is so the
			// toolchain reports the real error.
			body.Stmts = append(body.Stmts, stmt)
			return
		}

		body.Decls = append(body.Decls, s.Decl)
		collectBindings(body, s.Decl)

	case *ast.AssignStmt:
		decl, ok := hoistDefine(s)
		if !ok {
			body.Stmts = append(body.Stmts, stmt)
			return
		}

		body.Decls = append(body.Decls, decl)
		collectBindings(body, decl)

	default:
		body.Stmts = append(body.Stmts, stmt)
	}
}

// hoistDefine converts a short variable declaration whose left-hand side is
// all plain identifiers into an equivalent top-level var declaration.
func hoistDefine(s *ast.AssignStmt) (ast.Decl, bool) {
	if s.Tok != token.DEFINE {
		return nil, false
	}

	names := make([]*ast.Ident, 0, len(s.Lhs))

	for _, lhs := range s.Lhs {
		ident, ok := lhs.(*ast.Ident)
		if !ok {
			return nil, false
		}

		names = append(names, ident)
	}

	return &ast.GenDecl{
		Tok:    token.VAR,
		TokPos: s.Pos(),
		Specs: []ast.Spec{&ast.ValueSpec{
			Names:  names,
			Values: s.Rhs,
		}},
	}, true
}

// collectImports records the untyped originals of a user import declaration.
func collectImports(body *cell.Body, gen *ast.GenDecl) {
	for _, spec := range gen.Specs {
		imp, ok := spec.(*ast.ImportSpec)
		if !ok {
			continue
		}

		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}

		alias := ""
		if imp.Name != nil {
			alias = imp.Name.Name
		}

		body.UserImports = append(body.UserImports, cell.ImportSpec{Alias: alias, Path: path})
		body.UserImportDecls = append(body.UserImportDecls, imp)
	}
}

// collectBindings records the top-level names a declaration defines.
func collectBindings(body *cell.Body, decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.GenDecl:
		kind := cell.BindVar

		switch d.Tok {
		case token.CONST:
			kind = cell.BindConst
		case token.TYPE:
			kind = cell.BindType
		case token.VAR:
			kind = cell.BindVar
		default:
			return
		}

		for _, spec := range d.Specs {
			collectSpecBindings(body, spec, kind)
		}

	case *ast.FuncDecl:
		if d.Recv != nil || d.Name == nil || d.Name.Name == "_" {
			return
		}

		body.Bindings = append(body.Bindings, cell.Binding{
			Name: d.Name.Name,
			Kind: cell.BindFunc,
			Pos:  d.Name.Pos(),
		})
	}
}

// collectSpecBindings records the names of one value or type spec.
func collectSpecBindings(body *cell.Body, spec ast.Spec, kind cell.BindingKind) {
	switch s := spec.(type) {
	case *ast.ValueSpec:
		for _, name := range s.Names {
			if name.Name == "_" {
				continue
			}

			body.Bindings = append(body.Bindings, cell.Binding{Name: name.Name, Kind: kind, Pos: name.Pos()})
		}

	case *ast.TypeSpec:
		if s.Name.Name == "_" {
			return
		}

		body.Bindings = append(body.Bindings, cell.Binding{Name: s.Name.Name, Kind: cell.BindType, Pos: s.Name.Pos()})
	}
}

// parseDiagnostics converts parser errors to diagnostics positioned in the
// original cell text. headerLines is the number of synthetic lines before it.
func parseDiagnostics(name string, err error, headerLen, headerLines int) cell.Diagnostics {
	var list scanner.ErrorList
	ok := false

	if el, isList := err.(scanner.ErrorList); isList {
		list, ok = el, true
	}

	if !ok {
		return cell.Diagnostics{{
			Cell:     name,
			Offset:   -1,
			Severity: cell.SeverityError,
			Message:  err.Error(),
		}}
	}

	diags := make(cell.Diagnostics, 0, len(list))

	for _, e := range list {
		offset := e.Pos.Offset - headerLen
		line := e.Pos.Line - headerLines

		if offset < 0 {
			offset = -1
			line = 0
		}

		diags = append(diags, cell.Diagnostic{
			Cell:     name,
			Offset:   offset,
			Line:     line,
			Column:   e.Pos.Column,
			Severity: cell.SeverityError,
			Message:  e.Msg,
		})
	}

	return diags
}

// firstOffset returns the offset of the first positioned diagnostic, or -1.
func firstOffset(diags cell.Diagnostics) int {
	for _, d := range diags {
		if d.Offset >= 0 {
			return d.Offset
		}
	}

	return -1
}

// ParseTypeExpr parses a type expression in isolation against the shared
// fileset, as used for declared input types and implicit resolution targets.
func ParseTypeExpr(fset *token.FileSet, name, typeExpr string) (ast.Expr, error) {
	src := synthPkgClause + "var _ " + typeExpr + "\n"

	astFile, err := parser.ParseFile(fset, name, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	for _, decl := range astFile.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			continue
		}

		spec, ok := gen.Specs[0].(*ast.ValueSpec)
		if !ok || spec.Type == nil {
			break
		}

		return spec.Type, nil
	}

	return nil, &UnparsableTypeError{Expr: typeExpr}
}

// UnparsableTypeError reports a type expression that did not parse as a type.
type UnparsableTypeError struct {
	Expr string
}

// Error implements the error interface.
func (e *UnparsableTypeError) Error() string {
	return "cellparse: not a type expression: " + e.Expr
}
