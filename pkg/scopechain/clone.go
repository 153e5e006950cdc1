package scopechain

import (
	"go/ast"
	"reflect"
)

// cloneDecl returns a deep copy of a declaration. Every build duplicates the
// cell's trees before wrapping them, so the source body is never aliased into
// a compilation and re-typechecking cannot reuse stale attributes.
func cloneDecl(decl ast.Decl) ast.Decl {
	return cloneValue(reflect.ValueOf(decl)).Interface().(ast.Decl)
}

// cloneStmt returns a deep copy of a statement.
func cloneStmt(stmt ast.Stmt) ast.Stmt {
	return cloneValue(reflect.ValueOf(stmt)).Interface().(ast.Stmt)
}

// cloneImportSpec returns a deep copy of an import spec.
func cloneImportSpec(spec *ast.ImportSpec) *ast.ImportSpec {
	return cloneValue(reflect.ValueOf(spec)).Interface().(*ast.ImportSpec)
}

// objectType and scopeType are legacy parser-resolution fields that must not
// be cloned; cells are parsed with SkipObjectResolution, and copying them
// would re-introduce shared mutable state between builds.
var (
	objectType = reflect.TypeOf((*ast.Object)(nil))
	scopeType  = reflect.TypeOf((*ast.Scope)(nil))
)

// cloneValue deep-copies an AST value reflectively. token.Pos values are
// plain integers and copy through untouched, which keeps user positions
// stable across builds.
func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}

		if v.Type() == objectType || v.Type() == scopeType {
			return reflect.Zero(v.Type())
		}

		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))

		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}

		out := reflect.New(v.Type()).Elem()
		out.Set(cloneValue(v.Elem()))

		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}

		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}

		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			out.Field(i).Set(cloneValue(v.Field(i)))
		}

		return out

	default:
		return v
	}
}
