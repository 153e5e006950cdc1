// Package toolchain drives the Go front end (go/parser + go/types) for one
// compilation session. All operations that touch the type-checker or the
// shared fileset are funneled through a single dedicated goroutine; the
// session registry memoizes compiled cell packages for the life of the
// toolchain.
package toolchain

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"time"

	"github.com/ikpaetukgabriel/polynote/pkg/cell"
	"github.com/ikpaetukgabriel/polynote/pkg/cellparse"
	"github.com/ikpaetukgabriel/polynote/pkg/scopechain"
)

// Toolchain is the long-lived, shared compilation driver for a session.
type Toolchain struct {
	fset     *token.FileSet
	namer    *cell.Namer
	registry *Registry
	resolver Resolver
	exec     *executor
	logger   *slog.Logger
}

// Option configures a Toolchain.
type Option func(*Toolchain)

// WithResolver overrides the library package resolver.
func WithResolver(r Resolver) Option {
	return func(t *Toolchain) { t.resolver = r }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Toolchain) { t.logger = logger }
}

// New creates a session toolchain. Close must be called when the session
// ends.
func New(opts ...Option) *Toolchain {
	t := &Toolchain{
		fset:     token.NewFileSet(),
		namer:    cell.NewNamer(),
		registry: NewRegistry(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.resolver == nil {
		t.resolver = NewSourceResolver(t.fset)
	}

	t.exec = newExecutor()

	return t
}

// Close shuts down the executor after draining queued work.
func (t *Toolchain) Close() {
	t.exec.close()
}

// Fset returns the shared fileset.
func (t *Toolchain) Fset() *token.FileSet { return t.fset }

// Registry returns the session package registry.
func (t *Toolchain) Registry() *Registry { return t.registry }

// Namer returns the session namer.
func (t *Toolchain) Namer() *cell.Namer { return t.namer }

// Do runs fn on the toolchain's execution context. Symbol-table reads
// against compiled packages go through here: method-set completion inside
// the type-checker is lazy, so even reads mutate shared state.
func (t *Toolchain) Do(ctx context.Context, fn func()) error {
	return t.exec.do(ctx, fn)
}

// Parse parses cell text into a body on the toolchain context.
func (t *Toolchain) Parse(ctx context.Context, name, src string) (*cell.Body, cell.Diagnostics, error) {
	var (
		body  *cell.Body
		diags cell.Diagnostics
	)

	err := t.exec.do(ctx, func() {
		body, diags = cellparse.Parse(t.fset, name, src)
	})
	if err != nil {
		return nil, nil, err
	}

	return body, diags, nil
}

// Compile builds the scope-chain construct for a cell and submits it for
// naming, typing, and registration. On success the cell carries its typed
// artifact and its package is registered for descendant cells; on type
// failure the ordered diagnostic list is returned and the cell stays
// unusable for this attempt. Submitting the same cell twice is a lifecycle
// violation and fails loudly.
func (t *Toolchain) Compile(ctx context.Context, c *cell.Cell) (cell.Diagnostics, error) {
	var (
		diags cell.Diagnostics
		cerr  error
	)

	err := t.exec.do(ctx, func() {
		diags, cerr = t.compileLocked(c)
	})
	if err != nil {
		return nil, err
	}

	return diags, cerr
}

// compileLocked runs on the executor goroutine.
func (t *Toolchain) compileLocked(c *cell.Cell) (cell.Diagnostics, error) {
	err := c.BeginCompile()
	if err != nil {
		return nil, err
	}

	start := time.Now()

	construct, err := scopechain.Build(c, scopechain.Params{
		Namer:      t.namer,
		PathPrefix: CellPathPrefix,
		ParseType: func(name, expr string) (ast.Expr, error) {
			return cellparse.ParseTypeExpr(t.fset, name, expr)
		},
	})
	if err != nil {
		return nil, err
	}

	body := c.Body()
	collector := &errorCollector{cellName: c.Name(), body: body}

	conf := types.Config{
		Importer: &sessionImporter{registry: t.registry, resolver: t.resolver},
		Error:    collector.collect,

		// Notebook cells inherit import lists from their ancestors; an
		// inherited import the cell does not touch must not fail it.
		DisableUnusedImportCheck: true,
	}

	info := &types.Info{
		Defs: make(map[*ast.Ident]types.Object),
		Uses: make(map[*ast.Ident]types.Object),
	}

	pkg, _ := conf.Check(construct.PkgPath, t.fset, []*ast.File{construct.File}, info)

	if collector.diags.HasErrors() {
		t.logger.Debug("compile failed",
			"cell", c.Name(),
			"package", construct.PkgName,
			"errors", len(collector.diags),
			"elapsed", time.Since(start),
		)

		return collector.diags, nil
	}

	t.registry.Register(construct.PkgPath, pkg)
	c.SetArtifact(&cell.Artifact{Construct: construct, Pkg: pkg, Info: info})

	t.logger.Debug("compiled",
		"cell", c.Name(),
		"package", construct.PkgName,
		"elapsed", time.Since(start),
	)

	return collector.diags, nil
}

// errorCollector accumulates type-checker errors as positioned diagnostics
// in original-cell coordinates.
type errorCollector struct {
	cellName string
	body     *cell.Body
	diags    cell.Diagnostics
}

// collect receives one type-checker error.
func (ec *errorCollector) collect(err error) {
	terr, ok := err.(types.Error)
	if !ok {
		ec.diags = append(ec.diags, cell.Diagnostic{
			Cell:     ec.cellName,
			Offset:   -1,
			Severity: cell.SeverityError,
			Message:  err.Error(),
		})

		return
	}

	offset := ec.body.SourceOffset(terr.Pos)

	// Soft errors in synthesized scaffolding are artifacts of the wrapping,
	// not of the user's code.
	if terr.Soft && offset < 0 {
		return
	}

	line, col := ec.body.LineCol(offset)

	ec.diags = append(ec.diags, cell.Diagnostic{
		Cell:     ec.cellName,
		Offset:   offset,
		Line:     line,
		Column:   col,
		Severity: cell.SeverityError,
		Message:  terr.Msg,
	})
}
