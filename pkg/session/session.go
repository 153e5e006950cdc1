// Package session is the facade a notebook execution orchestrator drives:
// building cell units from source text, compiling them against the session
// toolchain, pruning their dependency surface, splitting their imports for
// inheritance, resolving implicit values, and extracting output types.
package session

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/ikpaetukgabriel/polynote/internal/observability"
	"github.com/ikpaetukgabriel/polynote/pkg/cell"
	"github.com/ikpaetukgabriel/polynote/pkg/implicits"
	"github.com/ikpaetukgabriel/polynote/pkg/importsplit"
	"github.com/ikpaetukgabriel/polynote/pkg/output"
	"github.com/ikpaetukgabriel/polynote/pkg/toolchain"
	"github.com/ikpaetukgabriel/polynote/pkg/usage"
)

// Session owns the long-lived, shared toolchain for one notebook session.
// Cells are cheap and short-lived; the session is memoized for the life of
// the notebook.
type Session struct {
	tc        *toolchain.Toolchain
	resolver  *implicits.Resolver
	logger    *slog.Logger
	metrics   *observability.CompileMetrics
	tracer    trace.Tracer
	cacheSize int

	pkgResolver toolchain.Resolver
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics attaches compile metrics.
func WithMetrics(m *observability.CompileMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTracer attaches a tracer for compile spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// WithPackageResolver overrides the library package resolver.
func WithPackageResolver(r toolchain.Resolver) Option {
	return func(s *Session) { s.pkgResolver = r }
}

// WithImplicitCacheSize bounds the implicit-resolution memo. Zero disables
// caching.
func WithImplicitCacheSize(n int) Option {
	return func(s *Session) { s.cacheSize = n }
}

// New creates a session. Close must be called when the notebook session
// ends.
func New(opts ...Option) *Session {
	s := &Session{
		logger:    slog.Default(),
		tracer:    nooptrace.NewTracerProvider().Tracer("polynote"),
		cacheSize: implicits.DefaultCacheSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	tcOpts := []toolchain.Option{toolchain.WithLogger(s.logger)}
	if s.pkgResolver != nil {
		tcOpts = append(tcOpts, toolchain.WithResolver(s.pkgResolver))
	}

	s.tc = toolchain.New(tcOpts...)
	s.resolver = implicits.New(s.tc, s.cacheSize, s.logger)

	if s.metrics != nil {
		s.resolver.OnProbe(func(kind string) {
			s.metrics.RecordImplicitProbe(context.Background(), kind)
		})
	}

	return s
}

// Close disposes the session toolchain.
func (s *Session) Close() {
	s.tc.Close()
}

// Toolchain exposes the session toolchain.
func (s *Session) Toolchain() *toolchain.Toolchain {
	return s.tc
}

// Build parses cell text and assembles a cell unit with its declared
// dependency surface. Parse diagnostics are positioned in the cell text.
func (s *Session) Build(
	ctx context.Context,
	name, text string,
	priors []*cell.Cell,
	inputs []cell.Input,
	inherited cell.Imports,
) (*cell.Cell, cell.Diagnostics, error) {
	body, diags, err := s.tc.Parse(ctx, name, text)
	if err != nil || diags.HasErrors() {
		return nil, diags, err
	}

	return cell.New(name, body, priors, inputs, inherited), diags, nil
}

// Compile submits a cell for compilation. On success the cell carries its
// typed artifact; on failure the diagnostic list is returned. A cell can be
// compiled exactly once.
func (s *Session) Compile(ctx context.Context, c *cell.Cell) (cell.Diagnostics, error) {
	ctx, span := s.tracer.Start(ctx, "session.compile",
		trace.WithAttributes(attribute.String("cell", c.Name())))
	defer span.End()

	start := time.Now()

	diags, err := s.tc.Compile(ctx, c)

	status := observability.StatusOK
	if err != nil || diags.HasErrors() {
		status = observability.StatusError
	}

	s.metrics.RecordCompile(ctx, status, time.Since(start))

	return diags, err
}

// Prune returns a replacement cell depending on exactly the prior cells and
// inputs the compiled cell's body references. The source cell is consumed
// and must not be used again.
func (s *Session) Prune(ctx context.Context, c *cell.Cell) (*cell.Cell, error) {
	declared := len(c.Priors()) + len(c.Inputs())

	pruned, err := usage.Prune(c)
	if err != nil {
		return nil, err
	}

	retained := len(pruned.Priors()) + len(pruned.Inputs())
	s.metrics.RecordPrune(ctx, declared, retained)

	s.logger.Debug("pruned cell",
		"cell", c.Name(),
		"declared", declared,
		"retained", retained,
	)

	return pruned, nil
}

// SplitImports classifies a compiled cell's imports into local and external
// for propagation to descendant cells.
func (s *Session) SplitImports(c *cell.Cell) (cell.Imports, error) {
	return importsplit.Split(c, s.tc.Registry())
}

// InheritableImports returns the imports a descendant of the compiled cell
// should inherit.
func (s *Session) InheritableImports(c *cell.Cell) (cell.Imports, error) {
	return importsplit.Inheritable(c, s.tc.Registry())
}

// ResolveImplicits resolves each requested type to a value available in the
// given chain scope, or nil. The result list matches the request in length
// and order.
func (s *Session) ResolveImplicits(ctx context.Context, scope implicits.Scope, typeExprs []string) ([]*implicits.Value, error) {
	return s.resolver.Resolve(ctx, scope, typeExprs)
}

// OutputTypes returns the compiled cell's public value declarations with
// their fully resolved types, for display.
func (s *Session) OutputTypes(c *cell.Cell) ([]output.NamedType, error) {
	return output.Extract(c)
}
