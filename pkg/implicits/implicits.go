// Package implicits resolves requested types to values available in a cell
// chain's scope. Each request compiles a throwaway probe cell so the type
// expressions resolve exactly as they would inside a real cell, then searches
// the chain's exported bindings, newest cell first, for a value assignable to
// each resolved type.
//
// Requests are batched: one probe cell covers every requested type, and only
// if that batch fails does resolution fall back to one probe cell per type.
// The common case where every type resolves costs one compilation instead of
// one per type.
package implicits

import (
	"context"
	"fmt"
	"go/types"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/ikpaetukgabriel/polynote/internal/cache"
	"github.com/ikpaetukgabriel/polynote/pkg/cell"
	"github.com/ikpaetukgabriel/polynote/pkg/scopechain"
	"github.com/ikpaetukgabriel/polynote/pkg/toolchain"
)

// DefaultCacheSize is the default capacity of the per-resolver memo.
const DefaultCacheSize = 256

// Value is one resolved instance: the prior cell that owns it, the binding
// name, and the rendered type.
type Value struct {
	Cell string
	Name string
	Type string
}

// Scope is the requesting context: the compiled prior-cell chain and the
// imports its type expressions may reference.
type Scope struct {
	Priors  []*cell.Cell
	Imports cell.Imports
}

// fingerprint identifies the scope for memoization. Generated package names
// are session-unique, so any change to the chain, including implicits
// introduced by a newly compiled cell, produces a different fingerprint and
// misses the memo.
func (s Scope) fingerprint() string {
	parts := make([]string, 0, len(s.Priors)+s.Imports.Total())

	for _, prior := range s.Priors {
		parts = append(parts, prior.AssignedGenName())
	}

	for _, imp := range s.Imports.External {
		parts = append(parts, imp.Path)
	}

	for _, imp := range s.Imports.Local {
		parts = append(parts, imp.Path)
	}

	return strings.Join(parts, ",")
}

// Probe kinds reported to the probe hook.
const (
	ProbeBatch  = "batch"
	ProbeSingle = "single"
)

// Resolver resolves implicit values against a session toolchain.
type Resolver struct {
	tc        *toolchain.Toolchain
	memo      *cache.LRU[*Value]
	logger    *slog.Logger
	seq       atomic.Uint64
	probeHook func(kind string)
}

// OnProbe registers a hook invoked once per probe compilation, for
// telemetry. Must be set before the first Resolve call.
func (r *Resolver) OnProbe(fn func(kind string)) {
	r.probeHook = fn
}

// New creates a resolver. cacheSize bounds the memo; zero disables it.
func New(tc *toolchain.Toolchain, cacheSize int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		tc:     tc,
		memo:   cache.NewLRU[*Value](cacheSize),
		logger: logger,
	}
}

// Resolve returns, for each requested type expression, the best available
// instance or nil. The result always has the same length and order as the
// request; an unresolvable type yields nil, never an error. The returned
// error covers infrastructure failure only (context cancellation, closed
// toolchain).
func (r *Resolver) Resolve(ctx context.Context, scope Scope, typeExprs []string) ([]*Value, error) {
	results := make([]*Value, len(typeExprs))
	pending := make([]int, 0, len(typeExprs))
	fp := scope.fingerprint()

	for i, expr := range typeExprs {
		v, ok := r.memo.Get(fp + "|" + expr)
		if ok {
			results[i] = v
			continue
		}

		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return results, nil
	}

	batch := make([]string, len(pending))
	for n, i := range pending {
		batch[n] = typeExprs[i]
	}

	resolved, err := r.resolveBatch(ctx, scope, batch, ProbeBatch)
	if err != nil {
		// Any batch failure degrades to per-type probes so one bad type
		// cannot take down the rest of the request.
		resolved = make([]*Value, len(batch))

		for n, expr := range batch {
			single, serr := r.resolveBatch(ctx, scope, []string{expr}, ProbeSingle)
			if serr != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}

				resolved[n] = nil

				continue
			}

			resolved[n] = single[0]
		}
	}

	for n, i := range pending {
		results[i] = resolved[n]
		r.memo.Put(fp+"|"+typeExprs[i], resolved[n])
	}

	return results, nil
}

// resolveBatch compiles one probe cell covering the given type expressions
// and maps each to an instance or nil. kind names the tier that issued the
// probe. An error means the probe itself failed, typically because at least
// one type has no valid resolution.
func (r *Resolver) resolveBatch(ctx context.Context, scope Scope, typeExprs []string, kind string) ([]*Value, error) {
	seq := r.seq.Add(1)

	if r.probeHook != nil {
		r.probeHook(kind)
	}

	probeNames := make([]string, len(typeExprs))

	var src strings.Builder

	for i, expr := range typeExprs {
		// Fresh, collision-free names: the sequence number is unique per
		// resolver and the prefix stays out of notebook namespace.
		probeNames[i] = fmt.Sprintf("implProbe%d_%d", seq, i)
		fmt.Fprintf(&src, "var %s %s\n", probeNames[i], expr)
	}

	probeCell, diags, err := r.buildProbe(ctx, fmt.Sprintf("<implicits %d>", seq), src.String(), scope)
	if err != nil {
		return nil, err
	}

	if diags.HasErrors() {
		return nil, diags
	}

	cdiags, err := r.tc.Compile(ctx, probeCell)
	if err != nil {
		return nil, err
	}

	if cdiags.HasErrors() {
		return nil, cdiags
	}

	art, err := probeCell.Artifact()
	if err != nil {
		return nil, err
	}

	values := make([]*Value, len(typeExprs))

	err = r.tc.Do(ctx, func() {
		for i, probe := range probeNames {
			values[i] = r.instanceFor(art, probe, scope)
		}
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

// buildProbe parses the probe source and assembles the throwaway cell.
func (r *Resolver) buildProbe(ctx context.Context, name, src string, scope Scope) (*cell.Cell, cell.Diagnostics, error) {
	body, diags, err := r.tc.Parse(ctx, name, src)
	if err != nil || diags.HasErrors() {
		return nil, diags, err
	}

	return cell.New(name, body, scope.Priors, nil, scope.Imports), diags, nil
}

// instanceFor finds the newest chain binding assignable to the probe
// variable's resolved type, or nil. A missing probe object is absorbed as
// nil rather than propagated; it only affects presentation.
func (r *Resolver) instanceFor(art *cell.Artifact, probeName string, scope Scope) *Value {
	probeObj := art.Lookup(probeName)
	if probeObj == nil || probeObj.Type() == nil {
		return nil
	}

	target := probeObj.Type()

	for i := len(scope.Priors) - 1; i >= 0; i-- {
		prior := scope.Priors[i]

		priorArt, err := prior.Artifact()
		if err != nil {
			continue
		}

		for _, bind := range prior.Body().Bindings {
			if bind.Kind == cell.BindType {
				continue
			}

			obj := priorArt.Lookup(scopechain.ExportPrefix + bind.Name)
			if obj == nil || obj.Type() == nil {
				continue
			}

			if types.AssignableTo(obj.Type(), target) {
				return &Value{
					Cell: prior.Name(),
					Name: bind.Name,
					Type: types.TypeString(obj.Type(), nil),
				}
			}
		}
	}

	return nil
}
