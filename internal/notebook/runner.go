package notebook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ikpaetukgabriel/polynote/internal/toposort"
	"github.com/ikpaetukgabriel/polynote/pkg/cell"
	"github.com/ikpaetukgabriel/polynote/pkg/output"
	"github.com/ikpaetukgabriel/polynote/pkg/session"
)

// CellResult is the outcome of running one document cell.
type CellResult struct {
	Name        string
	Diagnostics cell.Diagnostics
	Outputs     []output.NamedType
	Pruned      int
	Elapsed     time.Duration
}

// Failed reports whether the cell produced errors.
func (r CellResult) Failed() bool {
	return r.Diagnostics.HasErrors()
}

// Runner compiles whole documents against a session.
type Runner struct {
	sess   *session.Session
	logger *slog.Logger
	prune  bool
}

// NewRunner creates a runner. When prune is set, each compiled cell's
// dependency surface is narrowed to what its body uses before descendants
// chain onto it.
func NewRunner(sess *session.Session, logger *slog.Logger, prune bool) *Runner {
	return &Runner{sess: sess, logger: logger, prune: prune}
}

// Run compiles every cell of the document in dependency order. Each cell
// sees all cells ordered before it as priors. Compilation stops at the
// first cell with errors; results for the cells already run are returned
// alongside the error.
func (r *Runner) Run(ctx context.Context, doc *Document) ([]CellResult, error) {
	order, err := r.order(doc)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]CellDef, len(doc.Cells))
	for _, def := range doc.Cells {
		byName[def.Name] = def
	}

	var (
		results []CellResult
		chain   []*cell.Cell
		imports cell.Imports
	)

	for _, name := range order {
		def := byName[name]

		res, compiled, err := r.runCell(ctx, def, chain, imports)
		if err != nil {
			return results, err
		}

		results = append(results, res)
		if res.Failed() {
			return results, fmt.Errorf("cell %s failed to compile", name)
		}

		chain = append(chain, compiled)

		imports, err = r.sess.InheritableImports(compiled)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

func (r *Runner) runCell(
	ctx context.Context,
	def CellDef,
	priors []*cell.Cell,
	inherited cell.Imports,
) (CellResult, *cell.Cell, error) {
	start := time.Now()
	res := CellResult{Name: def.Name}

	inputs := make([]cell.Input, 0, len(def.Inputs))
	for _, in := range def.Inputs {
		inputs = append(inputs, cell.Input{Name: in.Name, Type: in.Type, Implicit: in.Implicit})
	}

	c, diags, err := r.sess.Build(ctx, def.Name, def.Source, priors, inputs, inherited)
	if err != nil {
		return res, nil, fmt.Errorf("building cell %s: %w", def.Name, err)
	}

	res.Diagnostics = diags
	if diags.HasErrors() {
		res.Elapsed = time.Since(start)
		return res, nil, nil
	}

	diags, err = r.sess.Compile(ctx, c)
	res.Diagnostics = append(res.Diagnostics, diags...)

	if err != nil {
		return res, nil, fmt.Errorf("compiling cell %s: %w", def.Name, err)
	}

	if res.Failed() {
		res.Elapsed = time.Since(start)
		return res, nil, nil
	}

	if r.prune {
		c, err = r.pruneCell(ctx, def.Name, c, &res)
		if err != nil {
			return res, nil, err
		}
	}

	res.Elapsed = time.Since(start)

	res.Outputs, err = r.sess.OutputTypes(c)
	if err != nil {
		return res, nil, fmt.Errorf("extracting outputs of cell %s: %w", def.Name, err)
	}

	r.logger.Debug("ran cell",
		"cell", def.Name,
		"outputs", len(res.Outputs),
		"elapsed", res.Elapsed,
	)

	return res, c, nil
}

// pruneCell narrows a compiled cell to its used dependency surface and
// recompiles the narrowed form, so descendants chain onto it. Pruning
// consumes the original cell, so the narrowed cell replaces it even when
// nothing was dropped.
func (r *Runner) pruneCell(ctx context.Context, name string, c *cell.Cell, res *CellResult) (*cell.Cell, error) {
	declared := len(c.Priors()) + len(c.Inputs())

	pruned, err := r.sess.Prune(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("pruning cell %s: %w", name, err)
	}

	res.Pruned = declared - len(pruned.Priors()) - len(pruned.Inputs())

	diags, err := r.sess.Compile(ctx, pruned)
	if err != nil {
		return nil, fmt.Errorf("recompiling pruned cell %s: %w", name, err)
	}

	res.Diagnostics = append(res.Diagnostics, diags...)

	return pruned, nil
}

// order resolves the document's run order. Explicit after edges take
// precedence; a cell without them chains onto its predecessor in the
// document.
func (r *Runner) order(doc *Document) ([]string, error) {
	g := toposort.NewGraph()

	for _, def := range doc.Cells {
		g.AddNode(def.Name)
	}

	for i, def := range doc.Cells {
		if len(def.After) == 0 {
			if i > 0 {
				g.AddEdge(doc.Cells[i-1].Name, def.Name)
			}

			continue
		}

		for _, dep := range def.After {
			g.AddEdge(dep, def.Name)
		}
	}

	order, err := g.Sort()
	if err != nil {
		return nil, fmt.Errorf("ordering notebook %s: %w", doc.Name, err)
	}

	return order, nil
}
