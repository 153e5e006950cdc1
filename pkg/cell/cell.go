// Package cell defines the cell unit model: one user-submitted notebook cell,
// its parsed body, its declared dependency surface (prior cells, inputs,
// inherited imports), and its one-shot compilation lifecycle.
package cell

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for lifecycle violations. These indicate programmer errors
// in the orchestrator, not recoverable runtime conditions.
var (
	// ErrAlreadyCompiled is returned when a cell that already went through
	// compilation is submitted again. Compilation consumes toolchain-global
	// unit state; resubmitting the same unit would corrupt it.
	ErrAlreadyCompiled = errors.New("cell: already compiled")

	// ErrConsumed is returned when a cell superseded by pruning or code
	// transformation is used again. The replacement cell must be used instead.
	ErrConsumed = errors.New("cell: consumed by a derived cell")

	// ErrNotCompiled is returned when an operation requiring typed results
	// (pruning, import splitting, output extraction) is called on a cell that
	// has not been compiled.
	ErrNotCompiled = errors.New("cell: not compiled")
)

// State is the one-shot lifecycle tag of a Cell.
type State int

const (
	// StateParsed is the initial state: body parsed, not yet typed.
	StateParsed State = iota

	// StateCompiled means the cell went through the toolchain exactly once
	// and carries a typed artifact.
	StateCompiled

	// StateConsumed means a derived cell (pruned or transformed) superseded
	// this one. The cell must not be compiled or derived from again.
	StateConsumed
)

// String returns the lifecycle state name.
func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateCompiled:
		return "compiled"
	case StateConsumed:
		return "consumed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Input is one declared input value of a cell: a name, a type expression in
// cell scope, and whether the value is supplied implicitly.
type Input struct {
	Name     string
	Type     string
	Implicit bool
}

// Cell is one cell unit. It is immutable once constructed except for the
// one-shot Parsed -> Compiled transition performed by the compilation driver
// and the Compiled -> Consumed transition performed by derivation (pruning).
type Cell struct {
	name    string
	body    *Body
	priors  []*Cell
	inputs  []Input
	imports Imports

	mu       sync.Mutex
	state    State
	genName  string
	artifact *Artifact
}

// New builds a cell unit from a parsed body and its declared dependency
// surface. The prior list is the closure the author supplies; pruning may
// shrink it later but never grows it.
func New(name string, body *Body, priors []*Cell, inputs []Input, imports Imports) *Cell {
	return &Cell{
		name:    name,
		body:    body,
		priors:  append([]*Cell(nil), priors...),
		inputs:  append([]Input(nil), inputs...),
		imports: imports,
	}
}

// Name returns the cell's unique name.
func (c *Cell) Name() string { return c.name }

// Body returns the parsed body.
func (c *Cell) Body() *Body { return c.body }

// Priors returns the declared prior cells, in order.
func (c *Cell) Priors() []*Cell { return append([]*Cell(nil), c.priors...) }

// Inputs returns the declared inputs, in order.
func (c *Cell) Inputs() []Input { return append([]Input(nil), c.inputs...) }

// InheritedImports returns the imports inherited from ancestor cells.
func (c *Cell) InheritedImports() Imports { return c.imports }

// State returns the current lifecycle state.
func (c *Cell) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// GenName returns the cell's generated package name, assigning it from the
// namer on first use. The name is unique within the session namespace for the
// lifetime of the compilation session.
func (c *Cell) GenName(namer *Namer) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genName == "" {
		c.genName = namer.Next()
	}

	return c.genName
}

// AssignedGenName returns the generated name if one was assigned, or "".
func (c *Cell) AssignedGenName() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.genName
}

// BeginCompile transitions the cell into the compiled state. It is called by
// the compilation driver exactly once per cell; any second call reports the
// lifecycle violation loudly.
func (c *Cell) BeginCompile() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateCompiled:
		return fmt.Errorf("%w: %s", ErrAlreadyCompiled, c.name)
	case StateConsumed:
		return fmt.Errorf("%w: %s", ErrConsumed, c.name)
	case StateParsed:
		c.state = StateCompiled
		return nil
	default:
		return fmt.Errorf("cell %s: unknown state %v", c.name, c.state)
	}
}

// SetArtifact attaches the typed artifact produced by the compilation driver.
func (c *Cell) SetArtifact(a *Artifact) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.artifact = a
}

// Artifact returns the typed artifact, or an error if the cell was never
// compiled or was already consumed.
func (c *Cell) Artifact() (*Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == StateConsumed:
		return nil, fmt.Errorf("%w: %s", ErrConsumed, c.name)
	case c.artifact == nil:
		return nil, fmt.Errorf("%w: %s", ErrNotCompiled, c.name)
	default:
		return c.artifact, nil
	}
}

// Consume marks the cell superseded by a derived cell. This is a hard
// ownership transfer: the underlying compilation-unit state now belongs to
// the derived cell and this one must not be compiled or derived from again.
func (c *Cell) Consume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConsumed {
		return fmt.Errorf("%w: %s", ErrConsumed, c.name)
	}

	c.state = StateConsumed

	return nil
}

// Derive builds the replacement cell produced by pruning: same name, same
// body, narrowed dependency surface. The source cell is consumed.
func (c *Cell) Derive(priors []*Cell, inputs []Input) (*Cell, error) {
	err := c.Consume()
	if err != nil {
		return nil, err
	}

	return New(c.name, c.body, priors, inputs, c.imports), nil
}
