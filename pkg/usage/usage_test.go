package usage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikpaetukgabriel/polynote/pkg/cell"
	"github.com/ikpaetukgabriel/polynote/pkg/toolchain"
	"github.com/ikpaetukgabriel/polynote/pkg/usage"
)

func newToolchain(t *testing.T) *toolchain.Toolchain {
	t.Helper()

	tc := toolchain.New(toolchain.WithResolver(toolchain.NewRestrictedResolver()))
	t.Cleanup(tc.Close)

	return tc
}

func compileCell(t *testing.T, tc *toolchain.Toolchain, name, src string, priors []*cell.Cell, inputs []cell.Input) *cell.Cell {
	t.Helper()

	body, diags, err := tc.Parse(context.Background(), name, src)
	require.NoError(t, err)
	require.Empty(t, diags)

	c := cell.New(name, body, priors, inputs, cell.Imports{})

	diags, err = tc.Compile(context.Background(), c)
	require.NoError(t, err)
	require.Empty(t, diags)

	return c
}

func TestAnalyzeUsedPrior(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	a := compileCell(t, tc, "a", "var x = 5\n", nil, nil)
	b := compileCell(t, tc, "b", "var y = x + 1\n", []*cell.Cell{a}, nil)

	res, err := usage.Analyze(b)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"a": true}, res.Priors)
	assert.Empty(t, res.Inputs)
}

func TestAnalyzeUnusedPrior(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	a := compileCell(t, tc, "a", "var x = 5\n", nil, nil)
	b := compileCell(t, tc, "b", "var y = 1\n", []*cell.Cell{a}, nil)

	res, err := usage.Analyze(b)
	require.NoError(t, err)

	// The alias declarations synthesized for a's bindings reference a, but
	// only uses inside b's own text count.
	assert.Empty(t, res.Priors)
}

func TestAnalyzeInputs(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	c := compileCell(t, tc, "a", "var y = used * 2\n", nil,
		[]cell.Input{
			{Name: "used", Type: "int"},
			{Name: "unused", Type: "string"},
		})

	res, err := usage.Analyze(c)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"used": true}, res.Inputs)
}

func TestAnalyzeTransitiveType(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	a := compileCell(t, tc, "a", "type counter struct{ n int }\n\nfunc (c counter) Get() int { return c.n }\n", nil, nil)
	b := compileCell(t, tc, "b", "var c0 counter\n", []*cell.Cell{a}, nil)

	// c touches a only through a method on a value b exposed.
	c := compileCell(t, tc, "c", "var n = c0.Get()\n", []*cell.Cell{a, b}, nil)

	res, err := usage.Analyze(c)
	require.NoError(t, err)

	assert.True(t, res.Priors["b"])
	assert.True(t, res.Priors["a"])
}

func TestAnalyzeNotCompiled(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	body, diags, err := tc.Parse(context.Background(), "a", "var x = 5\n")
	require.NoError(t, err)
	require.Empty(t, diags)

	c := cell.New("a", body, nil, nil, cell.Imports{})

	_, err = usage.Analyze(c)
	require.ErrorIs(t, err, cell.ErrNotCompiled)
}

func TestPruneDropsUnused(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	a := compileCell(t, tc, "a", "var x = 5\n", nil, nil)
	b := compileCell(t, tc, "b", "var y = 7\n", nil, nil)

	c := compileCell(t, tc, "c", "var z = y + pad\n", []*cell.Cell{a, b},
		[]cell.Input{
			{Name: "pad", Type: "int"},
			{Name: "gap", Type: "int"},
		})

	pruned, err := usage.Prune(c)
	require.NoError(t, err)

	require.Len(t, pruned.Priors(), 1)
	assert.Equal(t, "b", pruned.Priors()[0].Name())

	require.Len(t, pruned.Inputs(), 1)
	assert.Equal(t, "pad", pruned.Inputs()[0].Name)

	// The source cell is consumed by the ownership transfer.
	assert.Equal(t, cell.StateConsumed, c.State())

	// The pruned replacement compiles clean.
	diags, err := tc.Compile(context.Background(), pruned)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestPruneIdempotentOnRetainedSet(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	a := compileCell(t, tc, "a", "var x = 5\n", nil, nil)
	b := compileCell(t, tc, "b", "var y = 7\n", nil, nil)

	c := compileCell(t, tc, "c", "var z = y + pad\n", []*cell.Cell{a, b},
		[]cell.Input{
			{Name: "pad", Type: "int"},
			{Name: "gap", Type: "int"},
		})

	once, err := usage.Prune(c)
	require.NoError(t, err)

	diags, err := tc.Compile(context.Background(), once)
	require.NoError(t, err)
	require.Empty(t, diags)

	// A second pruning pass over the already-narrowed cell retains
	// exactly the same dependency surface.
	twice, err := usage.Prune(once)
	require.NoError(t, err)

	require.Len(t, twice.Priors(), 1)
	assert.Equal(t, "b", twice.Priors()[0].Name())

	require.Len(t, twice.Inputs(), 1)
	assert.Equal(t, "pad", twice.Inputs()[0].Name)

	diags, err = tc.Compile(context.Background(), twice)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestPrunePreservesOrder(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	a := compileCell(t, tc, "a", "var x = 5\n", nil, nil)
	b := compileCell(t, tc, "b", "var y = 7\n", nil, nil)
	c := compileCell(t, tc, "c", "var z = 9\n", nil, nil)

	d := compileCell(t, tc, "d", "var total = x + y + z\n", []*cell.Cell{a, b, c}, nil)

	pruned, err := usage.Prune(d)
	require.NoError(t, err)

	names := make([]string, 0, 3)
	for _, prior := range pruned.Priors() {
		names = append(names, prior.Name())
	}

	assert.Equal(t, []string{"a", "b", "c"}, names)
}
