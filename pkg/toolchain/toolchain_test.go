package toolchain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikpaetukgabriel/polynote/pkg/cell"
	"github.com/ikpaetukgabriel/polynote/pkg/toolchain"
)

func newToolchain(t *testing.T) *toolchain.Toolchain {
	t.Helper()

	tc := toolchain.New(toolchain.WithResolver(toolchain.NewRestrictedResolver()))
	t.Cleanup(tc.Close)

	return tc
}

func buildCell(t *testing.T, tc *toolchain.Toolchain, name, src string, priors []*cell.Cell, inputs []cell.Input) *cell.Cell {
	t.Helper()

	body, diags, err := tc.Parse(context.Background(), name, src)
	require.NoError(t, err)
	require.Empty(t, diags)

	return cell.New(name, body, priors, inputs, cell.Imports{})
}

func compileOK(t *testing.T, tc *toolchain.Toolchain, c *cell.Cell) {
	t.Helper()

	diags, err := tc.Compile(context.Background(), c)
	require.NoError(t, err)
	require.Empty(t, diags)
}

func TestCompileSingleCell(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	c := buildCell(t, tc, "a", "var x = 5\n", nil, nil)
	compileOK(t, tc, c)

	art, err := c.Artifact()
	require.NoError(t, err)
	require.NotNil(t, art.Pkg)

	assert.NotNil(t, tc.Registry().Lookup(art.Construct.PkgPath))
	assert.NotNil(t, art.Lookup("Out_x"))
}

func TestCompileChain(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	a := buildCell(t, tc, "a", "var x = 5\n", nil, nil)
	compileOK(t, tc, a)

	b := buildCell(t, tc, "b", "var y = x * 2\n", []*cell.Cell{a}, nil)
	compileOK(t, tc, b)

	art, err := b.Artifact()
	require.NoError(t, err)

	obj := art.Lookup("Out_y")
	require.NotNil(t, obj)
	assert.Equal(t, "int", obj.Type().String())
}

func TestCompileRedefinition(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	a := buildCell(t, tc, "a", "var x = 5\n", nil, nil)
	compileOK(t, tc, a)

	b := buildCell(t, tc, "b", "var x = \"now a string\"\n", []*cell.Cell{a}, nil)
	compileOK(t, tc, b)

	// c sees b's x, not a's.
	c := buildCell(t, tc, "c", "var length = len(x)\n", []*cell.Cell{a, b}, nil)
	compileOK(t, tc, c)
}

func TestCompileWithInput(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	c := buildCell(t, tc, "a", "var doubled = depth * 2\n", nil,
		[]cell.Input{{Name: "depth", Type: "int"}})
	compileOK(t, tc, c)
}

func TestCompileTypeErrorPositions(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	c := buildCell(t, tc, "bad", "var x = 5\nvar y = undefinedName\n", nil, nil)

	diags, err := tc.Compile(context.Background(), c)
	require.NoError(t, err)
	require.NotEmpty(t, diags)
	assert.True(t, diags.HasErrors())

	d := diags[0]
	assert.Equal(t, "bad", d.Cell)
	assert.Equal(t, 2, d.Line)
	assert.GreaterOrEqual(t, d.Offset, len("var x = 5\n"))

	// A failed compile leaves the cell without an artifact.
	_, err = c.Artifact()
	assert.ErrorIs(t, err, cell.ErrNotCompiled)
}

func TestCompileTwiceFails(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	c := buildCell(t, tc, "a", "var x = 5\n", nil, nil)
	compileOK(t, tc, c)

	_, err := tc.Compile(context.Background(), c)
	require.ErrorIs(t, err, cell.ErrAlreadyCompiled)
}

func TestCompileLibraryImportsRestricted(t *testing.T) {
	t.Parallel()

	tc := newToolchain(t)

	c := buildCell(t, tc, "a", "import \"strings\"\n\nvar x = strings.ToUpper(\"hi\")\n", nil, nil)

	diags, err := tc.Compile(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, diags.HasErrors())
}

func TestCompileAfterClose(t *testing.T) {
	t.Parallel()

	tc := toolchain.New(toolchain.WithResolver(toolchain.NewRestrictedResolver()))

	c := buildCell(t, tc, "a", "var x = 5\n", nil, nil)

	tc.Close()

	_, err := tc.Compile(context.Background(), c)
	require.ErrorIs(t, err, toolchain.ErrClosed)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := toolchain.NewRegistry()

	assert.True(t, reg.IsCellPath("notebook/nbc1"))
	assert.False(t, reg.IsCellPath("strings"))
	assert.Nil(t, reg.Lookup("notebook/nbc1"))
}
