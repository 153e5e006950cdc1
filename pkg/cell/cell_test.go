package cell_test

import (
	"errors"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikpaetukgabriel/polynote/pkg/cell"
)

func parsedBody(t *testing.T, src string) *cell.Body {
	t.Helper()

	fset := token.NewFileSet()
	file := fset.AddFile("test", -1, len("package cellsrc\n")+len(src))

	return &cell.Body{
		Source:    src,
		File:      file,
		HeaderLen: len("package cellsrc\n"),
	}
}

func TestCellLifecycle(t *testing.T) {
	t.Parallel()

	c := cell.New("a", parsedBody(t, "var x = 5"), nil, nil, cell.Imports{})
	assert.Equal(t, cell.StateParsed, c.State())

	require.NoError(t, c.BeginCompile())
	assert.Equal(t, cell.StateCompiled, c.State())

	err := c.BeginCompile()
	require.ErrorIs(t, err, cell.ErrAlreadyCompiled)
}

func TestCellArtifactBeforeCompile(t *testing.T) {
	t.Parallel()

	c := cell.New("a", parsedBody(t, "var x = 5"), nil, nil, cell.Imports{})

	_, err := c.Artifact()
	require.ErrorIs(t, err, cell.ErrNotCompiled)
}

func TestCellDeriveConsumesSource(t *testing.T) {
	t.Parallel()

	prior := cell.New("p", parsedBody(t, "var y = 1"), nil, nil, cell.Imports{})
	c := cell.New("a", parsedBody(t, "var x = y"),
		[]*cell.Cell{prior},
		[]cell.Input{{Name: "depth", Type: "int"}},
		cell.Imports{},
	)

	require.NoError(t, c.BeginCompile())

	derived, err := c.Derive(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, cell.StateConsumed, c.State())
	assert.Equal(t, cell.StateParsed, derived.State())
	assert.Equal(t, "a", derived.Name())
	assert.Same(t, c.Body(), derived.Body())
	assert.Empty(t, derived.Priors())
	assert.Empty(t, derived.Inputs())

	_, err = c.Artifact()
	assert.ErrorIs(t, err, cell.ErrConsumed)

	err = c.BeginCompile()
	assert.ErrorIs(t, err, cell.ErrConsumed)
}

func TestCellDeriveTwiceFails(t *testing.T) {
	t.Parallel()

	c := cell.New("a", parsedBody(t, "var x = 5"), nil, nil, cell.Imports{})
	require.NoError(t, c.BeginCompile())

	_, err := c.Derive(nil, nil)
	require.NoError(t, err)

	_, err = c.Derive(nil, nil)
	assert.ErrorIs(t, err, cell.ErrConsumed)
}

func TestCellGenNameStable(t *testing.T) {
	t.Parallel()

	namer := cell.NewNamer()

	c := cell.New("a", parsedBody(t, "var x = 5"), nil, nil, cell.Imports{})
	assert.Empty(t, c.AssignedGenName())

	name := c.GenName(namer)
	assert.NotEmpty(t, name)
	assert.Equal(t, name, c.GenName(namer))
	assert.Equal(t, name, c.AssignedGenName())
}

func TestNamerUnique(t *testing.T) {
	t.Parallel()

	namer := cell.NewNamer()

	seen := make(map[string]bool)
	for range 100 {
		name := namer.Next()
		assert.False(t, seen[name])
		seen[name] = true
	}

	assert.NotEqual(t, namer.Fresh("probe"), namer.Fresh("probe"))
}

func TestCellAccessorsCopy(t *testing.T) {
	t.Parallel()

	prior := cell.New("p", parsedBody(t, "var y = 1"), nil, nil, cell.Imports{})
	c := cell.New("a", parsedBody(t, "var x = y"),
		[]*cell.Cell{prior},
		[]cell.Input{{Name: "n", Type: "int"}},
		cell.Imports{},
	)

	priors := c.Priors()
	priors[0] = nil
	require.NotNil(t, c.Priors()[0])

	inputs := c.Inputs()
	inputs[0].Name = "mutated"
	assert.Equal(t, "n", c.Inputs()[0].Name)
}

func TestImportsConcat(t *testing.T) {
	t.Parallel()

	left := cell.Imports{
		Local:    []cell.ImportSpec{{Path: "notebook/nbc1"}},
		External: []cell.ImportSpec{{Path: "strings"}},
	}
	right := cell.Imports{
		External: []cell.ImportSpec{{Alias: "fmt2", Path: "fmt"}},
	}

	merged := left.Concat(right)

	assert.Equal(t, 3, merged.Total())
	require.Len(t, merged.External, 2)
	assert.Equal(t, "strings", merged.External[0].Path)
	assert.Equal(t, "fmt", merged.External[1].Path)

	// Concat does not mutate its receiver.
	assert.Equal(t, 2, left.Total())
}

func TestDiagnosticsHasErrors(t *testing.T) {
	t.Parallel()

	diags := cell.Diagnostics{
		{Cell: "a", Severity: cell.SeverityWarning, Message: "w"},
	}
	assert.False(t, diags.HasErrors())

	diags = append(diags, cell.Diagnostic{Cell: "a", Severity: cell.SeverityError, Message: "boom"})
	assert.True(t, diags.HasErrors())

	var err error = diags
	assert.NotEmpty(t, err.Error())
	assert.False(t, errors.Is(err, cell.ErrNotCompiled))
}

func TestBodySourceOffsets(t *testing.T) {
	t.Parallel()

	src := "var x = 5\nvar y = 6"
	body := parsedBody(t, src)

	base := token.Pos(body.File.Base())
	header := token.Pos(body.HeaderLen)

	assert.False(t, body.InUserRegion(token.NoPos))
	assert.False(t, body.InUserRegion(base))
	assert.True(t, body.InUserRegion(base+header))
	assert.True(t, body.InUserRegion(base+header+token.Pos(len(src))))

	assert.Equal(t, -1, body.SourceOffset(base))
	assert.Equal(t, 0, body.SourceOffset(base+header))
	assert.Equal(t, 10, body.SourceOffset(base+header+10))

	line, col := body.LineCol(0)
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)

	line, col = body.LineCol(10)
	assert.Equal(t, 2, line)
	assert.Equal(t, 1, col)
}
