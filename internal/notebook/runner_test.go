package notebook_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikpaetukgabriel/polynote/internal/notebook"
	"github.com/ikpaetukgabriel/polynote/pkg/session"
	"github.com/ikpaetukgabriel/polynote/pkg/toolchain"
)

func newRunner(t *testing.T, prune bool) *notebook.Runner {
	t.Helper()

	sess := session.New(
		session.WithPackageResolver(toolchain.NewRestrictedResolver()),
	)
	t.Cleanup(sess.Close)

	return notebook.NewRunner(sess, slog.Default(), prune)
}

func TestRunnerDocumentOrderChain(t *testing.T) {
	t.Parallel()

	doc := &notebook.Document{
		Name: "demo",
		Cells: []notebook.CellDef{
			{Name: "a", Source: "var x = 5\n"},
			{Name: "b", Source: "var y = x * 2\n"},
			{Name: "c", Source: "var z = y + x\n"},
		},
	}

	results, err := newRunner(t, false).Run(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, res := range results {
		assert.False(t, res.Failed())
	}

	require.Len(t, results[2].Outputs, 1)
	assert.Equal(t, "z", results[2].Outputs[0].Name)
	assert.Equal(t, "int", results[2].Outputs[0].Type)
}

func TestRunnerExplicitAfterEdges(t *testing.T) {
	t.Parallel()

	// z and a both depend only on b; explicit after edges free them from
	// document order, and ready cells run lexicographically.
	doc := &notebook.Document{
		Name: "demo",
		Cells: []notebook.CellDef{
			{Name: "b", Source: "var x = 5\n"},
			{Name: "z", Source: "var y = x + 1\n", After: []string{"b"}},
			{Name: "a", Source: "var w = x * 2\n", After: []string{"b"}},
		},
	}

	results, err := newRunner(t, false).Run(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "b", results[0].Name)
	assert.Equal(t, "a", results[1].Name)
	assert.Equal(t, "z", results[2].Name)
}

func TestRunnerPruneCountsDropped(t *testing.T) {
	t.Parallel()

	doc := &notebook.Document{
		Name: "demo",
		Cells: []notebook.CellDef{
			{Name: "a", Source: "var x = 5\n"},
			{Name: "b", Source: "var y = 7\n"},
			{Name: "c", Source: "var z = y + 1\n"},
		},
	}

	results, err := newRunner(t, true).Run(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// c declared priors a and b but uses only b.
	assert.Equal(t, 1, results[2].Pruned)
	assert.False(t, results[2].Failed())
}

func TestRunnerInputs(t *testing.T) {
	t.Parallel()

	doc := &notebook.Document{
		Name: "demo",
		Cells: []notebook.CellDef{
			{
				Name:   "a",
				Source: "var doubled = depth * 2\n",
				Inputs: []notebook.InputDef{{Name: "depth", Type: "int"}},
			},
		},
	}

	results, err := newRunner(t, false).Run(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Failed())
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	doc := &notebook.Document{
		Name: "demo",
		Cells: []notebook.CellDef{
			{Name: "a", Source: "var x = 5\n"},
			{Name: "bad", Source: "var y = undefinedName\n"},
			{Name: "never", Source: "var z = 1\n"},
		},
	}

	results, err := newRunner(t, false).Run(context.Background(), doc)
	require.Error(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.NotEmpty(t, results[1].Diagnostics)
}

func TestRunnerCycleRejected(t *testing.T) {
	t.Parallel()

	doc := &notebook.Document{
		Name: "demo",
		Cells: []notebook.CellDef{
			{Name: "a", Source: "var x = 1\n", After: []string{"b"}},
			{Name: "b", Source: "var y = 2\n", After: []string{"a"}},
		},
	}

	_, err := newRunner(t, false).Run(context.Background(), doc)
	require.Error(t, err)
}
