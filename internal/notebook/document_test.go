package notebook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikpaetukgabriel/polynote/internal/notebook"
)

func TestParseJSONDocument(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"name": "demo",
		"cells": [
			{"name": "a", "source": "var x = 5"},
			{
				"name": "b",
				"source": "var y = x + depth",
				"after": ["a"],
				"inputs": [{"name": "depth", "type": "int"}]
			}
		]
	}`)

	doc, err := notebook.Parse("demo.json", data)
	require.NoError(t, err)

	assert.Equal(t, "demo", doc.Name)
	require.Len(t, doc.Cells, 2)
	assert.Equal(t, []string{"a"}, doc.Cells[1].After)

	require.Len(t, doc.Cells[1].Inputs, 1)
	assert.Equal(t, notebook.InputDef{Name: "depth", Type: "int"}, doc.Cells[1].Inputs[0])
}

func TestParseYAMLDocument(t *testing.T) {
	t.Parallel()

	data := []byte(`name: demo
cells:
  - name: a
    source: |
      var x = 5
  - name: b
    source: |
      var y = x * 2
    after: [a]
`)

	doc, err := notebook.Parse("demo.yaml", data)
	require.NoError(t, err)

	require.Len(t, doc.Cells, 2)
	assert.Equal(t, "var x = 5\n", doc.Cells[0].Source)
}

func TestParseUnknownExtension(t *testing.T) {
	t.Parallel()

	_, err := notebook.Parse("demo.toml", []byte("name = \"demo\""))
	require.ErrorIs(t, err, notebook.ErrUnknownFormat)
}

func TestParseSchemaViolations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data string
	}{
		{"missing name", `{"cells": []}`},
		{"missing source", `{"name": "d", "cells": [{"name": "a"}]}`},
		{"unknown field", `{"name": "d", "cells": [], "extra": 1}`},
		{"input without type", `{"name": "d", "cells": [{"name": "a", "source": "", "inputs": [{"name": "x"}]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := notebook.Parse("bad.json", []byte(tc.data))
			require.ErrorIs(t, err, notebook.ErrInvalidDocument)
		})
	}
}

func TestParseDuplicateCellName(t *testing.T) {
	t.Parallel()

	data := []byte(`{"name": "d", "cells": [
		{"name": "a", "source": ""},
		{"name": "a", "source": ""}
	]}`)

	_, err := notebook.Parse("dup.json", data)
	require.ErrorIs(t, err, notebook.ErrDuplicateCell)
}

func TestParseUnknownDependency(t *testing.T) {
	t.Parallel()

	data := []byte(`{"name": "d", "cells": [
		{"name": "a", "source": "", "after": ["ghost"]}
	]}`)

	_, err := notebook.Parse("dep.json", data)
	require.ErrorIs(t, err, notebook.ErrUnknownDependency)
}

func TestParseMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := notebook.Parse("bad.json", []byte("{"))
	require.Error(t, err)
}
