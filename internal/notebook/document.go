// Package notebook defines the on-disk notebook document format and a
// runner that compiles a document against a session in dependency order.
package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Document errors.
var (
	// ErrUnknownFormat indicates the document extension is not recognized.
	ErrUnknownFormat = errors.New("unknown notebook format")

	// ErrInvalidDocument indicates the document failed schema validation.
	ErrInvalidDocument = errors.New("invalid notebook document")

	// ErrDuplicateCell indicates two document cells share a name.
	ErrDuplicateCell = errors.New("duplicate cell name")

	// ErrUnknownDependency indicates a cell names a nonexistent dependency.
	ErrUnknownDependency = errors.New("unknown cell dependency")
)

// InputDef declares a value the orchestrator injects into a cell before it
// runs.
type InputDef struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Implicit bool   `json:"implicit,omitempty" yaml:"implicit,omitempty"`
}

// CellDef is one cell of a notebook document. After lists the names of
// cells this cell must run after; when empty the cell runs after the cell
// that precedes it in the document.
type CellDef struct {
	Name   string     `json:"name" yaml:"name"`
	Source string     `json:"source" yaml:"source"`
	After  []string   `json:"after,omitempty" yaml:"after,omitempty"`
	Inputs []InputDef `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// Document is a notebook document.
type Document struct {
	Name  string    `json:"name" yaml:"name"`
	Cells []CellDef `json:"cells" yaml:"cells"`
}

// Parse decodes and validates a notebook document. The format is chosen by
// the file extension: .json, .yaml or .yml.
func Parse(path string, data []byte) (*Document, error) {
	var raw any

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing notebook %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing notebook %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}

	if err := doc.check(); err != nil {
		return nil, err
	}

	return doc, nil
}

func validate(raw any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("validating notebook: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}

// decode round-trips the already-validated value through JSON. YAML and
// JSON inputs land on the same struct tags this way.
func decode(raw any) (*Document, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding notebook: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("decoding notebook: %w", err)
	}

	return &doc, nil
}

// check verifies the cross-cell constraints the schema cannot express.
func (d *Document) check() error {
	seen := make(map[string]bool, len(d.Cells))

	for _, c := range d.Cells {
		if seen[c.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateCell, c.Name)
		}

		seen[c.Name] = true
	}

	for _, c := range d.Cells {
		for _, dep := range c.After {
			if !seen[dep] {
				return fmt.Errorf("%w: cell %s depends on %s", ErrUnknownDependency, c.Name, dep)
			}
		}
	}

	return nil
}
