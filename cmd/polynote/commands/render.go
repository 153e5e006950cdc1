package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ikpaetukgabriel/polynote/internal/notebook"
	"github.com/ikpaetukgabriel/polynote/pkg/cell"
)

// render prints per-cell results: diagnostics first, then a table of the
// cell's named outputs with their resolved types.
func render(writer io.Writer, doc *notebook.Document, results []notebook.CellResult, noColor bool) {
	header := color.New(color.Bold)
	errColor := color.New(color.FgRed)
	warnColor := color.New(color.FgYellow)
	okColor := color.New(color.FgGreen)

	if noColor {
		for _, c := range []*color.Color{header, errColor, warnColor, okColor} {
			c.DisableColor()
		}
	}

	var (
		failed  int
		pruned  int
		elapsed time.Duration
	)

	for _, res := range results {
		elapsed += res.Elapsed
		pruned += res.Pruned

		header.Fprintf(writer, "cell %s", res.Name)
		fmt.Fprintf(writer, "  (%s)\n", formatDuration(res.Elapsed))

		renderDiagnostics(writer, res.Diagnostics, errColor, warnColor)

		if res.Failed() {
			failed++

			continue
		}

		renderOutputs(writer, res)
	}

	fmt.Fprintln(writer)

	summary := fmt.Sprintf("%s of %d cells compiled in %s",
		humanize.Comma(int64(len(results)-failed)), len(doc.Cells), formatDuration(elapsed))

	if failed > 0 {
		errColor.Fprintf(writer, "%s, %d failed\n", summary, failed)
	} else {
		okColor.Fprintln(writer, summary)
	}

	if pruned > 0 {
		fmt.Fprintf(writer, "%d unused dependencies pruned\n", pruned)
	}
}

func renderDiagnostics(writer io.Writer, diags cell.Diagnostics, errColor, warnColor *color.Color) {
	for _, d := range diags {
		switch d.Severity {
		case cell.SeverityError:
			errColor.Fprintf(writer, "  %s\n", d.String())
		case cell.SeverityWarning:
			warnColor.Fprintf(writer, "  %s\n", d.String())
		}
	}
}

func renderOutputs(writer io.Writer, res notebook.CellResult) {
	if len(res.Outputs) == 0 {
		fmt.Fprintln(writer, "  no named outputs")

		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(writer)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Name", "Kind", "Type"})

	for _, out := range res.Outputs {
		tbl.AppendRow(table.Row{out.Name, out.Kind, out.Type})
	}

	tbl.Render()
}

// jsonCell is the machine-readable shape of one cell result.
type jsonCell struct {
	Name        string       `json:"name"`
	Failed      bool         `json:"failed"`
	ElapsedMS   float64      `json:"elapsed_ms"`
	Pruned      int          `json:"pruned,omitempty"`
	Diagnostics []jsonDiag   `json:"diagnostics,omitempty"`
	Outputs     []jsonOutput `json:"outputs,omitempty"`
}

type jsonDiag struct {
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
}

type jsonOutput struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Type string `json:"type"`
}

// renderJSON prints the results as one JSON document.
func renderJSON(writer io.Writer, doc *notebook.Document, results []notebook.CellResult) error {
	cells := make([]jsonCell, 0, len(results))

	for _, res := range results {
		jc := jsonCell{
			Name:      res.Name,
			Failed:    res.Failed(),
			ElapsedMS: float64(res.Elapsed.Microseconds()) / 1000,
			Pruned:    res.Pruned,
		}

		for _, d := range res.Diagnostics {
			jc.Diagnostics = append(jc.Diagnostics, jsonDiag{
				Severity: d.Severity.String(),
				Line:     d.Line,
				Column:   d.Column,
				Message:  d.Message,
			})
		}

		for _, out := range res.Outputs {
			jc.Outputs = append(jc.Outputs, jsonOutput{
				Name: out.Name,
				Kind: out.Kind.String(),
				Type: out.Type,
			})
		}

		cells = append(cells, jc)
	}

	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")

	return enc.Encode(struct {
		Notebook string     `json:"notebook"`
		Cells    []jsonCell `json:"cells"`
	}{Notebook: doc.Name, Cells: cells})
}

// formatDuration renders an elapsed time at a human scale.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	return humanize.SI(d.Seconds(), "s")
}
