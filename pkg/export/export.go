// Package export renders tabular datasets as CSV, PDF or XLSX files.
package export

import "fmt"

// Dataset is a titled table with optional summary lines.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	// Summary is printed below the table by the PDF and XLSX renderers. CSV
	// output stays a plain table.
	Summary []SummaryLine
	// Weights sizes columns relative to each other. Missing headers weigh 1.
	Weights map[string]float64
	// Shade reports rows drawn on a tinted background.
	Shade func(row map[string]string) bool
}

// SummaryLine is one label/value pair of a dataset summary.
type SummaryLine struct {
	Label string
	Value string
}

// Renderer turns a dataset into a file body.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	return nil
}

func (d Dataset) shaded(row map[string]string) bool {
	return d.Shade != nil && d.Shade(row)
}

// widths splits total across the columns according to their weights.
func (d Dataset) widths(total float64) []float64 {
	weights := make([]float64, len(d.Headers))
	sum := 0.0
	for i, header := range d.Headers {
		w, ok := d.Weights[header]
		if !ok || w <= 0 {
			w = 1
		}
		weights[i] = w
		sum += w
	}
	for i := range weights {
		weights[i] = total * weights[i] / sum
	}
	return weights
}
