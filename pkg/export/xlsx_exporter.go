package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet = "Sheet1"
	// xlsxColumnWidth is the average column width in characters.
	xlsxColumnWidth = 14.0
)

// XLSXExporter writes a single-sheet workbook with a frozen, styled header row.
type XLSXExporter struct {
	Sheet string
}

// NewXLSXExporter constructs an XLSX exporter writing to the named sheet.
func NewXLSXExporter(sheet string) *XLSXExporter {
	return &XLSXExporter{Sheet: sheet}
}

// Render writes headers on row 1, one row per record, then the summary after
// a blank row. The title goes into the workbook properties.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("xlsx"); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := e.Sheet
	if sheet == "" {
		sheet = defaultSheet
	} else if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	}
	if data.Title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: data.Title}); err != nil {
			return nil, fmt.Errorf("set title: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E6E6E6"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	tint, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FDECC8"}},
	})
	if err != nil {
		return nil, fmt.Errorf("shade style: %w", err)
	}

	last, err := excelize.ColumnNumberToName(len(data.Headers))
	if err != nil {
		return nil, fmt.Errorf("last column: %w", err)
	}
	header := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for r, row := range data.Rows {
		line := r + 2
		values := make([]interface{}, len(data.Headers))
		for i, h := range data.Headers {
			values[i] = row[h]
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", line), &values); err != nil {
			return nil, fmt.Errorf("write xlsx row: %w", err)
		}
		if data.shaded(row) {
			if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", line), fmt.Sprintf("%s%d", last, line), tint); err != nil {
				return nil, fmt.Errorf("shade row: %w", err)
			}
		}
	}

	line := len(data.Rows) + 3
	for _, s := range data.Summary {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", line), &[]interface{}{s.Label, s.Value}); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", line), fmt.Sprintf("A%d", line), bold); err != nil {
			return nil, fmt.Errorf("style summary: %w", err)
		}
		line++
	}

	for i, w := range data.widths(xlsxColumnWidth * float64(len(data.Headers))) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
