package parser

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/johnharveymath/oxcovid19db/internal/table"
)

type xlsxFormat struct{}

func (xlsxFormat) Name() string         { return "xlsx" }
func (xlsxFormat) Extensions() []string { return []string{".xlsx"} }

// Read loads one worksheet; the first row is the header. Cells are read as
// their formatted text and typed like CSV cells.
func (xlsxFormat) Read(r io.Reader, _ string, opt Options) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return table.New(), nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.New(), nil
	}
	t, err := newTable(rows[0])
	if err != nil {
		return nil, err
	}
	for _, rec := range rows[1:] {
		if opt.MaxRows > 0 && t.Len() >= opt.MaxRows {
			break
		}
		if err := appendText(t, rec, opt); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (xlsxFormat) Write(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	header := make([]any, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		row := make([]any, 0, len(header))
		for _, v := range t.Row(i) {
			row = append(row, cellValue(v))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// cellValue keeps numbers numeric in the workbook; dates are written as text
// so they read back unchanged.
func cellValue(v table.Value) any {
	if f, ok := v.Num(); ok {
		return f
	}
	if v.IsNull() {
		return nil
	}
	return v.String()
}
