package render

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

// SheetName is the worksheet written by ExportXLSX.
const SheetName = "Diary"

// ExportXLSX writes rec as a two-column workbook: one row per field, with
// list items on separate lines of the value cell. Unlike Render it does not
// require a final record.
func ExportXLSX(rec *diary.Record) ([]byte, error) {
	if rec == nil {
		return nil, &RenderError{Err: fmt.Errorf("no record")}
	}
	f := excelize.NewFile()
	defer f.Close()

	if index, _ := f.GetSheetIndex(SheetName); index == -1 {
		if _, err := f.NewSheet(SheetName); err != nil {
			return nil, &RenderError{Err: err}
		}
	}
	activeIndex, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(activeIndex)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, &RenderError{Err: err}
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(SheetName, cell, v)
	}

	write(1, 1, "Field")
	write(2, 1, "Value")
	for i, spec := range diary.Schema() {
		row := i + 2
		v, _ := rec.Get(spec.Name)
		write(1, row, spec.Label)
		if spec.Kind == diary.KindList {
			write(2, row, strings.Join(v.List, "\n"))
		} else {
			write(2, row, v.Text)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 18)
	_ = f.SetColWidth(SheetName, "B", "B", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &RenderError{Err: fmt.Errorf("xlsx write: %w", err)}
	}
	return buf.Bytes(), nil
}
