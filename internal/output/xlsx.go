package output

import (
	"github.com/xuri/excelize/v2"

	"github.com/shii9/SurfaceNio/internal/model"
)

// SheetName is the worksheet that holds the records.
const SheetName = "hosts"

type XLSXWriter struct{}

func (XLSXWriter) Write(path string, records []model.HostRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	if err := setRow(f, 1, Columns); err != nil {
		return err
	}
	for i, rec := range records {
		if err := setRow(f, i+2, Flatten(rec)); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return f.SetSheetRow(SheetName, cell, &vals)
}
