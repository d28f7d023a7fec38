package dataset

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes a dataframe to an xlsx workbook, header row first. Used
// for the daily report export and by tests to build fixtures.
func WriteXLSX(df dataframe.DataFrame, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Sheet1"

	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, name)
	}

	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		for colIdx, colName := range colNames {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, df.Col(colName).Val(rowIdx))
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("save workbook %s: %w", filePath, err)
	}
	return nil
}
