package dataset

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// ReadXLSX reads one worksheet into a dataframe of string series. The first
// row is the header, everything below is data. An empty sheetName selects
// the first sheet in the workbook.
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("open xlsx file: %w", err)
	}

	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("workbook %s has no sheets", filePath)
	}

	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("workbook %s has no sheet %q", filePath, sheetName)
		}
		sheet = s
	}

	return sheetToDataFrame(sheet), nil
}

// sheetToDataFrame converts an xlsx sheet to string series, one per header
// cell. Short rows are padded with empty cells so every column has the same
// length.
func sheetToDataFrame(sheet *xlsx.Sheet) dataframe.DataFrame {
	if len(sheet.Rows) < 1 {
		return dataframe.New()
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}
	if len(headers) == 0 {
		return dataframe.New()
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			if i < len(row.Cells) {
				columns[i] = append(columns[i], row.Cells[i].Value)
			} else {
				columns[i] = append(columns[i], "")
			}
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	return dataframe.New(seriesList...)
}
