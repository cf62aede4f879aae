package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// BuildWorkbook renders a single-sheet workbook with a styled, frozen header
// row and an auto-filter over the data range.
func BuildWorkbook(sheetName string, headers []string, rows [][]interface{}) (*bytes.Buffer, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(sheetName, cell, header); err != nil {
			return nil, err
		}
		if err := file.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := file.SetCellValue(sheetName, cell, value); err != nil {
				return nil, err
			}
		}
	}

	lastCol, err := excelize.CoordinatesToCellName(len(headers), len(rows)+1)
	if err != nil {
		return nil, err
	}
	if err := file.AutoFilter(sheetName, "A1:"+lastCol, nil); err != nil {
		return nil, fmt.Errorf("failed to set auto-filter: %w", err)
	}
	if err := file.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf, nil
}
