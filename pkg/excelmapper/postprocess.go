package excelmapper

import "fmt"

// columnWidthUnit is the grid's width unit per character.
const columnWidthUnit = 256

// postProcessSheet sizes the mapped columns, applies the freeze panes and the
// auto-filter once rowsCount rows have been written.
func postProcessSheet(sheet Sheet, setting *SheetSetting, rowsCount int, freezes []FreezeSetting, filter *FilterSetting, columns columnMap) error {
	if rowsCount <= 0 {
		return nil
	}

	for _, b := range columns {
		switch {
		case b.property.ColumnWidth > 0:
			if err := sheet.SetColumnWidth(b.columnIndex, b.property.ColumnWidth*columnWidthUnit); err != nil {
				return fmt.Errorf("set width of column %d: %w", b.columnIndex, err)
			}
		case setting.AutoColumnWidthEnabled:
			if err := sheet.AutoSizeColumn(b.columnIndex); err != nil {
				return fmt.Errorf("auto-size column %d: %w", b.columnIndex, err)
			}
		}
	}

	for _, f := range freezes {
		if err := sheet.CreateFreezePane(f.ColSplit, f.RowSplit, f.LeftMostColumn, f.TopRow); err != nil {
			return fmt.Errorf("create freeze pane: %w", err)
		}
	}

	if filter != nil {
		headerIndex := setting.HeaderRowIndex
		if headerIndex < 0 {
			headerIndex = 0
		}
		lastColumn := columns.maxColumnIndex()
		if filter.LastColumn != nil {
			lastColumn = *filter.LastColumn
		}
		if err := sheet.SetAutoFilter(headerIndex, headerIndex+rowsCount, filter.FirstColumn, lastColumn); err != nil {
			return fmt.Errorf("set auto filter: %w", err)
		}
	}
	return nil
}
