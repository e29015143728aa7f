package excelmapper

// Sheet is the grid capability the mapper reads from and writes to.
// All row and column indices are 0-based.
type Sheet interface {
	// FirstRowIndex returns the index of the first physical row.
	FirstRowIndex() int
	// LastRowIndex returns the index of the last physical row, or -1 when the sheet is empty.
	LastRowIndex() int
	// Row returns the row at index, or nil when no such row exists.
	Row(index int) Row
	// CreateRow returns a writable row at index, replacing any existing content.
	CreateRow(index int) Row

	// SetColumnWidth sets the width of a column in 1/256 of a character.
	SetColumnWidth(column, width int) error
	AutoSizeColumn(column int) error
	CreateFreezePane(colSplit, rowSplit, leftmostColumn, topRow int) error
	SetAutoFilter(firstRow, lastRow, firstColumn, lastColumn int) error
}

// Row is a single physical row of a Sheet.
type Row interface {
	Index() int
	// CellCount returns the number of populated cells.
	CellCount() int
	// LastCellIndex returns one past the index of the last populated cell.
	LastCellIndex() int
	// Cell returns the cell at column, or nil when the cell is absent.
	Cell(column int) Cell
	CreateCell(column int) Cell
}

// Cell is a single grid cell.
type Cell interface {
	ColumnIndex() int
	// Value returns the raw stored value (string, float64, bool, time.Time...).
	Value() interface{}
	// SetValue stores value, applying format (an Excel number-format code) when non-empty.
	SetValue(value interface{}, format string) error
}
