package excelmapper

import "sort"

// memSheet is an in-memory Sheet that records post-processing calls.
type memSheet struct {
	rows    map[int]*memRow
	widths  map[int]int
	autos   []int
	freezes [][4]int
	filter  *[4]int
}

func newMemSheet() *memSheet {
	return &memSheet{rows: map[int]*memRow{}, widths: map[int]int{}}
}

// sheetOf builds a sheet from literal rows; a nil row is left absent.
func sheetOf(rows ...[]interface{}) *memSheet {
	s := newMemSheet()
	for i, values := range rows {
		if values == nil {
			continue
		}
		r := s.CreateRow(i)
		for j, v := range values {
			if v != nil {
				_ = r.CreateCell(j).SetValue(v, "")
			}
		}
	}
	return s
}

func (s *memSheet) indices() []int {
	idx := make([]int, 0, len(s.rows))
	for i := range s.rows {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

func (s *memSheet) FirstRowIndex() int {
	if idx := s.indices(); len(idx) > 0 {
		return idx[0]
	}
	return 0
}

func (s *memSheet) LastRowIndex() int {
	if idx := s.indices(); len(idx) > 0 {
		return idx[len(idx)-1]
	}
	return -1
}

func (s *memSheet) Row(index int) Row {
	if r, ok := s.rows[index]; ok {
		return r
	}
	return nil
}

func (s *memSheet) CreateRow(index int) Row {
	r := &memRow{index: index, cells: map[int]*memCell{}}
	s.rows[index] = r
	return r
}

func (s *memSheet) SetColumnWidth(column, width int) error {
	s.widths[column] = width
	return nil
}

func (s *memSheet) AutoSizeColumn(column int) error {
	s.autos = append(s.autos, column)
	return nil
}

func (s *memSheet) CreateFreezePane(colSplit, rowSplit, leftmostColumn, topRow int) error {
	s.freezes = append(s.freezes, [4]int{colSplit, rowSplit, leftmostColumn, topRow})
	return nil
}

func (s *memSheet) SetAutoFilter(firstRow, lastRow, firstColumn, lastColumn int) error {
	s.filter = &[4]int{firstRow, lastRow, firstColumn, lastColumn}
	return nil
}

// values returns the stored values of row index up to its last cell.
func (s *memSheet) values(index int) []interface{} {
	r, ok := s.rows[index]
	if !ok {
		return nil
	}
	out := make([]interface{}, r.LastCellIndex())
	for i := range out {
		if c, ok := r.cells[i]; ok {
			out[i] = c.value
		}
	}
	return out
}

type memRow struct {
	index int
	cells map[int]*memCell
}

func (r *memRow) Index() int     { return r.index }
func (r *memRow) CellCount() int { return len(r.cells) }

func (r *memRow) LastCellIndex() int {
	last := 0
	for i := range r.cells {
		if i+1 > last {
			last = i + 1
		}
	}
	return last
}

func (r *memRow) Cell(column int) Cell {
	if c, ok := r.cells[column]; ok {
		return c
	}
	return nil
}

func (r *memRow) CreateCell(column int) Cell {
	c := &memCell{column: column}
	r.cells[column] = c
	return c
}

type memCell struct {
	column int
	value  interface{}
	format string
}

func (c *memCell) ColumnIndex() int   { return c.column }
func (c *memCell) Value() interface{} { return c.value }

func (c *memCell) SetValue(value interface{}, format string) error {
	c.value = value
	c.format = format
	return nil
}
