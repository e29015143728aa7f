// Package csvsheet maps entities to and from CSV through the excelmapper core.
// Layout operations such as widths, panes and filters have no CSV form and
// are accepted as no-ops.
package csvsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/locvowork/excelmapper/pkg/excelmapper"
)

var (
	_ excelmapper.Sheet = (*Sheet)(nil)
	_ excelmapper.Row   = (*Row)(nil)
	_ excelmapper.Cell  = (*Cell)(nil)
)

// Sheet is an in-memory CSV grid.
type Sheet struct {
	rows  map[int]*Row
	Comma rune
}

// New returns an empty sheet using a comma separator.
func New() *Sheet {
	return &Sheet{rows: make(map[int]*Row), Comma: ','}
}

// Load reads every record of r. Empty fields are left absent.
func Load(r io.Reader, comma rune) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	s := New()
	s.Comma = comma
	for index := 0; ; index++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record %d: %w", index, err)
		}
		row := &Row{index: index, cells: make(map[int]*Cell, len(record))}
		for col, field := range record {
			if field != "" {
				row.cells[col] = &Cell{column: col, value: field}
			}
		}
		if len(row.cells) > 0 {
			s.rows[index] = row
		}
	}
	return s, nil
}

// WriteTo writes the rows from the first to the last as CSV records padded
// to the widest row. Missing rows are written as records of empty fields so
// that row positions survive a reload.
func (s *Sheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	writer := csv.NewWriter(cw)
	writer.Comma = s.Comma

	width := 0
	for _, row := range s.rows {
		if n := row.LastCellIndex(); n > width {
			width = n
		}
	}
	blank := width
	if blank < 2 {
		// a single empty field is an empty line, which readers skip
		blank = 2
	}

	last := s.LastRowIndex()
	for index := 0; index <= last; index++ {
		row, ok := s.rows[index]
		if !ok || len(row.cells) == 0 {
			if err := writer.Write(make([]string, blank)); err != nil {
				return cw.n, fmt.Errorf("write csv record %d: %w", index, err)
			}
			continue
		}
		record := make([]string, width)
		for col, c := range row.cells {
			record[col] = c.text()
		}
		if err := writer.Write(record); err != nil {
			return cw.n, fmt.Errorf("write csv record %d: %w", index, err)
		}
	}
	writer.Flush()
	return cw.n, writer.Error()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (s *Sheet) indices() []int {
	idx := make([]int, 0, len(s.rows))
	for i := range s.rows {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

func (s *Sheet) FirstRowIndex() int {
	if idx := s.indices(); len(idx) > 0 {
		return idx[0]
	}
	return 0
}

func (s *Sheet) LastRowIndex() int {
	if idx := s.indices(); len(idx) > 0 {
		return idx[len(idx)-1]
	}
	return -1
}

func (s *Sheet) Row(index int) excelmapper.Row {
	if r, ok := s.rows[index]; ok {
		return r
	}
	return nil
}

func (s *Sheet) CreateRow(index int) excelmapper.Row {
	r := &Row{index: index, cells: make(map[int]*Cell)}
	s.rows[index] = r
	return r
}

func (s *Sheet) SetColumnWidth(column, width int) error                                { return nil }
func (s *Sheet) AutoSizeColumn(column int) error                                       { return nil }
func (s *Sheet) CreateFreezePane(colSplit, rowSplit, leftmostColumn, topRow int) error { return nil }
func (s *Sheet) SetAutoFilter(firstRow, lastRow, firstColumn, lastColumn int) error    { return nil }

// Row is a CSV record.
type Row struct {
	index int
	cells map[int]*Cell
}

func (r *Row) Index() int     { return r.index }
func (r *Row) CellCount() int { return len(r.cells) }

func (r *Row) LastCellIndex() int {
	last := 0
	for col := range r.cells {
		if col+1 > last {
			last = col + 1
		}
	}
	return last
}

func (r *Row) Cell(column int) excelmapper.Cell {
	if c, ok := r.cells[column]; ok {
		return c
	}
	return nil
}

func (r *Row) CreateCell(column int) excelmapper.Cell {
	c := &Cell{column: column}
	r.cells[column] = c
	return c
}

// Cell is a CSV field. Loaded cells hold strings; written cells keep the
// value until the sheet is written out.
type Cell struct {
	column int
	value  interface{}
}

func (c *Cell) ColumnIndex() int   { return c.column }
func (c *Cell) Value() interface{} { return c.value }

// SetValue stores value. Number formats do not apply to CSV.
func (c *Cell) SetValue(value interface{}, format string) error {
	c.value = value
	return nil
}

func (c *Cell) text() string {
	switch v := c.value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprint(c.value)
}
