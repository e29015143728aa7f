// Package xlsx adapts excelize worksheets to the excelmapper grid interfaces.
package xlsx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"

	"github.com/locvowork/excelmapper/pkg/excelmapper"
)

const (
	widthUnit       = 256
	autoSizePadding = 2

	// maxColumnWidth is the largest column width Excel accepts, in characters.
	maxColumnWidth = 255
)

var (
	_ excelmapper.Sheet = (*Sheet)(nil)
	_ excelmapper.Row   = (*Row)(nil)
	_ excelmapper.Cell  = (*Cell)(nil)
)

// Sheet is one worksheet of an excelize workbook. Existing cells are loaded
// once by Open as raw values; writes go to the workbook and to the loaded view.
type Sheet struct {
	file       *excelize.File
	name       string
	rows       map[int]*Row
	styleCache map[string]int
}

// Open loads the worksheet called name from file.
func Open(file *excelize.File, name string) (*Sheet, error) {
	grid, err := file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	s := &Sheet{
		file:       file,
		name:       name,
		rows:       make(map[int]*Row, len(grid)),
		styleCache: make(map[string]int),
	}
	for i, values := range grid {
		r := &Row{sheet: s, index: i, cells: make(map[int]*Cell, len(values))}
		for j, v := range values {
			if v != "" {
				r.cells[j] = &Cell{row: r, column: j, value: v}
			}
		}
		if len(r.cells) > 0 {
			s.rows[i] = r
		}
	}
	return s, nil
}

// Name returns the worksheet name.
func (s *Sheet) Name() string { return s.name }

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

// CreateRow clears any cells already stored at index and returns the empty row.
func (s *Sheet) CreateRow(index int) excelmapper.Row {
	if old, ok := s.rows[index]; ok {
		for col := range old.cells {
			if ref, err := cellName(col, index); err == nil {
				_ = s.file.SetCellDefault(s.name, ref, "")
			}
		}
	}
	r := &Row{sheet: s, index: index, cells: make(map[int]*Cell)}
	s.rows[index] = r
	return r
}

// SetColumnWidth sets the width of column in 1/256 of a character.
func (s *Sheet) SetColumnWidth(column, w int) error {
	col, err := excelize.ColumnNumberToName(column + 1)
	if err != nil {
		return err
	}
	return s.file.SetColWidth(s.name, col, col, float64(w)/widthUnit)
}

// AutoSizeColumn fits column to its widest displayed value. East Asian wide
// characters count as two.
func (s *Sheet) AutoSizeColumn(column int) error {
	widest := 0
	for _, r := range s.rows {
		if _, ok := r.cells[column]; !ok {
			continue
		}
		ref, err := cellName(column, r.index)
		if err != nil {
			return err
		}
		text, err := s.file.GetCellValue(s.name, ref)
		if err != nil {
			return err
		}
		for _, line := range strings.Split(text, "\n") {
			if n := displayWidth(line); n > widest {
				widest = n
			}
		}
	}
	if widest == 0 {
		return nil
	}

	chars := widest + autoSizePadding
	if chars > maxColumnWidth {
		chars = maxColumnWidth
	}
	return s.SetColumnWidth(column, chars*widthUnit)
}

func displayWidth(text string) int {
	n := 0
	for _, r := range text {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// CreateFreezePane freezes colSplit columns and rowSplit rows, scrolling the
// lower right pane to leftmostColumn and topRow. Zero splits unfreeze the sheet.
func (s *Sheet) CreateFreezePane(colSplit, rowSplit, leftmostColumn, topRow int) error {
	if colSplit <= 0 && rowSplit <= 0 {
		return s.file.SetPanes(s.name, &excelize.Panes{Freeze: false})
	}

	topLeft, err := cellName(leftmostColumn, topRow)
	if err != nil {
		return err
	}
	pane := "bottomRight"
	switch {
	case colSplit <= 0:
		pane = "bottomLeft"
	case rowSplit <= 0:
		pane = "topRight"
	}
	return s.file.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		XSplit:      colSplit,
		YSplit:      rowSplit,
		TopLeftCell: topLeft,
		ActivePane:  pane,
		Selection: []excelize.Selection{
			{SQRef: topLeft, ActiveCell: topLeft, Pane: pane},
		},
	})
}

// SetAutoFilter applies an auto-filter over the inclusive range.
func (s *Sheet) SetAutoFilter(firstRow, lastRow, firstColumn, lastColumn int) error {
	from, err := cellName(firstColumn, firstRow)
	if err != nil {
		return err
	}
	to, err := cellName(lastColumn, lastRow)
	if err != nil {
		return err
	}
	return s.file.AutoFilter(s.name, from+":"+to, nil)
}

// numFmtStyle returns the style id carrying the number format code.
func (s *Sheet) numFmtStyle(format string) (int, error) {
	if id, ok := s.styleCache[format]; ok {
		return id, nil
	}
	code := format
	id, err := s.file.NewStyle(&excelize.Style{CustomNumFmt: &code})
	if err != nil {
		return 0, fmt.Errorf("create number format %q: %w", format, err)
	}
	s.styleCache[format] = id
	return id, nil
}

// Row is a row of a Sheet.
type Row struct {
	sheet *Sheet
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
	c := &Cell{row: r, column: column}
	r.cells[column] = c
	return c
}

// Cell is a cell of a Sheet. Loaded cells hold the raw string value.
type Cell struct {
	row    *Row
	column int
	value  interface{}
}

func (c *Cell) ColumnIndex() int   { return c.column }
func (c *Cell) Value() interface{} { return c.value }

// SetValue writes value to the workbook and applies format as a custom number
// format when it is not empty.
func (c *Cell) SetValue(value interface{}, format string) error {
	s := c.row.sheet
	ref, err := cellName(c.column, c.row.index)
	if err != nil {
		return err
	}

	if value == nil {
		err = s.file.SetCellDefault(s.name, ref, "")
	} else {
		err = s.file.SetCellValue(s.name, ref, value)
	}
	if err != nil {
		return err
	}

	if format != "" {
		id, err := s.numFmtStyle(format)
		if err != nil {
			return err
		}
		if err := s.file.SetCellStyle(s.name, ref, ref, id); err != nil {
			return err
		}
	}
	c.value = value
	return nil
}

// cellName converts 0-based coordinates to an A1 reference.
func cellName(column, row int) (string, error) {
	return excelize.CoordinatesToCellName(column+1, row+1)
}
