package excelmapper

import (
	"fmt"
	"strings"
)

// columnBinding pairs a property with the column it maps to for one operation.
type columnBinding struct {
	property    *PropertyConfiguration
	columnIndex int
}

// columnMap is the effective property-to-column mapping of a single read or write.
type columnMap []columnBinding

// declaredColumns returns the configured columns of every non-ignored property.
func declaredColumns(props []*PropertyConfiguration) columnMap {
	m := make(columnMap, 0, len(props))
	for _, p := range props {
		if p.IsIgnored {
			continue
		}
		m = append(m, columnBinding{property: p, columnIndex: p.ColumnIndex})
	}
	return m
}

// resolveColumns matches the header row against the declared column titles.
// When no title matches, the declared indices are kept as they are.
func resolveColumns(header Row, declared columnMap) columnMap {
	resolved := make(columnMap, len(declared))
	for i, b := range declared {
		resolved[i] = columnBinding{property: b.property, columnIndex: -1}
	}

	if header != nil {
		for col := 0; col < header.LastCellIndex(); col++ {
			cell := header.Cell(col)
			if cell == nil || cell.Value() == nil {
				continue
			}
			title := strings.TrimSpace(fmt.Sprint(cell.Value()))
			if b := resolved.byTitle(title); b != nil {
				b.columnIndex = col
			}
		}
	}

	for _, b := range resolved {
		if b.columnIndex >= 0 {
			return resolved
		}
	}
	return declared
}

func (m columnMap) byTitle(title string) *columnBinding {
	for i := range m {
		if m[i].property.ColumnTitle == title {
			return &m[i]
		}
	}
	return nil
}

// byName looks a column up by property name, then by column title.
func (m columnMap) byName(name string) *columnBinding {
	for i := range m {
		if m[i].property.name == name {
			return &m[i]
		}
	}
	return m.byTitle(name)
}

func (m columnMap) maxColumnIndex() int {
	last := -1
	for _, b := range m {
		if b.columnIndex > last {
			last = b.columnIndex
		}
	}
	return last
}
