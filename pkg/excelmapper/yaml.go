package excelmapper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// MappingTemplate is the YAML form of an ExcelConfiguration override.
//
//	sheets:
//	  - index: 0
//	    name: "Employees"
//	    header_row_index: 0
//	    start_row_index: 1
//	    auto_column_width: true
//	freeze_panes:
//	  - row_split: 1
//	    top_row: 1
//	filter:
//	  first_column: 0
//	columns:
//	  - field: "Name"
//	    title: "Full Name"
//	    width: 25
type MappingTemplate struct {
	Sheets      []SheetTemplate  `yaml:"sheets"`
	FreezePanes []FreezeTemplate `yaml:"freeze_panes"`
	Filter      *FilterTemplate  `yaml:"filter"`
	Columns     []ColumnTemplate `yaml:"columns"`
}

type SheetTemplate struct {
	Index           int     `yaml:"index"`
	Name            *string `yaml:"name"`
	HeaderRowIndex  *int    `yaml:"header_row_index"`
	StartRowIndex   *int    `yaml:"start_row_index"`
	AutoColumnWidth *bool   `yaml:"auto_column_width"`
}

type FreezeTemplate struct {
	ColSplit       int `yaml:"col_split"`
	RowSplit       int `yaml:"row_split"`
	LeftMostColumn int `yaml:"leftmost_column"`
	TopRow         int `yaml:"top_row"`
}

type FilterTemplate struct {
	FirstColumn int  `yaml:"first_column"`
	LastColumn  *int `yaml:"last_column"`
}

// ColumnTemplate overrides the column settings of one field; unset keys keep
// the values from the struct tags.
type ColumnTemplate struct {
	Field     string  `yaml:"field"`
	Title     *string `yaml:"title"`
	Index     *int    `yaml:"index"`
	Width     *int    `yaml:"width"`
	Formatter *string `yaml:"format"`
	Ignored   *bool   `yaml:"ignored"`
}

// ApplyYAML decodes a MappingTemplate and applies it on top of c.
func (c *ExcelConfiguration[T]) ApplyYAML(data []byte) error {
	var tmpl MappingTemplate
	if err := yaml.UnmarshalStrict(data, &tmpl); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return c.applyTemplate(&tmpl)
}

// ApplyYAMLFile reads path and applies it with ApplyYAML.
func (c *ExcelConfiguration[T]) ApplyYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read mapping file: %w", err)
	}
	return c.ApplyYAML(data)
}

func (c *ExcelConfiguration[T]) applyTemplate(tmpl *MappingTemplate) error {
	// validate every field first so a bad template leaves c untouched
	type column struct {
		index   int
		ignored bool
	}
	planned := make(map[*PropertyConfiguration]column)
	for _, col := range tmpl.Columns {
		p, err := c.Property(col.Field)
		if err != nil {
			return err
		}
		next, ok := planned[p]
		if !ok {
			next = column{index: p.ColumnIndex, ignored: p.IsIgnored}
		}
		if col.Index != nil {
			next.index = *col.Index
		}
		if col.Ignored != nil {
			next.ignored = *col.Ignored
		}
		planned[p] = next
	}
	index := make(map[*PropertyConfiguration]int, len(planned))
	for p, col := range planned {
		if col.ignored {
			col.index = -1
		}
		index[p] = col.index
	}
	if err := checkColumns(c.properties, index); err != nil {
		return err
	}

	for _, col := range tmpl.Columns {
		p := c.byName[col.Field]
		if col.Title != nil {
			p.ColumnTitle = *col.Title
		}
		if col.Index != nil {
			p.ColumnIndex = *col.Index
		}
		if col.Width != nil {
			p.ColumnWidth = *col.Width
		}
		if col.Formatter != nil {
			p.ColumnFormatter = *col.Formatter
		}
		if col.Ignored != nil {
			p.IsIgnored = *col.Ignored
		}
	}

	for _, st := range tmpl.Sheets {
		st := st
		c.HasSheetSetting(st.Index, func(s *SheetSetting) {
			if st.Name != nil {
				s.SheetName = *st.Name
			}
			if st.HeaderRowIndex != nil {
				s.HeaderRowIndex = *st.HeaderRowIndex
			}
			if st.StartRowIndex != nil {
				s.StartRowIndex = *st.StartRowIndex
			}
			if st.AutoColumnWidth != nil {
				s.AutoColumnWidthEnabled = *st.AutoColumnWidth
			}
		})
	}

	for _, f := range tmpl.FreezePanes {
		c.HasFreezePane(f.ColSplit, f.RowSplit, f.LeftMostColumn, f.TopRow)
	}

	if tmpl.Filter != nil {
		c.FilterSetting = &FilterSetting{
			FirstColumn: tmpl.Filter.FirstColumn,
			LastColumn:  tmpl.Filter.LastColumn,
		}
	}
	return nil
}
