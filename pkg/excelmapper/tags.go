package excelmapper

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const tagName = "excel"

// collectProperties reads the exported fields of t, promoted fields of embedded
// structs included, and applies their `excel` tags:
//
//	Name string `excel:"Full Name,index=2,width=30"`
//	Born time.Time `excel:"Birthday,width=12,format=yyyy-mm-dd"`
//	Paid float64 `excel:"Paid,format=#,##0.00"`
//	Note string `excel:"-"`
//
// The first tag part is the column title (defaults to the field name). Columns
// without an explicit index are numbered in declaration order, skipping the
// indices claimed explicitly. Two columns on one index are rejected.
func collectProperties(t reflect.Type) ([]*PropertyConfiguration, error) {
	var props []*PropertyConfiguration
	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous || !f.IsExported() || throughPointer(t, f.Index) {
			continue
		}

		p := &PropertyConfiguration{
			ColumnIndex: -1,
			ColumnTitle: f.Name,
			name:        f.Name,
			entityType:  t,
			acc:         accessor{index: f.Index, typ: f.Type},
		}
		if err := applyTag(p, f.Tag.Get(tagName)); err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
		}
		props = append(props, p)
	}

	claimed := make(map[int]bool)
	for _, p := range props {
		if !p.IsIgnored && p.ColumnIndex >= 0 {
			claimed[p.ColumnIndex] = true
		}
	}
	next := 0
	for _, p := range props {
		if p.IsIgnored {
			continue
		}
		if p.ColumnIndex < 0 {
			for claimed[next] {
				next++
			}
			p.ColumnIndex = next
			claimed[next] = true
		}
		if p.ColumnIndex >= next {
			next = p.ColumnIndex + 1
		}
	}

	if err := checkColumns(props, nil); err != nil {
		return nil, fmt.Errorf("type %s: %w", t.Name(), err)
	}
	return props, nil
}

// checkColumns reports two mapped properties sharing a column. index, when
// set, overrides the column of a property; a negative override means ignored.
func checkColumns(props []*PropertyConfiguration, index map[*PropertyConfiguration]int) error {
	owner := make(map[int]string, len(props))
	for _, p := range props {
		col := p.ColumnIndex
		if p.IsIgnored {
			col = -1
		}
		if override, ok := index[p]; ok {
			col = override
		}
		if col < 0 {
			continue
		}
		if prev, ok := owner[col]; ok {
			return fmt.Errorf("%w: %s and %s on column %d", ErrDuplicateColumn, prev, p.name, col)
		}
		owner[col] = p.name
	}
	return nil
}

// throughPointer reports whether reaching the field requires following an embedded pointer.
func throughPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Ptr {
			return true
		}
		t = f.Type
	}
	return false
}

func applyTag(p *PropertyConfiguration, tag string) error {
	if tag == "" {
		return nil
	}
	if tag == "-" {
		p.IsIgnored = true
		return nil
	}

	parts := strings.Split(tag, ",")
	if title := strings.TrimSpace(parts[0]); title != "" {
		p.ColumnTitle = title
	}
	for i, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		key, value, _ := strings.Cut(opt, "=")
		if key == "format" {
			// number formats may contain commas, so format takes the rest of the tag
			p.ColumnFormatter = strings.Join(append([]string{value}, parts[i+2:]...), ",")
			break
		}
		switch key {
		case "":
		case "ignore":
			p.IsIgnored = true
		case "index":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid column index %q", value)
			}
			p.ColumnIndex = n
		case "width":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid column width %q", value)
			}
			p.ColumnWidth = n
		default:
			return fmt.Errorf("unknown excel tag option %q", key)
		}
	}
	return nil
}
