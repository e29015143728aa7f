package excelmapper

import (
	"fmt"
	"reflect"
)

// Record is one decoded data row. Entity is nil for a missing or empty row.
type Record[T any] struct {
	// RowIndex is the 0-based sheet row the entity was read from.
	RowIndex int
	Entity   *T
}

// SheetToEntities reads sheet into entities of type T using the configuration
// of T and the sheet setting at sheetIndex.
//
// The result has one element per data row between the sheet's first and last
// physical rows; rows that are missing or empty are returned as nil so that
// positions in the slice map back to rows.
func SheetToEntities[T any](m *Mapper, sheet Sheet, sheetIndex int) ([]*T, error) {
	records, err := SheetToRecords[T](m, sheet, sheetIndex)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, len(records))
	for i, r := range records {
		entities[i] = r.Entity
	}
	return entities, nil
}

// SheetToRecords is SheetToEntities with the sheet row of every entity.
func SheetToRecords[T any](m *Mapper, sheet Sheet, sheetIndex int) ([]Record[T], error) {
	cfg, err := Configure[T](m)
	if err != nil {
		return nil, err
	}
	setting := cfg.sheetSetting(sheetIndex)

	columns := declaredColumns(cfg.properties)
	if setting.HeaderRowIndex >= 0 {
		columns = resolveColumns(sheet.Row(setting.HeaderRowIndex), columns)
	}

	first, last := sheet.FirstRowIndex(), sheet.LastRowIndex()
	capacity := last - setting.HeaderRowIndex
	if capacity < 0 {
		capacity = 0
	}
	records := make([]Record[T], 0, capacity)
	for rowIndex := first - 1; rowIndex <= last; rowIndex++ {
		if rowIndex == setting.HeaderRowIndex || rowIndex < setting.StartRowIndex {
			continue
		}
		records = append(records, Record[T]{
			RowIndex: rowIndex,
			Entity:   decodeRow[T](m, sheet.Row(rowIndex), rowIndex, columns),
		})
	}
	return records, nil
}

// decodeRow builds one entity from row, or returns nil for a missing or empty row.
func decodeRow[T any](m *Mapper, row Row, rowIndex int, columns columnMap) *T {
	if row == nil || row.CellCount() == 0 {
		return nil
	}

	entity := new(T)
	ev := reflect.ValueOf(entity).Elem()
	for _, b := range columns {
		if b.columnIndex < 0 {
			continue
		}
		cell := row.Cell(b.columnIndex)
		if cell == nil {
			continue
		}
		v, err := convertValue(cell.Value(), b.property.acc.typ)
		if err != nil {
			m.logger.Debug().Err(err).
				Str("property", b.property.name).
				Int("row", rowIndex).
				Int("column", b.columnIndex).
				Msg("cell value conversion failed")
			continue
		}
		b.property.acc.field(ev).Set(v)
	}

	for _, b := range columns {
		field := b.property.acc.field(ev)
		if !field.CanSet() {
			continue
		}
		fn := m.cache.InputFormatter(b.property.Key(), b.property)
		if fn == nil {
			continue
		}
		if err := applyInputFormatter(fn, entity, field); err != nil {
			m.logger.Debug().Err(err).
				Str("property", b.property.name).
				Int("row", rowIndex).
				Msg("input formatter failed")
		}
	}
	return entity
}

// applyInputFormatter replaces field with fn(entity, field). On failure the
// field keeps its current value.
func applyInputFormatter(fn FormatterFunc, entity interface{}, field reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formatter panic: %v", r)
		}
	}()

	v, err := convertValue(fn(entity, field.Interface()), field.Type())
	if err != nil {
		return err
	}
	field.Set(v)
	return nil
}
