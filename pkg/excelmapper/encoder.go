package excelmapper

import (
	"fmt"
	"reflect"
)

// DataTable is a generic tabular dataset. Columns name the properties (or
// column titles) of the entity type used to lay it out.
type DataTable struct {
	Columns []string
	Rows    [][]interface{}
}

// EntitiesToSheet writes entities into sheet using the configuration of T and
// the sheet setting at sheetIndex. A nil entity produces an empty row.
// Nothing is written when entities is empty.
func EntitiesToSheet[T any](m *Mapper, sheet Sheet, entities []*T, sheetIndex int) error {
	if len(entities) == 0 {
		return nil
	}
	cfg, err := Configure[T](m)
	if err != nil {
		return err
	}
	columns := declaredColumns(cfg.properties)
	if len(columns) == 0 {
		return nil
	}

	setting := cfg.sheetSetting(sheetIndex)
	if setting.HeaderRowIndex >= 0 {
		if err := writeHeader(sheet, setting.HeaderRowIndex, columns); err != nil {
			return err
		}
	}

	for offset, entity := range entities {
		rowIndex := setting.StartRowIndex + offset
		row := sheet.CreateRow(rowIndex)
		if entity == nil {
			continue
		}
		ev := reflect.ValueOf(entity).Elem()
		for _, b := range columns {
			value := m.outputValue(b.property, entity, b.property.acc.field(ev), rowIndex)
			if err := row.CreateCell(b.columnIndex).SetValue(value, b.property.ColumnFormatter); err != nil {
				return fmt.Errorf("write %s at row %d column %d: %w", b.property.name, rowIndex, b.columnIndex, err)
			}
		}
	}

	return postProcessSheet(sheet, setting, len(entities), cfg.FreezeSettings, cfg.FilterSetting, columns)
}

// TableToSheet writes table into sheet, laying its columns out with the
// configuration of T. Table columns that match no property are skipped.
func TableToSheet[T any](m *Mapper, sheet Sheet, table *DataTable, sheetIndex int) error {
	if table == nil || len(table.Rows) == 0 || len(table.Columns) == 0 {
		return nil
	}
	cfg, err := Configure[T](m)
	if err != nil {
		return err
	}
	columns := declaredColumns(cfg.properties)
	if len(columns) == 0 {
		return nil
	}

	bindings := make([]*columnBinding, len(table.Columns))
	for i, name := range table.Columns {
		bindings[i] = columns.byName(name)
	}

	setting := cfg.sheetSetting(sheetIndex)
	if setting.HeaderRowIndex >= 0 {
		header := sheet.CreateRow(setting.HeaderRowIndex)
		for _, b := range bindings {
			if b == nil {
				continue
			}
			if err := header.CreateCell(b.columnIndex).SetValue(b.property.ColumnTitle, ""); err != nil {
				return fmt.Errorf("write header %q: %w", b.property.ColumnTitle, err)
			}
		}
	}

	for i, values := range table.Rows {
		rowIndex := setting.StartRowIndex + i
		row := sheet.CreateRow(rowIndex)
		for j, b := range bindings {
			if b == nil || j >= len(values) {
				continue
			}
			if err := row.CreateCell(b.columnIndex).SetValue(values[j], b.property.ColumnFormatter); err != nil {
				return fmt.Errorf("write %s at row %d column %d: %w", table.Columns[j], rowIndex, b.columnIndex, err)
			}
		}
	}

	return postProcessSheet(sheet, setting, len(table.Rows), cfg.FreezeSettings, cfg.FilterSetting, columns)
}

func writeHeader(sheet Sheet, rowIndex int, columns columnMap) error {
	header := sheet.CreateRow(rowIndex)
	for _, b := range columns {
		if err := header.CreateCell(b.columnIndex).SetValue(b.property.ColumnTitle, ""); err != nil {
			return fmt.Errorf("write header %q: %w", b.property.ColumnTitle, err)
		}
	}
	return nil
}

// outputValue returns the value to persist for field, applying the output
// formatter of p when one is declared. A failing formatter yields the raw value.
func (m *Mapper) outputValue(p *PropertyConfiguration, entity interface{}, field reflect.Value, rowIndex int) (value interface{}) {
	fn := m.cache.OutputFormatter(p.Key(), p)
	if fn == nil {
		return cellValue(field)
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Debug().
				Str("property", p.name).
				Int("row", rowIndex).
				Interface("panic", r).
				Msg("output formatter failed")
			value = cellValue(field)
		}
	}()
	result := fn(entity, field.Interface())
	if result == nil {
		return nil
	}
	return cellValue(reflect.ValueOf(result))
}
