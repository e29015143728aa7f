package excelmapper

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNotStruct       = errors.New("excelmapper: entity type is not a struct")
	ErrUnknownProperty = errors.New("excelmapper: unknown property")
	ErrDuplicateColumn = errors.New("excelmapper: duplicate column index")
)

// SheetSetting describes the row layout of one sheet.
type SheetSetting struct {
	SheetName string
	// HeaderRowIndex is the 0-based header row, or -1 when the sheet has no header.
	HeaderRowIndex int
	// StartRowIndex is the 0-based index of the first data row.
	StartRowIndex          int
	AutoColumnWidthEnabled bool
}

// FreezeSetting is applied through Sheet.CreateFreezePane after writing.
type FreezeSetting struct {
	ColSplit       int
	RowSplit       int
	LeftMostColumn int
	TopRow         int
}

// FilterSetting declares an auto-filter over the written rows.
// A nil LastColumn means "the last mapped column".
type FilterSetting struct {
	FirstColumn int
	LastColumn  *int
}

// PropertyConfiguration holds the column mapping of one struct field.
type PropertyConfiguration struct {
	// ColumnIndex is the 0-based column, -1 when unresolved.
	ColumnIndex int
	ColumnTitle string
	// ColumnWidth is in characters; 0 means auto.
	ColumnWidth int
	// ColumnFormatter is an Excel number-format code used when writing, e.g. "yyyy-mm-dd".
	ColumnFormatter string
	IsIgnored       bool

	name            string
	entityType      reflect.Type
	acc             accessor
	inputFormatter  FormatterFunc
	outputFormatter FormatterFunc
}

// Name returns the struct field name.
func (p *PropertyConfiguration) Name() string { return p.name }

// Type returns the field type.
func (p *PropertyConfiguration) Type() reflect.Type { return p.acc.typ }

// Key identifies the property across entity types.
func (p *PropertyConfiguration) Key() PropertyKey {
	return PropertyKey{Type: p.entityType, Name: p.name}
}

func (p *PropertyConfiguration) InputFormatter() FormatterFunc  { return p.inputFormatter }
func (p *PropertyConfiguration) OutputFormatter() FormatterFunc { return p.outputFormatter }

// SetInputFormatter sets the untyped read-side formatter.
// Prefer Property(...).HasInputFormatter for typed closures.
func (p *PropertyConfiguration) SetInputFormatter(fn FormatterFunc) { p.inputFormatter = fn }

// SetOutputFormatter sets the untyped write-side formatter.
func (p *PropertyConfiguration) SetOutputFormatter(fn FormatterFunc) { p.outputFormatter = fn }

// accessor reads and writes one field of an addressable struct value.
type accessor struct {
	index []int
	typ   reflect.Type
}

func (a accessor) field(entity reflect.Value) reflect.Value {
	return entity.FieldByIndex(a.index)
}

// ExcelConfiguration is the mapping of an entity type T to a sheet.
// Configure it before the first read or write: formatters are cached on first use.
type ExcelConfiguration[T any] struct {
	SheetSettings  map[int]*SheetSetting
	FreezeSettings []FreezeSetting
	FilterSetting  *FilterSetting

	entityType reflect.Type
	properties []*PropertyConfiguration
	byName     map[string]*PropertyConfiguration
}

// NewConfiguration builds the configuration of T from its `excel` struct tags.
func NewConfiguration[T any]() (*ExcelConfiguration[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}

	props, err := collectProperties(t)
	if err != nil {
		return nil, err
	}

	cfg := &ExcelConfiguration[T]{
		SheetSettings: map[int]*SheetSetting{
			0: {SheetName: "Sheet1", HeaderRowIndex: 0, StartRowIndex: 1},
		},
		entityType: t,
		properties: props,
		byName:     make(map[string]*PropertyConfiguration, len(props)),
	}
	for _, p := range props {
		cfg.byName[p.name] = p
	}
	return cfg, nil
}

// Properties returns every property in declaration order, ignored ones included.
func (c *ExcelConfiguration[T]) Properties() []*PropertyConfiguration {
	return c.properties
}

// Property returns the configuration of the named field.
func (c *ExcelConfiguration[T]) Property(name string) (*PropertyConfiguration, error) {
	p, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, c.entityType.Name(), name)
	}
	return p, nil
}

// HasSheetSetting configures the sheet at index, creating it from the defaults when missing.
func (c *ExcelConfiguration[T]) HasSheetSetting(index int, configure func(*SheetSetting)) *ExcelConfiguration[T] {
	s, ok := c.SheetSettings[index]
	if !ok {
		def := *c.SheetSettings[0]
		s = &def
		c.SheetSettings[index] = s
	}
	configure(s)
	return c
}

// HasFreezePane appends a freeze pane applied after each write.
func (c *ExcelConfiguration[T]) HasFreezePane(colSplit, rowSplit, leftmostColumn, topRow int) *ExcelConfiguration[T] {
	c.FreezeSettings = append(c.FreezeSettings, FreezeSetting{
		ColSplit:       colSplit,
		RowSplit:       rowSplit,
		LeftMostColumn: leftmostColumn,
		TopRow:         topRow,
	})
	return c
}

// HasFilter enables an auto-filter from firstColumn to the last mapped column.
func (c *ExcelConfiguration[T]) HasFilter(firstColumn int) *ExcelConfiguration[T] {
	c.FilterSetting = &FilterSetting{FirstColumn: firstColumn}
	return c
}

// HasFilterRange enables an auto-filter over an explicit column range.
func (c *ExcelConfiguration[T]) HasFilterRange(firstColumn, lastColumn int) *ExcelConfiguration[T] {
	c.FilterSetting = &FilterSetting{FirstColumn: firstColumn, LastColumn: &lastColumn}
	return c
}

// sheetSetting falls back to sheet 0 for unknown or negative indices.
func (c *ExcelConfiguration[T]) sheetSetting(index int) *SheetSetting {
	if s, ok := c.SheetSettings[index]; ok && index >= 0 {
		return s
	}
	return c.SheetSettings[0]
}

// SheetSettingFor returns the setting used for the sheet at index.
func (c *ExcelConfiguration[T]) SheetSettingFor(index int) SheetSetting {
	return *c.sheetSetting(index)
}

// PropertyBuilder configures one property with its value type V.
type PropertyBuilder[T, V any] struct {
	prop *PropertyConfiguration
}

// Property returns a typed builder for the named field of T.
// It panics when the field does not exist or is not of type V.
func Property[T, V any](cfg *ExcelConfiguration[T], name string) *PropertyBuilder[T, V] {
	p, err := cfg.Property(name)
	if err != nil {
		panic(err)
	}
	if vt := reflect.TypeOf((*V)(nil)).Elem(); vt != p.acc.typ {
		panic(fmt.Sprintf("excelmapper: property %s is %s, not %s", name, p.acc.typ, vt))
	}
	return &PropertyBuilder[T, V]{prop: p}
}

func (b *PropertyBuilder[T, V]) HasColumnTitle(title string) *PropertyBuilder[T, V] {
	b.prop.ColumnTitle = title
	return b
}

func (b *PropertyBuilder[T, V]) HasColumnIndex(index int) *PropertyBuilder[T, V] {
	b.prop.ColumnIndex = index
	return b
}

func (b *PropertyBuilder[T, V]) HasColumnWidth(width int) *PropertyBuilder[T, V] {
	b.prop.ColumnWidth = width
	return b
}

func (b *PropertyBuilder[T, V]) HasColumnFormatter(format string) *PropertyBuilder[T, V] {
	b.prop.ColumnFormatter = format
	return b
}

func (b *PropertyBuilder[T, V]) Ignored() *PropertyBuilder[T, V] {
	b.prop.IsIgnored = true
	return b
}

// HasInputFormatter transforms the converted cell value before it is stored on the entity.
func (b *PropertyBuilder[T, V]) HasInputFormatter(fn func(entity *T, value V) V) *PropertyBuilder[T, V] {
	b.prop.inputFormatter = func(entity, value interface{}) interface{} {
		e, _ := entity.(*T)
		v, _ := value.(V)
		return fn(e, v)
	}
	return b
}

// HasOutputFormatter transforms the field value before it is written to the cell.
func (b *PropertyBuilder[T, V]) HasOutputFormatter(fn func(entity *T, value V) interface{}) *PropertyBuilder[T, V] {
	b.prop.outputFormatter = func(entity, value interface{}) interface{} {
		e, _ := entity.(*T)
		v, _ := value.(V)
		return fn(e, v)
	}
	return b
}
