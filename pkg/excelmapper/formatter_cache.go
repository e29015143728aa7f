package excelmapper

import (
	"reflect"
	"sync"
)

// FormatterFunc transforms a property value. entity is a *T.
type FormatterFunc func(entity, value interface{}) interface{}

// FormatterSource exposes the formatters declared for a property.
type FormatterSource interface {
	InputFormatter() FormatterFunc
	OutputFormatter() FormatterFunc
}

// PropertyKey identifies a property of an entity type.
type PropertyKey struct {
	Type reflect.Type
	Name string
}

// FormatterCache memoizes formatter lookups per property. A missing formatter
// is cached as nil. It is safe for concurrent use; each key is resolved once.
type FormatterCache struct {
	input  sync.Map // PropertyKey -> *formatterEntry
	output sync.Map
}

type formatterEntry struct {
	once sync.Once
	fn   FormatterFunc
}

func NewFormatterCache() *FormatterCache {
	return &FormatterCache{}
}

// InputFormatter returns the read-side formatter for key, resolving it from source on first use.
func (c *FormatterCache) InputFormatter(key PropertyKey, source FormatterSource) FormatterFunc {
	return load(&c.input, key, source.InputFormatter)
}

// OutputFormatter returns the write-side formatter for key, resolving it from source on first use.
func (c *FormatterCache) OutputFormatter(key PropertyKey, source FormatterSource) FormatterFunc {
	return load(&c.output, key, source.OutputFormatter)
}

func load(m *sync.Map, key PropertyKey, resolve func() FormatterFunc) FormatterFunc {
	v, _ := m.LoadOrStore(key, &formatterEntry{})
	e := v.(*formatterEntry)
	e.once.Do(func() {
		e.fn = resolve()
	})
	return e.fn
}
