package excelmapper

import (
	"reflect"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mapper owns the per-type configurations and the formatter cache shared by
// every read and write made through it. It is safe for concurrent use.
type Mapper struct {
	cache   *FormatterCache
	logger  zerolog.Logger
	configs sync.Map // reflect.Type -> *ExcelConfiguration[T]
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithFormatterCache shares cache between mappers.
func WithFormatterCache(cache *FormatterCache) Option {
	return func(m *Mapper) {
		if cache != nil {
			m.cache = cache
		}
	}
}

// WithLogger sets the logger used for formatter and conversion diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Mapper) {
		m.logger = logger
	}
}

func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{
		cache:  NewFormatterCache(),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configure returns the configuration of T held by m, building it from the
// struct tags of T on first use.
func Configure[T any](m *Mapper) (*ExcelConfiguration[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := m.configs.Load(t); ok {
		return v.(*ExcelConfiguration[T]), nil
	}

	cfg, err := NewConfiguration[T]()
	if err != nil {
		return nil, err
	}
	v, _ := m.configs.LoadOrStore(t, cfg)
	return v.(*ExcelConfiguration[T]), nil
}

// Register replaces the configuration of T held by m.
func Register[T any](m *Mapper, cfg *ExcelConfiguration[T]) {
	m.configs.Store(cfg.entityType, cfg)
}
