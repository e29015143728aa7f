package csvsheet

import (
	"io"

	"github.com/locvowork/excelmapper/pkg/excelmapper"
)

// Read decodes comma separated records from r into entities of type T.
func Read[T any](m *excelmapper.Mapper, r io.Reader, sheetIndex int) ([]*T, error) {
	s, err := Load(r, ',')
	if err != nil {
		return nil, err
	}
	return excelmapper.SheetToEntities[T](m, s, sheetIndex)
}

// ReadRecords is Read keeping the sheet row of every entity.
func ReadRecords[T any](m *excelmapper.Mapper, r io.Reader, sheetIndex int) ([]excelmapper.Record[T], error) {
	s, err := Load(r, ',')
	if err != nil {
		return nil, err
	}
	return excelmapper.SheetToRecords[T](m, s, sheetIndex)
}

// Write encodes entities as comma separated records to w.
func Write[T any](m *excelmapper.Mapper, w io.Writer, entities []*T, sheetIndex int) error {
	s := New()
	if err := excelmapper.EntitiesToSheet(m, s, entities, sheetIndex); err != nil {
		return err
	}
	_, err := s.WriteTo(w)
	return err
}
