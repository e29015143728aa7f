package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/locvowork/excelmapper/pkg/excelmapper"
)

var ErrSheetNotFound = errors.New("xlsx: sheet not found")

// ReadFile decodes entities of type T from the workbook at path.
func ReadFile[T any](m *excelmapper.Mapper, path string, sheetIndex int) ([]*T, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()
	return ReadWorkbook[T](m, f, sheetIndex)
}

// Read decodes entities of type T from a workbook stream.
func Read[T any](m *excelmapper.Mapper, r io.Reader, sheetIndex int) ([]*T, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return ReadWorkbook[T](m, f, sheetIndex)
}

// ReadRecords is Read keeping the sheet row of every entity.
func ReadRecords[T any](m *excelmapper.Mapper, r io.Reader, sheetIndex int) ([]excelmapper.Record[T], error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheet, err := selectSheet[T](m, f, sheetIndex)
	if err != nil {
		return nil, err
	}
	return excelmapper.SheetToRecords[T](m, sheet, sheetIndex)
}

// ReadWorkbook decodes the worksheet selected by sheetIndex. A sheet setting
// declared for sheetIndex selects the worksheet by name; otherwise the
// worksheet at that position is used.
func ReadWorkbook[T any](m *excelmapper.Mapper, f *excelize.File, sheetIndex int) ([]*T, error) {
	sheet, err := selectSheet[T](m, f, sheetIndex)
	if err != nil {
		return nil, err
	}
	return excelmapper.SheetToEntities[T](m, sheet, sheetIndex)
}

func selectSheet[T any](m *excelmapper.Mapper, f *excelize.File, sheetIndex int) (*Sheet, error) {
	cfg, err := excelmapper.Configure[T](m)
	if err != nil {
		return nil, err
	}

	name := f.GetSheetName(sheetIndex)
	if s, ok := cfg.SheetSettings[sheetIndex]; ok && s.SheetName != "" {
		if idx, _ := f.GetSheetIndex(s.SheetName); idx >= 0 {
			name = s.SheetName
		}
	}
	if name == "" {
		return nil, fmt.Errorf("%w: index %d", ErrSheetNotFound, sheetIndex)
	}
	return Open(f, name)
}

// NewFile returns a workbook whose first worksheet is named after the sheet
// setting of T at sheetIndex.
func NewFile[T any](m *excelmapper.Mapper, sheetIndex int) (*excelize.File, error) {
	cfg, err := excelmapper.Configure[T](m)
	if err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	if name := cfg.SheetSettingFor(sheetIndex).SheetName; name != "" && name != first {
		f.SetSheetName(first, name)
	}
	return f, nil
}

// WriteEntities writes entities into the worksheet named by the sheet setting
// at sheetIndex, creating the worksheet when f does not have it yet.
func WriteEntities[T any](m *excelmapper.Mapper, f *excelize.File, entities []*T, sheetIndex int) error {
	sheet, err := targetSheet[T](m, f, sheetIndex)
	if err != nil {
		return err
	}
	return excelmapper.EntitiesToSheet(m, sheet, entities, sheetIndex)
}

// WriteTable writes table into f, laid out with the configuration of T.
func WriteTable[T any](m *excelmapper.Mapper, f *excelize.File, table *excelmapper.DataTable, sheetIndex int) error {
	sheet, err := targetSheet[T](m, f, sheetIndex)
	if err != nil {
		return err
	}
	return excelmapper.TableToSheet[T](m, sheet, table, sheetIndex)
}

// ToBytes renders entities as a single-sheet workbook.
func ToBytes[T any](m *excelmapper.Mapper, entities []*T, sheetIndex int) ([]byte, error) {
	f, err := NewFile[T](m, sheetIndex)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := WriteEntities(m, f, entities, sheetIndex); err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders entities as a single-sheet workbook saved at path.
func WriteFile[T any](m *excelmapper.Mapper, path string, entities []*T, sheetIndex int) error {
	f, err := NewFile[T](m, sheetIndex)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteEntities(m, f, entities, sheetIndex); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func targetSheet[T any](m *excelmapper.Mapper, f *excelize.File, sheetIndex int) (*Sheet, error) {
	cfg, err := excelmapper.Configure[T](m)
	if err != nil {
		return nil, err
	}
	name := cfg.SheetSettingFor(sheetIndex).SheetName
	if name == "" {
		name = fmt.Sprintf("Sheet%d", sheetIndex+1)
	}
	if idx, _ := f.GetSheetIndex(name); idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
	}
	return Open(f, name)
}
