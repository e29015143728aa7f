package service

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/locvowork/excelmapper/internal/domain"
	"github.com/locvowork/excelmapper/pkg/excelmapper"
)

// NewEmployeeMapper configures the employee sheet: an "Employees" sheet with
// a frozen, filterable header and trimmed names. mappingFile, when set, is a
// YAML override applied last.
func NewEmployeeMapper(log zerolog.Logger, mappingFile string) (*excelmapper.Mapper, error) {
	m := excelmapper.NewMapper(excelmapper.WithLogger(log))
	cfg, err := excelmapper.Configure[domain.Employee](m)
	if err != nil {
		return nil, err
	}

	cfg.HasSheetSetting(0, func(s *excelmapper.SheetSetting) {
		s.SheetName = "Employees"
		s.AutoColumnWidthEnabled = true
	}).
		HasFreezePane(0, 1, 0, 1).
		HasFilter(0)

	trim := func(_ *domain.Employee, v string) string { return strings.TrimSpace(v) }
	excelmapper.Property[domain.Employee, string](cfg, "FirstName").HasInputFormatter(trim)
	excelmapper.Property[domain.Employee, string](cfg, "LastName").HasInputFormatter(trim)
	excelmapper.Property[domain.Employee, string](cfg, "Gender").
		HasInputFormatter(func(_ *domain.Employee, v string) string { return normalizeGender(v) })

	if mappingFile != "" {
		if err := cfg.ApplyYAMLFile(mappingFile); err != nil {
			return nil, fmt.Errorf("apply mapping file: %w", err)
		}
	}
	return m, nil
}

func normalizeGender(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "M", "MALE":
		return "M"
	case "F", "FEMALE":
		return "F"
	}
	return strings.TrimSpace(v)
}
