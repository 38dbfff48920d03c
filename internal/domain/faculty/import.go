package faculty

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/auth"
)

var rosterColumns = []string{"id", "name", "department", "campus", "role"}

// ParseRoster reads the first sheet of an xlsx workbook. Headers are matched exactly
// (case and surrounding space ignored); role is optional and defaults to employee.
func ParseRoster(r io.Reader) ([]Faculty, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, approval.Invalid("file", "not a readable xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, approval.Invalid("file", "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, approval.Invalid("file", "cannot read first sheet")
	}
	if len(rows) == 0 {
		return nil, nil, approval.Invalid("file", "sheet is empty")
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range rosterColumns[:4] {
		if _, ok := index[col]; !ok {
			return nil, nil, approval.Invalid("file", fmt.Sprintf("missing %q column", col))
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Faculty
	var rowErrs []RowError
	seen := map[string]int{}
	for n, row := range rows[1:] {
		line := n + 2
		if isBlank(row) {
			continue
		}
		rec := Faculty{
			ID:         cell(row, "id"),
			Name:       cell(row, "name"),
			Department: cell(row, "department"),
			Campus:     cell(row, "campus"),
			Role:       strings.ToLower(cell(row, "role")),
		}
		if rec.Role == "" {
			rec.Role = auth.RoleEmployee
		}
		switch {
		case rec.ID == "" || rec.Name == "" || rec.Department == "" || rec.Campus == "":
			rowErrs = append(rowErrs, RowError{Row: line, Reason: "id, name, department and campus are required"})
			continue
		case !auth.ValidRole(rec.Role):
			rowErrs = append(rowErrs, RowError{Row: line, Reason: fmt.Sprintf("unknown role %q", rec.Role)})
			continue
		}
		if first, dup := seen[rec.ID]; dup {
			rowErrs = append(rowErrs, RowError{Row: line, Reason: fmt.Sprintf("duplicate id %s (first on row %d)", rec.ID, first)})
			continue
		}
		seen[rec.ID] = line
		out = append(out, rec)
	}
	return out, rowErrs, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ImportRoster upserts every valid row and drops the cached rosters it touched.
func (s *Service) ImportRoster(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, rowErrs, err := ParseRoster(r)
	if err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{Imported: len(rows), Skipped: len(rowErrs), Errors: rowErrs}
	if len(rows) == 0 {
		return result, nil
	}
	if err := s.Store.Upsert(ctx, rows); err != nil {
		return ImportResult{}, approval.Transport("import faculty", err)
	}

	campuses := map[string]struct{}{}
	var list []string
	for _, f := range rows {
		key := strings.ToLower(f.Campus)
		if _, ok := campuses[key]; !ok {
			campuses[key] = struct{}{}
			list = append(list, f.Campus)
		}
	}
	s.invalidate(ctx, list)
	return result, nil
}
