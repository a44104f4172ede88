package source

import (
	"strings"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Mapper turns positional cells into RawRows using a header row.
type Mapper struct {
	columns  []string
	unmapped []string
}

// NewMapper binds header positions to staging columns. Headers the layout
// does not know are ignored; columns with no header stay null. When the
// same column appears twice the first occurrence wins.
func NewMapper(l Layout, header []string) *Mapper {
	m := &Mapper{columns: make([]string, len(header))}
	seen := make(map[string]bool)
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			continue
		}
		col := l.Column(h)
		if col == "" {
			m.unmapped = append(m.unmapped, h)
			continue
		}
		if seen[col] {
			continue
		}
		seen[col] = true
		m.columns[i] = col
	}
	return m
}

// Unmapped returns the header cells that matched no column.
func (m *Mapper) Unmapped() []string { return m.unmapped }

// Mapped returns the number of header positions bound to a column.
func (m *Mapper) Mapped() int {
	n := 0
	for _, c := range m.columns {
		if c != "" {
			n++
		}
	}
	return n
}

// Map builds a RawRow from one data row. Blank cells become null.
func (m *Mapper) Map(cells []string) model.RawRow {
	var row model.RawRow
	var surnames, given string
	for i, v := range cells {
		if i >= len(m.columns) || m.columns[i] == "" {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch m.columns[i] {
		case colSurnames:
			surnames = v
		case colGivenNames:
			given = v
		default:
			val := v
			row.Set(m.columns[i], &val)
		}
	}
	if row.FullName == nil {
		if name := strings.TrimSpace(surnames + " " + given); name != "" {
			row.FullName = &name
		}
	}
	return row
}
