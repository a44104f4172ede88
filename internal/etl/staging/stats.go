package staging

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/etl-productivo/subsidy-etl/internal/db"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Stats summarizes one staging table.
type Stats struct {
	Subsidy    model.SubsidyType `json:"subsidy_type"`
	Total      int64             `json:"total"`
	Processed  int64             `json:"processed"`
	Pending    int64             `json:"pending"`
	WithErrors int64             `json:"with_errors"`
}

// TableStats counts rows by processing state.
func TableStats(ctx context.Context, q db.Querier, subsidy model.SubsidyType) (Stats, error) {
	s := Stats{Subsidy: subsidy}
	sql := fmt.Sprintf(`SELECT count(*),
	count(*) FILTER (WHERE processed),
	count(*) FILTER (WHERE NOT processed),
	count(*) FILTER (WHERE error_message IS NOT NULL)
FROM %s`, tableIdent(subsidy))
	if err := q.QueryRow(ctx, sql).Scan(&s.Total, &s.Processed, &s.Pending, &s.WithErrors); err != nil {
		return s, eris.Wrapf(err, "staging: stats for %s", subsidy.StagingTable())
	}
	return s, nil
}

// AllStats returns TableStats for every subsidy type.
func AllStats(ctx context.Context, q db.Querier) ([]Stats, error) {
	out := make([]Stats, 0, len(model.AllSubsidyTypes()))
	for _, t := range model.AllSubsidyTypes() {
		s, err := TableStats(ctx, q, t)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Reject is a processed staging row that carries an error.
type Reject struct {
	ID       int64   `json:"id"`
	FullName *string `json:"full_name,omitempty"`
	IDNumber *string `json:"id_number,omitempty"`
	Canton   *string `json:"canton,omitempty"`
	Error    string  `json:"error"`
}

// Rejects lists up to limit rows with an error message, oldest first.
func Rejects(ctx context.Context, q db.Querier, subsidy model.SubsidyType, limit int) ([]Reject, error) {
	if limit <= 0 {
		limit = 100
	}
	sql := fmt.Sprintf(`SELECT id, full_name, id_number, canton, error_message
FROM %s WHERE error_message IS NOT NULL ORDER BY id LIMIT $1`, tableIdent(subsidy))
	rows, err := q.Query(ctx, sql, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "staging: list rejects in %s", subsidy.StagingTable())
	}
	defer rows.Close()

	var out []Reject
	for rows.Next() {
		var r Reject
		if err := rows.Scan(&r.ID, &r.FullName, &r.IDNumber, &r.Canton, &r.Error); err != nil {
			return nil, eris.Wrap(err, "staging: scan reject")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ErrorHistogram counts rejected rows per violation code. Codes are split
// on "; " the way the validator joins them.
func ErrorHistogram(rejects []Reject) map[string]int {
	h := make(map[string]int)
	for _, r := range rejects {
		for _, code := range strings.Split(r.Error, "; ") {
			if code = strings.TrimSpace(code); code != "" {
				h[code]++
			}
		}
	}
	return h
}
