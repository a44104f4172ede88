package source

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/etl/standardize"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Options configures extraction.
type Options struct {
	// Sheet overrides the layout's sheet name for workbooks.
	Sheet string
	// HeaderRow is the zero-based row holding the column headers.
	HeaderRow int
	// Delimiter for CSV input; default ','.
	Delimiter rune
}

// Stream reads path (.xlsx or .csv) and sends one RawRow per non-empty data
// row. Both channels are closed when extraction completes.
func Stream(ctx context.Context, path string, l Layout, opts Options) (<-chan model.RawRow, <-chan error) {
	rowCh := make(chan model.RawRow, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		var cells <-chan []string
		var cellErr <-chan error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx":
			sheet := opts.Sheet
			if sheet == "" {
				sheet = l.Sheet
			}
			cells, cellErr = streamXLSX(ctx, path, sheet)
		case ".csv":
			f, err := os.Open(path)
			if err != nil {
				errCh <- eris.Wrap(err, "source: open csv")
				return
			}
			defer f.Close() //nolint:errcheck
			cells, cellErr = streamCSV(ctx, f, opts.Delimiter)
		default:
			errCh <- eris.Errorf("source: unsupported file type %q", filepath.Ext(path))
			return
		}

		mapErr := mapRows(ctx, cells, l, opts.HeaderRow, rowCh)
		if err := <-cellErr; err != nil {
			errCh <- err
			return
		}
		if mapErr != nil {
			errCh <- mapErr
		}
	}()

	return rowCh, errCh
}

// mapRows waits for the header row, then maps every later row. It drains
// cells so the producer goroutine can exit.
func mapRows(ctx context.Context, cells <-chan []string, l Layout, headerRow int, out chan<- model.RawRow) error {
	log := zap.L().With(zap.String("component", "source"), zap.String("subsidy", string(l.Subsidy)))

	var mapper *Mapper
	i := -1
	for row := range cells {
		i++
		if i < headerRow {
			continue
		}
		if mapper == nil {
			mapper = NewMapper(l, row)
			if mapper.Mapped() == 0 {
				drain(cells)
				return eris.Errorf("source: no known headers in row %d for %s", headerRow, l.Subsidy)
			}
			if u := mapper.Unmapped(); len(u) > 0 {
				log.Debug("ignoring unmapped headers", zap.Strings("headers", u))
			}
			continue
		}

		raw := mapper.Map(row)
		if raw.Empty() {
			continue
		}
		select {
		case out <- raw:
		case <-ctx.Done():
			drain(cells)
			return eris.Wrap(ctx.Err(), "source: context cancelled")
		}
	}
	if mapper == nil {
		return eris.Errorf("source: header row %d not found", headerRow)
	}
	return nil
}

func drain(ch <-chan []string) {
	for range ch {
	}
}

func streamXLSX(ctx context.Context, path, sheetName string) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errCh <- eris.Wrap(err, "source: open xlsx")
			return
		}

		sheet, err := findSheet(f, sheetName)
		if err != nil {
			errCh <- err
			return
		}

		for _, row := range sheet.Rows {
			select {
			case rowCh <- rowToStrings(row):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "source: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// findSheet matches the sheet name ignoring case and accents, and falls
// back to the only sheet of a single-sheet workbook.
func findSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if s, ok := f.Sheet[name]; ok {
		return s, nil
	}
	want := standardize.Fold(name)
	for _, s := range f.Sheets {
		if standardize.Fold(s.Name) == want {
			return s, nil
		}
	}
	if len(f.Sheets) == 1 {
		return f.Sheets[0], nil
	}
	return nil, eris.Errorf("source: sheet %q not found", name)
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func streamCSV(ctx context.Context, r io.Reader, delim rune) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if delim != 0 {
			reader.Comma = delim
		}
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		for {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "source: read csv row")
				return
			}
			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "source: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}
