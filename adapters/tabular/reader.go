package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"recolookup/domain/table"
	"recolookup/internal/errors"
	"recolookup/internal/logging"
)

// Kind is the physical format behind a table location
type Kind string

const (
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindHTTP Kind = "http"
	KindSQL  Kind = "sql"
)

const utf8BOM = "\ufeff"

// Options tune how a DataReader fetches and checks its table
type Options struct {
	KeyField   string
	Selector   table.FeatureSelector
	HTTPClient *http.Client
}

// DataReader loads one table from a file, URL or database location
type DataReader struct {
	name     string
	location string
	kind     Kind
	sheet    string
	opts     Options
}

// NewDataReader creates a reader for location, picking the format from its scheme or extension.
// An xlsx location may name a sheet with a "#Sheet" suffix.
func NewDataReader(name, location string, opts Options) *DataReader {
	kind, loc, sheet := DetectKind(location)
	if opts.Selector == nil {
		opts.Selector = table.DefaultSelector
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &DataReader{
		name:     name,
		location: loc,
		kind:     kind,
		sheet:    sheet,
		opts:     opts,
	}
}

// DetectKind returns the format of location, the location without any sheet suffix, and the sheet
func DetectKind(location string) (Kind, string, string) {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return KindHTTP, location, ""
	case strings.HasPrefix(lower, "sqlite://"),
		strings.HasPrefix(lower, "postgres://"),
		strings.HasPrefix(lower, "postgresql://"):
		return KindSQL, location, ""
	}

	loc, sheet := location, ""
	if i := strings.LastIndex(location, "#"); i > 0 {
		loc, sheet = location[:i], location[i+1:]
	}
	switch strings.ToLower(filepath.Ext(loc)) {
	case ".xlsx", ".xlsm":
		return KindXLSX, loc, sheet
	}
	return KindCSV, location, ""
}

func (r *DataReader) Name() string     { return r.name }
func (r *DataReader) Location() string { return r.location }
func (r *DataReader) Kind() Kind       { return r.kind }

// Load fetches, parses and schema-checks the table
func (r *DataReader) Load(ctx context.Context) (*table.Table, error) {
	log := logging.With("tabular")
	start := time.Now()

	rows, err := r.readRows(ctx)
	if err != nil {
		return nil, errors.LoadFailed(r.location, err)
	}
	readTime := time.Since(start)

	t, err := buildTable(r.name, rows)
	if err != nil {
		return nil, errors.Wrapf(err, "table %s", r.name)
	}
	if err := table.Validate(t, r.opts.KeyField, r.opts.Selector); err != nil {
		return nil, errors.SchemaInvalid(err.Error())
	}

	log.Info().
		Str("table", r.name).
		Str("kind", string(r.kind)).
		Int("columns", len(t.Headers)).
		Int("rows", t.Len()).
		Dur("read", readTime).
		Dur("total", time.Since(start)).
		Msg("table loaded")

	return t, nil
}

func (r *DataReader) readRows(ctx context.Context) ([][]string, error) {
	switch r.kind {
	case KindCSV:
		return readCSVFile(r.location)
	case KindXLSX:
		f, err := excelize.OpenFile(r.location)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel file: %w", err)
		}
		defer f.Close()
		return readSheet(f, r.sheet)
	case KindHTTP:
		return r.fetchHTTP(ctx)
	case KindSQL:
		return readSQL(ctx, r.location)
	default:
		return nil, fmt.Errorf("unsupported table kind: %s", r.kind)
	}
}

func readCSVFile(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()
	return parseCSV(file)
}

// parseCSV reads delimited text with a header row. Empty lines are skipped and
// rows may be ragged; cells are kept verbatim. A quote inside an unquoted
// cell is literal text.
func parseCSV(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}

// readSheet reads the named sheet, or the first sheet when name is empty
func readSheet(f *excelize.File, name string) ([][]string, error) {
	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		name = sheets[0]
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	return rows, nil
}

func (r *DataReader) fetchHTTP(ctx context.Context) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	urlPath := resp.Request.URL.Path
	switch strings.ToLower(path.Ext(urlPath)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel body: %w", err)
		}
		defer f.Close()
		return readSheet(f, resp.Request.URL.Fragment)
	}
	return parseCSV(resp.Body)
}

// buildTable treats the first non-blank row as the header. After it only empty
// lines are dropped; a row of empty cells is kept and can match an empty key.
func buildTable(name string, rows [][]string) (*table.Table, error) {
	var headers []string
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isEmptyLine(row) || (headers == nil && isBlankRow(row)) {
			continue
		}
		if headers == nil {
			headers = append([]string(nil), row...)
			headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
			continue
		}
		data = append(data, row)
	}
	if headers == nil {
		return nil, errors.SchemaInvalid("no header row")
	}
	return table.New(name, headers, data), nil
}

func isEmptyLine(row []string) bool {
	return len(row) == 0 || (len(row) == 1 && row[0] == "")
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
