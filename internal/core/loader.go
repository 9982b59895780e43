package core

// loader.go reads one <entity>.csv file per catalogued entity.
//
// Failure handling follows the source-read policy:
//   - a missing file skips the entity (it is absent from the record set)
//   - an unreadable or malformed file yields an empty table with the
//     schema columns, logged as an error
//
// Neither case aborts the run; a dependent entity that references a skipped
// one fails later with ErrReferenceNotLoaded.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/talentmetrics/internal/logging"
)

// ContextCheckInterval is how often (in rows) to check for context cancellation.
var ContextCheckInterval = 1000

// LoadStatus describes the outcome of reading one entity file.
type LoadStatus string

const (
	LoadOK      LoadStatus = "loaded"
	LoadMissing LoadStatus = "missing"
	LoadFailed  LoadStatus = "failed"
)

// LoadReport summarizes the read of one entity file.
type LoadReport struct {
	Entity string     `json:"entity"`
	Path   string     `json:"path"`
	Status LoadStatus `json:"status"`
	Rows   int        `json:"rows"`
	Error  string     `json:"error,omitempty"`
}

// Loader reads entity files from a directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader for dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// Load reads every registered entity in load order. Only cancellation of
// ctx is returned as an error.
func (l *Loader) Load(ctx context.Context) (RecordSet, []LoadReport, error) {
	rs := NewRecordSet()
	reports := make([]LoadReport, 0, EntityCount())

	for _, def := range All() {
		if err := ctx.Err(); err != nil {
			return rs, reports, err
		}

		table, report, err := l.LoadEntity(ctx, def)
		if err != nil {
			return rs, reports, err
		}
		reports = append(reports, report)
		if report.Status == LoadMissing {
			continue
		}
		rs = rs.With(table)
	}

	return rs, reports, nil
}

// LoadEntity reads the file for def. Read failures are recorded in the
// report; the error is non-nil only when ctx ends mid-read.
func (l *Loader) LoadEntity(ctx context.Context, def EntityDefinition) (Table, LoadReport, error) {
	path := filepath.Join(l.dir, def.Info.FileName())
	report := LoadReport{Entity: def.Info.Key, Path: path}
	logger := logging.WithFields(ctx, "entity", def.Info.Key, "path", path)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("source file not found, skipping entity")
		report.Status = LoadMissing
		return Table{}, report, nil
	}
	if err != nil {
		logger.Error("failed to open source file", "error", err)
		report.Status = LoadFailed
		report.Error = err.Error()
		return emptyTable(def), report, nil
	}
	defer f.Close()

	table, err := ReadTable(ctx, def, f)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Info("source read cancelled", "error", err)
		return Table{}, report, err
	}
	if err != nil {
		logger.Error("failed to read source file", "error", err)
		report.Status = LoadFailed
		report.Error = err.Error()
		return emptyTable(def), report, nil
	}

	report.Status = LoadOK
	report.Rows = table.Len()
	logger.Info("source file loaded", "rows", table.Len(), "columns", len(table.Columns))
	return table, report, nil
}

// ReadTable parses CSV data for def. Header names are matched
// case-insensitively; columns outside the schema are ignored and schema
// columns absent from the header are absent from the table.
func ReadTable(ctx context.Context, def EntityDefinition, r io.Reader) (Table, error) {
	reader := csv.NewReader(NewSourceReader(r))
	reader.FieldsPerRecord = -1 // checked below against the header width
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return Table{}, ErrEmptyFile
	}
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	idx := MakeHeaderIndex(header)
	var columns []string
	var specs []FieldSpec
	var positions []int
	for _, spec := range def.FieldSpecs {
		pos, ok := idx[spec.Name]
		if !ok {
			continue
		}
		columns = append(columns, spec.Name)
		specs = append(specs, spec)
		positions = append(positions, pos)
	}

	table := Table{Name: def.Info.Key, Columns: columns}
	for n := 1; ; n++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if len(row) > len(header) {
			line, _ := reader.FieldPos(0)
			return Table{}, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrInvalidCSV, line, len(row), len(header))
		}
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Table{}, err
			}
		}

		rec := make(Record, len(columns))
		for i, spec := range specs {
			raw := ""
			if positions[i] < len(row) {
				raw = row[positions[i]]
			}
			rec[spec.Name] = ParseCell(raw, spec.Type)
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

func emptyTable(def EntityDefinition) Table {
	return Table{Name: def.Info.Key, Columns: def.Info.Columns}
}
