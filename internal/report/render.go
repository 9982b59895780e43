package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/talentmetrics/internal/config"
	"github.com/JonMunkholm/talentmetrics/internal/logging"
	"github.com/JonMunkholm/talentmetrics/internal/metrics"
)

// Artifact file names.
const (
	CSVName  = "metrics_report.csv"
	PDFName  = "metrics_report.pdf"
	XLSXName = "metrics_report.xlsx"
)

// ErrNotFound is returned by Lookup for names that are not a rendered artifact.
var ErrNotFound = errors.New("report not found")

// Artifact is a rendered report file.
type Artifact struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ContentType returns the MIME type for an artifact name.
func ContentType(name string) string {
	switch filepath.Ext(name) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

type output struct {
	name  string
	write func(io.Writer) error
}

// Renderer writes report artifacts into a directory.
type Renderer struct {
	Dir     string
	Version string
	XLSX    bool
	Now     func() time.Time
}

// NewRenderer creates a renderer from report settings.
func NewRenderer(cfg config.ReportConfig) *Renderer {
	return &Renderer{Dir: cfg.Dir, Version: cfg.Version, XLSX: cfg.XLSX, Now: time.Now}
}

// Render writes the CSV and PDF reports, and the workbook when enabled.
// Each file is written in full before it replaces any previous version.
func (r *Renderer) Render(ctx context.Context, res metrics.Results) ([]Artifact, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	meta := Meta{GeneratedAt: now(), Version: r.Version}
	sections := Sections(res)

	outputs := []output{
		{CSVName, func(w io.Writer) error { return WriteCSV(w, sections) }},
		{PDFName, func(w io.Writer) error { return WritePDF(w, res, meta) }},
	}
	if r.XLSX {
		outputs = append(outputs, output{XLSXName, func(w io.Writer) error {
			return WriteXLSX(w, append([]Section{KPISection(res)}, sections...))
		}})
	}

	artifacts := make([]Artifact, 0, len(outputs))
	for _, out := range outputs {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		a, err := r.writeFile(out.name, out.write)
		if err != nil {
			return artifacts, fmt.Errorf("render report %s: %w", out.name, err)
		}
		logging.FromContext(ctx).Info("report written", "path", a.Path, "bytes", a.Size)
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

func (r *Renderer) writeFile(name string, write func(io.Writer) error) (Artifact, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return Artifact{}, err
	}

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return Artifact{}, err
	}
	path := filepath.Join(r.Dir, name)
	tmp, err := os.CreateTemp(r.Dir, "."+name+".*")
	if err != nil {
		return Artifact{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return Artifact{}, err
	}
	if err := tmp.Close(); err != nil {
		return Artifact{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Name:        name,
		Path:        path,
		ContentType: ContentType(name),
		Size:        int64(buf.Len()),
	}, nil
}

// Lookup returns the artifact called name in dir. Only the known artifact
// names resolve, so name can come straight from a request path.
func Lookup(dir, name string) (Artifact, error) {
	switch name {
	case CSVName, PDFName, XLSXName:
	default:
		return Artifact{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return Artifact{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: name, Path: path, ContentType: ContentType(name), Size: info.Size()}, nil
}
