package report

import (
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/talentmetrics/internal/metrics"
	"github.com/go-pdf/fpdf"
)

// Meta describes a rendered report.
type Meta struct {
	GeneratedAt time.Time
	Version     string
}

const (
	pdfMargin    = 10.0
	chartHeight  = 60.0
	chartLabelsH = 18.0
)

// Trend chart bar colours.
var (
	monthColor = [3]int{76, 114, 176}
	weekColor  = [3]int{85, 168, 104}
)

type pdfReport struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFReport(meta Meta) *pdfReport {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetCreationDate(meta.GeneratedAt)
	pdf.SetModificationDate(meta.GeneratedAt)
	pdf.SetTitle("Metrics Report", true)

	r := &pdfReport{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, "Metrics Report", "", 1, "C", false, 0, "")
		pdf.Ln(3)
	})
	return r
}

func (r *pdfReport) title(text string) {
	r.pdf.SetFont("Arial", "B", 12)
	r.pdf.CellFormat(0, 10, r.tr(text), "", 1, "", false, 0, "")
	r.pdf.Ln(2)
}

func (r *pdfReport) paragraph(text string) {
	r.pdf.SetFont("Arial", "", 10)
	r.pdf.MultiCell(0, 6, r.tr(text), "", "", false)
	r.pdf.Ln(2)
}

// table draws s with equal-width bordered cells.
func (r *pdfReport) table(s Section) {
	if s.Empty() {
		r.paragraph("No data available.")
		return
	}

	pageW, _ := r.pdf.GetPageSize()
	colW := pageW / float64(len(s.Header)+1)

	r.pdf.SetFont("Arial", "B", 9)
	for _, h := range s.Header {
		r.pdf.CellFormat(colW, 8, r.tr(h), "1", 0, "", false, 0, "")
	}
	r.pdf.Ln(-1)

	r.pdf.SetFont("Arial", "", 9)
	for _, row := range s.Rows {
		for _, cell := range formatRow(row) {
			r.pdf.CellFormat(colW, 8, r.tr(cell), "1", 0, "", false, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.Ln(5)
}

// barChart draws a vertical bar chart of buckets with rotated labels.
func (r *pdfReport) barChart(title, axis string, buckets []metrics.Bucket, color [3]int) {
	pdf := r.pdf
	pageW, pageH := pdf.GetPageSize()
	needed := 8 + chartHeight + chartLabelsH + 5
	if pdf.GetY()+needed > pageH-pdfMargin {
		pdf.AddPage()
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 8, r.tr(title), "", 1, "C", false, 0, "")

	if len(buckets) == 0 {
		r.paragraph("No data available.")
		return
	}

	var max int64
	for _, b := range buckets {
		if b.Count > max {
			max = b.Count
		}
	}

	const axisW = 12.0
	left := pdfMargin + axisW
	areaW := pageW - 2*pdfMargin - axisW
	top := pdf.GetY()
	bottom := top + chartHeight

	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(left, top, left, bottom)
	pdf.Line(left, bottom, left+areaW, bottom)

	pdf.SetFont("Arial", "", 7)
	pdf.Text(pdfMargin, top+3, fmt.Sprint(max))
	pdf.Text(pdfMargin, bottom, "0")

	slot := areaW / float64(len(buckets))
	barW := slot * 0.8
	pdf.SetFillColor(color[0], color[1], color[2])
	for i, b := range buckets {
		h := 0.0
		if max > 0 {
			h = chartHeight * float64(b.Count) / float64(max)
		}
		x := left + float64(i)*slot + (slot-barW)/2
		pdf.Rect(x, bottom-h, barW, h, "F")

		lx, ly := x+barW/2, bottom+2
		pdf.TransformBegin()
		pdf.TransformRotate(-45, lx, ly)
		pdf.Text(lx, ly+2, r.tr(b.Label))
		pdf.TransformEnd()
	}

	pdf.SetY(bottom + chartLabelsH)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, r.tr(axis), "", 1, "C", false, 0, "")
	pdf.Ln(5)
}

// WritePDF renders the summary document: generation details, KPI and
// distribution tables, and application trends by month and week.
func WritePDF(w io.Writer, res metrics.Results, meta Meta) error {
	r := newPDFReport(meta)
	pdf := r.pdf
	pdf.AddPage()

	r.paragraph("Generated at: " + meta.GeneratedAt.Format("2006-01-02 15:04:05"))
	if first, last, ok := res.Period(); ok {
		r.paragraph(fmt.Sprintf("Analyzed period: %s to %s", first, last))
	} else {
		r.paragraph("Analyzed period: not available")
	}
	r.paragraph("Report version: " + meta.Version)

	r.title("KPIs")
	r.table(KPISection(res))

	sections := Sections(res)
	for _, name := range []string{metrics.NameGender, metrics.NameAge, metrics.NameTopSkills, metrics.NameConversion} {
		for _, s := range sections {
			if s.Title == name {
				r.title(s.Title)
				r.table(s)
			}
		}
	}

	r.title("Trends")
	r.barChart("Applications per Month", "Month", res.Monthly, monthColor)
	r.barChart("Applications per Week", "Week", res.Weekly, weekColor)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return pdf.Output(w)
}
