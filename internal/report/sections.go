// Package report renders metric results as files: a sectioned CSV, a PDF
// summary with tables and bar charts, and an optional XLSX workbook.
package report

import (
	"math"
	"strconv"

	"github.com/JonMunkholm/talentmetrics/internal/metrics"
	"github.com/shopspring/decimal"
)

// Section is one titled table. Cells hold int64, float64, string or
// decimal.Decimal values; renderers format them.
type Section struct {
	Title  string
	Header []string
	Rows   [][]any
}

// Empty reports whether the section has no rows.
func (s Section) Empty() bool {
	return len(s.Rows) == 0
}

const headerFlowID = "Flow ID"

func flowCountSection(title, column string, counts []metrics.FlowCount) Section {
	s := Section{Title: title, Header: []string{headerFlowID, column}}
	for _, c := range counts {
		s.Rows = append(s.Rows, []any{c.FlowID, c.Count})
	}
	return s
}

func bucketSection(title, label, column string, buckets []metrics.Bucket) Section {
	s := Section{Title: title, Header: []string{label, column}}
	for _, b := range buckets {
		s.Rows = append(s.Rows, []any{b.Label, b.Count})
	}
	return s
}

// Sections lays out every metric in report order.
func Sections(r metrics.Results) []Section {
	votes := Section{Title: metrics.NameTotalVotes, Header: []string{headerFlowID, metrics.NameTotalVotes}}
	for _, v := range r.TotalVotes {
		votes.Rows = append(votes.Rows, []any{v.FlowID, v.Total})
	}

	conversion := Section{
		Title:  metrics.NameConversion,
		Header: []string{headerFlowID, metrics.NameUniqueParticipants, metrics.NameTotalApplications, metrics.NameConversion},
	}
	for _, c := range r.Conversion {
		conversion.Rows = append(conversion.Rows, []any{c.FlowID, c.Participants, c.Applications, c.Rate})
	}

	return []Section{
		flowCountSection(metrics.NameUniqueParticipants, metrics.NameUniqueParticipants, r.UniqueParticipants),
		flowCountSection(metrics.NameTotalApplications, metrics.NameTotalApplications, r.TotalApplications),
		votes,
		flowCountSection(metrics.NameTotalShares, metrics.NameTotalShares, r.TotalShares),
		flowCountSection(metrics.NameUniqueViews, metrics.NameUniqueViews, r.UniqueViews),
		flowCountSection(metrics.NameTotalViews, metrics.NameTotalViews, r.TotalViews),
		bucketSection(metrics.NameGender, "Gender", "Count", r.Gender),
		bucketSection(metrics.NameAge, "Age Range", "Count", r.Age),
		conversion,
		bucketSection(metrics.NameTopSkills, "Skill", "Count", r.TopSkills),
		bucketSection(metrics.NameMonthly, "Month", metrics.NameTotalApplications, r.Monthly),
		bucketSection(metrics.NameWeekly, "Week", metrics.NameTotalApplications, r.Weekly),
	}
}

// FormatCell renders a section cell as text. NaN renders empty; integral
// floats keep one decimal place ("100.0").
func FormatCell(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case decimal.Decimal:
		return x.String()
	case string:
		return x
	case nil:
		return ""
	}
	return ""
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 0):
		if f > 0 {
			return "inf"
		}
		return "-inf"
	case f == math.Trunc(f):
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatRow(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = FormatCell(v)
	}
	return out
}
