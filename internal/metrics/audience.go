package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/talentmetrics/internal/core"
)

// Age buckets, inclusive bounds. The last bucket is open ended.
var ageBuckets = []struct {
	label    string
	min, max int
}{
	{"<18", 0, 17},
	{"18-25", 18, 25},
	{"26-55", 26, 55},
	{"56+", 56, -1},
}

// GenderDistribution counts users per gender. Null genders are not counted.
func GenderDistribution(users core.Table) []Bucket {
	counts := make(map[string]int64)
	for _, rec := range users.Records {
		g := rec.Get("gender")
		if g.IsNull() {
			continue
		}
		counts[g.String()]++
	}
	return sortedBuckets(counts)
}

// AgeDistribution buckets users by year minus birth year. All four buckets
// are always present. Unparseable birth dates and negative ages are not
// counted.
func AgeDistribution(users core.Table, year int) []Bucket {
	out := make([]Bucket, len(ageBuckets))
	for i, b := range ageBuckets {
		out[i].Label = b.label
	}

	for _, rec := range users.Records {
		born, ok := rec.Get("birth_date").AsTime()
		if !ok {
			continue
		}
		age := year - born.Year()
		for i, b := range ageBuckets {
			if age >= b.min && (b.max < 0 || age <= b.max) {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// DecodeSkills splits an encoded skill list such as "['Go', 'SQL']" into
// lower-cased tokens. Brackets and quote characters are removed, tokens are
// split on commas and trimmed, and empty tokens are dropped.
func DecodeSkills(encoded string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '\'', '"':
			return -1
		}
		return r
	}, encoded)

	var out []string
	for _, tok := range strings.Split(cleaned, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// TopSkills counts skill tokens across resumes, most frequent first. Ties
// are ordered by skill name.
func TopSkills(resumes core.Table) []Bucket {
	counts := make(map[string]int64)
	for _, rec := range resumes.Records {
		v := rec.Get("skills")
		if v.IsNull() {
			continue
		}
		for _, skill := range DecodeSkills(v.String()) {
			counts[skill]++
		}
	}

	out := make([]Bucket, 0, len(counts))
	for skill, n := range counts {
		out = append(out, Bucket{Label: skill, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// MonthlyApplications counts exhibitions per YYYY-MM of created_at.
func MonthlyApplications(exhibited core.Table) []Bucket {
	return countByPeriod(exhibited, MonthLabel)
}

// WeeklyApplications counts exhibitions per Sunday-start week of created_at.
func WeeklyApplications(exhibited core.Table) []Bucket {
	return countByPeriod(exhibited, WeekLabel)
}

// MonthLabel formats t as YYYY-MM.
func MonthLabel(t time.Time) string {
	return t.Format("2006-01")
}

// WeekLabel formats t as YYYY-Www where ww is the week of the year with
// weeks starting on Sunday. Days before the first Sunday are in week 00.
func WeekLabel(t time.Time) string {
	yday := t.YearDay() - 1
	week := (yday + 7 - int(t.Weekday())) / 7
	return fmt.Sprintf("%04d-W%02d", t.Year(), week)
}

// countByPeriod groups rows by label(created_at). Rows whose created_at is
// not a timestamp are not counted.
func countByPeriod(t core.Table, label func(time.Time) string) []Bucket {
	counts := make(map[string]int64)
	for _, rec := range t.Records {
		when, ok := rec.Get("created_at").AsTime()
		if !ok {
			continue
		}
		counts[label(when)]++
	}
	return sortedBuckets(counts)
}

func sortedBuckets(counts map[string]int64) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for label, n := range counts {
		out = append(out, Bucket{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
