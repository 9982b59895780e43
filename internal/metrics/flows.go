package metrics

import (
	"math"
	"sort"

	"github.com/JonMunkholm/talentmetrics/internal/core"
	"github.com/shopspring/decimal"
)

// flowID returns the integer model_id of rec. Rows whose model_id is null or
// not an integer belong to no flow.
func flowID(rec core.Record) (int64, bool) {
	return rec.Get("model_id").AsInt()
}

// countByFlow counts the rows of t per flow.
func countByFlow(t core.Table) []FlowCount {
	counts := make(map[int64]int64)
	for _, rec := range t.Records {
		id, ok := flowID(rec)
		if !ok {
			continue
		}
		counts[id]++
	}
	return sortedCounts(counts)
}

// distinctByFlow counts distinct non-null values per flow. value returns the
// value to count for a row. Flows whose rows all have null values report 0.
func distinctByFlow(t core.Table, value func(core.Record) core.Value) []FlowCount {
	seen := make(map[int64]map[string]struct{})
	for _, rec := range t.Records {
		id, ok := flowID(rec)
		if !ok {
			continue
		}
		set, ok := seen[id]
		if !ok {
			set = make(map[string]struct{})
			seen[id] = set
		}
		if v := value(rec); !v.IsNull() {
			set[v.Key()] = struct{}{}
		}
	}

	counts := make(map[int64]int64, len(seen))
	for id, set := range seen {
		counts[id] = int64(len(set))
	}
	return sortedCounts(counts)
}

func sortedCounts(counts map[int64]int64) []FlowCount {
	out := make([]FlowCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, FlowCount{FlowID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlowID < out[j].FlowID })
	return out
}

// UniqueParticipants counts distinct users per flow. Participant identity
// lives on the resume, so each exhibition is joined to its resume by
// resume_id; exhibitions without a matching resume contribute no user.
func UniqueParticipants(resumes, exhibited core.Table) []FlowCount {
	owner := make(map[string]core.Value, resumes.Len())
	for _, rec := range resumes.Records {
		id := rec.Get("id")
		if id.IsNull() {
			continue
		}
		if _, dup := owner[id.Key()]; !dup {
			owner[id.Key()] = rec.Get("user_id")
		}
	}

	return distinctByFlow(exhibited, func(rec core.Record) core.Value {
		return owner[rec.Get("resume_id").Key()]
	})
}

// TotalApplications counts exhibitions per flow.
func TotalApplications(exhibited core.Table) []FlowCount {
	return countByFlow(exhibited)
}

// TotalVotes sums vote values per flow. Non-numeric values are skipped.
func TotalVotes(votes core.Table) []FlowTotal {
	totals := make(map[int64]decimal.Decimal)
	for _, rec := range votes.Records {
		id, ok := flowID(rec)
		if !ok {
			continue
		}
		sum := totals[id]
		if v, ok := rec.Get("value").AsDecimal(); ok {
			sum = sum.Add(v)
		}
		totals[id] = sum
	}

	out := make([]FlowTotal, 0, len(totals))
	for id, sum := range totals {
		out = append(out, FlowTotal{FlowID: id, Total: sum})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlowID < out[j].FlowID })
	return out
}

// TotalShares counts shares per flow.
func TotalShares(shares core.Table) []FlowCount {
	return countByFlow(shares)
}

// UniqueViews counts distinct viewing users per flow.
func UniqueViews(views core.Table) []FlowCount {
	return distinctByFlow(views, func(rec core.Record) core.Value {
		return rec.Get("user_id")
	})
}

// TotalViews counts views per flow.
func TotalViews(views core.Table) []FlowCount {
	return countByFlow(views)
}

// ConversionRate joins participants and applications on flow id. Flows
// present in only one input are dropped. The rate is
// participants / applications * 100, NaN for zero applications.
func ConversionRate(participants, applications []FlowCount) []Conversion {
	apps := make(map[int64]int64, len(applications))
	for _, a := range applications {
		apps[a.FlowID] = a.Count
	}

	out := make([]Conversion, 0, len(participants))
	for _, p := range participants {
		n, ok := apps[p.FlowID]
		if !ok {
			continue
		}
		rate := math.NaN()
		if n != 0 {
			rate = float64(p.Count) / float64(n) * 100
		}
		out = append(out, Conversion{
			FlowID:       p.FlowID,
			Participants: p.Count,
			Applications: n,
			Rate:         rate,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlowID < out[j].FlowID })
	return out
}
