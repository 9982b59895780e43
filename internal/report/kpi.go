package report

import (
	"github.com/JonMunkholm/talentmetrics/internal/metrics"
	"github.com/shopspring/decimal"
)

// KPI is one flow's row of the summary table.
type KPI struct {
	FlowID       int64           `json:"flow_id"`
	Participants int64           `json:"participants"`
	Applications int64           `json:"applications"`
	Votes        decimal.Decimal `json:"votes"`
	Shares       int64           `json:"shares"`
	UniqueViews  int64           `json:"unique_views"`
	TotalViews   int64           `json:"total_views"`
}

// KPIs builds the summary table. Rows come from Unique Participants; the
// other per-flow metrics are left-joined on flow id with missing values
// filled with zero.
func KPIs(r metrics.Results) []KPI {
	apps := countIndex(r.TotalApplications)
	shares := countIndex(r.TotalShares)
	unique := countIndex(r.UniqueViews)
	total := countIndex(r.TotalViews)
	votes := make(map[int64]decimal.Decimal, len(r.TotalVotes))
	for _, v := range r.TotalVotes {
		votes[v.FlowID] = v.Total
	}

	out := make([]KPI, 0, len(r.UniqueParticipants))
	for _, p := range r.UniqueParticipants {
		out = append(out, KPI{
			FlowID:       p.FlowID,
			Participants: p.Count,
			Applications: apps[p.FlowID],
			Votes:        votes[p.FlowID],
			Shares:       shares[p.FlowID],
			UniqueViews:  unique[p.FlowID],
			TotalViews:   total[p.FlowID],
		})
	}
	return out
}

func countIndex(counts []metrics.FlowCount) map[int64]int64 {
	idx := make(map[int64]int64, len(counts))
	for _, c := range counts {
		idx[c.FlowID] = c.Count
	}
	return idx
}

// KPISection renders KPIs as a table.
func KPISection(r metrics.Results) Section {
	s := Section{
		Title:  "KPIs",
		Header: []string{headerFlowID, "Participants", "Applications", "Votes", "Shares", "Unique Views", "Total Views"},
	}
	for _, k := range KPIs(r) {
		s.Rows = append(s.Rows, []any{k.FlowID, k.Participants, k.Applications, k.Votes, k.Shares, k.UniqueViews, k.TotalViews})
	}
	return s
}
