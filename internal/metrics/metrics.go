// Package metrics computes engagement aggregates over a validated record set.
//
// Every metric is a pure function of the tables it reads. Grouped results are
// ordered by their key so reports are deterministic; Top Skills is ordered by
// count. Missing or empty tables yield empty results, never errors.
package metrics

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/JonMunkholm/talentmetrics/internal/core"
	"github.com/JonMunkholm/talentmetrics/internal/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Metric names, in report order.
const (
	NameUniqueParticipants = "Unique Participants"
	NameTotalApplications  = "Total Applications"
	NameTotalVotes         = "Total Votes"
	NameTotalShares        = "Total Shares"
	NameUniqueViews        = "Unique Views"
	NameTotalViews         = "Total Views"
	NameGender             = "Gender Distribution"
	NameAge                = "Age Distribution"
	NameConversion         = "Conversion Rate"
	NameTopSkills          = "Top Skills"
	NameMonthly            = "Monthly Metrics"
	NameWeekly             = "Weekly Metrics"
)

// Names lists every metric in report order.
var Names = []string{
	NameUniqueParticipants,
	NameTotalApplications,
	NameTotalVotes,
	NameTotalShares,
	NameUniqueViews,
	NameTotalViews,
	NameGender,
	NameAge,
	NameConversion,
	NameTopSkills,
	NameMonthly,
	NameWeekly,
}

// FlowCount is a per-flow count.
type FlowCount struct {
	FlowID int64 `json:"flow_id"`
	Count  int64 `json:"count"`
}

// FlowTotal is a per-flow sum.
type FlowTotal struct {
	FlowID int64           `json:"flow_id"`
	Total  decimal.Decimal `json:"total"`
}

// Conversion relates unique participants to applications for one flow.
// Rate is a percentage, NaN when the flow has no applications.
type Conversion struct {
	FlowID       int64   `json:"flow_id"`
	Participants int64   `json:"participants"`
	Applications int64   `json:"applications"`
	Rate         float64 `json:"rate"`
}

// MarshalJSON writes a NaN rate as null.
func (c Conversion) MarshalJSON() ([]byte, error) {
	type plain Conversion
	out := struct {
		plain
		Rate *float64 `json:"rate"`
	}{plain: plain(c)}
	if !math.IsNaN(c.Rate) && !math.IsInf(c.Rate, 0) {
		rate := c.Rate
		out.Rate = &rate
	}
	return json.Marshal(out)
}

// Bucket is a labelled count: a gender, an age range, a skill or a period.
type Bucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Results holds every metric of one run.
type Results struct {
	UniqueParticipants []FlowCount  `json:"unique_participants"`
	TotalApplications  []FlowCount  `json:"total_applications"`
	TotalVotes         []FlowTotal  `json:"total_votes"`
	TotalShares        []FlowCount  `json:"total_shares"`
	UniqueViews        []FlowCount  `json:"unique_views"`
	TotalViews         []FlowCount  `json:"total_views"`
	Gender             []Bucket     `json:"gender"`
	Age                []Bucket     `json:"age"`
	Conversion         []Conversion `json:"conversion"`
	TopSkills          []Bucket     `json:"top_skills"`
	Monthly            []Bucket     `json:"monthly"`
	Weekly             []Bucket     `json:"weekly"`
}

// Period returns the first and last month of Monthly. ok is false when no
// application has a usable timestamp.
func (r Results) Period() (first, last string, ok bool) {
	if len(r.Monthly) == 0 {
		return "", "", false
	}
	return r.Monthly[0].Label, r.Monthly[len(r.Monthly)-1].Label, true
}

// Engine computes metrics. Now supplies the reference date for ages and
// defaults to time.Now.
type Engine struct {
	Now func() time.Time
}

// NewEngine creates an engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e == nil || e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// ComputeAll computes every metric over rs. Independent metrics run
// concurrently; Conversion Rate runs once its two inputs are ready.
// The only error is cancellation of ctx.
func (e *Engine) ComputeAll(ctx context.Context, rs core.RecordSet) (Results, error) {
	var r Results

	resumes := rs.Get("resumes")
	exhibited := rs.Get("resumes_exhibited")
	votes := rs.Get("votes")
	shares := rs.Get("shares")
	views := rs.Get("views")
	users := rs.Get("users")
	year := e.now().Year()

	g, gctx := errgroup.WithContext(ctx)
	run := func(fn func()) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}

	// Each task writes a distinct field of r.
	run(func() { r.UniqueParticipants = UniqueParticipants(resumes, exhibited) })
	run(func() { r.TotalApplications = TotalApplications(exhibited) })
	run(func() { r.TotalVotes = TotalVotes(votes) })
	run(func() { r.TotalShares = TotalShares(shares) })
	run(func() { r.UniqueViews = UniqueViews(views) })
	run(func() { r.TotalViews = TotalViews(views) })
	run(func() { r.Gender = GenderDistribution(users) })
	run(func() { r.Age = AgeDistribution(users, year) })
	run(func() { r.TopSkills = TopSkills(resumes) })
	run(func() { r.Monthly = MonthlyApplications(exhibited) })
	run(func() { r.Weekly = WeeklyApplications(exhibited) })

	if err := g.Wait(); err != nil {
		return Results{}, err
	}
	if err := ctx.Err(); err != nil {
		return Results{}, err
	}

	r.Conversion = ConversionRate(r.UniqueParticipants, r.TotalApplications)

	logging.FromContext(ctx).Info("metrics computed",
		"flows", len(r.TotalApplications),
		"skills", len(r.TopSkills),
		"months", len(r.Monthly),
		"weeks", len(r.Weekly),
	)
	return r, nil
}
