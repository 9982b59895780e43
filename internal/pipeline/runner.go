// Package pipeline runs one full pass over the exported data: load, validate,
// compute metrics, render reports, persist the clean tables and notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/JonMunkholm/talentmetrics/internal/core"
	"github.com/JonMunkholm/talentmetrics/internal/logging"
	"github.com/JonMunkholm/talentmetrics/internal/metrics"
	"github.com/JonMunkholm/talentmetrics/internal/notify"
	"github.com/JonMunkholm/talentmetrics/internal/report"
	"github.com/JonMunkholm/talentmetrics/internal/storage"
	"github.com/google/uuid"
)

// ErrNoCompletedRun is returned by Latest before any run has succeeded.
var ErrNoCompletedRun = errors.New("no completed run")

// Summary is the headline of a run, also used as email template data.
type Summary struct {
	Flows        int    `json:"flows"`
	Applications int64  `json:"applications"`
	PeriodStart  string `json:"period_start,omitempty"`
	PeriodEnd    string `json:"period_end,omitempty"`
}

// Summarize derives the run headline from metric results.
func Summarize(res metrics.Results) Summary {
	s := Summary{Flows: len(res.TotalApplications)}
	for _, a := range res.TotalApplications {
		s.Applications += a.Count
	}
	if first, last, ok := res.Period(); ok {
		s.PeriodStart, s.PeriodEnd = first, last
	}
	return s
}

// RunResult describes a finished run.
type RunResult struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	DurationMS int64                   `json:"duration_ms"`
	Loads      []core.LoadReport       `json:"loads"`
	Validation []core.ValidationReport `json:"validation"`
	Summary    Summary                 `json:"summary"`
	Metrics    metrics.Results         `json:"metrics"`
	Artifacts  []report.Artifact       `json:"artifacts"`
	Saved      storage.SaveReport      `json:"saved"`
	Notified   bool                    `json:"notified"`
}

// Options wires a Runner. Store may be nil to skip persistence and Notifier
// may be nil to skip notification.
type Options struct {
	Loader      *core.Loader
	Engine      *metrics.Engine
	Renderer    *report.Renderer
	Store       storage.Gateway
	Notifier    notify.Notifier
	Receivers   []string
	TemplateID  string
	Limiter     *core.RunLimiter
	Instruments *Instruments
}

// Runner executes pipeline runs, one at a time.
type Runner struct {
	opts Options

	mu     sync.RWMutex
	latest *RunResult
}

// New creates a runner. Missing engine, limiter and instruments get defaults.
func New(opts Options) *Runner {
	if opts.Engine == nil {
		opts.Engine = metrics.NewEngine()
	}
	if opts.Limiter == nil {
		opts.Limiter = core.NewRunLimiter(core.DefaultMaxConcurrentRuns, core.DefaultRunWaitTime)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Instruments == nil {
		opts.Instruments = NewInstruments(nil)
	}
	return &Runner{opts: opts}
}

// Limiter returns the limiter guarding runs.
func (r *Runner) Limiter() *core.RunLimiter {
	return r.opts.Limiter
}

// ReportDir returns the directory artifacts are written to.
func (r *Runner) ReportDir() string {
	return r.opts.Renderer.Dir
}

// Latest returns the most recent successful run.
func (r *Runner) Latest() (RunResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return RunResult{}, ErrNoCompletedRun
	}
	return *r.latest, nil
}

// Run executes one pass. It returns core.ErrRunInProgress when another run
// holds the limiter. A failed notification does not fail the run.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	if err := r.opts.Limiter.Acquire(ctx); err != nil {
		return RunResult{}, err
	}
	defer r.opts.Limiter.Release()

	res := RunResult{RunID: uuid.NewString(), StartedAt: time.Now()}
	ctx = logging.WithRunID(ctx, res.RunID)
	logger := logging.FromContext(ctx)
	logger.Info("run started", "data_dir", r.opts.Loader.Dir())

	err := r.run(ctx, &res)
	elapsed := time.Since(res.StartedAt)
	res.DurationMS = elapsed.Milliseconds()

	if err != nil {
		r.opts.Instruments.finished("failure", elapsed)
		logger.Error("run failed", "error", err, "duration", elapsed)
		return res, err
	}

	r.opts.Instruments.finished("success", elapsed)
	logger.Info("run completed",
		"duration", elapsed,
		"flows", res.Summary.Flows,
		"applications", res.Summary.Applications,
		"rows_stored", res.Saved.Rows(),
	)

	r.mu.Lock()
	latest := res
	r.latest = &latest
	r.mu.Unlock()
	return res, nil
}

func (r *Runner) run(ctx context.Context, res *RunResult) error {
	rs, loads, err := r.opts.Loader.Load(ctx)
	res.Loads = loads
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	r.opts.Instruments.loaded(loads)

	clean, reports, err := core.ValidateAll(ctx, rs)
	res.Validation = reports
	if err != nil {
		return err
	}
	r.opts.Instruments.validated(reports)

	results, err := r.opts.Engine.ComputeAll(ctx, clean)
	if err != nil {
		return fmt.Errorf("compute metrics: %w", err)
	}
	res.Metrics = results
	res.Summary = Summarize(results)

	artifacts, err := r.opts.Renderer.Render(ctx, results)
	res.Artifacts = artifacts
	if err != nil {
		return err
	}

	if err := r.persist(ctx, clean, res); err != nil {
		return err
	}

	res.Notified = r.notify(ctx, res)
	return nil
}

func (r *Runner) persist(ctx context.Context, rs core.RecordSet, res *RunResult) error {
	store := r.opts.Store
	if store == nil {
		logging.FromContext(ctx).Info("no store configured, skipping persistence")
		return nil
	}

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	saved, err := store.Save(ctx, rs)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	res.Saved = saved
	for _, t := range saved.Tables {
		if !t.Skipped {
			r.opts.Instruments.stored(t.Entity, t.Rows)
		}
	}
	return nil
}

// notify emails the PDF and CSV artifacts.
func (r *Runner) notify(ctx context.Context, res *RunResult) bool {
	msg := notify.Message{
		Receivers:  r.opts.Receivers,
		TemplateID: r.opts.TemplateID,
		Data:       templateData(res),
	}

	for _, a := range res.Artifacts {
		if a.Name != report.PDFName && a.Name != report.CSVName {
			continue
		}
		content, err := os.ReadFile(a.Path)
		if err != nil {
			logging.FromContext(ctx).Error("failed to attach report", "path", a.Path, "error", err)
			continue
		}
		msg.Attachments = append(msg.Attachments, notify.Attachment{
			Filename: a.Name,
			Type:     a.ContentType,
			Content:  content,
		})
	}

	return r.opts.Notifier.Send(ctx, msg)
}

func templateData(res *RunResult) map[string]any {
	period := "not available"
	if res.Summary.PeriodStart != "" {
		period = res.Summary.PeriodStart + " to " + res.Summary.PeriodEnd
	}
	return map[string]any{
		"run_id":            res.RunID,
		"generated_at":      res.StartedAt.Format("2006-01-02 15:04:05"),
		"period":            period,
		"flow_count":        res.Summary.Flows,
		"application_count": res.Summary.Applications,
	}
}
