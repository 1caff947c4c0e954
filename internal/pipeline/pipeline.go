package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
	"github.com/couchcryptid/incident-aoi-notifier/internal/observability"
)

// AOISource loads the configured areas of interest. failed holds one
// *domain.GeometryParseError per unusable AOI; err means none could be read.
type AOISource interface {
	LoadAOIs() (aois []domain.AOI, failed []error, err error)
}

// Report summarizes one run.
type Report struct {
	Ingest          IngestResult  `json:"ingest"`
	BatchAccessedAt string        `json:"batch_accessed_at,omitempty"`
	BatchSize       int           `json:"batch_size"`
	LocationErrors  int           `json:"location_errors"`
	Outcomes        []Outcome     `json:"outcomes"`
	Duration        time.Duration `json:"duration"`
}

// Count returns the number of outcomes with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Pipeline runs ingestion followed by matching and notification.
type Pipeline struct {
	ingester *Ingester
	store    IncidentStore
	aois     AOISource
	notifier *Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
	last     atomic.Pointer[Report]
}

// New creates a Pipeline with the given stages and observability.
func New(ingester *Ingester, store IncidentStore, aois AOISource, notifier *Notifier, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		ingester: ingester,
		store:    store,
		aois:     aois,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a run has completed ingestion.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no run has completed yet")
	}
	return nil
}

// LastReport returns the report of the most recent completed run.
func (p *Pipeline) LastReport() (Report, bool) {
	r := p.last.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}

// Run ingests the feed, then notifies every AOI about the newest batch.
// Only ingestion and batch-read failures are returned; notification
// problems are reported per AOI in the Report.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	res, err := p.ingester.Ingest(ctx)
	if err != nil {
		p.logger.Error("ingest failed", "error", err)
		return Report{}, err
	}
	report := Report{Ingest: res}

	batch, err := p.store.LatestBatch(ctx)
	if err != nil {
		p.logger.Error("read latest batch failed", "error", err)
		return report, err
	}

	switch {
	case batch.Empty():
		p.logger.Info("store is empty, skipping notify phase")
	case batch.AccessedAt != res.AccessedAt:
		// Nothing new this run: every AOI gets a "no incidents" message.
		report.BatchAccessedAt = batch.AccessedAt
		p.notify(ctx, nil, &report)
	default:
		p.notify(ctx, batch.Incidents, &report)
		report.BatchAccessedAt = batch.AccessedAt
	}

	return p.finish(report, start), nil
}

// RunNotifyOnly notifies every AOI about the store's newest batch without ingesting.
func (p *Pipeline) RunNotifyOnly(ctx context.Context) (Report, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	batch, err := p.store.LatestBatch(ctx)
	if err != nil {
		p.logger.Error("read latest batch failed", "error", err)
		return Report{}, err
	}
	var report Report
	if batch.Empty() {
		p.logger.Info("store is empty, skipping notify phase")
		return p.finish(report, start), nil
	}
	report.BatchAccessedAt = batch.AccessedAt
	p.notify(ctx, batch.Incidents, &report)
	return p.finish(report, start), nil
}

func (p *Pipeline) notify(ctx context.Context, incidents []domain.Incident, report *Report) {
	report.BatchSize = len(incidents)
	p.metrics.BatchSize.Set(float64(len(incidents)))

	aois, failed, err := p.aois.LoadAOIs()
	if err != nil {
		p.logger.Error("load AOIs failed, skipping notify phase", "error", err)
		return
	}
	for _, ferr := range failed {
		name := ""
		var perr *domain.GeometryParseError
		if errors.As(ferr, &perr) {
			name = perr.Subject
		}
		p.logger.Warn("skipping AOI", "aoi", name, "error", ferr)
		p.metrics.Notifications.WithLabelValues(string(StatusSkipped)).Inc()
		report.Outcomes = append(report.Outcomes, Outcome{AOI: name, Status: StatusSkipped, Err: ferr})
	}

	located, locErrs := domain.Locate(incidents)
	for _, lerr := range locErrs {
		p.logger.Warn("incident location unusable", "error", lerr)
	}
	report.LocationErrors = len(locErrs)
	p.metrics.LocationParseErrors.Add(float64(len(locErrs)))

	report.Outcomes = append(report.Outcomes, p.notifier.Notify(ctx, located, aois)...)

	p.logger.Info("notify phase complete",
		"aois", len(report.Outcomes),
		"sent", report.Count(StatusSent),
		"no_incidents_sent", report.Count(StatusNoIncidentsSent),
		"failed", report.Count(StatusFailed),
		"skipped", report.Count(StatusSkipped),
	)
}

func (p *Pipeline) finish(report Report, start time.Time) Report {
	report.Duration = time.Since(start)
	p.metrics.RunDuration.Observe(report.Duration.Seconds())
	p.metrics.LastSuccessfulRun.SetToCurrentTime()
	p.last.Store(&report)
	p.ready.Store(true)
	return report
}
