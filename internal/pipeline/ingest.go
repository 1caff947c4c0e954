package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
	"github.com/couchcryptid/incident-aoi-notifier/internal/observability"
)

// FeedFetcher returns the current full snapshot of the incident feed.
type FeedFetcher interface {
	Fetch(ctx context.Context) ([]domain.FeedRow, error)
}

// IncidentStore is the append-only record store.
type IncidentStore interface {
	All(ctx context.Context) ([]domain.Incident, error)
	Append(ctx context.Context, incidents []domain.Incident) (int, error)
	LatestBatch(ctx context.Context) (domain.Batch, error)
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	AccessedAt string `json:"accessed_at"`
	Fetched    int    `json:"fetched"`
	New        int    `json:"new"`
}

// Ingester appends the feed rows not yet present in the store.
type Ingester struct {
	feed    FeedFetcher
	store   IncidentStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewIngester creates an Ingester.
func NewIngester(feed FeedFetcher, store IncidentStore, logger *slog.Logger, metrics *observability.Metrics) *Ingester {
	return &Ingester{feed: feed, store: store, logger: logger, metrics: metrics}
}

// Ingest fetches the feed, stamps it with the current time and appends every
// row whose identity is not already stored. Nothing is written on error.
func (i *Ingester) Ingest(ctx context.Context) (IngestResult, error) {
	rows, err := i.feed.Fetch(ctx)
	if err != nil {
		i.metrics.IngestRuns.WithLabelValues(outcomeLabel(err)).Inc()
		return IngestResult{}, err
	}
	accessedAt := domain.Stamp(domain.Now())
	i.metrics.FeedRowsFetched.Add(float64(len(rows)))

	history, err := i.store.All(ctx)
	if err != nil {
		i.metrics.IngestRuns.WithLabelValues(outcomeLabel(err)).Inc()
		return IngestResult{}, err
	}

	fresh := domain.Delta(history, rows, accessedAt)
	n, err := i.store.Append(ctx, fresh)
	if err != nil {
		i.metrics.IngestRuns.WithLabelValues(outcomeLabel(err)).Inc()
		return IngestResult{}, err
	}

	i.metrics.IncidentsIngested.Add(float64(n))
	i.metrics.IngestRuns.WithLabelValues("success").Inc()
	res := IngestResult{AccessedAt: accessedAt, Fetched: len(rows), New: n}
	i.logger.Info("ingest complete", "fetched", res.Fetched, "new", res.New, "accessed_at", res.AccessedAt)
	return res, nil
}

func outcomeLabel(err error) string {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return "fetch_error"
	}
	return "store_error"
}
