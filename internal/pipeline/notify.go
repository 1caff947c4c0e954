package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
	"github.com/couchcryptid/incident-aoi-notifier/internal/observability"
)

// ErrNoRenderer is reported for an AOI with matches when no map renderer is configured.
var ErrNoRenderer = errors.New("map renderer not configured: set MAPBOX_TOKEN")

// Sender delivers a notification through one transport.
type Sender interface {
	Name() string
	Send(ctx context.Context, n domain.Notification) error
}

// Status is the per-AOI result of the notify phase.
type Status string

const (
	StatusSent            Status = "sent"
	StatusNoIncidentsSent Status = "no_incidents_sent"
	StatusFailed          Status = "failed"
	StatusSkipped         Status = "skipped"
)

// Outcome records what happened to one AOI in a run.
type Outcome struct {
	AOI     string `json:"aoi"`
	Matches int    `json:"matches"`
	Status  Status `json:"status"`
	Err     error  `json:"-"`
}

// Notifier matches located incidents against AOIs and dispatches one
// notification per AOI to every sender.
type Notifier struct {
	senders     []Sender
	renderer    domain.MapRenderer
	rules       domain.StyleRules
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewNotifier creates a Notifier. renderer may be nil when no AOI is expected to match.
func NewNotifier(senders []Sender, renderer domain.MapRenderer, rules domain.StyleRules, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Notifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Notifier{
		senders:     senders,
		renderer:    renderer,
		rules:       rules,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Notify processes every AOI independently and returns one Outcome per AOI
// in input order. A failure for one AOI never affects another.
func (n *Notifier) Notify(ctx context.Context, located []domain.Located, aois []domain.AOI) []Outcome {
	outcomes := make([]Outcome, len(aois))

	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for i, aoi := range aois {
		g.Go(func() error {
			outcomes[i] = n.notifyOne(ctx, located, aoi)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (n *Notifier) notifyOne(ctx context.Context, located []domain.Located, aoi domain.AOI) Outcome {
	matches := n.rules.Annotate(domain.MatchAOI(located, aoi))
	out := Outcome{AOI: aoi.Name, Matches: len(matches)}
	n.metrics.AOIMatches.WithLabelValues(aoi.Name).Set(float64(len(matches)))
	n.logger.Info("aoi matched", "aoi", aoi.Name, "matches", len(matches))

	if len(matches) > 0 && n.renderer == nil {
		return n.fail(out, ErrNoRenderer)
	}
	msg, err := domain.Compose(aoi.Name, matches, n.renderer)
	if err != nil {
		return n.fail(out, err)
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, &domain.NotificationError{AOI: aoi.Name, Sink: s.Name(), Err: err})
		}
	}
	if err := errors.Join(errs...); err != nil {
		return n.fail(out, err)
	}

	out.Status = StatusSent
	if !msg.HasIncidents() {
		out.Status = StatusNoIncidentsSent
	}
	n.metrics.Notifications.WithLabelValues(string(out.Status)).Inc()
	n.logger.Info("notification sent", "aoi", aoi.Name, "subject", msg.Subject, "matches", len(matches))
	return out
}

func (n *Notifier) fail(out Outcome, err error) Outcome {
	out.Status = StatusFailed
	out.Err = err
	n.metrics.Notifications.WithLabelValues(string(StatusFailed)).Inc()
	n.logger.Error("notification failed", "aoi", out.AOI, "error", err)
	return out
}

// LogSender writes notifications to the logger instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a dry-run sink.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, n domain.Notification) error {
	s.logger.Info("notification",
		"aoi", n.AOI,
		"subject", n.Subject,
		"matches", len(n.Matches),
		"image_url", n.ImageURL,
	)
	return nil
}
