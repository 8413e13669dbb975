package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumenmap/lightwatch/internal/domain"
	"github.com/lumenmap/lightwatch/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the push feed.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// StateApplier receives decoded feed events and derives light status.
// Implemented by engine.Engine.
type StateApplier interface {
	ApplyEvent(ev domain.FeedEvent) error
	DeriveStatus() domain.StatusMap
}

// StatusPublisher pushes changed light statuses downstream.
type StatusPublisher interface {
	PublishStatuses(ctx context.Context, statuses []domain.LightStatus) error
}

// Feed runs the extract-apply-publish loop that keeps the engine state in
// sync with the push feed.
type Feed struct {
	extractor BatchExtractor
	state     StateApplier
	publisher StatusPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int

	// lastStatus remembers the previously published label per light so only
	// changes go downstream.
	lastStatus map[string]domain.Status
}

// New creates a Feed. publisher may be nil to disable downstream publishing.
func New(e BatchExtractor, s StateApplier, p StatusPublisher, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Feed {
	return &Feed{
		extractor:  e,
		state:      s,
		publisher:  p,
		logger:     logger,
		metrics:    metrics,
		batchSize:  batchSize,
		lastStatus: make(map[string]domain.Status),
	}
}

// Run executes the feed loop until the context is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	f.logger.Info("feed started", "batch_size", f.batchSize)
	f.metrics.FeedRunning.Set(1)
	defer f.metrics.FeedRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during feed outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("feed stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !f.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-apply-publish cycle. Returns false if the
// feed should stop.
func (f *Feed) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := f.extractor.ExtractBatch(ctx, f.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		f.logger.Error("extract batch failed", "error", err)
		return f.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	f.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	applied := 0
	for _, raw := range rawBatch {
		ev, err := domain.ParseFeedEvent(raw)
		if err != nil {
			// A malformed row can never become applicable; skip and commit so
			// it is not redelivered forever.
			f.logger.Warn("feed event rejected",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			f.metrics.FeedParseErrors.Inc()
			f.commitOffset(ctx, raw)
			continue
		}

		if err := f.state.ApplyEvent(ev); err != nil {
			f.logger.Warn("feed event not applied", "error", err, "offset", raw.Offset)
			f.metrics.FeedParseErrors.Inc()
			f.commitOffset(ctx, raw)
			continue
		}

		applied++
		f.metrics.FeedEventsApplied.Inc()
		f.commitOffset(ctx, raw)
	}

	if applied > 0 {
		f.publishChanges(ctx)
		f.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}
	return true
}

// publishChanges derives the full status map and pushes only the lights
// whose label changed since the last publish.
func (f *Feed) publishChanges(ctx context.Context) {
	derived := f.state.DeriveStatus()

	var changed []domain.LightStatus
	for id, st := range derived {
		prev, known := f.lastStatus[id]
		if known && prev == st.Status {
			continue
		}
		changed = append(changed, st)
		f.lastStatus[id] = st.Status
		if st.ResolvedByConsensus && (!known || prev != domain.StatusOperational) {
			f.metrics.ConsensusResolve.Inc()
		}
	}

	if len(changed) == 0 || f.publisher == nil {
		return
	}

	if err := f.publisher.PublishStatuses(ctx, changed); err != nil {
		// Publishing is best-effort; the next change republishes the light.
		f.logger.Warn("status publish failed", "error", err, "count", len(changed))
		return
	}
	f.metrics.StatusesPublished.Add(float64(len(changed)))
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the feed should stop.
func (f *Feed) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (f *Feed) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		f.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
