package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/grid-timeline/internal/domain"
	"github.com/couchcryptid/grid-timeline/internal/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// RecordSink stores parsed input records. Inserting a record twice must be
// harmless; inserted reports whether the row is new.
type RecordSink interface {
	InsertRecord(ctx context.Context, rec domain.Record) (inserted bool, err error)
}

// Ingest moves raw input records from Kafka into the record store.
type Ingest struct {
	extractor BatchExtractor
	sink      RecordSink
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
	onStored  func()
}

// NewIngest creates the ingest loop with the given stages and observability.
func NewIngest(e BatchExtractor, sink RecordSink, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Ingest {
	return &Ingest{
		extractor: e,
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// OnStored registers fn to be called after a batch adds at least one new record.
func (p *Ingest) OnStored(fn func()) {
	p.onStored = fn
}

// CheckReadiness returns nil once a batch has been stored.
func (p *Ingest) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("ingest has not stored any records yet")
	}
	return nil
}

// Run executes the extract-parse-store loop until the context is cancelled.
func (p *Ingest) Run(ctx context.Context) error {
	p.logger.Info("ingest started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("ingest stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-parse-store cycle. Returns false if the loop should stop.
func (p *Ingest) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	records, parsedRaws := p.parseBatch(ctx, rawBatch)
	if len(records) == 0 {
		return true
	}

	added, ok := p.storeBatch(ctx, records, backoff)
	if !ok {
		return false
	}

	for _, raw := range parsedRaws {
		p.commitOffset(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	if added > 0 && p.onStored != nil {
		p.onStored()
	}
	return true
}

// parseBatch parses every message. Unparseable messages are logged, counted,
// and committed so they are not redelivered.
func (p *Ingest) parseBatch(ctx context.Context, rawBatch []domain.RawMessage) ([]domain.Record, []domain.RawMessage) {
	records := make([]domain.Record, 0, len(rawBatch))
	parsedRaws := make([]domain.RawMessage, 0, len(rawBatch))

	for _, raw := range rawBatch {
		rec, err := domain.ParseRecord(raw)
		if err != nil {
			p.logger.Warn("parse failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.ParseErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		records = append(records, rec)
		parsedRaws = append(parsedRaws, raw)
	}
	return records, parsedRaws
}

// storeBatch inserts records in order, retrying from the failed record with
// backoff until it succeeds or the context ends. Returns the number of new rows
// and false if the loop should stop.
func (p *Ingest) storeBatch(ctx context.Context, records []domain.Record, backoff *time.Duration) (int, bool) {
	added := 0
	for i := 0; i < len(records); {
		inserted, err := p.sink.InsertRecord(ctx, records[i])
		if err != nil {
			p.logger.Error("store record failed", "error", err, "id", records[i].ID, "pending", len(records)-i)
			if !p.backoffOrStop(ctx, backoff) {
				return added, false
			}
			continue
		}
		if inserted {
			added++
			p.metrics.RecordsStored.WithLabelValues(string(records[i].Type)).Inc()
		}
		i++
	}
	*backoff = initialBackoff
	return added, true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the loop should stop.
func (p *Ingest) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sharedretry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = sharedretry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Ingest) commitOffset(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
