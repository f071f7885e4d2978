package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/grid-timeline/internal/domain"
	"github.com/couchcryptid/grid-timeline/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Source loads the full set of timeline inputs.
type Source interface {
	LoadInputs(ctx context.Context) (domain.Inputs, error)
}

// DayPublisher emits generated days downstream.
type DayPublisher interface {
	PublishDays(ctx context.Context, generatedAt time.Time, days []domain.Day) error
}

// RefreshConfig controls how and how often the timeline is regenerated.
type RefreshConfig struct {
	Location *time.Location
	Interval time.Duration
	PadMonth bool
}

// Snapshot is one complete regeneration of the timeline. It is never
// modified after it is published.
type Snapshot struct {
	Days        []domain.Day
	Events      []domain.PowerEvent
	Status      domain.Status
	Summary     domain.Summary
	GeneratedAt time.Time
}

// Day returns the day with the given date key.
func (s *Snapshot) Day(key string) (domain.Day, bool) {
	for _, d := range s.Days {
		if d.Key == key {
			return d, true
		}
	}
	return domain.Day{}, false
}

// Refresher regenerates the whole timeline from its source on a clock tick
// and publishes the days that changed.
type Refresher struct {
	source    Source
	publisher DayPublisher
	clock     clockwork.Clock
	cfg       RefreshConfig
	logger    *slog.Logger
	metrics   *observability.Metrics

	snapshot atomic.Pointer[Snapshot]
	trigger  chan struct{}

	mu        sync.Mutex // serializes refreshes; guards published
	published map[string][sha256.Size]byte
}

// NewRefresher creates a Refresher. publisher may be nil to skip publishing.
func NewRefresher(src Source, pub DayPublisher, clock clockwork.Clock, cfg RefreshConfig, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Refresher{
		source:    src,
		publisher: pub,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		trigger:   make(chan struct{}, 1),
		published: make(map[string][sha256.Size]byte),
	}
}

// Run refreshes immediately, then on every interval tick or trigger until the
// context is cancelled. Refresh failures are logged and retried on the next tick.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.cfg.Interval, "timezone", r.cfg.Location.String())

	ticker := r.clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.refreshAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.refreshAndLog(ctx)
		case <-r.trigger:
			r.refreshAndLog(ctx)
		}
	}
}

// Trigger requests a refresh ahead of the next tick. It never blocks.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Refresher) refreshAndLog(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("refresh failed", "error", err)
	}
}

// Refresh loads inputs, regenerates every day, swaps the snapshot, and
// publishes the days whose content changed since the last successful publish.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.clock.Now()

	in, err := r.source.LoadInputs(ctx)
	if err != nil {
		r.metrics.Refreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("load inputs: %w", err)
	}

	now := r.clock.Now().In(r.cfg.Location)
	days := domain.GenerateDays(in, now, domain.Options{PadMonth: r.cfg.PadMonth})

	snap := &Snapshot{
		Days:        days,
		Events:      in.Events,
		Status:      domain.CurrentStatus(in.Events, now),
		Summary:     domain.Summarize(days, now),
		GeneratedAt: now,
	}
	r.snapshot.Store(snap)
	r.updateGauges(snap, now)

	if err := r.publishChanged(ctx, now, days); err != nil {
		r.metrics.Refreshes.WithLabelValues("error").Inc()
		return err
	}

	r.metrics.Refreshes.WithLabelValues("success").Inc()
	r.metrics.RefreshDuration.Observe(r.clock.Since(start).Seconds())
	r.logger.Debug("timeline refreshed", "days", len(days), "events", len(in.Events))
	return nil
}

// Snapshot returns the latest snapshot, or nil before the first refresh.
func (r *Refresher) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// CheckReadiness returns nil once a snapshot exists.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if r.snapshot.Load() == nil {
		return errors.New("timeline has not been generated yet")
	}
	return nil
}

func (r *Refresher) updateGauges(snap *Snapshot, now time.Time) {
	r.metrics.DaysGenerated.Set(float64(len(snap.Days)))
	r.metrics.ScheduleAccuracy.Set(snap.Summary.ScheduleAccuracy)
	if today, ok := snap.Day(domain.DateKey(now)); ok {
		r.metrics.TodayQuality.Set(today.QualityIndex)
	}
}

// publishChanged sends the days whose fingerprint differs from the last
// published version. Fingerprints are only recorded after a successful write.
func (r *Refresher) publishChanged(ctx context.Context, generatedAt time.Time, days []domain.Day) error {
	if r.publisher == nil {
		return nil
	}

	var (
		changed []domain.Day
		prints  = make(map[string][sha256.Size]byte)
	)
	for _, d := range days {
		fp, err := fingerprint(d)
		if err != nil {
			return err
		}
		if prev, ok := r.published[d.Key]; ok && prev == fp {
			continue
		}
		changed = append(changed, d)
		prints[d.Key] = fp
	}
	if len(changed) == 0 {
		return nil
	}

	if err := r.publisher.PublishDays(ctx, generatedAt, changed); err != nil {
		return fmt.Errorf("publish days: %w", err)
	}
	for k, fp := range prints {
		r.published[k] = fp
	}
	r.metrics.DaysPublished.Add(float64(len(changed)))
	return nil
}

func fingerprint(d domain.Day) ([sha256.Size]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("fingerprint day %s: %w", d.Key, err)
	}
	return sha256.Sum256(data), nil
}
