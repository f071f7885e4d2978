package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/grid-timeline/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/grid-timeline/internal/adapter/kafka"
	"github.com/couchcryptid/grid-timeline/internal/adapter/supabase"
	"github.com/couchcryptid/grid-timeline/internal/config"
	"github.com/couchcryptid/grid-timeline/internal/observability"
	"github.com/couchcryptid/grid-timeline/internal/pipeline"
	"github.com/couchcryptid/grid-timeline/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

// readiness is ready when every check passes.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		source pipeline.Source
		st     *store.Store
		db     *sql.DB
		checks readiness
	)
	switch cfg.Source {
	case config.SourceSupabase:
		source = supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTimeout, cfg.Location, metrics, logger)
		logger.Info("reading inputs from supabase", "url", cfg.SupabaseURL)
	default:
		db, err = store.Open(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open database", "error", err, "path", cfg.DBPath)
			os.Exit(1)
		}
		st = store.New(db, cfg.Location, logger)
		if err := st.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			db.Close()
			os.Exit(1)
		}
		source = st
		checks = append(checks, st)
		logger.Info("reading inputs from sqlite", "path", cfg.DBPath)
	}

	var (
		writer    *kafkaadapter.Writer
		publisher pipeline.DayPublisher
	)
	if cfg.PublishEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
	}

	refresher := pipeline.NewRefresher(source, publisher, clockwork.NewRealClock(), pipeline.RefreshConfig{
		Location: cfg.Location,
		Interval: cfg.RefreshInterval,
		PadMonth: cfg.PadMonth,
	}, logger, metrics)
	checks = append(checks, refresher)

	var reader *kafkaadapter.Reader
	var ingest *pipeline.Ingest
	if cfg.IngestEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		ingest = pipeline.NewIngest(reader, st, logger, metrics, cfg.BatchSize)
		ingest.OnStored(refresher.Trigger)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, checks, refresher, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()
	if ingest != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ingest.Run(ctx); err != nil {
				logger.Error("ingest error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()

	if err := closeAll(reader, writer, db); err != nil {
		logger.Error("close error", "error", err)
	}
	logger.Info("shutdown complete")
}

// closeAll closes whichever resources were opened.
func closeAll(reader *kafkaadapter.Reader, writer *kafkaadapter.Writer, db *sql.DB) error {
	var errs []error
	if reader != nil {
		if err := reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka reader: %w", err))
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka writer: %w", err))
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
