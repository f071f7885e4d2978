// Package supabase reads the events, attacks, and schedule tables from a
// Supabase project through its PostgREST endpoint.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/grid-timeline/internal/domain"
	"github.com/couchcryptid/grid-timeline/internal/observability"
)

// Table names as exposed by PostgREST.
const (
	TableEvents   = "events"
	TableAttacks  = "attacks"
	TableSchedule = "schedule"
)

const defaultMaxElapsed = 30 * time.Second

// Client loads timeline inputs from Supabase. It satisfies the same source
// contract as the SQLite store.
type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
	loc        *time.Location
	maxElapsed time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Supabase client. Calendar conversions use loc.
func NewClient(baseURL, key string, timeout time.Duration, loc *time.Location, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		loc:        loc,
		maxElapsed: defaultMaxElapsed,
		metrics:    metrics,
		logger:     logger,
	}
}

// LoadInputs fetches all three tables and converts them to timeline inputs.
// Events are requested ascending by event_time.
func (c *Client) LoadInputs(ctx context.Context) (domain.Inputs, error) {
	var ds domain.Dataset
	if err := c.fetchTable(ctx, TableEvents, url.Values{"order": {"event_time.asc"}}, &ds.Events); err != nil {
		return domain.Inputs{}, err
	}
	if err := c.fetchTable(ctx, TableAttacks, nil, &ds.Attacks); err != nil {
		return domain.Inputs{}, err
	}
	if err := c.fetchTable(ctx, TableSchedule, nil, &ds.Schedule); err != nil {
		return domain.Inputs{}, err
	}

	in, err := ds.Inputs(c.loc)
	if err != nil {
		return domain.Inputs{}, fmt.Errorf("convert supabase rows: %w", err)
	}
	return in, nil
}

// fetchTable GETs every row of table into out. Rate limiting, server errors,
// and transport failures are retried with exponential backoff.
func (c *Client) fetchTable(ctx context.Context, table string, extra url.Values, out any) error {
	params := url.Values{"select": {"*"}}
	for k, v := range extra {
		params[k] = v
	}
	fullURL := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, params.Encode())

	var body []byte
	operation := func() error {
		var err error
		body, err = c.doRequest(ctx, fullURL)
		if err != nil {
			var perm *backoff.PermanentError
			if !errors.As(err, &perm) {
				c.metrics.SourceRequests.WithLabelValues(table, "retry").Inc()
				c.logger.Warn("supabase request failed, retrying", "table", table, "error", err)
			}
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		c.metrics.SourceRequests.WithLabelValues(table, "error").Inc()
		return fmt.Errorf("fetch %s: %w", table, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.SourceRequests.WithLabelValues(table, "error").Inc()
		return fmt.Errorf("decode %s: %w", table, err)
	}
	c.metrics.SourceRequests.WithLabelValues(table, "success").Inc()
	return nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("supabase API error: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, backoff.Permanent(fmt.Errorf("supabase API error: status %d: %s", resp.StatusCode, b))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
