// Package history pages conversation message history out of the REST
// backend. History is the fallback and backfill path next to the live
// broker stream: pages are fetched newest-first from the server and
// normalized to older-first for the message store.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xhist/travel-buddy-client-sub000/internal/auth"
	"github.com/xhist/travel-buddy-client-sub000/internal/backoff"
	"github.com/xhist/travel-buddy-client-sub000/internal/observability"
	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// FetchError is a transient history fetch failure. Callers may retry;
// the pager already retried transient failures internally.
type FetchError struct {
	ConversationID string
	StatusCode     int
	Err            error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("history fetch for %s failed with status %d", e.ConversationID, e.StatusCode)
	}
	return fmt.Sprintf("history fetch for %s failed: %v", e.ConversationID, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher issues authenticated history requests against the REST
// backend. It is safe for concurrent use.
type Fetcher struct {
	baseURL string
	cred    *auth.Credential
	client  *http.Client
	logger  *observability.Logger
	metrics *observability.Metrics

	pageSize    int
	retries     int
	retryPolicy backoff.Policy
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient substitutes the HTTP client. The default carries an
// explicit 10s timeout so a stalled backend cannot hang the UI.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithHTTPClientTimeout sets the per-request timeout on the default
// HTTP client. Ignored when WithHTTPClient supplied a custom client.
func WithHTTPClientTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithPageSize sets the messages-per-page limit. Default: 50.
func WithPageSize(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithRetries sets the number of retries on transient failures.
func WithRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.retries = n
		}
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *observability.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithFetcherMetrics sets the metrics collector.
func WithFetcherMetrics(m *observability.Metrics) FetcherOption {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// NewFetcher creates a fetcher for the REST backend at baseURL. The
// credential is sent as a bearer token on every request.
func NewFetcher(baseURL string, cred *auth.Credential, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		baseURL:     baseURL,
		cred:        cred,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      observability.NewLogger(observability.LogConfig{}),
		pageSize:    50,
		retries:     2,
		retryPolicy: backoff.FetchRetryPolicy(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPage retrieves one page of messages older than the cursor
// (empty cursor means newest). The server returns newest-first; the
// result is reversed to older-first. Transient failures (network,
// 5xx, 429) are retried with backoff; other statuses fail immediately.
func (f *Fetcher) FetchPage(ctx context.Context, conversationID, before string) ([]models.Message, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		start := time.Now()
		page, retryable, err := f.fetchOnce(ctx, conversationID, before)
		if f.metrics != nil {
			f.metrics.HistoryFetchDuration.Observe(time.Since(start).Seconds())
		}
		if err == nil {
			if f.metrics != nil {
				f.metrics.HistoryFetchCounter.WithLabelValues("ok").Inc()
			}
			return page, nil
		}
		if f.metrics != nil {
			f.metrics.HistoryFetchCounter.WithLabelValues("error").Inc()
		}
		lastErr = err
		if !retryable || attempt >= f.retries {
			return nil, lastErr
		}
		delay := backoff.Compute(f.retryPolicy, attempt+1)
		f.logger.Warn("history fetch failed, retrying", "conversation_id", conversationID, "attempt", attempt+1, "delay", delay.String(), "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// fetchOnce performs a single request. The second return value
// reports whether the failure is worth retrying.
func (f *Fetcher) fetchOnce(ctx context.Context, conversationID, before string) ([]models.Message, bool, error) {
	endpoint := fmt.Sprintf("%s/conversations/%s/messages", f.baseURL, url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, &FetchError{ConversationID: conversationID, Err: err}
	}

	q := req.URL.Query()
	q.Set("limit", strconv.Itoa(f.pageSize))
	if before != "" {
		q.Set("before", before)
	}
	req.URL.RawQuery = q.Encode()
	if f.cred != nil {
		req.Header.Set("Authorization", f.cred.AuthorizationHeader())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, &FetchError{ConversationID: conversationID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, retryable, &FetchError{ConversationID: conversationID, StatusCode: resp.StatusCode}
	}

	var page []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, false, &FetchError{ConversationID: conversationID, Err: err}
	}

	// Server order is newest-first; the store wants older-first.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, false, nil
}
