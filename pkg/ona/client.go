// Package ona provides a client for the ONA data API, which serves form
// submissions as a JSON array of flat records.
package ona

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mzee2025/rdi-dashboard/internal/fetcher"
)

// Client defines the ONA data operations.
type Client interface {
	// Fetch returns every submission of the form. query is an optional
	// ONA JSON filter, e.g. {"_submission_time":{"$gte":"2025-11-01"}}.
	Fetch(ctx context.Context, query string) ([]map[string]any, error)
}

// DefaultBaseURL is the public ONA API host.
const DefaultBaseURL = "https://api.ona.io"

// Option configures the ONA client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing or self-hosted ONA).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout bounds one Fetch call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

// WithMaxRetries sets the attempt count for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *httpClient) {
		c.maxRetries = n
	}
}

// WithRate limits requests per second to the API host.
func WithRate(perSec float64) Option {
	return func(c *httpClient) {
		c.rate = rate.Limit(perSec)
	}
}

// WithBackoffBase sets the first retry delay.
func WithBackoffBase(d time.Duration) Option {
	return func(c *httpClient) {
		c.backoffBase = d
	}
}

// WithPageSize fetches in pages of n records instead of one request.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		c.pageSize = n
	}
}

type httpClient struct {
	token       string
	formID      string
	baseURL     string
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
	rate        rate.Limit
	pageSize    int
	fetcher     *fetcher.HTTPFetcher
}

// NewClient creates a new ONA client for one form.
func NewClient(token, formID string, opts ...Option) (Client, error) {
	c := &httpClient{
		token:      token,
		formID:     formID,
		baseURL:    DefaultBaseURL,
		timeout:    30 * time.Second,
		maxRetries: 3,
		rate:       5,
	}
	for _, opt := range opts {
		opt(c)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("ona: invalid base url %q", c.baseURL)
	}
	if c.formID == "" {
		return nil, eris.New("ona: form id is required")
	}

	headers := map[string]string{"Accept": "application/json"}
	if c.token != "" {
		headers["Authorization"] = "Token " + c.token
	}
	burst := max(int(c.rate), 1)
	c.fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    "rdi-dashboard/1.0",
		Timeout:      c.timeout,
		MaxRetries:   c.maxRetries,
		BackoffBase:  c.backoffBase,
		Headers:      headers,
		RateLimiters: map[string]*fetcher.AdaptiveLimiter{u.Host: fetcher.NewAdaptiveLimiter(c.rate, burst)},
	})
	return c, nil
}

// Fetch downloads the form's submissions.
func (c *httpClient) Fetch(ctx context.Context, query string) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var records []map[string]any
	if c.pageSize <= 0 {
		page, err := c.fetchPage(ctx, query, 0)
		if err != nil {
			return nil, err
		}
		records = page
	} else {
		for n := 1; ; n++ {
			page, err := c.fetchPage(ctx, query, n)
			var statusErr *fetcher.StatusError
			if n > 1 && errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
				break
			}
			if err != nil {
				return nil, err
			}
			records = append(records, page...)
			if len(page) < c.pageSize {
				break
			}
		}
	}

	zap.L().Info("ona: fetched submissions",
		zap.String("form_id", c.formID),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}

func (c *httpClient) fetchPage(ctx context.Context, query string, page int) ([]map[string]any, error) {
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
		params.Set("page_size", strconv.Itoa(c.pageSize))
	}
	target := c.baseURL + "/api/v1/data/" + url.PathEscape(c.formID)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	body, err := c.fetcher.Download(ctx, target)
	if err != nil {
		return nil, eris.Wrapf(err, "ona: fetch form %s", c.formID)
	}
	defer body.Close() //nolint:errcheck

	records, err := fetcher.ReadJSONArray[map[string]any](ctx, body)
	if err != nil {
		return nil, eris.Wrapf(err, "ona: decode form %s", c.formID)
	}
	return records, nil
}
