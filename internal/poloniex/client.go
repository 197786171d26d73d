package poloniex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/0xc0d3d00d/dccd/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultBaseURL        = "https://api.poloniex.com"
	DefaultRequestTimeout = 30 * time.Second

	// PageLimit is the number of candles requested per call.
	PageLimit = 500

	maxErrorBodySize = 512
)

type Client struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	maxWindow     int64
	meterProvider metric.MeterProvider
	metrics       *clientMetrics
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the client used for requests. The client is copied, so
// the timeout applied by New never leaks into it. A zero Timeout on the copy
// becomes DefaultRequestTimeout unless WithTimeout is given.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxWindow caps the width in seconds of one paginated window.
func WithMaxWindow(seconds int64) Option {
	return func(c *Client) {
		c.maxWindow = seconds
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.meterProvider = mp
	}
}

func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:       DefaultBaseURL,
		meterProvider: otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := &http.Client{}
	if c.httpClient != nil {
		*hc = *c.httpClient
	}
	switch {
	case c.timeout > 0:
		hc.Timeout = c.timeout
	case hc.Timeout <= 0:
		hc.Timeout = DefaultRequestTimeout
	}
	c.httpClient = hc

	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	m, err := newClientMetrics(c.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create client metrics: %w", err)
	}
	c.metrics = m

	return c, nil
}

// FetchCandles sends exactly one request for the candles of pair in
// [start, end), both in Unix seconds.
func (c *Client) FetchCandles(ctx context.Context, pair string, span domain.Span, start, end int64) ([]domain.Candle, error) {
	if pair == "" {
		return nil, fmt.Errorf("%w: empty pair", domain.ErrInvalidPair)
	}
	interval, err := span.Interval()
	if err != nil {
		return nil, err
	}
	if err := (domain.TimeRange{Start: start, End: end}).Validate(); err != nil {
		return nil, err
	}

	endpoint, err := url.JoinPath(c.baseURL, "markets", pair, "candles")
	if err != nil {
		return nil, fmt.Errorf("failed to build candles url: %w", err)
	}

	// the API takes milliseconds
	query := url.Values{}
	query.Set("interval", interval)
	query.Set("limit", strconv.Itoa(PageLimit))
	query.Set("startTime", strconv.FormatInt(start*1000, 10))
	query.Set("endTime", strconv.FormatInt(end*1000, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build candles request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	slog.DebugContext(ctx, "fetch candles", "pair", pair, "interval", interval, "start", start, "end", end)

	began := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.record(ctx, pair, outcomeTransportError, time.Since(began), 0)
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.record(ctx, pair, outcomeTransportError, time.Since(began), 0)
		return nil, fmt.Errorf("%w: failed to read response body: %w", domain.ErrTransport, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.metrics.record(ctx, pair, outcomeStatusError, time.Since(began), 0)
		return nil, newStatusError(resp.StatusCode, body)
	}

	candles, err := decodeCandles(body)
	if err != nil {
		c.metrics.record(ctx, pair, outcomeDecodeError, time.Since(began), 0)
		return nil, err
	}

	c.metrics.record(ctx, pair, outcomeOK, time.Since(began), len(candles))
	slog.DebugContext(ctx, "fetched candles", "pair", pair, "interval", interval, "candle_count", len(candles))

	return candles, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func newStatusError(statusCode int, body []byte) *StatusError {
	msg := string(body)
	if apiErr, ok := parseAPIError(body); ok {
		msg = apiErr.Message
	}
	if len(msg) > maxErrorBodySize {
		msg = msg[:maxErrorBodySize]
	}
	return &StatusError{StatusCode: statusCode, Message: msg}
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded with a %d status code", e.StatusCode)
	}
	return fmt.Sprintf("server responded with a %d status code: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrResponseDecode
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, statusCode int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == statusCode
}
