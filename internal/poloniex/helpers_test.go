package poloniex

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/0xc0d3d00d/dccd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// candleRow builds a v3 candle array opening at date (seconds).
func candleRow(date int64, base float64) []any {
	return []any{
		formatFloat(base),      // low
		formatFloat(base + 4),  // high
		formatFloat(base + 1),  // open
		formatFloat(base + 3),  // close
		formatFloat(base * 10), // amount
		formatFloat(base / 10), // quantity
		"1.5",                  // buyTakerAmount
		"0.5",                  // buyTakerQuantity
		42,                     // tradeCount
		date*1000 + 59999,      // ts
		formatFloat(base + 2),  // weightedAverage
		"MINUTE_1",             // interval
		date * 1000,            // startTime
		date*1000 + 59999,      // closeTime
	}
}

type fakeExchange struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	windows  []domain.TimeRange
}

func (f *fakeExchange) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeExchange) recorded() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

func (f *fakeExchange) lastRequest() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeExchange) requestedWindows() []domain.TimeRange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TimeRange(nil), f.windows...)
}

// newFakeExchange records every request and hands it to handler. A nil
// handler answers with one candle per span of the requested window.
func newFakeExchange(t *testing.T, handler http.HandlerFunc) *fakeExchange {
	t.Helper()

	f := &fakeExchange{}
	if handler == nil {
		handler = serveWindow(t)
	}

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		startMs, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
		endMs, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)

		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(r.Context()))
		f.windows = append(f.windows, domain.TimeRange{Start: startMs / 1000, End: endMs / 1000})
		f.mu.Unlock()

		handler(w, r)
	}))
	t.Cleanup(f.Close)

	return f
}

func serveWindow(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		startMs, err := strconv.ParseInt(q.Get("startTime"), 10, 64)
		assert.NoError(t, err)
		endMs, err := strconv.ParseInt(q.Get("endTime"), 10, 64)
		assert.NoError(t, err)
		span, err := domain.ParseInterval(q.Get("interval"))
		assert.NoError(t, err)

		rows := [][]any{}
		for ts := startMs / 1000; ts < endMs/1000; ts += int64(span) {
			rows = append(rows, candleRow(ts, float64(ts%1000)))
		}
		writeJSON(t, w, http.StatusOK, rows)
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()

	c, err := New(append([]Option{WithBaseURL(baseURL)}, opts...)...)
	require.NoError(t, err)
	return c
}
