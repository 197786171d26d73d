package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/0xc0d3d00d/dccd/internal/domain"
	"github.com/0xc0d3d00d/dccd/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	key     storage.SeriesKey
	from    int64
	to      int64
	candles []domain.Candle
	err     error
}

func (s *fakeStore) GetCandles(ctx context.Context, key storage.SeriesKey, from int64, to int64) ([]domain.Candle, error) {
	s.key, s.from, s.to = key, from, to
	return s.candles, s.err
}

func newCandlesServer(t *testing.T, store *fakeStore) http.Handler {
	t.Helper()

	h := NewHandler(store, domain.DefaultFiatSubstitute)
	srv, err := New(context.Background(), ":0",
		WithHandlerFunc(h.HTTPHandler),
		WithHandlerFunc(h.ConnectHandler),
	)
	require.NoError(t, err)
	return srv.Handler()
}

func TestGetCandles(t *testing.T) {
	store := &fakeStore{candles: []domain.Candle{
		{Date: 1700000040, Low: 1, High: 2, Open: 1.5, Close: 1.75, QuoteVolume: 10, Volume: 5, WeightedAverage: 1.6},
	}}
	h := newCandlesServer(t, store)

	resp, body := get(t, h, "/v1/candles/BTC_USDT?span=hourly&from=1700000000&to=1700003600")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	assert.Equal(t, storage.SeriesKey{Pair: domain.Pair{Crypto: "BTC", Fiat: "USDT"}, Span: domain.OneHour}, store.key)
	assert.Equal(t, int64(1700000000), store.from)
	assert.Equal(t, int64(1700003600), store.to)

	var got GetCandlesResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "BTC_USDT", got.Pair)
	assert.Equal(t, int64(3600), got.Span)
	assert.Equal(t, "HOUR_1", got.Interval)
	assert.Equal(t, store.candles, got.Candles)
	assert.Contains(t, body, `"quoteVolume":10`)
	assert.Contains(t, body, `"weightedAverage":1.6`)
}

func TestGetCandlesDefaults(t *testing.T) {
	store := &fakeStore{candles: []domain.Candle{{Date: 60}}}
	h := newCandlesServer(t, store)

	resp, _ := get(t, h, "/v1/candles/eth_btc")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.OneMinute, store.key.Span)
	assert.Equal(t, int64(0), store.from)
	assert.Equal(t, int64(domain.MaxTimestamp), store.to)
}

func TestGetCandlesErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"bad pair", "/v1/candles/BTCUSDT", nil, http.StatusBadRequest},
		{"bad span", "/v1/candles/BTC_USDT?span=7", nil, http.StatusBadRequest},
		{"bad from", "/v1/candles/BTC_USDT?from=yesterday", nil, http.StatusBadRequest},
		{"empty range", "/v1/candles/BTC_USDT?from=10&to=10", nil, http.StatusBadRequest},
		{"not found", "/v1/candles/BTC_USDT", storage.ErrNoCandlesFound, http.StatusNotFound},
		{"storage failure", "/v1/candles/BTC_USDT", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCandlesServer(t, &fakeStore{err: tt.err})

			resp, body := get(t, h, tt.target)
			assert.Equal(t, tt.status, resp.StatusCode, body)

			var got errorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			assert.NotEmpty(t, got.Error)
		})
	}
}

func TestGetCandlesMissingPair(t *testing.T) {
	h := newCandlesServer(t, &fakeStore{})

	resp, _ := get(t, h, "/v1/candles/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetCandlesNormalizesPair(t *testing.T) {
	store := &fakeStore{candles: []domain.Candle{{Date: 60}}}
	h := newCandlesServer(t, store)

	resp, body := get(t, h, "/v1/candles/xbt_eur?span=daily")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, domain.Pair{Crypto: "BTC", Fiat: "USDT"}, store.key.Pair)
	assert.Contains(t, body, `"pair":"BTC_USDT"`)
}

func postConnect(t *testing.T, h http.Handler, body string) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, CandleServiceGetCandlesProcedure, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	resp := rec.Result()
	return resp, rec.Body.String()
}

func TestConnectGetCandles(t *testing.T) {
	store := &fakeStore{candles: []domain.Candle{{Date: 1700000040, Close: 1.75}}}
	h := newCandlesServer(t, store)

	resp, body := postConnect(t, h, `{"pair":"XBT_USD","span":"HOUR_1","from":1700000000,"to":1700003600}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	assert.Equal(t, storage.SeriesKey{Pair: domain.Pair{Crypto: "BTC", Fiat: "USDT"}, Span: domain.OneHour}, store.key)
	assert.Equal(t, int64(1700000000), store.from)
	assert.Equal(t, int64(1700003600), store.to)

	var got GetCandlesResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "BTC_USDT", got.Pair)
	assert.Equal(t, store.candles, got.Candles)
}

func TestConnectGetCandlesDefaults(t *testing.T) {
	store := &fakeStore{candles: []domain.Candle{{Date: 60}}}
	h := newCandlesServer(t, store)

	resp, body := postConnect(t, h, `{"pair":"ETH_BTC"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, domain.OneMinute, store.key.Span)
	assert.Equal(t, int64(0), store.from)
	assert.Equal(t, int64(domain.MaxTimestamp), store.to)
}

func TestConnectGetCandlesErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"bad pair", `{"pair":"BTCUSDT"}`, nil, http.StatusBadRequest, "invalid_argument"},
		{"bad span", `{"pair":"BTC_USDT","span":"7"}`, nil, http.StatusBadRequest, "invalid_argument"},
		{"out of bounds", `{"pair":"BTC_USDT","to":9223372036854775807}`, nil, http.StatusBadRequest, "invalid_argument"},
		{"not found", `{"pair":"BTC_USDT"}`, storage.ErrNoCandlesFound, http.StatusNotFound, "not_found"},
		{"storage failure", `{"pair":"BTC_USDT"}`, errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCandlesServer(t, &fakeStore{err: tt.err})

			resp, body := postConnect(t, h, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, body)

			var got struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}
