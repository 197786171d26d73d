package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"connectrpc.com/connect"
	"github.com/0xc0d3d00d/dccd/internal/domain"
	"github.com/0xc0d3d00d/dccd/internal/storage"
)

const CandleServiceGetCandlesProcedure = "/dccd.v1.CandleService/GetCandles"

// Interface requirements for the candle storage
type candleReader interface {
	GetCandles(ctx context.Context, key storage.SeriesKey, from int64, to int64) ([]domain.Candle, error)
}

type handler struct {
	store      candleReader
	substitute string
}

// NewHandler serves candles from store. Requested pairs are normalized the
// way downloads are, with substitute standing in for EUR and USD.
func NewHandler(store candleReader, substitute string) *handler {
	return &handler{
		store:      store,
		substitute: substitute,
	}
}

// HTTPHandler mounts the plain JSON route. Connect options do not apply to it.
func (h *handler) HTTPHandler(...connect.HandlerOption) (string, http.Handler) {
	return "GET /v1/candles/{pair}", http.HandlerFunc(h.HandleGetCandles)
}

func (h *handler) ConnectHandler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, connect.WithCodec(jsonCodec{}))
	return CandleServiceGetCandlesProcedure, connect.NewUnaryHandler(CandleServiceGetCandlesProcedure, h.GetCandles, opts...)
}

func (h *handler) GetCandles(ctx context.Context, req *connect.Request[GetCandlesRequest]) (*connect.Response[GetCandlesResponse], error) {
	to := req.Msg.To
	if to == 0 {
		to = domain.MaxTimestamp
	}

	resp, err := h.getCandles(ctx, req.Msg.Pair, req.Msg.Span, req.Msg.From, to)
	if err != nil {
		return nil, errorToConnect(err)
	}

	return connect.NewResponse(resp), nil
}

// HandleGetCandles serves saved candles of one pair. Query parameters: span
// (seconds or period name, default 60), from and to (Unix seconds, [from, to)).
func (h *handler) HandleGetCandles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, err := parseBound(query.Get("from"), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseBound(query.Get("to"), domain.MaxTimestamp)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.getCandles(r.Context(), r.PathValue("pair"), query.Get("span"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getCandles(ctx context.Context, symbol string, spanText string, from int64, to int64) (*GetCandlesResponse, error) {
	pair, err := h.parsePair(symbol)
	if err != nil {
		return nil, err
	}

	span := domain.OneMinute
	if spanText != "" {
		span, err = domain.ParseSpan(spanText)
		if err != nil {
			return nil, err
		}
	}

	if err := (domain.TimeRange{Start: from, End: to}).Validate(); err != nil {
		return nil, err
	}

	candles, err := h.store.GetCandles(ctx, storage.SeriesKey{Pair: pair, Span: span}, from, to)
	if err != nil {
		slog.DebugContext(ctx, "get candles failed", "pair", pair, "span", span, "error", err)
		return nil, err
	}

	return toGetCandlesResponse(pair, span, candles), nil
}

func (h *handler) parsePair(symbol string) (domain.Pair, error) {
	pair, err := domain.ParsePair(symbol)
	if err != nil {
		return domain.Pair{}, err
	}
	return domain.NewPair(pair.Crypto, pair.Fiat, h.substitute)
}

func parseBound(s string, fallback int64) (int64, error) {
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, invalidParam(s)
	}
	return v, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := errorToStatus(err)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
