package server

import (
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/0xc0d3d00d/dccd/internal/domain"
)

type GetCandlesRequest struct {
	Pair string `json:"pair"`
	Span string `json:"span,omitempty"`
	From int64  `json:"from,omitempty"`
	To   int64  `json:"to,omitempty"`
}

type GetCandlesResponse struct {
	Pair     string          `json:"pair"`
	Span     int64           `json:"span"`
	Interval string          `json:"interval"`
	Candles  []domain.Candle `json:"candles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toGetCandlesResponse(pair domain.Pair, span domain.Span, candles []domain.Candle) *GetCandlesResponse {
	if candles == nil {
		candles = []domain.Candle{}
	}
	return &GetCandlesResponse{
		Pair:     pair.String(),
		Span:     int64(span),
		Interval: span.String(),
		Candles:  candles,
	}
}

var errInvalidParam = errors.New("invalid parameter")

func invalidParam(value string) error {
	return fmt.Errorf("%w: %q", errInvalidParam, value)
}

func isInvalidInput(err error) bool {
	return errors.Is(err, errInvalidParam) ||
		errors.Is(err, domain.ErrInvalidPair) ||
		errors.Is(err, domain.ErrUnsupportedSpan) ||
		errors.Is(err, domain.ErrInvalidRange)
}

func errorToStatus(err error) int {
	switch {
	case isInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorToConnect(err error) *connect.Error {
	switch {
	case isInvalidInput(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, domain.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
