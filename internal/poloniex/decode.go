package poloniex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/0xc0d3d00d/dccd/internal/domain"
)

// Positions in one candle array of the v3 markets API. Positions 6 to 9 and
// 11 are not used.
const (
	idxLow             = 0
	idxHigh            = 1
	idxOpen            = 2
	idxClose           = 3
	idxQuoteVolume     = 4
	idxVolume          = 5
	idxWeightedAverage = 10
	idxDate            = 12

	minRowLength = idxDate + 1
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func parseAPIError(body []byte) (apiError, bool) {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		return apiError{}, false
	}
	return apiErr, true
}

func decodeCandles(body []byte) ([]domain.Candle, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if apiErr, ok := parseAPIError(trimmed); ok {
			return nil, fmt.Errorf("%w: api error %d: %s", domain.ErrResponseDecode, apiErr.Code, apiErr.Message)
		}
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrResponseDecode, err)
	}

	candles := make([]domain.Candle, 0, len(rows))
	for i, row := range rows {
		candle, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", domain.ErrResponseDecode, i, err)
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

func decodeRow(row []json.RawMessage) (domain.Candle, error) {
	if len(row) < minRowLength {
		return domain.Candle{}, fmt.Errorf("expected at least %d fields, got %d", minRowLength, len(row))
	}

	var candle domain.Candle
	fields := []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"low", idxLow, &candle.Low},
		{"high", idxHigh, &candle.High},
		{"open", idxOpen, &candle.Open},
		{"close", idxClose, &candle.Close},
		{"quoteVolume", idxQuoteVolume, &candle.QuoteVolume},
		{"volume", idxVolume, &candle.Volume},
		{"weightedAverage", idxWeightedAverage, &candle.WeightedAverage},
	}
	for _, f := range fields {
		v, err := parseFloat(row[f.idx])
		if err != nil {
			return domain.Candle{}, fmt.Errorf("field %s at %d: %w", f.name, f.idx, err)
		}
		*f.dst = v
	}

	ms, err := parseInt(row[idxDate])
	if err != nil {
		return domain.Candle{}, fmt.Errorf("field date at %d: %w", idxDate, err)
	}
	candle.Date = ms / 1000

	return candle, nil
}

// scalar returns the text of a JSON number or string element.
func scalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(raw), nil
}

func parseFloat(raw json.RawMessage) (float64, error) {
	s, err := scalar(raw)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(raw json.RawMessage) (int64, error) {
	s, err := scalar(raw)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
