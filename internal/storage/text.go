package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/0xc0d3d00d/dccd/internal/domain"
)

var columns = []string{"date", "low", "high", "open", "close", "quoteVolume", "volume", "weightedAverage"}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func candleRecord(c domain.Candle) []string {
	return []string{
		strconv.FormatInt(c.Date, 10),
		formatFloat(c.Low),
		formatFloat(c.High),
		formatFloat(c.Open),
		formatFloat(c.Close),
		formatFloat(c.QuoteVolume),
		formatFloat(c.Volume),
		formatFloat(c.WeightedAverage),
	}
}

// parseRecords reads rows whose first row is a header naming the columns.
func parseRecords(records [][]string) ([]domain.Candle, error) {
	if len(records) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[name] = i
	}
	for _, name := range columns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	candles := make([]domain.Candle, 0, len(records)-1)
	for line, record := range records[1:] {
		if len(record) == 0 {
			continue
		}

		field := func(name string) (string, error) {
			i := index[name]
			if i >= len(record) {
				return "", fmt.Errorf("row %d: missing %s", line+1, name)
			}
			return record[i], nil
		}

		var c domain.Candle
		date, err := field("date")
		if err != nil {
			return nil, err
		}
		if c.Date, err = strconv.ParseInt(date, 10, 64); err != nil {
			return nil, fmt.Errorf("row %d: date: %w", line+1, err)
		}

		values := []struct {
			name string
			dst  *float64
		}{
			{"low", &c.Low},
			{"high", &c.High},
			{"open", &c.Open},
			{"close", &c.Close},
			{"quoteVolume", &c.QuoteVolume},
			{"volume", &c.Volume},
			{"weightedAverage", &c.WeightedAverage},
		}
		for _, v := range values {
			raw, err := field(v.name)
			if err != nil {
				return nil, err
			}
			if *v.dst, err = strconv.ParseFloat(raw, 64); err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", line+1, v.name, err)
			}
		}

		candles = append(candles, c)
	}

	return candles, nil
}

type csvCodec struct{}

func (csvCodec) read(r io.Reader) ([]domain.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return parseRecords(records)
}

func (csvCodec) write(w io.Writer, candles []domain.Candle) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, c := range candles {
		if err := writer.Write(candleRecord(c)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type jsonCodec struct{}

func (jsonCodec) read(r io.Reader) ([]domain.Candle, error) {
	var candles []domain.Candle
	err := json.NewDecoder(r).Decode(&candles)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return candles, err
}

func (jsonCodec) write(w io.Writer, candles []domain.Candle) error {
	if candles == nil {
		candles = []domain.Candle{}
	}
	return json.NewEncoder(w).Encode(candles)
}
