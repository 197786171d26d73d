package domain

import "time"

// Candle is one normalized Poloniex candle. Date is in Unix seconds.
type Candle struct {
	Date            int64   `json:"date"`
	Low             float64 `json:"low"`
	High            float64 `json:"high"`
	Open            float64 `json:"open"`
	Close           float64 `json:"close"`
	QuoteVolume     float64 `json:"quoteVolume"`
	Volume          float64 `json:"volume"`
	WeightedAverage float64 `json:"weightedAverage"`
}

func (c Candle) Time() time.Time {
	return time.Unix(c.Date, 0).UTC()
}
