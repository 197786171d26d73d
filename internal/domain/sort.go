package domain

import "sort"

// SortCandles orders candles by date and keeps one candle per date. When a
// date repeats the candle appearing last in the input wins. The input slice
// is not modified.
func SortCandles(candles []Candle) []Candle {
	sorted := make([]Candle, len(candles))
	copy(sorted, candles)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	out := sorted[:0]
	for _, c := range sorted {
		if n := len(out); n > 0 && out[n-1].Date == c.Date {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}

	return out
}
