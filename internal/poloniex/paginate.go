package poloniex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/0xc0d3d00d/dccd/internal/domain"
)

// maxPreallocWindows caps the pages reserved up front by FetchRange.
const maxPreallocWindows = 16

// Window is the width in seconds of one page at span.
func (c *Client) Window(span domain.Span) int64 {
	width := int64(PageLimit) * int64(span)
	if c.maxWindow > 0 && width > c.maxWindow {
		width = c.maxWindow
	}
	return width
}

// FetchRange walks [start, end) one window at a time and concatenates the
// pages in chronological order. The first failing window aborts the walk.
func (c *Client) FetchRange(ctx context.Context, pair string, span domain.Span, start, end int64) ([]domain.Candle, error) {
	if pair == "" {
		return nil, fmt.Errorf("%w: empty pair", domain.ErrInvalidPair)
	}
	if _, err := span.Interval(); err != nil {
		return nil, err
	}

	tr := domain.TimeRange{Start: start, End: end}
	windows, err := tr.Windows(c.Window(span))
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "fetch candle range", "pair", pair, "span", span, "range", tr, "window_count", len(windows))

	candles := make([]domain.Candle, 0, min(len(windows), maxPreallocWindows)*PageLimit)
	for i, w := range windows {
		page, err := c.FetchCandles(ctx, pair, span, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch window %d/%d %s: %w", i+1, len(windows), w, err)
		}
		candles = append(candles, page...)
	}

	return candles, nil
}
