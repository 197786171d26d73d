package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/0xc0d3d00d/dccd/internal/domain"
	"github.com/0xc0d3d00d/dccd/internal/storage"
)

// Time sentinels accepted by SetTime.
const (
	Last = "last"
	Now  = "now"
)

// DefaultStart is used by Last when nothing is saved yet.
var DefaultStart = time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

var timeLayouts = []string{time.DateTime, time.RFC3339, time.DateOnly}

// Interface requirements for the exchange client
type candleFetcher interface {
	FetchCandles(ctx context.Context, pair string, span domain.Span, start, end int64) ([]domain.Candle, error)
	FetchRange(ctx context.Context, pair string, span domain.Span, start, end int64) ([]domain.Candle, error)
	Window(span domain.Span) int64
}

// Interface requirements for the candle storage
type candleStore interface {
	SaveCandles(ctx context.Context, key storage.SeriesKey, candles []domain.Candle) error
	LastDate(ctx context.Context, key storage.SeriesKey) (int64, error)
	FullPath(key storage.SeriesKey) string
}

// Importer downloads one series and keeps its saved copy up to date.
type Importer struct {
	fetcher candleFetcher
	store   candleStore
	key     storage.SeriesKey
	now     func() time.Time
}

type Option func(*Importer)

func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		i.now = now
	}
}

func New(fetcher candleFetcher, store candleStore, pair domain.Pair, span domain.Span, opts ...Option) (*Importer, error) {
	if _, err := span.Interval(); err != nil {
		return nil, err
	}
	if pair.Crypto == "" || pair.Fiat == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPair, pair)
	}

	i := &Importer{
		fetcher: fetcher,
		store:   store,
		key:     storage.SeriesKey{Pair: pair, Span: span},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

func (i *Importer) Pair() domain.Pair {
	return i.key.Pair
}

func (i *Importer) Span() domain.Span {
	return i.key.Span
}

func (i *Importer) FullPath() string {
	return i.store.FullPath(i.key)
}

// SetTime resolves start and end to a range floored to the span. Each bound
// is a sentinel (Last for start, Now for end), Unix seconds or a UTC date.
func (i *Importer) SetTime(ctx context.Context, start, end string) (domain.TimeRange, error) {
	from, err := i.resolveStart(ctx, start)
	if err != nil {
		return domain.TimeRange{}, err
	}

	to, err := i.resolveEnd(end)
	if err != nil {
		return domain.TimeRange{}, err
	}

	tr := domain.TimeRange{Start: from, End: to}.Floor(i.key.Span)
	if err := tr.Validate(); err != nil {
		return domain.TimeRange{}, err
	}

	return tr, nil
}

func (i *Importer) resolveStart(ctx context.Context, start string) (int64, error) {
	if start != Last {
		return parseTime(start)
	}

	last, err := i.store.LastDate(ctx, i.key)
	if errors.Is(err, storage.ErrNoCandlesFound) {
		slog.DebugContext(ctx, "no saved candles, using default start", "pair", i.key.Pair, "start", DefaultStart)
		return DefaultStart, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read last saved date: %w", err)
	}

	return last + int64(i.key.Span), nil
}

func (i *Importer) resolveEnd(end string) (int64, error) {
	if end == Now {
		return i.now().Unix(), nil
	}
	return parseTime(end)
}

func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("%w: cannot parse time %q", domain.ErrInvalidRange, s)
}

// ImportData downloads [start, end) and returns it sorted by date without
// duplicates.
func (i *Importer) ImportData(ctx context.Context, start, end string) ([]domain.Candle, error) {
	tr, err := i.SetTime(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return i.importRange(ctx, tr)
}

func (i *Importer) importRange(ctx context.Context, tr domain.TimeRange) ([]domain.Candle, error) {
	pair := i.key.Pair.String()
	slog.InfoContext(ctx, "importing candles", "pair", pair, "span", i.key.Span, "range", tr)

	var (
		candles []domain.Candle
		err     error
	)
	if tr.Seconds() <= i.fetcher.Window(i.key.Span) {
		candles, err = i.fetcher.FetchCandles(ctx, pair, i.key.Span, tr.Start, tr.End)
	} else {
		candles, err = i.fetcher.FetchRange(ctx, pair, i.key.Span, tr.Start, tr.End)
	}
	if err != nil {
		return nil, err
	}

	// the exchange may include a candle opening at the end bound
	inRange := make([]domain.Candle, 0, len(candles))
	for _, c := range candles {
		if tr.Contains(c.Date) {
			inRange = append(inRange, c)
		}
	}

	sorted := i.SortData(inRange)
	slog.InfoContext(ctx, "imported candles", "pair", pair, "span", i.key.Span, "candle_count", len(sorted))

	return sorted, nil
}

// SortData orders candles chronologically and drops duplicated dates, keeping
// the last one fetched.
func (i *Importer) SortData(candles []domain.Candle) []domain.Candle {
	return domain.SortCandles(candles)
}

func (i *Importer) Save(ctx context.Context, candles []domain.Candle) error {
	if err := i.store.SaveCandles(ctx, i.key, candles); err != nil {
		return fmt.Errorf("failed to save candles: %w", err)
	}
	return nil
}

// GetData imports [start, end) and saves it. It returns the number of candles
// saved.
func (i *Importer) GetData(ctx context.Context, start, end string) (int, error) {
	candles, err := i.ImportData(ctx, start, end)
	if err != nil {
		return 0, err
	}
	if err := i.Save(ctx, candles); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "saved candles", "pair", i.key.Pair, "span", i.key.Span, "candle_count", len(candles), "path", i.FullPath())
	return len(candles), nil
}

// Update downloads everything after the last saved candle up to now. A series
// that is already current is not an error.
func (i *Importer) Update(ctx context.Context) (int, error) {
	tr, err := i.SetTime(ctx, Last, Now)
	if errors.Is(err, domain.ErrInvalidRange) {
		slog.InfoContext(ctx, "series is up to date", "pair", i.key.Pair, "span", i.key.Span)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	candles, err := i.importRange(ctx, tr)
	if err != nil {
		return 0, err
	}
	if err := i.Save(ctx, candles); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "updated series", "pair", i.key.Pair, "span", i.key.Span, "candle_count", len(candles), "path", i.FullPath())
	return len(candles), nil
}
