package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"

	"github.com/0xc0d3d00d/dccd/internal/domain"
	"github.com/spf13/afero"
)

var (
	ErrNoCandlesFound = fmt.Errorf("%w: no candles found", domain.ErrNotFound)
	ErrUnknownForm    = errors.New("unknown form")
)

type Form string

const (
	FormCSV    Form = "csv"
	FormJSON   Form = "json"
	FormBinary Form = "bin"
	FormXLSX   Form = "xlsx"
)

func ParseForm(s string) (Form, error) {
	f := Form(s)
	if _, ok := codecs[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownForm, s)
	}
	return f, nil
}

// SeriesKey identifies one saved series: a pair sampled at a span.
type SeriesKey struct {
	Pair domain.Pair
	Span domain.Span
}

type codec interface {
	read(r io.Reader) ([]domain.Candle, error)
	write(w io.Writer, candles []domain.Candle) error
}

var codecs = map[Form]codec{
	FormCSV:    csvCodec{},
	FormJSON:   jsonCodec{},
	FormBinary: binaryCodec{},
	FormXLSX:   xlsxCodec{},
}

// root
// - Poloniex
//   - Data
//     - Clean_Data
//       - span_seconds
//         - CRYPTOFIAT.form

type storage struct {
	fs      afero.Fs
	rootDir string
	form    Form
	codec   codec
	mu      *sync.RWMutex
}

func NewStorage(fs afero.Fs, rootDir string, form Form) (*storage, error) {
	c, ok := codecs[form]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, form)
	}

	dataDir := path.Join(rootDir, "Poloniex", "Data", "Clean_Data")
	if err := fs.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &storage{
		fs:      fs,
		rootDir: rootDir,
		form:    form,
		codec:   c,
		mu:      &sync.RWMutex{},
	}, nil
}

func NewOsStorage(rootDir string, form Form) (*storage, error) {
	return NewStorage(afero.NewOsFs(), rootDir, form)
}

func (s *storage) Form() Form {
	return s.form
}

// FullPath is the series file path without extension.
func (s *storage) FullPath(key SeriesKey) string {
	return path.Join(s.rootDir, "Poloniex", "Data", "Clean_Data", key.Span.Per(), key.Pair.Ticker())
}

func (s *storage) filename(key SeriesKey) string {
	return s.FullPath(key) + "." + string(s.form)
}

func (s *storage) GetCandles(ctx context.Context, key SeriesKey, from int64, to int64) ([]domain.Candle, error) {
	slog.DebugContext(ctx, "get candles", "pair", key.Pair, "span", key.Span, "from", from, "to", to)
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, err := s.load(key)
	if err != nil {
		return nil, err
	}

	selectRange := domain.TimeRange{Start: from, End: to}
	candles := make([]domain.Candle, 0, len(stored))
	for _, c := range stored {
		if selectRange.Contains(c.Date) {
			candles = append(candles, c)
		}
	}

	if len(candles) == 0 {
		return nil, ErrNoCandlesFound
	}

	slog.DebugContext(ctx, "get candles", "candle_count", len(candles))
	return candles, nil
}

// LastDate returns the date of the newest saved candle of the series.
func (s *storage) LastDate(ctx context.Context, key SeriesKey) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, err := s.load(key)
	if err != nil {
		return 0, err
	}
	if len(stored) == 0 {
		return 0, ErrNoCandlesFound
	}

	last := stored[len(stored)-1].Date
	slog.DebugContext(ctx, "last date", "pair", key.Pair, "span", key.Span, "date", last)
	return last, nil
}

// SaveCandles merges candles into the saved series. Saved candles with the
// same date are replaced.
func (s *storage) SaveCandles(ctx context.Context, key SeriesKey, candles []domain.Candle) error {
	slog.DebugContext(ctx, "save candles", "pair", key.Pair, "span", key.Span, "count", len(candles))
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.load(key)
	if err != nil && !errors.Is(err, ErrNoCandlesFound) {
		return err
	}

	incoming := domain.SortCandles(candles)
	if s.form == FormBinary && len(stored) > 0 && incoming[0].Date > stored[len(stored)-1].Date {
		return s.appendCandles(key, incoming)
	}

	merged := domain.SortCandles(append(stored, incoming...))
	return s.rewrite(key, merged)
}

func (s *storage) load(key SeriesKey) ([]domain.Candle, error) {
	f, err := s.fs.Open(s.filename(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoCandlesFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open series file: %w", err)
	}
	defer f.Close()

	candles, err := s.codec.read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read series file %s: %w", s.filename(key), err)
	}

	return domain.SortCandles(candles), nil
}

func (s *storage) rewrite(key SeriesKey, candles []domain.Candle) error {
	filename := s.filename(key)
	if err := s.fs.MkdirAll(path.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create series directory: %w", err)
	}

	tmp := filename + ".tmp"
	f, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create series file: %w", err)
	}

	if err := s.codec.write(f, candles); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to write series file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to close series file: %w", err)
	}

	if err := s.fs.Rename(tmp, filename); err != nil {
		return fmt.Errorf("failed to replace series file: %w", err)
	}

	return nil
}
