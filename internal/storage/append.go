package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/0xc0d3d00d/dccd/internal/domain"
)

// appendCandles writes candles at the end of a binary series file. Callers
// make sure every candle is newer than the last stored one.
func (s *storage) appendCandles(key SeriesKey, candles []domain.Candle) error {
	f, err := s.fs.OpenFile(s.filename(key), os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open series file for append: %w", err)
	}
	defer f.Close()

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if size%candleByteSize != 0 {
		return fmt.Errorf("failed to append: series file is %d bytes, not a multiple of %d", size, candleByteSize)
	}

	if err := (binaryCodec{}).write(f, candles); err != nil {
		return fmt.Errorf("failed to append candles: %w", err)
	}

	return f.Sync()
}
