package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/0xc0d3d00d/dccd/internal/domain"
)

const candleByteSize = 65

var ErrCandleNotWritten = errors.New("candle not written")

func encodeCandle(candle domain.Candle) []byte {
	buf := make([]byte, candleByteSize)

	binary.LittleEndian.PutUint64(buf, uint64(candle.Date))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(candle.Low))
	binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(candle.High))
	binary.LittleEndian.PutUint64(buf[24:], math.Float64bits(candle.Open))
	binary.LittleEndian.PutUint64(buf[32:], math.Float64bits(candle.Close))
	binary.LittleEndian.PutUint64(buf[40:], math.Float64bits(candle.QuoteVolume))
	binary.LittleEndian.PutUint64(buf[48:], math.Float64bits(candle.Volume))
	binary.LittleEndian.PutUint64(buf[56:], math.Float64bits(candle.WeightedAverage))
	// indicates the candle is written
	buf[64] = 1

	return buf
}

func decodeCandle(buf []byte, candle *domain.Candle) error {
	if len(buf) != candleByteSize {
		return errors.New("invalid buffer size")
	}
	if buf[64] == 0 {
		return ErrCandleNotWritten
	}

	candle.Date = int64(binary.LittleEndian.Uint64(buf[:8]))
	candle.Low = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16]))
	candle.High = math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24]))
	candle.Open = math.Float64frombits(binary.LittleEndian.Uint64(buf[24:32]))
	candle.Close = math.Float64frombits(binary.LittleEndian.Uint64(buf[32:40]))
	candle.QuoteVolume = math.Float64frombits(binary.LittleEndian.Uint64(buf[40:48]))
	candle.Volume = math.Float64frombits(binary.LittleEndian.Uint64(buf[48:56]))
	candle.WeightedAverage = math.Float64frombits(binary.LittleEndian.Uint64(buf[56:64]))

	return nil
}

type binaryCodec struct{}

func (binaryCodec) read(r io.Reader) ([]domain.Candle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data)%candleByteSize != 0 {
		return nil, fmt.Errorf("truncated candle file: %d trailing bytes", len(data)%candleByteSize)
	}

	candles := make([]domain.Candle, 0, len(data)/candleByteSize)
	for i := 0; i < len(data); i += candleByteSize {
		var candle domain.Candle
		err := decodeCandle(data[i:i+candleByteSize], &candle)
		if err == ErrCandleNotWritten {
			continue
		}
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

func (binaryCodec) write(w io.Writer, candles []domain.Candle) error {
	for _, candle := range candles {
		n, err := w.Write(encodeCandle(candle))
		if n != candleByteSize && err == nil {
			err = io.ErrShortWrite
		}
		if err != nil {
			return err
		}
	}
	return nil
}
