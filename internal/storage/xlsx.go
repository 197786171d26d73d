package storage

import (
	"io"

	"github.com/0xc0d3d00d/dccd/internal/domain"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

type xlsxCodec struct{}

func (xlsxCodec) read(r io.Reader) ([]domain.Candle, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	return parseRecords(rows)
}

func (xlsxCodec) write(w io.Writer, candles []domain.Candle) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(columns))
	for i, name := range columns {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, c := range candles {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{c.Date, c.Low, c.High, c.Open, c.Close, c.QuoteVolume, c.Volume, c.WeightedAverage}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
