package datastore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/your-org/ppo-trade-agent/pkg/logger"
)

// LoadCandlesFromCSV reads an entire OHLCV CSV file into memory.
// The file is expected to have a header and the following columns:
// timestamp, open, high, low, close, volume
func LoadCandlesFromCSV(filePath string) ([]Candle, error) {
	records, err := readCSVRecords(filePath)
	if err != nil {
		return nil, err
	}

	var candles []Candle
	for _, record := range records {
		if len(record) != 6 {
			logger.Warnf("Skipping record due to invalid number of columns: expected 6, got %d", len(record))
			continue
		}
		fields, err := parseFloats(record)
		if err != nil {
			logger.Warnf("Skipping record due to parse error: %v", err)
			continue
		}
		candles = append(candles, Candle{
			Timestamp: int64(fields[0]),
			Open:      fields[1],
			High:      fields[2],
			Low:       fields[3],
			Close:     fields[4],
			Volume:    fields[5],
		})
	}
	logger.Infof("Loaded %d candles from %s", len(candles), filePath)
	return candles, nil
}

// LoadFundingRatesFromCSV reads a funding rate CSV file (timestamp, rate).
func LoadFundingRatesFromCSV(filePath string) ([]FundingRate, error) {
	records, err := readCSVRecords(filePath)
	if err != nil {
		return nil, err
	}

	var rates []FundingRate
	for _, record := range records {
		if len(record) != 2 {
			logger.Warnf("Skipping record due to invalid number of columns: expected 2, got %d", len(record))
			continue
		}
		fields, err := parseFloats(record)
		if err != nil {
			logger.Warnf("Skipping record due to parse error: %v", err)
			continue
		}
		rates = append(rates, FundingRate{Timestamp: int64(fields[0]), Rate: fields[1]})
	}
	logger.Infof("Loaded %d funding rates from %s", len(rates), filePath)
	return rates, nil
}

// LoadVWAPFromCSV reads a VWAP CSV file (timestamp, vwap).
func LoadVWAPFromCSV(filePath string) ([]VWAPRecord, error) {
	records, err := readCSVRecords(filePath)
	if err != nil {
		return nil, err
	}

	var vwaps []VWAPRecord
	for _, record := range records {
		if len(record) != 2 {
			logger.Warnf("Skipping record due to invalid number of columns: expected 2, got %d", len(record))
			continue
		}
		fields, err := parseFloats(record)
		if err != nil {
			logger.Warnf("Skipping record due to parse error: %v", err)
			continue
		}
		vwaps = append(vwaps, VWAPRecord{Timestamp: int64(fields[0]), VWAP: fields[1]})
	}
	logger.Infof("Loaded %d VWAP records from %s", len(vwaps), filePath)
	return vwaps, nil
}

// readCSVRecords opens a CSV file, skips the header row and returns the
// remaining records. An empty file yields no records and no error.
func readCSVRecords(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Rows with the wrong number of columns are the loaders' problem:
	// they warn and skip rather than abort the whole file.
	reader.FieldsPerRecord = -1
	// Read the header row
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil // Empty file is not an error
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseFloats(record []string) ([]float64, error) {
	fields := make([]float64, len(record))
	for i, raw := range record {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse field %d (%q): %w", i, raw, err)
		}
		fields[i] = v
	}
	return fields, nil
}
