package datastore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCandlesFromCSV(t *testing.T) {
	path := writeTempCSV(t, "ohlcv.csv", `timestamp,open,high,low,close,volume
1700000000000,100.5,101.0,99.5,100.8,1234.5
1700003600000,100.8,102.0,100.2,101.5,2345.6
`)

	candles, err := LoadCandlesFromCSV(path)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, int64(1700000000000), candles[0].Timestamp)
	assert.Equal(t, 100.5, candles[0].Open)
	assert.Equal(t, 101.0, candles[0].High)
	assert.Equal(t, 99.5, candles[0].Low)
	assert.Equal(t, 100.8, candles[0].Close)
	assert.Equal(t, 1234.5, candles[0].Volume)
	assert.Equal(t, 101.5, candles[1].Close)
}

func TestLoadCandlesFromCSV_SkipsMalformedRows(t *testing.T) {
	path := writeTempCSV(t, "ohlcv.csv", `timestamp,open,high,low,close,volume
1700000000000,100.5,101.0,99.5,100.8,1234.5
not-a-number,100.8,102.0,100.2,101.5,2345.6
1700007200000,101.5,103.0,101.0,102.5
1700010800000,102.5,103.5,102.0,103.0,3456.7
`)

	candles, err := LoadCandlesFromCSV(path)
	require.NoError(t, err)
	require.Len(t, candles, 2, "rows with bad values or wrong arity are skipped")
	assert.Equal(t, 100.8, candles[0].Close)
	assert.Equal(t, 103.0, candles[1].Close)
}

func TestLoadCandlesFromCSV_EmptyFile(t *testing.T) {
	path := writeTempCSV(t, "ohlcv.csv", "")

	candles, err := LoadCandlesFromCSV(path)
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestLoadCandlesFromCSV_MissingFile(t *testing.T) {
	_, err := LoadCandlesFromCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestLoadFundingRatesFromCSV(t *testing.T) {
	path := writeTempCSV(t, "funding.csv", `timestamp,rate
1700000000000,0.0001
1700028800000,-0.0002
`)

	rates, err := LoadFundingRatesFromCSV(path)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, 0.0001, rates[0].Rate)
	assert.Equal(t, -0.0002, rates[1].Rate)
}

func TestLoadVWAPFromCSV(t *testing.T) {
	path := writeTempCSV(t, "vwap.csv", `timestamp,vwap
1700000000000,100.25
1700003600000,bad
1700007200000,101.75
`)

	records, err := LoadVWAPFromCSV(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 100.25, records[0].VWAP)
	assert.Equal(t, 101.75, records[1].VWAP)
}
