package csvwriter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/ppo-trade-agent/internal/env"
)

func TestTradeWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	w, err := NewTradeWriter(path, zap.NewNop())
	require.NoError(t, err)

	trades := []env.Trade{
		{Side: env.SideLong, EntryPrice: 100, ExitPrice: 110, Quantity: 9.5, RealizedPnL: 95, Fees: 1.5, EntryStep: 0, ExitStep: 3},
		{Side: env.SideShort, EntryPrice: 110, ExitPrice: 105, Quantity: 9.1, RealizedPnL: 45.5, Fees: 1.4, EntryStep: 4, ExitStep: 9, Forced: true},
	}
	require.NoError(t, w.WriteAll(trades))
	require.NoError(t, w.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two trades")

	assert.Equal(t, tradeHeader, records[0])
	assert.Equal(t, "LONG", records[1][0])
	assert.Equal(t, "110", records[1][2])
	assert.Equal(t, "SHORT", records[2][0])
	assert.Equal(t, "true", records[2][8])
}
