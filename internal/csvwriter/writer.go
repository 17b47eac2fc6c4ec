// Package csvwriter exports closed trades from a simulated episode to
// a CSV file for offline inspection.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/ppo-trade-agent/internal/env"
)

var tradeHeader = []string{
	"side", "entry_price", "exit_price", "quantity",
	"realized_pnl", "fees", "entry_step", "exit_step", "forced",
}

// TradeWriter is a CSV writer for closed trade records.
type TradeWriter struct {
	file   *os.File
	writer *csv.Writer
	logger *zap.Logger
	mu     sync.Mutex
}

// NewTradeWriter creates the output file and writes the header row.
func NewTradeWriter(filePath string, logger *zap.Logger) (*TradeWriter, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(tradeHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	return &TradeWriter{
		file:   file,
		writer: writer,
		logger: logger,
	}, nil
}

// Write appends one trade record.
func (w *TradeWriter) Write(trade env.Trade) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	record := []string{
		trade.Side.String(),
		strconv.FormatFloat(trade.EntryPrice, 'f', -1, 64),
		strconv.FormatFloat(trade.ExitPrice, 'f', -1, 64),
		strconv.FormatFloat(trade.Quantity, 'f', -1, 64),
		strconv.FormatFloat(trade.RealizedPnL, 'f', -1, 64),
		strconv.FormatFloat(trade.Fees, 'f', -1, 64),
		strconv.Itoa(trade.EntryStep),
		strconv.Itoa(trade.ExitStep),
		strconv.FormatBool(trade.Forced),
	}
	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write trade record to CSV: %w", err)
	}
	return nil
}

// WriteAll appends every trade in order.
func (w *TradeWriter) WriteAll(trades []env.Trade) error {
	for _, trade := range trades {
		if err := w.Write(trade); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying file.
func (w *TradeWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writer.Flush()
}

// Close flushes and closes the file.
func (w *TradeWriter) Close() error {
	w.Flush()
	if err := w.writer.Error(); err != nil {
		w.logger.Warn("CSV writer reported an error on close", zap.Error(err))
	}
	return w.file.Close()
}
