package datastore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/ppo-trade-agent/pkg/logger"
)

// PoolIface is the subset of *pgxpool.Pool the repository needs.
// It allows tests to inject a mock pool.
type PoolIface interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Repository loads market data series from the database.
type Repository struct {
	pool PoolIface
}

// NewRepository creates a new Repository backed by the given pool.
func NewRepository(pool PoolIface) *Repository {
	return &Repository{pool: pool}
}

// Connect opens a connection pool for the given DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// LoadOHLCV returns up to limit candles for the symbol, ascending by timestamp.
func (r *Repository) LoadOHLCV(ctx context.Context, symbol string, limit int) ([]Candle, error) {
	const query = `
		SELECT unix, open, high, low, close, volume
		FROM spot_ohlcv
		WHERE symbol = $1
		ORDER BY unix ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ohlcv for %s: %w", symbol, err)
	}
	defer rows.Close()

	var candles []Candle
	for rows.Next() {
		var c Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan ohlcv row: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ohlcv rows: %w", err)
	}
	logger.Infof("Loaded %d OHLCV records for %s", len(candles), symbol)
	return candles, nil
}

// LoadFundingRates returns all funding rate records for the symbol, ascending by timestamp.
func (r *Repository) LoadFundingRates(ctx context.Context, symbol string) ([]FundingRate, error) {
	const query = `
		SELECT unix, last_funding_rate
		FROM funding_rates
		WHERE symbol = $1
		ORDER BY unix ASC
	`
	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query funding rates for %s: %w", symbol, err)
	}
	defer rows.Close()

	var rates []FundingRate
	for rows.Next() {
		var fr FundingRate
		if err := rows.Scan(&fr.Timestamp, &fr.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan funding rate row: %w", err)
		}
		rates = append(rates, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read funding rate rows: %w", err)
	}
	logger.Infof("Loaded %d funding rate records", len(rates))
	return rates, nil
}

// LoadVWAP returns all VWAP records for the symbol, ascending by timestamp.
func (r *Repository) LoadVWAP(ctx context.Context, symbol string) ([]VWAPRecord, error) {
	const query = `
		SELECT unix, vwap
		FROM spot_summary
		WHERE symbol = $1
		ORDER BY unix ASC
	`
	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query vwap for %s: %w", symbol, err)
	}
	defer rows.Close()

	var records []VWAPRecord
	for rows.Next() {
		var v VWAPRecord
		if err := rows.Scan(&v.Timestamp, &v.VWAP); err != nil {
			return nil, fmt.Errorf("failed to scan vwap row: %w", err)
		}
		records = append(records, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vwap rows: %w", err)
	}
	logger.Infof("Loaded %d VWAP records", len(records))
	return records, nil
}
