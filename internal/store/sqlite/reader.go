package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"tautils/internal/indicator"
	"tautils/internal/model"
)

// Reader provides read-only access to SQLite for replay and snapshot restore.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Info().Str("path", dbPath).Msg("[sqlite-reader] opened")
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadBars reads bars for symbol with ts > afterTS (unix seconds), ordered by
// timestamp ascending for correct replay order.
func (r *Reader) ReadBars(symbol string, afterTS int64) ([]model.Bar, error) {
	rows, err := r.db.Query(`
		SELECT symbol, ts, open, high, low, close, price, volume
		FROM bars
		WHERE symbol = ? AND ts > ?
		ORDER BY ts ASC
	`, symbol, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var (
			sym                             string
			tsUnix                          int64
			open, high, low, closePx, price float64
			volume                          sql.NullFloat64
		)
		if err := rows.Scan(&sym, &tsUnix, &open, &high, &low, &closePx, &price, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		vol := math.NaN()
		if volume.Valid {
			vol = volume.Float64
		}
		bars = append(bars, model.NewBar().
			SetSymbol(sym).
			SetTime(time.Unix(tsUnix, 0)).
			SetOpen(open).SetHigh(high).SetLow(low).SetClose(closePx).
			SetPrice(price).SetVolume(vol))
	}
	return bars, rows.Err()
}

// ReadSymbols lists the distinct symbols in the bars table.
func (r *Reader) ReadSymbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("sqlite scan symbols: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReadOutputs reads journaled outputs for a strategy with ts > afterTS,
// ordered by timestamp then indicator.
func (r *Reader) ReadOutputs(strategy string, afterTS int64) ([]OutputRow, error) {
	rows, err := r.db.Query(`
		SELECT strategy, indicator, symbol, ts, value, shape
		FROM outputs
		WHERE strategy = ? AND ts > ?
		ORDER BY ts ASC, indicator ASC
	`, strategy, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query outputs: %w", err)
	}
	defer rows.Close()

	var out []OutputRow
	for rows.Next() {
		var (
			row          OutputRow
			tsUnix       int64
			value, shape string
		)
		if err := rows.Scan(&row.Strategy, &row.Indicator, &row.Symbol, &tsUnix, &value, &shape); err != nil {
			return nil, fmt.Errorf("sqlite scan outputs: %w", err)
		}
		if err := json.Unmarshal([]byte(value), &row.Value); err != nil {
			return nil, fmt.Errorf("unmarshal output %s: %w", row.Indicator, err)
		}
		if err := json.Unmarshal([]byte(shape), &row.Shape); err != nil {
			return nil, fmt.Errorf("unmarshal shape %s: %w", row.Indicator, err)
		}
		row.TS = time.Unix(tsUnix, 0).UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReadLatestSnapshot loads the most recent indicator snapshot for a strategy.
// Returns nil and no error when there is none.
func (r *Reader) ReadLatestSnapshot(strategy string) (*indicator.SetSnapshot, error) {
	var data string
	err := r.db.QueryRow(`
		SELECT data FROM indicator_snapshots
		WHERE strategy = ?
		ORDER BY id DESC
		LIMIT 1
	`, strategy).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read snapshot: %w", err)
	}

	var snap indicator.SetSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}

func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
