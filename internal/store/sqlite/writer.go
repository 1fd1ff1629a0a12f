package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"tautils/internal/indicator"
	"tautils/internal/metrics"
	"tautils/internal/model"
	"tautils/internal/output"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
	keepSnapshots     = 10
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath    string // path to SQLite database file, e.g. "data/candles.db"
	BatchSize int    // rows per transaction in Run; 0 uses the default
	Metrics   *metrics.Metrics
}

// OutputRow is one journaled indicator output.
type OutputRow struct {
	Strategy  string
	Indicator string
	Symbol    string
	TS        time.Time
	Value     output.Value
	Shape     output.Shape
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db        *sql.DB
	batchSize int
	metrics   *metrics.Metrics
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	log.Info().Str("path", cfg.DBPath).Msg("[sqlite] opened database")
	return &Writer{db: db, batchSize: batch, metrics: cfg.Metrics}, nil
}

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol     TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			price      REAL    NOT NULL,
			volume     REAL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS outputs (
			strategy   TEXT    NOT NULL,
			indicator  TEXT    NOT NULL,
			symbol     TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			value      TEXT    NOT NULL,
			shape      TEXT    NOT NULL,
			PRIMARY KEY (strategy, indicator, symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS indicator_snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy   TEXT    NOT NULL,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	return err
}

// WriteBars inserts bars in a single transaction. Rows with the same symbol
// and timestamp are replaced.
func (w *Writer) WriteBars(bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	return w.inTx(`
		INSERT OR REPLACE INTO bars (symbol, ts, open, high, low, close, price, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, len(bars), func(stmt *sql.Stmt, i int) error {
		b := bars[i]
		_, err := stmt.Exec(b.Symbol(), b.Time().Unix(), b.Open(), b.High(), b.Low(), b.Close(), b.Price(), nullFloat(b.Volume()))
		return err
	})
}

// WriteOutputs journals outputs in a single transaction.
func (w *Writer) WriteOutputs(rows []OutputRow) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	err := w.inTx(`
		INSERT OR REPLACE INTO outputs (strategy, indicator, symbol, ts, value, shape)
		VALUES (?, ?, ?, ?, ?, ?)
	`, len(rows), func(stmt *sql.Stmt, i int) error {
		r := rows[i]
		value, err := json.Marshal(r.Value)
		if err != nil {
			return fmt.Errorf("marshal output %s: %w", r.Indicator, err)
		}
		shape, err := json.Marshal(r.Shape)
		if err != nil {
			return fmt.Errorf("marshal shape %s: %w", r.Indicator, err)
		}
		_, err = stmt.Exec(r.Strategy, r.Indicator, r.Symbol, r.TS.Unix(), string(value), string(shape))
		return err
	})
	if err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.SQLiteCommitDur.Observe(time.Since(start).Seconds())
		w.metrics.OutputsWritten.Add(float64(len(rows)))
	}
	return nil
}

// inTx prepares query once and executes it n times in one transaction.
func (w *Writer) inTx(query string, n int, exec func(stmt *sql.Stmt, i int) error) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Run reads outputs from rowCh and journals them in batched transactions.
// Flushes every BatchSize rows OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or rowCh is closed.
func (w *Writer) Run(ctx context.Context, rowCh <-chan OutputRow) {
	batch := make([]OutputRow, 0, w.batchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.WriteOutputs(batch); err != nil {
			log.Error().Err(err).Int("rows", len(batch)).Msg("[sqlite] batch insert error")
		} else {
			log.Debug().Int("rows", len(batch)).Dur("took", time.Since(start)).Msg("[sqlite] committed outputs")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case row, ok := <-rowCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, row)
			if len(batch) >= w.batchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// GetLastTimestamp returns the last stored bar timestamp for a symbol.
// Returns 0 if no bars exist.
func (w *Writer) GetLastTimestamp(symbol string) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(`SELECT MAX(ts) FROM bars WHERE symbol = ?`, symbol).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// SaveSnapshot saves a strategy's indicator snapshot to SQLite and prunes
// all but the newest few for that strategy.
func (w *Writer) SaveSnapshot(strategy string, snap indicator.SetSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = w.db.Exec(`INSERT INTO indicator_snapshots (strategy, data) VALUES (?, ?)`, strategy, string(data))
	if err != nil {
		return fmt.Errorf("sqlite insert snapshot: %w", err)
	}

	_, err = w.db.Exec(`
		DELETE FROM indicator_snapshots
		WHERE strategy = ? AND id NOT IN (
			SELECT id FROM indicator_snapshots WHERE strategy = ? ORDER BY id DESC LIMIT ?
		)`, strategy, strategy, keepSnapshots)
	if err != nil {
		log.Warn().Err(err).Msg("[sqlite] prune snapshots")
	}

	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
