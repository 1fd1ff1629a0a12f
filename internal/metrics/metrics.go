package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds all Prometheus metrics for strategy evaluation.
type Metrics struct {
	EvaluationsTotal   *prometheus.CounterVec // labels: strategy
	ResolveErrorsTotal *prometheus.CounterVec // labels: strategy
	IncomparableTotal  *prometheus.CounterVec // labels: strategy
	SignalsTotal       *prometheus.CounterVec // labels: strategy, action
	SignalDropsTotal   prometheus.Counter
	EvaluateDur        prometheus.Histogram

	// Journal metrics
	OutputsWritten  prometheus.Counter
	SQLiteCommitDur prometheus.Histogram
	RedisWriteDur   prometheus.Histogram
}

// NewMetrics registers and returns all metrics on the default registry.
func NewMetrics() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// New builds the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tautils_evaluations_total",
			Help: "Strategy tree evaluations, one per bar per strategy",
		}, []string{"strategy"}),
		ResolveErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tautils_resolve_errors_total",
			Help: "Outputs that failed to resolve against a bar",
		}, []string{"strategy"}),
		IncomparableTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tautils_incomparable_total",
			Help: "Conditions whose operands had no ordering",
		}, []string{"strategy"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tautils_signals_total",
			Help: "Signals emitted by strategies",
		}, []string{"strategy", "action"}),
		SignalDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tautils_signal_drops_total",
			Help: "Signals dropped because the signal channel was full",
		}),
		EvaluateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tautils_evaluate_duration_seconds",
			Help:    "Time to update indicators and evaluate all strategies for one bar",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		OutputsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tautils_outputs_written_total",
			Help: "Output rows journaled to SQLite",
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tautils_sqlite_commit_duration_seconds",
			Help:    "Duration of SQLite journal batch commits",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tautils_redis_write_duration_seconds",
			Help:    "Duration of Redis latest-output writes",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
	}

	reg.MustRegister(
		m.EvaluationsTotal,
		m.ResolveErrorsTotal,
		m.IncomparableTotal,
		m.SignalsTotal,
		m.SignalDropsTotal,
		m.EvaluateDur,
		m.OutputsWritten,
		m.SQLiteCommitDur,
		m.RedisWriteDur,
	)

	return m
}

// HealthStatus represents the health of the evaluator and its stores.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastBarTime    time.Time `json:"last_bar_time"`
	BarsProcessed  int64     `json:"bars_processed"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

// ObserveBar records that a bar stamped t was evaluated.
func (h *HealthStatus) ObserveBar(t time.Time) {
	h.mu.Lock()
	h.LastBarTime = t
	h.BarsProcessed++
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either handle may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.SQLiteOK || (h.RedisEnabled && !h.RedisConnected) {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastBar := ""
	if !h.LastBarTime.IsZero() {
		lastBar = h.LastBarTime.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		LastBarTime     string  `json:"last_bar_time"`
		BarsProcessed   int64   `json:"bars_processed"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		LastBarTime:     lastBar,
		BarsProcessed:   h.BarsProcessed,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Serve binds addr and serves /metrics and, when health is non-nil,
// /healthz in the background. Bind failures are returned; later serve
// errors are logged. The caller owns shutdown.
func Serve(addr string, health *HealthStatus) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if health != nil {
		mux.Handle("/healthz", health)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("[metrics] server error")
		}
	}()
	return srv, nil
}
