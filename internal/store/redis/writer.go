package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"tautils/internal/metrics"
	"tautils/internal/output"
	"tautils/internal/strategy"
)

const (
	defaultLatestTTL = 10 * time.Minute
	streamMaxLen     = 10000
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr      string // Redis address, e.g. "localhost:6379"
	Password  string
	DB        int
	LatestTTL time.Duration // 0 uses the default
	Metrics   *metrics.Metrics
}

// Latest is the most recent output of one indicator for one strategy and
// symbol.
type Latest struct {
	Strategy  string       `json:"strategy"`
	Indicator string       `json:"indicator"`
	Symbol    string       `json:"symbol"`
	TS        time.Time    `json:"ts"`
	Value     output.Value `json:"value"`
	Shape     output.Shape `json:"shape"`
}

// LatestKey is the Redis key holding l.
func LatestKey(strategyName, indicator, symbol string) string {
	return "out:" + strategyName + ":" + indicator + ":latest:" + symbol
}

// SignalStream is the stream signals of a strategy are appended to.
func SignalStream(strategyName string) string { return "signal:" + strategyName }

// SignalChannel is the pubsub channel signals of a strategy are published on.
func SignalChannel(strategyName string) string { return "pub:signal:" + strategyName }

// Writer caches latest outputs and publishes signals.
type Writer struct {
	client  *goredis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.LatestTTL
	if ttl <= 0 {
		ttl = defaultLatestTTL
	}
	log.Info().Str("addr", cfg.Addr).Msg("[redis] connected")
	return &Writer{client: client, ttl: ttl, metrics: cfg.Metrics}, nil
}

// SetLatest stores one latest output with the writer's TTL.
func (w *Writer) SetLatest(ctx context.Context, l Latest) error {
	return w.WriteLatest(ctx, []Latest{l})
}

// WriteLatest stores a batch of latest outputs in a single pipeline.
func (w *Writer) WriteLatest(ctx context.Context, batch []Latest) error {
	if len(batch) == 0 {
		return nil
	}
	start := time.Now()

	pipe := w.client.Pipeline()
	for i := range batch {
		l := &batch[i]
		data, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("marshal latest %s: %w", l.Indicator, err)
		}
		pipe.Set(ctx, LatestKey(l.Strategy, l.Indicator, l.Symbol), data, w.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis latest pipeline (%d outputs): %w", len(batch), err)
	}

	if w.metrics != nil {
		w.metrics.RedisWriteDur.Observe(time.Since(start).Seconds())
	}
	return nil
}

// PublishSignal appends sig to its strategy's stream and publishes it for
// live subscribers.
func (w *Writer) PublishSignal(ctx context.Context, sig strategy.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: SignalStream(sig.StrategyName),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	})
	pipe.Publish(ctx, SignalChannel(sig.StrategyName), string(data))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis signal pipeline for %s: %w", sig.StrategyName, err)
	}
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
