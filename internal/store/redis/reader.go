package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"tautils/internal/indicator"
	"tautils/internal/strategy"
)

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr     string
	Password string
	DB       int
}

// Reader reads cached outputs, signals and snapshots.
type Reader struct {
	client *goredis.Client
}

// NewReader creates a Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
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

	log.Info().Str("addr", cfg.Addr).Msg("[redis-reader] connected")
	return &Reader{client: client}, nil
}

// GetLatest returns the cached output, or nil and no error if it is missing
// or expired.
func (r *Reader) GetLatest(ctx context.Context, strategyName, indicatorName, symbol string) (*Latest, error) {
	data, err := r.client.Get(ctx, LatestKey(strategyName, indicatorName, symbol)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET latest: %w", err)
	}

	var l Latest
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("unmarshal latest: %w", err)
	}
	return &l, nil
}

// ReadSignals returns up to count signals from a strategy's stream, oldest
// first.
func (r *Reader) ReadSignals(ctx context.Context, strategyName string, count int64) ([]strategy.Signal, error) {
	msgs, err := r.client.XRangeN(ctx, SignalStream(strategyName), "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("redis XRANGE %s: %w", SignalStream(strategyName), err)
	}

	out := make([]strategy.Signal, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var sig strategy.Signal
		if err := json.Unmarshal([]byte(data), &sig); err != nil {
			log.Warn().Err(err).Str("id", msg.ID).Msg("[redis-reader] skipping malformed signal")
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

// SubscribeSignals delivers published signals of a strategy to out until
// ctx is cancelled.
func (r *Reader) SubscribeSignals(ctx context.Context, strategyName string, out chan<- strategy.Signal) error {
	sub := r.client.Subscribe(ctx, SignalChannel(strategyName))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var sig strategy.Signal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				log.Warn().Err(err).Msg("[redis-reader] skipping malformed signal")
				continue
			}
			select {
			case out <- sig:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// ReadSnapshot loads an indicator snapshot, or nil if none is stored.
func (r *Reader) ReadSnapshot(ctx context.Context, key string) (*indicator.SetSnapshot, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET snapshot: %w", err)
	}

	var snap indicator.SetSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// WriteSnapshot stores an indicator snapshot without expiry.
func (r *Reader) WriteSnapshot(ctx context.Context, key string, snap indicator.SetSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return r.client.Set(ctx, key, data, 0).Err()
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
