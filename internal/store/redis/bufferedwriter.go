package redis

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// LatestWriter stores latest outputs. *Writer satisfies it.
type LatestWriter interface {
	WriteLatest(ctx context.Context, batch []Latest) error
}

// BufferedWriter sends latest outputs through a circuit breaker. While the
// breaker is open, batches are kept locally and replayed on the next
// successful write.
type BufferedWriter struct {
	writer LatestWriter
	cb     *CircuitBreaker

	mu     sync.Mutex
	buffer []Latest
	maxBuf int // oldest entries are dropped beyond this

	// OnBuffer is called with the number of outputs buffered.
	OnBuffer func(n int)
	// OnFlush is called after buffered outputs were written.
	OnFlush func(n int)
}

// NewBufferedWriter wraps w. maxBufferSize <= 0 uses 10000.
func NewBufferedWriter(w LatestWriter, cb *CircuitBreaker, maxBufferSize int) *BufferedWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	return &BufferedWriter{
		writer: w,
		cb:     cb,
		buffer: make([]Latest, 0, 256),
		maxBuf: maxBufferSize,
	}
}

// WriteLatest writes batch, first replaying anything buffered. If the
// breaker is open the batch is buffered and nil is returned.
func (bw *BufferedWriter) WriteLatest(ctx context.Context, batch []Latest) error {
	pending := bw.take()
	all := append(pending, batch...)
	if len(all) == 0 {
		return nil
	}

	err := bw.cb.Execute(func() error {
		return bw.writer.WriteLatest(ctx, all)
	})
	switch {
	case err == nil:
		if len(pending) > 0 {
			log.Info().Int("count", len(pending)).Msg("[buffered-writer] flushed buffered outputs")
			if bw.OnFlush != nil {
				bw.OnFlush(len(pending))
			}
		}
		return nil
	case errors.Is(err, ErrCircuitOpen):
		bw.put(all)
		return nil
	default:
		// Keep the batch for the next attempt but report the failure.
		bw.put(all)
		return err
	}
}

func (bw *BufferedWriter) take() []Latest {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if len(bw.buffer) == 0 {
		return nil
	}
	out := bw.buffer
	bw.buffer = make([]Latest, 0, 256)
	return out
}

func (bw *BufferedWriter) put(batch []Latest) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	bw.buffer = append(bw.buffer, batch...)
	if over := len(bw.buffer) - bw.maxBuf; over > 0 {
		bw.buffer = append(bw.buffer[:0:0], bw.buffer[over:]...)
	}
	if bw.OnBuffer != nil {
		bw.OnBuffer(len(batch))
	}
}

// PendingCount returns the number of buffered outputs.
func (bw *BufferedWriter) PendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}
