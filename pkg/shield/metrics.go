package shield

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBufferSize    = 100
	DefaultFlushInterval = 10 * time.Second

	// requeueTail is how many of the newest metrics survive a failed flush.
	requeueTail = 10
)

// Metric records one delegation tool invocation.
type Metric struct {
	Timestamp    time.Time `json:"timestamp"`
	ToolName     string    `json:"toolName"`
	Action       string    `json:"action"`
	DurationMs   int64     `json:"durationMs"`
	Denied       bool      `json:"denied,omitempty"`
	DenialReason string    `json:"denialReason,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	UserID       string    `json:"userId,omitempty"`
	AgentID      string    `json:"agentId,omitempty"`
}

// Sink receives flushed batches.
type Sink interface {
	SendMetrics(ctx context.Context, batch []Metric) error
}

// SendMetrics posts a batch in a single attempt. Retrying is left to the
// buffer, which keeps the newest metrics of a failed batch.
func (c *Client) SendMetrics(ctx context.Context, batch []Metric) error {
	body, err := json.Marshal(struct {
		BatchID string   `json:"batchId"`
		Metrics []Metric `json:"metrics"`
	}{uuid.NewString(), batch})
	if err != nil {
		return fmt.Errorf("shield: encode metrics: %w", err)
	}

	status, raw, err := c.post(ctx, c.BaseURL+"/v1/metrics", body, uuid.NewString())
	if err != nil || status < 200 || status > 299 {
		return &Error{Status: status, Message: errorMessage(status, raw, err), Attempts: 1, Err: err}
	}
	return nil
}

// MetricsBuffer batches metrics and flushes them when BufferSize is reached
// or every FlushInterval, whichever comes first. A failed flush re-queues
// only the newest few records, so an outage loses old metrics instead of
// growing without bound.
type MetricsBuffer struct {
	Sink          Sink
	BufferSize    int
	FlushInterval time.Duration
	Logger        *slog.Logger

	mu      sync.Mutex
	buf     []Metric
	flushCh chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

func NewMetricsBuffer(sink Sink, logger *slog.Logger) *MetricsBuffer {
	return &MetricsBuffer{
		Sink:          sink,
		BufferSize:    DefaultBufferSize,
		FlushInterval: DefaultFlushInterval,
		Logger:        logger,
		flushCh:       make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Record appends m. It never blocks on the network.
func (b *MetricsBuffer) Record(m Metric) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	b.buf = append(b.buf, m)
	full := len(b.buf) >= b.BufferSize
	b.mu.Unlock()

	if full {
		select {
		case b.flushCh <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of buffered metrics.
func (b *MetricsBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Flush sends everything buffered so far. On failure the newest
// min(10, len(batch)) records are put back in front of anything recorded
// during the send.
func (b *MetricsBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	batch := b.buf
	b.buf = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := b.Sink.SendMetrics(ctx, batch); err != nil {
		keep := batch[len(batch)-min(requeueTail, len(batch)):]

		b.mu.Lock()
		b.buf = append(append(make([]Metric, 0, len(keep)+len(b.buf)), keep...), b.buf...)
		b.mu.Unlock()

		return fmt.Errorf("flush %d metrics: %w", len(batch), err)
	}
	return nil
}

// Start runs the flush loop in the background. Call Stop to end it.
func (b *MetricsBuffer) Start() {
	b.started = true
	go b.run()
	b.logger().Info("metrics buffer started", "interval", b.FlushInterval, "size", b.BufferSize)
}

// Stop ends the flush loop and makes one final flush.
func (b *MetricsBuffer) Stop(ctx context.Context) {
	if b.started {
		close(b.stopCh)
		<-b.doneCh
	}
	if err := b.Flush(ctx); err != nil {
		b.logger().Warn("final metrics flush failed", "err", err)
	}
	b.logger().Info("metrics buffer stopped")
}

func (b *MetricsBuffer) run() {
	defer close(b.doneCh)

	ticker := time.NewTicker(b.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-b.flushCh:
		case <-b.stopCh:
			return
		}
		if err := b.Flush(context.Background()); err != nil {
			b.logger().Warn("metrics flush failed", "err", err)
		}
	}
}

func (b *MetricsBuffer) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

var _ Sink = (*Client)(nil)
