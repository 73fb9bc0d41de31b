package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventide/rsvp/internal/metrics"
)

const (
	// StreamKey is the Redis stream for RSVP events.
	StreamKey = "stream:rsvp_events"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 10000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 500 * time.Millisecond
)

// StreamPublisher appends refresh events to a Redis stream for downstream consumers.
type StreamPublisher struct {
	redis    *redis.Client
	logger   *slog.Logger
	metrics  metrics.Recorder
	inflight Inflight
}

// NewStreamPublisher creates a new StreamPublisher.
func NewStreamPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *StreamPublisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &StreamPublisher{
		redis:   client,
		logger:  logger.With("component", "refresh.stream"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously.
func (p *StreamPublisher) Publish(ctx context.Context, event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"event_id": event.ID,
			"type":     event.Type,
			"payload":  string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// Notify publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *StreamPublisher) Notify(_ context.Context, event Event) {
	p.inflight.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish rsvp event",
				"event_id", event.ID,
				"error", err,
			)
			p.metrics.IncRefreshEvent(metrics.RefreshDropped)
			return
		}

		p.logger.Debug("rsvp event published",
			"event_id", event.ID,
			"stream_id", streamID,
		)
		p.metrics.IncRefreshEvent(metrics.RefreshPublished)
	})
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (p *StreamPublisher) Wait(ctx context.Context) error {
	return p.inflight.Wait(ctx)
}
