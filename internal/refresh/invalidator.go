package refresh

import (
	"context"
	"log/slog"
	"time"
)

// InvalidateTimeout bounds the cache delete, which runs detached from the
// request's cancellation.
const InvalidateTimeout = 500 * time.Millisecond

// CacheDeleter removes lookup-cache entries for an email.
type CacheDeleter interface {
	DeleteRSVP(ctx context.Context, email string) error
}

// CacheInvalidator clears lookup-cache entries for the event's email.
// It runs synchronously so a lookup right after create sees the new record.
type CacheInvalidator struct {
	cache  CacheDeleter
	logger *slog.Logger
}

// NewCacheInvalidator creates a CacheInvalidator.
func NewCacheInvalidator(cache CacheDeleter, logger *slog.Logger) *CacheInvalidator {
	return &CacheInvalidator{
		cache:  cache,
		logger: logger.With("component", "refresh.cache"),
	}
}

// Notify deletes the positive and negative cache entries for the RSVP's email.
func (c *CacheInvalidator) Notify(ctx context.Context, event Event) {
	if event.RSVP == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), InvalidateTimeout)
	defer cancel()

	if err := c.cache.DeleteRSVP(ctx, event.RSVP.Email); err != nil {
		c.logger.Warn("failed to invalidate lookup cache",
			"event_id", event.ID,
			"error", err,
		)
	}
}
