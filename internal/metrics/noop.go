package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRSVPCreated is a no-op.
func (n *NoopRecorder) IncRSVPCreated() {}

// IncRSVPRejected is a no-op.
func (n *NoopRecorder) IncRSVPRejected(reason string) {}

// IncLookup is a no-op.
func (n *NoopRecorder) IncLookup(result string) {}

// IncLookupCacheHit is a no-op.
func (n *NoopRecorder) IncLookupCacheHit() {}

// IncLookupCacheMiss is a no-op.
func (n *NoopRecorder) IncLookupCacheMiss() {}

// ObserveLookupDuration is a no-op.
func (n *NoopRecorder) ObserveLookupDuration(duration time.Duration) {}

// IncRefreshEvent is a no-op.
func (n *NoopRecorder) IncRefreshEvent(status string) {}

// IncEmail is a no-op.
func (n *NoopRecorder) IncEmail(status string) {}
