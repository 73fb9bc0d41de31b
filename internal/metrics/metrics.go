// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Rejection reasons for IncRSVPRejected.
const (
	ReasonInvalid   = "invalid"
	ReasonDuplicate = "duplicate"
	ReasonStore     = "store_error"
	ReasonInsert    = "insert_error"
)

// Lookup results for IncLookup.
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

// Refresh event statuses for IncRefreshEvent.
const (
	RefreshPublished = "published"
	RefreshDropped   = "dropped"
)

// Email statuses for IncEmail.
const (
	EmailSent   = "sent"
	EmailFailed = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Submission metrics
	IncRSVPCreated()
	IncRSVPRejected(reason string)

	// Lookup metrics
	IncLookup(result string)
	IncLookupCacheHit()
	IncLookupCacheMiss()
	ObserveLookupDuration(duration time.Duration)

	// Side effects
	IncRefreshEvent(status string)
	IncEmail(status string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
