package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RSVPsCreated           uint64
	RejectedInvalid        uint64
	RejectedDuplicate      uint64
	RejectedStoreError     uint64
	RejectedInsertError    uint64
	LookupsFound           uint64
	LookupsNotFound        uint64
	LookupsError           uint64
	LookupCacheHits        uint64
	LookupCacheMisses      uint64
	LookupDurationCount    uint64
	LookupDurationTotalNs  int64
	RefreshEventsPublished uint64
	RefreshEventsDropped   uint64
	EmailsSent             uint64
	EmailsFailed           uint64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	rsvpsCreated           atomic.Uint64
	rejectedInvalid        atomic.Uint64
	rejectedDuplicate      atomic.Uint64
	rejectedStoreError     atomic.Uint64
	rejectedInsertError    atomic.Uint64
	lookupsFound           atomic.Uint64
	lookupsNotFound        atomic.Uint64
	lookupsError           atomic.Uint64
	lookupCacheHits        atomic.Uint64
	lookupCacheMisses      atomic.Uint64
	lookupDurationCount    atomic.Uint64
	lookupDurationTotalNs  atomic.Int64
	refreshEventsPublished atomic.Uint64
	refreshEventsDropped   atomic.Uint64
	emailsSent             atomic.Uint64
	emailsFailed           atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		RSVPsCreated:           m.rsvpsCreated.Load(),
		RejectedInvalid:        m.rejectedInvalid.Load(),
		RejectedDuplicate:      m.rejectedDuplicate.Load(),
		RejectedStoreError:     m.rejectedStoreError.Load(),
		RejectedInsertError:    m.rejectedInsertError.Load(),
		LookupsFound:           m.lookupsFound.Load(),
		LookupsNotFound:        m.lookupsNotFound.Load(),
		LookupsError:           m.lookupsError.Load(),
		LookupCacheHits:        m.lookupCacheHits.Load(),
		LookupCacheMisses:      m.lookupCacheMisses.Load(),
		LookupDurationCount:    m.lookupDurationCount.Load(),
		LookupDurationTotalNs:  m.lookupDurationTotalNs.Load(),
		RefreshEventsPublished: m.refreshEventsPublished.Load(),
		RefreshEventsDropped:   m.refreshEventsDropped.Load(),
		EmailsSent:             m.emailsSent.Load(),
		EmailsFailed:           m.emailsFailed.Load(),
	}
}

// IncRSVPCreated increments the created counter.
func (m *InMemoryRecorder) IncRSVPCreated() {
	m.rsvpsCreated.Add(1)
}

// IncRSVPRejected increments the rejection counter for reason.
// Unknown reasons are ignored.
func (m *InMemoryRecorder) IncRSVPRejected(reason string) {
	switch reason {
	case ReasonInvalid:
		m.rejectedInvalid.Add(1)
	case ReasonDuplicate:
		m.rejectedDuplicate.Add(1)
	case ReasonStore:
		m.rejectedStoreError.Add(1)
	case ReasonInsert:
		m.rejectedInsertError.Add(1)
	}
}

// IncLookup increments the lookup counter for result.
func (m *InMemoryRecorder) IncLookup(result string) {
	switch result {
	case LookupFound:
		m.lookupsFound.Add(1)
	case LookupNotFound:
		m.lookupsNotFound.Add(1)
	case LookupError:
		m.lookupsError.Add(1)
	}
}

// IncLookupCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncLookupCacheHit() {
	m.lookupCacheHits.Add(1)
}

// IncLookupCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncLookupCacheMiss() {
	m.lookupCacheMisses.Add(1)
}

// ObserveLookupDuration records lookup duration.
func (m *InMemoryRecorder) ObserveLookupDuration(duration time.Duration) {
	m.lookupDurationCount.Add(1)
	m.lookupDurationTotalNs.Add(duration.Nanoseconds())
}

// IncRefreshEvent increments the refresh event counter for status.
func (m *InMemoryRecorder) IncRefreshEvent(status string) {
	if status == RefreshPublished {
		m.refreshEventsPublished.Add(1)
		return
	}
	m.refreshEventsDropped.Add(1)
}

// IncEmail increments the email counter for status.
func (m *InMemoryRecorder) IncEmail(status string) {
	if status == EmailSent {
		m.emailsSent.Add(1)
		return
	}
	m.emailsFailed.Add(1)
}
