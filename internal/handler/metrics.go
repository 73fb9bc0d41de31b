package handler

import (
	"fmt"
	"net/http"

	"github.com/eventide/rsvp/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "eventide_rsvps_created_total %d\n", snap.RSVPsCreated)
	writeMetric(w, "eventide_rsvps_rejected_total{reason=%q} %d\n", metrics.ReasonInvalid, snap.RejectedInvalid)
	writeMetric(w, "eventide_rsvps_rejected_total{reason=%q} %d\n", metrics.ReasonDuplicate, snap.RejectedDuplicate)
	writeMetric(w, "eventide_rsvps_rejected_total{reason=%q} %d\n", metrics.ReasonStore, snap.RejectedStoreError)
	writeMetric(w, "eventide_rsvps_rejected_total{reason=%q} %d\n", metrics.ReasonInsert, snap.RejectedInsertError)

	writeMetric(w, "eventide_lookups_total{result=%q} %d\n", metrics.LookupFound, snap.LookupsFound)
	writeMetric(w, "eventide_lookups_total{result=%q} %d\n", metrics.LookupNotFound, snap.LookupsNotFound)
	writeMetric(w, "eventide_lookups_total{result=%q} %d\n", metrics.LookupError, snap.LookupsError)
	writeMetric(w, "eventide_lookup_cache_hits_total %d\n", snap.LookupCacheHits)
	writeMetric(w, "eventide_lookup_cache_misses_total %d\n", snap.LookupCacheMisses)
	writeMetric(w, "eventide_lookup_duration_seconds_count %d\n", snap.LookupDurationCount)
	writeMetric(w, "eventide_lookup_duration_seconds_sum %.6f\n", float64(snap.LookupDurationTotalNs)/1e9)

	writeMetric(w, "eventide_refresh_events_total{status=\"published\"} %d\n", snap.RefreshEventsPublished)
	writeMetric(w, "eventide_refresh_events_total{status=\"dropped\"} %d\n", snap.RefreshEventsDropped)

	writeMetric(w, "eventide_confirmation_emails_total{status=\"sent\"} %d\n", snap.EmailsSent)
	writeMetric(w, "eventide_confirmation_emails_total{status=\"failed\"} %d\n", snap.EmailsFailed)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
