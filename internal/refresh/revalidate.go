package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/eventide/rsvp/internal/metrics"
)

const (
	// RevalidateTimeout bounds a single revalidation request.
	RevalidateTimeout = 5 * time.Second

	// RootPath is the page that lists RSVP-derived content.
	RootPath = "/"
)

// Header names for revalidation requests.
const (
	HeaderSignature = "X-Eventide-Signature"
	HeaderTimestamp = "X-Eventide-Timestamp"
	HeaderEventID   = "X-Eventide-Event-Id"
)

// RevalidatePayload is the JSON body posted to the revalidation hook.
// It names paths only; attendee data never leaves the service this way.
type RevalidatePayload struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	Paths      []string  `json:"paths"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Revalidator asks the front-end to rebuild cached pages after a write.
type Revalidator struct {
	url      string
	secret   string
	client   *http.Client
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
	inflight Inflight
}

// NewRevalidator creates a Revalidator posting to url, signed with secret.
func NewRevalidator(url, secret string, logger *slog.Logger, recorder metrics.Recorder) *Revalidator {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Revalidator{
		url:     url,
		secret:  secret,
		client:  NewHTTPClient(),
		logger:  logger.With("component", "refresh.revalidate"),
		metrics: recorder,
		now:     time.Now,
	}
}

// NewHTTPClient creates an HTTP client for revalidation requests.
// It does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: RevalidateTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   2 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   2 * time.Second,
			ResponseHeaderTimeout: 3 * time.Second,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Send posts one signed revalidation request and reports non-2xx responses as errors.
func (r *Revalidator) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(RevalidatePayload{
		EventID:    event.ID,
		Type:       event.Type,
		Paths:      []string{RootPath},
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	timestamp := r.now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Eventide-Revalidate/1.0")
	req.Header.Set(HeaderSignature, GenerateSignature(r.secret, timestamp, body))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderEventID, event.ID)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post revalidate: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revalidate returned status %d", resp.StatusCode)
	}
	return nil
}

// Notify sends the revalidation request in the background, single attempt.
func (r *Revalidator) Notify(_ context.Context, event Event) {
	r.inflight.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), RevalidateTimeout)
		defer cancel()

		if err := r.Send(ctx, event); err != nil {
			r.logger.Warn("revalidation failed",
				"event_id", event.ID,
				"error", err,
			)
			r.metrics.IncRefreshEvent(metrics.RefreshDropped)
			return
		}
		r.metrics.IncRefreshEvent(metrics.RefreshPublished)
	})
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (r *Revalidator) Wait(ctx context.Context) error {
	return r.inflight.Wait(ctx)
}
