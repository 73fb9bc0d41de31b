package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eventide/rsvp/internal/model"
)

const (
	restTable          = "rsvps"
	restRequestTimeout = 10 * time.Second
	maxRESTErrorBody   = 4096
)

// restError is the error body returned by PostgREST.
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *restError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("postgrest %s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("postgrest %s: %s", e.Code, e.Message)
}

// restInsert is the row shape sent on insert; id and created_at are assigned by the database.
type restInsert struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	SpecialRequests *string `json:"special_requests"`
}

// RESTRepository is an RSVP store backed by a hosted PostgREST API (Supabase).
type RESTRepository struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRESTRepository creates a store for the project at baseURL authenticated with apiKey.
// A nil client uses a default client with a request timeout.
func NewRESTRepository(baseURL, apiKey string, client *http.Client) (*RESTRepository, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid PostgREST URL %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: restRequestTimeout}
	}
	return &RESTRepository{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/rest/v1/" + restTable,
		apiKey:     apiKey,
		httpClient: client,
	}, nil
}

// FindByEmail returns the RSVP whose email matches exactly.
func (r *RESTRepository) FindByEmail(ctx context.Context, email string) (*model.RSVP, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("email", "eq."+email)
	query.Set("limit", "1")

	req, err := r.newRequest(ctx, http.MethodGet, r.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var rows []model.RSVP
	if err := r.do(req, &rows); err != nil {
		return nil, fmt.Errorf("failed to get rsvp by email: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrRSVPNotFound
	}

	rsvp := rows[0]
	rsvp.CreatedAt = rsvp.CreatedAt.UTC()
	return &rsvp, nil
}

// InsertRSVP inserts a new RSVP and fills in its store-assigned ID and CreatedAt.
func (r *RESTRepository) InsertRSVP(ctx context.Context, rsvp *model.RSVP) error {
	body, err := json.Marshal(restInsert{
		Name:            rsvp.Name,
		Email:           rsvp.Email,
		SpecialRequests: rsvp.SpecialRequests,
	})
	if err != nil {
		return fmt.Errorf("marshal rsvp: %w", err)
	}

	req, err := r.newRequest(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	var rows []model.RSVP
	if err := r.do(req, &rows); err != nil {
		if isRESTUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to insert rsvp: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("failed to insert rsvp: empty representation")
	}

	rsvp.ID = rows[0].ID
	rsvp.CreatedAt = rows[0].CreatedAt.UTC()
	return nil
}

// Ping checks that the API answers for the rsvps table.
func (r *RESTRepository) Ping(ctx context.Context) error {
	req, err := r.newRequest(ctx, http.MethodGet, r.baseURL+"?select=id&limit=0", nil)
	if err != nil {
		return err
	}
	var rows []json.RawMessage
	return r.do(req, &rows)
}

// Close releases idle connections.
func (r *RESTRepository) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}

func (r *RESTRepository) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (r *RESTRepository) do(req *http.Request, out any) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxRESTErrorBody))
		restErr := &restError{}
		if json.Unmarshal(raw, restErr) != nil || restErr.Code == "" {
			restErr.Message = strings.TrimSpace(string(raw))
			restErr.Code = fmt.Sprintf("http_%d", resp.StatusCode)
			// A bare 409 from PostgREST is a constraint conflict.
			if resp.StatusCode == http.StatusConflict {
				restErr.Code = pgUniqueViolation
			}
		}
		return restErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isRESTUniqueViolation(err error) bool {
	var restErr *restError
	return errors.As(err, &restErr) && restErr.Code == pgUniqueViolation
}
