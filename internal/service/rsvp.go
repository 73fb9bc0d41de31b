// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/eventide/rsvp/internal/cache"
	"github.com/eventide/rsvp/internal/metrics"
	"github.com/eventide/rsvp/internal/model"
	"github.com/eventide/rsvp/internal/refresh"
	"github.com/eventide/rsvp/internal/repository"
)

// Service errors.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateEmail   = errors.New("duplicate email")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInsertFailed     = errors.New("insert failed")
	ErrRSVPNotFound     = errors.New("rsvp not found")
)

// User-facing messages for failed submissions.
const (
	MessageInvalidInput     = "Invalid data provided. Please check the form and try again."
	MessageStoreUnavailable = "A database error occurred. Please try again later."
	MessageDuplicateEmail   = "An RSVP with this email address already exists. Please use the 'Find My RSVP' tab to view it."
	MessageInsertFailed     = "Failed to submit your RSVP. Please try again."
)

const cacheWriteTimeout = 500 * time.Millisecond

// Store is the persistence collaborator for RSVPs.
type Store interface {
	// FindByEmail returns repository.ErrRSVPNotFound when no record matches.
	FindByEmail(ctx context.Context, email string) (*model.RSVP, error)
	// InsertRSVP fills in ID and CreatedAt, and returns
	// repository.ErrEmailExists when the email is already taken.
	InsertRSVP(ctx context.Context, rsvp *model.RSVP) error
}

// LookupCache is the optional read-through cache used by lookups.
type LookupCache interface {
	// GetRSVP returns cache.ErrCacheMiss when no entry exists.
	GetRSVP(ctx context.Context, email string) (*model.RSVP, error)
	SetRSVP(ctx context.Context, rsvp *model.RSVP) error
	IsNegativelyCached(ctx context.Context, email string) (bool, error)
	SetNegativeCache(ctx context.Context, email string) error
}

// RSVPService handles RSVP submission and lookup.
type RSVPService struct {
	store    Store
	cache    LookupCache
	notifier refresh.Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewRSVPService creates a new RSVPService.
// cache, notifier, recorder and logger may be nil.
func NewRSVPService(store Store, lookupCache LookupCache, notifier refresh.Notifier, recorder metrics.Recorder, logger *slog.Logger) *RSVPService {
	if notifier == nil {
		notifier = refresh.Noop{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RSVPService{
		store:    store,
		cache:    lookupCache,
		notifier: notifier,
		metrics:  recorder,
		logger:   logger.With("component", "service.rsvp"),
	}
}

// CreateRSVPInput defines input for creating an RSVP.
// A nil SpecialRequests means the field was omitted or null.
type CreateRSVPInput struct {
	Name            string
	Email           string
	SpecialRequests *string
}

// Create validates input and stores a new RSVP if none exists for the email.
// Errors match one of ErrInvalidInput, ErrDuplicateEmail, ErrStoreUnavailable
// or ErrInsertFailed.
func (s *RSVPService) Create(ctx context.Context, input CreateRSVPInput) (*model.RSVP, error) {
	valid, err := ValidateRSVP(input)
	if err != nil {
		s.metrics.IncRSVPRejected(metrics.ReasonInvalid)
		return nil, err
	}

	existing, err := s.store.FindByEmail(ctx, valid.Email)
	switch {
	case errors.Is(err, repository.ErrRSVPNotFound):
	case err != nil:
		s.logger.Error("failed to check for existing rsvp",
			"email", MaskEmail(valid.Email),
			"error", err,
		)
		s.metrics.IncRSVPRejected(metrics.ReasonStore)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case existing != nil:
		s.metrics.IncRSVPRejected(metrics.ReasonDuplicate)
		return nil, ErrDuplicateEmail
	}

	rsvp := &model.RSVP{
		Name:            valid.Name,
		Email:           valid.Email,
		SpecialRequests: valid.SpecialRequests,
	}

	if err := s.store.InsertRSVP(ctx, rsvp); err != nil {
		// Another request may have inserted the same email after the check above.
		if errors.Is(err, repository.ErrEmailExists) {
			s.logger.Info("rsvp insert lost race on email",
				"email", MaskEmail(valid.Email),
			)
			s.metrics.IncRSVPRejected(metrics.ReasonDuplicate)
			return nil, ErrDuplicateEmail
		}
		s.logger.Error("failed to insert rsvp",
			"email", MaskEmail(valid.Email),
			"error", err,
		)
		s.metrics.IncRSVPRejected(metrics.ReasonInsert)
		return nil, fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}

	s.metrics.IncRSVPCreated()
	s.logger.Info("rsvp created",
		"rsvp_id", rsvp.ID,
		"email", MaskEmail(rsvp.Email),
		"has_special_requests", rsvp.HasSpecialRequests(),
	)

	s.notifier.Notify(ctx, refresh.NewCreatedEvent(rsvp))
	s.primeCache(ctx, rsvp)

	return rsvp, nil
}

// LookupByEmail returns the RSVP for email, distinguishing absence
// (ErrRSVPNotFound) from store failure (ErrStoreUnavailable).
// Surrounding whitespace is ignored; a blank email is never sent to the store.
func (s *RSVPService) LookupByEmail(ctx context.Context, email string) (*model.RSVP, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrRSVPNotFound
	}

	start := time.Now()
	defer func() {
		s.metrics.ObserveLookupDuration(time.Since(start))
	}()

	if s.cache != nil {
		if rsvp, ok := s.lookupCached(ctx, email); ok {
			s.metrics.IncLookupCacheHit()
			if rsvp == nil {
				s.metrics.IncLookup(metrics.LookupNotFound)
				return nil, ErrRSVPNotFound
			}
			s.metrics.IncLookup(metrics.LookupFound)
			return rsvp, nil
		}
		s.metrics.IncLookupCacheMiss()
	}

	rsvp, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrRSVPNotFound) {
			s.metrics.IncLookup(metrics.LookupNotFound)
			if s.cache != nil {
				if err := s.cache.SetNegativeCache(ctx, email); err != nil {
					s.logger.Warn("failed to set negative cache", "error", err)
				}
			}
			return nil, ErrRSVPNotFound
		}
		s.metrics.IncLookup(metrics.LookupError)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if rsvp == nil {
		s.metrics.IncLookup(metrics.LookupNotFound)
		return nil, ErrRSVPNotFound
	}

	s.metrics.IncLookup(metrics.LookupFound)
	if s.cache != nil {
		if err := s.cache.SetRSVP(ctx, rsvp); err != nil {
			s.logger.Warn("failed to cache rsvp", "error", err)
		}
	}

	return rsvp, nil
}

// FindByEmail returns the RSVP for email, or nil when there is none or the
// store could not be reached. Store errors are logged, never returned.
func (s *RSVPService) FindByEmail(ctx context.Context, email string) *model.RSVP {
	rsvp, err := s.LookupByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrRSVPNotFound) {
			s.logger.Error("failed to find rsvp",
				"email", MaskEmail(strings.TrimSpace(email)),
				"error", err,
			)
		}
		return nil
	}
	return rsvp
}

// primeCache stores a freshly created RSVP so lookups see it even if a
// concurrent miss writes a negative entry after the invalidation.
func (s *RSVPService) primeCache(ctx context.Context, rsvp *model.RSVP) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()

	if err := s.cache.SetRSVP(ctx, rsvp); err != nil {
		s.logger.Warn("failed to cache created rsvp", "error", err)
	}
}

// lookupCached reports ok=true when the cache answered. A nil RSVP with
// ok=true is a negative hit. Cache errors count as a miss.
func (s *RSVPService) lookupCached(ctx context.Context, email string) (*model.RSVP, bool) {
	rsvp, err := s.cache.GetRSVP(ctx, email)
	if err == nil {
		return rsvp, true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("lookup cache read failed", "error", err)
		return nil, false
	}

	negative, err := s.cache.IsNegativelyCached(ctx, email)
	if err != nil {
		s.logger.Warn("negative cache read failed", "error", err)
		return nil, false
	}
	return nil, negative
}

// CreateResult is the {success, error} outcome of a submission.
type CreateResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"-"`
	Error   string `json:"error,omitempty"`
}

// Reasons reported in CreateResult.
const (
	ReasonInvalidInput     = "invalid_input"
	ReasonDuplicateEmail   = "duplicate_email"
	ReasonStoreUnavailable = "store_unavailable"
	ReasonInsertFailed     = "insert_failed"
)

// NewCreateResult maps an error returned by Create to its outcome.
// A nil error is a success. Unrecognized errors are reported as insert failures.
func NewCreateResult(err error) CreateResult {
	switch {
	case err == nil:
		return CreateResult{Success: true}
	case errors.Is(err, ErrInvalidInput):
		return CreateResult{Reason: ReasonInvalidInput, Error: MessageInvalidInput}
	case errors.Is(err, ErrDuplicateEmail):
		return CreateResult{Reason: ReasonDuplicateEmail, Error: MessageDuplicateEmail}
	case errors.Is(err, ErrStoreUnavailable):
		return CreateResult{Reason: ReasonStoreUnavailable, Error: MessageStoreUnavailable}
	default:
		return CreateResult{Reason: ReasonInsertFailed, Error: MessageInsertFailed}
	}
}

// MaskEmail hides all but the first character of the local part.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local := []rune(email[:at])
	return string(local[0]) + "***" + email[at:]
}
