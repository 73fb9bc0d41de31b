// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// RSVP represents a single attendance confirmation.
// ID and CreatedAt are assigned by the store on insert.
type RSVP struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	SpecialRequests *string   `json:"special_requests"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasSpecialRequests reports whether the attendee left a non-empty request.
func (r *RSVP) HasSpecialRequests() bool {
	return r.SpecialRequests != nil && *r.SpecialRequests != ""
}

// CachedRSVP represents RSVP data stored in a Redis hash.
// Uses string types for Redis hash compatibility.
type CachedRSVP struct {
	ID              string `redis:"id"`
	Name            string `redis:"name"`
	Email           string `redis:"email"`
	SpecialRequests string `redis:"special_requests"`
	HasRequests     string `redis:"has_requests"` // "1" or "0"
	CreatedAt       string `redis:"created_at"`   // Unix nanoseconds
}

// ToRSVP converts CachedRSVP to the RSVP domain model.
func (c *CachedRSVP) ToRSVP() *RSVP {
	rsvp := &RSVP{
		ID:    c.ID,
		Name:  c.Name,
		Email: c.Email,
	}

	if c.HasRequests == "1" {
		requests := c.SpecialRequests
		rsvp.SpecialRequests = &requests
	}

	if c.CreatedAt != "" {
		if ns, err := strconv.ParseInt(c.CreatedAt, 10, 64); err == nil {
			rsvp.CreatedAt = time.Unix(0, ns).UTC()
		}
	}

	return rsvp
}

// ToCachedRSVP converts the RSVP domain model to CachedRSVP.
func (r *RSVP) ToCachedRSVP() *CachedRSVP {
	cached := &CachedRSVP{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		HasRequests: "0",
		CreatedAt:   strconv.FormatInt(r.CreatedAt.UnixNano(), 10),
	}

	if r.SpecialRequests != nil {
		cached.SpecialRequests = *r.SpecialRequests
		cached.HasRequests = "1"
	}

	return cached
}
