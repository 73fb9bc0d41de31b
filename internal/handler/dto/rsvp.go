// Package dto defines the JSON request and response bodies of the HTTP API.
package dto

import (
	"time"

	"github.com/eventide/rsvp/internal/model"
)

// Error codes returned in ErrorResponse.Code and CreateRSVPResponse.Code.
const (
	CodeInvalidJSON      = "INVALID_JSON"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeDuplicateEmail   = "DUPLICATE_EMAIL"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInsertFailed     = "INSERT_FAILED"
	CodeRSVPNotFound     = "RSVP_NOT_FOUND"
)

// CreateRSVPRequest is the body of POST /api/v1/rsvps.
type CreateRSVPRequest struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	SpecialRequests *string `json:"special_requests"`
}

// RSVPResponse is the public representation of a stored RSVP.
type RSVPResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	SpecialRequests *string   `json:"special_requests"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateRSVPResponse reports the outcome of a submission.
type CreateRSVPResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	RSVP    *RSVPResponse     `json:"rsvp,omitempty"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToRSVPResponse converts an RSVP model to RSVPResponse DTO.
func ToRSVPResponse(rsvp *model.RSVP) *RSVPResponse {
	return &RSVPResponse{
		ID:              rsvp.ID,
		Name:            rsvp.Name,
		Email:           rsvp.Email,
		SpecialRequests: rsvp.SpecialRequests,
		CreatedAt:       rsvp.CreatedAt.UTC(),
	}
}
