package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/eventide/rsvp/internal/handler/dto"
	"github.com/eventide/rsvp/internal/service"
)

// RSVPHandler handles HTTP requests for RSVP submission and lookup.
type RSVPHandler struct {
	svc    *service.RSVPService
	logger *slog.Logger
}

// NewRSVPHandler creates a new RSVPHandler.
func NewRSVPHandler(svc *service.RSVPService, logger *slog.Logger) *RSVPHandler {
	return &RSVPHandler{
		svc:    svc,
		logger: logger.With("component", "handler.rsvp"),
	}
}

// Create handles POST /api/v1/rsvps.
func (h *RSVPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRSVPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, dto.CreateRSVPResponse{
				Error: "Request body too large",
				Code:  dto.CodePayloadTooLarge,
			})
			return
		}
		// Well-formed JSON with a wrongly typed field is invalid data, not a bad body.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			resp := dto.CreateRSVPResponse{
				Error: service.MessageInvalidInput,
				Code:  dto.CodeInvalidInput,
			}
			if typeErr.Field != "" {
				resp.Fields = map[string]string{typeErr.Field: "Must be a " + typeErr.Type.String() + "."}
			}
			writeJSON(w, http.StatusBadRequest, resp)
			return
		}
		writeJSON(w, http.StatusBadRequest, dto.CreateRSVPResponse{
			Error: "Invalid request body",
			Code:  dto.CodeInvalidJSON,
		})
		return
	}

	rsvp, err := h.svc.Create(r.Context(), service.CreateRSVPInput{
		Name:            req.Name,
		Email:           req.Email,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		h.handleCreateError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreateRSVPResponse{
		Success: true,
		RSVP:    dto.ToRSVPResponse(rsvp),
	})
}

// Lookup handles GET /api/v1/rsvps?email=...
// Absence, a blank email and store failures all answer 404.
func (h *RSVPHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	rsvp := h.svc.FindByEmail(r.Context(), r.URL.Query().Get("email"))
	if rsvp == nil {
		writeError(w, http.StatusNotFound, dto.CodeRSVPNotFound, "No RSVP found for this email address.")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRSVPResponse(rsvp))
}

// handleCreateError maps service errors to HTTP responses.
func (h *RSVPHandler) handleCreateError(w http.ResponseWriter, err error) {
	result := service.NewCreateResult(err)
	resp := dto.CreateRSVPResponse{Error: result.Error}

	status := http.StatusInternalServerError
	switch result.Reason {
	case service.ReasonInvalidInput:
		status = http.StatusBadRequest
		resp.Code = dto.CodeInvalidInput
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
	case service.ReasonDuplicateEmail:
		status = http.StatusConflict
		resp.Code = dto.CodeDuplicateEmail
	case service.ReasonStoreUnavailable:
		status = http.StatusServiceUnavailable
		resp.Code = dto.CodeStoreUnavailable
	default:
		resp.Code = dto.CodeInsertFailed
		if !errors.Is(err, service.ErrInsertFailed) {
			h.logger.Error("unexpected create error", "error", err)
		}
	}

	writeJSON(w, status, resp)
}
