package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/middleware"
	"github.com/wastewise/backend/pkg/response"
	"github.com/wastewise/backend/pkg/validator"
)

// FeedbackHandler handles service feedback endpoints
type FeedbackHandler struct {
	service *domain.FeedbackService
	logger  *zap.Logger
}

func NewFeedbackHandler(service *domain.FeedbackService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger,
	}
}

type createFeedbackBody struct {
	RequestID *uuid.UUID `json:"request_id,omitempty"`
	Subject   string     `json:"subject"`
	Message   string     `json:"message"`
	Rating    int        `json:"rating"`
}

// Create files feedback from the authenticated user and alerts admins
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var body createFeedbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if !validator.ValidateRating(body.Rating) {
		response.BadRequest(w, "rating must be between 1 and 5")
		return
	}

	fb, err := h.service.Create(r.Context(), domain.CreateFeedbackParams{
		UserID:    userID,
		RequestID: body.RequestID,
		Subject:   validator.SanitizeString(body.Subject, 200),
		Message:   body.Message,
		Rating:    body.Rating,
	})
	if err != nil {
		h.writeError(w, err, "failed to submit feedback")
		return
	}

	response.Created(w, fb)
}

// List returns all feedback for admins, or the caller's own otherwise
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	items, err := h.service.List(r.Context(), accountID, category)
	if err != nil {
		h.writeError(w, err, "failed to fetch feedback")
		return
	}

	response.OK(w, items)
}

// Respond records an admin reply and notifies the feedback author
func (h *FeedbackHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid feedback id")
		return
	}

	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if body.Response == "" {
		response.BadRequest(w, "response is required")
		return
	}

	fb, err := h.service.Respond(r.Context(), id, body.Response)
	if err != nil {
		h.writeError(w, err, "failed to respond to feedback")
		return
	}

	response.OK(w, fb)
}

func (h *FeedbackHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "feedback not found")
	default:
		h.logger.Error("feedback operation failed", zap.Error(err))
		response.InternalError(w, fallback)
	}
}
