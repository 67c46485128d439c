package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/middleware"
	"github.com/wastewise/backend/pkg/response"
	"github.com/wastewise/backend/pkg/validator"
)

// RequestHandler handles pickup request endpoints
type RequestHandler struct {
	service *domain.RequestService
	logger  *zap.Logger
}

func NewRequestHandler(service *domain.RequestService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{
		service: service,
		logger:  logger,
	}
}

type createRequestBody struct {
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Address       string    `json:"address"`
	PhoneNumber   string    `json:"phone_number"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Shift         string    `json:"shift"`
	Weight        float64   `json:"weight"`
	Notes         *string   `json:"notes,omitempty"`
}

// Create files a new pickup request for the authenticated user
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	wasteType := domain.WasteType(body.Type)
	if !wasteType.Valid() {
		response.BadRequest(w, "type must be general, recyclable, organic or hazardous")
		return
	}

	if body.PhoneNumber != "" && !validator.ValidatePhone(body.PhoneNumber) {
		response.BadRequest(w, "invalid phone number")
		return
	}

	req, err := h.service.Create(r.Context(), domain.CreateRequestParams{
		UserID:        userID,
		Name:          validator.SanitizeString(body.Name, 100),
		Type:          wasteType,
		Address:       validator.SanitizeString(body.Address, 500),
		PhoneNumber:   body.PhoneNumber,
		ScheduledDate: body.ScheduledDate,
		Shift:         body.Shift,
		Weight:        body.Weight,
		Notes:         body.Notes,
	})
	if err != nil {
		h.writeError(w, err, "failed to create request")
		return
	}

	response.Created(w, req)
}

// List returns requests scoped to the caller's role
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	var status *domain.RequestStatus
	if s := r.URL.Query().Get("status"); s != "" {
		rs := domain.RequestStatus(s)
		if !rs.Valid() {
			response.BadRequest(w, "invalid status filter")
			return
		}
		status = &rs
	}

	requests, err := h.service.ListMine(r.Context(), accountID, category, status)
	if err != nil {
		h.writeError(w, err, "failed to fetch requests")
		return
	}

	response.OK(w, requests)
}

// Get returns a single request the caller is allowed to see
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid request id")
		return
	}

	req, err := h.service.Get(r.Context(), id, accountID, category)
	if err != nil {
		h.writeError(w, err, "failed to fetch request")
		return
	}

	response.OK(w, req)
}

// AssignDriver attaches a driver to a pending request (admin only)
func (h *RequestHandler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid request id")
		return
	}

	var body struct {
		DriverID uuid.UUID `json:"driver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	req, err := h.service.AssignDriver(r.Context(), id, body.DriverID)
	if err != nil {
		h.writeError(w, err, "failed to assign driver")
		return
	}

	response.OK(w, req)
}

// UpdateStatus moves an assigned request through its lifecycle (driver only)
func (h *RequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	driverID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid request id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	status := domain.RequestStatus(body.Status)
	if !status.Valid() {
		response.BadRequest(w, "invalid status")
		return
	}

	req, err := h.service.UpdateStatus(r.Context(), id, driverID, status)
	if err != nil {
		h.writeError(w, err, "failed to update request")
		return
	}

	response.OK(w, req)
}

// Cancel cancels the caller's own pending or assigned request
func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid request id")
		return
	}

	req, err := h.service.Cancel(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, err, "failed to cancel request")
		return
	}

	response.OK(w, req)
}

func (h *RequestHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "request not found")
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "not allowed")
	default:
		h.logger.Error("request operation failed", zap.Error(err))
		response.InternalError(w, fallback)
	}
}
