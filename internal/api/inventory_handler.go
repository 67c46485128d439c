package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/pkg/response"
	"github.com/wastewise/backend/pkg/validator"
)

// InventoryHandler handles equipment inventory endpoints
type InventoryHandler struct {
	service *domain.InventoryService
	logger  *zap.Logger
}

func NewInventoryHandler(service *domain.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		logger:  logger,
	}
}

type inventoryBody struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
}

func (b inventoryBody) toParams() domain.CreateInventoryParams {
	return domain.CreateInventoryParams{
		Name:     validator.SanitizeString(b.Name, 200),
		Category: validator.SanitizeString(b.Category, 100),
		Quantity: b.Quantity,
		Status:   b.Status,
	}
}

func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body inventoryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	item, err := h.service.Create(r.Context(), body.toParams())
	if err != nil {
		h.writeError(w, err, "failed to create inventory item")
		return
	}

	response.Created(w, item)
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid inventory id")
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "failed to fetch inventory item")
		return
	}

	response.OK(w, item)
}

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to fetch inventory")
		return
	}

	response.OK(w, items)
}

func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid inventory id")
		return
	}

	var body inventoryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	item, err := h.service.Update(r.Context(), id, body.toParams())
	if err != nil {
		h.writeError(w, err, "failed to update inventory item")
		return
	}

	response.OK(w, item)
}

func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid inventory id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err, "failed to delete inventory item")
		return
	}

	response.OKMessage(w, "inventory item deleted")
}

func (h *InventoryHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "inventory item not found")
	default:
		h.logger.Error("inventory operation failed", zap.Error(err))
		response.InternalError(w, fallback)
	}
}
