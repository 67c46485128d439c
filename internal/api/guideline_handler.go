package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/storage"
	"github.com/wastewise/backend/pkg/response"
	"github.com/wastewise/backend/pkg/validator"
)

// GuidelineHandler handles recycling guideline endpoints
type GuidelineHandler struct {
	service *domain.GuidelineService
	files   storage.FileStorage
	logger  *zap.Logger
}

func NewGuidelineHandler(service *domain.GuidelineService, files storage.FileStorage, logger *zap.Logger) *GuidelineHandler {
	return &GuidelineHandler{
		service: service,
		files:   files,
		logger:  logger,
	}
}

func (h *GuidelineHandler) parseForm(r *http.Request) (domain.CreateGuidelineParams, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return domain.CreateGuidelineParams{}, err
	}

	params := domain.CreateGuidelineParams{
		Title:       validator.SanitizeString(r.FormValue("title"), 200),
		Description: r.FormValue("description"),
		Category:    validator.SanitizeString(r.FormValue("category"), 100),
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		url, err := h.files.SaveFile(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			h.logger.Warn("guideline image upload failed", zap.Error(err))
		} else {
			params.ImageURL = &url
		}
	}

	return params, nil
}

// Create publishes a guideline and broadcasts a recycling update to users
func (h *GuidelineHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseForm(r)
	if err != nil {
		response.BadRequest(w, "invalid form data")
		return
	}

	if params.Title == "" || params.Description == "" {
		response.BadRequest(w, "title and description are required")
		return
	}

	g, err := h.service.Create(r.Context(), params)
	if err != nil {
		h.writeError(w, err, "failed to create guideline")
		return
	}

	response.Created(w, g)
}

func (h *GuidelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid guideline id")
		return
	}

	g, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "failed to fetch guideline")
		return
	}

	response.OK(w, g)
}

func (h *GuidelineHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to fetch guidelines")
		return
	}

	response.OK(w, items)
}

func (h *GuidelineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid guideline id")
		return
	}

	params, err := h.parseForm(r)
	if err != nil {
		response.BadRequest(w, "invalid form data")
		return
	}

	if params.Title == "" || params.Description == "" {
		response.BadRequest(w, "title and description are required")
		return
	}

	g, err := h.service.Update(r.Context(), id, params)
	if err != nil {
		h.writeError(w, err, "failed to update guideline")
		return
	}

	response.OK(w, g)
}

func (h *GuidelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid guideline id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err, "failed to delete guideline")
		return
	}

	response.OKMessage(w, "guideline deleted")
}

func (h *GuidelineHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "guideline not found")
	default:
		h.logger.Error("guideline operation failed", zap.Error(err))
		response.InternalError(w, fallback)
	}
}
