package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/middleware"
	"github.com/wastewise/backend/internal/storage"
	"github.com/wastewise/backend/pkg/response"
	"github.com/wastewise/backend/pkg/validator"
)

// AnnouncementHandler handles admin announcement endpoints
type AnnouncementHandler struct {
	service *domain.AnnouncementService
	files   storage.FileStorage
	logger  *zap.Logger
}

func NewAnnouncementHandler(service *domain.AnnouncementService, files storage.FileStorage, logger *zap.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{
		service: service,
		files:   files,
		logger:  logger,
	}
}

// Create publishes an announcement and broadcasts it to the target audience.
// Accepts multipart form data with an optional image file.
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		response.BadRequest(w, "invalid form data")
		return
	}

	title := validator.SanitizeString(r.FormValue("title"), 200)
	body := r.FormValue("body")
	audience := r.FormValue("audience")
	if audience == "" {
		audience = domain.AudienceAll
	}

	if title == "" || body == "" {
		response.BadRequest(w, "title and body are required")
		return
	}

	imageURL := h.saveImage(r, "image")

	ann, err := h.service.Create(r.Context(), domain.CreateAnnouncementParams{
		Title:     title,
		Body:      body,
		Audience:  audience,
		ImageURL:  imageURL,
		CreatedBy: adminID,
	})
	if err != nil {
		h.writeError(w, err, "failed to create announcement")
		return
	}

	response.Created(w, ann)
}

func (h *AnnouncementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid announcement id")
		return
	}

	ann, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "failed to fetch announcement")
		return
	}

	response.OK(w, ann)
}

func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	anns, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to fetch announcements")
		return
	}

	response.OK(w, anns)
}

func (h *AnnouncementHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid announcement id")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		response.BadRequest(w, "invalid form data")
		return
	}

	title := validator.SanitizeString(r.FormValue("title"), 200)
	body := r.FormValue("body")
	if title == "" || body == "" {
		response.BadRequest(w, "title and body are required")
		return
	}

	imageURL := h.saveImage(r, "image")

	ann, err := h.service.Update(r.Context(), id, title, body, imageURL)
	if err != nil {
		h.writeError(w, err, "failed to update announcement")
		return
	}

	response.OK(w, ann)
}

func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid announcement id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err, "failed to delete announcement")
		return
	}

	response.OKMessage(w, "announcement deleted")
}

// saveImage stores an optional uploaded image and returns its public URL.
// Upload failures are logged and treated as "no image".
func (h *AnnouncementHandler) saveImage(r *http.Request, field string) *string {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	defer file.Close()

	url, err := h.files.SaveFile(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Warn("image upload failed", zap.Error(err))
		return nil
	}
	return &url
}

func (h *AnnouncementHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "announcement not found")
	default:
		h.logger.Error("announcement operation failed", zap.Error(err))
		response.InternalError(w, fallback)
	}
}
