package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/middleware"
	"github.com/wastewise/backend/pkg/response"
)

type NotificationHandler struct {
	service *domain.NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(service *domain.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

type dispatchRequest struct {
	RecipientType string     `json:"recipientType"`
	Recipient     *uuid.UUID `json:"recipient,omitempty"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Type          string     `json:"type"`
	Data          domain.Map `json:"data,omitempty"`
}

// Dispatch creates and delivers a notification. An admin recipientType
// fans out to every admin account; user and driver require a recipient id.
func (h *NotificationHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	category, err := domain.ParseCategory(req.RecipientType)
	if err != nil {
		response.BadRequest(w, "invalid recipient type")
		return
	}

	created, err := h.service.Dispatch(r.Context(), domain.DispatchInput{
		Category:  category,
		Recipient: req.Recipient,
		Title:     req.Title,
		Message:   req.Message,
		Kind:      domain.Kind(req.Type),
		Payload:   req.Data,
	})
	if err != nil {
		h.writeError(w, err, "failed to send notification")
		return
	}

	response.Created(w, created)
}

func (h *NotificationHandler) listFor(category domain.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middleware.GetAccountID(r.Context())
		if !ok {
			response.Unauthorized(w, "not authenticated")
			return
		}
		caller, _ := middleware.GetCategory(r.Context())
		if caller != category {
			response.Forbidden(w, "wrong account type for this feed")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		opts := domain.ListOptions{
			UnreadOnly: r.URL.Query().Get("unread") == "true",
			Limit:      limit,
		}

		notifs, err := h.service.List(r.Context(), category, accountID, opts)
		if err != nil {
			h.writeError(w, err, "failed to fetch notifications")
			return
		}

		response.OK(w, notifs)
	}
}

func (h *NotificationHandler) UserNotifications(w http.ResponseWriter, r *http.Request) {
	h.listFor(domain.CategoryUser)(w, r)
}

func (h *NotificationHandler) DriverNotifications(w http.ResponseWriter, r *http.Request) {
	h.listFor(domain.CategoryDriver)(w, r)
}

func (h *NotificationHandler) AdminNotifications(w http.ResponseWriter, r *http.Request) {
	h.listFor(domain.CategoryAdmin)(w, r)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid notification id")
		return
	}

	if err := h.service.MarkRead(r.Context(), id, accountID, category); err != nil {
		h.writeError(w, err, "failed to update notification")
		return
	}

	response.OKMessage(w, "notification marked as read")
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	if err := h.service.MarkAllRead(r.Context(), accountID, category); err != nil {
		h.writeError(w, err, "failed to update notifications")
		return
	}

	response.OKMessage(w, "all notifications marked as read")
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid notification id")
		return
	}

	if err := h.service.Delete(r.Context(), id, accountID, category); err != nil {
		h.writeError(w, err, "failed to delete notification")
		return
	}

	response.OKMessage(w, "notification deleted")
}

func (h *NotificationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid notification id")
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	notif, err := h.service.Respond(r.Context(), id, req.Action)
	if err != nil {
		h.writeError(w, err, "failed to respond to notification")
		return
	}

	response.OK(w, notif)
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	var req struct {
		FCMToken string `json:"fcmToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	tokens, err := h.service.RegisterDevice(r.Context(), category, accountID, req.FCMToken)
	if err != nil {
		h.writeError(w, err, "failed to register device")
		return
	}

	response.OK(w, map[string]interface{}{"tokens": len(tokens)})
}

func (h *NotificationHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	outcome, err := h.service.SendTest(r.Context(), category, accountID)
	if err != nil {
		h.writeError(w, err, "failed to send test notification")
		return
	}

	response.OK(w, outcome)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	count, err := h.service.UnreadCount(r.Context(), category, accountID)
	if err != nil {
		h.writeError(w, err, "failed to count notifications")
		return
	}

	response.OK(w, map[string]int{"unread": count})
}

// writeError maps domain errors onto the HTTP failure taxonomy. Provider
// internals never reach the client, only the fallback message.
func (h *NotificationHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		response.BadRequest(w, "device token rejected")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "not found")
	case errors.Is(err, domain.ErrNoRecipients):
		response.NotFound(w, "no recipients found")
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "not allowed")
	default:
		h.logger.Error("notification request failed", zap.Error(err))
		response.InternalError(w, fallback)
	}
}
