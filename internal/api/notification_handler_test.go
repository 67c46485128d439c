package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/auth"
	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/middleware"
)

type stubAccounts struct {
	accounts map[uuid.UUID]*domain.Account
	admins   []*domain.Account
}

func (s *stubAccounts) GetAccountByID(ctx context.Context, category domain.Category, id uuid.UUID) (*domain.Account, error) {
	acct, ok := s.accounts[id]
	if !ok || acct.Category != category {
		return nil, domain.ErrAccountNotFound
	}
	return acct, nil
}

func (s *stubAccounts) ListAdmins(ctx context.Context) ([]*domain.Account, error) {
	return s.admins, nil
}

func (s *stubAccounts) AddFCMToken(ctx context.Context, category domain.Category, accountID uuid.UUID, token string) ([]string, error) {
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	acct.FCMTokens = append(acct.FCMTokens, token)
	return acct.FCMTokens, nil
}

func (s *stubAccounts) RemoveFCMTokens(ctx context.Context, category domain.Category, accountID *uuid.UUID, tokens []string) error {
	return nil
}

type stubNotifStore struct {
	records map[uuid.UUID]*domain.Notification
}

func (s *stubNotifStore) CreateMany(ctx context.Context, notifs []*domain.Notification) ([]*domain.Notification, error) {
	for _, n := range notifs {
		s.records[n.ID] = n
	}
	return notifs, nil
}

func (s *stubNotifStore) GetNotification(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	n, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return n, nil
}

func (s *stubNotifStore) FindForRecipient(ctx context.Context, recipientID uuid.UUID, category domain.Category, opts domain.ListOptions) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for _, n := range s.records {
		if n.RecipientCategory != category {
			continue
		}
		if n.Recipient != nil && *n.Recipient != recipientID {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *stubNotifStore) FindByCategory(ctx context.Context, category domain.Category, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for _, n := range s.records {
		if n.RecipientCategory == category {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *stubNotifStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	n, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (s *stubNotifStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID, category domain.Category) error {
	return nil
}

func (s *stubNotifStore) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status string) error {
	n, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Status = status
	return nil
}

func (s *stubNotifStore) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	delete(s.records, id)
	return nil
}

func (s *stubNotifStore) CountUnread(ctx context.Context, recipientID uuid.UUID, category domain.Category) (int, error) {
	return len(s.records), nil
}

func (s *stubNotifStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type notifTestEnv struct {
	router  *chi.Mux
	jwt     *auth.JWTManager
	store   *stubNotifStore
	userID  uuid.UUID
	adminID uuid.UUID
}

func newNotifTestEnv(t *testing.T) *notifTestEnv {
	t.Helper()

	userID := uuid.New()
	adminID := uuid.New()
	admin := &domain.Account{ID: adminID, Category: domain.CategoryAdmin}
	accounts := &stubAccounts{
		accounts: map[uuid.UUID]*domain.Account{
			userID:  {ID: userID, Category: domain.CategoryUser},
			adminID: admin,
		},
		admins: []*domain.Account{admin},
	}
	store := &stubNotifStore{records: make(map[uuid.UUID]*domain.Notification)}

	logger := zap.NewNop()
	service := domain.NewNotificationService(accounts, store, nil, logger)
	handler := NewNotificationHandler(service, logger)
	jwtManager := auth.NewJWTManager("test-secret", 15*time.Minute, time.Hour)

	r := chi.NewRouter()
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtManager))
		r.Post("/", handler.Dispatch)
		r.Get("/user-notifications", handler.UserNotifications)
		r.With(middleware.RequireCategory(domain.CategoryAdmin)).Get("/admin-notifications", handler.AdminNotifications)
		r.Put("/{id}/read", handler.MarkRead)
		r.Put("/mark-all-read", handler.MarkAllRead)
		r.Post("/register-device", handler.RegisterDevice)
	})

	return &notifTestEnv{router: r, jwt: jwtManager, store: store, userID: userID, adminID: adminID}
}

func (e *notifTestEnv) do(t *testing.T, method, path string, body interface{}, accountID uuid.UUID, role string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)

	if role != "" {
		token, err := e.jwt.GenerateAccessToken(accountID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestNotificationRoutesRequireAuth(t *testing.T) {
	env := newNotifTestEnv(t)

	rec := env.do(t, http.MethodGet, "/notifications/user-notifications", nil, uuid.Nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDispatchEndpoint(t *testing.T) {
	env := newNotifTestEnv(t)

	t.Run("creates records for admins", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/notifications", map[string]interface{}{
			"recipientType": "admin",
			"title":         "New Pickup Request",
			"message":       "A request needs scheduling.",
			"type":          "NEW_REQUEST",
		}, env.userID, "user")

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Len(t, env.store.records, 1)
	})

	t.Run("rejects unknown recipient type", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/notifications", map[string]interface{}{
			"recipientType": "robot",
			"title":         "Hello",
			"message":       "World",
		}, env.userID, "user")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user recipient is 404", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/notifications", map[string]interface{}{
			"recipientType": "user",
			"recipient":     uuid.New().String(),
			"title":         "Hello",
			"message":       "World",
		}, env.userID, "user")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminFeedIsAdminOnly(t *testing.T) {
	env := newNotifTestEnv(t)

	rec := env.do(t, http.MethodGet, "/notifications/admin-notifications", nil, env.userID, "user")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/notifications/admin-notifications", nil, env.adminID, "admin")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMarkReadEndpoint(t *testing.T) {
	env := newNotifTestEnv(t)

	id := env.userID
	n := &domain.Notification{ID: uuid.New(), Recipient: &id, RecipientCategory: domain.CategoryUser}
	env.store.records[n.ID] = n

	t.Run("invalid id", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/notifications/not-a-uuid/read", nil, env.userID, "user")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("owner marks read", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, fmt.Sprintf("/notifications/%s/read", n.ID), nil, env.userID, "user")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, n.IsRead)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, fmt.Sprintf("/notifications/%s/read", n.ID), nil, env.adminID, "admin")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRegisterDeviceEndpoint(t *testing.T) {
	env := newNotifTestEnv(t)

	t.Run("empty token is rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/notifications/register-device", map[string]string{
			"fcmToken": "",
		}, env.userID, "user")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("valid token is stored", func(t *testing.T) {
		// Push is disabled in this env, so registration skips the liveness
		// check and stores the token directly.
		rec := env.do(t, http.MethodPost, "/notifications/register-device", map[string]string{
			"fcmToken": "abc:123",
		}, env.userID, "user")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
