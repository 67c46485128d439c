package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/auth"
	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/middleware"
	"github.com/wastewise/backend/pkg/response"
	"github.com/wastewise/backend/pkg/validator"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *domain.AuthService
	accounts    domain.AccountRepository
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *domain.AuthService, accounts domain.AccountRepository, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		accounts:    accounts,
		logger:      logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Role     string  `json:"role"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// GoogleLoginRequest represents the Google sign-in request body
type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// Register handles account registration for any category
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	category, err := domain.ParseCategory(req.Role)
	if err != nil {
		response.BadRequest(w, "role must be user, driver or admin")
		return
	}

	req.Email = validator.SanitizeEmail(req.Email)
	if !validator.ValidateEmail(req.Email) {
		response.BadRequest(w, "invalid email address")
		return
	}

	if errs := validator.ValidatePassword(req.Password); errs.HasErrors() {
		response.BadRequest(w, errs.Error())
		return
	}

	req.Name = validator.SanitizeString(req.Name, 100)
	if !validator.ValidateName(req.Name) {
		response.BadRequest(w, "name must be 2-100 characters")
		return
	}

	if req.Phone != nil && !validator.ValidatePhone(*req.Phone) {
		response.BadRequest(w, "invalid phone number")
		return
	}

	result, err := h.authService.Register(r.Context(), category, req.Name, req.Email, req.Password, req.Phone, req.Address)
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			response.Conflict(w, "an account with this email already exists")
			return
		}
		h.logger.Error("registration failed", zap.Error(err))
		response.InternalError(w, "registration failed")
		return
	}

	response.Created(w, result)
}

// Login handles email/password login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	category, err := domain.ParseCategory(req.Role)
	if err != nil {
		response.BadRequest(w, "role must be user, driver or admin")
		return
	}

	req.Email = validator.SanitizeEmail(req.Email)
	if !validator.ValidateEmail(req.Email) {
		response.BadRequest(w, "invalid email address")
		return
	}

	if req.Password == "" {
		response.BadRequest(w, "password is required")
		return
	}

	result, err := h.authService.Login(r.Context(), category, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.Unauthorized(w, "invalid email or password")
			return
		}
		h.logger.Error("login failed", zap.Error(err), zap.String("email", req.Email))
		response.InternalError(w, "login failed")
		return
	}

	response.OK(w, result)
}

// GoogleLogin verifies a Google ID token and signs the user in
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if req.IDToken == "" {
		response.BadRequest(w, "id_token is required")
		return
	}

	result, err := h.authService.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.Unauthorized(w, "google sign-in failed")
			return
		}
		h.logger.Error("google login failed", zap.Error(err))
		response.InternalError(w, "google sign-in failed")
		return
	}

	response.OK(w, result)
}

// Refresh handles token refresh with rotation
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		response.BadRequest(w, "refresh_token is required")
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			response.Unauthorized(w, "refresh token has expired")
			return
		}
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, domain.ErrTokenRevoked) {
			response.Unauthorized(w, "invalid refresh token")
			return
		}
		h.logger.Error("token refresh failed", zap.Error(err))
		response.InternalError(w, "token refresh failed")
		return
	}

	response.OK(w, pair)
}

// Logout revokes a single refresh token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		response.BadRequest(w, "refresh_token is required")
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Warn("logout failed", zap.Error(err))
	}

	response.OKMessage(w, "logged out")
}

// LogoutAll revokes every refresh token for the authenticated account
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	if err := h.authService.LogoutAll(r.Context(), category, accountID); err != nil {
		h.logger.Error("logout-all failed", zap.Error(err))
		response.InternalError(w, "logout failed")
		return
	}

	response.OKMessage(w, "logged out everywhere")
}

// Me returns the authenticated account's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, _ := middleware.GetCategory(r.Context())

	acct, err := h.accounts.GetAccountByID(r.Context(), category, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			response.NotFound(w, "account not found")
			return
		}
		h.logger.Error("failed to load account", zap.Error(err))
		response.InternalError(w, "failed to load account")
		return
	}

	response.OK(w, acct)
}
