package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wastewise/backend/internal/auth"
)

// CreateAccountParams holds parameters for account creation.
type CreateAccountParams struct {
	Category     Category
	Name         string
	Email        string
	Phone        *string
	Address      *string
	PasswordHash *string
	GoogleID     *string
}

// RefreshToken is a stored (hashed) refresh token.
type RefreshToken struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Category  Category
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// CreateRefreshTokenParams holds parameters for refresh token creation.
type CreateRefreshTokenParams struct {
	AccountID uuid.UUID
	Category  Category
	TokenHash string
	ExpiresAt time.Time
}

// AuthRepository defines credential and refresh-token persistence across the
// three account tables.
type AuthRepository interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (*Account, error)
	GetAccountWithPassword(ctx context.Context, category Category, email string) (*Account, string, error)
	AccountExistsByEmail(ctx context.Context, category Category, email string) (bool, error)
	GetAccountByGoogleID(ctx context.Context, googleID string) (*Account, error)
	LinkGoogleAccount(ctx context.Context, userID uuid.UUID, googleID string) error

	CreateRefreshToken(ctx context.Context, params CreateRefreshTokenParams) (*RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error)
	RevokeRefreshTokenByHash(ctx context.Context, hash string) error
	RevokeAccountRefreshTokens(ctx context.Context, category Category, accountID uuid.UUID) error
}

// AuthService handles registration, login and token rotation.
type AuthService struct {
	repo   AuthRepository
	jwt    *auth.JWTManager
	google *auth.GoogleAuthVerifier
}

func NewAuthService(repo AuthRepository, jwt *auth.JWTManager, google *auth.GoogleAuthVerifier) *AuthService {
	return &AuthService{
		repo:   repo,
		jwt:    jwt,
		google: google,
	}
}

// AuthResult is what login/register hand back to the client.
type AuthResult struct {
	Account      *Account `json:"account"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
}

// Register creates a new account in the given category.
func (s *AuthService) Register(ctx context.Context, category Category, name, email, password string, phone, address *string) (*AuthResult, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown account category %q", ErrInvalidRequest, category)
	}
	exists, err := s.repo.AccountExistsByEmail(ctx, category, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAccountExists
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	acct, err := s.repo.CreateAccount(ctx, CreateAccountParams{
		Category:     category,
		Name:         name,
		Email:        email,
		Phone:        phone,
		Address:      address,
		PasswordHash: &passwordHash,
	})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, acct)
}

// Login verifies credentials against the category's account table.
func (s *AuthService) Login(ctx context.Context, category Category, email, password string) (*AuthResult, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown account category %q", ErrInvalidRequest, category)
	}
	acct, hash, err := s.repo.GetAccountWithPassword(ctx, category, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if hash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(password, hash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, acct)
}

// LoginWithGoogle signs an end user in with a Google ID token, creating the
// account on first sight.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.google == nil || !s.google.IsConfigured() {
		return nil, fmt.Errorf("%w: google sign-in is not configured", ErrInvalidRequest)
	}
	gu, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	acct, err := s.repo.GetAccountByGoogleID(ctx, gu.GoogleID)
	if err == nil {
		return s.issueTokens(ctx, acct)
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	// First Google sign-in: link to an existing account by email, or create.
	existing, _, err := s.repo.GetAccountWithPassword(ctx, CategoryUser, gu.Email)
	if err == nil {
		if err := s.repo.LinkGoogleAccount(ctx, existing.ID, gu.GoogleID); err != nil {
			return nil, err
		}
		return s.issueTokens(ctx, existing)
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	acct, err = s.repo.CreateAccount(ctx, CreateAccountParams{
		Category: CategoryUser,
		Name:     gu.Name,
		Email:    gu.Email,
		GoogleID: &gu.GoogleID,
	})
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, acct)
}

// Refresh rotates a refresh token and mints a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	hash := auth.HashToken(refreshToken)
	stored, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		return nil, ErrTokenRevoked
	}
	if stored.Revoked || time.Now().After(stored.ExpiresAt) {
		return nil, ErrTokenRevoked
	}

	if err := s.repo.RevokeRefreshTokenByHash(ctx, hash); err != nil {
		return nil, err
	}

	category, err := ParseCategory(claims.UserType)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	pair, err := s.jwt.GenerateTokenPair(claims.AccountID, string(category))
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.CreateRefreshToken(ctx, CreateRefreshTokenParams{
		AccountID: claims.AccountID,
		Category:  category,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.ExpiresAt,
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the presented refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.RevokeRefreshTokenByHash(ctx, auth.HashToken(refreshToken))
}

// LogoutAll revokes every refresh token the account holds.
func (s *AuthService) LogoutAll(ctx context.Context, category Category, accountID uuid.UUID) error {
	return s.repo.RevokeAccountRefreshTokens(ctx, category, accountID)
}

func (s *AuthService) issueTokens(ctx context.Context, acct *Account) (*AuthResult, error) {
	pair, err := s.jwt.GenerateTokenPair(acct.ID, string(acct.Category))
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.CreateRefreshToken(ctx, CreateRefreshTokenParams{
		AccountID: acct.ID,
		Category:  acct.Category,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.ExpiresAt,
	}); err != nil {
		return nil, err
	}
	return &AuthResult{
		Account:      acct,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}
