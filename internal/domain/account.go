package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category identifies which account table an identifier belongs to.
type Category string

const (
	CategoryUser   Category = "user"
	CategoryDriver Category = "driver"
	CategoryAdmin  Category = "admin"
)

// ParseCategory normalizes a wire-level recipient type into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryUser, CategoryDriver, CategoryAdmin:
		return Category(s), nil
	default:
		return "", ErrInvalidRequest
	}
}

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryUser, CategoryDriver, CategoryAdmin:
		return true
	}
	return false
}

// Account represents one end user, driver, or admin in the domain layer.
// FCMTokens holds the device push tokens registered for this account; the
// repository guarantees no duplicates within one account.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Category  Category  `json:"category"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	FCMTokens []string  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountRepository defines account lookup and push-token mutation across the
// three account tables.
type AccountRepository interface {
	GetAccountByID(ctx context.Context, category Category, id uuid.UUID) (*Account, error)
	ListAdmins(ctx context.Context) ([]*Account, error)

	// AddFCMToken removes any existing occurrence of token from the account's
	// set and appends it, in a single atomic statement. Returns the updated set.
	AddFCMToken(ctx context.Context, category Category, accountID uuid.UUID, token string) ([]string, error)

	// RemoveFCMTokens prunes the given tokens from one account, or from every
	// admin account when accountID is nil and category is admin.
	RemoveFCMTokens(ctx context.Context, category Category, accountID *uuid.UUID, tokens []string) error
}
