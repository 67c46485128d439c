package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecyclingGuideline documents how one material category should be sorted.
type RecyclingGuideline struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateGuidelineParams holds admin input for a new guideline.
type CreateGuidelineParams struct {
	Title       string
	Description string
	Category    string
	ImageURL    *string
}

type GuidelineRepository interface {
	CreateGuideline(ctx context.Context, params CreateGuidelineParams) (*RecyclingGuideline, error)
	GetGuidelineByID(ctx context.Context, id uuid.UUID) (*RecyclingGuideline, error)
	ListGuidelines(ctx context.Context) ([]*RecyclingGuideline, error)
	UpdateGuideline(ctx context.Context, id uuid.UUID, params CreateGuidelineParams) (*RecyclingGuideline, error)
	DeleteGuideline(ctx context.Context, id uuid.UUID) error
}

// InventoryItem is one tracked piece of collection equipment or supplies.
type InventoryItem struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInventoryParams holds admin input for a new inventory item.
type CreateInventoryParams struct {
	Name     string
	Category string
	Quantity int
	Status   string
}

type InventoryRepository interface {
	CreateInventoryItem(ctx context.Context, params CreateInventoryParams) (*InventoryItem, error)
	GetInventoryItemByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	ListInventoryItems(ctx context.Context) ([]*InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, id uuid.UUID, params CreateInventoryParams) (*InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id uuid.UUID) error
}
