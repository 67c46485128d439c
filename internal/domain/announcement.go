package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Announcement audiences.
const (
	AudienceUsers   = "users"
	AudienceDrivers = "drivers"
	AudienceAll     = "all"
)

// Announcement is an admin-published notice shown in the mobile apps.
type Announcement struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Audience  string    `json:"audience"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateAnnouncementParams holds admin input for a new announcement.
type CreateAnnouncementParams struct {
	Title     string
	Body      string
	Audience  string
	ImageURL  *string
	CreatedBy uuid.UUID
}

type AnnouncementRepository interface {
	CreateAnnouncement(ctx context.Context, params CreateAnnouncementParams) (*Announcement, error)
	GetAnnouncementByID(ctx context.Context, id uuid.UUID) (*Announcement, error)
	ListAnnouncements(ctx context.Context) ([]*Announcement, error)
	UpdateAnnouncement(ctx context.Context, id uuid.UUID, title, body string, imageURL *string) (*Announcement, error)
	DeleteAnnouncement(ctx context.Context, id uuid.UUID) error
}
