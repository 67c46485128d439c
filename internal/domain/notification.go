package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of notification types the mobile clients understand.
type Kind string

const (
	KindNewRequest         Kind = "NEW_REQUEST"
	KindDriverOnTheWay     Kind = "DRIVER_ON_THE_WAY"
	KindRequestCancelled   Kind = "REQUEST_CANCELLED"
	KindRequestCompleted   Kind = "REQUEST_COMPLETED"
	KindCollectionMissed   Kind = "COLLECTION_MISSED"
	KindDriverAssigned     Kind = "DRIVER_ASSIGNED"
	KindCollectionReminder Kind = "COLLECTION_REMINDER"
	KindUserFeedback       Kind = "USER_FEEDBACK"
	KindRecyclingUpdate    Kind = "RECYCLING_UPDATE"
	KindAdminAnnouncement  Kind = "ADMIN_ANNOUNCEMENT"
	KindSystemAlert        Kind = "SYSTEM_ALERT"
	KindGeneral            Kind = "GENERAL"
	KindTest               Kind = "TEST"
)

// DefaultTTL is how long a notification stays visible before the expiry
// sweep may remove it.
const DefaultTTL = 30 * 24 * time.Hour

// Response status values for actionable notifications.
const (
	ResponsePending  = "pending"
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
)

// Notification is one delivered-or-pending message to one recipient.
// A nil Recipient marks a broadcast to every account of RecipientCategory.
type Notification struct {
	ID                uuid.UUID  `json:"id"`
	Recipient         *uuid.UUID `json:"recipient,omitempty"`
	RecipientCategory Category   `json:"recipient_category"`
	Title             string     `json:"title"`
	Message           string     `json:"message"`
	Kind              Kind       `json:"type"`
	IsRead            bool       `json:"is_read"`
	Status            string     `json:"status"`
	Payload           Map        `json:"data"`
	CreatedAt         time.Time  `json:"created_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
}

// Map alias for the JSONB payload column.
type Map map[string]interface{}

// ListOptions narrows FindForRecipient.
type ListOptions struct {
	UnreadOnly bool
	Limit      int
}

// NotificationRepository persists notification records. All read queries
// exclude records whose expires_at has passed.
type NotificationRepository interface {
	// CreateMany inserts one record per input. On partial failure it returns
	// the records that were inserted together with the first error; callers
	// decide whether a partial result is good enough.
	CreateMany(ctx context.Context, notifs []*Notification) ([]*Notification, error)

	GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error)

	// FindForRecipient returns the recipient's notifications newest first,
	// including broadcasts for the same category.
	FindForRecipient(ctx context.Context, recipientID uuid.UUID, category Category, opts ListOptions) ([]*Notification, error)

	// FindByCategory returns all notifications of a category newest first.
	// Used for the shared admin feed.
	FindByCategory(ctx context.Context, category Category, limit int) ([]*Notification, error)

	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, category Category) error
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteNotification(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, recipientID uuid.UUID, category Category) (int, error)

	// DeleteExpired removes records past their expires_at and reports how
	// many were swept.
	DeleteExpired(ctx context.Context) (int64, error)
}

// DispatchOutcome is the per-token result of one multicast push attempt.
// It only lives long enough to drive token pruning.
type DispatchOutcome struct {
	Attempted    []string
	FailedTokens []string
	SuccessCount int
	FailureCount int
	// Degraded is set when the provider call itself failed and every token
	// was marked failed.
	Degraded bool
}

// Pusher is the outbound push provider. SendMulticast never returns an
// error: provider-level failures degrade into an all-failed outcome so the
// caller can finish its own work regardless.
type Pusher interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) *DispatchOutcome
	SendSingle(ctx context.Context, token, title, body string, data map[string]string) error
}

// RealtimePublisher pushes freshly created notifications to connected
// websocket clients. Best effort; implementations must not block.
type RealtimePublisher interface {
	Publish(n *Notification)
}

// UnreadCache caches per-account unread badge counts. Best effort; a miss
// or failure falls through to the store.
type UnreadCache interface {
	GetUnread(ctx context.Context, category Category, accountID uuid.UUID) (int, bool)
	SetUnread(ctx context.Context, category Category, accountID uuid.UUID, count int)
	InvalidateUnread(ctx context.Context, category Category, accountID *uuid.UUID)
}
