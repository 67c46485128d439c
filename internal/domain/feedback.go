package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Feedback is a user's rating of the collection service.
type Feedback struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	RequestID *uuid.UUID `json:"request_id,omitempty"`
	Subject   string     `json:"subject"`
	Message   string     `json:"message"`
	Rating    int        `json:"rating"`
	Response  *string    `json:"response,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateFeedbackParams holds user input for new feedback.
type CreateFeedbackParams struct {
	UserID    uuid.UUID
	RequestID *uuid.UUID
	Subject   string
	Message   string
	Rating    int
}

type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, params CreateFeedbackParams) (*Feedback, error)
	GetFeedbackByID(ctx context.Context, id uuid.UUID) (*Feedback, error)
	ListFeedback(ctx context.Context) ([]*Feedback, error)
	ListFeedbackByUser(ctx context.Context, userID uuid.UUID) ([]*Feedback, error)
	RespondToFeedback(ctx context.Context, id uuid.UUID, response string) (*Feedback, error)
}
