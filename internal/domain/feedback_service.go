package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeedbackService handles feedback submission and admin responses.
type FeedbackService struct {
	repo          FeedbackRepository
	notifications *NotificationService
	logger        *zap.Logger
}

func NewFeedbackService(repo FeedbackRepository, notifications *NotificationService, logger *zap.Logger) *FeedbackService {
	return &FeedbackService{
		repo:          repo,
		notifications: notifications,
		logger:        logger,
	}
}

// Create stores new feedback and alerts the admin role.
func (s *FeedbackService) Create(ctx context.Context, params CreateFeedbackParams) (*Feedback, error) {
	if params.Subject == "" || params.Message == "" {
		return nil, fmt.Errorf("%w: subject and message are required", ErrInvalidRequest)
	}
	if params.Rating < 1 || params.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidRequest)
	}

	fb, err := s.repo.CreateFeedback(ctx, params)
	if err != nil {
		return nil, err
	}

	if _, err := s.notifications.Dispatch(ctx, DispatchInput{
		Category: CategoryAdmin,
		Title:    "New User Feedback",
		Message:  fmt.Sprintf("New feedback received: %s", fb.Subject),
		Kind:     KindUserFeedback,
		Payload: Map{
			"feedbackId": fb.ID.String(),
			"rating":     fb.Rating,
		},
	}); err != nil {
		s.logger.Error("failed to notify admins of new feedback",
			zap.String("feedback_id", fb.ID.String()), zap.Error(err))
	}

	return fb, nil
}

// List returns all feedback for admins, or the caller's own for users.
func (s *FeedbackService) List(ctx context.Context, requester uuid.UUID, category Category) ([]*Feedback, error) {
	if category == CategoryAdmin {
		return s.repo.ListFeedback(ctx)
	}
	return s.repo.ListFeedbackByUser(ctx, requester)
}

// Respond records an admin reply and notifies the feedback's author.
func (s *FeedbackService) Respond(ctx context.Context, id uuid.UUID, response string) (*Feedback, error) {
	if response == "" {
		return nil, fmt.Errorf("%w: response is required", ErrInvalidRequest)
	}
	fb, err := s.repo.RespondToFeedback(ctx, id, response)
	if err != nil {
		return nil, err
	}

	user := fb.UserID
	if _, err := s.notifications.Dispatch(ctx, DispatchInput{
		Category:  CategoryUser,
		Recipient: &user,
		Title:     "Feedback Response",
		Message:   "An administrator responded to your feedback.",
		Kind:      KindGeneral,
		Payload:   Map{"feedbackId": fb.ID.String()},
	}); err != nil {
		s.logger.Error("failed to notify user of feedback response",
			zap.String("feedback_id", fb.ID.String()), zap.Error(err))
	}

	return fb, nil
}
