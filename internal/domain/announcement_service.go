package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnnouncementService handles admin announcements. Publishing one also
// creates a broadcast notification for the target audience.
type AnnouncementService struct {
	repo          AnnouncementRepository
	notifications *NotificationService
	logger        *zap.Logger
}

func NewAnnouncementService(repo AnnouncementRepository, notifications *NotificationService, logger *zap.Logger) *AnnouncementService {
	return &AnnouncementService{
		repo:          repo,
		notifications: notifications,
		logger:        logger,
	}
}

// Create publishes an announcement and broadcasts it to its audience.
func (s *AnnouncementService) Create(ctx context.Context, params CreateAnnouncementParams) (*Announcement, error) {
	if params.Title == "" || params.Body == "" {
		return nil, fmt.Errorf("%w: title and body are required", ErrInvalidRequest)
	}
	switch params.Audience {
	case AudienceUsers, AudienceDrivers, AudienceAll:
	case "":
		params.Audience = AudienceAll
	default:
		return nil, fmt.Errorf("%w: unknown audience %q", ErrInvalidRequest, params.Audience)
	}

	ann, err := s.repo.CreateAnnouncement(ctx, params)
	if err != nil {
		return nil, err
	}

	payload := Map{"announcementId": ann.ID.String()}
	for _, category := range announceCategories(ann.Audience) {
		if _, err := s.notifications.Broadcast(ctx, category, ann.Title, ann.Body, KindAdminAnnouncement, payload); err != nil {
			s.logger.Error("failed to broadcast announcement",
				zap.String("announcement_id", ann.ID.String()),
				zap.String("category", string(category)),
				zap.Error(err),
			)
		}
	}

	return ann, nil
}

func announceCategories(audience string) []Category {
	switch audience {
	case AudienceUsers:
		return []Category{CategoryUser}
	case AudienceDrivers:
		return []Category{CategoryDriver}
	default:
		return []Category{CategoryUser, CategoryDriver}
	}
}

func (s *AnnouncementService) Get(ctx context.Context, id uuid.UUID) (*Announcement, error) {
	return s.repo.GetAnnouncementByID(ctx, id)
}

func (s *AnnouncementService) List(ctx context.Context) ([]*Announcement, error) {
	return s.repo.ListAnnouncements(ctx)
}

func (s *AnnouncementService) Update(ctx context.Context, id uuid.UUID, title, body string, imageURL *string) (*Announcement, error) {
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: title and body are required", ErrInvalidRequest)
	}
	return s.repo.UpdateAnnouncement(ctx, id, title, body, imageURL)
}

func (s *AnnouncementService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteAnnouncement(ctx, id)
}
