package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GuidelineService manages recycling guidelines. Publishing a new guideline
// broadcasts a recycling update to end users.
type GuidelineService struct {
	repo          GuidelineRepository
	notifications *NotificationService
	logger        *zap.Logger
}

func NewGuidelineService(repo GuidelineRepository, notifications *NotificationService, logger *zap.Logger) *GuidelineService {
	return &GuidelineService{
		repo:          repo,
		notifications: notifications,
		logger:        logger,
	}
}

func (s *GuidelineService) Create(ctx context.Context, params CreateGuidelineParams) (*RecyclingGuideline, error) {
	if params.Title == "" || params.Description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidRequest)
	}

	g, err := s.repo.CreateGuideline(ctx, params)
	if err != nil {
		return nil, err
	}

	if _, err := s.notifications.Broadcast(ctx, CategoryUser, "Recycling Guidelines Updated",
		fmt.Sprintf("New guideline published: %s", g.Title), KindRecyclingUpdate,
		Map{"guidelineId": g.ID.String()}); err != nil {
		s.logger.Error("failed to broadcast guideline update",
			zap.String("guideline_id", g.ID.String()), zap.Error(err))
	}

	return g, nil
}

func (s *GuidelineService) Get(ctx context.Context, id uuid.UUID) (*RecyclingGuideline, error) {
	return s.repo.GetGuidelineByID(ctx, id)
}

func (s *GuidelineService) List(ctx context.Context) ([]*RecyclingGuideline, error) {
	return s.repo.ListGuidelines(ctx)
}

func (s *GuidelineService) Update(ctx context.Context, id uuid.UUID, params CreateGuidelineParams) (*RecyclingGuideline, error) {
	if params.Title == "" || params.Description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidRequest)
	}
	return s.repo.UpdateGuideline(ctx, id, params)
}

func (s *GuidelineService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteGuideline(ctx, id)
}

// InventoryService is thin CRUD over collection equipment stock.
type InventoryService struct {
	repo InventoryRepository
}

func NewInventoryService(repo InventoryRepository) *InventoryService {
	return &InventoryService{repo: repo}
}

func (s *InventoryService) Create(ctx context.Context, params CreateInventoryParams) (*InventoryItem, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if params.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidRequest)
	}
	if params.Status == "" {
		params.Status = "available"
	}
	return s.repo.CreateInventoryItem(ctx, params)
}

func (s *InventoryService) Get(ctx context.Context, id uuid.UUID) (*InventoryItem, error) {
	return s.repo.GetInventoryItemByID(ctx, id)
}

func (s *InventoryService) List(ctx context.Context) ([]*InventoryItem, error) {
	return s.repo.ListInventoryItems(ctx)
}

func (s *InventoryService) Update(ctx context.Context, id uuid.UUID, params CreateInventoryParams) (*InventoryItem, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	return s.repo.UpdateInventoryItem(ctx, id, params)
}

func (s *InventoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteInventoryItem(ctx, id)
}
