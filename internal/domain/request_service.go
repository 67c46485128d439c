package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// statusNotifications maps a request status transition to the notification
// pushed to the requesting user. Statuses absent from the map fire nothing.
var statusNotifications = map[RequestStatus]struct {
	Kind    Kind
	Title   string
	Message string
}{
	StatusOnTheWay: {
		Kind:    KindDriverOnTheWay,
		Title:   "Driver On The Way",
		Message: "Your waste collection driver is on the way.",
	},
	StatusCancelled: {
		Kind:    KindRequestCancelled,
		Title:   "Request Cancelled",
		Message: "Your waste collection request has been cancelled.",
	},
	StatusCompleted: {
		Kind:    KindRequestCompleted,
		Title:   "Collection Completed",
		Message: "Your waste collection has been completed successfully.",
	},
	StatusMissed: {
		Kind:    KindCollectionMissed,
		Title:   "Collection Missed",
		Message: "Your scheduled collection was marked as missed.",
	},
}

// RequestService handles the pickup request lifecycle. Every state change is
// reported to the notification orchestrator; notification failures never fail
// the request operation.
type RequestService struct {
	repo          RequestRepository
	notifications *NotificationService
	logger        *zap.Logger
}

func NewRequestService(repo RequestRepository, notifications *NotificationService, logger *zap.Logger) *RequestService {
	return &RequestService{
		repo:          repo,
		notifications: notifications,
		logger:        logger,
	}
}

// Create registers a new pickup request and alerts the admin role.
func (s *RequestService) Create(ctx context.Context, params CreateRequestParams) (*Request, error) {
	if params.Name == "" || params.Address == "" || params.PhoneNumber == "" || params.Shift == "" {
		return nil, fmt.Errorf("%w: name, address, phone number and shift are required", ErrInvalidRequest)
	}
	if !params.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown waste type %q", ErrInvalidRequest, params.Type)
	}
	if params.ScheduledDate.IsZero() {
		return nil, fmt.Errorf("%w: scheduled date is required", ErrInvalidRequest)
	}

	req, err := s.repo.CreateRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	if _, err := s.notifications.Dispatch(ctx, DispatchInput{
		Category: CategoryAdmin,
		Title:    "New Pickup Request",
		Message:  fmt.Sprintf("A new %s waste pickup was requested at %s.", req.Type, req.Address),
		Kind:     KindNewRequest,
		Payload: Map{
			"requestId":     req.ID.String(),
			"status":        string(req.Status),
			"scheduledDate": req.ScheduledDate,
		},
	}); err != nil {
		s.logger.Error("failed to notify admins of new request",
			zap.String("request_id", req.ID.String()), zap.Error(err))
	}

	return req, nil
}

// Get returns one request, restricted to its owner, its driver, or an admin.
func (s *RequestService) Get(ctx context.Context, id, requester uuid.UUID, category Category) (*Request, error) {
	req, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch category {
	case CategoryAdmin:
	case CategoryUser:
		if req.UserID != requester {
			return nil, fmt.Errorf("%w: request belongs to another user", ErrForbidden)
		}
	case CategoryDriver:
		if req.DriverID == nil || *req.DriverID != requester {
			return nil, fmt.Errorf("%w: request is not assigned to this driver", ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("%w: unknown account category %q", ErrInvalidRequest, category)
	}
	return req, nil
}

// ListMine returns the requests visible to the caller: their own for users,
// their assignments for drivers, everything (optionally by status) for admins.
func (s *RequestService) ListMine(ctx context.Context, requester uuid.UUID, category Category, status *RequestStatus) ([]*Request, error) {
	switch category {
	case CategoryUser:
		return s.repo.ListRequestsByUser(ctx, requester)
	case CategoryDriver:
		return s.repo.ListRequestsByDriver(ctx, requester)
	case CategoryAdmin:
		return s.repo.ListRequests(ctx, status)
	default:
		return nil, fmt.Errorf("%w: unknown account category %q", ErrInvalidRequest, category)
	}
}

// AssignDriver attaches a driver to a pending request and notifies both the
// driver and the requesting user.
func (s *RequestService) AssignDriver(ctx context.Context, requestID, driverID uuid.UUID) (*Request, error) {
	req, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, fmt.Errorf("%w: request is %s, only pending requests can be assigned", ErrInvalidRequest, req.Status)
	}

	req, err = s.repo.AssignDriver(ctx, requestID, driverID)
	if err != nil {
		return nil, err
	}

	payload := Map{
		"requestId":     req.ID.String(),
		"status":        string(req.Status),
		"scheduledDate": req.ScheduledDate,
	}
	driver := driverID
	if _, err := s.notifications.Dispatch(ctx, DispatchInput{
		Category:  CategoryDriver,
		Recipient: &driver,
		Title:     "New Collection Assignment",
		Message:   fmt.Sprintf("You have been assigned a %s waste pickup at %s.", req.Type, req.Address),
		Kind:      KindDriverAssigned,
		Payload:   payload,
	}); err != nil {
		s.logger.Error("failed to notify assigned driver",
			zap.String("request_id", req.ID.String()), zap.Error(err))
	}

	user := req.UserID
	if _, err := s.notifications.Dispatch(ctx, DispatchInput{
		Category:  CategoryUser,
		Recipient: &user,
		Title:     "Driver Assigned",
		Message:   "A driver has been assigned to your waste collection request.",
		Kind:      KindDriverAssigned,
		Payload:   payload,
	}); err != nil {
		s.logger.Error("failed to notify user of driver assignment",
			zap.String("request_id", req.ID.String()), zap.Error(err))
	}

	return req, nil
}

// UpdateStatus moves a request through its lifecycle on behalf of its driver
// and fires the mapped status notification, if any.
func (s *RequestService) UpdateStatus(ctx context.Context, requestID, driverID uuid.UUID, status RequestStatus) (*Request, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	req, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.DriverID == nil || *req.DriverID != driverID {
		return nil, fmt.Errorf("%w: request is not assigned to this driver", ErrForbidden)
	}

	req, err = s.repo.UpdateRequestStatus(ctx, requestID, status)
	if err != nil {
		return nil, err
	}

	s.NotifyStatusChange(ctx, req, status)
	return req, nil
}

// Cancel lets the requesting user cancel their own request.
func (s *RequestService) Cancel(ctx context.Context, requestID, userID uuid.UUID) (*Request, error) {
	req, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, fmt.Errorf("%w: request belongs to another user", ErrForbidden)
	}
	if req.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: request is already cancelled", ErrInvalidRequest)
	}
	if req.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: completed requests cannot be cancelled", ErrInvalidRequest)
	}

	req, err = s.repo.UpdateRequestStatus(ctx, requestID, StatusCancelled)
	if err != nil {
		return nil, err
	}

	s.NotifyStatusChange(ctx, req, StatusCancelled)
	return req, nil
}

// NotifyStatusChange dispatches the notification mapped to a status
// transition to the requesting user. Unmapped statuses are silently ignored;
// dispatch errors are logged, never propagated.
func (s *RequestService) NotifyStatusChange(ctx context.Context, req *Request, status RequestStatus) {
	cfg, ok := statusNotifications[status]
	if !ok {
		return
	}

	payload := Map{
		"requestId":     req.ID.String(),
		"status":        string(status),
		"scheduledDate": req.ScheduledDate,
	}
	if req.DriverID != nil {
		payload["driverId"] = req.DriverID.String()
	}

	user := req.UserID
	if _, err := s.notifications.Dispatch(ctx, DispatchInput{
		Category:  CategoryUser,
		Recipient: &user,
		Title:     cfg.Title,
		Message:   cfg.Message,
		Kind:      cfg.Kind,
		Payload:   payload,
	}); err != nil {
		s.logger.Error("failed to send status notification",
			zap.String("request_id", req.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
