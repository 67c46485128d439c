package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WasteType classifies what a pickup request collects.
type WasteType string

const (
	WasteGeneral    WasteType = "general"
	WasteRecyclable WasteType = "recyclable"
	WasteOrganic    WasteType = "organic"
	WasteHazardous  WasteType = "hazardous"
)

func (w WasteType) Valid() bool {
	switch w {
	case WasteGeneral, WasteRecyclable, WasteOrganic, WasteHazardous:
		return true
	}
	return false
}

// RequestStatus is the pickup request lifecycle.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusAssigned  RequestStatus = "assigned"
	StatusOnTheWay  RequestStatus = "on_the_way"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
	StatusMissed    RequestStatus = "missed"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusOnTheWay, StatusCompleted, StatusCancelled, StatusMissed:
		return true
	}
	return false
}

// Request is one waste pickup request.
type Request struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	DriverID      *uuid.UUID    `json:"driver_id,omitempty"`
	Name          string        `json:"name"`
	Type          WasteType     `json:"type"`
	Status        RequestStatus `json:"status"`
	Address       string        `json:"address"`
	PhoneNumber   string        `json:"phone_number"`
	ScheduledDate time.Time     `json:"scheduled_date"`
	Shift         string        `json:"shift"`
	Weight        float64       `json:"weight"`
	Notes         *string       `json:"notes,omitempty"`
	AssignedAt    *time.Time    `json:"assigned_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CreateRequestParams holds user input for a new pickup request.
type CreateRequestParams struct {
	UserID        uuid.UUID
	Name          string
	Type          WasteType
	Address       string
	PhoneNumber   string
	ScheduledDate time.Time
	Shift         string
	Weight        float64
	Notes         *string
}

// RequestRepository persists pickup requests.
type RequestRepository interface {
	CreateRequest(ctx context.Context, params CreateRequestParams) (*Request, error)
	GetRequestByID(ctx context.Context, id uuid.UUID) (*Request, error)
	ListRequestsByUser(ctx context.Context, userID uuid.UUID) ([]*Request, error)
	ListRequestsByDriver(ctx context.Context, driverID uuid.UUID) ([]*Request, error)
	ListRequests(ctx context.Context, status *RequestStatus) ([]*Request, error)
	AssignDriver(ctx context.Context, requestID, driverID uuid.UUID) (*Request, error)
	UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, status RequestStatus) (*Request, error)
}
