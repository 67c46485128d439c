package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wastewise/backend/internal/domain"
)

const requestColumns = "id, user_id, driver_id, name, type, status, address, phone_number, scheduled_date, shift, weight, notes, assigned_at, completed_at, created_at, updated_at"

// CreateRequest inserts a new pickup request in pending state.
func (r *PostgresRepository) CreateRequest(ctx context.Context, params domain.CreateRequestParams) (*domain.Request, error) {
	query := fmt.Sprintf(`
		INSERT INTO requests (user_id, name, type, address, phone_number, scheduled_date, shift, weight, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s
	`, requestColumns)
	row := r.db.QueryRow(ctx, query,
		params.UserID,
		params.Name,
		params.Type,
		params.Address,
		params.PhoneNumber,
		params.ScheduledDate,
		params.Shift,
		params.Weight,
		params.Notes,
	)
	return scanRequest(row)
}

// GetRequestByID retrieves one pickup request.
func (r *PostgresRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1`, requestColumns)
	row := r.db.QueryRow(ctx, query, id)
	return scanRequest(row)
}

// ListRequestsByUser returns a user's requests, newest first.
func (r *PostgresRepository) ListRequestsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE user_id = $1 ORDER BY created_at DESC`, requestColumns)
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListRequestsByDriver returns a driver's assignments, newest first.
func (r *PostgresRepository) ListRequestsByDriver(ctx context.Context, driverID uuid.UUID) ([]*domain.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE driver_id = $1 ORDER BY created_at DESC`, requestColumns)
	rows, err := r.db.Query(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListRequests returns all requests, optionally filtered by status.
func (r *PostgresRepository) ListRequests(ctx context.Context, status *domain.RequestStatus) ([]*domain.Request, error) {
	if status != nil {
		query := fmt.Sprintf(`SELECT %s FROM requests WHERE status = $1 ORDER BY created_at DESC`, requestColumns)
		rows, err := r.db.Query(ctx, query, *status)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return collectRequests(rows)
	}
	query := fmt.Sprintf(`SELECT %s FROM requests ORDER BY created_at DESC`, requestColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// AssignDriver attaches a driver and moves the request to assigned.
func (r *PostgresRepository) AssignDriver(ctx context.Context, requestID, driverID uuid.UUID) (*domain.Request, error) {
	query := fmt.Sprintf(`
		UPDATE requests
		SET driver_id = $2, status = 'assigned', assigned_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, requestColumns)
	row := r.db.QueryRow(ctx, query, requestID, driverID)
	return scanRequest(row)
}

// UpdateRequestStatus moves a request through its lifecycle, stamping
// completed_at for terminal completion.
func (r *PostgresRepository) UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, status domain.RequestStatus) (*domain.Request, error) {
	query := fmt.Sprintf(`
		UPDATE requests
		SET status = $2,
		    completed_at = CASE WHEN $2 = 'completed' THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, requestColumns)
	row := r.db.QueryRow(ctx, query, requestID, status)
	return scanRequest(row)
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.DriverID,
		&req.Name,
		&req.Type,
		&req.Status,
		&req.Address,
		&req.PhoneNumber,
		&req.ScheduledDate,
		&req.Shift,
		&req.Weight,
		&req.Notes,
		&req.AssignedAt,
		&req.CompletedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func collectRequests(rows pgx.Rows) ([]*domain.Request, error) {
	var reqs []*domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}
