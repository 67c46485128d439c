package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wastewise/backend/internal/domain"
)

const feedbackColumns = "id, user_id, request_id, subject, message, rating, response, created_at, updated_at"

func (r *PostgresRepository) CreateFeedback(ctx context.Context, params domain.CreateFeedbackParams) (*domain.Feedback, error) {
	query := fmt.Sprintf(`
		INSERT INTO feedback (user_id, request_id, subject, message, rating)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, feedbackColumns)
	row := r.db.QueryRow(ctx, query, params.UserID, params.RequestID, params.Subject, params.Message, params.Rating)
	return scanFeedback(row)
}

func (r *PostgresRepository) GetFeedbackByID(ctx context.Context, id uuid.UUID) (*domain.Feedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM feedback WHERE id = $1`, feedbackColumns)
	return scanFeedback(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) ListFeedback(ctx context.Context) ([]*domain.Feedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM feedback ORDER BY created_at DESC`, feedbackColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, fb)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) ListFeedbackByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Feedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM feedback WHERE user_id = $1 ORDER BY created_at DESC`, feedbackColumns)
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, fb)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) RespondToFeedback(ctx context.Context, id uuid.UUID, response string) (*domain.Feedback, error) {
	query := fmt.Sprintf(`
		UPDATE feedback SET response = $2, updated_at = NOW() WHERE id = $1
		RETURNING %s
	`, feedbackColumns)
	return scanFeedback(r.db.QueryRow(ctx, query, id, response))
}

func scanFeedback(row pgx.Row) (*domain.Feedback, error) {
	var fb domain.Feedback
	err := row.Scan(
		&fb.ID,
		&fb.UserID,
		&fb.RequestID,
		&fb.Subject,
		&fb.Message,
		&fb.Rating,
		&fb.Response,
		&fb.CreatedAt,
		&fb.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &fb, nil
}

const announcementColumns = "id, title, body, audience, image_url, created_by, created_at, updated_at"

func (r *PostgresRepository) CreateAnnouncement(ctx context.Context, params domain.CreateAnnouncementParams) (*domain.Announcement, error) {
	query := fmt.Sprintf(`
		INSERT INTO announcements (title, body, audience, image_url, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, announcementColumns)
	row := r.db.QueryRow(ctx, query, params.Title, params.Body, params.Audience, params.ImageURL, params.CreatedBy)
	return scanAnnouncement(row)
}

func (r *PostgresRepository) GetAnnouncementByID(ctx context.Context, id uuid.UUID) (*domain.Announcement, error) {
	query := fmt.Sprintf(`SELECT %s FROM announcements WHERE id = $1`, announcementColumns)
	return scanAnnouncement(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) ListAnnouncements(ctx context.Context) ([]*domain.Announcement, error) {
	query := fmt.Sprintf(`SELECT %s FROM announcements ORDER BY created_at DESC`, announcementColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Announcement
	for rows.Next() {
		ann, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ann)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) UpdateAnnouncement(ctx context.Context, id uuid.UUID, title, body string, imageURL *string) (*domain.Announcement, error) {
	query := fmt.Sprintf(`
		UPDATE announcements
		SET title = $2, body = $3, image_url = COALESCE($4, image_url), updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, announcementColumns)
	return scanAnnouncement(r.db.QueryRow(ctx, query, id, title, body, imageURL))
}

func (r *PostgresRepository) DeleteAnnouncement(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAnnouncement(row pgx.Row) (*domain.Announcement, error) {
	var ann domain.Announcement
	err := row.Scan(
		&ann.ID,
		&ann.Title,
		&ann.Body,
		&ann.Audience,
		&ann.ImageURL,
		&ann.CreatedBy,
		&ann.CreatedAt,
		&ann.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ann, nil
}

const guidelineColumns = "id, title, description, category, image_url, created_at, updated_at"

func (r *PostgresRepository) CreateGuideline(ctx context.Context, params domain.CreateGuidelineParams) (*domain.RecyclingGuideline, error) {
	query := fmt.Sprintf(`
		INSERT INTO recycling_guidelines (title, description, category, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, guidelineColumns)
	row := r.db.QueryRow(ctx, query, params.Title, params.Description, params.Category, params.ImageURL)
	return scanGuideline(row)
}

func (r *PostgresRepository) GetGuidelineByID(ctx context.Context, id uuid.UUID) (*domain.RecyclingGuideline, error) {
	query := fmt.Sprintf(`SELECT %s FROM recycling_guidelines WHERE id = $1`, guidelineColumns)
	return scanGuideline(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) ListGuidelines(ctx context.Context) ([]*domain.RecyclingGuideline, error) {
	query := fmt.Sprintf(`SELECT %s FROM recycling_guidelines ORDER BY created_at DESC`, guidelineColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.RecyclingGuideline
	for rows.Next() {
		g, err := scanGuideline(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) UpdateGuideline(ctx context.Context, id uuid.UUID, params domain.CreateGuidelineParams) (*domain.RecyclingGuideline, error) {
	query := fmt.Sprintf(`
		UPDATE recycling_guidelines
		SET title = $2, description = $3, category = $4, image_url = COALESCE($5, image_url), updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, guidelineColumns)
	return scanGuideline(r.db.QueryRow(ctx, query, id, params.Title, params.Description, params.Category, params.ImageURL))
}

func (r *PostgresRepository) DeleteGuideline(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM recycling_guidelines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanGuideline(row pgx.Row) (*domain.RecyclingGuideline, error) {
	var g domain.RecyclingGuideline
	err := row.Scan(
		&g.ID,
		&g.Title,
		&g.Description,
		&g.Category,
		&g.ImageURL,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

const inventoryColumns = "id, name, category, quantity, status, created_at, updated_at"

func (r *PostgresRepository) CreateInventoryItem(ctx context.Context, params domain.CreateInventoryParams) (*domain.InventoryItem, error) {
	query := fmt.Sprintf(`
		INSERT INTO inventory_items (name, category, quantity, status)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, inventoryColumns)
	row := r.db.QueryRow(ctx, query, params.Name, params.Category, params.Quantity, params.Status)
	return scanInventoryItem(row)
}

func (r *PostgresRepository) GetInventoryItemByID(ctx context.Context, id uuid.UUID) (*domain.InventoryItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE id = $1`, inventoryColumns)
	return scanInventoryItem(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) ListInventoryItems(ctx context.Context) ([]*domain.InventoryItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventory_items ORDER BY name`, inventoryColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) UpdateInventoryItem(ctx context.Context, id uuid.UUID, params domain.CreateInventoryParams) (*domain.InventoryItem, error) {
	query := fmt.Sprintf(`
		UPDATE inventory_items
		SET name = $2, category = $3, quantity = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, inventoryColumns)
	return scanInventoryItem(r.db.QueryRow(ctx, query, id, params.Name, params.Category, params.Quantity, params.Status))
}

func (r *PostgresRepository) DeleteInventoryItem(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanInventoryItem(row pgx.Row) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Category,
		&item.Quantity,
		&item.Status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}
