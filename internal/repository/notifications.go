package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wastewise/backend/internal/domain"
)

const notificationColumns = "id, recipient, recipient_category, title, message, type, is_read, status, data, created_at, expires_at"

// CreateMany inserts one row per record, tolerating partial failure: every
// row that inserts is returned, alongside the first insert error if any.
// Matches the fire-and-forget philosophy of the dispatch path — saved records
// are never rolled back because a sibling failed.
func (r *PostgresRepository) CreateMany(ctx context.Context, notifs []*domain.Notification) ([]*domain.Notification, error) {
	query := fmt.Sprintf(`
		INSERT INTO notifications (id, recipient, recipient_category, title, message, type, is_read, status, data, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s
	`, notificationColumns)

	created := make([]*domain.Notification, 0, len(notifs))
	var firstErr error
	for _, n := range notifs {
		row := r.db.QueryRow(ctx, query,
			n.ID,
			n.Recipient,
			n.RecipientCategory,
			n.Title,
			n.Message,
			n.Kind,
			n.IsRead,
			n.Status,
			n.Payload,
			n.CreatedAt,
			n.ExpiresAt,
		)
		saved, err := scanNotification(row)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created = append(created, saved)
	}
	return created, firstErr
}

// GetNotification retrieves one non-expired record.
func (r *PostgresRepository) GetNotification(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE id = $1 AND expires_at > NOW()`, notificationColumns)
	row := r.db.QueryRow(ctx, query, id)
	return scanNotification(row)
}

// FindForRecipient returns targeted records plus category broadcasts, newest
// first, excluding expired rows.
func (r *PostgresRepository) FindForRecipient(ctx context.Context, recipientID uuid.UUID, category domain.Category, opts domain.ListOptions) ([]*domain.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE recipient_category = $2
		  AND (recipient = $1 OR recipient IS NULL)
		  AND expires_at > NOW()
	`, notificationColumns)
	if opts.UnreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $3`

	rows, err := r.db.Query(ctx, query, recipientID, category, opts.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// FindByCategory returns the newest records of a category (the shared admin
// feed), excluding expired rows.
func (r *PostgresRepository) FindByCategory(ctx context.Context, category domain.Category, limit int) ([]*domain.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE recipient_category = $1 AND expires_at > NOW()
		ORDER BY created_at DESC LIMIT $2
	`, notificationColumns)

	rows, err := r.db.Query(ctx, query, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// MarkNotificationRead flips one record to read.
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkAllRead flips every unread record the account owns. No-op when there
// are none.
func (r *PostgresRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, category domain.Category) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE recipient = $1 AND recipient_category = $2 AND is_read = FALSE`
	_, err := r.db.Exec(ctx, query, recipientID, category)
	return err
}

// UpdateNotificationStatus records an accept/decline response.
func (r *PostgresRepository) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteNotification removes one record.
func (r *PostgresRepository) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountUnread counts unread, unexpired records visible to the account,
// broadcasts included.
func (r *PostgresRepository) CountUnread(ctx context.Context, recipientID uuid.UUID, category domain.Category) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_category = $2
		  AND (recipient = $1 OR recipient IS NULL)
		  AND is_read = FALSE
		  AND expires_at > NOW()
	`
	var count int
	err := r.db.QueryRow(ctx, query, recipientID, category).Scan(&count)
	return count, err
}

// DeleteExpired sweeps records past their TTL.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID,
		&n.Recipient,
		&n.RecipientCategory,
		&n.Title,
		&n.Message,
		&n.Kind,
		&n.IsRead,
		&n.Status,
		&n.Payload,
		&n.CreatedAt,
		&n.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	var notifs []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}
