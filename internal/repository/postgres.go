package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wastewise/backend/internal/domain"
)

// PostgresRepository implements the domain repository interfaces using
// PostgreSQL. Accounts live in three tables (users, drivers, admins) keyed by
// the category; push tokens are a TEXT[] column mutated with atomic
// array expressions so concurrent register/prune cannot lose writes.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// tableFor maps a category to its account table. The switch is exhaustive
// over the closed Category set; anything else is a programming error.
func tableFor(category domain.Category) (string, error) {
	switch category {
	case domain.CategoryUser:
		return "users", nil
	case domain.CategoryDriver:
		return "drivers", nil
	case domain.CategoryAdmin:
		return "admins", nil
	default:
		return "", fmt.Errorf("%w: unknown account category %q", domain.ErrInvalidRequest, category)
	}
}

const accountColumns = "id, name, email, phone, address, is_active, fcm_tokens, created_at, updated_at"

// GetAccountByID retrieves one account from the category's table.
func (r *PostgresRepository) GetAccountByID(ctx context.Context, category domain.Category, id uuid.UUID) (*domain.Account, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND is_active = TRUE`, accountColumns, table)
	row := r.db.QueryRow(ctx, query, id)
	return scanAccount(row, category)
}

// ListAdmins returns every active admin account.
func (r *PostgresRepository) ListAdmins(ctx context.Context) ([]*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE is_active = TRUE ORDER BY created_at`, accountColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		acct, err := scanAccount(rows, domain.CategoryAdmin)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

// AddFCMToken removes any prior occurrence of the token and appends it, in
// one statement, returning the updated set.
func (r *PostgresRepository) AddFCMToken(ctx context.Context, category domain.Category, accountID uuid.UUID, token string) ([]string, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET fcm_tokens = array_append(array_remove(fcm_tokens, $2), $2), updated_at = NOW()
		WHERE id = $1 AND is_active = TRUE
		RETURNING fcm_tokens
	`, table)

	var tokens []string
	if err := r.db.QueryRow(ctx, query, accountID, token).Scan(&tokens); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return tokens, nil
}

// RemoveFCMTokens prunes tokens from one account, or from every admin when
// accountID is nil.
func (r *PostgresRepository) RemoveFCMTokens(ctx context.Context, category domain.Category, accountID *uuid.UUID, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	table, err := tableFor(category)
	if err != nil {
		return err
	}

	if accountID == nil {
		if category != domain.CategoryAdmin {
			return fmt.Errorf("%w: role-wide prune is only defined for admins", domain.ErrInvalidRequest)
		}
		query := fmt.Sprintf(`
			UPDATE %s
			SET fcm_tokens = (
				SELECT COALESCE(array_agg(t), '{}') FROM unnest(fcm_tokens) AS t WHERE t <> ALL($1::text[])
			), updated_at = NOW()
			WHERE fcm_tokens && $1::text[]
		`, table)
		_, err := r.db.Exec(ctx, query, tokens)
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET fcm_tokens = (
			SELECT COALESCE(array_agg(t), '{}') FROM unnest(fcm_tokens) AS t WHERE t <> ALL($2::text[])
		), updated_at = NOW()
		WHERE id = $1
	`, table)
	_, err = r.db.Exec(ctx, query, *accountID, tokens)
	return err
}

// CreateAccount inserts a new account into the category's table.
func (r *PostgresRepository) CreateAccount(ctx context.Context, params domain.CreateAccountParams) (*domain.Account, error) {
	table, err := tableFor(params.Category)
	if err != nil {
		return nil, err
	}

	var query string
	var row pgx.Row
	if params.Category == domain.CategoryUser {
		query = fmt.Sprintf(`
			INSERT INTO %s (name, email, phone, address, password_hash, google_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING %s
		`, table, accountColumns)
		row = r.db.QueryRow(ctx, query, params.Name, params.Email, params.Phone, params.Address, params.PasswordHash, params.GoogleID)
	} else {
		query = fmt.Sprintf(`
			INSERT INTO %s (name, email, phone, address, password_hash)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING %s
		`, table, accountColumns)
		row = r.db.QueryRow(ctx, query, params.Name, params.Email, params.Phone, params.Address, params.PasswordHash)
	}
	return scanAccount(row, params.Category)
}

// GetAccountWithPassword retrieves an account with its password hash for
// credential checks.
func (r *PostgresRepository) GetAccountWithPassword(ctx context.Context, category domain.Category, email string) (*domain.Account, string, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, "", err
	}
	query := fmt.Sprintf(`SELECT %s, password_hash FROM %s WHERE email = $1 AND is_active = TRUE`, accountColumns, table)
	row := r.db.QueryRow(ctx, query, email)

	acct := &domain.Account{Category: category}
	var passwordHash *string
	err = row.Scan(
		&acct.ID,
		&acct.Name,
		&acct.Email,
		&acct.Phone,
		&acct.Address,
		&acct.IsActive,
		&acct.FCMTokens,
		&acct.CreatedAt,
		&acct.UpdatedAt,
		&passwordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", domain.ErrAccountNotFound
		}
		return nil, "", err
	}

	hash := ""
	if passwordHash != nil {
		hash = *passwordHash
	}
	return acct, hash, nil
}

// AccountExistsByEmail checks for an existing account in one table.
func (r *PostgresRepository) AccountExistsByEmail(ctx context.Context, category domain.Category, email string) (bool, error) {
	table, err := tableFor(category)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE email = $1)`, table)
	var exists bool
	err = r.db.QueryRow(ctx, query, email).Scan(&exists)
	return exists, err
}

// GetAccountByGoogleID retrieves an end user by linked Google ID.
func (r *PostgresRepository) GetAccountByGoogleID(ctx context.Context, googleID string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE google_id = $1 AND is_active = TRUE`, accountColumns)
	row := r.db.QueryRow(ctx, query, googleID)
	return scanAccount(row, domain.CategoryUser)
}

// LinkGoogleAccount attaches a Google ID to an existing end user.
func (r *PostgresRepository) LinkGoogleAccount(ctx context.Context, userID uuid.UUID, googleID string) error {
	query := `UPDATE users SET google_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, userID, googleID)
	return err
}

// CreateRefreshToken stores a hashed refresh token.
func (r *PostgresRepository) CreateRefreshToken(ctx context.Context, params domain.CreateRefreshTokenParams) (*domain.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (account_id, category, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, account_id, category, token_hash, expires_at, revoked, created_at
	`
	row := r.db.QueryRow(ctx, query, params.AccountID, params.Category, params.TokenHash, params.ExpiresAt)
	return scanRefreshToken(row)
}

// GetRefreshTokenByHash retrieves an unrevoked, unexpired refresh token.
func (r *PostgresRepository) GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, account_id, category, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked = FALSE AND expires_at > NOW()
	`
	row := r.db.QueryRow(ctx, query, hash)
	return scanRefreshToken(row)
}

// RevokeRefreshTokenByHash revokes a refresh token by hash.
func (r *PostgresRepository) RevokeRefreshTokenByHash(ctx context.Context, hash string) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE token_hash = $1`
	_, err := r.db.Exec(ctx, query, hash)
	return err
}

// RevokeAccountRefreshTokens revokes every refresh token an account holds.
func (r *PostgresRepository) RevokeAccountRefreshTokens(ctx context.Context, category domain.Category, accountID uuid.UUID) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE account_id = $1 AND category = $2`
	_, err := r.db.Exec(ctx, query, accountID, category)
	return err
}

func scanAccount(row pgx.Row, category domain.Category) (*domain.Account, error) {
	acct := &domain.Account{Category: category}
	err := row.Scan(
		&acct.ID,
		&acct.Name,
		&acct.Email,
		&acct.Phone,
		&acct.Address,
		&acct.IsActive,
		&acct.FCMTokens,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

func scanRefreshToken(row pgx.Row) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := row.Scan(
		&token.ID,
		&token.AccountID,
		&token.Category,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenRevoked
		}
		return nil, err
	}
	return &token, nil
}

// CleanupExpired removes expired refresh tokens and swept notifications.
func (r *PostgresRepository) CleanupExpired(ctx context.Context) error {
	queries := []string{
		`DELETE FROM refresh_tokens WHERE expires_at < NOW() OR (revoked = TRUE AND revoked_at < NOW() - INTERVAL '7 days')`,
		`DELETE FROM notifications WHERE expires_at < NOW()`,
	}
	for _, query := range queries {
		if _, err := r.db.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// StartCleanupWorker starts a background sweep of expired rows.
func (r *PostgresRepository) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = r.CleanupExpired(ctx)
			}
		}
	}()
}
