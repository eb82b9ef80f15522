package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
)

func (r *Repository) GetByUsername(ctx context.Context, username string) (*domain.UsernameRecord, error) {
	return r.getUsername(ctx, `SELECT principal_id, username FROM usernames WHERE username = ?`, username)
}

func (r *Repository) GetByPrincipal(ctx context.Context, principalID string) (*domain.UsernameRecord, error) {
	return r.getUsername(ctx, `SELECT principal_id, username FROM usernames WHERE principal_id = ?`, principalID)
}

func (r *Repository) getUsername(ctx context.Context, query, arg string) (*domain.UsernameRecord, error) {
	var rec domain.UsernameRecord
	err := r.db.QueryRowContext(ctx, r.rebind(query), arg).Scan(&rec.PrincipalID, &rec.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get username: %w", err)
	}
	return &rec, nil
}

// UpsertUsername claims or renames in a single statement. The UNIQUE index on
// username decides races between principals.
func (r *Repository) UpsertUsername(ctx context.Context, rec domain.UsernameRecord) error {
	query := `INSERT INTO usernames (principal_id, username, updated_at) VALUES (?, ?, ?)
			  ON CONFLICT (principal_id) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, r.rebind(query), rec.PrincipalID, rec.Username, time.Now().UnixMilli())
	if isUniqueViolation(err) {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("upsert username: %w", err)
	}
	return nil
}

func (r *Repository) DumpUsernames(ctx context.Context) ([]domain.UsernameRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT principal_id, username FROM usernames ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("query usernames: %w", err)
	}
	defer rows.Close()

	records := []domain.UsernameRecord{}
	for rows.Next() {
		var rec domain.UsernameRecord
		if err := rows.Scan(&rec.PrincipalID, &rec.Username); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) RegisterPrincipal(ctx context.Context, principalID string) error {
	query := `INSERT INTO principals (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, r.rebind(query), principalID, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("register principal: %w", err)
	}
	return nil
}

func (r *Repository) PrincipalExists(ctx context.Context, principalID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT 1 FROM principals WHERE id = ?`), principalID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup principal: %w", err)
	}
	return true, nil
}
