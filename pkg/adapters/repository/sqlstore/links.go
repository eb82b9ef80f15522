package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
)

const linkColumns = `id, principal_id, title, url, sort_order, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(s rowScanner) (domain.Link, error) {
	var l domain.Link
	var createdAt, updatedAt int64
	if err := s.Scan(&l.ID, &l.PrincipalID, &l.Title, &l.URL, &l.Order, &createdAt, &updatedAt); err != nil {
		return domain.Link{}, err
	}
	l.CreatedAt = time.UnixMilli(createdAt).UTC()
	l.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return l, nil
}

func (r *Repository) CreateLink(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (` + linkColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		link.ID, link.PrincipalID, link.Title, link.URL, link.Order,
		link.CreatedAt.UnixMilli(), link.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (r *Repository) GetLink(ctx context.Context, id string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = ?`

	link, err := scanLink(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return &link, nil
}

// UpdateLink patches title and url. The principal is part of the WHERE
// clause so a concurrent ownership change cannot be overwritten.
func (r *Repository) UpdateLink(ctx context.Context, link *domain.Link) error {
	query := `UPDATE links SET title = ?, url = ?, updated_at = ? WHERE id = ? AND principal_id = ?`

	res, err := r.db.ExecContext(ctx, r.rebind(query),
		link.Title, link.URL, link.UpdatedAt.UnixMilli(), link.ID, link.PrincipalID)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	return expectRow(res)
}

func (r *Repository) DeleteLink(ctx context.Context, principalID, id string) error {
	query := `DELETE FROM links WHERE id = ? AND principal_id = ?`

	res, err := r.db.ExecContext(ctx, r.rebind(query), id, principalID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return expectRow(res)
}

func (r *Repository) ListLinks(ctx context.Context, principalID string) ([]domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE principal_id = ? ORDER BY sort_order ASC, seq ASC`
	return r.queryLinks(ctx, r.rebind(query), principalID)
}

func (r *Repository) CountLinks(ctx context.Context, principalID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM links WHERE principal_id = ?`), principalID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return count, nil
}

// SetLinkOrders assigns order = index to each id in one transaction. Ids the
// principal does not own are not touched. Re-running it is harmless.
func (r *Repository) SetLinkOrders(ctx context.Context, principalID string, linkIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.rebind(`UPDATE links SET sort_order = ?, updated_at = ? WHERE id = ? AND principal_id = ?`))
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for i, id := range linkIDs {
		if _, err := stmt.ExecContext(ctx, int64(i), now, id, principalID); err != nil {
			return fmt.Errorf("reorder link %s: %w", id, err)
		}
	}

	return tx.Commit()
}

func (r *Repository) DumpLinks(ctx context.Context) ([]domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links ORDER BY principal_id ASC, sort_order ASC, seq ASC`
	return r.queryLinks(ctx, query)
}

func (r *Repository) queryLinks(ctx context.Context, query string, args ...any) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
