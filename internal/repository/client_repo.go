package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ticovision/reminders/internal/domain"
)

type ClientRepo struct {
	db *DB
}

func NewClientRepo(db *DB) *ClientRepo {
	return &ClientRepo{db: db}
}

// ListIDsByGroup returns the ids of the tenant's clients in a group.
func (r *ClientRepo) ListIDsByGroup(ctx context.Context, tenantID, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT id FROM clients WHERE tenant_id = ? AND group_id = ? ORDER BY id"),
		tenantID, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list group clients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ClientRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.Client, error) {
	var c domain.Client
	var groupID, email sql.NullString
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind("SELECT id, tenant_id, group_id, company_name, contact_email FROM clients WHERE tenant_id = ? AND id = ?"),
		tenantID, id,
	).Scan(&c.ID, &c.TenantID, &groupID, &c.CompanyName, &email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	c.GroupID = groupID.String
	c.ContactEmail = email.String
	return &c, nil
}

func (r *ClientRepo) BulkUpsert(ctx context.Context, clients []domain.Client) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(
		`INSERT INTO clients (id, tenant_id, group_id, company_name, contact_email)
		VALUES (?,?,?,?,?)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			group_id = excluded.group_id,
			company_name = excluded.company_name,
			contact_email = excluded.contact_email`,
	))
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	upserted := 0
	for i := range clients {
		c := &clients[i]
		res, err := stmt.ExecContext(ctx, c.ID, c.TenantID, nullIfEmpty(c.GroupID), c.CompanyName, nullIfEmpty(c.ContactEmail))
		if err != nil {
			return upserted, fmt.Errorf("upsert client %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		upserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return upserted, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
