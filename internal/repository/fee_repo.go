package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticovision/reminders/internal/domain"
)

const feeColumns = `id, tenant_id, client_id, year, status, base_amount,
	discount_percentage, discount_amount, previous_year_discount, total_amount,
	payment_method_selected, payment_method_selected_at, created_at,
	reminder_count, last_reminder_sent_at`

type FeeRepo struct {
	db *DB
}

func NewFeeRepo(db *DB) *FeeRepo {
	return &FeeRepo{db: db}
}

// FeeFilter is the coarse, store-side part of a reminder rule.
type FeeFilter struct {
	TenantID    string
	Statuses    []domain.FeeStatus
	MethodUnset bool
	Methods     []domain.PaymentMethod
}

// Query returns the tenant's fees matching the filter. Empty filter fields
// place no restriction.
func (r *FeeRepo) Query(ctx context.Context, f FeeFilter) ([]domain.FeeRecord, error) {
	if f.TenantID == "" {
		return nil, errors.New("fee query: tenant id is required")
	}
	where, args := buildFeeWhere(f)

	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+feeColumns+" FROM fee_calculations"+where+" ORDER BY created_at ASC, id ASC"),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query fees: %w", err)
	}
	defer rows.Close()
	return scanFees(rows)
}

func (r *FeeRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.FeeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+feeColumns+" FROM fee_calculations WHERE tenant_id = ? AND id = ?"),
		tenantID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get fee: %w", err)
	}
	defer rows.Close()

	fees, err := scanFees(rows)
	if err != nil {
		return nil, err
	}
	if len(fees) == 0 {
		return nil, ErrNotFound
	}
	return &fees[0], nil
}

// ListByClientsAndYear returns the fee calculations of the given clients for
// one year. Clients without a record for that year are simply absent.
func (r *FeeRepo) ListByClientsAndYear(ctx context.Context, tenantID string, clientIDs []string, year int) ([]domain.FeeRecord, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}

	args := []any{tenantID, year}
	for _, id := range clientIDs {
		args = append(args, id)
	}

	q := "SELECT " + feeColumns + " FROM fee_calculations WHERE tenant_id = ? AND year = ? AND client_id IN (" +
		placeholders(len(clientIDs)) + ") ORDER BY client_id"

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list fees by clients: %w", err)
	}
	defer rows.Close()
	return scanFees(rows)
}

// BulkUpsert inserts or replaces fee records in one transaction. Reminder
// counters of existing rows are left untouched.
func (r *FeeRepo) BulkUpsert(ctx context.Context, fees []domain.FeeRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(
		`INSERT INTO fee_calculations
		(id, tenant_id, client_id, year, status, base_amount, discount_percentage,
		 discount_amount, previous_year_discount, total_amount,
		 payment_method_selected, payment_method_selected_at, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			status = excluded.status,
			base_amount = excluded.base_amount,
			discount_percentage = excluded.discount_percentage,
			discount_amount = excluded.discount_amount,
			previous_year_discount = excluded.previous_year_discount,
			total_amount = excluded.total_amount,
			payment_method_selected = excluded.payment_method_selected,
			payment_method_selected_at = excluded.payment_method_selected_at`,
	))
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	upserted := 0
	for i := range fees {
		f := &fees[i]
		var method any
		if f.PaymentMethodSelected != nil {
			method = string(*f.PaymentMethodSelected)
		}
		res, err := stmt.ExecContext(ctx,
			f.ID, f.TenantID, f.ClientID, f.Year, string(f.Status), f.BaseAmount,
			f.DiscountPercentage, f.DiscountAmount, f.PreviousYearDiscount, f.TotalAmount,
			method, formatNullableTime(f.PaymentMethodSelectedAt), formatNullableTime(f.CreatedAt),
		)
		if err != nil {
			return upserted, fmt.Errorf("upsert fee %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		upserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return upserted, nil
}

// --- helpers ---

func buildFeeWhere(f FeeFilter) (string, []any) {
	clauses := []string{"tenant_id = ?"}
	args := []any{f.TenantID}

	if len(f.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}
	if f.MethodUnset {
		clauses = append(clauses, "payment_method_selected IS NULL")
	} else if len(f.Methods) > 0 {
		clauses = append(clauses, "payment_method_selected IN ("+placeholders(len(f.Methods))+")")
		for _, m := range f.Methods {
			args = append(args, string(m))
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullableTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func scanFees(rows *sql.Rows) ([]domain.FeeRecord, error) {
	var fees []domain.FeeRecord
	for rows.Next() {
		var f domain.FeeRecord
		var status string
		var method, selectedAt, createdAt, lastReminder sql.NullString
		var base, total decimal.NullDecimal

		err := rows.Scan(
			&f.ID, &f.TenantID, &f.ClientID, &f.Year, &status, &base,
			&f.DiscountPercentage, &f.DiscountAmount, &f.PreviousYearDiscount, &total,
			&method, &selectedAt, &createdAt,
			&f.ReminderCount, &lastReminder,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}

		f.Status = domain.FeeStatus(status)
		f.BaseAmount = base.Decimal
		f.TotalAmount = total.Decimal
		if method.Valid && method.String != "" {
			pm := domain.PaymentMethod(method.String)
			f.PaymentMethodSelected = &pm
		}
		f.PaymentMethodSelectedAt = parseNullableTime(selectedAt)
		f.CreatedAt = parseNullableTime(createdAt)
		f.LastReminderSentAt = parseNullableTime(lastReminder)

		fees = append(fees, f)
	}
	return fees, rows.Err()
}
