package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ticovision/reminders/internal/domain"
)

type ReminderRepo struct {
	db *DB
}

func NewReminderRepo(db *DB) *ReminderRepo {
	return &ReminderRepo{db: db}
}

// Record appends a reminder history row and bumps the fee's reminder counter
// in the same transaction. ErrNotFound is returned, and nothing is written,
// when the fee does not belong to the reminder's tenant.
func (r *ReminderRepo) Record(ctx context.Context, rem *domain.PaymentReminder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sentAt := rem.SentAt.UTC().Format(time.RFC3339)

	res, err := tx.ExecContext(ctx, r.db.Rebind(
		`UPDATE fee_calculations
		SET reminder_count = reminder_count + 1, last_reminder_sent_at = ?
		WHERE tenant_id = ? AND id = ?`),
		sentAt, rem.TenantID, rem.FeeID,
	)
	if err != nil {
		return fmt.Errorf("bump reminder counter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO payment_reminders
		(id, tenant_id, client_id, fee_id, rule_id, reminder_type, channel, template_used, sent_at)
		VALUES (?,?,?,?,?,?,?,?,?)`),
		rem.ID, rem.TenantID, rem.ClientID, rem.FeeID, nullIfEmpty(rem.RuleID),
		string(rem.ReminderType), string(rem.Channel), rem.TemplateUsed, sentAt,
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListByFee returns a fee's reminder history, newest first.
func (r *ReminderRepo) ListByFee(ctx context.Context, tenantID, feeID string) ([]domain.PaymentReminder, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT id, tenant_id, client_id, fee_id, rule_id, reminder_type, channel, template_used, sent_at
		FROM payment_reminders WHERE tenant_id = ? AND fee_id = ? ORDER BY sent_at DESC, id`),
		tenantID, feeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []domain.PaymentReminder
	for rows.Next() {
		var rem domain.PaymentReminder
		var ruleID sql.NullString
		var rtype, channel, sentAt string
		if err := rows.Scan(
			&rem.ID, &rem.TenantID, &rem.ClientID, &rem.FeeID, &ruleID,
			&rtype, &channel, &rem.TemplateUsed, &sentAt,
		); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		rem.RuleID = ruleID.String
		rem.ReminderType = domain.ReminderType(rtype)
		rem.Channel = domain.Channel(channel)
		t, err := time.Parse(time.RFC3339, sentAt)
		if err != nil {
			return nil, fmt.Errorf("reminder %s sent_at: %w", rem.ID, err)
		}
		rem.SentAt = t
		out = append(out, rem)
	}
	return out, rows.Err()
}
