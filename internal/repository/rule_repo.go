package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ticovision/reminders/internal/domain"
)

const ruleColumns = `id, tenant_id, name, description, priority,
	trigger_conditions, actions, is_active, created_at`

type RuleRepo struct {
	db *DB
}

func NewRuleRepo(db *DB) *RuleRepo {
	return &RuleRepo{db: db}
}

// ListActive returns the tenant's active rules ordered by ascending priority.
func (r *RuleRepo) ListActive(ctx context.Context, tenantID string) ([]domain.ReminderRule, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+ruleColumns+" FROM reminder_rules WHERE tenant_id = ? AND is_active = ? ORDER BY priority ASC, created_at ASC"),
		tenantID, true,
	)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// List returns every rule of the tenant, active or not.
func (r *RuleRepo) List(ctx context.Context, tenantID string) ([]domain.ReminderRule, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+ruleColumns+" FROM reminder_rules WHERE tenant_id = ? ORDER BY priority ASC, created_at ASC"),
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *RuleRepo) Create(ctx context.Context, rule *domain.ReminderRule) error {
	conds, err := json.Marshal(rule.TriggerConditions)
	if err != nil {
		return fmt.Errorf("encode trigger conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO reminder_rules
		(id, tenant_id, name, description, priority, trigger_conditions, actions, is_active, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`),
		rule.ID, rule.TenantID, rule.Name, rule.Description, rule.Priority,
		string(conds), string(actions), rule.IsActive, rule.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (r *RuleRepo) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE reminder_rules SET is_active = ? WHERE tenant_id = ? AND id = ?"),
		active, tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTenantIDs returns every tenant that has at least one active rule.
func (r *RuleRepo) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT DISTINCT tenant_id FROM reminder_rules WHERE is_active = ? ORDER BY tenant_id"),
		true,
	)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
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

// scanRules decodes rule rows. A row whose JSON columns or timestamp cannot
// be decoded is returned with LoadError set instead of failing the listing.
func scanRules(rows *sql.Rows) ([]domain.ReminderRule, error) {
	var rules []domain.ReminderRule
	for rows.Next() {
		var rule domain.ReminderRule
		var conds, actions, createdAt string

		err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &rule.Description, &rule.Priority,
			&conds, &actions, &rule.IsActive, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}

		if err := decodeRule(&rule, conds, actions, createdAt); err != nil {
			rule.TriggerConditions = domain.TriggerConditions{}
			rule.LoadError = err.Error()
		}

		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func decodeRule(rule *domain.ReminderRule, conds, actions, createdAt string) error {
	if err := json.Unmarshal([]byte(conds), &rule.TriggerConditions); err != nil {
		return fmt.Errorf("trigger conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(actions), &rule.Actions); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	rule.CreatedAt = t
	return nil
}
