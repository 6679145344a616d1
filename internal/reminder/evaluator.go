package reminder

import (
	"slices"
	"time"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/repository"
)

const day = 24 * time.Hour

// DaysSince returns the whole days elapsed between from and now, rounded
// down. A from in the future yields a negative count.
func DaysSince(from, now time.Time) int {
	d := now.Sub(from)
	days := d / day
	if d < 0 && d%day != 0 {
		days--
	}
	return int(days)
}

// FeeFilterFor translates the store-side conditions of a rule into a fee
// query for the tenant. Day counts are applied afterwards in memory.
func FeeFilterFor(tenantID string, cond domain.TriggerConditions) repository.FeeFilter {
	f := repository.FeeFilter{
		TenantID: tenantID,
		Statuses: cond.PaymentStatus,
	}
	if pm := cond.PaymentMethodSelected; pm != nil {
		f.MethodUnset = pm.Unset
		if !pm.Unset {
			f.Methods = pm.Methods
		}
	}
	return f
}

// Matches reports whether fee satisfies every locally evaluated condition.
// The opened condition is not evaluated.
func Matches(fee domain.FeeRecord, cond domain.TriggerConditions, now time.Time) bool {
	if len(cond.PaymentStatus) > 0 && !slices.Contains(cond.PaymentStatus, fee.Status) {
		return false
	}

	if pm := cond.PaymentMethodSelected; pm != nil {
		if pm.Unset {
			if fee.PaymentMethodSelected != nil {
				return false
			}
		} else if len(pm.Methods) > 0 {
			if fee.PaymentMethodSelected == nil || !slices.Contains(pm.Methods, *fee.PaymentMethodSelected) {
				return false
			}
		}
	}

	return MatchesDayConditions(fee, cond, now)
}

// MatchesDayConditions applies the days_since_sent and days_since_selection
// thresholds. Both are inclusive; a missing anchor timestamp never matches.
func MatchesDayConditions(fee domain.FeeRecord, cond domain.TriggerConditions, now time.Time) bool {
	if cond.DaysSinceSent != nil {
		if fee.CreatedAt == nil || DaysSince(*fee.CreatedAt, now) < *cond.DaysSinceSent {
			return false
		}
	}
	if cond.DaysSinceSelection != nil {
		if fee.PaymentMethodSelectedAt == nil || DaysSince(*fee.PaymentMethodSelectedAt, now) < *cond.DaysSinceSelection {
			return false
		}
	}
	return true
}

// Evaluate returns one action per fee in fees that satisfies rule. Inactive
// rules and rules that failed to load match nothing.
func Evaluate(rule domain.ReminderRule, fees []domain.FeeRecord, now time.Time) []domain.ReminderAction {
	if !rule.IsActive || rule.LoadError != "" {
		return nil
	}

	var out []domain.ReminderAction
	for _, fee := range fees {
		if !Matches(fee, rule.TriggerConditions, now) {
			continue
		}
		out = append(out, domain.ReminderAction{
			FeeID:              fee.ID,
			ClientID:           fee.ClientID,
			RuleID:             rule.ID,
			RuleName:           rule.Name,
			Template:           rule.Actions.EmailTemplate,
			LastReminderSentAt: fee.LastReminderSentAt,
		})
	}
	return out
}
