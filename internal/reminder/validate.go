package reminder

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ticovision/reminders/internal/domain"
)

// ErrInvalidRule wraps every rule validation failure.
var ErrInvalidRule = errors.New("invalid reminder rule")

var validate = validator.New()

// ValidateRule checks a rule before it is stored. Configurations that are
// legal but probably unintended come back as warnings.
func ValidateRule(rule domain.ReminderRule) ([]string, error) {
	if err := validate.Struct(rule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	cond := rule.TriggerConditions
	for _, s := range cond.PaymentStatus {
		if !s.Valid() {
			return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidRule, s)
		}
	}
	if pm := cond.PaymentMethodSelected; pm != nil && !pm.Unset {
		if len(pm.Methods) == 0 {
			return nil, fmt.Errorf("%w: payment_method_selected needs at least one method", ErrInvalidRule)
		}
		for _, m := range pm.Methods {
			if !m.Valid() {
				return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidRule, m)
			}
		}
	}
	if cond.DaysSinceSent != nil && *cond.DaysSinceSent < 0 {
		return nil, fmt.Errorf("%w: days_since_sent must not be negative", ErrInvalidRule)
	}
	if cond.DaysSinceSelection != nil && *cond.DaysSinceSelection < 0 {
		return nil, fmt.Errorf("%w: days_since_selection must not be negative", ErrInvalidRule)
	}

	var warnings []string
	if cond.IsEmpty() {
		warnings = append(warnings, "rule has no trigger conditions and matches every fee of the tenant")
	}
	if cond.Opened != nil {
		warnings = append(warnings, "opened condition is stored but not evaluated")
	}
	if pm := cond.PaymentMethodSelected; pm != nil && pm.Unset && cond.DaysSinceSelection != nil {
		warnings = append(warnings, "days_since_selection can never match fees without a payment method")
	}
	return warnings, nil
}
