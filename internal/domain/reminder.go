package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaymentMethodNotSelected is the trigger value meaning "no payment method
// has been chosen yet".
const PaymentMethodNotSelected = "not_selected"

type ReminderType string

const (
	ReminderTypeManual    ReminderType = "manual"
	ReminderTypeAutomatic ReminderType = "automatic"
)

type Channel string

const (
	ChannelEmail Channel = "email"
)

// PaymentMethodCondition restricts a rule either to fees with no selected
// payment method (Unset) or to fees whose selected method is in Methods.
type PaymentMethodCondition struct {
	Unset   bool
	Methods []PaymentMethod
}

func (c *PaymentMethodCondition) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == PaymentMethodNotSelected {
			*c = PaymentMethodCondition{Unset: true}
			return nil
		}
		*c = PaymentMethodCondition{Methods: []PaymentMethod{PaymentMethod(single)}}
		return nil
	}

	var many []PaymentMethod
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("payment_method_selected: expected %q, a method or a list of methods", PaymentMethodNotSelected)
	}
	*c = PaymentMethodCondition{Methods: many}
	return nil
}

func (c PaymentMethodCondition) MarshalJSON() ([]byte, error) {
	if c.Unset {
		return json.Marshal(PaymentMethodNotSelected)
	}
	if c.Methods == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Methods)
}

// TriggerConditions is the predicate half of a reminder rule. Every field is
// optional; a nil/empty field places no restriction.
type TriggerConditions struct {
	PaymentStatus         []FeeStatus             `json:"payment_status,omitempty"`
	PaymentMethodSelected *PaymentMethodCondition `json:"payment_method_selected,omitempty"`
	DaysSinceSent         *int                    `json:"days_since_sent,omitempty"`
	DaysSinceSelection    *int                    `json:"days_since_selection,omitempty"`
	// Opened is stored but not evaluated here; letter-open tracking lives elsewhere.
	Opened *bool `json:"opened,omitempty"`
}

// IsEmpty reports whether the conditions match every fee.
func (c TriggerConditions) IsEmpty() bool {
	return len(c.PaymentStatus) == 0 &&
		c.PaymentMethodSelected == nil &&
		c.DaysSinceSent == nil &&
		c.DaysSinceSelection == nil &&
		c.Opened == nil
}

type RuleActions struct {
	EmailTemplate string  `json:"email_template" validate:"required"`
	Channel       Channel `json:"channel,omitempty" validate:"omitempty,oneof=email"`
}

type ReminderRule struct {
	ID                string            `json:"id"`
	TenantID          string            `json:"tenant_id"`
	Name              string            `json:"name" validate:"required,max=200"`
	Description       string            `json:"description,omitempty"`
	Priority          int               `json:"priority" validate:"gte=0"`
	TriggerConditions TriggerConditions `json:"trigger_conditions"`
	Actions           RuleActions       `json:"actions"`
	IsActive          bool              `json:"is_active"`
	CreatedAt         time.Time         `json:"created_at"`
	// LoadError is set when a stored rule could not be decoded. Such a rule
	// is listed but never evaluated.
	LoadError string `json:"load_error,omitempty"`
}

// PaymentReminder is an append-only history entry, one per dispatch.
type PaymentReminder struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenant_id"`
	ClientID     string       `json:"client_id"`
	FeeID        string       `json:"fee_id"`
	RuleID       string       `json:"rule_id,omitempty"`
	ReminderType ReminderType `json:"reminder_type"`
	Channel      Channel      `json:"channel"`
	TemplateUsed string       `json:"template_used"`
	SentAt       time.Time    `json:"sent_at"`
}

// ReminderAction is one (fee, rule) pair that currently needs a reminder.
type ReminderAction struct {
	FeeID    string `json:"fee_id"`
	ClientID string `json:"client_id"`
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Template string `json:"template"`

	LastReminderSentAt *time.Time `json:"last_reminder_sent_at,omitempty"`
}
