package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type FeeStatus string

const (
	FeeStatusDraft       FeeStatus = "draft"
	FeeStatusPending     FeeStatus = "pending"
	FeeStatusSent        FeeStatus = "sent"
	FeeStatusPartialPaid FeeStatus = "partial_paid"
	FeeStatusPaid        FeeStatus = "paid"
	FeeStatusOverdue     FeeStatus = "overdue"
	FeeStatusCancelled   FeeStatus = "cancelled"
)

// FeeStatuses lists every known fee status.
var FeeStatuses = []FeeStatus{
	FeeStatusDraft, FeeStatusPending, FeeStatusSent, FeeStatusPartialPaid,
	FeeStatusPaid, FeeStatusOverdue, FeeStatusCancelled,
}

func (s FeeStatus) Valid() bool {
	return slices.Contains(FeeStatuses, s)
}

type PaymentMethod string

const (
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCCSingle       PaymentMethod = "cc_single"
	PaymentMethodCCInstallments PaymentMethod = "cc_installments"
	PaymentMethodChecks         PaymentMethod = "checks"
)

// PaymentMethods lists every known payment method.
var PaymentMethods = []PaymentMethod{
	PaymentMethodBankTransfer, PaymentMethodCCSingle,
	PaymentMethodCCInstallments, PaymentMethodChecks,
}

func (m PaymentMethod) Valid() bool {
	return slices.Contains(PaymentMethods, m)
}

// FeeRecord is a client's fee calculation for one year. Payment workflows own
// it; this service only reads it and bumps the reminder counters.
type FeeRecord struct {
	ID                      string              `json:"id"`
	TenantID                string              `json:"tenant_id"`
	ClientID                string              `json:"client_id"`
	Year                    int                 `json:"year"`
	Status                  FeeStatus           `json:"status"`
	BaseAmount              decimal.Decimal     `json:"base_amount"`
	DiscountPercentage      decimal.NullDecimal `json:"discount_percentage"`
	DiscountAmount          decimal.NullDecimal `json:"discount_amount"`
	PreviousYearDiscount    decimal.NullDecimal `json:"previous_year_discount"`
	TotalAmount             decimal.Decimal     `json:"total_amount"`
	PaymentMethodSelected   *PaymentMethod      `json:"payment_method_selected,omitempty"`
	PaymentMethodSelectedAt *time.Time          `json:"payment_method_selected_at,omitempty"`
	CreatedAt               *time.Time          `json:"created_at,omitempty"`
	ReminderCount           int                 `json:"reminder_count"`
	LastReminderSentAt      *time.Time          `json:"last_reminder_sent_at,omitempty"`
}

// GroupFeeAggregate is recomputed on every request and never stored.
type GroupFeeAggregate struct {
	GroupID        string          `json:"group_id"`
	Year           int             `json:"year"`
	ClientCount    int             `json:"client_count"`
	FeeCount       int             `json:"fee_count"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalWithVAT   decimal.Decimal `json:"total_with_vat"`
}
