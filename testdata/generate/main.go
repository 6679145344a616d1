package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/groupfee"
	"github.com/ticovision/reminders/internal/money"
)

const vatRate = 18

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	// Fees created between 2026-01-01 and 2026-03-31.
	startDate := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	dayRange := 90

	groups := []string{"G001", "G002", "G003", "G004", "G005"}

	var clients []domain.Client
	for i := 1; i <= 40; i++ {
		c := domain.Client{
			ID:           fmt.Sprintf("C%03d", i),
			CompanyName:  fmt.Sprintf("Client %03d Ltd", i),
			ContactEmail: fmt.Sprintf("billing+c%03d@example.com", i),
		}
		// About a third of the clients belong to no group.
		if rng.Intn(3) > 0 {
			c.GroupID = groups[rng.Intn(len(groups))]
		}
		// A few have no email on file.
		if rng.Intn(10) == 0 {
			c.ContactEmail = ""
		}
		clients = append(clients, c)
	}

	statuses := []domain.FeeStatus{
		domain.FeeStatusDraft, domain.FeeStatusPending, domain.FeeStatusSent,
		domain.FeeStatusSent, domain.FeeStatusPartialPaid, domain.FeeStatusPaid,
		domain.FeeStatusOverdue,
	}
	methods := []domain.PaymentMethod{
		domain.PaymentMethodBankTransfer, domain.PaymentMethodCCSingle,
		domain.PaymentMethodCCInstallments, domain.PaymentMethodChecks,
	}

	var fees []domain.FeeRecord
	for i, c := range clients {
		for _, year := range []int{2025, 2026} {
			base := decimal.NewFromInt(int64(1000 + rng.Intn(40)*250))
			createdAt := startDate.AddDate(0, 0, rng.Intn(dayRange)).Add(time.Duration(rng.Intn(8)) * time.Hour)
			fee := domain.FeeRecord{
				ID:         fmt.Sprintf("F-%d-%03d", year, i+1),
				ClientID:   c.ID,
				Year:       year,
				Status:     statuses[rng.Intn(len(statuses))],
				BaseAmount: base,
				CreatedAt:  &createdAt,
			}

			switch rng.Intn(4) {
			case 0:
				fee.DiscountPercentage = decimal.NewNullDecimal(decimal.NewFromInt(int64(5 * (1 + rng.Intn(3)))))
			case 1:
				fee.PreviousYearDiscount = decimal.NewNullDecimal(decimal.NewFromInt(5))
			case 2:
				fee.DiscountAmount = decimal.NewNullDecimal(decimal.NewFromInt(int64(50 * (1 + rng.Intn(4)))))
			}

			net := base.Sub(groupfee.EffectiveDiscountAmount(fee))
			fee.TotalAmount = net.Add(money.Percentage(net, decimal.NewFromInt(vatRate)))

			if rng.Intn(2) == 0 {
				m := methods[rng.Intn(len(methods))]
				selectedAt := createdAt.AddDate(0, 0, 1+rng.Intn(10))
				fee.PaymentMethodSelected = &m
				fee.PaymentMethodSelectedAt = &selectedAt
			}
			fees = append(fees, fee)
		}
	}

	writeClientsCSV(clients, filepath.Join(baseDir, "clients.csv"))
	writeFeesCSV(fees, filepath.Join(baseDir, "fees.csv"))
	writeJSONFile(filepath.Join(baseDir, "rules.json"), sampleRules())

	fmt.Printf("Generated %d clients and %d fee calculations in %s\n", len(clients), len(fees), baseDir)
}

func writeClientsCSV(clients []domain.Client, path string) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"id", "company_name", "group_id", "contact_email"})
	for _, c := range clients {
		w.Write([]string{c.ID, c.CompanyName, c.GroupID, c.ContactEmail})
	}
}

func writeFeesCSV(fees []domain.FeeRecord, path string) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{
		"id", "client_id", "year", "status", "base_amount", "total_amount",
		"discount_percentage", "discount_amount", "previous_year_discount",
		"payment_method_selected", "payment_method_selected_at", "created_at",
	})

	for _, fee := range fees {
		method, selectedAt := "", ""
		if fee.PaymentMethodSelected != nil {
			method = string(*fee.PaymentMethodSelected)
			selectedAt = fee.PaymentMethodSelectedAt.Format(time.RFC3339)
		}
		w.Write([]string{
			fee.ID,
			fee.ClientID,
			fmt.Sprint(fee.Year),
			string(fee.Status),
			fee.BaseAmount.StringFixed(2),
			fee.TotalAmount.StringFixed(2),
			nullString(fee.DiscountPercentage),
			nullString(fee.DiscountAmount),
			nullString(fee.PreviousYearDiscount),
			method,
			selectedAt,
			fee.CreatedAt.Format("2006-01-02"),
		})
	}
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func sampleRules() []domain.ReminderRule {
	days7, days14 := 7, 14
	return []domain.ReminderRule{
		{
			Name:     "Payment method not chosen after a week",
			Priority: 1,
			IsActive: true,
			TriggerConditions: domain.TriggerConditions{
				PaymentStatus:         []domain.FeeStatus{domain.FeeStatusSent},
				PaymentMethodSelected: &domain.PaymentMethodCondition{Unset: true},
				DaysSinceSent:         &days7,
			},
			Actions: domain.RuleActions{EmailTemplate: "payment_selection_reminder", Channel: domain.ChannelEmail},
		},
		{
			Name:     "Bank transfer still unpaid",
			Priority: 2,
			IsActive: true,
			TriggerConditions: domain.TriggerConditions{
				PaymentStatus:         []domain.FeeStatus{domain.FeeStatusSent, domain.FeeStatusPartialPaid},
				PaymentMethodSelected: &domain.PaymentMethodCondition{Methods: []domain.PaymentMethod{domain.PaymentMethodBankTransfer, domain.PaymentMethodChecks}},
				DaysSinceSelection:    &days14,
			},
			Actions: domain.RuleActions{EmailTemplate: "payment_reminder", Channel: domain.ChannelEmail},
		},
	}
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	for _, c := range []string{"testdata", "./testdata"} {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
