package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/money"
)

// ParseFeesCSV parses a fee calculation export. Optional columns may be
// left empty.
//
// Expected header:
//
//	id,client_id,year,status,base_amount,discount_percentage,discount_amount,
//	previous_year_discount,total_amount,payment_method_selected,
//	payment_method_selected_at,created_at
func ParseFeesCSV(data []byte, tenantID string) ([]domain.FeeRecord, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexColumns(header, "id", "client_id", "year", "status", "base_amount", "total_amount")
	if err != nil {
		return nil, err
	}

	var fees []domain.FeeRecord
	lineNum := 1
	for {
		lineNum++
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		fee, err := parseFeeRow(row, cols, tenantID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		fees = append(fees, fee)
	}

	return fees, nil
}

func parseFeeRow(row []string, cols map[string]int, tenantID string) (domain.FeeRecord, error) {
	fee := domain.FeeRecord{
		ID:       cell(row, cols, "id"),
		TenantID: tenantID,
		ClientID: cell(row, cols, "client_id"),
		Status:   domain.FeeStatus(cell(row, cols, "status")),
	}
	if fee.ID == "" || fee.ClientID == "" {
		return fee, errors.New("id and client_id are required")
	}
	if fee.Status == "" {
		return fee, errors.New("status is required")
	}
	if !fee.Status.Valid() {
		return fee, fmt.Errorf("unknown status %q", fee.Status)
	}

	year, err := strconv.Atoi(cell(row, cols, "year"))
	if err != nil {
		return fee, fmt.Errorf("year: %w", err)
	}
	fee.Year = year

	if fee.BaseAmount, err = money.ParseAmount(cell(row, cols, "base_amount")); err != nil {
		return fee, fmt.Errorf("base_amount: %w", err)
	}
	if fee.TotalAmount, err = money.ParseAmount(cell(row, cols, "total_amount")); err != nil {
		return fee, fmt.Errorf("total_amount: %w", err)
	}
	if fee.DiscountPercentage, err = money.ParseOptionalAmount(cell(row, cols, "discount_percentage")); err != nil {
		return fee, fmt.Errorf("discount_percentage: %w", err)
	}
	if fee.DiscountAmount, err = money.ParseOptionalAmount(cell(row, cols, "discount_amount")); err != nil {
		return fee, fmt.Errorf("discount_amount: %w", err)
	}
	if fee.PreviousYearDiscount, err = money.ParseOptionalAmount(cell(row, cols, "previous_year_discount")); err != nil {
		return fee, fmt.Errorf("previous_year_discount: %w", err)
	}

	if m := cell(row, cols, "payment_method_selected"); m != "" {
		pm := domain.PaymentMethod(m)
		if !pm.Valid() {
			return fee, fmt.Errorf("unknown payment_method_selected %q", m)
		}
		fee.PaymentMethodSelected = &pm
	}
	if fee.PaymentMethodSelectedAt, err = parseOptionalTime(cell(row, cols, "payment_method_selected_at")); err != nil {
		return fee, fmt.Errorf("payment_method_selected_at: %w", err)
	}
	if fee.CreatedAt, err = parseOptionalTime(cell(row, cols, "created_at")); err != nil {
		return fee, fmt.Errorf("created_at: %w", err)
	}

	return fee, nil
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}
