package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ticovision/reminders/internal/domain"
)

// ParseClientsCSV parses a client export.
//
// Expected header:
//
//	id,company_name,group_id,contact_email
func ParseClientsCSV(data []byte, tenantID string) ([]domain.Client, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexColumns(header, "id", "company_name", "group_id", "contact_email")
	if err != nil {
		return nil, err
	}

	var clients []domain.Client
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

		c := domain.Client{
			ID:           cell(row, cols, "id"),
			TenantID:     tenantID,
			CompanyName:  cell(row, cols, "company_name"),
			GroupID:      cell(row, cols, "group_id"),
			ContactEmail: cell(row, cols, "contact_email"),
		}
		if c.ID == "" {
			return nil, fmt.Errorf("line %d: id is empty", lineNum)
		}
		if c.CompanyName == "" {
			return nil, fmt.Errorf("line %d: company_name is empty", lineNum)
		}
		clients = append(clients, c)
	}

	return clients, nil
}

// indexColumns maps required column names to their position in header.
func indexColumns(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
