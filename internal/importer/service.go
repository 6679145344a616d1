package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/tenant"
)

const (
	KindClients = "clients"
	KindFees    = "fees"
)

// ErrInvalidCSV marks failures caused by the uploaded file rather than the
// store.
var ErrInvalidCSV = errors.New("invalid csv")

type ClientStore interface {
	BulkUpsert(ctx context.Context, clients []domain.Client) (int, error)
}

type FeeStore interface {
	BulkUpsert(ctx context.Context, fees []domain.FeeRecord) (int, error)
}

// ImportResult is returned from a successful import.
type ImportResult struct {
	Kind     string `json:"kind"`
	Parsed   int    `json:"parsed"`
	Upserted int    `json:"upserted"`
}

// Service loads CSV exports of clients and fee calculations into the store.
type Service struct {
	clients ClientStore
	fees    FeeStore
	log     logrus.FieldLogger
}

func NewService(clients ClientStore, fees FeeStore, log logrus.FieldLogger) *Service {
	return &Service{clients: clients, fees: fees, log: log.WithField("component", "importer")}
}

// Import parses data as the given kind and upserts every row for the
// context's tenant. A parse error aborts the whole file.
func (s *Service) Import(ctx context.Context, kind string, data []byte) (*ImportResult, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Kind: kind}
	switch kind {
	case KindClients:
		clients, err := ParseClientsCSV(data, tenantID)
		if err != nil {
			return nil, fmt.Errorf("%w: clients: %w", ErrInvalidCSV, err)
		}
		res.Parsed = len(clients)
		if res.Upserted, err = s.clients.BulkUpsert(ctx, clients); err != nil {
			return nil, fmt.Errorf("store clients: %w", err)
		}
	case KindFees:
		fees, err := ParseFeesCSV(data, tenantID)
		if err != nil {
			return nil, fmt.Errorf("%w: fees: %w", ErrInvalidCSV, err)
		}
		res.Parsed = len(fees)
		if res.Upserted, err = s.fees.BulkUpsert(ctx, fees); err != nil {
			return nil, fmt.Errorf("store fees: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported import kind: %s", kind)
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"kind":      kind,
		"parsed":    res.Parsed,
		"upserted":  res.Upserted,
	}).Info("import finished")

	return res, nil
}
