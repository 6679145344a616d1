package groupfee

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/tenant"
)

type ClientStore interface {
	ListIDsByGroup(ctx context.Context, tenantID, groupID string) ([]string, error)
}

type FeeStore interface {
	ListByClientsAndYear(ctx context.Context, tenantID string, clientIDs []string, year int) ([]domain.FeeRecord, error)
}

// Service computes group fee summaries from the current store state.
type Service struct {
	clients ClientStore
	fees    FeeStore
	log     logrus.FieldLogger
}

func NewService(clients ClientStore, fees FeeStore, log logrus.FieldLogger) *Service {
	return &Service{
		clients: clients,
		fees:    fees,
		log:     log.WithField("component", "groupfee"),
	}
}

// GetAggregatedGroupData sums the year's fee calculations of every client in
// the group. A group without clients or fees yields a zero aggregate.
func (s *Service) GetAggregatedGroupData(ctx context.Context, groupID string, year int) (*domain.GroupFeeAggregate, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	clientIDs, err := s.clients.ListIDsByGroup(ctx, tenantID, groupID)
	if err != nil {
		return nil, fmt.Errorf("list clients of group %s: %w", groupID, err)
	}

	fees, err := s.fees.ListByClientsAndYear(ctx, tenantID, clientIDs, year)
	if err != nil {
		return nil, fmt.Errorf("list fees of group %s for %d: %w", groupID, year, err)
	}

	agg := Aggregate(fees)
	agg.GroupID = groupID
	agg.Year = year
	agg.ClientCount = len(clientIDs)

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"group_id":  groupID,
		"year":      year,
		"clients":   agg.ClientCount,
		"fees":      agg.FeeCount,
	}).Debug("group fees aggregated")

	return &agg, nil
}
