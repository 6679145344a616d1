package groupfee

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/tenant"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func nd(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(v)) }

func assertDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %d, got %s", want, got)
}

func TestAggregateMixesExplicitAndDerivedDiscounts(t *testing.T) {
	fees := []domain.FeeRecord{
		{BaseAmount: dec(1000), DiscountPercentage: nd(10), DiscountAmount: nd(100), TotalAmount: dec(1062)},
		{BaseAmount: dec(2000), DiscountPercentage: nd(5), DiscountAmount: nd(0), TotalAmount: dec(2242)},
	}

	agg := Aggregate(fees)
	assertDecimal(t, 3000, agg.BaseAmount)
	assertDecimal(t, 200, agg.DiscountAmount)
	assertDecimal(t, 3304, agg.TotalWithVAT)
	assert.Equal(t, 2, agg.FeeCount)
}

func TestEffectiveDiscountFallsBackToPreviousYear(t *testing.T) {
	fee := domain.FeeRecord{
		BaseAmount:           dec(1000),
		DiscountPercentage:   nd(0),
		DiscountAmount:       nd(0),
		PreviousYearDiscount: nd(20),
	}
	assertDecimal(t, 20, EffectiveDiscountPercentage(fee))
	assertDecimal(t, 200, EffectiveDiscountAmount(fee))
}

func TestEffectiveDiscountPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		fee     domain.FeeRecord
		wantPct int64
		wantAmt int64
	}{
		{"nothing stored", domain.FeeRecord{BaseAmount: dec(1000)}, 0, 0},
		{"current rate wins over previous year",
			domain.FeeRecord{BaseAmount: dec(1000), DiscountPercentage: nd(10), PreviousYearDiscount: nd(20)}, 10, 100},
		{"absent current rate", domain.FeeRecord{BaseAmount: dec(500), PreviousYearDiscount: nd(10)}, 10, 50},
		{"stored amount wins over derived",
			domain.FeeRecord{BaseAmount: dec(1000), DiscountPercentage: nd(10), DiscountAmount: nd(99)}, 10, 99},
		{"stored amount without any rate", domain.FeeRecord{BaseAmount: dec(1000), DiscountAmount: nd(75)}, 0, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.wantPct, EffectiveDiscountPercentage(tt.fee))
			assertDecimal(t, tt.wantAmt, EffectiveDiscountAmount(tt.fee))
		})
	}
}

func TestAggregateDoesNotRound(t *testing.T) {
	fees := []domain.FeeRecord{
		{BaseAmount: decimal.RequireFromString("333.33"), DiscountPercentage: decimal.NewNullDecimal(decimal.RequireFromString("7.5"))},
	}
	agg := Aggregate(fees)
	assert.Equal(t, "24.999750", agg.DiscountAmount.StringFixed(6))
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	assert.True(t, agg.BaseAmount.IsZero())
	assert.True(t, agg.DiscountAmount.IsZero())
	assert.True(t, agg.TotalWithVAT.IsZero())
}

type stubClients struct {
	ids map[string][]string
	err error
}

func (s *stubClients) ListIDsByGroup(ctx context.Context, tenantID, groupID string) ([]string, error) {
	return s.ids[tenantID+"/"+groupID], s.err
}

type stubFees struct {
	fees  []domain.FeeRecord
	calls int
}

func (s *stubFees) ListByClientsAndYear(ctx context.Context, tenantID string, clientIDs []string, year int) ([]domain.FeeRecord, error) {
	s.calls++
	var out []domain.FeeRecord
	for _, f := range s.fees {
		if f.TenantID != tenantID || f.Year != year {
			continue
		}
		for _, id := range clientIDs {
			if f.ClientID == id {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func TestGetAggregatedGroupData(t *testing.T) {
	log, _ := test.NewNullLogger()
	clients := &stubClients{ids: map[string][]string{"t1/g1": {"c1", "c2", "c3"}}}
	fees := &stubFees{fees: []domain.FeeRecord{
		{TenantID: "t1", ClientID: "c1", Year: 2026, BaseAmount: dec(1000), DiscountPercentage: nd(10), DiscountAmount: nd(100), TotalAmount: dec(1062)},
		{TenantID: "t1", ClientID: "c2", Year: 2026, BaseAmount: dec(2000), DiscountPercentage: nd(5), DiscountAmount: nd(0), TotalAmount: dec(2242)},
		{TenantID: "t1", ClientID: "c2", Year: 2025, BaseAmount: dec(9999), TotalAmount: dec(9999)},
		{TenantID: "t2", ClientID: "c1", Year: 2026, BaseAmount: dec(9999), TotalAmount: dec(9999)},
	}}
	svc := NewService(clients, fees, log)
	ctx := tenant.WithTenant(context.Background(), "t1")

	first, err := svc.GetAggregatedGroupData(ctx, "g1", 2026)
	require.NoError(t, err)
	assert.Equal(t, "g1", first.GroupID)
	assert.Equal(t, 3, first.ClientCount)
	assert.Equal(t, 2, first.FeeCount)
	assertDecimal(t, 3000, first.BaseAmount)
	assertDecimal(t, 200, first.DiscountAmount)
	assertDecimal(t, 3304, first.TotalWithVAT)

	second, err := svc.GetAggregatedGroupData(ctx, "g1", 2026)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, fees.calls)
}

func TestGetAggregatedGroupDataErrors(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc := NewService(&stubClients{err: errors.New("down")}, &stubFees{}, log)

	_, err := svc.GetAggregatedGroupData(context.Background(), "g1", 2026)
	assert.ErrorIs(t, err, tenant.ErrMissingTenant)

	_, err = svc.GetAggregatedGroupData(tenant.WithTenant(context.Background(), "t1"), "g1", 2026)
	assert.Error(t, err)
}
