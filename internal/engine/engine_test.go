package engine

import (
	"context"
	"testing"
	"time"

	"nexustax/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRuleSource serves fixed configuration; nil fields mean "no entry".
type stubRuleSource struct {
	rule   *model.JurisdictionRule
	rate   *model.TaxRate
	ipRule *model.InterestPenaltyRule
	vda    *model.VDAProgram
}

func (s *stubRuleSource) ActiveRule(_ context.Context, _ string, _ time.Time) (*model.JurisdictionRule, error) {
	return s.rule, nil
}

func (s *stubRuleSource) TaxRate(_ context.Context, _ string) (*model.TaxRate, error) {
	return s.rate, nil
}

func (s *stubRuleSource) InterestPenaltyRule(_ context.Context, _ string) (*model.InterestPenaltyRule, error) {
	return s.ipRule, nil
}

func (s *stubRuleSource) VDAProgram(_ context.Context, _ string) (*model.VDAProgram, error) {
	return s.vda, nil
}

func TestEvaluateJurisdictionMissingRule(t *testing.T) {
	eng := New(&stubRuleSource{})
	txs := []model.SalesTransaction{
		sale("2021-03-01", "900000", model.ChannelDirect),
	}

	results, err := eng.EvaluateJurisdiction(context.Background(), uuid.New(), "TX", txs, day("2023-01-01"))
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Even sales far past any plausible threshold report "none" when no
	// rule is configured — but flagged, never silently.
	assert.Equal(t, model.NexusNone, results[0].NexusStatus)
	assert.True(t, results[0].RuleMissing)
	assert.True(t, results[0].GrossSales.Equal(dec("900000")))
	assert.True(t, results[0].EstimatedLiability.IsZero())
}

func TestEvaluateJurisdictionFullPipeline(t *testing.T) {
	src := &stubRuleSource{
		rule: calendarRule("500000"),
		rate: &model.TaxRate{Jurisdiction: "TX", CombinedRate: dec("0.0825")},
		ipRule: &model.InterestPenaltyRule{
			Jurisdiction:       "TX",
			AnnualInterestRate: dec("0.08"),
			InterestMethod:     model.InterestSimple,
			PenaltyRate:        dec("0.10"),
			PenaltyBasis:       model.PenaltyBasisTax,
		},
	}
	eng := New(src)
	studyID := uuid.New()

	txs := []model.SalesTransaction{
		sale("2021-01-10", "200000", model.ChannelDirect),
		sale("2021-03-05", "250000", model.ChannelDirect),
		sale("2021-04-20", "100000", model.ChannelDirect),
		sale("2021-06-15", "80000", model.ChannelDirect),
		sale("2021-07-10", "20000", model.ChannelMarketplace),
		sale("2022-02-01", "50000", model.ChannelDirect),
	}

	results, err := eng.EvaluateJurisdiction(context.Background(), studyID, "TX", txs, day("2023-01-01"))
	require.NoError(t, err)
	require.Len(t, results, 2)

	y2021 := results[0]
	assert.Equal(t, studyID, y2021.StudyID)
	assert.Equal(t, model.NexusHasNexus, y2021.NexusStatus)
	require.NotNil(t, y2021.ObligationStartDate)
	assert.Equal(t, day("2021-05-01"), *y2021.ObligationStartDate)

	// Only the June direct sale falls after the May 1 obligation start; the
	// July marketplace sale is reported but never taxed.
	assert.True(t, y2021.TaxableSales.Equal(dec("80000")), "got %s", y2021.TaxableSales)
	assert.True(t, y2021.BaseTax.Equal(dec("6600.00")), "got %s", y2021.BaseTax)
	assert.True(t, y2021.MarketplaceSales.Equal(dec("20000")))
	assert.True(t, y2021.GrossSales.Equal(dec("650000")))
	assert.True(t, y2021.EstimatedLiability.GreaterThan(y2021.BaseTax))

	y2022 := results[1]
	assert.Equal(t, model.NexusHasNexus, y2022.NexusStatus)
	require.NotNil(t, y2022.ObligationStartDate)
	assert.Equal(t, day("2022-01-01"), *y2022.ObligationStartDate)
	assert.True(t, y2022.TaxableSales.Equal(dec("50000")))
	assert.True(t, y2022.BaseTax.Equal(dec("4125.00")))
}

func TestEvaluateJurisdictionMarketplaceNeverTaxed(t *testing.T) {
	// Marketplace sales count toward the threshold here, but the base tax
	// still comes from direct sales only.
	src := &stubRuleSource{
		rule: calendarRule("100000"),
		rate: &model.TaxRate{Jurisdiction: "TX", CombinedRate: dec("0.08")},
	}
	eng := New(src)

	txs := []model.SalesTransaction{
		sale("2021-01-05", "90000", model.ChannelMarketplace),
		sale("2021-01-20", "20000", model.ChannelDirect),
		sale("2021-03-01", "10000", model.ChannelDirect),
		sale("2021-03-10", "30000", model.ChannelMarketplace),
	}

	results, err := eng.EvaluateJurisdiction(context.Background(), uuid.New(), "TX", txs, day("2023-01-01"))
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, model.NexusHasNexus, r.NexusStatus)
	require.NotNil(t, r.NexusDate)
	assert.Equal(t, day("2021-01-20"), *r.NexusDate) // 90k + 20k crosses 100k
	require.NotNil(t, r.ObligationStartDate)
	assert.Equal(t, day("2021-02-01"), *r.ObligationStartDate)

	// Post-obligation direct taxable is the March direct sale only.
	assert.True(t, r.TaxableSales.Equal(dec("10000")), "got %s", r.TaxableSales)
	assert.True(t, r.BaseTax.Equal(dec("800.00")), "got %s", r.BaseTax)

	// Interest/penalty config is absent, so the result is flagged.
	assert.True(t, r.RuleMissing)
}

func TestEvaluateJurisdictionIdempotent(t *testing.T) {
	src := &stubRuleSource{
		rule: rollingRule("100000"),
		rate: &model.TaxRate{Jurisdiction: "TX", CombinedRate: dec("0.0825")},
		ipRule: &model.InterestPenaltyRule{
			Jurisdiction:       "TX",
			AnnualInterestRate: dec("0.05"),
			InterestMethod:     model.InterestCompoundMonthly,
			PenaltyRate:        dec("0.05"),
			PenaltyBasis:       model.PenaltyBasisTax,
		},
	}
	eng := New(src)
	studyID := uuid.New()
	txs := []model.SalesTransaction{
		sale("2021-01-15", "20000", model.ChannelDirect),
		sale("2021-02-15", "25000", model.ChannelDirect),
		sale("2021-03-15", "30000", model.ChannelDirect),
		sale("2021-04-15", "35000", model.ChannelDirect),
		sale("2022-01-15", "5000", model.ChannelDirect),
	}

	first, err := eng.EvaluateJurisdiction(context.Background(), studyID, "TX", txs, day("2023-01-01"))
	require.NoError(t, err)
	second, err := eng.EvaluateJurisdiction(context.Background(), studyID, "TX", txs, day("2023-01-01"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluateJurisdictionEmptyInput(t *testing.T) {
	eng := New(&stubRuleSource{rule: calendarRule("500000")})
	results, err := eng.EvaluateJurisdiction(context.Background(), uuid.New(), "TX", nil, day("2023-01-01"))
	require.NoError(t, err)
	assert.Nil(t, results)
}
