package service

import (
	"testing"
	"time"

	"nexustax/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestRuleFromRequest_Valid(t *testing.T) {
	count := 200
	req := CreateRuleRequest{
		Jurisdiction:         "TX",
		RevenueThreshold:     "500000",
		TransactionThreshold: &count,
		ThresholdOperator:    model.OperatorOr,
		LookbackMethod:       model.LookbackRolling12Month,
		MarketplaceCounted:   boolPtr(true),
		EffectiveFrom:        "2019-10-01",
		EffectiveTo:          "2023-12-31",
		Notes:                "single local use tax rate election available",
	}

	rule, err := ruleFromRequest(req)
	require.NoError(t, err)

	assert.Equal(t, "TX", rule.Jurisdiction)
	require.NotNil(t, rule.RevenueThreshold)
	assert.True(t, rule.RevenueThreshold.Equal(decimal.NewFromInt(500000)))
	require.NotNil(t, rule.TransactionThreshold)
	assert.Equal(t, 200, *rule.TransactionThreshold)
	assert.True(t, rule.MarketplaceCounted)
	assert.Equal(t, time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC), rule.EffectiveFrom)
	require.NotNil(t, rule.EffectiveTo)
	assert.Equal(t, 2023, rule.EffectiveTo.Year())
}

func TestRuleFromRequest_RequiresAThreshold(t *testing.T) {
	req := CreateRuleRequest{
		Jurisdiction:      "TX",
		ThresholdOperator: model.OperatorOr,
		LookbackMethod:    model.LookbackCalendarYear,
		EffectiveFrom:     "2019-10-01",
	}

	_, err := ruleFromRequest(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one of")
}

func TestRuleFromRequest_BadDates(t *testing.T) {
	req := CreateRuleRequest{
		Jurisdiction:      "FL",
		RevenueThreshold:  "100000",
		ThresholdOperator: model.OperatorOr,
		LookbackMethod:    model.LookbackCalendarYear,
		EffectiveFrom:     "01/07/2021",
	}
	_, err := ruleFromRequest(req)
	require.Error(t, err)

	req.EffectiveFrom = "2021-07-01"
	req.EffectiveTo = "not-a-date"
	_, err = ruleFromRequest(req)
	require.Error(t, err)
}

func TestRuleFromRequest_MarketplaceDefaultsToCounted(t *testing.T) {
	req := CreateRuleRequest{
		Jurisdiction:      "CO",
		RevenueThreshold:  "100000",
		ThresholdOperator: model.OperatorOr,
		LookbackMethod:    model.LookbackCalendarYear,
		EffectiveFrom:     "2019-06-01",
	}

	rule, err := ruleFromRequest(req)
	require.NoError(t, err)
	assert.True(t, rule.MarketplaceCounted)
}

func TestToRuleResponse_RoundsAndFormats(t *testing.T) {
	threshold := decimal.RequireFromString("100000")
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	rule := model.JurisdictionRule{
		ID:                 uuid.New(),
		Jurisdiction:       "WA",
		RevenueThreshold:   &threshold,
		ThresholdOperator:  model.OperatorOr,
		LookbackMethod:     model.LookbackCalendarYear,
		MarketplaceCounted: true,
		EffectiveFrom:      time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC),
		EffectiveTo:        &to,
	}

	resp := toRuleResponse(rule)
	require.NotNil(t, resp.RevenueThreshold)
	assert.Equal(t, "100000.00", *resp.RevenueThreshold)
	assert.Equal(t, "2018-10-01", resp.EffectiveFrom)
	require.NotNil(t, resp.EffectiveTo)
	assert.Equal(t, "2024-06-30", *resp.EffectiveTo)
	assert.Nil(t, resp.TransactionThreshold)
}

func TestParseOptionalDecimal(t *testing.T) {
	val := "25.50"
	d, err := parseOptionalDecimal(&val, "penalty_minimum")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.True(t, d.Equal(decimal.RequireFromString("25.5")))

	empty := ""
	d, err = parseOptionalDecimal(&empty, "penalty_minimum")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseOptionalDecimal(nil, "penalty_minimum")
	require.NoError(t, err)
	assert.Nil(t, d)

	bad := "1.2.3"
	_, err = parseOptionalDecimal(&bad, "penalty_minimum")
	require.Error(t, err)
}
