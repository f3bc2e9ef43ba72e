package engine

import (
	"testing"

	"nexustax/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func penaltyRule() *model.InterestPenaltyRule {
	return &model.InterestPenaltyRule{
		Jurisdiction:       "TX",
		AnnualInterestRate: dec("0.08"),
		InterestMethod:     model.InterestSimple,
		PenaltyRate:        dec("0.10"),
		PenaltyBasis:       model.PenaltyBasisTax,
	}
}

func TestBaseTaxExactRateApplication(t *testing.T) {
	// $100,000 taxable at a combined 8.25% must be exactly $8,250.00 — a
	// regression guard against rate-unit mistakes.
	obligation := day("2023-01-01")
	res := model.JurisdictionYearResult{
		TaxableSales:        dec("100000"),
		ObligationStartDate: &obligation,
	}
	rate := &model.TaxRate{
		StateRate:    dec("0.0625"),
		AvgLocalRate: dec("0.02"),
		CombinedRate: dec("0.0825"),
	}

	ComputeLiability(&res, rate, nil, day("2023-01-01"))
	assert.True(t, res.BaseTax.Equal(dec("8250.00")), "got %s", res.BaseTax)
	assert.True(t, res.EstimatedLiability.Equal(dec("8250.00")))
}

func TestSimpleInterest(t *testing.T) {
	// $10,000 at 8% simple for exactly one 365-day year is $800.00.
	got := AccrueInterest(dec("10000"), penaltyRule(), day("2022-01-01"), day("2023-01-01"))
	assert.True(t, got.Equal(dec("800.00")), "got %s", got)

	// Half that span accrues roughly half the interest.
	half := AccrueInterest(dec("10000"), penaltyRule(), day("2022-01-01"), day("2022-07-02"))
	assert.True(t, half.Equal(dec("398.90")), "got %s", half) // 182 days
}

func TestCompoundMonthlyInterestExceedsSimple(t *testing.T) {
	rule := penaltyRule()
	rule.InterestMethod = model.InterestCompoundMonthly

	compound := AccrueInterest(dec("10000"), rule, day("2020-01-01"), day("2023-01-01"))
	simple := AccrueInterest(dec("10000"), penaltyRule(), day("2020-01-01"), day("2023-01-01"))
	assert.True(t, compound.GreaterThan(simple), "compound %s <= simple %s", compound, simple)

	// 36 whole months at 8%/12: 10000 * (1 + 0.08/12)^36 - 10000
	assert.True(t, compound.Equal(dec("2702.37")), "got %s", compound)
}

func TestCompoundDailyInterest(t *testing.T) {
	rule := penaltyRule()
	rule.InterestMethod = model.InterestCompoundDaily

	// 365 days at 8%/365 daily: 10000 * (1 + 0.08/365)^365 - 10000
	got := AccrueInterest(dec("10000"), rule, day("2022-01-01"), day("2023-01-01"))
	assert.True(t, got.Equal(dec("832.78")), "got %s", got)
}

func TestCompoundAnnuallyWithStub(t *testing.T) {
	rule := penaltyRule()
	rule.InterestMethod = model.InterestCompoundAnnually

	// Two whole years compound; nothing left for a stub.
	got := AccrueInterest(dec("10000"), rule, day("2021-01-01"), day("2023-01-01"))
	assert.True(t, got.Equal(dec("1664.00")), "got %s", got)

	// Exactly one whole year equals simple interest for that year.
	oneYear := AccrueInterest(dec("10000"), rule, day("2022-01-01"), day("2023-01-01"))
	assert.True(t, oneYear.Equal(dec("800.00")), "got %s", oneYear)
}

func TestInterestZeroWhenNotYetDue(t *testing.T) {
	got := AccrueInterest(dec("10000"), penaltyRule(), day("2024-01-01"), day("2023-01-01"))
	assert.True(t, got.IsZero())
}

func TestPenaltyRateAndBounds(t *testing.T) {
	rule := penaltyRule()

	pen, approx := ComputePenalty(dec("8250.00"), dec("0"), rule)
	require.False(t, approx)
	assert.True(t, pen.Equal(dec("825.00")), "got %s", pen)

	// Minimum floors a small percentage result, but only when tax is due.
	rule.PenaltyMinimum = decPtr("50.00")
	pen, _ = ComputePenalty(dec("100.00"), dec("0"), rule)
	assert.True(t, pen.Equal(dec("50.00")), "got %s", pen)

	pen, _ = ComputePenalty(dec("0"), dec("0"), rule)
	assert.True(t, pen.IsZero(), "no tax due, no minimum: got %s", pen)

	// Maximum caps a large percentage result.
	rule.PenaltyMaximum = decPtr("500.00")
	pen, _ = ComputePenalty(dec("100000.00"), dec("0"), rule)
	assert.True(t, pen.Equal(dec("500.00")), "got %s", pen)
}

func TestPenaltyBasisIncludesInterest(t *testing.T) {
	rule := penaltyRule()
	rule.PenaltyBasis = model.PenaltyBasisTaxPlusInterest

	pen, _ := ComputePenalty(dec("1000.00"), dec("200.00"), rule)
	assert.True(t, pen.Equal(dec("120.00")), "got %s", pen)
}

func TestGreaterOfPenaltyFlagsApproximation(t *testing.T) {
	rule := penaltyRule()
	rule.PenaltyMinimum = decPtr("100.00")
	rule.GreaterOfMinimum = true

	pen, approx := ComputePenalty(dec("500.00"), dec("0"), rule)
	assert.True(t, approx)
	assert.True(t, pen.Equal(dec("100.00")), "floor wins over 10%% of $500: got %s", pen)
}

func TestComputeLiabilityFullStack(t *testing.T) {
	obligation := day("2022-01-01")
	res := model.JurisdictionYearResult{
		TaxableSales:        dec("100000"),
		ObligationStartDate: &obligation,
	}
	rate := &model.TaxRate{CombinedRate: dec("0.0825")}
	rule := penaltyRule()

	ComputeLiability(&res, rate, rule, day("2023-01-01"))

	assert.True(t, res.BaseTax.Equal(dec("8250.00")))
	assert.True(t, res.Interest.Equal(dec("660.00")), "8%% simple for 365 days: got %s", res.Interest)
	assert.True(t, res.Penalties.Equal(dec("825.00")))
	assert.True(t, res.EstimatedLiability.Equal(dec("9735.00")))
}

func TestComputeLiabilityNilConfig(t *testing.T) {
	obligation := day("2022-01-01")
	res := model.JurisdictionYearResult{
		TaxableSales:        dec("100000"),
		ObligationStartDate: &obligation,
	}

	ComputeLiability(&res, nil, nil, day("2023-01-01"))
	assert.True(t, res.BaseTax.IsZero())
	assert.True(t, res.EstimatedLiability.IsZero())
}
