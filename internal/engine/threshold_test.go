package engine

import (
	"testing"
	"time"

	"nexustax/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarRule(revenue string) *model.JurisdictionRule {
	return &model.JurisdictionRule{
		Jurisdiction:       "TX",
		RevenueThreshold:   decPtr(revenue),
		ThresholdOperator:  model.OperatorOr,
		LookbackMethod:     model.LookbackCalendarYear,
		MarketplaceCounted: true,
	}
}

func rollingRule(revenue string) *model.JurisdictionRule {
	r := calendarRule(revenue)
	r.LookbackMethod = model.LookbackRolling12Month
	return r
}

func verdictFor(t *testing.T, verdicts []YearNexus, year int) YearNexus {
	t.Helper()
	for _, v := range verdicts {
		if v.Year == year {
			return v
		}
	}
	t.Fatalf("no verdict for year %d", year)
	return YearNexus{}
}

func TestCalendarYearCrossingAndStickyNexus(t *testing.T) {
	// $500,000 threshold; $200k Jan + $250k Mar + $100k Apr crosses on the
	// April transaction; years two and three stay has_nexus from Jan 1
	// regardless of sales level.
	txs := []model.SalesTransaction{
		sale("2021-01-10", "200000", model.ChannelDirect),
		sale("2021-03-05", "250000", model.ChannelDirect),
		sale("2021-04-20", "100000", model.ChannelDirect),
		sale("2022-06-01", "1000", model.ChannelDirect),
		sale("2023-02-01", "500", model.ChannelDirect),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), calendarRule("500000"))
	require.Len(t, verdicts, 3)

	y1 := verdictFor(t, verdicts, 2021)
	assert.Equal(t, model.NexusHasNexus, y1.Status)
	require.NotNil(t, y1.NexusDate)
	assert.Equal(t, day("2021-04-20"), *y1.NexusDate)
	require.NotNil(t, y1.ObligationStart)
	assert.Equal(t, day("2021-05-01"), *y1.ObligationStart)
	require.NotNil(t, y1.FirstNexusYear)
	assert.Equal(t, 2021, *y1.FirstNexusYear)

	for _, year := range []int{2022, 2023} {
		v := verdictFor(t, verdicts, year)
		assert.Equal(t, model.NexusHasNexus, v.Status)
		require.NotNil(t, v.ObligationStart)
		assert.Equal(t, time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), *v.ObligationStart)
		require.NotNil(t, v.FirstNexusYear)
		assert.Equal(t, 2021, *v.FirstNexusYear)
		assert.Nil(t, v.NexusDate)
	}
}

func TestCalendarYearRunningTotalsResetEachYear(t *testing.T) {
	// $260k in 2021 and $260k in 2022 never cross a $500k threshold because
	// totals reset at each January 1.
	txs := []model.SalesTransaction{
		sale("2021-08-01", "260000", model.ChannelDirect),
		sale("2022-03-01", "260000", model.ChannelDirect),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), calendarRule("500000"))
	for _, v := range verdicts {
		assert.NotEqual(t, model.NexusHasNexus, v.Status, "year %d", v.Year)
	}
}

func TestCalendarYearApproaching(t *testing.T) {
	txs := []model.SalesTransaction{
		sale("2021-05-01", "460000", model.ChannelDirect), // 92% of 500k
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), calendarRule("500000"))
	require.Len(t, verdicts, 1)
	assert.Equal(t, model.NexusApproaching, verdicts[0].Status)
}

func TestCalendarYearBelowThresholdIsNone(t *testing.T) {
	txs := []model.SalesTransaction{
		sale("2021-05-01", "100000", model.ChannelDirect),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), calendarRule("500000"))
	require.Len(t, verdicts, 1)
	assert.Equal(t, model.NexusNone, verdicts[0].Status)
	assert.Nil(t, verdicts[0].NexusDate)
	assert.Nil(t, verdicts[0].FirstNexusYear)
}

func TestMarketplaceCountedTowardThreshold(t *testing.T) {
	// Texas-like rule: marketplace counts, but $80k direct + $30k
	// marketplace is still below the $500k threshold.
	txs := []model.SalesTransaction{
		sale("2021-02-01", "80000", model.ChannelDirect),
		sale("2021-03-01", "30000", model.ChannelMarketplace),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), calendarRule("500000"))
	require.Len(t, verdicts, 1)
	assert.Equal(t, model.NexusNone, verdicts[0].Status)
}

func TestMarketplaceExcludedFromThreshold(t *testing.T) {
	// Pennsylvania-like rule: only the $80k direct counts against the
	// $100k threshold, so no nexus even though the combined total crosses.
	rule := calendarRule("100000")
	rule.MarketplaceCounted = false
	txs := []model.SalesTransaction{
		sale("2021-02-01", "80000", model.ChannelDirect),
		sale("2021-03-01", "30000", model.ChannelMarketplace),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), rule)
	require.Len(t, verdicts, 1)
	assert.NotEqual(t, model.NexusHasNexus, verdicts[0].Status)
}

func TestMarketplaceExcludedDirectStillCrosses(t *testing.T) {
	rule := calendarRule("100000")
	rule.MarketplaceCounted = false
	txs := []model.SalesTransaction{
		sale("2021-02-01", "80000", model.ChannelDirect),
		sale("2021-03-01", "500000", model.ChannelMarketplace), // ignored by the test
		sale("2021-04-10", "25000", model.ChannelDirect),       // pushes direct past 100k
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), rule)
	v := verdictFor(t, verdicts, 2021)
	assert.Equal(t, model.NexusHasNexus, v.Status)
	require.NotNil(t, v.NexusDate)
	assert.Equal(t, day("2021-04-10"), *v.NexusDate)
}

func TestTransactionCountThreshold(t *testing.T) {
	rule := &model.JurisdictionRule{
		Jurisdiction:         "TX",
		TransactionThreshold: intPtr(3),
		ThresholdOperator:    model.OperatorOr,
		LookbackMethod:       model.LookbackCalendarYear,
		MarketplaceCounted:   true,
	}
	txs := []model.SalesTransaction{
		sale("2021-01-01", "10", model.ChannelDirect),
		sale("2021-01-02", "10", model.ChannelDirect),
		sale("2021-01-03", "10", model.ChannelDirect),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), rule)
	v := verdictFor(t, verdicts, 2021)
	assert.Equal(t, model.NexusHasNexus, v.Status)
	require.NotNil(t, v.NexusDate)
	assert.Equal(t, day("2021-01-03"), *v.NexusDate)
}

func TestAndOperatorRequiresBothThresholds(t *testing.T) {
	rule := &model.JurisdictionRule{
		Jurisdiction:         "NY",
		RevenueThreshold:     decPtr("500000"),
		TransactionThreshold: intPtr(100),
		ThresholdOperator:    model.OperatorAnd,
		LookbackMethod:       model.LookbackCalendarYear,
		MarketplaceCounted:   true,
	}

	// One giant sale meets revenue but not the 100-transaction test.
	verdicts := EvaluateNexus(AggregateMonths([]model.SalesTransaction{
		sale("2021-01-01", "600000", model.ChannelDirect),
	}), rule)
	assert.NotEqual(t, model.NexusHasNexus, verdictFor(t, verdicts, 2021).Status)

	// 100 sales of $6,000 meet both.
	var txs []model.SalesTransaction
	for i := 0; i < 100; i++ {
		txs = append(txs, sale("2021-03-15", "6000", model.ChannelDirect))
	}
	verdicts = EvaluateNexus(AggregateMonths(txs), rule)
	assert.Equal(t, model.NexusHasNexus, verdictFor(t, verdicts, 2021).Status)
}

func TestRollingTwelveMonthTrigger(t *testing.T) {
	// $100k threshold; $20k + $25k + $30k + $35k over four consecutive
	// months sums to $110k in month four; obligation starts the first day
	// of month five.
	txs := []model.SalesTransaction{
		sale("2021-01-15", "20000", model.ChannelDirect),
		sale("2021-02-15", "25000", model.ChannelDirect),
		sale("2021-03-15", "30000", model.ChannelDirect),
		sale("2021-04-15", "35000", model.ChannelDirect),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), rollingRule("100000"))
	v := verdictFor(t, verdicts, 2021)
	assert.Equal(t, model.NexusHasNexus, v.Status)
	require.NotNil(t, v.NexusDate)
	assert.Equal(t, day("2021-04-15"), *v.NexusDate)
	require.NotNil(t, v.ObligationStart)
	assert.Equal(t, day("2021-05-01"), *v.ObligationStart)
}

func TestRollingWindowSpansYearBoundary(t *testing.T) {
	// November + December 2021 plus January 2022 sit in one window; the
	// calendar-year method would have reset at January 1.
	txs := []model.SalesTransaction{
		sale("2021-11-10", "40000", model.ChannelDirect),
		sale("2021-12-10", "40000", model.ChannelDirect),
		sale("2022-01-10", "40000", model.ChannelDirect),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), rollingRule("100000"))
	v := verdictFor(t, verdicts, 2022)
	assert.Equal(t, model.NexusHasNexus, v.Status)
	require.NotNil(t, v.NexusDate)
	assert.Equal(t, day("2022-01-10"), *v.NexusDate)
	require.NotNil(t, v.ObligationStart)
	assert.Equal(t, day("2022-02-01"), *v.ObligationStart)

	// 2021 on its own never reached the threshold.
	assert.NotEqual(t, model.NexusHasNexus, verdictFor(t, verdicts, 2021).Status)
}

func TestRollingWindowDropsOldMonths(t *testing.T) {
	// $60k in Jan 2021 has left the window by Feb 2022, so $50k in Feb
	// 2022 does not combine with it.
	txs := []model.SalesTransaction{
		sale("2021-01-10", "60000", model.ChannelDirect),
		sale("2022-02-10", "50000", model.ChannelDirect),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), rollingRule("100000"))
	for _, v := range verdicts {
		assert.NotEqual(t, model.NexusHasNexus, v.Status, "year %d", v.Year)
	}
}

func TestRollingStickyAcrossLaterYears(t *testing.T) {
	txs := []model.SalesTransaction{
		sale("2020-03-01", "120000", model.ChannelDirect),
		sale("2021-07-01", "10", model.ChannelDirect),
		sale("2022-07-01", "10", model.ChannelDirect),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), rollingRule("100000"))
	require.Len(t, verdicts, 3)

	trigger := verdictFor(t, verdicts, 2020)
	assert.Equal(t, model.NexusHasNexus, trigger.Status)
	require.NotNil(t, trigger.ObligationStart)
	assert.Equal(t, day("2020-04-01"), *trigger.ObligationStart)

	for _, year := range []int{2021, 2022} {
		v := verdictFor(t, verdicts, year)
		assert.Equal(t, model.NexusHasNexus, v.Status)
		require.NotNil(t, v.ObligationStart)
		assert.Equal(t, time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), *v.ObligationStart)
		require.NotNil(t, v.FirstNexusYear)
		assert.Equal(t, 2020, *v.FirstNexusYear)
	}
}

func TestStickyNexusPropagatesThroughEmptyYear(t *testing.T) {
	// Nexus in 2020, no sales at all in 2021, sales again in 2022: the gap
	// year still reports has_nexus from January 1.
	txs := []model.SalesTransaction{
		sale("2020-02-01", "600000", model.ChannelDirect),
		sale("2022-08-01", "100", model.ChannelDirect),
	}

	verdicts := EvaluateNexus(AggregateMonths(txs), calendarRule("500000"))
	require.Len(t, verdicts, 3)
	v := verdictFor(t, verdicts, 2021)
	assert.Equal(t, model.NexusHasNexus, v.Status)
	require.NotNil(t, v.ObligationStart)
	assert.Equal(t, day("2021-01-01"), *v.ObligationStart)
}

func TestEvaluateNexusDeterministic(t *testing.T) {
	txs := []model.SalesTransaction{
		sale("2021-01-10", "200000", model.ChannelDirect),
		sale("2021-03-05", "250000", model.ChannelDirect),
		sale("2021-04-20", "100000", model.ChannelDirect),
		sale("2022-06-01", "1000", model.ChannelMarketplace),
	}
	rule := calendarRule("500000")

	first := EvaluateNexus(AggregateMonths(txs), rule)
	second := EvaluateNexus(AggregateMonths(txs), rule)
	assert.Equal(t, first, second)
}

func TestContiguousTimelineFillsGaps(t *testing.T) {
	buckets := AggregateMonths([]model.SalesTransaction{
		sale("2021-01-01", "10", model.ChannelDirect),
		sale("2021-05-01", "10", model.ChannelDirect),
	})

	timeline := contiguousTimeline(buckets)
	require.Len(t, timeline, 5)
	assert.Equal(t, time.February, timeline[1].Month)
	assert.True(t, timeline[1].Gross.IsZero())
	assert.Equal(t, time.May, timeline[4].Month)
}
