package engine

import (
	"testing"
	"time"

	"nexustax/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- shared test helpers ---

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(n int) *int { return &n }

func sale(date string, gross string, channel string) model.SalesTransaction {
	return model.SalesTransaction{
		Jurisdiction:    "TX",
		TransactionDate: day(date),
		GrossAmount:     dec(gross),
		ExemptAmount:    decimal.Zero,
		Channel:         channel,
	}
}

func exemptSale(date string, gross, exempt string) model.SalesTransaction {
	t := sale(date, gross, model.ChannelDirect)
	t.ExemptAmount = dec(exempt)
	return t
}

// --- tests ---

func TestAggregateMonthsSums(t *testing.T) {
	txs := []model.SalesTransaction{
		sale("2022-01-15", "100.00", model.ChannelDirect),
		sale("2022-01-20", "50.00", model.ChannelMarketplace),
		exemptSale("2022-01-31", "200.00", "40.00"),
		sale("2022-03-01", "75.00", model.ChannelDirect),
	}

	buckets := AggregateMonths(txs)
	require.Len(t, buckets, 2)

	jan := buckets[0]
	assert.Equal(t, 2022, jan.Year)
	assert.Equal(t, time.January, jan.Month)
	assert.True(t, jan.Gross.Equal(dec("350.00")), "gross: %s", jan.Gross)
	assert.True(t, jan.Exempt.Equal(dec("40.00")))
	assert.True(t, jan.Taxable.Equal(dec("310.00")))
	assert.True(t, jan.Direct.Equal(dec("300.00")))
	assert.True(t, jan.Marketplace.Equal(dec("50.00")))
	assert.True(t, jan.DirectTaxable.Equal(dec("260.00")))
	assert.Equal(t, 3, jan.TxnCount)
	assert.Equal(t, 2, jan.DirectTxnCount)

	mar := buckets[1]
	assert.Equal(t, time.March, mar.Month)
	assert.True(t, mar.Gross.Equal(dec("75.00")))
}

func TestAggregateMonthsTaxableEqualsGrossMinusExempt(t *testing.T) {
	txs := []model.SalesTransaction{
		exemptSale("2021-06-01", "1000.00", "100.00"),
		exemptSale("2021-06-15", "500.50", "0.50"),
		exemptSale("2021-07-02", "99.99", "99.99"),
	}

	for _, b := range AggregateMonths(txs) {
		assert.True(t, b.Taxable.Equal(b.Gross.Sub(b.Exempt)),
			"month %d-%d: taxable %s != gross %s - exempt %s", b.Year, b.Month, b.Taxable, b.Gross, b.Exempt)
	}
}

func TestAggregateMonthsSkipsMalformedRows(t *testing.T) {
	noDate := sale("2022-01-01", "100.00", model.ChannelDirect)
	noDate.TransactionDate = time.Time{}
	noJurisdiction := sale("2022-01-01", "100.00", model.ChannelDirect)
	noJurisdiction.Jurisdiction = ""

	buckets := AggregateMonths([]model.SalesTransaction{
		noDate,
		noJurisdiction,
		sale("2022-01-10", "25.00", model.ChannelDirect),
	})

	require.Len(t, buckets, 1)
	assert.True(t, buckets[0].Gross.Equal(dec("25.00")))
	assert.Equal(t, 1, buckets[0].TxnCount)
}

func TestAggregateMonthsOrdersUnsortedInput(t *testing.T) {
	txs := []model.SalesTransaction{
		sale("2022-05-01", "1.00", model.ChannelDirect),
		sale("2021-12-31", "2.00", model.ChannelDirect),
		sale("2022-02-14", "3.00", model.ChannelDirect),
	}

	buckets := AggregateMonths(txs)
	require.Len(t, buckets, 3)
	assert.Equal(t, 2021, buckets[0].Year)
	assert.Equal(t, time.December, buckets[0].Month)
	assert.Equal(t, time.February, buckets[1].Month)
	assert.Equal(t, time.May, buckets[2].Month)
}

func TestAggregateMonthsNegativeExemptFloorsTaxable(t *testing.T) {
	// exempt greater than gross must not drive the taxable base negative
	buckets := AggregateMonths([]model.SalesTransaction{
		exemptSale("2022-01-05", "100.00", "150.00"),
	})

	require.Len(t, buckets, 1)
	assert.True(t, buckets[0].Taxable.IsZero())
	assert.True(t, buckets[0].DirectTaxable.IsZero())
}

func TestAggregateMonthsDecimalAccumulation(t *testing.T) {
	// thousands of cent-sized rows must sum without drift
	var txs []model.SalesTransaction
	for i := 0; i < 3000; i++ {
		txs = append(txs, sale("2022-01-01", "0.01", model.ChannelDirect))
	}

	buckets := AggregateMonths(txs)
	require.Len(t, buckets, 1)
	assert.True(t, buckets[0].Gross.Equal(dec("30.00")), "got %s", buckets[0].Gross)
}
