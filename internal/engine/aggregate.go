package engine

import (
	"sort"
	"time"

	"nexustax/internal/model"

	"github.com/shopspring/decimal"
)

// MonthBucket carries one jurisdiction-month's aggregated sales totals.
type MonthBucket struct {
	Year  int
	Month time.Month

	Gross       decimal.Decimal
	Exempt      decimal.Decimal
	Taxable     decimal.Decimal // gross - exempt
	Direct      decimal.Decimal // gross sold through the seller's own channels
	Marketplace decimal.Decimal // gross sold through marketplace facilitators

	// DirectTaxable is direct gross minus direct exempt — the portion that
	// can ever enter a liability base.
	DirectTaxable decimal.Decimal

	TxnCount       int
	DirectTxnCount int

	// Transactions in chronological order, retained so the threshold
	// evaluator can pinpoint the exact crossing transaction.
	Transactions []model.SalesTransaction
}

// Start returns the first day of the bucket's month.
func (b *MonthBucket) Start() time.Time {
	return time.Date(b.Year, b.Month, 1, 0, 0, 0, 0, time.UTC)
}

// AggregateMonths groups one jurisdiction's transactions into
// chronologically ordered month buckets with decimal-safe sums. Rows
// missing a date or jurisdiction code are excluded; row-level data quality
// is the importer's concern, not the engine's.
func AggregateMonths(txs []model.SalesTransaction) []MonthBucket {
	usable := make([]model.SalesTransaction, 0, len(txs))
	for _, t := range txs {
		if t.TransactionDate.IsZero() || t.Jurisdiction == "" {
			continue
		}
		usable = append(usable, t)
	}

	// Stable sort keeps insertion order for same-day rows; the calendar
	// scan's "first crossing transaction" depends on it.
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].TransactionDate.Before(usable[j].TransactionDate)
	})

	var buckets []MonthBucket
	positions := make(map[int]int) // month index -> position in buckets
	for _, t := range usable {
		idx := t.TransactionDate.Year()*12 + int(t.TransactionDate.Month()) - 1
		pos, ok := positions[idx]
		if !ok {
			pos = len(buckets)
			positions[idx] = pos
			buckets = append(buckets, MonthBucket{
				Year:  t.TransactionDate.Year(),
				Month: t.TransactionDate.Month(),
			})
		}

		b := &buckets[pos]
		b.Gross = b.Gross.Add(t.GrossAmount)
		b.Exempt = b.Exempt.Add(t.ExemptAmount)
		b.Taxable = b.Taxable.Add(t.TaxableAmount())
		b.TxnCount++
		if t.Channel == model.ChannelMarketplace {
			b.Marketplace = b.Marketplace.Add(t.GrossAmount)
		} else {
			b.Direct = b.Direct.Add(t.GrossAmount)
			b.DirectTaxable = b.DirectTaxable.Add(t.TaxableAmount())
			b.DirectTxnCount++
		}
		b.Transactions = append(b.Transactions, t)
	}

	// Buckets appear in first-occurrence order of a sorted input, so they
	// are already chronological.
	return buckets
}
