// Package engine implements the nexus determination and liability
// calculation core: transaction aggregation, threshold evaluation under
// calendar-year and rolling-12-month lookbacks, sticky-nexus propagation,
// and interest/penalty/VDA accrual math. Everything in this package is a
// pure function of its inputs; rule lookups happen once per jurisdiction
// up front, and the chronological scan itself never touches I/O.
package engine

import (
	"context"
	"fmt"
	"time"

	"nexustax/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleSource supplies jurisdiction configuration. A nil result with a nil
// error means the jurisdiction has no entry — the engine degrades rather
// than fails (see EvaluateJurisdiction).
type RuleSource interface {
	ActiveRule(ctx context.Context, jurisdiction string, on time.Time) (*model.JurisdictionRule, error)
	TaxRate(ctx context.Context, jurisdiction string) (*model.TaxRate, error)
	InterestPenaltyRule(ctx context.Context, jurisdiction string) (*model.InterestPenaltyRule, error)
	VDAProgram(ctx context.Context, jurisdiction string) (*model.VDAProgram, error)
}

// Engine evaluates one jurisdiction at a time. Instances are stateless and
// safe for concurrent use across jurisdictions.
type Engine struct {
	rules RuleSource
}

func New(rules RuleSource) *Engine {
	return &Engine{rules: rules}
}

// EvaluateJurisdiction runs the full pipeline for one jurisdiction's
// transactions: aggregation, threshold evaluation, and liability accrual
// up to asOf. A jurisdiction without an active nexus rule is not an error:
// every year is reported as "none" with RuleMissing set, so missing
// configuration is never mistaken for a confident non-nexus finding.
func (e *Engine) EvaluateJurisdiction(ctx context.Context, studyID uuid.UUID, jurisdiction string, txs []model.SalesTransaction, asOf time.Time) ([]model.JurisdictionYearResult, error) {
	buckets := AggregateMonths(txs)
	if len(buckets) == 0 {
		return nil, nil
	}

	rule, err := e.rules.ActiveRule(ctx, jurisdiction, asOf)
	if err != nil {
		return nil, fmt.Errorf("lookup nexus rule for %s: %w", jurisdiction, err)
	}
	rate, err := e.rules.TaxRate(ctx, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("lookup tax rate for %s: %w", jurisdiction, err)
	}
	ipRule, err := e.rules.InterestPenaltyRule(ctx, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("lookup interest/penalty rule for %s: %w", jurisdiction, err)
	}

	years := yearsSpanned(buckets)

	if rule == nil {
		results := make([]model.JurisdictionYearResult, 0, len(years))
		for _, year := range years {
			r := newYearResult(studyID, jurisdiction, year, buckets)
			r.NexusStatus = model.NexusNone
			r.RuleMissing = true
			results = append(results, r)
		}
		return results, nil
	}

	verdicts := EvaluateNexus(buckets, rule)
	results := make([]model.JurisdictionYearResult, 0, len(verdicts))
	for _, v := range verdicts {
		r := newYearResult(studyID, jurisdiction, v.Year, buckets)
		r.NexusStatus = v.Status
		r.NexusDate = v.NexusDate
		r.ObligationStartDate = v.ObligationStart
		r.FirstNexusYear = v.FirstNexusYear

		if v.Status == model.NexusHasNexus && v.ObligationStart != nil {
			r.TaxableSales = postObligationTaxable(buckets, v.Year, *v.ObligationStart)
			ComputeLiability(&r, rate, ipRule, asOf)
			if rate == nil || ipRule == nil {
				r.RuleMissing = true
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// newYearResult builds a result seeded with the year's full sales summary.
// These figures are reported for every year regardless of nexus status.
func newYearResult(studyID uuid.UUID, jurisdiction string, year int, buckets []MonthBucket) model.JurisdictionYearResult {
	r := model.JurisdictionYearResult{
		StudyID:      studyID,
		Jurisdiction: jurisdiction,
		Year:         year,
	}
	for i := range buckets {
		if buckets[i].Year != year {
			continue
		}
		r.GrossSales = r.GrossSales.Add(buckets[i].Gross)
		r.ExemptSales = r.ExemptSales.Add(buckets[i].Exempt)
		r.MarketplaceSales = r.MarketplaceSales.Add(buckets[i].Marketplace)
		r.DirectSales = r.DirectSales.Add(buckets[i].Direct)
	}
	return r
}

// postObligationTaxable sums direct taxable sales for the months of a year
// on or after the obligation start date. Obligation dates are always the
// first of a month, so month granularity is exact. Marketplace sales never
// enter the base: facilitators remit tax on their own platform sales.
func postObligationTaxable(buckets []MonthBucket, year int, obligation time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := range buckets {
		if buckets[i].Year != year {
			continue
		}
		if buckets[i].Start().Before(obligation) {
			continue
		}
		total = total.Add(buckets[i].DirectTaxable)
	}
	return total
}
