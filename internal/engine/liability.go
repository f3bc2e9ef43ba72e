package engine

import (
	"time"

	"nexustax/internal/model"

	"github.com/shopspring/decimal"
)

var (
	daysPerYear   = decimal.NewFromInt(365)
	monthsPerYear = decimal.NewFromInt(12)
)

// ComputeLiability fills a year result's money columns in place: base tax
// from the post-obligation taxable base, then interest and penalties per
// the jurisdiction's accrual rule. Interest runs from the obligation start
// date to asOf.
func ComputeLiability(res *model.JurisdictionYearResult, rate *model.TaxRate, ipRule *model.InterestPenaltyRule, asOf time.Time) {
	if rate != nil && res.ObligationStartDate != nil {
		res.BaseTax = res.TaxableSales.Mul(rate.CombinedRate).Round(2)
	}

	if ipRule != nil && res.BaseTax.IsPositive() && res.ObligationStartDate != nil {
		res.Interest = AccrueInterest(res.BaseTax, ipRule, *res.ObligationStartDate, asOf)
		res.Penalties, res.PenaltyApproximated = ComputePenalty(res.BaseTax, res.Interest, ipRule)
	}

	res.EstimatedLiability = res.BaseTax.Add(res.Interest).Add(res.Penalties)
}

// AccrueInterest computes interest on a principal between two dates using
// the rule's accrual method. Compound methods compound whole elapsed
// periods and accrue the stub remainder as simple interest on the
// compounded balance.
func AccrueInterest(principal decimal.Decimal, rule *model.InterestPenaltyRule, from, asOf time.Time) decimal.Decimal {
	days := daysBetween(from, asOf)
	if days <= 0 || !rule.AnnualInterestRate.IsPositive() || !principal.IsPositive() {
		return decimal.Zero
	}

	rate := rule.AnnualInterestRate
	var accrued decimal.Decimal

	switch rule.InterestMethod {
	case model.InterestCompoundMonthly:
		months := wholePeriodsBetween(from, asOf, 0, 1)
		anchor := from.AddDate(0, months, 0)
		factor := decimal.New(1, 0).Add(rate.Div(monthsPerYear)).Pow(decimal.NewFromInt(int64(months)))
		compounded := principal.Mul(factor)
		accrued = compounded.Sub(principal).Add(stubInterest(compounded, rate, anchor, asOf))

	case model.InterestCompoundDaily:
		factor := decimal.New(1, 0).Add(rate.Div(daysPerYear)).Pow(decimal.NewFromInt(int64(days)))
		accrued = principal.Mul(factor).Sub(principal)

	case model.InterestCompoundAnnually:
		years := wholePeriodsBetween(from, asOf, 1, 0)
		anchor := from.AddDate(years, 0, 0)
		factor := decimal.New(1, 0).Add(rate).Pow(decimal.NewFromInt(int64(years)))
		compounded := principal.Mul(factor)
		accrued = compounded.Sub(principal).Add(stubInterest(compounded, rate, anchor, asOf))

	default: // simple
		accrued = principal.Mul(rate).Mul(decimal.NewFromInt(int64(days))).Div(daysPerYear)
	}

	return accrued.Round(2)
}

// ComputePenalty applies the penalty rate to its basis and clamps the
// result to the rule's dollar bounds. The minimum only applies when tax is
// actually due. "Greater of flat or percentage" statutes reduce to the same
// floor arithmetic but are reported as an approximation.
func ComputePenalty(tax, interest decimal.Decimal, rule *model.InterestPenaltyRule) (decimal.Decimal, bool) {
	basis := tax
	if rule.PenaltyBasis == model.PenaltyBasisTaxPlusInterest {
		basis = tax.Add(interest)
	}

	penalty := basis.Mul(rule.PenaltyRate)
	if rule.PenaltyMinimum != nil && tax.IsPositive() && penalty.LessThan(*rule.PenaltyMinimum) {
		penalty = *rule.PenaltyMinimum
	}
	if rule.PenaltyMaximum != nil && penalty.GreaterThan(*rule.PenaltyMaximum) {
		penalty = *rule.PenaltyMaximum
	}

	return penalty.Round(2), rule.GreaterOfMinimum
}

// stubInterest accrues simple interest on a balance for the partial period
// between the last compounding anchor and asOf.
func stubInterest(balance, annualRate decimal.Decimal, anchor, asOf time.Time) decimal.Decimal {
	stubDays := daysBetween(anchor, asOf)
	if stubDays <= 0 {
		return decimal.Zero
	}
	return balance.Mul(annualRate).Mul(decimal.NewFromInt(int64(stubDays))).Div(daysPerYear)
}

// daysBetween counts whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// wholePeriodsBetween counts how many full periods of (years, months) fit
// between from and to, respecting day-of-month boundaries.
func wholePeriodsBetween(from, to time.Time, years, months int) int {
	n := 0
	for !from.AddDate(years*(n+1), months*(n+1), 0).After(to) {
		n++
	}
	return n
}
