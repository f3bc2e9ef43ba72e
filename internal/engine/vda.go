package engine

import (
	"time"

	"nexustax/internal/model"

	"github.com/shopspring/decimal"
)

// VDAYearLine is one year's standard-versus-VDA figures.
type VDAYearLine struct {
	Year     int  `json:"year"`
	InWindow bool `json:"in_window"` // inside the program's lookback period

	BaseTax           decimal.Decimal `json:"base_tax"`
	StandardInterest  decimal.Decimal `json:"standard_interest"`
	StandardPenalties decimal.Decimal `json:"standard_penalties"`
	StandardTotal     decimal.Decimal `json:"standard_total"`

	VDATax       decimal.Decimal `json:"vda_tax"`
	VDAInterest  decimal.Decimal `json:"vda_interest"`
	VDAPenalties decimal.Decimal `json:"vda_penalties"`
	VDATotal     decimal.Decimal `json:"vda_total"`
}

// VDAComparison holds a jurisdiction's full exposure next to its liability
// under the voluntary disclosure program's terms.
type VDAComparison struct {
	Jurisdiction    string          `json:"jurisdiction"`
	LookbackMonths  int             `json:"lookback_months"`
	InterestWaived  decimal.Decimal `json:"interest_waived"`
	PenaltiesWaived decimal.Decimal `json:"penalties_waived"`

	Lines         []VDAYearLine   `json:"lines"`
	StandardTotal decimal.Decimal `json:"standard_total"`
	VDATotal      decimal.Decimal `json:"vda_total"`
	Savings       decimal.Decimal `json:"savings"`
}

// CompareVDA recomputes a jurisdiction's liability under its voluntary
// disclosure terms. Years entirely outside the lookback window drop out of
// the VDA scenario; interest and penalties are scaled by the waived
// fractions. The stored results are never modified.
func CompareVDA(jurisdiction string, results []model.JurisdictionYearResult, program *model.VDAProgram, asOf time.Time) VDAComparison {
	cmp := VDAComparison{
		Jurisdiction:    jurisdiction,
		LookbackMonths:  program.LookbackMonths,
		InterestWaived:  clampFraction(program.InterestWaived),
		PenaltiesWaived: clampFraction(program.PenaltiesWaived),
	}

	interestKept := decimal.New(1, 0).Sub(cmp.InterestWaived)
	penaltiesKept := decimal.New(1, 0).Sub(cmp.PenaltiesWaived)
	cutoff := asOf.AddDate(0, -program.LookbackMonths, 0)

	for _, r := range results {
		line := VDAYearLine{
			Year:              r.Year,
			BaseTax:           r.BaseTax,
			StandardInterest:  r.Interest,
			StandardPenalties: r.Penalties,
			StandardTotal:     r.EstimatedLiability,
		}

		// A year counts toward the VDA scenario when any part of it falls
		// inside the lookback window.
		yearEnd := time.Date(r.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
		line.InWindow = !yearEnd.Before(cutoff)

		if line.InWindow {
			line.VDATax = r.BaseTax
			line.VDAInterest = r.Interest.Mul(interestKept).Round(2)
			line.VDAPenalties = r.Penalties.Mul(penaltiesKept).Round(2)
			line.VDATotal = line.VDATax.Add(line.VDAInterest).Add(line.VDAPenalties)
		}

		cmp.StandardTotal = cmp.StandardTotal.Add(line.StandardTotal)
		cmp.VDATotal = cmp.VDATotal.Add(line.VDATotal)
		cmp.Lines = append(cmp.Lines, line)
	}

	cmp.Savings = cmp.StandardTotal.Sub(cmp.VDATotal)
	return cmp
}

// clampFraction bounds a waiver fraction to [0, 1].
func clampFraction(f decimal.Decimal) decimal.Decimal {
	if f.IsNegative() {
		return decimal.Zero
	}
	if f.GreaterThan(decimal.New(1, 0)) {
		return decimal.New(1, 0)
	}
	return f
}
