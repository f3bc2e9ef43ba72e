package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExposureSummary aggregates a study's calculated results across every
// jurisdiction into a single dashboard payload.
type ExposureSummary struct {
	StudyID                string               `json:"study_id"`
	AsOfDate               *time.Time           `json:"as_of_date,omitempty"` // from the latest completed run
	TotalLiability         decimal.Decimal      `json:"total_liability"`
	TotalBaseTax           decimal.Decimal      `json:"total_base_tax"`
	TotalInterest          decimal.Decimal      `json:"total_interest"`
	TotalPenalties         decimal.Decimal      `json:"total_penalties"`
	NexusJurisdictions     int                  `json:"nexus_jurisdictions"`
	ApproachingCount       int                  `json:"approaching_jurisdictions"`
	RuleMissingCount       int                  `json:"rule_missing_jurisdictions"`
	JurisdictionsEvaluated int                  `json:"jurisdictions_evaluated"`
	TopExposures           []ExposureRanking    `json:"top_exposures"`
	YearsCovered           []ExposureYearTotals `json:"years_covered"`
}

// ExposureRanking ranks one jurisdiction by its accumulated liability.
type ExposureRanking struct {
	Jurisdiction   string          `json:"jurisdiction"`
	FirstNexusYear *int            `json:"first_nexus_year,omitempty"`
	TaxableSales   decimal.Decimal `json:"taxable_sales"`
	TotalLiability decimal.Decimal `json:"total_liability"`
}

// ExposureYearTotals sums liability for one calendar year across all
// jurisdictions in the study.
type ExposureYearTotals struct {
	Year           int             `json:"year"`
	TotalLiability decimal.Decimal `json:"total_liability"`
	NexusCount     int             `json:"nexus_count"`
}
