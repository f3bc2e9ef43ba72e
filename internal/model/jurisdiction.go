package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ThresholdOperator enum constants
const (
	OperatorAnd = "and"
	OperatorOr  = "or"
)

// LookbackMethod enum constants
const (
	LookbackCalendarYear   = "calendar_year"
	LookbackRolling12Month = "rolling_12_month"
)

// InterestMethod enum constants
const (
	InterestSimple           = "simple"
	InterestCompoundMonthly  = "compound_monthly"
	InterestCompoundDaily    = "compound_daily"
	InterestCompoundAnnually = "compound_annually"
)

// PenaltyBasis enum constants
const (
	PenaltyBasisTax             = "tax"
	PenaltyBasisTaxPlusInterest = "tax_plus_interest"
)

// JurisdictionRule stores a jurisdiction's economic nexus thresholds with
// temporal validity. At most one rule is active per jurisdiction on any date.
type JurisdictionRule struct {
	ID                   uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Jurisdiction         string           `gorm:"type:varchar(2);not null;index" json:"jurisdiction"`
	RevenueThreshold     *decimal.Decimal `gorm:"type:decimal(18,4)" json:"revenue_threshold"`      // nullable = no revenue test
	TransactionThreshold *int             `gorm:"type:integer" json:"transaction_threshold"`        // nullable = no count test
	ThresholdOperator    string           `gorm:"type:varchar(5);not null;default:'or'" json:"threshold_operator"` // and, or
	LookbackMethod       string           `gorm:"type:varchar(20);not null" json:"lookback_method"` // calendar_year, rolling_12_month
	MarketplaceCounted   bool             `gorm:"not null;default:true" json:"marketplace_counted"` // marketplace sales count toward threshold
	EffectiveFrom        time.Time        `gorm:"type:date;not null;index" json:"effective_from"`
	EffectiveTo          *time.Time       `gorm:"type:date;index" json:"effective_to"` // nullable = currently active
	Notes                string           `gorm:"type:text" json:"notes"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// TaxRate stores a jurisdiction's state and average local sales tax rates.
type TaxRate struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Jurisdiction string          `gorm:"type:varchar(2);uniqueIndex;not null" json:"jurisdiction"`
	StateRate    decimal.Decimal `gorm:"type:decimal(10,6);not null" json:"state_rate"`     // e.g. 0.0625 = 6.25%
	AvgLocalRate decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0" json:"avg_local_rate"`
	CombinedRate decimal.Decimal `gorm:"type:decimal(10,6);not null" json:"combined_rate"` // state + avg local
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// InterestPenaltyRule stores how a jurisdiction accrues interest and
// penalties on unremitted tax.
type InterestPenaltyRule struct {
	ID                 uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Jurisdiction       string           `gorm:"type:varchar(2);uniqueIndex;not null" json:"jurisdiction"`
	AnnualInterestRate decimal.Decimal  `gorm:"type:decimal(10,6);not null" json:"annual_interest_rate"`
	InterestMethod     string           `gorm:"type:varchar(20);not null;default:'simple'" json:"interest_method"`
	PenaltyRate        decimal.Decimal  `gorm:"type:decimal(10,6);not null;default:0" json:"penalty_rate"`
	PenaltyMinimum     *decimal.Decimal `gorm:"type:decimal(18,4)" json:"penalty_minimum"` // nullable = no floor
	PenaltyMaximum     *decimal.Decimal `gorm:"type:decimal(18,4)" json:"penalty_maximum"` // nullable = no cap
	PenaltyBasis       string           `gorm:"type:varchar(20);not null;default:'tax'" json:"penalty_basis"`
	// GreaterOfMinimum marks statutes worded as "the greater of $X or Y% of
	// tax due". The engine treats the minimum as a floor and flags the
	// result as an approximation.
	GreaterOfMinimum bool      `gorm:"not null;default:false" json:"greater_of_minimum"`
	Notes            string    `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// VDAProgram stores a jurisdiction's voluntary disclosure terms. Waiver
// fields are fractions: 1 = fully waived, 0.5 = half waived, 0 = no relief.
type VDAProgram struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Jurisdiction    string          `gorm:"type:varchar(2);uniqueIndex;not null" json:"jurisdiction"`
	LookbackMonths  int             `gorm:"not null" json:"lookback_months"` // caps which historical years count
	InterestWaived  decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0" json:"interest_waived"`
	PenaltiesWaived decimal.Decimal `gorm:"type:decimal(5,4);not null;default:1" json:"penalties_waived"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
