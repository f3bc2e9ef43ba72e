package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NexusStatus enum constants
const (
	NexusNone        = "none"
	NexusApproaching = "approaching"
	NexusHasNexus    = "has_nexus"
)

// JurisdictionYearResult is the engine's output: one row per study,
// jurisdiction, and calendar year. Results are replaced wholesale on every
// calculation run, never patched.
type JurisdictionYearResult struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudyID      uuid.UUID `gorm:"type:uuid;not null;index:idx_results_study_jur" json:"study_id"`
	Jurisdiction string    `gorm:"type:varchar(2);not null;index:idx_results_study_jur" json:"jurisdiction"`
	Year         int       `gorm:"not null" json:"year"`

	NexusStatus         string     `gorm:"type:varchar(20);not null" json:"nexus_status"` // none, approaching, has_nexus
	NexusDate           *time.Time `gorm:"type:date" json:"nexus_date"`
	ObligationStartDate *time.Time `gorm:"type:date" json:"obligation_start_date"`
	FirstNexusYear      *int       `json:"first_nexus_year"` // carries forward once set ("sticky nexus")

	// Full-year sales figures, reported regardless of nexus status.
	GrossSales       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"gross_sales"`
	ExemptSales      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"exempt_sales"`
	MarketplaceSales decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"marketplace_sales"`
	DirectSales      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"direct_sales"`

	// TaxableSales is the liability base: direct taxable sales on or after
	// the obligation start date. Marketplace sales never enter this figure
	// (facilitators remit their own tax).
	TaxableSales decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"taxable_sales"`

	BaseTax            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"base_tax"`
	Interest           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"interest"`
	Penalties          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"penalties"`
	EstimatedLiability decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"estimated_liability"`

	// RuleMissing marks an incomplete configuration (no active nexus rule,
	// tax rate, or interest/penalty rule) so a "none" status is never
	// mistaken for a confident determination.
	RuleMissing bool `gorm:"not null;default:false" json:"rule_missing"`
	// PenaltyApproximated marks results computed under a "greater of flat
	// or percentage" penalty statute the simple clamp model can only
	// approximate.
	PenaltyApproximated bool `gorm:"not null;default:false" json:"penalty_approximated"`

	CreatedAt time.Time `json:"created_at"`
}
