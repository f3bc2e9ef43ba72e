package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Channel enum constants
const (
	ChannelDirect      = "direct"
	ChannelMarketplace = "marketplace"
)

// SalesTransaction is a single historical sale imported into a study.
// Rows are immutable once ingested; the engine only reads them.
type SalesTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudyID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"study_id"`
	Jurisdiction    string          `gorm:"type:varchar(2);not null;index" json:"jurisdiction"` // two-letter state code
	TransactionDate time.Time       `gorm:"type:date;not null;index" json:"transaction_date"`
	GrossAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"gross_amount"`
	ExemptAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"exempt_amount"` // <= gross_amount
	Channel         string          `gorm:"type:varchar(20);not null;default:'direct'" json:"channel"`  // direct, marketplace
	ExternalRef     string          `gorm:"type:varchar(100)" json:"external_ref"`                      // source row identifier, if any
	CreatedAt       time.Time       `json:"created_at"`
}

// TaxableAmount returns gross minus exempt, floored at zero so a bad
// exempt figure can never produce a negative taxable base.
func (t *SalesTransaction) TaxableAmount() decimal.Decimal {
	taxable := t.GrossAmount.Sub(t.ExemptAmount)
	if taxable.IsNegative() {
		return decimal.Zero
	}
	return taxable
}
