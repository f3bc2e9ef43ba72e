package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudyStatus enum constants
const (
	StudyDraft      = "DRAFT"
	StudyCalculated = "CALCULATED"
)

// RunStatus enum constants
const (
	RunRunning   = "RUNNING"
	RunCompleted = "COMPLETED"
	RunFailed    = "FAILED"
)

// Study groups one client's imported transaction history and the results
// computed from it. A study is the unit of calculation: every run replaces
// all of the study's prior results.
type Study struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	Client      *Client        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Status      string         `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"status"` // DRAFT, CALCULATED
	CreatedBy   *uuid.UUID     `gorm:"type:uuid" json:"created_by"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CalculationRun records one engine execution over a study, for history and
// troubleshooting. The run that produced a study's current results is the
// latest COMPLETED one.
type CalculationRun struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudyID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"study_id"`
	Status            string     `gorm:"type:varchar(20);not null;default:'RUNNING'" json:"status"` // RUNNING, COMPLETED, FAILED
	AsOfDate          time.Time  `gorm:"type:date;not null" json:"as_of_date"`                      // interest accrues up to this date
	TransactionCount  int        `json:"transaction_count"`
	JurisdictionCount int        `json:"jurisdiction_count"`
	Error             string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at"`
}
