package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateClient = "CREATE_CLIENT"
	ActionUpdateClient = "UPDATE_CLIENT"
	ActionDeleteClient = "DELETE_CLIENT"

	ActionCreateStudy        = "CREATE_STUDY"
	ActionDeleteStudy        = "DELETE_STUDY"
	ActionImportTransactions = "IMPORT_TRANSACTIONS"
	ActionRunCalculation     = "RUN_CALCULATION"

	ActionCreateNexusRule = "CREATE_NEXUS_RULE"
	ActionUpdateNexusRule = "UPDATE_NEXUS_RULE"
	ActionDeleteNexusRule = "DELETE_NEXUS_RULE"
	ActionUpsertTaxRate   = "UPSERT_TAX_RATE"
	ActionUpsertPenalty   = "UPSERT_PENALTY_RULE"
	ActionUpsertVDA       = "UPSERT_VDA_PROGRAM"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
