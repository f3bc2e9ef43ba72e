package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityType enum constants
const (
	EntityTypeLLC         = "LLC"
	EntityTypeCorporation = "CORPORATION"
	EntityTypeSoleProp    = "SOLE_PROP"
	EntityTypePartnership = "PARTNERSHIP"
)

// Client represents the business whose sales history is under study.
type Client struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	LegalName     string         `gorm:"type:varchar(255)" json:"legal_name"`
	EntityType    string         `gorm:"type:varchar(20)" json:"entity_type"` // LLC, CORPORATION, SOLE_PROP, PARTNERSHIP
	FEIN          string         `gorm:"type:varchar(20)" json:"fein"`        // federal employer identification number
	HomeState     string         `gorm:"type:varchar(2)" json:"home_state"`   // physical-presence state, informational
	ContactPerson string         `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string         `gorm:"type:varchar(50)" json:"phone"`
	Email         string         `gorm:"type:varchar(255)" json:"email"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
