package database

import (
	"log"

	"nexustax/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.AuditLog{},
		&model.Role{},
		&model.Permission{},
		&model.Client{},
		&model.Study{},
		&model.CalculationRun{},
		&model.SalesTransaction{},
		&model.JurisdictionRule{},
		&model.TaxRate{},
		&model.InterestPenaltyRule{},
		&model.VDAProgram{},
		&model.JurisdictionYearResult{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
