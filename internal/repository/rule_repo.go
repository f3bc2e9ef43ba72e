package repository

import (
	"context"
	"errors"
	"time"

	"nexustax/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleRepository is the engine's rule source plus the CRUD surface the
// reference-data endpoints need. Lookup methods return (nil, nil) when a
// jurisdiction has no entry — the engine degrades on missing configuration
// instead of failing.
type RuleRepository interface {
	// JurisdictionRule CRUD
	CreateRule(ctx context.Context, rule *model.JurisdictionRule) error
	UpdateRule(ctx context.Context, rule *model.JurisdictionRule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error
	FindRuleByID(ctx context.Context, id uuid.UUID) (*model.JurisdictionRule, error)
	ListRules(ctx context.Context, page, limit int) ([]model.JurisdictionRule, int64, error)
	FindOverlappingRules(ctx context.Context, jurisdiction string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error)

	// Reference-table upserts (one row per jurisdiction)
	UpsertTaxRate(ctx context.Context, rate *model.TaxRate) error
	UpsertInterestPenaltyRule(ctx context.Context, rule *model.InterestPenaltyRule) error
	UpsertVDAProgram(ctx context.Context, program *model.VDAProgram) error
	ListTaxRates(ctx context.Context) ([]model.TaxRate, error)
	ListInterestPenaltyRules(ctx context.Context) ([]model.InterestPenaltyRule, error)
	ListVDAPrograms(ctx context.Context) ([]model.VDAProgram, error)

	// engine.RuleSource
	ActiveRule(ctx context.Context, jurisdiction string, on time.Time) (*model.JurisdictionRule, error)
	TaxRate(ctx context.Context, jurisdiction string) (*model.TaxRate, error)
	InterestPenaltyRule(ctx context.Context, jurisdiction string) (*model.InterestPenaltyRule, error)
	VDAProgram(ctx context.Context, jurisdiction string) (*model.VDAProgram, error)
}

type ruleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) CreateRule(ctx context.Context, rule *model.JurisdictionRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *ruleRepository) UpdateRule(ctx context.Context, rule *model.JurisdictionRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *ruleRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.JurisdictionRule{}).Error
}

func (r *ruleRepository) FindRuleByID(ctx context.Context, id uuid.UUID) (*model.JurisdictionRule, error) {
	var rule model.JurisdictionRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) ListRules(ctx context.Context, page, limit int) ([]model.JurisdictionRule, int64, error) {
	var rules []model.JurisdictionRule
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.JurisdictionRule{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("jurisdiction asc, effective_from desc").Offset(offset).Limit(limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

func (r *ruleRepository) FindOverlappingRules(ctx context.Context, jurisdiction string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	var count int64
	query := GetDB(ctx, r.db).Model(&model.JurisdictionRule{}).Where("jurisdiction = ?", jurisdiction)

	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	if to != nil {
		// New rule has end date: overlap if existing.from <= new.to AND (existing.to IS NULL OR existing.to >= new.from)
		query = query.Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", *to, from)
	} else {
		// New rule has no end date: overlap if (existing.to IS NULL OR existing.to >= new.from)
		query = query.Where("(effective_to IS NULL OR effective_to >= ?)", from)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ruleRepository) UpsertTaxRate(ctx context.Context, rate *model.TaxRate) error {
	var existing model.TaxRate
	err := GetDB(ctx, r.db).First(&existing, "jurisdiction = ?", rate.Jurisdiction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GetDB(ctx, r.db).Create(rate).Error
	}
	if err != nil {
		return err
	}
	rate.ID = existing.ID
	rate.CreatedAt = existing.CreatedAt
	return GetDB(ctx, r.db).Save(rate).Error
}

func (r *ruleRepository) UpsertInterestPenaltyRule(ctx context.Context, rule *model.InterestPenaltyRule) error {
	var existing model.InterestPenaltyRule
	err := GetDB(ctx, r.db).First(&existing, "jurisdiction = ?", rule.Jurisdiction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GetDB(ctx, r.db).Create(rule).Error
	}
	if err != nil {
		return err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *ruleRepository) UpsertVDAProgram(ctx context.Context, program *model.VDAProgram) error {
	var existing model.VDAProgram
	err := GetDB(ctx, r.db).First(&existing, "jurisdiction = ?", program.Jurisdiction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GetDB(ctx, r.db).Create(program).Error
	}
	if err != nil {
		return err
	}
	program.ID = existing.ID
	program.CreatedAt = existing.CreatedAt
	return GetDB(ctx, r.db).Save(program).Error
}

func (r *ruleRepository) ListTaxRates(ctx context.Context) ([]model.TaxRate, error) {
	var rates []model.TaxRate
	if err := GetDB(ctx, r.db).Order("jurisdiction asc").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *ruleRepository) ListInterestPenaltyRules(ctx context.Context) ([]model.InterestPenaltyRule, error) {
	var rules []model.InterestPenaltyRule
	if err := GetDB(ctx, r.db).Order("jurisdiction asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) ListVDAPrograms(ctx context.Context) ([]model.VDAProgram, error) {
	var programs []model.VDAProgram
	if err := GetDB(ctx, r.db).Order("jurisdiction asc").Find(&programs).Error; err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *ruleRepository) ActiveRule(ctx context.Context, jurisdiction string, on time.Time) (*model.JurisdictionRule, error) {
	var rule model.JurisdictionRule
	err := GetDB(ctx, r.db).
		Where("jurisdiction = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", jurisdiction, on, on).
		Order("effective_from DESC").
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // No active rule — degrade, don't fail
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) TaxRate(ctx context.Context, jurisdiction string) (*model.TaxRate, error) {
	var rate model.TaxRate
	err := GetDB(ctx, r.db).First(&rate, "jurisdiction = ?", jurisdiction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *ruleRepository) InterestPenaltyRule(ctx context.Context, jurisdiction string) (*model.InterestPenaltyRule, error) {
	var rule model.InterestPenaltyRule
	err := GetDB(ctx, r.db).First(&rule, "jurisdiction = ?", jurisdiction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) VDAProgram(ctx context.Context, jurisdiction string) (*model.VDAProgram, error) {
	var program model.VDAProgram
	err := GetDB(ctx, r.db).First(&program, "jurisdiction = ?", jurisdiction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &program, nil
}
