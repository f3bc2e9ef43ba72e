package repository

import (
	"context"

	"nexustax/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResultRepository stores engine output. Results are only ever replaced
// wholesale per study — delete-then-insert inside one transaction — so a
// re-run after a crash can never leave a partial mix of old and new rows.
type ResultRepository interface {
	ReplaceForStudy(ctx context.Context, studyID uuid.UUID, results []model.JurisdictionYearResult) error
	ListByStudy(ctx context.Context, studyID uuid.UUID) ([]model.JurisdictionYearResult, error)
	ListByStudyAndJurisdiction(ctx context.Context, studyID uuid.UUID, jurisdiction string) ([]model.JurisdictionYearResult, error)

	CreateRun(ctx context.Context, run *model.CalculationRun) error
	UpdateRun(ctx context.Context, run *model.CalculationRun) error
	ListRuns(ctx context.Context, studyID uuid.UUID, page, limit int) ([]model.CalculationRun, int64, error)
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) ReplaceForStudy(ctx context.Context, studyID uuid.UUID, results []model.JurisdictionYearResult) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("study_id = ?", studyID).Delete(&model.JurisdictionYearResult{}).Error; err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}
	return db.CreateInBatches(results, 200).Error
}

func (r *resultRepository) ListByStudy(ctx context.Context, studyID uuid.UUID) ([]model.JurisdictionYearResult, error) {
	var results []model.JurisdictionYearResult
	if err := GetDB(ctx, r.db).
		Where("study_id = ?", studyID).
		Order("jurisdiction asc, year asc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) ListByStudyAndJurisdiction(ctx context.Context, studyID uuid.UUID, jurisdiction string) ([]model.JurisdictionYearResult, error) {
	var results []model.JurisdictionYearResult
	if err := GetDB(ctx, r.db).
		Where("study_id = ? AND jurisdiction = ?", studyID, jurisdiction).
		Order("year asc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) CreateRun(ctx context.Context, run *model.CalculationRun) error {
	return GetDB(ctx, r.db).Create(run).Error
}

func (r *resultRepository) UpdateRun(ctx context.Context, run *model.CalculationRun) error {
	return GetDB(ctx, r.db).Save(run).Error
}

func (r *resultRepository) ListRuns(ctx context.Context, studyID uuid.UUID, page, limit int) ([]model.CalculationRun, int64, error) {
	var runs []model.CalculationRun
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.CalculationRun{}).Where("study_id = ?", studyID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("study_id = ?", studyID).
		Order("started_at desc").
		Offset(offset).Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}
