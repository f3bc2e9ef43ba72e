package repository

import (
	"context"

	"nexustax/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionRepository handles imported sales transactions. Rows are
// write-once: there is no update path, only bulk insert and study-scoped
// deletion.
type TransactionRepository interface {
	BulkInsert(ctx context.Context, txs []model.SalesTransaction) error
	ListByStudy(ctx context.Context, studyID uuid.UUID, page, limit int) ([]model.SalesTransaction, int64, error)
	// FetchByStudyGrouped returns the study's transactions keyed by
	// jurisdiction, each slice ordered by date then insertion, ready for
	// the engine's chronological scan.
	FetchByStudyGrouped(ctx context.Context, studyID uuid.UUID) (map[string][]model.SalesTransaction, error)
	CountByStudy(ctx context.Context, studyID uuid.UUID) (int64, error)
	DeleteByStudy(ctx context.Context, studyID uuid.UUID) error
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) BulkInsert(ctx context.Context, txs []model.SalesTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).CreateInBatches(txs, 500).Error
}

func (r *transactionRepository) ListByStudy(ctx context.Context, studyID uuid.UUID, page, limit int) ([]model.SalesTransaction, int64, error) {
	var txs []model.SalesTransaction
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.SalesTransaction{}).Where("study_id = ?", studyID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("study_id = ?", studyID).
		Order("transaction_date asc, created_at asc").
		Offset(offset).Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}

func (r *transactionRepository) FetchByStudyGrouped(ctx context.Context, studyID uuid.UUID) (map[string][]model.SalesTransaction, error) {
	var txs []model.SalesTransaction
	if err := GetDB(ctx, r.db).
		Where("study_id = ?", studyID).
		Order("transaction_date asc, created_at asc").
		Find(&txs).Error; err != nil {
		return nil, err
	}

	grouped := make(map[string][]model.SalesTransaction)
	for _, t := range txs {
		grouped[t.Jurisdiction] = append(grouped[t.Jurisdiction], t)
	}
	return grouped, nil
}

func (r *transactionRepository) CountByStudy(ctx context.Context, studyID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.SalesTransaction{}).Where("study_id = ?", studyID).Count(&total).Error
	return total, err
}

func (r *transactionRepository) DeleteByStudy(ctx context.Context, studyID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("study_id = ?", studyID).Delete(&model.SalesTransaction{}).Error
}
