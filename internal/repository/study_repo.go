package repository

import (
	"context"

	"nexustax/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudyRepository interface {
	Create(ctx context.Context, study *model.Study) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Study, error)
	List(ctx context.Context, page, limit int) ([]model.Study, int64, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, page, limit int) ([]model.Study, int64, error)
	Update(ctx context.Context, study *model.Study) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type studyRepository struct {
	db *gorm.DB
}

func NewStudyRepository(db *gorm.DB) StudyRepository {
	return &studyRepository{db: db}
}

func (r *studyRepository) Create(ctx context.Context, study *model.Study) error {
	return GetDB(ctx, r.db).Create(study).Error
}

func (r *studyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Study, error) {
	var study model.Study
	if err := GetDB(ctx, r.db).Preload("Client").First(&study, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &study, nil
}

func (r *studyRepository) List(ctx context.Context, page, limit int) ([]model.Study, int64, error) {
	var studies []model.Study
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Study{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Client").Order("created_at desc").Offset(offset).Limit(limit).Find(&studies).Error; err != nil {
		return nil, 0, err
	}

	return studies, total, nil
}

func (r *studyRepository) ListByClient(ctx context.Context, clientID uuid.UUID, page, limit int) ([]model.Study, int64, error) {
	var studies []model.Study
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Study{}).Where("client_id = ?", clientID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("client_id = ?", clientID).Order("created_at desc").Offset(offset).Limit(limit).Find(&studies).Error; err != nil {
		return nil, 0, err
	}

	return studies, total, nil
}

func (r *studyRepository) Update(ctx context.Context, study *model.Study) error {
	return GetDB(ctx, r.db).Save(study).Error
}

func (r *studyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Study{}).Error
}
