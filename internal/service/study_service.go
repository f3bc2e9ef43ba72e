package service

import (
	"context"
	"errors"
	"fmt"

	"nexustax/internal/model"
	"nexustax/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateStudyRequest struct {
	ClientID    string `json:"client_id" binding:"required,uuid"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

type UpdateStudyRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
}

// --- Interface ---

type StudyService interface {
	CreateStudy(ctx context.Context, req CreateStudyRequest, userID string) (*model.Study, error)
	GetStudy(ctx context.Context, id string) (*model.Study, error)
	ListStudies(ctx context.Context, clientID string, page, limit int) ([]model.Study, int64, error)
	UpdateStudy(ctx context.Context, id string, req UpdateStudyRequest) (*model.Study, error)
	DeleteStudy(ctx context.Context, id string, userID string) error
}

type studyService struct {
	studies      repository.StudyRepository
	clients      repository.ClientRepository
	transactions repository.TransactionRepository
	results      repository.ResultRepository
	audit        repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewStudyService(
	studies repository.StudyRepository,
	clients repository.ClientRepository,
	transactions repository.TransactionRepository,
	results repository.ResultRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
) StudyService {
	return &studyService{
		studies:      studies,
		clients:      clients,
		transactions: transactions,
		results:      results,
		audit:        audit,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *studyService) CreateStudy(ctx context.Context, req CreateStudyRequest, userID string) (*model.Study, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("invalid client id: %w", err)
	}

	if _, err := s.clients.FindByID(ctx, clientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client not found")
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}

	study := &model.Study{
		ClientID:    clientID,
		Name:        req.Name,
		Status:      model.StudyDraft,
		Description: req.Description,
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			study.CreatedBy = &parsed
		}
	}

	if err := s.studies.Create(ctx, study); err != nil {
		return nil, fmt.Errorf("failed to create study: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionCreateStudy, study.ID.String(), study.Name)
	return study, nil
}

func (s *studyService) GetStudy(ctx context.Context, id string) (*model.Study, error) {
	studyID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid study id: %w", err)
	}

	study, err := s.studies.FindByID(ctx, studyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("study not found")
		}
		return nil, fmt.Errorf("failed to fetch study: %w", err)
	}
	return study, nil
}

func (s *studyService) ListStudies(ctx context.Context, clientID string, page, limit int) ([]model.Study, int64, error) {
	if clientID != "" {
		parsed, err := uuid.Parse(clientID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid client id: %w", err)
		}
		return s.studies.ListByClient(ctx, parsed, page, limit)
	}
	return s.studies.List(ctx, page, limit)
}

func (s *studyService) UpdateStudy(ctx context.Context, id string, req UpdateStudyRequest) (*model.Study, error) {
	study, err := s.GetStudy(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		study.Name = *req.Name
	}
	if req.Description != nil {
		study.Description = *req.Description
	}

	if err := s.studies.Update(ctx, study); err != nil {
		return nil, fmt.Errorf("failed to update study: %w", err)
	}
	return study, nil
}

func (s *studyService) DeleteStudy(ctx context.Context, id string, userID string) error {
	study, err := s.GetStudy(ctx, id)
	if err != nil {
		return err
	}

	// Imported rows and computed results are bulk data; purge them with
	// the study so a soft-deleted study doesn't pin gigabytes of history.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.transactions.DeleteByStudy(txCtx, study.ID); err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}
		if err := s.results.ReplaceForStudy(txCtx, study.ID, nil); err != nil {
			return fmt.Errorf("failed to delete results: %w", err)
		}
		return s.studies.Delete(txCtx, study.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete study: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionDeleteStudy, study.ID.String(), study.Name)
	return nil
}

func (s *studyService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string) {
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	// Best-effort audit log — don't fail the operation if logging fails
	_ = s.audit.Log(ctx, entry)
}
