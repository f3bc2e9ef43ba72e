package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nexustax/internal/model"
	"nexustax/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

// TransactionRow is one already-normalized row from the upload pipeline.
// Column mapping and file parsing happen upstream; this service only does
// row-level validation.
type TransactionRow struct {
	Jurisdiction    string `json:"jurisdiction"`
	TransactionDate string `json:"transaction_date"` // YYYY-MM-DD
	GrossAmount     string `json:"gross_amount"`
	ExemptAmount    string `json:"exempt_amount"` // optional, defaults to 0
	Channel         string `json:"channel"`       // direct (default) or marketplace
	ExternalRef     string `json:"external_ref"`
}

type ImportTransactionsRequest struct {
	Rows []TransactionRow `json:"rows" binding:"required,min=1"`
}

type RowError struct {
	Row    int    `json:"row"` // zero-based index into the submitted rows
	Reason string `json:"reason"`
}

// ImportResult reports what was accepted and which rows were skipped. Bad
// rows never fail the import; they are surfaced as data-quality findings.
type ImportResult struct {
	Imported  int        `json:"imported"`
	Skipped   int        `json:"skipped"`
	TotalRows int64      `json:"total_rows"` // rows now in the study, all imports combined
	Errors    []RowError `json:"errors,omitempty"`
}

// --- Interface ---

type TransactionService interface {
	Import(ctx context.Context, studyID string, req ImportTransactionsRequest, userID string) (*ImportResult, error)
	List(ctx context.Context, studyID string, page, limit int) ([]model.SalesTransaction, int64, error)
}

type transactionService struct {
	studies      repository.StudyRepository
	transactions repository.TransactionRepository
	audit        repository.AuditRepository
}

func NewTransactionService(studies repository.StudyRepository, transactions repository.TransactionRepository, audit repository.AuditRepository) TransactionService {
	return &transactionService{studies: studies, transactions: transactions, audit: audit}
}

// --- Implementation ---

func (s *transactionService) Import(ctx context.Context, studyID string, req ImportTransactionsRequest, userID string) (*ImportResult, error) {
	id, err := uuid.Parse(studyID)
	if err != nil {
		return nil, fmt.Errorf("invalid study id: %w", err)
	}

	study, err := s.studies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("study not found")
		}
		return nil, fmt.Errorf("failed to fetch study: %w", err)
	}

	result := &ImportResult{}
	accepted := make([]model.SalesTransaction, 0, len(req.Rows))
	for i, row := range req.Rows {
		tx, reason := parseTransactionRow(id, row)
		if reason != "" {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: i, Reason: reason})
			continue
		}
		accepted = append(accepted, *tx)
	}

	if err := s.transactions.BulkInsert(ctx, accepted); err != nil {
		return nil, fmt.Errorf("failed to insert transactions: %w", err)
	}
	result.Imported = len(accepted)

	if total, err := s.transactions.CountByStudy(ctx, id); err == nil {
		result.TotalRows = total
	}

	s.writeAuditLog(ctx, userID, study, result)
	return result, nil
}

func (s *transactionService) List(ctx context.Context, studyID string, page, limit int) ([]model.SalesTransaction, int64, error) {
	id, err := uuid.Parse(studyID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid study id: %w", err)
	}
	return s.transactions.ListByStudy(ctx, id, page, limit)
}

// --- Helpers ---

// parseTransactionRow validates one row. The returned reason is empty for
// a good row.
func parseTransactionRow(studyID uuid.UUID, row TransactionRow) (*model.SalesTransaction, string) {
	if len(row.Jurisdiction) != 2 {
		return nil, "jurisdiction must be a two-letter state code"
	}
	if row.TransactionDate == "" {
		return nil, "transaction_date is required"
	}
	date, err := time.Parse("2006-01-02", row.TransactionDate)
	if err != nil {
		return nil, "invalid transaction_date (expected YYYY-MM-DD)"
	}

	gross, err := decimal.NewFromString(row.GrossAmount)
	if err != nil {
		return nil, "invalid gross_amount"
	}
	if gross.IsNegative() {
		return nil, "gross_amount must not be negative"
	}

	exempt := decimal.Zero
	if row.ExemptAmount != "" {
		exempt, err = decimal.NewFromString(row.ExemptAmount)
		if err != nil {
			return nil, "invalid exempt_amount"
		}
		if exempt.IsNegative() {
			return nil, "exempt_amount must not be negative"
		}
		if exempt.GreaterThan(gross) {
			return nil, "exempt_amount exceeds gross_amount"
		}
	}

	channel := row.Channel
	if channel == "" {
		channel = model.ChannelDirect
	}
	if channel != model.ChannelDirect && channel != model.ChannelMarketplace {
		return nil, "channel must be direct or marketplace"
	}

	return &model.SalesTransaction{
		StudyID:         studyID,
		Jurisdiction:    row.Jurisdiction,
		TransactionDate: date,
		GrossAmount:     gross,
		ExemptAmount:    exempt,
		Channel:         channel,
		ExternalRef:     row.ExternalRef,
	}, ""
}

func (s *transactionService) writeAuditLog(ctx context.Context, userID string, study *model.Study, result *ImportResult) {
	detailsJSON, _ := json.Marshal(map[string]int{"imported": result.Imported, "skipped": result.Skipped})

	entry := &model.AuditLog{
		Action:     model.ActionImportTransactions,
		EntityID:   study.ID.String(),
		EntityName: study.Name,
		Details:    string(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	// Best-effort audit log — don't fail the operation if logging fails
	_ = s.audit.Log(ctx, entry)
}
