package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"nexustax/internal/engine"
	"nexustax/internal/model"
	"nexustax/internal/repository"
	"nexustax/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// maxParallelJurisdictions bounds the errgroup fan-out. Jurisdictions are
// independent of each other; within one jurisdiction the scan is strictly
// sequential.
const maxParallelJurisdictions = 8

// --- DTOs ---

type RunCalculationRequest struct {
	AsOfDate string `json:"as_of_date"` // YYYY-MM-DD; empty = today
}

type CalculationSummary struct {
	RunID              string `json:"run_id"`
	StudyID            string `json:"study_id"`
	AsOfDate           string `json:"as_of_date"`
	TransactionCount   int    `json:"transaction_count"`
	JurisdictionCount  int    `json:"jurisdiction_count"`
	ResultCount        int    `json:"result_count"`
	NexusJurisdictions int    `json:"nexus_jurisdictions"`
	TotalLiability     string `json:"total_estimated_liability"`
}

// progressEvent is broadcast over the websocket hub as each jurisdiction
// finishes.
type progressEvent struct {
	Type         string `json:"type"` // "calculation_progress"
	StudyID      string `json:"study_id"`
	Jurisdiction string `json:"jurisdiction"`
	Completed    int    `json:"completed"`
	Total        int    `json:"total"`
}

// --- Interface ---

type CalculationService interface {
	Run(ctx context.Context, studyID string, req RunCalculationRequest, userID string) (*CalculationSummary, error)
	GetResults(ctx context.Context, studyID string) ([]model.JurisdictionYearResult, error)
	GetJurisdictionResults(ctx context.Context, studyID, jurisdiction string) ([]model.JurisdictionYearResult, error)
	ListRuns(ctx context.Context, studyID string, page, limit int) ([]model.CalculationRun, int64, error)
}

type calculationService struct {
	eng          *engine.Engine
	studies      repository.StudyRepository
	transactions repository.TransactionRepository
	results      repository.ResultRepository
	audit        repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *websocket.Hub
}

func NewCalculationService(
	eng *engine.Engine,
	studies repository.StudyRepository,
	transactions repository.TransactionRepository,
	results repository.ResultRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *websocket.Hub,
) CalculationService {
	return &calculationService{
		eng:          eng,
		studies:      studies,
		transactions: transactions,
		results:      results,
		audit:        audit,
		txManager:    txManager,
		hub:          hub,
	}
}

// --- Implementation ---

// Run executes the engine over every jurisdiction in the study and
// replaces the study's results wholesale. Jurisdictions are evaluated in
// parallel; the final write is one transaction, so a failed run leaves the
// previous results untouched.
func (s *calculationService) Run(ctx context.Context, studyID string, req RunCalculationRequest, userID string) (*CalculationSummary, error) {
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

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if req.AsOfDate != "" {
		asOf, err = time.Parse("2006-01-02", req.AsOfDate)
		if err != nil {
			return nil, fmt.Errorf("invalid as_of_date (expected YYYY-MM-DD): %w", err)
		}
	}

	grouped, err := s.transactions.FetchByStudyGrouped(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(grouped) == 0 {
		return nil, fmt.Errorf("study has no transactions to calculate")
	}

	txCount := 0
	jurisdictions := make([]string, 0, len(grouped))
	for code, txs := range grouped {
		jurisdictions = append(jurisdictions, code)
		txCount += len(txs)
	}
	sort.Strings(jurisdictions)

	run := &model.CalculationRun{
		StudyID:           id,
		Status:            model.RunRunning,
		AsOfDate:          asOf,
		TransactionCount:  txCount,
		JurisdictionCount: len(jurisdictions),
		StartedAt:         time.Now().UTC(),
	}
	if err := s.results.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record calculation run: %w", err)
	}

	byJurisdiction := make(map[string][]model.JurisdictionYearResult, len(jurisdictions))
	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelJurisdictions)
	for _, code := range jurisdictions {
		g.Go(func() error {
			results, err := s.eng.EvaluateJurisdiction(gctx, id, code, grouped[code], asOf)
			if err != nil {
				return err
			}
			mu.Lock()
			byJurisdiction[code] = results
			completed++
			done := completed
			mu.Unlock()
			s.broadcastProgress(studyID, code, done, len(jurisdictions))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.failRun(ctx, run, err)
		return nil, fmt.Errorf("calculation failed: %w", err)
	}

	// Deterministic output order: jurisdiction, then year.
	all := make([]model.JurisdictionYearResult, 0)
	for _, code := range jurisdictions {
		all = append(all, byJurisdiction[code]...)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.results.ReplaceForStudy(txCtx, id, all); err != nil {
			return err
		}
		study.Status = model.StudyCalculated
		return s.studies.Update(txCtx, study)
	})
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, fmt.Errorf("failed to store results: %w", err)
	}

	now := time.Now().UTC()
	run.Status = model.RunCompleted
	run.CompletedAt = &now
	if err := s.results.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to finalize calculation run: %w", err)
	}

	summary := s.summarize(run, studyID, all)
	s.writeAuditLog(ctx, userID, run.ID.String(), study.Name, summary)
	return summary, nil
}

func (s *calculationService) GetResults(ctx context.Context, studyID string) ([]model.JurisdictionYearResult, error) {
	id, err := uuid.Parse(studyID)
	if err != nil {
		return nil, fmt.Errorf("invalid study id: %w", err)
	}
	return s.results.ListByStudy(ctx, id)
}

func (s *calculationService) GetJurisdictionResults(ctx context.Context, studyID, jurisdiction string) ([]model.JurisdictionYearResult, error) {
	id, err := uuid.Parse(studyID)
	if err != nil {
		return nil, fmt.Errorf("invalid study id: %w", err)
	}
	return s.results.ListByStudyAndJurisdiction(ctx, id, jurisdiction)
}

func (s *calculationService) ListRuns(ctx context.Context, studyID string, page, limit int) ([]model.CalculationRun, int64, error) {
	id, err := uuid.Parse(studyID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid study id: %w", err)
	}
	return s.results.ListRuns(ctx, id, page, limit)
}

// --- Helpers ---

func (s *calculationService) summarize(run *model.CalculationRun, studyID string, results []model.JurisdictionYearResult) *CalculationSummary {
	total := decimal.Zero
	nexusJurisdictions := make(map[string]bool)
	for _, r := range results {
		total = total.Add(r.EstimatedLiability)
		if r.NexusStatus == model.NexusHasNexus {
			nexusJurisdictions[r.Jurisdiction] = true
		}
	}

	return &CalculationSummary{
		RunID:              run.ID.String(),
		StudyID:            studyID,
		AsOfDate:           run.AsOfDate.Format("2006-01-02"),
		TransactionCount:   run.TransactionCount,
		JurisdictionCount:  run.JurisdictionCount,
		ResultCount:        len(results),
		NexusJurisdictions: len(nexusJurisdictions),
		TotalLiability:     total.StringFixed(2),
	}
}

func (s *calculationService) failRun(ctx context.Context, run *model.CalculationRun, cause error) {
	now := time.Now().UTC()
	run.Status = model.RunFailed
	run.Error = cause.Error()
	run.CompletedAt = &now
	_ = s.results.UpdateRun(ctx, run)
}

func (s *calculationService) broadcastProgress(studyID, jurisdiction string, completed, total int) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(progressEvent{
		Type:         "calculation_progress",
		StudyID:      studyID,
		Jurisdiction: jurisdiction,
		Completed:    completed,
		Total:        total,
	})
	s.hub.Broadcast <- payload
}

func (s *calculationService) writeAuditLog(ctx context.Context, userID, runID, studyName string, summary *CalculationSummary) {
	detailsJSON, _ := json.Marshal(summary)

	entry := &model.AuditLog{
		Action:     model.ActionRunCalculation,
		EntityID:   runID,
		EntityName: studyName,
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
