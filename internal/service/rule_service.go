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

type CreateRuleRequest struct {
	Jurisdiction         string `json:"jurisdiction" binding:"required,len=2"`
	RevenueThreshold     string `json:"revenue_threshold"`     // decimal string, empty = no revenue test
	TransactionThreshold *int   `json:"transaction_threshold"` // nil = no count test
	ThresholdOperator    string `json:"threshold_operator" binding:"required,oneof=and or"`
	LookbackMethod       string `json:"lookback_method" binding:"required,oneof=calendar_year rolling_12_month"`
	MarketplaceCounted   *bool  `json:"marketplace_counted" binding:"required"`
	EffectiveFrom        string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo          string `json:"effective_to"`                      // YYYY-MM-DD, nullable
	Notes                string `json:"notes"`
}

type RuleResponse struct {
	ID                   string  `json:"id"`
	Jurisdiction         string  `json:"jurisdiction"`
	RevenueThreshold     *string `json:"revenue_threshold"`
	TransactionThreshold *int    `json:"transaction_threshold"`
	ThresholdOperator    string  `json:"threshold_operator"`
	LookbackMethod       string  `json:"lookback_method"`
	MarketplaceCounted   bool    `json:"marketplace_counted"`
	EffectiveFrom        string  `json:"effective_from"`
	EffectiveTo          *string `json:"effective_to"`
	Notes                string  `json:"notes"`
	CreatedAt            string  `json:"created_at"`
}

type UpsertTaxRateRequest struct {
	Jurisdiction string `json:"jurisdiction" binding:"required,len=2"`
	StateRate    string `json:"state_rate" binding:"required"`
	AvgLocalRate string `json:"avg_local_rate"`
}

type UpsertPenaltyRuleRequest struct {
	Jurisdiction       string  `json:"jurisdiction" binding:"required,len=2"`
	AnnualInterestRate string  `json:"annual_interest_rate" binding:"required"`
	InterestMethod     string  `json:"interest_method" binding:"required,oneof=simple compound_monthly compound_daily compound_annually"`
	PenaltyRate        string  `json:"penalty_rate" binding:"required"`
	PenaltyMinimum     *string `json:"penalty_minimum"`
	PenaltyMaximum     *string `json:"penalty_maximum"`
	PenaltyBasis       string  `json:"penalty_basis" binding:"required,oneof=tax tax_plus_interest"`
	GreaterOfMinimum   bool    `json:"greater_of_minimum"`
	Notes              string  `json:"notes"`
}

type UpsertVDAProgramRequest struct {
	Jurisdiction    string `json:"jurisdiction" binding:"required,len=2"`
	LookbackMonths  int    `json:"lookback_months" binding:"required,min=1"`
	InterestWaived  string `json:"interest_waived"`  // fraction 0..1, default 0
	PenaltiesWaived string `json:"penalties_waived"` // fraction 0..1, default 1
	Notes           string `json:"notes"`
}

// --- Interface ---

type RuleService interface {
	ListRules(ctx context.Context, page, limit int) ([]RuleResponse, int64, error)
	CreateRule(ctx context.Context, req CreateRuleRequest, userID string) (RuleResponse, error)
	UpdateRule(ctx context.Context, id string, req CreateRuleRequest, userID string) (RuleResponse, error)
	DeleteRule(ctx context.Context, id string, userID string) error

	UpsertTaxRate(ctx context.Context, req UpsertTaxRateRequest, userID string) (*model.TaxRate, error)
	UpsertPenaltyRule(ctx context.Context, req UpsertPenaltyRuleRequest, userID string) (*model.InterestPenaltyRule, error)
	UpsertVDAProgram(ctx context.Context, req UpsertVDAProgramRequest, userID string) (*model.VDAProgram, error)
	ListTaxRates(ctx context.Context) ([]model.TaxRate, error)
	ListPenaltyRules(ctx context.Context) ([]model.InterestPenaltyRule, error)
	ListVDAPrograms(ctx context.Context) ([]model.VDAProgram, error)
}

type ruleService struct {
	rules repository.RuleRepository
	audit repository.AuditRepository
}

func NewRuleService(rules repository.RuleRepository, audit repository.AuditRepository) RuleService {
	return &ruleService{rules: rules, audit: audit}
}

// --- Implementation ---

func (s *ruleService) ListRules(ctx context.Context, page, limit int) ([]RuleResponse, int64, error) {
	rules, total, err := s.rules.ListRules(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch nexus rules: %w", err)
	}

	res := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toRuleResponse(r))
	}
	return res, total, nil
}

func (s *ruleService) CreateRule(ctx context.Context, req CreateRuleRequest, userID string) (RuleResponse, error) {
	rule, err := ruleFromRequest(req)
	if err != nil {
		return RuleResponse{}, err
	}

	if err := s.checkOverlap(ctx, rule, nil); err != nil {
		return RuleResponse{}, err
	}

	if err := s.rules.CreateRule(ctx, rule); err != nil {
		return RuleResponse{}, fmt.Errorf("failed to create nexus rule: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionCreateNexusRule, rule.ID.String(), rule.Jurisdiction, req)
	return toRuleResponse(*rule), nil
}

func (s *ruleService) UpdateRule(ctx context.Context, id string, req CreateRuleRequest, userID string) (RuleResponse, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return RuleResponse{}, fmt.Errorf("invalid rule id: %w", err)
	}

	existing, err := s.rules.FindRuleByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RuleResponse{}, fmt.Errorf("nexus rule not found")
		}
		return RuleResponse{}, fmt.Errorf("failed to fetch nexus rule: %w", err)
	}

	updated, err := ruleFromRequest(req)
	if err != nil {
		return RuleResponse{}, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := s.checkOverlap(ctx, updated, &ruleID); err != nil {
		return RuleResponse{}, err
	}

	if err := s.rules.UpdateRule(ctx, updated); err != nil {
		return RuleResponse{}, fmt.Errorf("failed to update nexus rule: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionUpdateNexusRule, updated.ID.String(), updated.Jurisdiction, req)
	return toRuleResponse(*updated), nil
}

func (s *ruleService) DeleteRule(ctx context.Context, id string, userID string) error {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid rule id: %w", err)
	}

	rule, err := s.rules.FindRuleByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("nexus rule not found")
		}
		return fmt.Errorf("failed to fetch nexus rule: %w", err)
	}

	if err := s.rules.DeleteRule(ctx, ruleID); err != nil {
		return fmt.Errorf("failed to delete nexus rule: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionDeleteNexusRule, rule.ID.String(), rule.Jurisdiction, map[string]string{"deleted_id": id})
	return nil
}

func (s *ruleService) UpsertTaxRate(ctx context.Context, req UpsertTaxRateRequest, userID string) (*model.TaxRate, error) {
	stateRate, err := decimal.NewFromString(req.StateRate)
	if err != nil {
		return nil, fmt.Errorf("invalid state_rate: %w", err)
	}
	localRate := decimal.Zero
	if req.AvgLocalRate != "" {
		localRate, err = decimal.NewFromString(req.AvgLocalRate)
		if err != nil {
			return nil, fmt.Errorf("invalid avg_local_rate: %w", err)
		}
	}

	rate := &model.TaxRate{
		Jurisdiction: req.Jurisdiction,
		StateRate:    stateRate,
		AvgLocalRate: localRate,
		CombinedRate: stateRate.Add(localRate),
	}
	if err := s.rules.UpsertTaxRate(ctx, rate); err != nil {
		return nil, fmt.Errorf("failed to upsert tax rate: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionUpsertTaxRate, rate.ID.String(), req.Jurisdiction, req)
	return rate, nil
}

func (s *ruleService) UpsertPenaltyRule(ctx context.Context, req UpsertPenaltyRuleRequest, userID string) (*model.InterestPenaltyRule, error) {
	interestRate, err := decimal.NewFromString(req.AnnualInterestRate)
	if err != nil {
		return nil, fmt.Errorf("invalid annual_interest_rate: %w", err)
	}
	penaltyRate, err := decimal.NewFromString(req.PenaltyRate)
	if err != nil {
		return nil, fmt.Errorf("invalid penalty_rate: %w", err)
	}

	rule := &model.InterestPenaltyRule{
		Jurisdiction:       req.Jurisdiction,
		AnnualInterestRate: interestRate,
		InterestMethod:     req.InterestMethod,
		PenaltyRate:        penaltyRate,
		PenaltyBasis:       req.PenaltyBasis,
		GreaterOfMinimum:   req.GreaterOfMinimum,
		Notes:              req.Notes,
	}
	if rule.PenaltyMinimum, err = parseOptionalDecimal(req.PenaltyMinimum, "penalty_minimum"); err != nil {
		return nil, err
	}
	if rule.PenaltyMaximum, err = parseOptionalDecimal(req.PenaltyMaximum, "penalty_maximum"); err != nil {
		return nil, err
	}

	if err := s.rules.UpsertInterestPenaltyRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to upsert interest/penalty rule: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionUpsertPenalty, rule.ID.String(), req.Jurisdiction, req)
	return rule, nil
}

func (s *ruleService) UpsertVDAProgram(ctx context.Context, req UpsertVDAProgramRequest, userID string) (*model.VDAProgram, error) {
	interestWaived := decimal.Zero
	penaltiesWaived := decimal.New(1, 0)
	var err error

	if req.InterestWaived != "" {
		if interestWaived, err = decimal.NewFromString(req.InterestWaived); err != nil {
			return nil, fmt.Errorf("invalid interest_waived: %w", err)
		}
	}
	if req.PenaltiesWaived != "" {
		if penaltiesWaived, err = decimal.NewFromString(req.PenaltiesWaived); err != nil {
			return nil, fmt.Errorf("invalid penalties_waived: %w", err)
		}
	}

	program := &model.VDAProgram{
		Jurisdiction:    req.Jurisdiction,
		LookbackMonths:  req.LookbackMonths,
		InterestWaived:  interestWaived,
		PenaltiesWaived: penaltiesWaived,
		Notes:           req.Notes,
	}
	if err := s.rules.UpsertVDAProgram(ctx, program); err != nil {
		return nil, fmt.Errorf("failed to upsert VDA program: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionUpsertVDA, program.ID.String(), req.Jurisdiction, req)
	return program, nil
}

func (s *ruleService) ListTaxRates(ctx context.Context) ([]model.TaxRate, error) {
	return s.rules.ListTaxRates(ctx)
}

func (s *ruleService) ListPenaltyRules(ctx context.Context) ([]model.InterestPenaltyRule, error) {
	return s.rules.ListInterestPenaltyRules(ctx)
}

func (s *ruleService) ListVDAPrograms(ctx context.Context) ([]model.VDAProgram, error) {
	return s.rules.ListVDAPrograms(ctx)
}

// --- Helpers ---

func ruleFromRequest(req CreateRuleRequest) (*model.JurisdictionRule, error) {
	if req.RevenueThreshold == "" && req.TransactionThreshold == nil {
		return nil, fmt.Errorf("at least one of revenue_threshold or transaction_threshold is required")
	}

	effectiveFrom, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		return nil, fmt.Errorf("invalid effective_from date format (expected YYYY-MM-DD): %w", err)
	}

	var effectiveTo *time.Time
	if req.EffectiveTo != "" {
		t, err := time.Parse("2006-01-02", req.EffectiveTo)
		if err != nil {
			return nil, fmt.Errorf("invalid effective_to date format (expected YYYY-MM-DD): %w", err)
		}
		effectiveTo = &t
	}

	rule := &model.JurisdictionRule{
		Jurisdiction:         req.Jurisdiction,
		TransactionThreshold: req.TransactionThreshold,
		ThresholdOperator:    req.ThresholdOperator,
		LookbackMethod:       req.LookbackMethod,
		MarketplaceCounted:   req.MarketplaceCounted == nil || *req.MarketplaceCounted,
		EffectiveFrom:        effectiveFrom,
		EffectiveTo:          effectiveTo,
		Notes:                req.Notes,
	}

	if req.RevenueThreshold != "" {
		threshold, err := decimal.NewFromString(req.RevenueThreshold)
		if err != nil {
			return nil, fmt.Errorf("invalid revenue_threshold: %w", err)
		}
		rule.RevenueThreshold = &threshold
	}

	return rule, nil
}

func (s *ruleService) checkOverlap(ctx context.Context, rule *model.JurisdictionRule, excludeID *uuid.UUID) error {
	count, err := s.rules.FindOverlappingRules(ctx, rule.Jurisdiction, rule.EffectiveFrom, rule.EffectiveTo, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("a nexus rule for '%s' already exists with overlapping effective dates", rule.Jurisdiction)
	}
	return nil
}

func parseOptionalDecimal(s *string, field string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return &d, nil
}

func toRuleResponse(r model.JurisdictionRule) RuleResponse {
	resp := RuleResponse{
		ID:                   r.ID.String(),
		Jurisdiction:         r.Jurisdiction,
		TransactionThreshold: r.TransactionThreshold,
		ThresholdOperator:    r.ThresholdOperator,
		LookbackMethod:       r.LookbackMethod,
		MarketplaceCounted:   r.MarketplaceCounted,
		EffectiveFrom:        r.EffectiveFrom.Format("2006-01-02"),
		Notes:                r.Notes,
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
	}
	if r.RevenueThreshold != nil {
		s := r.RevenueThreshold.StringFixed(2)
		resp.RevenueThreshold = &s
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &s
	}
	return resp
}

func (s *ruleService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
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
