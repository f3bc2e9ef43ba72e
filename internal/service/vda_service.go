package service

import (
	"context"
	"fmt"
	"time"

	"nexustax/internal/engine"
	"nexustax/internal/repository"

	"github.com/google/uuid"
)

type VDAService interface {
	// Compare recomputes a jurisdiction's stored liability under its VDA
	// program terms and returns both scenarios side by side.
	Compare(ctx context.Context, studyID, jurisdiction, asOfDate string) (*engine.VDAComparison, error)
}

type vdaService struct {
	rules   repository.RuleRepository
	results repository.ResultRepository
}

func NewVDAService(rules repository.RuleRepository, results repository.ResultRepository) VDAService {
	return &vdaService{rules: rules, results: results}
}

func (s *vdaService) Compare(ctx context.Context, studyID, jurisdiction, asOfDate string) (*engine.VDAComparison, error) {
	id, err := uuid.Parse(studyID)
	if err != nil {
		return nil, fmt.Errorf("invalid study id: %w", err)
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if asOfDate != "" {
		asOf, err = time.Parse("2006-01-02", asOfDate)
		if err != nil {
			return nil, fmt.Errorf("invalid as_of date (expected YYYY-MM-DD): %w", err)
		}
	}

	program, err := s.rules.VDAProgram(ctx, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch VDA program: %w", err)
	}
	if program == nil {
		return nil, fmt.Errorf("no VDA program configured for '%s'", jurisdiction)
	}

	results, err := s.results.ListByStudyAndJurisdiction(ctx, id, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no calculated results for '%s' — run the calculation first", jurisdiction)
	}

	cmp := engine.CompareVDA(jurisdiction, results, program, asOf)
	return &cmp, nil
}
