package service

import (
	"context"
	"fmt"

	"nexustax/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExposureService interface {
	GetExposureSummary(ctx context.Context, studyID string) (model.ExposureSummary, error)
}

type exposureService struct {
	db *gorm.DB
}

func NewExposureService(db *gorm.DB) ExposureService {
	return &exposureService{db: db}
}

// GetExposureSummary rolls a study's per-jurisdiction-year results up into
// dashboard totals, rankings, and per-year breakdowns.
func (s *exposureService) GetExposureSummary(ctx context.Context, studyID string) (model.ExposureSummary, error) {
	id, err := uuid.Parse(studyID)
	if err != nil {
		return model.ExposureSummary{}, fmt.Errorf("invalid study id: %w", err)
	}

	var response model.ExposureSummary
	response.StudyID = id.String()

	// Grand totals across every jurisdiction-year row
	var totals struct {
		Liability decimal.Decimal
		BaseTax   decimal.Decimal
		Interest  decimal.Decimal
		Penalties decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Table("jurisdiction_year_results").
		Select("COALESCE(SUM(estimated_liability), 0) as liability, COALESCE(SUM(base_tax), 0) as base_tax, COALESCE(SUM(interest), 0) as interest, COALESCE(SUM(penalties), 0) as penalties").
		Where("study_id = ?", id).
		Scan(&totals).Error; err != nil {
		return model.ExposureSummary{}, fmt.Errorf("failed to aggregate liability: %w", err)
	}
	response.TotalLiability = totals.Liability
	response.TotalBaseTax = totals.BaseTax
	response.TotalInterest = totals.Interest
	response.TotalPenalties = totals.Penalties

	// Jurisdiction counts by outcome
	var counts struct {
		Evaluated   int
		Nexus       int
		Approaching int
		RuleMissing int
	}
	if err := s.db.WithContext(ctx).Table("jurisdiction_year_results").
		Select("COUNT(DISTINCT jurisdiction) as evaluated, "+
			"COUNT(DISTINCT jurisdiction) FILTER (WHERE nexus_status = ?) as nexus, "+
			"COUNT(DISTINCT jurisdiction) FILTER (WHERE nexus_status = ?) as approaching, "+
			"COUNT(DISTINCT jurisdiction) FILTER (WHERE rule_missing) as rule_missing",
			model.NexusHasNexus, model.NexusApproaching).
		Where("study_id = ?", id).
		Scan(&counts).Error; err != nil {
		return model.ExposureSummary{}, fmt.Errorf("failed to count jurisdictions: %w", err)
	}
	response.JurisdictionsEvaluated = counts.Evaluated
	response.NexusJurisdictions = counts.Nexus
	response.ApproachingCount = counts.Approaching
	response.RuleMissingCount = counts.RuleMissing

	// Top jurisdictions by accumulated liability
	var top []model.ExposureRanking
	if err := s.db.WithContext(ctx).Table("jurisdiction_year_results").
		Select("jurisdiction, MIN(first_nexus_year) as first_nexus_year, SUM(taxable_sales) as taxable_sales, SUM(estimated_liability) as total_liability").
		Where("study_id = ? AND nexus_status = ?", id, model.NexusHasNexus).
		Group("jurisdiction").
		Order("total_liability DESC").
		Limit(10).
		Scan(&top).Error; err != nil {
		return model.ExposureSummary{}, fmt.Errorf("failed to rank jurisdictions: %w", err)
	}
	response.TopExposures = top

	// Per-year totals across all jurisdictions
	var years []model.ExposureYearTotals
	if err := s.db.WithContext(ctx).Table("jurisdiction_year_results").
		Select("year, SUM(estimated_liability) as total_liability, "+
			"COUNT(*) FILTER (WHERE nexus_status = ?) as nexus_count", model.NexusHasNexus).
		Where("study_id = ?", id).
		Group("year").
		Order("year ASC").
		Scan(&years).Error; err != nil {
		return model.ExposureSummary{}, fmt.Errorf("failed to aggregate years: %w", err)
	}
	response.YearsCovered = years

	// AsOfDate comes from the latest completed run, when one exists
	var run model.CalculationRun
	err = s.db.WithContext(ctx).
		Where("study_id = ? AND status = ?", id, model.RunCompleted).
		Order("started_at desc").
		First(&run).Error
	if err == nil {
		asOf := run.AsOfDate
		response.AsOfDate = &asOf
	}

	return response, nil
}
