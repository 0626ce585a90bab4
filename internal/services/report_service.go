package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

// reportPayload is the stored snapshot shape for both report types. The
// overview block is filled for completion reports only.
type reportPayload struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	Overview    *repositories.OverviewStats `json:"overview,omitempty"`
	Modules     []*repositories.ModuleStats `json:"modules"`
}

type reportService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewReportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) ReportService {
	return &reportService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// Generate aggregates the current dashboard numbers into an immutable
// snapshot row, so exports and audits see the figures as they were.
func (s *reportService) Generate(ctx context.Context, req *CreateReportRequest, actorID uint) (*models.Report, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	modules, err := s.repo.Dashboard().ListModuleStats(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate module stats: %w", err)
	}

	payload := reportPayload{GeneratedAt: time.Now().UTC(), Modules: modules}
	if models.ReportType(req.Type) == models.ReportCompletion {
		overview, err := s.repo.Dashboard().GetOverview(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate overview: %w", err)
		}
		payload.Overview = overview
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report payload: %w", err)
	}

	report := &models.Report{
		Type:        models.ReportType(req.Type),
		Description: req.Description,
		Payload:     raw,
		CreatedBy:   actorID,
	}
	if err := s.repo.Report().Create(ctx, nil, report); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	s.logger.Info("Report generated", "report_id", report.ID, "type", req.Type, "actor_id", actorID)
	return report, nil
}

func (s *reportService) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	report, err := s.repo.Report().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (s *reportService) List(ctx context.Context, limit, offset int) (*ReportListResponse, error) {
	reports, total, err := s.repo.Report().List(ctx, nil, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return &ReportListResponse{Reports: reports, Total: total}, nil
}

// ExportXLSX renders a stored report as a spreadsheet for HR handover.
func (s *reportService) ExportXLSX(ctx context.Context, id uint) ([]byte, string, error) {
	report, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	var payload reportPayload
	if err := json.Unmarshal(report.Payload, &payload); err != nil {
		return nil, "", ErrReportNotExportable
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Modules"
	f.SetSheetName("Sheet1", sheet)

	headers := []interface{}{"Module", "Assigned", "Not Started", "In Progress", "Completed", "Completion Rate (%)", "Average Score"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, "", fmt.Errorf("failed to write header row: %w", err)
	}

	for i, m := range payload.Modules {
		row := []interface{}{
			m.Title,
			m.AssignedCount,
			m.NotStartedCount,
			m.InProgressCount,
			m.CompletedCount,
			m.CompletionRate,
			m.AverageScore,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", fmt.Errorf("failed to write module row: %w", err)
		}
	}

	if payload.Overview != nil {
		overviewSheet := "Overview"
		if _, err := f.NewSheet(overviewSheet); err != nil {
			return nil, "", fmt.Errorf("failed to create overview sheet: %w", err)
		}
		rows := [][]interface{}{
			{"Total users", payload.Overview.TotalUsers},
			{"Onboarding users", payload.Overview.OnboardingUsers},
			{"Total modules", payload.Overview.TotalModules},
			{"Published modules", payload.Overview.PublishedModules},
			{"Total assignments", payload.Overview.TotalAssignments},
			{"Completed assignments", payload.Overview.CompletedAssignments},
			{"Completion rate (%)", payload.Overview.CompletionRate},
			{"Average score", payload.Overview.AverageScore},
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return nil, "", fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := f.SetSheetRow(overviewSheet, cell, &row); err != nil {
				return nil, "", fmt.Errorf("failed to write overview row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render spreadsheet: %w", err)
	}

	filename := fmt.Sprintf("%s-report-%d.xlsx", report.Type, report.ID)
	return buf.Bytes(), filename, nil
}
