package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
)

type ReportPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewReportPostgreSQL(db *gorm.DB) repositories.ReportRepository {
	return &ReportPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *ReportPostgreSQL) Create(ctx context.Context, tx *gorm.DB, report *models.Report) error {
	db := r.helpers.getDB(tx)
	return db.WithContext(ctx).Create(report).Error
}

func (r *ReportPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Report, error) {
	db := r.helpers.getDB(tx)
	var report models.Report
	if err := db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportPostgreSQL) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.Report, int64, error) {
	db := r.helpers.getDB(tx)
	var reports []*models.Report
	var total int64

	if err := db.WithContext(ctx).Model(&models.Report{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := applyPagination(db.WithContext(ctx), limit, offset)
	if err := query.Order("created_at desc").Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}
