package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
)

type DocumentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewDocumentPostgreSQL(db *gorm.DB) repositories.DocumentRepository {
	return &DocumentPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *DocumentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, doc *models.Document) error {
	db := r.helpers.getDB(tx)
	return db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Document, error) {
	db := r.helpers.getDB(tx)
	var doc models.Document
	if err := db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.DocumentFilters) ([]*models.Document, int64, error) {
	db := r.helpers.getDB(tx)
	var docs []*models.Document
	var total int64

	query := db.WithContext(ctx).Model(&models.Document{})
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filters.Limit, filters.Offset)
	if err := query.Order("uploaded_at desc").Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *DocumentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.helpers.getDB(tx)
	return db.WithContext(ctx).Delete(&models.Document{}, id).Error
}
