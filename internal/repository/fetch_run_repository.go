package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/niaga-platform/service-finance/internal/models"
)

const maxListLimit = 100

// FetchRunRepository persists the fetch-run audit log.
type FetchRunRepository struct {
	db *gorm.DB
}

// NewFetchRunRepository creates a new fetch-run repository
func NewFetchRunRepository(db *gorm.DB) *FetchRunRepository {
	return &FetchRunRepository{db: db}
}

// Create inserts a fetch run.
func (r *FetchRunRepository) Create(ctx context.Context, run *models.FetchRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create fetch run: %w", err)
	}
	return nil
}

// ListRecent returns the newest fetch runs for a shop.
func (r *FetchRunRepository) ListRecent(ctx context.Context, shop string, limit int) ([]models.FetchRun, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	var runs []models.FetchRun
	err := r.db.WithContext(ctx).
		Where("shop = ?", shop).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list fetch runs: %w", err)
	}
	return runs, nil
}
