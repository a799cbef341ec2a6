package repository

import (
	"errors"
	"fmt"

	"traffic-watch-go/internal/core/models"

	"gorm.io/gorm"
)

// CropRepository definiert die Datenbank-Operationen für gespeicherte Crops
type CropRepository interface {
	Save(crop *models.Crop) error
	GetByID(id uint) (*models.Crop, error)
	ListForSource(camera, filename string) ([]models.Crop, error)
	ListAll(limit, offset int) ([]models.Crop, error)
	ListFiltered(filters models.CropFilters, limit, offset int) ([]models.FilteredCrop, error)
	CountFiltered(filters models.CropFilters) (int64, error)
	Delete(id uint) (bool, error)
}

// SQLiteCropRepository implementiert CropRepository für SQLite
type SQLiteCropRepository struct {
	db *gorm.DB
}

// NewCropRepository erstellt eine neue Crop-Repository-Instanz
func NewCropRepository(db *gorm.DB) *SQLiteCropRepository {
	return &SQLiteCropRepository{db: db}
}

// Save validates the geometry invariants and inserts a new crop record.
// Records are immutable after insertion.
func (r *SQLiteCropRepository) Save(crop *models.Crop) error {
	if crop.ClickX < 0 || crop.ClickX > 1 || crop.ClickY < 0 || crop.ClickY > 1 {
		return fmt.Errorf("%w: click point (%v,%v) outside [0,1]", ErrValidation, crop.ClickX, crop.ClickY)
	}
	if crop.OriginalWidth <= 0 || crop.OriginalHeight <= 0 {
		return fmt.Errorf("%w: image dimensions %dx%d", ErrValidation, crop.OriginalWidth, crop.OriginalHeight)
	}
	if err := crop.ValidateGeometry(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return r.db.Create(crop).Error
}

// GetByID holt einen Crop anhand seiner ID
func (r *SQLiteCropRepository) GetByID(id uint) (*models.Crop, error) {
	var crop models.Crop
	if err := r.db.First(&crop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: crop %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &crop, nil
}

// ListForSource returns every crop derived from one source image,
// most recently saved first.
func (r *SQLiteCropRepository) ListForSource(camera, filename string) ([]models.Crop, error) {
	var crops []models.Crop
	err := r.db.
		Where("original_camera = ? AND original_filename = ?", camera, filename).
		Order("saved_at DESC").
		Find(&crops).Error
	if err != nil {
		return nil, err
	}
	return crops, nil
}

// ListAll holt Crops mit Pagination, neueste zuerst
func (r *SQLiteCropRepository) ListAll(limit, offset int) ([]models.Crop, error) {
	var crops []models.Crop
	err := r.db.
		Order("saved_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&crops).Error
	if err != nil {
		return nil, err
	}
	return crops, nil
}

// ListFiltered returns a page of crops left-joined with their review
// fields, newest saved first, under the dashboard filter set.
func (r *SQLiteCropRepository) ListFiltered(filters models.CropFilters, limit, offset int) ([]models.FilteredCrop, error) {
	var crops []models.FilteredCrop
	tx := applyCropFilters(cropReviewJoin(r.db), filters).
		Select("sc.*, cr.notes, cr.is_jonathan, cr.activities, cr.top_clothing, cr.reviewed_at").
		Order("sc.saved_at DESC").
		Limit(limit).
		Offset(offset)
	if err := tx.Find(&crops).Error; err != nil {
		return nil, err
	}
	return crops, nil
}

// CountFiltered counts under the identical filter composition as
// ListFiltered so pagination totals stay in lock-step.
func (r *SQLiteCropRepository) CountFiltered(filters models.CropFilters) (int64, error) {
	var total int64
	tx := applyCropFilters(cropReviewJoin(r.db), filters)
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Delete removes a crop together with its review and any factor
// assignments in one transaction. Returns true iff a crop row was
// removed.
func (r *SQLiteCropRepository) Delete(id uint) (bool, error) {
	deleted := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var review models.Review
		err := tx.Where("crop_id = ?", id).First(&review).Error
		switch {
		case err == nil:
			if err := tx.Where("review_id = ?", review.ID).Delete(&models.ReviewPositiveFactor{}).Error; err != nil {
				return fmt.Errorf("failed to delete positive assignments for crop %d: %w", id, err)
			}
			if err := tx.Where("review_id = ?", review.ID).Delete(&models.ReviewNegativeFactor{}).Error; err != nil {
				return fmt.Errorf("failed to delete negative assignments for crop %d: %w", id, err)
			}
			if err := tx.Delete(&review).Error; err != nil {
				return fmt.Errorf("failed to delete review for crop %d: %w", id, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No review, nothing to cascade.
		default:
			return fmt.Errorf("failed to look up review for crop %d: %w", id, err)
		}

		result := tx.Delete(&models.Crop{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete crop %d: %w", id, result.Error)
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
