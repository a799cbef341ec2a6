package repository

import (
	"errors"
	"fmt"
	"time"

	"traffic-watch-go/internal/core/models"

	"gorm.io/gorm"
)

// ReviewInput carries one review submission. Absent optional fields are
// stored as NULL: the upsert has full-replace semantics, not patch
// semantics.
type ReviewInput struct {
	Notes       string
	IsJonathan  *string
	Activities  []string
	TopClothing *string
	ReviewerID  string
	ReviewedAt  time.Time
}

// ReviewRepository definiert die Datenbank-Operationen für Crop-Reviews
type ReviewRepository interface {
	Upsert(cropID uint, input ReviewInput) (*models.Review, error)
	UpsertWithFactors(cropID uint, input ReviewInput, positiveIDs, negativeIDs []uint) (*models.Review, error)
	GetByCropID(cropID uint) (*models.Review, error)
	ListUnreviewed(limit int) ([]models.Crop, error)
	ListReviewed(limit int) ([]models.FilteredCrop, error)
	MostRecent() (*models.Crop, error)
	Stats() (models.ReviewStats, error)
}

// SQLiteReviewRepository implementiert ReviewRepository für SQLite
type SQLiteReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository erstellt eine neue Review-Repository-Instanz
func NewReviewRepository(db *gorm.DB) *SQLiteReviewRepository {
	return &SQLiteReviewRepository{db: db}
}

// Upsert inserts the review for a crop or replaces every field of the
// existing one. Vocabulary membership is checked before any write.
func (r *SQLiteReviewRepository) Upsert(cropID uint, input ReviewInput) (*models.Review, error) {
	var review models.Review
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return upsertReview(tx, cropID, input, &review)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// UpsertWithFactors speichert Review und Factor-Zuordnungen in einer
// Transaktion
func (r *SQLiteReviewRepository) UpsertWithFactors(cropID uint, input ReviewInput, positiveIDs, negativeIDs []uint) (*models.Review, error) {
	var review models.Review
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertReview(tx, cropID, input, &review); err != nil {
			return err
		}
		return replaceAssignments(tx, review.ID, positiveIDs, negativeIDs)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// upsertReview holds the create-or-full-replace logic shared by both
// upsert entry points. Runs inside the caller's transaction.
func upsertReview(tx *gorm.DB, cropID uint, input ReviewInput, review *models.Review) error {
	isJonathan, err := normalizeEnum(input.IsJonathan, models.ValidJonathan, "is_jonathan")
	if err != nil {
		return err
	}
	topClothing, err := normalizeEnum(input.TopClothing, models.ValidClothing, "top_clothing")
	if err != nil {
		return err
	}

	encoded, err := models.EncodeActivities(input.Activities)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var activities *string
	if encoded != "" {
		activities = &encoded
	}

	reviewedAt := input.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = time.Now()
	}

	var crop models.Crop
	if err := tx.First(&crop, cropID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: crop %d", ErrNotFound, cropID)
		}
		return err
	}

	err = tx.Where("crop_id = ?", cropID).First(review).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		*review = models.Review{
			CropID:       cropID,
			Notes:        input.Notes,
			IsJonathan:   isJonathan,
			Activities:   activities,
			TopClothing:  topClothing,
			ReviewedByIP: input.ReviewerID,
			ReviewedAt:   reviewedAt,
		}
		return tx.Create(review).Error
	case err != nil:
		return err
	}

	// Full replace: unsupplied fields become NULL.
	updates := map[string]interface{}{
		"notes":          input.Notes,
		"is_jonathan":    isJonathan,
		"activities":     activities,
		"top_clothing":   topClothing,
		"reviewed_by_ip": input.ReviewerID,
		"reviewed_at":    reviewedAt,
	}
	if err := tx.Model(review).Updates(updates).Error; err != nil {
		return err
	}
	return tx.Where("crop_id = ?", cropID).First(review).Error
}

// GetByCropID holt das Review für einen Crop; nil wenn keines existiert
func (r *SQLiteReviewRepository) GetByCropID(cropID uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.Where("crop_id = ?", cropID).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

// ListUnreviewed returns displayable crops still waiting for
// classification, oldest saved first. Synthetic test records and
// records without storage locator fields are excluded. A crop whose
// review row exists but carries no content still counts as unreviewed.
func (r *SQLiteReviewRepository) ListUnreviewed(limit int) ([]models.Crop, error) {
	var crops []models.Crop
	err := cropReviewJoin(r.db).
		Select("sc.*").
		Where(cropUnreviewedExpr).
		Where(notTestDataExpr).
		Where("sc.crop_folder <> '' AND sc.crop_filename <> ''").
		Order("sc.saved_at ASC").
		Limit(limit).
		Find(&crops).Error
	if err != nil {
		return nil, err
	}
	return crops, nil
}

// ListReviewed returns crops with a non-empty review, most recently
// reviewed first, with the review fields joined in.
func (r *SQLiteReviewRepository) ListReviewed(limit int) ([]models.FilteredCrop, error) {
	var crops []models.FilteredCrop
	err := r.db.Table("saved_crops sc").
		Joins("INNER JOIN crop_reviews cr ON cr.crop_id = sc.id").
		Select("sc.*, cr.notes, cr.is_jonathan, cr.activities, cr.top_clothing, cr.reviewed_at").
		Where(reviewClassifiedExpr).
		Order("cr.reviewed_at DESC").
		Limit(limit).
		Find(&crops).Error
	if err != nil {
		return nil, err
	}
	return crops, nil
}

// MostRecent returns the newest saved non-test crop regardless of
// review status; nil when the table holds no displayable crop. Used as
// the fallback display when no unreviewed crops remain.
func (r *SQLiteReviewRepository) MostRecent() (*models.Crop, error) {
	var crop models.Crop
	err := r.db.Table("saved_crops sc").
		Where(notTestDataExpr).
		Where("sc.crop_folder <> '' AND sc.crop_filename <> ''").
		Order("sc.saved_at DESC").
		First(&crop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &crop, nil
}

// Stats liefert die Review-Fortschritts-Zählungen für das Dashboard
func (r *SQLiteReviewRepository) Stats() (models.ReviewStats, error) {
	var stats models.ReviewStats

	if err := r.db.Model(&models.Crop{}).Count(&stats.TotalCrops).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.Review{}).Count(&stats.TotalReviews).Error; err != nil {
		return stats, err
	}

	// Classified means the review carries content, matching the listing
	// predicate, so the dashboard numbers agree with the review queue.
	if err := cropReviewJoin(r.db).Where(cropReviewedExpr).Count(&stats.ClassifiedCrops).Error; err != nil {
		return stats, err
	}

	// Never reviewed counts only real crops without any review row.
	err := cropReviewJoin(r.db).
		Where("cr.id IS NULL").
		Where(notTestDataExpr).
		Count(&stats.NeverReviewed).Error
	if err != nil {
		return stats, err
	}

	// Review rows that exist but carry no content yet.
	err = r.db.Table("crop_reviews cr").
		Where("NOT " + reviewClassifiedExpr).
		Count(&stats.PartialReviews).Error
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// normalizeEnum maps empty values to NULL and rejects values outside
// the vocabulary.
func normalizeEnum(value *string, valid func(string) bool, field string) (*string, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	if !valid(*value) {
		return nil, fmt.Errorf("%w: %s value %q not in vocabulary", ErrValidation, field, *value)
	}
	return value, nil
}
