package repository

import (
	"errors"
	"fmt"
	"strings"

	"traffic-watch-go/internal/core/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FactorRepository definiert Katalog- und Zuordnungs-Operationen für Factors
type FactorRepository interface {
	Create(name, factorType, description string) (*models.Factor, error)
	Update(id uint, name, factorType, description string) error
	Delete(id uint) (bool, error)
	GetByID(id uint) (*models.Factor, error)
	ListAll() ([]models.Factor, error)
	ListByType(factorType string) ([]models.Factor, error)

	Assign(reviewID, factorID uint, polarity string) error
	Unassign(reviewID, factorID uint) error
	ListPositive(reviewID uint) ([]models.Factor, error)
	ListNegative(reviewID uint) ([]models.Factor, error)
	ListAllWithSelection(reviewID uint) ([]models.FactorWithSelection, error)
	ReplaceAll(reviewID uint, positiveIDs, negativeIDs []uint) error
}

// SQLiteFactorRepository implementiert FactorRepository für SQLite
type SQLiteFactorRepository struct {
	db *gorm.DB
}

// NewFactorRepository erstellt eine neue Factor-Repository-Instanz
func NewFactorRepository(db *gorm.DB) *SQLiteFactorRepository {
	return &SQLiteFactorRepository{db: db}
}

// Create legt einen neuen Factor im Katalog an
func (r *SQLiteFactorRepository) Create(name, factorType, description string) (*models.Factor, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: factor name is required", ErrValidation)
	}
	if !models.ValidFactorType(factorType) {
		return nil, fmt.Errorf("%w: factor type must be %q or %q, got %q",
			ErrValidation, models.FactorTypePositive, models.FactorTypeNegative, factorType)
	}

	factor := models.Factor{Name: name, Type: factorType, Description: description}
	if err := r.db.Create(&factor).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: factor named %q already exists", ErrConflict, name)
		}
		return nil, err
	}
	return &factor, nil
}

// Update überschreibt Name, Typ und Beschreibung eines Factors
func (r *SQLiteFactorRepository) Update(id uint, name, factorType, description string) error {
	if name == "" {
		return fmt.Errorf("%w: factor name is required", ErrValidation)
	}
	if !models.ValidFactorType(factorType) {
		return fmt.Errorf("%w: factor type must be %q or %q, got %q",
			ErrValidation, models.FactorTypePositive, models.FactorTypeNegative, factorType)
	}

	result := r.db.Model(&models.Factor{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":        name,
			"type":        factorType,
			"description": description,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return fmt.Errorf("%w: factor named %q already exists", ErrConflict, name)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: factor %d", ErrNotFound, id)
	}
	return nil
}

// Delete removes a factor and cascades through both assignment
// relations in one transaction. Returns true iff a factor was removed.
func (r *SQLiteFactorRepository) Delete(id uint) (bool, error) {
	deleted := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("factor_id = ?", id).Delete(&models.ReviewPositiveFactor{}).Error; err != nil {
			return fmt.Errorf("failed to delete positive assignments for factor %d: %w", id, err)
		}
		if err := tx.Where("factor_id = ?", id).Delete(&models.ReviewNegativeFactor{}).Error; err != nil {
			return fmt.Errorf("failed to delete negative assignments for factor %d: %w", id, err)
		}
		result := tx.Delete(&models.Factor{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete factor %d: %w", id, result.Error)
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// GetByID holt einen Factor anhand seiner ID
func (r *SQLiteFactorRepository) GetByID(id uint) (*models.Factor, error) {
	var factor models.Factor
	if err := r.db.First(&factor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: factor %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &factor, nil
}

// ListAll holt den gesamten Katalog, sortiert nach Typ und Name
func (r *SQLiteFactorRepository) ListAll() ([]models.Factor, error) {
	var factors []models.Factor
	if err := r.db.Order("type, name").Find(&factors).Error; err != nil {
		return nil, err
	}
	return factors, nil
}

// ListByType holt alle Factors einer Polarität, sortiert nach Name
func (r *SQLiteFactorRepository) ListByType(factorType string) ([]models.Factor, error) {
	if !models.ValidFactorType(factorType) {
		return nil, fmt.Errorf("%w: factor type must be %q or %q, got %q",
			ErrValidation, models.FactorTypePositive, models.FactorTypeNegative, factorType)
	}
	var factors []models.Factor
	if err := r.db.Where("type = ?", factorType).Order("name").Find(&factors).Error; err != nil {
		return nil, err
	}
	return factors, nil
}

// Assign marks a factor for a review with the given polarity. Any
// existing assignment of the opposite polarity for the same pair is
// removed first; re-asserting the same polarity is a no-op.
func (r *SQLiteFactorRepository) Assign(reviewID, factorID uint, polarity string) error {
	if !models.ValidFactorType(polarity) {
		return fmt.Errorf("%w: polarity must be %q or %q, got %q",
			ErrValidation, models.FactorTypePositive, models.FactorTypeNegative, polarity)
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if polarity == models.FactorTypePositive {
			if err := tx.Where("review_id = ? AND factor_id = ?", reviewID, factorID).
				Delete(&models.ReviewNegativeFactor{}).Error; err != nil {
				return err
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.ReviewPositiveFactor{ReviewID: reviewID, FactorID: factorID}).Error
		}

		if err := tx.Where("review_id = ? AND factor_id = ?", reviewID, factorID).
			Delete(&models.ReviewPositiveFactor{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ReviewNegativeFactor{ReviewID: reviewID, FactorID: factorID}).Error
	})
}

// Unassign removes the pair from both polarity relations. Idempotent.
func (r *SQLiteFactorRepository) Unassign(reviewID, factorID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ? AND factor_id = ?", reviewID, factorID).
			Delete(&models.ReviewPositiveFactor{}).Error; err != nil {
			return err
		}
		return tx.Where("review_id = ? AND factor_id = ?", reviewID, factorID).
			Delete(&models.ReviewNegativeFactor{}).Error
	})
}

// ListPositive holt die positiv zugeordneten Factors eines Reviews
func (r *SQLiteFactorRepository) ListPositive(reviewID uint) ([]models.Factor, error) {
	return r.listAssigned(reviewID, "review_positive_factors")
}

// ListNegative holt die negativ zugeordneten Factors eines Reviews
func (r *SQLiteFactorRepository) ListNegative(reviewID uint) ([]models.Factor, error) {
	return r.listAssigned(reviewID, "review_negative_factors")
}

func (r *SQLiteFactorRepository) listAssigned(reviewID uint, joinTable string) ([]models.Factor, error) {
	var factors []models.Factor
	err := r.db.Table("factors f").
		Joins(fmt.Sprintf("INNER JOIN %s a ON a.factor_id = f.id", joinTable)).
		Where("a.review_id = ?", reviewID).
		Select("f.*").
		Order("f.name").
		Find(&factors).Error
	if err != nil {
		return nil, err
	}
	return factors, nil
}

// ListAllWithSelection returns the full catalog annotated with each
// factor's selection state for one review, so a tag picker renders
// from a single call.
func (r *SQLiteFactorRepository) ListAllWithSelection(reviewID uint) ([]models.FactorWithSelection, error) {
	factors, err := r.ListAll()
	if err != nil {
		return nil, err
	}

	positive, negative, err := r.assignedIDs(r.db, reviewID)
	if err != nil {
		return nil, err
	}

	result := make([]models.FactorWithSelection, 0, len(factors))
	for _, f := range factors {
		selection := models.SelectionNone
		if positive[f.ID] {
			selection = models.SelectionPositive
		} else if negative[f.ID] {
			selection = models.SelectionNegative
		}
		result = append(result, models.FactorWithSelection{Factor: f, Selection: selection})
	}
	return result, nil
}

// ReplaceAll atomically replaces the review's entire assignment set:
// clear both relations, insert negatives, then positives. Overlapping
// ids are not rejected; the fixed insertion order means a factor listed
// in both sets ends up positive.
func (r *SQLiteFactorRepository) ReplaceAll(reviewID uint, positiveIDs, negativeIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return replaceAssignments(tx, reviewID, positiveIDs, negativeIDs)
	})
}

// replaceAssignments runs the replace-all inside the caller's
// transaction, shared with the combined review-save path.
func replaceAssignments(tx *gorm.DB, reviewID uint, positiveIDs, negativeIDs []uint) error {
	if err := tx.Where("review_id = ?", reviewID).Delete(&models.ReviewPositiveFactor{}).Error; err != nil {
		return fmt.Errorf("failed to clear positive assignments for review %d: %w", reviewID, err)
	}
	if err := tx.Where("review_id = ?", reviewID).Delete(&models.ReviewNegativeFactor{}).Error; err != nil {
		return fmt.Errorf("failed to clear negative assignments for review %d: %w", reviewID, err)
	}

	for _, factorID := range negativeIDs {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ReviewNegativeFactor{ReviewID: reviewID, FactorID: factorID}).Error; err != nil {
			return fmt.Errorf("failed to assign negative factor %d: %w", factorID, err)
		}
	}
	for _, factorID := range positiveIDs {
		if err := tx.Where("review_id = ? AND factor_id = ?", reviewID, factorID).
			Delete(&models.ReviewNegativeFactor{}).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ReviewPositiveFactor{ReviewID: reviewID, FactorID: factorID}).Error; err != nil {
			return fmt.Errorf("failed to assign positive factor %d: %w", factorID, err)
		}
	}
	return nil
}

func (r *SQLiteFactorRepository) assignedIDs(tx *gorm.DB, reviewID uint) (map[uint]bool, map[uint]bool, error) {
	var positiveRows []models.ReviewPositiveFactor
	if err := tx.Where("review_id = ?", reviewID).Find(&positiveRows).Error; err != nil {
		return nil, nil, err
	}
	var negativeRows []models.ReviewNegativeFactor
	if err := tx.Where("review_id = ?", reviewID).Find(&negativeRows).Error; err != nil {
		return nil, nil, err
	}

	positive := make(map[uint]bool, len(positiveRows))
	for _, row := range positiveRows {
		positive[row.FactorID] = true
	}
	negative := make(map[uint]bool, len(negativeRows))
	for _, row := range negativeRows {
		negative[row.FactorID] = true
	}
	return positive, negative, nil
}

// isUniqueViolation recognises the sqlite unique-index failure surfaced
// through gorm.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
