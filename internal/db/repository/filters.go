package repository

import (
	"fmt"

	"traffic-watch-go/internal/core/models"

	"gorm.io/gorm"
)

// SQL predicates shared between the listing and counting paths. The
// dashboard's displayed totals must always match a subsequent filtered
// fetch, so both paths compose their WHERE clauses from the same
// builder below.

// reviewClassifiedExpr is the SQL form of models.Review.IsClassified:
// a review row counts only if it carries classification content.
const reviewClassifiedExpr = "(COALESCE(cr.notes, '') <> '' OR " +
	"COALESCE(cr.is_jonathan, '') <> '' OR " +
	"COALESCE(cr.top_clothing, '') <> '' OR " +
	"COALESCE(cr.activities, '') NOT IN ('', '[]', 'null'))"

const (
	cropReviewedExpr   = "(cr.id IS NOT NULL AND " + reviewClassifiedExpr + ")"
	cropUnreviewedExpr = "(cr.id IS NULL OR NOT " + reviewClassifiedExpr + ")"
)

// notTestDataExpr excludes synthetic crops created by integration
// scripts, identified by markers in the storage locator fields.
var notTestDataExpr = fmt.Sprintf(
	"(sc.crop_folder NOT LIKE '%%%s%%' AND sc.crop_filename NOT LIKE '%%%s%%')",
	models.TestCameraMarker, models.TestImageMarker,
)

// cropReviewJoin starts a query over saved_crops left-joined with
// crop_reviews, using the sc/cr aliases the predicates above expect.
func cropReviewJoin(database *gorm.DB) *gorm.DB {
	return database.Table("saved_crops sc").
		Joins("LEFT JOIN crop_reviews cr ON cr.crop_id = sc.id")
}

// applyCropFilters adds the dashboard filter conditions. Absent or
// "all" values are no-ops; everything else combines with AND.
func applyCropFilters(tx *gorm.DB, filters models.CropFilters) *gorm.DB {
	if filters.Status != "" && filters.Status != "all" {
		switch filters.Status {
		case "unreviewed":
			tx = tx.Where(cropUnreviewedExpr)
		case "reviewed", "classified":
			tx = tx.Where(cropReviewedExpr)
		}
	}

	if filters.Jonathan != "" && filters.Jonathan != "all" {
		tx = tx.Where("cr.is_jonathan = ?", filters.Jonathan)
	}

	if filters.Activity != "" && filters.Activity != "all" {
		// Membership test against the JSON-serialised activities list.
		tx = tx.Where("cr.activities LIKE ?", `%"`+filters.Activity+`"%`)
	}

	if filters.Clothing != "" && filters.Clothing != "all" {
		tx = tx.Where("cr.top_clothing = ?", filters.Clothing)
	}

	return tx
}
