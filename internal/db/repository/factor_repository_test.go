package repository

import (
	"testing"

	"traffic-watch-go/internal/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newReviewForFactors creates a crop with a review to hang assignments on.
func newReviewForFactors(t *testing.T, database interface {
	Save(*models.Crop) error
}, reviews ReviewRepository) uint {
	t.Helper()
	crop := cropFixture("hauptstrasse", "a.jpg", 0)
	require.NoError(t, database.Save(crop))
	review, err := reviews.Upsert(crop.ID, ReviewInput{Notes: "for tagging"})
	require.NoError(t, err)
	return review.ID
}

func TestFactorCreateAndDuplicateName(t *testing.T) {
	database := newTestDB(t)
	factors := NewFactorRepository(database)

	created, err := factors.Create("blue shirt", models.FactorTypePositive, "wears a blue shirt")
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	// Same name with a different type still conflicts; the catalog keeps
	// exactly one factor under that name with its original type.
	_, err = factors.Create("blue shirt", models.FactorTypeNegative, "")
	assert.ErrorIs(t, err, ErrConflict)

	catalog, err := factors.ListAll()
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "blue shirt", catalog[0].Name)
	assert.Equal(t, models.FactorTypePositive, catalog[0].Type)
}

func TestFactorCreateRejectsBadType(t *testing.T) {
	database := newTestDB(t)
	factors := NewFactorRepository(database)

	_, err := factors.Create("red coat", "neutral", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = factors.Create("", models.FactorTypePositive, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFactorUpdate(t *testing.T) {
	database := newTestDB(t)
	factors := NewFactorRepository(database)

	created, err := factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)

	require.NoError(t, factors.Update(created.ID, "dark blue shirt", models.FactorTypeNegative, "updated"))

	loaded, err := factors.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "dark blue shirt", loaded.Name)
	assert.Equal(t, models.FactorTypeNegative, loaded.Type)
	assert.Equal(t, "updated", loaded.Description)

	err = factors.Update(9999, "ghost", models.FactorTypePositive, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = factors.Create("taken", models.FactorTypePositive, "")
	require.NoError(t, err)
	err = factors.Update(created.ID, "taken", models.FactorTypePositive, "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestFactorListOrdering(t *testing.T) {
	database := newTestDB(t)
	factors := NewFactorRepository(database)

	_, err := factors.Create("zebra print", models.FactorTypeNegative, "")
	require.NoError(t, err)
	_, err = factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)
	_, err = factors.Create("athletic build", models.FactorTypePositive, "")
	require.NoError(t, err)

	all, err := factors.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Ordered by type, then name: negatives before positives.
	assert.Equal(t, "zebra print", all[0].Name)
	assert.Equal(t, "athletic build", all[1].Name)
	assert.Equal(t, "blue shirt", all[2].Name)

	positives, err := factors.ListByType(models.FactorTypePositive)
	require.NoError(t, err)
	require.Len(t, positives, 2)
	assert.Equal(t, "athletic build", positives[0].Name)

	_, err = factors.ListByType("sideways")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFactorPolarityExclusivity(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)
	factors := NewFactorRepository(database)

	reviewID := newReviewForFactors(t, crops, reviews)
	factor, err := factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)

	require.NoError(t, factors.Assign(reviewID, factor.ID, models.FactorTypePositive))
	require.NoError(t, factors.Assign(reviewID, factor.ID, models.FactorTypeNegative))

	positive, err := factors.ListPositive(reviewID)
	require.NoError(t, err)
	assert.Empty(t, positive, "flipping polarity must remove the positive assignment")

	negative, err := factors.ListNegative(reviewID)
	require.NoError(t, err)
	require.Len(t, negative, 1)
	assert.Equal(t, factor.ID, negative[0].ID)

	// Re-asserting the same polarity is a no-op, not a duplicate.
	require.NoError(t, factors.Assign(reviewID, factor.ID, models.FactorTypeNegative))
	negative, err = factors.ListNegative(reviewID)
	require.NoError(t, err)
	assert.Len(t, negative, 1)
}

func TestFactorUnassignIdempotent(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)
	factors := NewFactorRepository(database)

	reviewID := newReviewForFactors(t, crops, reviews)
	factor, err := factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)

	require.NoError(t, factors.Assign(reviewID, factor.ID, models.FactorTypePositive))
	require.NoError(t, factors.Unassign(reviewID, factor.ID))
	require.NoError(t, factors.Unassign(reviewID, factor.ID))

	positive, err := factors.ListPositive(reviewID)
	require.NoError(t, err)
	assert.Empty(t, positive)
}

func TestFactorReplaceAll(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)
	factors := NewFactorRepository(database)

	reviewID := newReviewForFactors(t, crops, reviews)
	a, err := factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)
	b, err := factors.Create("red coat", models.FactorTypePositive, "")
	require.NoError(t, err)
	c, err := factors.Create("too tall", models.FactorTypeNegative, "")
	require.NoError(t, err)

	require.NoError(t, factors.Assign(reviewID, a.ID, models.FactorTypeNegative))

	require.NoError(t, factors.ReplaceAll(reviewID, []uint{a.ID, b.ID}, []uint{c.ID}))

	positive, err := factors.ListPositive(reviewID)
	require.NoError(t, err)
	require.Len(t, positive, 2)
	negative, err := factors.ListNegative(reviewID)
	require.NoError(t, err)
	require.Len(t, negative, 1)
	assert.Equal(t, c.ID, negative[0].ID)
}

func TestFactorReplaceAllOverlapResolvesPositive(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)
	factors := NewFactorRepository(database)

	reviewID := newReviewForFactors(t, crops, reviews)
	factor, err := factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)

	// The engine does not reject overlapping input; insertion order is
	// fixed (negatives first), so the factor ends up positive.
	require.NoError(t, factors.ReplaceAll(reviewID, []uint{factor.ID}, []uint{factor.ID}))

	positive, err := factors.ListPositive(reviewID)
	require.NoError(t, err)
	require.Len(t, positive, 1)
	negative, err := factors.ListNegative(reviewID)
	require.NoError(t, err)
	assert.Empty(t, negative)
}

func TestFactorDeleteCascadesAssignments(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)
	factors := NewFactorRepository(database)

	reviewID := newReviewForFactors(t, crops, reviews)
	factor, err := factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)
	require.NoError(t, factors.Assign(reviewID, factor.ID, models.FactorTypePositive))

	deleted, err := factors.Delete(factor.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	var assignments int64
	require.NoError(t, database.Model(&models.ReviewPositiveFactor{}).Where("factor_id = ?", factor.ID).Count(&assignments).Error)
	assert.Zero(t, assignments)

	deleted, err = factors.Delete(factor.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFactorListAllWithSelection(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)
	factors := NewFactorRepository(database)

	reviewID := newReviewForFactors(t, crops, reviews)
	a, err := factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)
	b, err := factors.Create("too tall", models.FactorTypeNegative, "")
	require.NoError(t, err)
	_, err = factors.Create("red coat", models.FactorTypePositive, "")
	require.NoError(t, err)

	require.NoError(t, factors.Assign(reviewID, a.ID, models.FactorTypePositive))
	require.NoError(t, factors.Assign(reviewID, b.ID, models.FactorTypeNegative))

	annotated, err := factors.ListAllWithSelection(reviewID)
	require.NoError(t, err)
	require.Len(t, annotated, 3)

	selections := make(map[string]string, len(annotated))
	for _, f := range annotated {
		selections[f.Name] = f.Selection
	}
	assert.Equal(t, models.SelectionPositive, selections["blue shirt"])
	assert.Equal(t, models.SelectionNegative, selections["too tall"])
	assert.Equal(t, models.SelectionNone, selections["red coat"])

	// Ordered by type then name.
	assert.Equal(t, "too tall", annotated[0].Name)
	assert.Equal(t, "blue shirt", annotated[1].Name)
	assert.Equal(t, "red coat", annotated[2].Name)
}
