package repository

import (
	"testing"
	"time"

	"traffic-watch-go/internal/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewUpsertCreatesAndUpdates(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)

	crop := saveCrop(t, crops, cropFixture("hauptstrasse", "a.jpg", 0))

	created, err := reviews.Upsert(crop.ID, ReviewInput{
		Notes:       "seen near the bus stop",
		IsJonathan:  strptr("could be"),
		Activities:  []string{"waiting for a bus", "wearing a backpack"},
		TopClothing: strptr("long sleeves"),
		ReviewerID:  "203.0.113.7",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, crop.ID, created.CropID)

	// Second submission replaces every field; unsupplied ones go NULL.
	updated, err := reviews.Upsert(crop.ID, ReviewInput{
		IsJonathan: strptr("no"),
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "upsert must update in place, not insert")
	assert.Empty(t, updated.Notes)
	assert.Nil(t, updated.Activities)
	assert.Nil(t, updated.TopClothing)
	require.NotNil(t, updated.IsJonathan)
	assert.Equal(t, "no", *updated.IsJonathan)

	var count int64
	require.NoError(t, database.Model(&models.Review{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReviewUpsertIdempotentPayload(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)

	crop := saveCrop(t, crops, cropFixture("hauptstrasse", "a.jpg", 0))
	input := ReviewInput{
		Notes:       "same person as yesterday",
		IsJonathan:  strptr("could be"),
		Activities:  []string{"walking a dog"},
		TopClothing: strptr("short sleeves"),
		ReviewerID:  "203.0.113.7",
		ReviewedAt:  time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
	}

	first, err := reviews.Upsert(crop.ID, input)
	require.NoError(t, err)
	second, err := reviews.Upsert(crop.ID, input)
	require.NoError(t, err)

	// Identical payload leaves the stored review identical apart from
	// the update timestamp.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Notes, second.Notes)
	assert.Equal(t, first.IsJonathan, second.IsJonathan)
	assert.Equal(t, first.Activities, second.Activities)
	assert.Equal(t, first.TopClothing, second.TopClothing)
	assert.Equal(t, first.ReviewedByIP, second.ReviewedByIP)
	assert.True(t, first.ReviewedAt.Equal(second.ReviewedAt))
}

func TestReviewUpsertRejectsOutOfVocabulary(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)

	crop := saveCrop(t, crops, cropFixture("hauptstrasse", "a.jpg", 0))

	_, err := reviews.Upsert(crop.ID, ReviewInput{IsJonathan: strptr("definitely")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reviews.Upsert(crop.ID, ReviewInput{TopClothing: strptr("tank top")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reviews.Upsert(crop.ID, ReviewInput{Activities: []string{"skydiving"}})
	assert.ErrorIs(t, err, ErrValidation)

	// Rejected before any write.
	var count int64
	require.NoError(t, database.Model(&models.Review{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReviewUpsertMissingCrop(t *testing.T) {
	database := newTestDB(t)
	reviews := NewReviewRepository(database)

	_, err := reviews.Upsert(777, ReviewInput{Notes: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewGetByCropIDNone(t *testing.T) {
	database := newTestDB(t)
	reviews := NewReviewRepository(database)

	review, err := reviews.GetByCropID(1)
	require.NoError(t, err)
	assert.Nil(t, review)
}

func TestListUnreviewedOrderingAndExclusions(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)

	oldest := saveCrop(t, crops, cropFixture("hauptstrasse", "a.jpg", 0))
	newer := saveCrop(t, crops, cropFixture("hauptstrasse", "b.jpg", time.Minute))

	// Synthetic records and records without locator fields never enter
	// the review queue.
	testData := cropFixture("hauptstrasse", "c.jpg", 2*time.Minute)
	testData.CropFolder = "saved_images/test_camera"
	saveCrop(t, crops, testData)

	testImage := cropFixture("hauptstrasse", "d.jpg", 3*time.Minute)
	testImage.CropFilename = "test_image_99.jpg"
	saveCrop(t, crops, testImage)

	// An empty review keeps the crop unreviewed.
	emptyReviewed := saveCrop(t, crops, cropFixture("hauptstrasse", "e.jpg", 4*time.Minute))
	_, err := reviews.Upsert(emptyReviewed.ID, ReviewInput{})
	require.NoError(t, err)

	// A classified crop leaves the queue.
	done := saveCrop(t, crops, cropFixture("hauptstrasse", "f.jpg", 5*time.Minute))
	_, err = reviews.Upsert(done.ID, ReviewInput{Notes: "clearly not"})
	require.NoError(t, err)

	queue, err := reviews.ListUnreviewed(50)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, oldest.ID, queue[0].ID, "oldest saved first")
	assert.Equal(t, newer.ID, queue[1].ID)
	assert.Equal(t, emptyReviewed.ID, queue[2].ID)
}

func TestListReviewedMostRecentFirst(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)

	first := saveCrop(t, crops, cropFixture("hauptstrasse", "a.jpg", 0))
	second := saveCrop(t, crops, cropFixture("hauptstrasse", "b.jpg", time.Minute))

	_, err := reviews.Upsert(first.ID, ReviewInput{
		Notes:      "older review",
		ReviewedAt: time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = reviews.Upsert(second.ID, ReviewInput{
		Notes:      "newer review",
		ReviewedAt: time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Empty review rows stay out of the reviewed listing.
	empty := saveCrop(t, crops, cropFixture("hauptstrasse", "c.jpg", 2*time.Minute))
	_, err = reviews.Upsert(empty.ID, ReviewInput{})
	require.NoError(t, err)

	listed, err := reviews.ListReviewed(50)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.Equal(t, first.ID, listed[1].ID)
	require.NotNil(t, listed[0].Notes)
	assert.Equal(t, "newer review", *listed[0].Notes)
}

func TestMostRecentSkipsTestData(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)

	none, err := reviews.MostRecent()
	require.NoError(t, err)
	assert.Nil(t, none)

	real := saveCrop(t, crops, cropFixture("hauptstrasse", "a.jpg", 0))

	synthetic := cropFixture("hauptstrasse", "b.jpg", time.Hour)
	synthetic.CropFolder = "saved_images/test_camera"
	saveCrop(t, crops, synthetic)

	recent, err := reviews.MostRecent()
	require.NoError(t, err)
	require.NotNil(t, recent)
	assert.Equal(t, real.ID, recent.ID)
}

func TestReviewStats(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)

	// Three real crops: one classified, one with an empty review, one
	// untouched. Plus one synthetic crop that never counts as
	// never-reviewed.
	classified := saveCrop(t, crops, cropFixture("hauptstrasse", "a.jpg", 0))
	emptyReviewed := saveCrop(t, crops, cropFixture("hauptstrasse", "b.jpg", time.Minute))
	saveCrop(t, crops, cropFixture("hauptstrasse", "c.jpg", 2*time.Minute))

	synthetic := cropFixture("hauptstrasse", "d.jpg", 3*time.Minute)
	synthetic.CropFolder = "saved_images/test_camera"
	saveCrop(t, crops, synthetic)

	_, err := reviews.Upsert(classified.ID, ReviewInput{TopClothing: strptr("can't tell")})
	require.NoError(t, err)
	_, err = reviews.Upsert(emptyReviewed.ID, ReviewInput{})
	require.NoError(t, err)

	stats, err := reviews.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalCrops)
	assert.Equal(t, int64(2), stats.TotalReviews)
	assert.Equal(t, int64(1), stats.ClassifiedCrops, "only reviews with content count as classified")
	assert.Equal(t, int64(1), stats.NeverReviewed, "synthetic crops excluded")
	assert.Equal(t, int64(1), stats.PartialReviews, "empty review rows are partial")
}

func TestUpsertWithFactorsAtomic(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)
	factors := NewFactorRepository(database)

	crop := saveCrop(t, crops, cropFixture("hauptstrasse", "a.jpg", 0))
	blue, err := factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)
	tall, err := factors.Create("too tall", models.FactorTypeNegative, "")
	require.NoError(t, err)

	review, err := reviews.UpsertWithFactors(crop.ID, ReviewInput{
		Notes:      "clear sighting",
		IsJonathan: strptr("could be"),
	}, []uint{blue.ID}, []uint{tall.ID})
	require.NoError(t, err)

	positive, err := factors.ListPositive(review.ID)
	require.NoError(t, err)
	require.Len(t, positive, 1)
	negative, err := factors.ListNegative(review.ID)
	require.NoError(t, err)
	require.Len(t, negative, 1)

	// A second save replaces the whole assignment set.
	review2, err := reviews.UpsertWithFactors(crop.ID, ReviewInput{
		Notes: "second look",
	}, nil, []uint{blue.ID})
	require.NoError(t, err)
	assert.Equal(t, review.ID, review2.ID)

	positive, err = factors.ListPositive(review.ID)
	require.NoError(t, err)
	assert.Empty(t, positive)
	negative, err = factors.ListNegative(review.ID)
	require.NoError(t, err)
	require.Len(t, negative, 1)
	assert.Equal(t, blue.ID, negative[0].ID)
}

func TestUpsertWithFactorsRejectedInputWritesNothing(t *testing.T) {
	database := newTestDB(t)
	crops := NewCropRepository(database)
	reviews := NewReviewRepository(database)
	factors := NewFactorRepository(database)

	crop := saveCrop(t, crops, cropFixture("hauptstrasse", "a.jpg", 0))
	blue, err := factors.Create("blue shirt", models.FactorTypePositive, "")
	require.NoError(t, err)

	_, err = reviews.UpsertWithFactors(crop.ID, ReviewInput{
		IsJonathan: strptr("definitely"),
	}, []uint{blue.ID}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	var reviewCount, assignmentCount int64
	require.NoError(t, database.Model(&models.Review{}).Count(&reviewCount).Error)
	require.NoError(t, database.Model(&models.ReviewPositiveFactor{}).Count(&assignmentCount).Error)
	assert.Zero(t, reviewCount)
	assert.Zero(t, assignmentCount)
}
